package tokenizer

import (
	lru "github.com/hashicorp/golang-lru/v2/simplelru"
)

// Cache memoizes word tokenizations for one goroutine, evicting the least
// recently used word when full. It is not safe for concurrent use; give every
// worker its own.
type Cache struct {
	tok   *Tokenizer
	cache *lru.LRU[string, []byte]

	hits, misses int64
}

// NewCache returns a cache of at most max words. A max of zero or less
// disables caching.
func NewCache(t *Tokenizer, max int) *Cache {
	c := &Cache{tok: t}
	if max > 0 {
		// only fails for a non-positive size
		c.cache, _ = lru.NewLRU[string, []byte](max, nil)
	}
	return c
}

// Stats reports cache hits and misses so far.
func (c *Cache) Stats() (hits, misses int64) { return c.hits, c.misses }

// AppendWord is Tokenizer.AppendWord with memoization.
func (c *Cache) AppendWord(dst, w []byte) []byte {
	if c.cache == nil {
		return c.tok.AppendWord(dst, w)
	}
	if enc, ok := c.cache.Get(string(w)); ok {
		c.hits++
		return append(dst, enc...)
	}
	c.misses++

	start := len(dst)
	dst = c.tok.AppendWord(dst, w)
	c.cache.Add(string(w), append([]byte(nil), dst[start:]...))
	return dst
}

// AppendLine is Tokenizer.AppendLine with memoization.
func (c *Cache) AppendLine(dst, line []byte) []byte {
	return appendLine(dst, line, c.AppendWord)
}
