package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

const DefaultTitleTTL = 24 * time.Hour

// TitleCache remembers note titles between runs so a request may omit the ones
// it already sent.
type TitleCache struct {
	cache *cache.Cache
}

func NewTitleCache(ttl time.Duration) *TitleCache {
	if ttl <= 0 {
		ttl = DefaultTitleTTL
	}
	return &TitleCache{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (c *TitleCache) PutAll(titles map[string]string) {
	for id, title := range titles {
		c.cache.Set(id, title, cache.DefaultExpiration)
	}
}

func (c *TitleCache) Title(noteId string) (string, bool) {
	if x, found := c.cache.Get(noteId); found {
		return x.(string), true
	}
	return "", false
}

func (c *TitleCache) Len() int {
	return c.cache.ItemCount()
}
