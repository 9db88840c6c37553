package textcache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/dgallion1/docsense/internal/metrics"
)

// KeyPrefix namespaces cache entries.
const KeyPrefix = "docsense:text:"

// store is the subset of RedisStore the cache needs.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Entry is the cached extraction result for one upload.
type Entry struct {
	Text        string    `json:"text"`
	Title       string    `json:"title,omitempty"`
	Format      string    `json:"format"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// Cache memoises extracted document text by content hash. A Cache with no
// store is disabled: every lookup misses and every write is dropped.
// Store failures are logged and treated as misses.
type Cache struct {
	store store
	ttl   time.Duration
	log   *slog.Logger
}

// New creates a cache over s. s may be nil.
func New(s store, ttl time.Duration, log *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cache{store: s, ttl: ttl, log: log}
}

// Enabled reports whether a backing store is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.store != nil
}

// Get returns the cached entry for a content hash.
func (c *Cache) Get(ctx context.Context, hash string) (Entry, bool) {
	if !c.Enabled() {
		return Entry{}, false
	}
	key := KeyPrefix + hash
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			metrics.TextCacheTotal.WithLabelValues("miss").Inc()
		} else {
			metrics.TextCacheTotal.WithLabelValues("error").Inc()
			c.log.Warn("text cache get failed", "key", key, "error", err)
		}
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil || e.Text == "" {
		metrics.TextCacheTotal.WithLabelValues("error").Inc()
		c.log.Warn("text cache entry unreadable", "key", key, "error", err)
		return Entry{}, false
	}
	metrics.TextCacheTotal.WithLabelValues("hit").Inc()
	return e, true
}

// Put stores an entry for a content hash.
func (c *Cache) Put(ctx context.Context, hash string, e Entry) {
	if !c.Enabled() || e.Text == "" {
		return
	}
	key := KeyPrefix + hash
	data, err := json.Marshal(e)
	if err != nil {
		c.log.Warn("text cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.log.Warn("text cache set failed", "key", key, "error", err)
	}
}
