package fetch

import (
	"encoding/json"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/buntdb"
)

// Cache stores one JSON record per URL hash in an embedded buntdb,
// replacing the teacher's/original's flat <hash> body + <hash>_header pair
// with a single keyed record while preserving the same external contract:
// writer-preferring locking (buntdb serializes writes via its own
// transaction manager) and TTL-based freshness.
type Cache struct {
	db *buntdb.DB
}

type entry struct {
	Body      []byte      `json:"body"`
	Header    http.Header `json:"header"`
	FetchedAt int64       `json:"fetched_at"` // unix seconds
}

var json_ = jsoniter.ConfigCompatibleWithStandardLibrary

// OpenCache opens (creating if absent) the buntdb file at path. Pass ""
// for an in-memory cache (used by tests).
func OpenCache(path string) (*Cache, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Get returns the cached body/header for key if present and newer than ttl.
func (c *Cache) Get(key string, ttl time.Duration) ([]byte, http.Header, bool) {
	e, ok := c.read(key)
	if !ok {
		return nil, nil, false
	}
	age := time.Since(time.Unix(e.FetchedAt, 0))
	if age > ttl {
		return nil, nil, false
	}
	return e.Body, e.Header, true
}

// GetStale returns the cached entry regardless of age, used by the
// ServeCacheOnFetchFail fallback path.
func (c *Cache) GetStale(key string) ([]byte, http.Header, bool) {
	e, ok := c.read(key)
	if !ok {
		return nil, nil, false
	}
	return e.Body, e.Header, true
}

func (c *Cache) read(key string) (entry, bool) {
	var e entry
	err := c.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(key)
		if err != nil {
			return err
		}
		return json_.Unmarshal([]byte(val), &e)
	})
	if err != nil {
		return entry{}, false
	}
	return e, true
}

// Put stores body/header for key, stamped with the current time.
func (c *Cache) Put(key string, body []byte, header http.Header) error {
	e := entry{Body: body, Header: header, FetchedAt: time.Now().Unix()}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, string(raw), nil)
		return err
	})
}

// Flush removes every cached entry (backs the /flushcache endpoint, spec
// §6.1).
func (c *Cache) Flush() error {
	return c.db.Update(func(tx *buntdb.Tx) error {
		var keys []string
		_ = tx.Ascend("", func(k, v string) bool {
			keys = append(keys, k)
			return true
		})
		for _, k := range keys {
			if _, err := tx.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
