package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/buntdb"
)

const keyPrefix = "artifact:"

// ArtifactCache keeps successful chart artifacts in memory for a fixed TTL
type ArtifactCache struct {
	db  *buntdb.DB
	ttl time.Duration
}

// New opens an in-memory cache whose entries expire after ttl
func New(ttl time.Duration) (*ArtifactCache, error) {
	if ttl <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}

	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	if err := db.SetConfig(buntdb.Config{
		SyncPolicy:           buntdb.Never,
		AutoShrinkPercentage: 100,
		AutoShrinkMinSize:    32 * 1024 * 1024,
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure buntdb: %w", err)
	}

	return &ArtifactCache{db: db, ttl: ttl}, nil
}

// Get returns the cached artifact for identifier, if present and not expired
func (c *ArtifactCache) Get(identifier string) (string, bool, error) {
	var content string
	err := c.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(keyPrefix + identifier)
		if err != nil {
			return err
		}
		content = val
		return nil
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache: %w", err)
	}
	return content, true, nil
}

// Set stores content for identifier, replacing any previous entry
func (c *ArtifactCache) Set(identifier, content string) error {
	err := c.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(keyPrefix+identifier, content, &buntdb.SetOptions{Expires: true, TTL: c.ttl})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Len returns the number of live entries
func (c *ArtifactCache) Len() (int, error) {
	var n int
	err := c.db.View(func(tx *buntdb.Tx) error {
		var err error
		n, err = tx.Len()
		return err
	})
	return n, err
}

// Close releases the underlying store
func (c *ArtifactCache) Close() error {
	return c.db.Close()
}
