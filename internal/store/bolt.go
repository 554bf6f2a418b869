package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/0xsamyy/buywatch/internal/watch"
)

var bucketConfigs = []byte("group_configs")

// Bolt persists GroupConfig snapshots so active watches survive restarts.
type Bolt struct {
	db *bolt.DB
}

// NewBolt opens (creating if necessary) the database at path.
func NewBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketConfigs)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

// Close releases the underlying database file.
func (s *Bolt) Close() error {
	return s.db.Close()
}

// SaveConfig writes the snapshot for key, replacing any previous one.
func (s *Bolt) SaveConfig(_ context.Context, key watch.Key, cfg watch.GroupConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config %s: %w", key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConfigs).Put([]byte(key.String()), data)
	})
}

// DeleteConfig removes the snapshot for key. Missing keys are a no-op.
func (s *Bolt) DeleteConfig(_ context.Context, key watch.Key) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConfigs).Delete([]byte(key.String()))
	})
}

// GetConfig loads the snapshot for key.
func (s *Bolt) GetConfig(_ context.Context, key watch.Key) (watch.GroupConfig, bool, error) {
	var cfg watch.GroupConfig
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketConfigs).Get([]byte(key.String()))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &cfg)
	})
	if err != nil {
		return watch.GroupConfig{}, false, err
	}
	return cfg, found, nil
}

// ListConfigs returns every persisted snapshot keyed by watch key.
// Entries with unparseable keys are skipped rather than failing the scan.
func (s *Bolt) ListConfigs(_ context.Context) (map[watch.Key]watch.GroupConfig, error) {
	out := make(map[watch.Key]watch.GroupConfig)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConfigs).ForEach(func(k, v []byte) error {
			key, err := watch.ParseKey(string(k))
			if err != nil {
				return nil
			}
			var cfg watch.GroupConfig
			if err := json.Unmarshal(v, &cfg); err != nil {
				return fmt.Errorf("unmarshal config %s: %w", k, err)
			}
			out[key] = cfg
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountConfigs reports how many snapshots are persisted (health display).
func (s *Bolt) CountConfigs(_ context.Context) (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketConfigs).Stats().KeyN
		return nil
	})
	return n, err
}
