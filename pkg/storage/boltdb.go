package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/statuswatch/statuswatch/pkg/log"
	"github.com/statuswatch/statuswatch/pkg/types"
)

var bucketBaselines = []byte("baselines")

// entry wraps a stored poll result with the time it was written, so
// operators can tell how stale a fallback baseline is.
type entry struct {
	Key       string           `json:"key"`
	Timestamp time.Time        `json:"timestamp"`
	Result    types.PollResult `json:"result"`
}

// BoltStore implements Store using a single bbolt database file in the
// cache directory.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the baseline database under cacheDir.
func NewBoltStore(cacheDir string) (*BoltStore, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	dbPath := filepath.Join(cacheDir, "statuswatch.db")

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open baseline database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBaselines)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create baselines bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get loads the baseline for a service key. A corrupt entry is dropped
// and reported as missing rather than failing the cycle.
func (s *BoltStore) Get(key string) (*types.PollResult, error) {
	var result *types.PollResult
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketBaselines)
		data := bucket.Get([]byte(key))
		if data == nil {
			return nil
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil {
			logger := log.WithComponent("storage")
			logger.Warn().
				Str("key", key).
				Err(err).
				Msg("dropping corrupt baseline entry")
			return bucket.Delete([]byte(key))
		}
		result = &e.Result
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get baseline %s: %w", key, err)
	}
	return result, nil
}

// Put stores the baseline for a service key (upsert).
func (s *BoltStore) Put(key string, result *types.PollResult) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(entry{
			Key:       key,
			Timestamp: time.Now().UTC(),
			Result:    *result,
		})
		if err != nil {
			return fmt.Errorf("marshal baseline %s: %w", key, err)
		}
		return tx.Bucket(bucketBaselines).Put([]byte(key), data)
	})
}

// Delete removes one baseline.
func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBaselines).Delete([]byte(key))
	})
}

// Clear removes all baselines.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketBaselines); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketBaselines)
		return err
	})
}
