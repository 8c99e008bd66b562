package storage

import "github.com/statuswatch/statuswatch/pkg/types"

// Store persists the last-known-good poll result per service. A write
// failure is never fatal to a monitoring cycle; the caller logs it and
// continues with the baseline considered not durably updated.
type Store interface {
	// Get returns the stored baseline for a service key, or (nil, nil)
	// when none exists.
	Get(key string) (*types.PollResult, error)

	// Put stores the baseline for a service key, replacing any previous
	// entry.
	Put(key string, result *types.PollResult) error

	// Delete removes the baseline for one service key.
	Delete(key string) error

	// Clear removes all baselines.
	Clear() error

	// Close releases the underlying database.
	Close() error
}
