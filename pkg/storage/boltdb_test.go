package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/statuswatch/statuswatch/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResult(raw string) *types.PollResult {
	return &types.PollResult{
		Status:       types.StatusPtr(types.StatusOperational),
		ResponseTime: 0.2,
		RawStatus:    raw,
		Success:      true,
		Incidents: []types.Incident{
			{ID: "inc1", Name: "Something", Impact: "minor", StartedAt: "2025-11-04T13:25:38Z"},
		},
		Components: []types.Component{
			{Name: "API", Status: "operational", StatusValue: 1},
		},
	}
}

func TestBoltStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("github", sampleResult("none")))

	got, err := store.Get("github")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sampleResult("none"), got)
}

func TestBoltStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBoltStoreUpsert(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("github", sampleResult("none")))
	require.NoError(t, store.Put("github", sampleResult("minor")))

	got, err := store.Get("github")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "minor", got.RawStatus)
}

func TestBoltStoreDelete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("github", sampleResult("none")))
	require.NoError(t, store.Delete("github"))

	got, err := store.Get("github")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting an absent key is not an error.
	assert.NoError(t, store.Delete("github"))
}

func TestBoltStoreClear(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("github", sampleResult("none")))
	require.NoError(t, store.Put("cloudflare", sampleResult("major")))
	require.NoError(t, store.Clear())

	for _, key := range []string{"github", "cloudflare"} {
		got, err := store.Get(key)
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	// The store stays usable after a clear.
	require.NoError(t, store.Put("github", sampleResult("none")))
	got, err := store.Get("github")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestBoltStoreCorruptEntryDropped(t *testing.T) {
	dir := t.TempDir()
	store, err := NewBoltStore(dir)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put("github", sampleResult("none")))

	err = store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBaselines).Put([]byte("github"), []byte("{not json"))
	})
	require.NoError(t, err)

	got, err := store.Get("github")
	require.NoError(t, err)
	assert.Nil(t, got)

	// The corrupt entry is gone, not just skipped.
	err = store.db.View(func(tx *bolt.Tx) error {
		assert.Nil(t, tx.Bucket(bucketBaselines).Get([]byte("github")))
		return nil
	})
	require.NoError(t, err)
}

func TestBoltStoreReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBoltStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put("github", sampleResult("none")))
	require.NoError(t, store.Close())

	store2, err := NewBoltStore(dir)
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.Get("github")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "none", got.RawStatus)
}
