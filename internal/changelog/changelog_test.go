package changelog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	prev := map[string]string{"a.json": "1", "b.json": "2", "c.json": "3"}
	next := map[string]string{"a.json": "1", "b.json": "22", "d.yaml": "4", "0.json": "5"}

	d := Compute(prev, next)
	assert.Equal(t, []string{"0.json", "d.yaml"}, d.Added)
	assert.Equal(t, []string{"b.json"}, d.Updated)
	assert.Equal(t, []string{"c.json"}, d.Removed)
	assert.False(t, d.Empty())

	assert.True(t, Compute(next, next).Empty())
	assert.Equal(t, []string{"0.json", "a.json", "b.json", "d.yaml"}, Compute(nil, next).Added)
}

func newBolt(t *testing.T) *BoltStore {
	t.Helper()
	s, err := OpenBolt(filepath.Join(t.TempDir(), "changelog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStore_LatestNewestFirst(t *testing.T) {
	s := newBolt(t)
	ctx := context.Background()

	entries, err := s.Latest(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, entries)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for gen := uint64(1); gen <= 3; gen++ {
		require.NoError(t, s.Record(ctx, Entry{
			Generation: gen,
			At:         at.Add(time.Duration(gen) * time.Minute),
			Terms:      int(gen) * 10,
			Diff:       Diff{Added: []string{"x.json"}, Updated: []string{}, Removed: []string{}},
		}))
	}

	entries, err = s.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(3), entries[0].Generation)
	assert.Equal(t, uint64(2), entries[1].Generation)
	assert.Equal(t, 30, entries[0].Terms)
	assert.Equal(t, []string{"x.json"}, entries[0].Diff.Added)
	assert.True(t, entries[0].At.Equal(at.Add(3*time.Minute)))
}

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changelog.db")
	ctx := context.Background()

	s, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, Entry{Generation: 7, Diff: Diff{Removed: []string{"gone.json"}}}))
	require.NoError(t, s.Close())

	s, err = OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()
	entries, err := s.Latest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"gone.json"}, entries[0].Diff.Removed)
}

func TestNop(t *testing.T) {
	var s Store = Nop{}
	require.NoError(t, s.Record(context.Background(), Entry{}))
	entries, err := s.Latest(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
