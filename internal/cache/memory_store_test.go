package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreMetaRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	meta := Meta{Total: 42, PageSizeHint: 100}
	require.NoError(t, s.PutMeta(ctx, "citesearch", "r1", meta, time.Hour))

	got, ok, err := s.GetMeta(ctx, "citesearch", "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, got.Total)
}

func TestMemoryStoreMetaExpires(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.PutMeta(ctx, "citesearch", "r1", Meta{Total: 1}, time.Nanosecond))
	time.Sleep(time.Millisecond)

	_, ok, err := s.GetMeta(ctx, "citesearch", "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreChunkRoundTripAndInvalidate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	raw, _ := json.Marshal([]string{"a", "b"})
	require.NoError(t, s.PutChunk(ctx, "citesearch", "r1", 0, raw, time.Hour))
	require.NoError(t, s.PutMeta(ctx, "citesearch", "r1", Meta{Total: 2}, time.Hour))

	got, ok, err := s.GetChunk(ctx, "citesearch", "r1", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, string(raw), string(got))

	require.NoError(t, s.Invalidate(ctx, "citesearch", "r1"))

	_, ok, err = s.GetChunk(ctx, "citesearch", "r1", 0)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.GetMeta(ctx, "citesearch", "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreMissingChunkIsNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, ok, err := s.GetChunk(context.Background(), "citesearch", "missing", 0)
	require.NoError(t, err)
	assert.False(t, ok)
}
