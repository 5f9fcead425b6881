package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/73ai/gossiphs/internal/extractor"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	opts := DefaultOptions(t.TempDir())
	opts.InMemory = true
	c, err := Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	c := openTestCache(t)

	syms := []extractor.Symbol{
		{ID: extractor.NewID("a.go", "main", extractor.DEF, 0), File: "a.go", Name: "main", Kind: extractor.DEF},
	}
	require.NoError(t, c.Set("a.go", "blob-1", syms))

	got, ok := c.Get("a.go", "blob-1")
	require.True(t, ok)
	assert.Equal(t, syms, got)
}

func TestCache_BlobMismatchMisses(t *testing.T) {
	c := openTestCache(t)
	require.NoError(t, c.Set("a.go", "blob-1", nil))

	_, ok := c.Get("a.go", "blob-2")
	assert.False(t, ok)
}

func TestCache_MissingPathMisses(t *testing.T) {
	c := openTestCache(t)
	_, ok := c.Get("never-written.go", "blob-1")
	assert.False(t, ok)
}

func TestCache_OverwriteReplacesEntry(t *testing.T) {
	c := openTestCache(t)
	require.NoError(t, c.Set("a.go", "blob-1", []extractor.Symbol{{Name: "old"}}))
	require.NoError(t, c.Set("a.go", "blob-2", []extractor.Symbol{{Name: "new"}}))

	_, ok := c.Get("a.go", "blob-1")
	assert.False(t, ok)

	got, ok := c.Get("a.go", "blob-2")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Name)
}
