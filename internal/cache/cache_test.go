package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloSum = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func TestDiskCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "packages")
	c, err := New(dir)
	require.NoError(t, err)

	path, err := c.Path("wikipedia.tum", "2015-08")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "wikipedia.tum-2015-08"), path)
	assert.False(t, c.Has("wikipedia.tum", "2015-08"))
	assert.False(t, c.Verify("wikipedia.tum", "2015-08", helloSum))

	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	t.Run("has and verify", func(t *testing.T) {
		assert.True(t, c.Has("wikipedia.tum", "2015-08"))
		assert.True(t, c.Verify("wikipedia.tum", "2015-08", helloSum))
		assert.False(t, c.Verify("wikipedia.tum", "2015-08", "deadbeef"))
		assert.False(t, c.Verify("wikipedia.tum", "2015-08", ""))
	})

	t.Run("size", func(t *testing.T) {
		size, err := c.Size()
		require.NoError(t, err)
		assert.Equal(t, int64(5), size)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		require.NoError(t, c.Remove("wikipedia.tum", "2015-08"))
		require.NoError(t, c.Remove("wikipedia.tum", "2015-08"))
		assert.False(t, c.Has("wikipedia.tum", "2015-08"))
	})

	t.Run("clear empties but keeps the directory", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a-1"), []byte("abc"), 0644))
		require.NoError(t, c.Clear())

		size, err := c.Size()
		require.NoError(t, err)
		assert.Zero(t, size)
		assert.DirExists(t, dir)
	})
}

func TestDiskCachePathStaysInside(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "packages")
	c, err := New(dir)
	require.NoError(t, err)

	outside := filepath.Join(root, "escaped")
	require.NoError(t, os.WriteFile(outside, []byte("hello"), 0644))

	for _, version := range []string{"../escaped", "../../escaped", `..\escaped`, "2015/08"} {
		t.Run(version, func(t *testing.T) {
			_, err := c.Path("wikipedia.tum", version)
			assert.Error(t, err)
			assert.False(t, c.Has("wikipedia.tum", version))
			assert.False(t, c.Verify("wikipedia.tum", version, helloSum))
			assert.Error(t, c.Remove("wikipedia.tum", version))
		})
	}

	assert.FileExists(t, outside)
}
