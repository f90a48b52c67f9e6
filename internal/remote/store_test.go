package remote

import (
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamcutter/cubepkg/internal/domain"
)

func newStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := New(fs, "/cache/remotes")
	require.NoError(t, err)
	return s, fs
}

func TestNewCreatesDirectory(t *testing.T) {
	s, fs := newStore(t)

	exists, err := afero.DirExists(fs, "/cache/remotes")
	require.NoError(t, err)
	assert.True(t, exists)

	remotes, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, remotes)
}

func TestDescriptorParsing(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing string
	}{
		{"complete", "id: foo\nname: Content provided by Foo\nurl: http://foo.fr/catalog.yml", ""},
		{"missing id", "name: Content provided by Foo\nurl: http://foo.fr/catalog.yml", "id"},
		{"missing name", "id: foo\nurl: http://foo.fr/catalog.yml", "name"},
		{"missing url", "id: foo\nname: Content provided by Foo\n", "url"},
		{"any order", "url: http://foo.fr/catalog.yml\nid: foo\nname: Content provided by Foo", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, fs := newStore(t)
			require.NoError(t, afero.WriteFile(fs, "/cache/remotes/foo.yml", []byte(tt.content), 0644))

			remotes, err := s.List()
			if tt.missing != "" {
				require.ErrorIs(t, err, domain.ErrInvalidDescriptor)
				assert.Contains(t, err.Error(), tt.missing)
				return
			}

			require.NoError(t, err)
			require.Len(t, remotes, 1)
			assert.Equal(t, domain.Remote{
				ID:   "foo",
				Name: "Content provided by Foo",
				URL:  "http://foo.fr/catalog.yml",
			}, remotes[0])
		})
	}
}

func TestAddListRemove(t *testing.T) {
	s, fs := newStore(t)

	foo := domain.Remote{ID: "foo", Name: "Content provided by Foo", URL: "http://foo.fr/catalog.yml"}
	bar := domain.Remote{ID: "bar", Name: "Content provided by Bar", URL: "http://bar.fr/catalog.yml"}

	require.NoError(t, s.Add(foo))
	require.NoError(t, s.Add(bar))

	remotes, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []domain.Remote{bar, foo}, remotes)

	t.Run("descriptor is key value lines", func(t *testing.T) {
		data, err := afero.ReadFile(fs, "/cache/remotes/foo.yml")
		require.NoError(t, err)

		var lines []string
		for _, l := range strings.Split(string(data), "\n") {
			if l != "" {
				lines = append(lines, l)
			}
		}
		sort.Strings(lines)
		assert.Equal(t, []string{
			"id: foo",
			"name: Content provided by Foo",
			"url: http://foo.fr/catalog.yml",
		}, lines)
	})

	t.Run("reload yields the same remotes", func(t *testing.T) {
		reloaded, err := New(fs, "/cache/remotes")
		require.NoError(t, err)

		remotes, err := reloaded.List()
		require.NoError(t, err)
		assert.Equal(t, []domain.Remote{bar, foo}, remotes)
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := s.Add(domain.Remote{ID: "foo", Name: "Content by Foo", URL: "http://foo.fr/catalog.yml"})
		require.ErrorIs(t, err, domain.ErrDuplicateRemote)
		assert.Contains(t, err.Error(), "foo")
	})

	t.Run("get", func(t *testing.T) {
		r, err := s.Get("bar")
		require.NoError(t, err)
		assert.Equal(t, bar, r)

		_, err = s.Get("baz")
		assert.ErrorIs(t, err, domain.ErrNoSuchRemote)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, s.Remove("foo"))

		remotes, err := s.List()
		require.NoError(t, err)
		assert.Equal(t, []domain.Remote{bar}, remotes)

		err = s.Remove("foo")
		require.ErrorIs(t, err, domain.ErrNoSuchRemote)
		assert.Contains(t, err.Error(), "foo")
	})
}

func TestAddRejectsInvalidRemotes(t *testing.T) {
	s, _ := newStore(t)

	assert.Error(t, s.Add(domain.Remote{ID: "", Name: "x", URL: "http://x"}))
	assert.Error(t, s.Add(domain.Remote{ID: "../evil", Name: "x", URL: "http://x"}))
	assert.Error(t, s.Add(domain.Remote{ID: "foo", URL: "http://x"}))
}

func TestRemoveAndGetRejectInvalidIDs(t *testing.T) {
	s, fs := newStore(t)
	outside := "/cache/evil.yml"
	require.NoError(t, afero.WriteFile(fs, outside, []byte("name: Evil\nurl: http://x\n"), 0644))

	for _, id := range []string{"", "../evil", `..\evil`, ".."} {
		assert.Error(t, s.Remove(id), id)
		_, err := s.Get(id)
		assert.Error(t, err, id)
	}

	exists, err := afero.Exists(fs, outside)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestListIgnoresForeignFiles(t *testing.T) {
	s, fs := newStore(t)
	require.NoError(t, afero.WriteFile(fs, filepath.Join("/cache/remotes", "README"), []byte("hello"), 0644))
	require.NoError(t, fs.MkdirAll("/cache/remotes/nested.yml", 0755))

	remotes, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, remotes)
}

func TestNewOS(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "remotes")
	s, err := NewOS(dir)
	require.NoError(t, err)

	require.NoError(t, s.Add(domain.Remote{ID: "foo", Name: "Foo", URL: "file:///srv/catalog.yml"}))
	remotes, err := s.List()
	require.NoError(t, err)
	require.Len(t, remotes, 1)
	assert.Equal(t, "file:///srv/catalog.yml", remotes[0].URL)
}
