package handler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamcutter/cubepkg/internal/config"
	"github.com/teamcutter/cubepkg/internal/domain"
	"github.com/teamcutter/cubepkg/internal/extractor"
	"github.com/teamcutter/cubepkg/internal/kiwix"
	"github.com/teamcutter/cubepkg/internal/pkgtype"
)

type fakeService struct {
	name     string
	restarts int
}

func (s *fakeService) Name() string                  { return s.name }
func (s *fakeService) Restart(context.Context) error { s.restarts++; return nil }

type fakeServices struct {
	lookups []string
	missing bool
	fail    error
	svc     *fakeService
}

func (f *fakeServices) GetService(_ context.Context, name string) (domain.Service, error) {
	f.lookups = append(f.lookups, name)
	if f.fail != nil {
		return nil, f.fail
	}
	if f.missing {
		return nil, &domain.NoSuchServiceError{Name: name}
	}
	if f.svc == nil {
		f.svc = &fakeService{name: name}
	}
	return f.svc, nil
}

func zimPayload(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	name := "wikipedia_tum_all_nopic_2015-08"
	files := map[string]string{
		pkgtype.ContentPath(name):            "zim",
		pkgtype.LibraryPath(name):            `<library><book id="b1" title="Wikipedia"/></library>`,
		pkgtype.IndexPath(name) + "/iamglass": "idx",
	}
	for rel, content := range files {
		path := filepath.Join(src, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	payload := filepath.Join(t.TempDir(), "wikipedia.tum-2015-08")
	require.NoError(t, extractor.Create(src, payload, extractor.FormatZip))
	return payload
}

func newKiwix(t *testing.T, services domain.ServiceManager) (domain.Handler, string) {
	t.Helper()
	root := t.TempDir()
	cfg := map[string]config.HandlerConfig{KiwixTag: {InstallDir: root}}

	h, err := Default(cfg, services, zerolog.Nop()).New(KiwixTag)
	require.NoError(t, err)
	return h, root
}

func zimPackage(id string) domain.Package {
	meta := domain.Metadata{Version: "2015-08", Type: pkgtype.ZippedZim, Handler: KiwixTag}
	p, _ := pkgtype.Default([]string{extractor.FormatZip}).New(pkgtype.ZippedZim, id, meta)
	return p
}

func TestRegistry(t *testing.T) {
	r := Default(map[string]config.HandlerConfig{}, &fakeServices{}, zerolog.Nop())

	_, err := r.New("unknown")
	assert.ErrorIs(t, err, domain.ErrInvalidHandlerType)
	assert.Contains(t, err.Error(), "unknown handler type")

	_, err = r.New(KiwixTag)
	assert.Error(t, err, "kiwix without install_dir")

	assert.Equal(t, []string{KiwixTag}, r.Tags())
}

func TestKiwixInstallAndCommit(t *testing.T) {
	services := &fakeServices{}
	h, root := newKiwix(t, services)
	assert.Equal(t, root, h.InstallDir())

	p := zimPackage("wikipedia.tum")
	require.NoError(t, h.Install(p, zimPayload(t)))
	assert.Equal(t, []domain.PendingChange{{ID: "wikipedia.tum"}}, h.Pending())

	assert.FileExists(t, filepath.Join(root, "data", "content", "wikipedia.tum.zim"))
	assert.FileExists(t, filepath.Join(root, "data", "library", "wikipedia.tum.zim.xml"))
	assert.DirExists(t, filepath.Join(root, "data", "index", "wikipedia.tum.zim.idx"))

	require.NoError(t, h.Commit(context.Background()))

	data, err := os.ReadFile(filepath.Join(root, LibraryFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `path="data/content/wikipedia.tum.zim"`)
	assert.Contains(t, string(data), `indexPath="data/index/wikipedia.tum.zim.idx"`)
	assert.Contains(t, string(data), `date="2015-08-01"`)

	assert.Equal(t, []string{KiwixService}, services.lookups)
	assert.Equal(t, 1, services.svc.restarts)
	assert.Empty(t, h.Pending())
}

func TestKiwixCommitAfterRemove(t *testing.T) {
	services := &fakeServices{missing: true}
	h, root := newKiwix(t, services)

	p := zimPackage("wikipedia.tum")
	require.NoError(t, h.Install(p, zimPayload(t)))
	require.NoError(t, h.Commit(context.Background()))
	assert.Len(t, services.lookups, 1)

	require.NoError(t, h.Remove(p))
	assert.Equal(t, []domain.PendingChange{{ID: "wikipedia.tum", Removed: true}}, h.Pending())
	require.NoError(t, h.Commit(context.Background()))

	data, err := os.ReadFile(filepath.Join(root, LibraryFile))
	require.NoError(t, err)
	assert.Equal(t, "<?xml version='1.0' encoding='utf-8'?>\n<library/>", string(data))
	assert.Len(t, services.lookups, 2)
	assert.Nil(t, services.svc)
}

func TestKiwixCommitBatch(t *testing.T) {
	services := &fakeServices{}
	h, root := newKiwix(t, services)
	payload := zimPayload(t)

	for _, id := range []string{"wikipedia.tum", "wikipedia.en", "vikidia.fr"} {
		require.NoError(t, h.Install(zimPackage(id), payload))
	}
	require.NoError(t, h.Commit(context.Background()))

	assert.Equal(t, 1, services.svc.restarts)

	lib, err := kiwix.Read(filepath.Join(root, LibraryFile))
	require.NoError(t, err)
	require.Len(t, lib.Books, 3)
	assert.Equal(t, "data/content/vikidia.fr.zim", lib.Books[0].Get("path"))
	assert.Equal(t, "data/content/wikipedia.en.zim", lib.Books[1].Get("path"))
	assert.Equal(t, "data/content/wikipedia.tum.zim", lib.Books[2].Get("path"))

	mixed := func(t *testing.T, services *fakeServices) string {
		h, root := newKiwix(t, services)
		payload := zimPayload(t)

		require.NoError(t, h.Install(zimPackage("wikipedia.en"), payload))
		require.NoError(t, h.Commit(context.Background()))
		services.lookups = nil
		if services.svc != nil {
			services.svc.restarts = 0
		}

		require.NoError(t, h.Install(zimPackage("wikipedia.tum"), payload))
		require.NoError(t, h.Remove(zimPackage("wikipedia.en")))
		assert.Len(t, h.Pending(), 2)
		require.NoError(t, h.Commit(context.Background()))
		assert.Empty(t, h.Pending())
		assert.Len(t, services.lookups, 1)
		return root
	}

	t.Run("install and remove in one commit restart once", func(t *testing.T) {
		services := &fakeServices{}
		root := mixed(t, services)
		assert.Equal(t, 1, services.svc.restarts)

		lib, err := kiwix.Read(filepath.Join(root, LibraryFile))
		require.NoError(t, err)
		require.Len(t, lib.Books, 1)
		assert.Equal(t, "data/content/wikipedia.tum.zim", lib.Books[0].Get("path"))
	})

	t.Run("install and remove in one commit without the service", func(t *testing.T) {
		services := &fakeServices{missing: true}
		mixed(t, services)
		assert.Nil(t, services.svc)
	})
}

func TestKiwixIndexPathOnlyWhenIndexExists(t *testing.T) {
	h, root := newKiwix(t, &fakeServices{})

	require.NoError(t, h.Install(zimPackage("wikipedia.tum"), zimPayload(t)))
	require.NoError(t, os.RemoveAll(filepath.Join(root, "data", "index", "wikipedia.tum.zim.idx")))
	require.NoError(t, h.Commit(context.Background()))

	lib, err := kiwix.Read(filepath.Join(root, LibraryFile))
	require.NoError(t, err)
	require.Len(t, lib.Books, 1)
	assert.Empty(t, lib.Books[0].Get("indexPath"))
}

func TestKiwixServiceFailure(t *testing.T) {
	h, _ := newKiwix(t, &fakeServices{fail: errors.New("dbus down")})

	require.NoError(t, h.Install(zimPackage("wikipedia.tum"), zimPayload(t)))
	assert.Error(t, h.Commit(context.Background()))
	assert.Len(t, h.Pending(), 1, "failed commits keep their pending changes")
}

func TestKiwixConfiguredServiceName(t *testing.T) {
	services := &fakeServices{}
	cfg := config.HandlerConfig{InstallDir: t.TempDir(), Service: "kiwix-serve"}
	h := NewKiwix(cfg, services, zerolog.Nop())

	require.NoError(t, h.Commit(context.Background()))
	assert.Equal(t, []string{"kiwix-serve"}, services.lookups)
}
