package pkgtype

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teamcutter/cubepkg/internal/domain"
	"github.com/teamcutter/cubepkg/internal/kiwix"
)

const (
	ZippedZim = "zipped-zim"
	TarredZim = "tarred-zim"
)

const (
	contentDir = "data/content"
	libraryDir = "data/library"
	indexDir   = "data/index"
)

// ContentPath, LibraryPath and IndexPath are the install-root relative
// locations of a zim package's three entries.
func ContentPath(id string) string { return contentDir + "/" + id + ".zim" }
func LibraryPath(id string) string { return libraryDir + "/" + id + ".zim.xml" }
func IndexPath(id string) string   { return indexDir + "/" + id + ".zim.idx" }

// zim installs an archive laid out as data/content/<name>.zim,
// data/library/<name>.zim.xml and data/index/<name>.zim.idx under the
// package id instead of <name>. The archive flavour is up to the extractor.
type zim struct {
	Base
	extractor domain.Extractor
}

type zippedZim struct{ zim }

type tarredZim struct{ zim }

func NewZippedZim(id string, meta domain.Metadata, ext domain.Extractor) domain.Package {
	return &zippedZim{zim{Base: NewBase(id, meta), extractor: ext}}
}

func NewTarredZim(id string, meta domain.Metadata, ext domain.Extractor) domain.Package {
	return &tarredZim{zim{Base: NewBase(id, meta), extractor: ext}}
}

func (z *zim) Install(payload, root string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}

	staging, err := os.MkdirTemp(root, ".staging-"+z.ID()+"-")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := z.extractor.Extract(payload, staging); err != nil {
		return err
	}

	name, err := findZim(filepath.Join(staging, filepath.FromSlash(contentDir)), payload)
	if err != nil {
		return err
	}

	moves := []struct {
		from, to string
		required bool
	}{
		{ContentPath(name), ContentPath(z.ID()), true},
		{LibraryPath(name), LibraryPath(z.ID()), false},
		{IndexPath(name), IndexPath(z.ID()), false},
	}

	for _, m := range moves {
		src := filepath.Join(staging, filepath.FromSlash(m.from))
		if _, err := os.Stat(src); os.IsNotExist(err) && !m.required {
			continue
		}

		dst := filepath.Join(root, filepath.FromSlash(m.to))
		if err := replace(src, dst); err != nil {
			return fmt.Errorf("installing %s: %w", m.to, err)
		}
	}

	library := filepath.Join(root, filepath.FromSlash(LibraryPath(z.ID())))
	if _, err := os.Stat(library); err == nil {
		if err := kiwix.StampDate(library, domain.DateFromVersion(z.Version())); err != nil {
			return fmt.Errorf("stamping %s: %w", LibraryPath(z.ID()), err)
		}
	}

	return nil
}

func (z *zim) Remove(root string) error {
	for _, rel := range []string{ContentPath(z.ID()), LibraryPath(z.ID()), IndexPath(z.ID())} {
		if err := os.RemoveAll(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			return err
		}
	}
	return nil
}

func findZim(dir, payload string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.zim"))
	if err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", &domain.InvalidFileError{Path: payload, Reason: "no zim file in " + contentDir}
	case 1:
		return strings.TrimSuffix(filepath.Base(matches[0]), ".zim"), nil
	default:
		return "", &domain.InvalidFileError{Path: payload, Reason: "several zim files in " + contentDir}
	}
}

func replace(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return os.Rename(src, dst)
}
