package handler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/teamcutter/cubepkg/internal/config"
	"github.com/teamcutter/cubepkg/internal/domain"
	"github.com/teamcutter/cubepkg/internal/kiwix"
	"github.com/teamcutter/cubepkg/internal/pkgtype"
)

const (
	KiwixTag     = "kiwix"
	KiwixService = "kiwix-server"
	LibraryFile  = "library.xml"
)

// Kiwix installs zim packages under one root and serves them through a
// single library.xml read by the kiwix-serve service.
type Kiwix struct {
	root     string
	service  string
	services domain.ServiceManager
	log      zerolog.Logger
	pending  []domain.PendingChange
}

func NewKiwix(cfg config.HandlerConfig, services domain.ServiceManager, log zerolog.Logger) domain.Handler {
	name := cfg.Service
	if name == "" {
		name = KiwixService
	}

	return &Kiwix{
		root:     cfg.InstallDir,
		service:  name,
		services: services,
		log:      log,
	}
}

func (k *Kiwix) Tag() string {
	return KiwixTag
}

func (k *Kiwix) InstallDir() string {
	return k.root
}

func (k *Kiwix) Install(pkg domain.Package, payload string) error {
	if err := pkg.Install(payload, k.root); err != nil {
		return fmt.Errorf("installing %s: %w", pkg.ID(), err)
	}
	k.record(pkg.ID(), false)
	k.log.Debug().Str("package", pkg.ID()).Str("root", k.root).Msg("installed")
	return nil
}

func (k *Kiwix) Remove(pkg domain.Package) error {
	if err := pkg.Remove(k.root); err != nil {
		return fmt.Errorf("removing %s: %w", pkg.ID(), err)
	}
	k.record(pkg.ID(), true)
	k.log.Debug().Str("package", pkg.ID()).Str("root", k.root).Msg("removed")
	return nil
}

func (k *Kiwix) record(id string, removed bool) {
	for i, p := range k.pending {
		if p.ID == id {
			k.pending[i].Removed = removed
			return
		}
	}
	k.pending = append(k.pending, domain.PendingChange{ID: id, Removed: removed})
}

func (k *Kiwix) Pending() []domain.PendingChange {
	out := make([]domain.PendingChange, len(k.pending))
	copy(out, k.pending)
	return out
}

// Commit rebuilds library.xml from the installed descriptors and restarts
// the service once.
func (k *Kiwix) Commit(ctx context.Context) error {
	lib, err := k.aggregate()
	if err != nil {
		return err
	}

	if err := kiwix.Write(filepath.Join(k.root, LibraryFile), lib); err != nil {
		return fmt.Errorf("writing %s: %w", LibraryFile, err)
	}
	k.log.Info().Int("books", len(lib.Books)).Int("changes", len(k.pending)).Msg("library rebuilt")

	if err := k.restart(ctx); err != nil {
		return err
	}

	k.pending = nil
	return nil
}

func (k *Kiwix) aggregate() (*kiwix.Library, error) {
	pattern := filepath.Join(k.root, filepath.FromSlash(pkgtype.LibraryPath("*")))
	descriptors, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	lib := &kiwix.Library{}
	for _, path := range descriptors {
		id := strings.TrimSuffix(filepath.Base(path), ".zim.xml")

		desc, err := kiwix.Read(path)
		if err != nil {
			k.log.Warn().Err(err).Str("package", id).Msg("skipping unreadable library descriptor")
			continue
		}

		for _, book := range desc.Books {
			book.Set("path", pkgtype.ContentPath(id))

			index := pkgtype.IndexPath(id)
			if _, err := os.Stat(filepath.Join(k.root, filepath.FromSlash(index))); err == nil {
				book.Set("indexPath", index)
			} else {
				book.Unset("indexPath")
			}

			lib.Books = append(lib.Books, book)
		}
	}

	sort.SliceStable(lib.Books, func(i, j int) bool {
		return lib.Books[i].Get("path") < lib.Books[j].Get("path")
	})

	return lib, nil
}

func (k *Kiwix) restart(ctx context.Context) error {
	svc, err := k.services.GetService(ctx, k.service)
	if errors.Is(err, domain.ErrNoSuchService) {
		k.log.Debug().Str("service", k.service).Msg("service not installed, skipping restart")
		return nil
	}
	if err != nil {
		return err
	}

	return svc.Restart(ctx)
}
