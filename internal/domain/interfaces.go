package domain

import (
	"context"
)

type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) FetchResult
}

type Cache interface {
	Path(id, version string) (string, error)
	Has(id, version string) bool
	Verify(id, version, sha256 string) bool
	Remove(id, version string) error
	Size() (int64, error)
	Clear() error
}

type Extractor interface {
	Extract(src, dest string) error
}

type State interface {
	Load() (*CatalogState, error)
	Save(s *CatalogState) error
	Close() error
}

type RemoteStore interface {
	Add(r Remote) error
	Remove(id string) error
	Get(id string) (Remote, error)
	List() ([]Remote, error)
}

// Package is an installable content unit. Variants are selected by the
// metadata "type" tag.
type Package interface {
	ID() string
	Metadata() Metadata
	Version() string
	Install(payload, root string) error
	Remove(root string) error
}

// Handler owns an install root and the service that serves it.
type Handler interface {
	Tag() string
	InstallDir() string
	Install(pkg Package, payload string) error
	Remove(pkg Package) error
	Pending() []PendingChange
	Commit(ctx context.Context) error
}

type PendingChange struct {
	ID      string
	Removed bool
}

type ServiceManager interface {
	GetService(ctx context.Context, name string) (Service, error)
}

type Service interface {
	Name() string
	Restart(ctx context.Context) error
}
