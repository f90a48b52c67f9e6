package resolver

import (
	"github.com/teamcutter/cubepkg/internal/domain"
)

const (
	SectionAvailable = "available"
	SectionInstalled = "installed"
)

// PackageFactory builds the package variant selected by a type tag.
type PackageFactory interface {
	New(tag, id string, meta domain.Metadata) (domain.Package, error)
}

type Resolver struct {
	types PackageFactory
}

type ResolvedPackage struct {
	Package domain.Package
	Handler string
}

func New(types PackageFactory) *Resolver {
	return &Resolver{
		types: types,
	}
}

// Available resolves id against the packages the remotes offer.
func (r *Resolver) Available(state *domain.CatalogState, id string) (*ResolvedPackage, error) {
	return r.resolve(state.Available, SectionAvailable, id)
}

// Installed resolves id against the packages recorded as installed.
func (r *Resolver) Installed(state *domain.CatalogState, id string) (*ResolvedPackage, error) {
	return r.resolve(state.Installed, SectionInstalled, id)
}

func (r *Resolver) resolve(section map[string]domain.Metadata, name, id string) (*ResolvedPackage, error) {
	meta, ok := section[id]
	if !ok {
		return nil, &domain.NoSuchPackageError{ID: id, Section: name}
	}

	if err := meta.Validate(id); err != nil {
		return nil, err
	}

	pkg, err := r.types.New(meta.Type, id, meta)
	if err != nil {
		return nil, err
	}

	return &ResolvedPackage{
		Package: pkg,
		Handler: meta.Handler,
	}, nil
}
