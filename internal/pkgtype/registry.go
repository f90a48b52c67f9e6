package pkgtype

import (
	"slices"
	"sync"

	"github.com/teamcutter/cubepkg/internal/domain"
	"github.com/teamcutter/cubepkg/internal/extractor"
)

type Constructor func(id string, meta domain.Metadata) domain.Package

// Registry maps metadata type tags to package constructors.
type Registry struct {
	sync.RWMutex
	ctors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Default returns the registry of the built-in package types, unpacking
// payloads in any of the given archive formats.
func Default(formats []string) *Registry {
	ext := extractor.New(formats)

	r := NewRegistry()
	r.Register(ZippedZim, func(id string, meta domain.Metadata) domain.Package {
		return NewZippedZim(id, meta, ext.ZIP())
	})
	r.Register(TarredZim, func(id string, meta domain.Metadata) domain.Package {
		return NewTarredZim(id, meta, ext.TAR())
	})
	return r
}

func (r *Registry) Register(tag string, ctor Constructor) {
	r.Lock()
	defer r.Unlock()
	r.ctors[tag] = ctor
}

func (r *Registry) New(tag, id string, meta domain.Metadata) (domain.Package, error) {
	r.RLock()
	ctor, ok := r.ctors[tag]
	r.RUnlock()

	if !ok {
		return nil, &domain.InvalidPackageTypeError{Type: tag}
	}
	return ctor(id, meta), nil
}

func (r *Registry) Tags() []string {
	r.RLock()
	defer r.RUnlock()

	tags := make([]string, 0, len(r.ctors))
	for tag := range r.ctors {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}
