package pkgtype

import "github.com/teamcutter/cubepkg/internal/domain"

// Base carries what every package variant shares. It has no Install or
// Remove, so it cannot be used as a domain.Package on its own.
type Base struct {
	id   string
	meta domain.Metadata
}

func NewBase(id string, meta domain.Metadata) Base {
	return Base{id: id, meta: meta}
}

func (b Base) ID() string {
	return b.id
}

func (b Base) Metadata() domain.Metadata {
	return b.meta
}

func (b Base) Version() string {
	return b.meta.EffectiveVersion()
}
