package domain

import "sort"

// DefaultVersion is the version of a package whose metadata does not carry one.
const DefaultVersion = "0"

type Remote struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Metadata describes one package as published in a remote manifest.
type Metadata struct {
	Name      string `yaml:"name,omitempty" json:"name,omitempty"`
	Version   string `yaml:"version,omitempty" json:"version,omitempty"`
	Type      string `yaml:"type,omitempty" json:"type,omitempty"`
	Handler   string `yaml:"handler,omitempty" json:"handler,omitempty"`
	Size      string `yaml:"size,omitempty" json:"size,omitempty"`
	URL       string `yaml:"url,omitempty" json:"url,omitempty"`
	SHA256Sum string `yaml:"sha256sum,omitempty" json:"sha256sum,omitempty"`
}

// EffectiveVersion returns the version, defaulting to DefaultVersion.
func (m Metadata) EffectiveVersion() string {
	if m.Version == "" {
		return DefaultVersion
	}
	return m.Version
}

// Equal compares two metadata records with their versions normalized.
func (m Metadata) Equal(other Metadata) bool {
	a, b := m, other
	a.Version = a.EffectiveVersion()
	b.Version = b.EffectiveVersion()
	return a == b
}

// Validate reports the first required key missing for installation. The id
// and version name cached payloads, so they must be plain file name parts.
func (m Metadata) Validate(id string) error {
	if !IsPathComponent(id) {
		return &InvalidPackageMetadataError{ID: id, Key: "id", Reason: "is not a valid file name"}
	}
	if m.Type == "" {
		return &InvalidPackageMetadataError{ID: id, Key: "type"}
	}
	if m.Handler == "" {
		return &InvalidPackageMetadataError{ID: id, Key: "handler"}
	}
	if !IsPathComponent(m.EffectiveVersion()) {
		return &InvalidPackageMetadataError{ID: id, Key: "version", Reason: "is not a valid file name"}
	}
	return nil
}

// Entry is a package id paired with its metadata.
type Entry struct {
	ID       string
	Metadata Metadata
}

func (e Entry) Equal(other Entry) bool {
	return e.ID == other.ID && e.Metadata.Equal(other.Metadata)
}

type CatalogState struct {
	Installed map[string]Metadata `yaml:"installed" json:"installed"`
	Available map[string]Metadata `yaml:"available" json:"available"`
}

func NewCatalogState() *CatalogState {
	return &CatalogState{
		Installed: make(map[string]Metadata),
		Available: make(map[string]Metadata),
	}
}

// Normalize replaces nil maps so that decoded states are always writable.
func (s *CatalogState) Normalize() {
	if s.Installed == nil {
		s.Installed = make(map[string]Metadata)
	}
	if s.Available == nil {
		s.Available = make(map[string]Metadata)
	}
}

// Entries returns the packages of a section sorted by id.
func Entries(section map[string]Metadata) []Entry {
	entries := make([]Entry, 0, len(section))
	for id, meta := range section {
		entries = append(entries, Entry{ID: id, Metadata: meta})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})
	return entries
}

type FetchRequest struct {
	URL    string
	Dest   string
	SHA256 string
	// Size is the exact payload size in bytes, 0 when unknown.
	Size int64
	// Estimate sizes the progress bar when the source does not report a
	// length. Manifests publish rounded sizes, so it never drives resume.
	Estimate int64
}

type FetchResult struct {
	URL     string
	Path    string
	Resumed bool
	Skipped bool
	Written int64
	Error   error
}
