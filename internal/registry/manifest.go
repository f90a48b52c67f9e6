// Package registry downloads and reads the package manifests published by
// remotes.
package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"

	"github.com/teamcutter/cubepkg/internal/domain"
)

// Manifest is the document a remote publishes: every package it offers,
// keyed by id, under "all".
type Manifest struct {
	All map[string]domain.Metadata `yaml:"all"`
}

type Source struct {
	fetcher domain.Fetcher
	dir     string
	log     zerolog.Logger
}

func New(fetcher domain.Fetcher, dir string, log zerolog.Logger) *Source {
	return &Source{
		fetcher: fetcher,
		dir:     dir,
		log:     log,
	}
}

func (s *Source) Path(remoteID string) string {
	return filepath.Join(s.dir, remoteID+".yml")
}

// Fetch downloads the manifest of remote and returns its packages. A
// manifest is always fetched whole: a leftover copy from a previous update
// is discarded rather than resumed.
func (s *Source) Fetch(ctx context.Context, remote domain.Remote) (map[string]domain.Metadata, error) {
	path := s.Path(remote.ID)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	s.log.Debug().Str("remote", remote.ID).Str("url", remote.URL).Msg("fetching manifest")

	result := s.fetcher.Fetch(ctx, domain.FetchRequest{URL: remote.URL, Dest: path})
	if result.Error != nil {
		return nil, fmt.Errorf("fetching manifest of %s: %w", remote.ID, result.Error)
	}

	pkgs, err := Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest of %s: %w", remote.ID, err)
	}

	s.log.Debug().Str("remote", remote.ID).Int("packages", len(pkgs)).Msg("manifest loaded")
	return pkgs, nil
}

func Read(path string) (map[string]domain.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.All == nil {
		return nil, fmt.Errorf("%s: no \"all\" section", filepath.Base(path))
	}
	return m.All, nil
}
