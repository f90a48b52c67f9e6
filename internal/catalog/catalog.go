// Package catalog tracks the packages offered by remotes and the ones
// installed locally, and drives installs, upgrades and removals through
// the package handlers.
package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/teamcutter/cubepkg/internal/config"
	"github.com/teamcutter/cubepkg/internal/domain"
	"github.com/teamcutter/cubepkg/internal/registry"
	"github.com/teamcutter/cubepkg/internal/resolver"
)

// ManifestSource fetches the package list a remote publishes.
type ManifestSource interface {
	Fetch(ctx context.Context, remote domain.Remote) (map[string]domain.Metadata, error)
}

// HandlerFactory builds a fresh handler for a handler tag.
type HandlerFactory interface {
	New(tag string) (domain.Handler, error)
}

// Catalog is not safe for concurrent use, and two processes must not operate
// on the same cache directory or install root at the same time.
type Catalog struct {
	remotes   domain.RemoteStore
	manifests ManifestSource
	fetcher   domain.Fetcher
	cache     domain.Cache
	state     domain.State
	resolver  *resolver.Resolver
	handlers  HandlerFactory

	mergePolicy string
	maxParallel int
	retries     int
	notices     io.Writer
	log         zerolog.Logger

	current *domain.CatalogState
}

type Option func(*Catalog)

func WithMergePolicy(policy string) Option {
	return func(c *Catalog) { c.mergePolicy = policy }
}

func WithMaxParallel(n int) Option {
	return func(c *Catalog) { c.maxParallel = n }
}

// WithRetries sets how many extra downloads a payload gets after a checksum
// mismatch.
func WithRetries(n int) Option {
	return func(c *Catalog) { c.retries = n }
}

// WithNotices sets where user-facing notices such as "no update available"
// are written. Defaults to stderr.
func WithNotices(w io.Writer) Option {
	return func(c *Catalog) { c.notices = w }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Catalog) { c.log = log }
}

// New loads the persisted state and returns a catalog operating on it.
func New(
	remotes domain.RemoteStore,
	manifests ManifestSource,
	fetcher domain.Fetcher,
	cache domain.Cache,
	state domain.State,
	res *resolver.Resolver,
	handlers HandlerFactory,
	opts ...Option,
) (*Catalog, error) {

	c := &Catalog{
		remotes:     remotes,
		manifests:   manifests,
		fetcher:     fetcher,
		cache:       cache,
		state:       state,
		resolver:    res,
		handlers:    handlers,
		mergePolicy: config.MergeLastWins,
		maxParallel: 4,
		retries:     1,
		notices:     os.Stderr,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	current, err := state.Load()
	if err != nil {
		return nil, fmt.Errorf("loading catalog state: %w", err)
	}
	current.Normalize()
	c.current = current

	return c, nil
}

func (c *Catalog) Close() error {
	return c.state.Close()
}

func (c *Catalog) AddRemote(id, name, url string) error {
	return c.remotes.Add(domain.Remote{ID: id, Name: name, URL: url})
}

func (c *Catalog) RemoveRemote(id string) error {
	return c.remotes.Remove(id)
}

func (c *Catalog) Remote(id string) (domain.Remote, error) {
	return c.remotes.Get(id)
}

func (c *Catalog) ListRemotes() ([]domain.Remote, error) {
	return c.remotes.List()
}

// UpdateCache downloads every remote's manifest and replaces the available
// packages with their union. Remotes are merged in id order.
func (c *Catalog) UpdateCache(ctx context.Context) error {
	remotes, err := c.remotes.List()
	if err != nil {
		return err
	}

	manifests := make([]map[string]domain.Metadata, len(remotes))

	g, gctx := errgroup.WithContext(ctx)
	if c.maxParallel > 0 {
		g.SetLimit(c.maxParallel)
	}
	for i, remote := range remotes {
		i, remote := i, remote
		g.Go(func() error {
			pkgs, err := c.manifests.Fetch(gctx, remote)
			if err != nil {
				return err
			}
			manifests[i] = pkgs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	available, err := c.merge(remotes, manifests)
	if err != nil {
		return err
	}

	next := c.snapshot()
	next.Available = available
	if err := c.commitState(next); err != nil {
		return err
	}

	c.log.Info().Int("remotes", len(remotes)).Int("packages", len(available)).Msg("cache updated")
	return nil
}

func (c *Catalog) merge(remotes []domain.Remote, manifests []map[string]domain.Metadata) (map[string]domain.Metadata, error) {
	available := make(map[string]domain.Metadata)
	owner := make(map[string]string)

	for i, remote := range remotes {
		ids := make([]string, 0, len(manifests[i]))
		for id := range manifests[i] {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			meta := manifests[i][id]

			if prev, ok := owner[id]; ok && !available[id].Equal(meta) {
				if c.mergePolicy == config.MergeReject {
					return nil, &domain.ConflictError{ID: id, Remotes: []string{prev, remote.ID}}
				}
				c.log.Debug().Str("package", id).Str("remote", remote.ID).Str("previous", prev).Msg("package overridden")
			}

			available[id] = meta
			owner[id] = remote.ID
		}
	}

	return available, nil
}

// ClearCache forgets every available and installed package and empties the
// payload cache. Installed files are left in place.
func (c *Catalog) ClearCache() error {
	if err := c.commitState(domain.NewCatalogState()); err != nil {
		return err
	}
	return c.cache.Clear()
}

func (c *Catalog) ListAvailable() []domain.Entry {
	return domain.Entries(c.current.Available)
}

func (c *Catalog) ListInstalled() []domain.Entry {
	return domain.Entries(c.current.Installed)
}

// ListUpgradable returns the installed packages whose available version
// differs, with the available metadata.
func (c *Catalog) ListUpgradable() []domain.Entry {
	var out []domain.Entry
	for _, e := range domain.Entries(c.current.Installed) {
		avail, ok := c.current.Available[e.ID]
		if ok && avail.EffectiveVersion() != e.Metadata.EffectiveVersion() {
			out = append(out, domain.Entry{ID: e.ID, Metadata: avail})
		}
	}
	return out
}

// Search looks query up in the ids and names of the available packages.
func (c *Catalog) Search(query string) []domain.Entry {
	return registry.Search(c.ListAvailable(), query)
}

func (c *Catalog) Installed(id string) (domain.Metadata, bool) {
	m, ok := c.current.Installed[id]
	return m, ok
}

func (c *Catalog) IsInstalled(id string) bool {
	_, ok := c.Installed(id)
	return ok
}

func (c *Catalog) CacheSize() (int64, error) {
	return c.cache.Size()
}

func (c *Catalog) snapshot() *domain.CatalogState {
	next := domain.NewCatalogState()
	for id, m := range c.current.Installed {
		next.Installed[id] = m
	}
	for id, m := range c.current.Available {
		next.Available[id] = m
	}
	return next
}

// commitState persists next and only then makes it current.
func (c *Catalog) commitState(next *domain.CatalogState) error {
	if err := c.state.Save(next); err != nil {
		return fmt.Errorf("saving catalog state: %w", err)
	}
	c.current = next
	return nil
}

func uniq(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
