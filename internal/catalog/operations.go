package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/teamcutter/cubepkg/internal/domain"
)

// UpgradeReport lists what an upgrade batch did, by package id.
type UpgradeReport struct {
	Upgraded []string
	UpToDate []string
}

// batch collects the handlers touched by one operation so that each of them
// commits exactly once, in the order they were first used.
type batch struct {
	handlers map[string]domain.Handler
	order    []domain.Handler
}

func newBatch() *batch {
	return &batch{handlers: make(map[string]domain.Handler)}
}

func (c *Catalog) handlerFor(b *batch, tag string) (domain.Handler, error) {
	if h, ok := b.handlers[tag]; ok {
		return h, nil
	}

	h, err := c.handlers.New(tag)
	if err != nil {
		return nil, err
	}
	b.handlers[tag] = h
	b.order = append(b.order, h)
	return h, nil
}

// finish commits every handler with pending changes and persists the state
// reached so far, even when the batch stopped early on opErr.
func (c *Catalog) finish(ctx context.Context, b *batch, next *domain.CatalogState, opErr error) error {
	errs := []error{opErr}

	changed := false
	for _, h := range b.order {
		if len(h.Pending()) == 0 {
			continue
		}
		changed = true
		if err := h.Commit(ctx); err != nil {
			errs = append(errs, fmt.Errorf("committing %s: %w", h.Tag(), err))
		}
	}

	if changed {
		if err := c.commitState(next); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// InstallPackages installs each id from the available packages. Reinstalling
// an installed package reuses its cached payload.
func (c *Catalog) InstallPackages(ctx context.Context, ids []string) error {
	b := newBatch()
	next := c.snapshot()

	for _, id := range uniq(ids) {
		if err := c.install(ctx, b, next, id); err != nil {
			return c.finish(ctx, b, next, err)
		}
	}

	return c.finish(ctx, b, next, nil)
}

func (c *Catalog) install(ctx context.Context, b *batch, next *domain.CatalogState, id string) error {
	resolved, err := c.resolver.Available(next, id)
	if err != nil {
		return err
	}

	h, err := c.handlerFor(b, resolved.Handler)
	if err != nil {
		return err
	}

	payload, err := c.fetchPackage(ctx, resolved.Package)
	if err != nil {
		return err
	}

	if err := h.Install(resolved.Package, payload); err != nil {
		return err
	}

	next.Installed[id] = resolved.Package.Metadata()
	c.log.Info().Str("package", id).Str("version", resolved.Package.Version()).Msg("installed")
	return nil
}

// UpgradePackages replaces each installed id whose available version
// differs. Ids already at the available version only produce a notice.
func (c *Catalog) UpgradePackages(ctx context.Context, ids []string) (UpgradeReport, error) {
	var report UpgradeReport
	b := newBatch()
	next := c.snapshot()

	for _, id := range uniq(ids) {
		upgraded, err := c.upgrade(ctx, b, next, id)
		if err != nil {
			return report, c.finish(ctx, b, next, err)
		}

		if upgraded {
			report.Upgraded = append(report.Upgraded, id)
		} else {
			report.UpToDate = append(report.UpToDate, id)
		}
	}

	return report, c.finish(ctx, b, next, nil)
}

func (c *Catalog) upgrade(ctx context.Context, b *batch, next *domain.CatalogState, id string) (bool, error) {
	old, err := c.resolver.Installed(next, id)
	if err != nil {
		return false, err
	}

	fresh, err := c.resolver.Available(next, id)
	if err != nil {
		return false, err
	}

	if old.Package.Version() == fresh.Package.Version() {
		fmt.Fprintf(c.notices, "%s has no update available\n", id)
		return false, nil
	}

	oldHandler, err := c.handlerFor(b, old.Handler)
	if err != nil {
		return false, err
	}
	newHandler, err := c.handlerFor(b, fresh.Handler)
	if err != nil {
		return false, err
	}

	// Download first so a failed fetch leaves the old version in place.
	payload, err := c.fetchPackage(ctx, fresh.Package)
	if err != nil {
		return false, err
	}

	if err := oldHandler.Remove(old.Package); err != nil {
		return false, err
	}
	delete(next.Installed, id)

	if err := newHandler.Install(fresh.Package, payload); err != nil {
		return false, err
	}
	next.Installed[id] = fresh.Package.Metadata()

	if err := c.cache.Remove(id, old.Package.Version()); err != nil {
		c.log.Warn().Err(err).Str("package", id).Msg("could not drop previous payload")
	}

	c.log.Info().
		Str("package", id).
		Str("from", old.Package.Version()).
		Str("to", fresh.Package.Version()).
		Msg("upgraded")
	return true, nil
}

// RemovePackages uninstalls each id. Cached payloads are kept.
func (c *Catalog) RemovePackages(ctx context.Context, ids []string) error {
	b := newBatch()
	next := c.snapshot()

	for _, id := range uniq(ids) {
		if err := c.remove(b, next, id); err != nil {
			return c.finish(ctx, b, next, err)
		}
	}

	return c.finish(ctx, b, next, nil)
}

func (c *Catalog) remove(b *batch, next *domain.CatalogState, id string) error {
	resolved, err := c.resolver.Installed(next, id)
	if err != nil {
		return err
	}

	h, err := c.handlerFor(b, resolved.Handler)
	if err != nil {
		return err
	}

	if err := h.Remove(resolved.Package); err != nil {
		return err
	}

	delete(next.Installed, id)
	c.log.Info().Str("package", id).Msg("removed")
	return nil
}

// fetchPackage returns the path of a verified payload for pkg, downloading
// it unless the cache already holds a copy matching the published checksum.
func (c *Catalog) fetchPackage(ctx context.Context, pkg domain.Package) (string, error) {
	meta := pkg.Metadata()
	id, version := pkg.ID(), pkg.Version()
	path, err := c.cache.Path(id, version)
	if err != nil {
		return "", err
	}

	if c.cache.Verify(id, version, meta.SHA256Sum) {
		c.log.Debug().Str("package", id).Str("path", path).Msg("using cached payload")
		return path, nil
	}
	if c.cache.Has(id, version) {
		c.log.Debug().Str("package", id).Str("path", path).Msg("resuming partial payload")
	}

	if meta.URL == "" {
		return "", &domain.InvalidPackageMetadataError{ID: id, Key: "url"}
	}

	req := domain.FetchRequest{
		URL:    meta.URL,
		Dest:   path,
		SHA256: meta.SHA256Sum,
	}
	if meta.Size != "" {
		if size, err := humanize.ParseBytes(meta.Size); err == nil {
			req.Estimate = int64(size)
		}
	}

	for attempt := 0; attempt <= c.retries; attempt++ {
		result := c.fetcher.Fetch(ctx, req)
		if result.Error == nil {
			return path, nil
		}

		err = result.Error
		if !errors.Is(err, domain.ErrChecksumMismatch) {
			break
		}

		c.log.Warn().Err(err).Str("package", id).Int("attempt", attempt+1).Msg("discarding corrupt payload")
		if rmErr := c.cache.Remove(id, version); rmErr != nil {
			return "", rmErr
		}
	}

	return "", fmt.Errorf("downloading %s: %w", id, err)
}
