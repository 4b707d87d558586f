package tenants

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Provider serves tenant schemas from a copy-on-write cache. Concurrent
// loads for one tenant share a single store read. Invalidation swaps the
// whole map, so readers see either the old or the new snapshot.
type Provider struct {
	store    Store
	baseline *Schema
	logger   *slog.Logger

	cache atomic.Pointer[map[string]*Schema]
	gen   atomic.Uint64
	mu    sync.Mutex
	group singleflight.Group
}

// NewProvider creates a Provider. Tenants without a stored override fall
// back to baseline.
func NewProvider(store Store, baseline *Schema, logger *slog.Logger) *Provider {
	p := &Provider{
		store:    store,
		baseline: baseline,
		logger:   logger.With("system", "tenants"),
	}
	empty := map[string]*Schema{}
	p.cache.Store(&empty)
	return p
}

// Handler returns the HTTP handler for tenant endpoints.
func (p *Provider) Handler() *Handler {
	return NewHandler(p, p.logger)
}

// Schema returns the schema for tenantID, loading and caching it on first use.
func (p *Provider) Schema(ctx context.Context, tenantID string) (*Schema, error) {
	if tenantID == "" {
		tenantID = BaselineTenant
	}

	if s, ok := (*p.cache.Load())[tenantID]; ok {
		return s, nil
	}

	gen := p.gen.Load()
	v, err, _ := p.group.Do(tenantID, func() (any, error) {
		s, err := p.load(context.WithoutCancel(ctx), tenantID)
		if err != nil {
			return nil, err
		}
		p.insert(tenantID, s, gen)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Schema), nil
}

// Invalidate drops the given tenants from the cache, or every tenant when
// none are given. Loads already in flight are not cached.
func (p *Provider) Invalidate(tenantIDs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen.Add(1)

	next := map[string]*Schema{}
	if len(tenantIDs) > 0 {
		for k, v := range *p.cache.Load() {
			next[k] = v
		}
		for _, id := range tenantIDs {
			delete(next, id)
			p.group.Forget(id)
		}
	}
	p.cache.Store(&next)

	p.logger.Info("tenant cache invalidated", "tenants", tenantIDs)
}

// Cached reports whether tenantID currently has a cached schema.
func (p *Provider) Cached(tenantID string) bool {
	_, ok := (*p.cache.Load())[tenantID]
	return ok
}

func (p *Provider) load(ctx context.Context, tenantID string) (*Schema, error) {
	if tenantID == BaselineTenant {
		return p.baseline, nil
	}

	override, err := p.store.Load(ctx, tenantID)
	if errors.Is(err, ErrNotFound) {
		p.logger.Info("no schema override, using baseline", "tenant_id", tenantID)
		return (&Schema{TenantID: tenantID}).Overlay(p.baseline), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load tenant %s: %w", tenantID, err)
	}

	s := override.Overlay(p.baseline)
	s.TenantID = tenantID
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, err)
	}

	p.logger.Info("tenant schema loaded", "tenant_id", tenantID)
	return s, nil
}

func (p *Provider) insert(tenantID string, s *Schema, gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gen.Load() != gen {
		return
	}

	current := *p.cache.Load()
	next := make(map[string]*Schema, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[tenantID] = s
	p.cache.Store(&next)
}
