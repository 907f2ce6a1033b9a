// Package cache is the in-process read-through cache for public tenant lookups.
package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"tenant-booking-api/internal/model"
)

type TenantLoader interface {
	GetTenant(ctx context.Context, slug string) (*model.Tenant, error)
}

// Tenants caches tenants by slug. Lookup errors, including not found, are
// never cached so a freshly provisioned tenant is visible immediately.
type Tenants struct {
	c      *ristretto.Cache[string, model.Tenant]
	loader TenantLoader
	ttl    time.Duration
}

// NewTenants holds up to maxItems tenants for ttl each.
func NewTenants(loader TenantLoader, maxItems int64, ttl time.Duration) (*Tenants, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, model.Tenant]{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Tenants{c: c, loader: loader, ttl: ttl}, nil
}

func (t *Tenants) GetTenant(ctx context.Context, slug string) (*model.Tenant, error) {
	if v, ok := t.c.Get(slug); ok {
		return &v, nil
	}
	tenant, err := t.loader.GetTenant(ctx, slug)
	if err != nil {
		return nil, err
	}
	t.c.SetWithTTL(slug, *tenant, 1, t.ttl)
	return tenant, nil
}

// Invalidate drops slug so the next lookup reloads it.
func (t *Tenants) Invalidate(slug string) {
	t.c.Del(slug)
}

// Wait blocks until pending writes are visible.
func (t *Tenants) Wait() {
	t.c.Wait()
}

func (t *Tenants) Close() {
	t.c.Close()
}
