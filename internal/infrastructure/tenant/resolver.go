package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrResolution means a partition handle could not be obtained.
	ErrResolution = errors.New("tenant: partition unavailable")
	// ErrInvalidKey is wrapped into ErrResolution for malformed schema keys.
	ErrInvalidKey = errors.New("tenant: invalid schema key")
	errClosed     = errors.New("tenant: resolver closed")
)

var schemaKeyPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Opener opens a pool bound to one schema.
type Opener func(ctx context.Context, schema string) (*pgxpool.Pool, error)

// Handle is a shared, long-lived pool for one partition.
type Handle struct {
	Key  string
	Pool *pgxpool.Pool

	refs atomic.Int64
}

// Refs is the number of bundles currently holding the handle.
func (h *Handle) Refs() int64 {
	return h.refs.Load()
}

// Bundle is what an entry point receives after authentication: the platform
// handle always, the tenant handle only when a tenant is known.
type Bundle struct {
	Platform *Handle
	Tenant   *Handle
	TenantID *int64

	release sync.Once
}

// Release drops the bundle's references. Pools stay open in the resolver.
func (b *Bundle) Release() {
	if b == nil {
		return
	}
	b.release.Do(func() {
		if b.Platform != nil {
			b.Platform.refs.Add(-1)
		}
		if b.Tenant != nil {
			b.Tenant.refs.Add(-1)
		}
	})
}

// Resolver caches one pool per schema key and opens each at most once, even
// under concurrent first use.
type Resolver struct {
	open         Opener
	platformKey  string
	tenantPrefix string
	log          *zap.Logger
	metrics      *metrics.Metrics

	group   singleflight.Group
	mu      sync.RWMutex
	handles map[string]*Handle
	closed  bool
}

func NewResolver(open Opener, platformSchema string, tenantPrefix string, log *zap.Logger, m *metrics.Metrics) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		open:         open,
		platformKey:  platformSchema,
		tenantPrefix: tenantPrefix,
		log:          log,
		metrics:      m,
		handles:      make(map[string]*Handle),
	}
}

// TenantKey maps a tenant id to its schema key.
func (r *Resolver) TenantKey(tenantID int64) string {
	return r.tenantPrefix + strconv.FormatInt(tenantID, 10)
}

// Resolve returns the live handle for key, opening it on first use.
func (r *Resolver) Resolve(ctx context.Context, key string) (*Handle, error) {
	if !schemaKeyPattern.MatchString(key) {
		return nil, fmt.Errorf("%w: %w %q", ErrResolution, ErrInvalidKey, key)
	}

	if h, err := r.lookup(key); h != nil || err != nil {
		return h, err
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		if h, err := r.lookup(key); h != nil || err != nil {
			return h, err
		}

		pool, err := r.open(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrResolution, key, err)
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			pool.Close()
			return nil, fmt.Errorf("%w: %v", ErrResolution, errClosed)
		}
		h := &Handle{Key: key, Pool: pool}
		r.handles[key] = h
		n := len(r.handles)
		r.mu.Unlock()

		r.metrics.TenantHandles(n)
		r.log.Info("partition handle opened", zap.String("schema", key))
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// Bundle resolves the platform handle and, when tenantID is set, the tenant
// handle. The returned bundle holds a reference on each until Release.
func (r *Resolver) Bundle(ctx context.Context, tenantID *int64) (*Bundle, error) {
	b, err := r.PlatformBundle(ctx)
	if err != nil {
		return nil, err
	}
	if tenantID != nil {
		if err := r.AttachTenant(ctx, b, *tenantID); err != nil {
			b.Release()
			return nil, err
		}
	}
	return b, nil
}

// PlatformBundle returns a bundle holding only the platform handle.
func (r *Resolver) PlatformBundle(ctx context.Context) (*Bundle, error) {
	platform, err := r.Resolve(ctx, r.platformKey)
	if err != nil {
		return nil, err
	}
	platform.refs.Add(1)
	return &Bundle{Platform: platform}, nil
}

// AttachTenant resolves the tenant handle into b. b must not be released yet
// and must not already carry a tenant.
func (r *Resolver) AttachTenant(ctx context.Context, b *Bundle, tenantID int64) error {
	if b.Tenant != nil {
		return fmt.Errorf("%w: bundle already holds %s", ErrResolution, b.Tenant.Key)
	}
	t, err := r.Resolve(ctx, r.TenantKey(tenantID))
	if err != nil {
		return err
	}
	t.refs.Add(1)
	b.Tenant = t
	b.TenantID = &tenantID
	return nil
}

// Len is the number of open handles.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Close closes every pool. Later Resolve calls fail.
func (r *Resolver) Close() {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*Handle)
	r.closed = true
	r.mu.Unlock()

	for key, h := range handles {
		h.Pool.Close()
		r.log.Debug("partition handle closed", zap.String("schema", key))
	}
	r.metrics.TenantHandles(0)
}

func (r *Resolver) lookup(key string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, fmt.Errorf("%w: %v", ErrResolution, errClosed)
	}
	return r.handles[key], nil
}
