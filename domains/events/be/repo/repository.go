package repo

import (
	"context"
	"errors"

	"github.com/photohub/photohub-saas/platform/go/persistence"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

// ErrScopeMissing is returned when a call reaches the repository without a tenant scope.
var ErrScopeMissing = errors.New("tenant scope missing from context")

// MutateFunc computes the next state of an event from its current, locked state.
type MutateFunc func(current persistence.EventRecord) (persistence.EventFields, error)

// Repository defines the persistence operations required by the events service.
// Every call is bounded by the tenant scope carried in ctx.
type Repository interface {
	Create(ctx context.Context, fields persistence.EventFields) (persistence.EventRecord, error)
	Get(ctx context.Context, id int64) (persistence.EventRecord, error)
	Update(ctx context.Context, id int64, mutate MutateFunc) (persistence.EventRecord, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, params persistence.ListEventsParams) (persistence.ListEventsResult, error)
	Query(ctx context.Context, params persistence.QueryEventsParams) ([]persistence.EventRecord, error)
}

type postgresRepository struct {
	store *persistence.EventStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.EventStore) Repository {
	if store == nil {
		panic("event store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, fields persistence.EventFields) (persistence.EventRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.EventRecord{}, err
	}
	return r.store.CreateEvent(ctx, scope, fields)
}

func (r *postgresRepository) Get(ctx context.Context, id int64) (persistence.EventRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.EventRecord{}, err
	}
	return r.store.GetEvent(ctx, scope, id)
}

func (r *postgresRepository) Update(ctx context.Context, id int64, mutate MutateFunc) (persistence.EventRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.EventRecord{}, err
	}
	return r.store.UpdateEvent(ctx, scope, id, mutate)
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return err
	}
	return r.store.DeleteEvent(ctx, scope, id)
}

func (r *postgresRepository) List(ctx context.Context, params persistence.ListEventsParams) (persistence.ListEventsResult, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ListEventsResult{}, err
	}
	return r.store.ListEvents(ctx, scope, params)
}

func (r *postgresRepository) Query(ctx context.Context, params persistence.QueryEventsParams) ([]persistence.EventRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return nil, err
	}
	return r.store.QueryEvents(ctx, scope, params)
}

func requireTenantScope(ctx context.Context) (tenant.Scope, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok || !scope.Valid() {
		return tenant.Scope{}, ErrScopeMissing
	}
	return scope, nil
}
