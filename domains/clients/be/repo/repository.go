package repo

import (
	"context"
	"errors"

	"github.com/photohub/photohub-saas/platform/go/persistence"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

// ErrScopeMissing is returned when a call reaches the repository without a tenant scope.
var ErrScopeMissing = errors.New("tenant scope missing from context")

// MutateFunc computes the next state of a client from its current, locked state.
type MutateFunc func(current persistence.ClientRecord) (persistence.ClientFields, error)

// Repository defines the persistence operations required by the clients service.
type Repository interface {
	Create(ctx context.Context, fields persistence.ClientFields) (persistence.ClientRecord, error)
	Get(ctx context.Context, id int64) (persistence.ClientRecord, error)
	List(ctx context.Context, params persistence.ListClientsParams) (persistence.ListClientsResult, error)
	Update(ctx context.Context, id int64, mutate MutateFunc) (persistence.ClientRecord, error)
	Delete(ctx context.Context, id int64) error
}

type postgresRepository struct {
	store *persistence.ClientStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.ClientStore) Repository {
	if store == nil {
		panic("client store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, fields persistence.ClientFields) (persistence.ClientRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ClientRecord{}, err
	}
	return r.store.CreateClient(ctx, scope, fields)
}

func (r *postgresRepository) Get(ctx context.Context, id int64) (persistence.ClientRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ClientRecord{}, err
	}
	return r.store.GetClient(ctx, scope, id)
}

func (r *postgresRepository) List(ctx context.Context, params persistence.ListClientsParams) (persistence.ListClientsResult, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ListClientsResult{}, err
	}
	return r.store.ListClients(ctx, scope, params)
}

func (r *postgresRepository) Update(ctx context.Context, id int64, mutate MutateFunc) (persistence.ClientRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ClientRecord{}, err
	}
	return r.store.UpdateClient(ctx, scope, id, mutate)
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return err
	}
	return r.store.DeleteClient(ctx, scope, id)
}

func requireTenantScope(ctx context.Context) (tenant.Scope, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok || !scope.Valid() {
		return tenant.Scope{}, ErrScopeMissing
	}
	return scope, nil
}
