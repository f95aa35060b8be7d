package repo

import (
	"context"
	"errors"

	"github.com/photohub/photohub-saas/platform/go/persistence"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

// ErrScopeMissing is returned when a call reaches the repository without a tenant scope.
var ErrScopeMissing = errors.New("tenant scope missing from context")

// MutateFunc computes the next state of a studio from its current, locked state.
type MutateFunc func(current persistence.StudioRecord) (persistence.StudioFields, error)

// Repository defines the persistence operations required by the studios service.
type Repository interface {
	Create(ctx context.Context, fields persistence.StudioFields) (persistence.StudioRecord, error)
	Get(ctx context.Context, id int64) (persistence.StudioRecord, error)
	List(ctx context.Context, params persistence.ListStudiosParams) (persistence.ListStudiosResult, error)
	Update(ctx context.Context, id int64, mutate MutateFunc) (persistence.StudioRecord, error)
	Delete(ctx context.Context, id int64) error

	ListImages(ctx context.Context, studioID int64) ([]persistence.StudioImageRecord, error)
	AddImage(ctx context.Context, studioID int64, params persistence.AddStudioImageParams) (persistence.StudioImageRecord, error)
	DeleteImage(ctx context.Context, studioID, imageID int64) error
	SetMainImage(ctx context.Context, studioID, imageID int64) error
}

type postgresRepository struct {
	store *persistence.StudioStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.StudioStore) Repository {
	if store == nil {
		panic("studio store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, fields persistence.StudioFields) (persistence.StudioRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.StudioRecord{}, err
	}
	return r.store.CreateStudio(ctx, scope, fields)
}

func (r *postgresRepository) Get(ctx context.Context, id int64) (persistence.StudioRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.StudioRecord{}, err
	}
	return r.store.GetStudio(ctx, scope, id)
}

func (r *postgresRepository) List(ctx context.Context, params persistence.ListStudiosParams) (persistence.ListStudiosResult, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ListStudiosResult{}, err
	}
	return r.store.ListStudios(ctx, scope, params)
}

func (r *postgresRepository) Update(ctx context.Context, id int64, mutate MutateFunc) (persistence.StudioRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.StudioRecord{}, err
	}
	return r.store.UpdateStudio(ctx, scope, id, mutate)
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return err
	}
	return r.store.DeleteStudio(ctx, scope, id)
}

func (r *postgresRepository) ListImages(ctx context.Context, studioID int64) ([]persistence.StudioImageRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return nil, err
	}
	return r.store.ListImages(ctx, scope, studioID)
}

func (r *postgresRepository) AddImage(ctx context.Context, studioID int64, params persistence.AddStudioImageParams) (persistence.StudioImageRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.StudioImageRecord{}, err
	}
	return r.store.AddImage(ctx, scope, studioID, params)
}

func (r *postgresRepository) DeleteImage(ctx context.Context, studioID, imageID int64) error {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return err
	}
	return r.store.DeleteImage(ctx, scope, studioID, imageID)
}

func (r *postgresRepository) SetMainImage(ctx context.Context, studioID, imageID int64) error {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return err
	}
	return r.store.SetMainImage(ctx, scope, studioID, imageID)
}

func requireTenantScope(ctx context.Context) (tenant.Scope, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok || !scope.Valid() {
		return tenant.Scope{}, ErrScopeMissing
	}
	return scope, nil
}
