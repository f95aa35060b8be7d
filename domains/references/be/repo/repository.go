package repo

import (
	"context"
	"errors"

	"github.com/photohub/photohub-saas/platform/go/persistence"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

// ErrScopeMissing is returned when a call reaches the repository without a tenant scope.
var ErrScopeMissing = errors.New("tenant scope missing from context")

// MutateFunc computes the next state of a reference from its current, locked state.
type MutateFunc func(current persistence.ReferenceRecord) (persistence.ReferenceFields, error)

// CategoryMutateFunc computes the next state of a reference category.
type CategoryMutateFunc func(current persistence.ReferenceCategoryRecord) (persistence.ReferenceCategoryFields, error)

// Repository defines the persistence operations required by the references service.
type Repository interface {
	CreateCategory(ctx context.Context, fields persistence.ReferenceCategoryFields) (persistence.ReferenceCategoryRecord, error)
	ListCategories(ctx context.Context) ([]persistence.ReferenceCategoryRecord, error)
	GetCategory(ctx context.Context, id int64) (persistence.ReferenceCategoryRecord, error)
	UpdateCategory(ctx context.Context, id int64, mutate CategoryMutateFunc) (persistence.ReferenceCategoryRecord, error)
	DeleteCategory(ctx context.Context, id int64) error

	Create(ctx context.Context, fields persistence.ReferenceFields) (persistence.ReferenceRecord, error)
	Get(ctx context.Context, id int64) (persistence.ReferenceRecord, error)
	List(ctx context.Context, params persistence.ListReferencesParams) (persistence.ListReferencesResult, error)
	Related(ctx context.Context, id int64, limit int) ([]persistence.ReferenceRecord, error)
	Update(ctx context.Context, id int64, mutate MutateFunc) (persistence.ReferenceRecord, error)
	Delete(ctx context.Context, id int64) (persistence.ReferenceRecord, error)
}

type postgresRepository struct {
	store *persistence.ReferenceStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.ReferenceStore) Repository {
	if store == nil {
		panic("reference store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) CreateCategory(ctx context.Context, fields persistence.ReferenceCategoryFields) (persistence.ReferenceCategoryRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ReferenceCategoryRecord{}, err
	}
	return r.store.CreateCategory(ctx, scope, fields)
}

func (r *postgresRepository) ListCategories(ctx context.Context) ([]persistence.ReferenceCategoryRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return nil, err
	}
	return r.store.ListCategories(ctx, scope)
}

func (r *postgresRepository) GetCategory(ctx context.Context, id int64) (persistence.ReferenceCategoryRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ReferenceCategoryRecord{}, err
	}
	return r.store.GetCategory(ctx, scope, id)
}

func (r *postgresRepository) UpdateCategory(ctx context.Context, id int64, mutate CategoryMutateFunc) (persistence.ReferenceCategoryRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ReferenceCategoryRecord{}, err
	}
	return r.store.UpdateCategory(ctx, scope, id, mutate)
}

func (r *postgresRepository) DeleteCategory(ctx context.Context, id int64) error {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return err
	}
	return r.store.DeleteCategory(ctx, scope, id)
}

func (r *postgresRepository) Create(ctx context.Context, fields persistence.ReferenceFields) (persistence.ReferenceRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ReferenceRecord{}, err
	}
	return r.store.CreateReference(ctx, scope, fields)
}

func (r *postgresRepository) Get(ctx context.Context, id int64) (persistence.ReferenceRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ReferenceRecord{}, err
	}
	return r.store.GetReference(ctx, scope, id)
}

func (r *postgresRepository) List(ctx context.Context, params persistence.ListReferencesParams) (persistence.ListReferencesResult, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ListReferencesResult{}, err
	}
	return r.store.ListReferences(ctx, scope, params)
}

func (r *postgresRepository) Related(ctx context.Context, id int64, limit int) ([]persistence.ReferenceRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return nil, err
	}
	return r.store.RelatedReferences(ctx, scope, id, limit)
}

func (r *postgresRepository) Update(ctx context.Context, id int64, mutate MutateFunc) (persistence.ReferenceRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ReferenceRecord{}, err
	}
	return r.store.UpdateReference(ctx, scope, id, mutate)
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) (persistence.ReferenceRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ReferenceRecord{}, err
	}
	return r.store.DeleteReference(ctx, scope, id)
}

func requireTenantScope(ctx context.Context) (tenant.Scope, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok || !scope.Valid() {
		return tenant.Scope{}, ErrScopeMissing
	}
	return scope, nil
}
