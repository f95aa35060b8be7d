package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/photohub/photohub-saas/platform/go/persistence"
)

// Repository defines the persistence operations required by the photographers service.
// Photographer rows are the tenants themselves, so no tenant scope is applied here;
// callers are expected to be privileged or acting on their own id.
type Repository interface {
	Create(ctx context.Context, params persistence.CreatePhotographerParams) (persistence.Photographer, error)
	List(ctx context.Context, params persistence.ListPhotographersParams) (persistence.ListPhotographersResult, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.Photographer, error)
	Update(ctx context.Context, id uuid.UUID, params persistence.UpdatePhotographerParams) (persistence.Photographer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	store *persistence.PhotographerStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.PhotographerStore) Repository {
	if store == nil {
		panic("photographer store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, params persistence.CreatePhotographerParams) (persistence.Photographer, error) {
	return r.store.CreatePhotographer(ctx, params)
}

func (r *postgresRepository) List(ctx context.Context, params persistence.ListPhotographersParams) (persistence.ListPhotographersResult, error) {
	return r.store.ListPhotographers(ctx, params)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Photographer, error) {
	return r.store.GetPhotographer(ctx, id)
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdatePhotographerParams) (persistence.Photographer, error) {
	return r.store.UpdatePhotographer(ctx, id, params)
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.DeletePhotographer(ctx, id)
}
