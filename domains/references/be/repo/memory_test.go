package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/photohub/photohub-saas/platform/go/persistence"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

func TestMemoryRepositoryCategoryLifecycle(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	owner := tenant.WithScope(context.Background(), tenant.For(uuid.New()))
	other := tenant.WithScope(context.Background(), tenant.For(uuid.New()))

	light, err := repo.CreateCategory(owner, persistence.ReferenceCategoryFields{Name: "Light"})
	require.NoError(t, err)
	foreign, err := repo.CreateCategory(other, persistence.ReferenceCategoryFields{Name: "Poses"})
	require.NoError(t, err)

	_, err = repo.Create(owner, persistence.ReferenceFields{Title: "Rim", CategoryID: &foreign.ID})
	require.ErrorIs(t, err, persistence.ErrInvalidCategoryRef)

	ref, err := repo.Create(owner, persistence.ReferenceFields{Title: "Rim", CategoryID: &light.ID})
	require.NoError(t, err)
	require.Equal(t, "Light", *ref.CategoryName)

	got, err := repo.GetCategory(owner, light.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.ReferenceCount)

	_, err = repo.GetCategory(other, light.ID)
	require.ErrorIs(t, err, persistence.ErrReferenceCategoryNotFound)
	_, err = repo.Get(other, ref.ID)
	require.ErrorIs(t, err, persistence.ErrReferenceNotFound)

	require.NoError(t, repo.DeleteCategory(owner, light.ID))
	ref, err = repo.Get(owner, ref.ID)
	require.NoError(t, err)
	require.Nil(t, ref.CategoryID)
	require.Nil(t, ref.CategoryName)
}

func TestMemoryRepositoryListAndRelated(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	owner := tenant.WithScope(context.Background(), tenant.For(uuid.New()))

	light, err := repo.CreateCategory(owner, persistence.ReferenceCategoryFields{Name: "Light"})
	require.NoError(t, err)

	create := func(title string, category *int64) persistence.ReferenceRecord {
		ref, err := repo.Create(owner, persistence.ReferenceFields{Title: title, CategoryID: category, Description: "mood board"})
		require.NoError(t, err)
		return ref
	}
	target := create("Window light", &light.ID)
	loose := create("Street", nil)
	sibling := create("Softbox", &light.ID)
	newest := create("Beach", nil)

	related, err := repo.Related(owner, target.ID, 4)
	require.NoError(t, err)
	require.Equal(t, []int64{sibling.ID, newest.ID, loose.ID}, ids(related))

	related, err = repo.Related(owner, target.ID, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{sibling.ID}, ids(related))

	all, err := repo.List(owner, persistence.ListReferencesParams{})
	require.NoError(t, err)
	require.Equal(t, []int64{newest.ID, sibling.ID, loose.ID, target.ID}, ids(all.References))

	search := "LIGHT"
	found, err := repo.List(owner, persistence.ListReferencesParams{Search: &search})
	require.NoError(t, err)
	require.Equal(t, []int64{target.ID}, ids(found.References))

	inCategory, err := repo.List(owner, persistence.ListReferencesParams{CategoryID: &light.ID, PageSize: 1, Page: 2})
	require.NoError(t, err)
	require.Equal(t, 2, inCategory.TotalItems)
	require.Equal(t, []int64{target.ID}, ids(inCategory.References))
}

func ids(refs []persistence.ReferenceRecord) []int64 {
	out := make([]int64, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.ID)
	}
	return out
}
