package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/photohub/photohub-saas/platform/go/tenant"
)

func referenceIDs(refs []ReferenceRecord) []int64 {
	out := make([]int64, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.ID)
	}
	return out
}

func TestReferenceStoreIntegration(t *testing.T) {
	t.Parallel()

	db := newIntegrationDB(t)
	ctx := context.Background()

	photographers, err := NewPhotographerStore(db)
	require.NoError(t, err)
	refs, err := NewReferenceStore(db)
	require.NoError(t, err)

	owner := tenant.For(mustPhotographer(t, photographers, "refs-owner@example.com").ID)
	other := tenant.For(mustPhotographer(t, photographers, "refs-other@example.com").ID)

	light, err := refs.CreateCategory(ctx, owner, ReferenceCategoryFields{Name: "Light"})
	require.NoError(t, err)
	foreign, err := refs.CreateCategory(ctx, other, ReferenceCategoryFields{Name: "Poses"})
	require.NoError(t, err)

	create := func(title string, category *int64) ReferenceRecord {
		t.Helper()
		r, err := refs.CreateReference(ctx, owner, ReferenceFields{Title: title, CategoryID: category, ObjectKey: "references/" + title + ".jpg"})
		require.NoError(t, err)
		return r
	}
	target := create("window", &light.ID)
	loose := create("street", nil)
	sibling := create("softbox", &light.ID)
	require.Equal(t, "Light", *target.CategoryName)

	t.Run("foreign category is rejected", func(t *testing.T) {
		_, err := refs.CreateReference(ctx, owner, ReferenceFields{Title: "x", ObjectKey: "k", CategoryID: &foreign.ID})
		require.ErrorIs(t, err, ErrInvalidCategoryRef)

		_, err = refs.UpdateReference(ctx, owner, loose.ID, func(current ReferenceRecord) (ReferenceFields, error) {
			return ReferenceFields{Title: current.Title, ObjectKey: current.ObjectKey, CategoryID: &foreign.ID}, nil
		})
		require.ErrorIs(t, err, ErrInvalidCategoryRef)
	})

	t.Run("owner isolation", func(t *testing.T) {
		_, err := refs.GetReference(ctx, other, target.ID)
		require.ErrorIs(t, err, ErrReferenceNotFound)
		_, err = refs.GetCategory(ctx, other, light.ID)
		require.ErrorIs(t, err, ErrReferenceCategoryNotFound)
		require.ErrorIs(t, refs.DeleteCategory(ctx, other, light.ID), ErrReferenceCategoryNotFound)

		list, err := refs.ListReferences(ctx, other, ListReferencesParams{})
		require.NoError(t, err)
		require.Zero(t, list.TotalItems)
	})

	t.Run("related puts the same category first", func(t *testing.T) {
		related, err := refs.RelatedReferences(ctx, owner, target.ID, 4)
		require.NoError(t, err)
		require.Equal(t, []int64{sibling.ID, loose.ID}, referenceIDs(related))

		related, err = refs.RelatedReferences(ctx, owner, loose.ID, 4)
		require.NoError(t, err)
		require.Equal(t, []int64{sibling.ID, target.ID}, referenceIDs(related))
	})

	t.Run("search and category filter", func(t *testing.T) {
		search := "SOFT"
		list, err := refs.ListReferences(ctx, owner, ListReferencesParams{Search: &search})
		require.NoError(t, err)
		require.Equal(t, []int64{sibling.ID}, referenceIDs(list.References))

		list, err = refs.ListReferences(ctx, owner, ListReferencesParams{CategoryID: &light.ID})
		require.NoError(t, err)
		require.Equal(t, []int64{sibling.ID, target.ID}, referenceIDs(list.References))

		cats, err := refs.ListCategories(ctx, owner)
		require.NoError(t, err)
		require.Len(t, cats, 1)
		require.Equal(t, 2, cats[0].ReferenceCount)
	})

	t.Run("deleting a category keeps its references", func(t *testing.T) {
		require.NoError(t, refs.DeleteCategory(ctx, owner, light.ID))

		got, err := refs.GetReference(ctx, owner, target.ID)
		require.NoError(t, err)
		require.Nil(t, got.CategoryID)
		require.Nil(t, got.CategoryName)
	})

	t.Run("delete returns the removed row", func(t *testing.T) {
		removed, err := refs.DeleteReference(ctx, owner, loose.ID)
		require.NoError(t, err)
		require.Equal(t, loose.ObjectKey, removed.ObjectKey)

		_, err = refs.DeleteReference(ctx, owner, loose.ID)
		require.ErrorIs(t, err, ErrReferenceNotFound)
	})
}
