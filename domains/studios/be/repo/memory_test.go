package repo

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/photohub/photohub-saas/platform/go/persistence"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

func mainCount(images []persistence.StudioImageRecord) int {
	n := 0
	for _, img := range images {
		if img.IsMain {
			n++
		}
	}
	return n
}

func TestMemoryRepositoryVisibility(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	owner := tenant.WithScope(context.Background(), tenant.For(uuid.New()))
	other := tenant.WithScope(context.Background(), tenant.For(uuid.New()))

	public, err := repo.Create(owner, persistence.StudioFields{Name: "Loft", IsPublic: true})
	require.NoError(t, err)
	private, err := repo.Create(owner, persistence.StudioFields{Name: "Home"})
	require.NoError(t, err)

	_, err = repo.Get(other, public.ID)
	require.NoError(t, err)
	_, err = repo.Get(other, private.ID)
	require.ErrorIs(t, err, persistence.ErrStudioNotFound)

	_, err = repo.AddImage(other, public.ID, persistence.AddStudioImageParams{ObjectKey: "a.jpg"})
	require.NoError(t, err)
	_, err = repo.AddImage(other, public.ID, persistence.AddStudioImageParams{ObjectKey: "b.jpg", IsMain: true})
	require.ErrorIs(t, err, persistence.ErrStudioReadOnly)
	require.ErrorIs(t, repo.Delete(other, public.ID), persistence.ErrStudioReadOnly)

	result, err := repo.List(other, persistence.ListStudiosParams{})
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalItems)

	name, ok := repo.Studio(uuid.New(), public.ID)
	require.True(t, ok)
	require.Equal(t, "Loft", name)
}

func TestMemoryRepositoryMainImageIsExclusive(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	owner := tenant.WithScope(context.Background(), tenant.For(uuid.New()))
	studio, err := repo.Create(owner, persistence.StudioFields{Name: "Loft"})
	require.NoError(t, err)

	var ids []int64
	for i := range 8 {
		img, err := repo.AddImage(owner, studio.ID, persistence.AddStudioImageParams{ObjectKey: "k", IsMain: i%3 == 0})
		require.NoError(t, err)
		ids = append(ids, img.ID)
	}

	images, err := repo.ListImages(owner, studio.ID)
	require.NoError(t, err)
	require.Equal(t, 1, mainCount(images))
	require.Equal(t, ids[6], images[0].ID)

	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			require.NoError(t, repo.SetMainImage(owner, studio.ID, id))
		}(ids[i%len(ids)])
	}
	wg.Wait()

	images, err = repo.ListImages(owner, studio.ID)
	require.NoError(t, err)
	require.Equal(t, 1, mainCount(images))
	require.True(t, images[0].IsMain)

	require.ErrorIs(t, repo.SetMainImage(owner, studio.ID, 9999), persistence.ErrStudioImageNotFound)
}
