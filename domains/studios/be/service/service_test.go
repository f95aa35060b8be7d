package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/photohub/photohub-saas/domains/studios/be/repo"
	"github.com/photohub/photohub-saas/platform/go/persistence"
	"github.com/photohub/photohub-saas/platform/go/requesttrace"
	"github.com/photohub/photohub-saas/platform/go/storage"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

const testBucket = "photohub-media"

type flakyRepository struct {
	repo.Repository
	mu        sync.Mutex
	conflicts int
	calls     int
}

func (f *flakyRepository) SetMainImage(ctx context.Context, studioID, imageID int64) error {
	f.mu.Lock()
	f.calls++
	if f.conflicts > 0 {
		f.conflicts--
		f.mu.Unlock()
		return persistence.ErrFlagConflict
	}
	f.mu.Unlock()
	return f.Repository.SetMainImage(ctx, studioID, imageID)
}

func scoped(id uuid.UUID) context.Context {
	return tenant.WithScope(context.Background(), tenant.For(id))
}

func validInput() Input {
	return Input{Name: "Loft 12", City: "Moscow", Street: "Tverskaya", Building: "12"}
}

func TestServiceCreateValidation(t *testing.T) {
	t.Parallel()

	svc := New(repo.NewMemoryRepository(), zaptest.NewLogger(t), testBucket)
	_, err := svc.Create(scoped(uuid.New()), requesttrace.Anonymous("test"), Input{
		Name:         strings.Repeat("n", 51),
		LocationType: "rooftop",
		Street:       "Tverskaya",
		District:     strings.Repeat("d", 51),
		Building:     "1",
		Website:      "not a url",
		Description:  strings.Repeat("x", 501),
	})

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	for _, field := range []string{"name", "locationType", "city", "district", "website", "description"} {
		require.Contains(t, validationErr.Fields, field)
	}
	require.NotContains(t, validationErr.Fields, "street")
}

func TestServiceCreateNormalizes(t *testing.T) {
	t.Parallel()

	svc := New(repo.NewMemoryRepository(), zaptest.NewLogger(t), testBucket)
	in := validInput()
	in.Name = "  Loft 12 "
	in.Website = "loft12.ru/about"

	studio, err := svc.Create(scoped(uuid.New()), requesttrace.Anonymous("test"), in)
	require.NoError(t, err)
	require.Equal(t, "Loft 12", studio.Name)
	require.Equal(t, LocationStudio, studio.LocationType)
	require.Equal(t, "https://loft12.ru/about", studio.Website)
	require.False(t, studio.IsPublic)
	require.Equal(t, "Moscow, Tverskaya, 12", studio.FullAddress())
}

func TestServiceVisibilityAndOwnership(t *testing.T) {
	t.Parallel()

	svc := New(repo.NewMemoryRepository(), zaptest.NewLogger(t), testBucket)
	audit := requesttrace.Anonymous("test")
	alice, bob := scoped(uuid.New()), scoped(uuid.New())

	public := validInput()
	public.IsPublic = true
	shared, err := svc.Create(alice, audit, public)
	require.NoError(t, err)
	private, err := svc.Create(alice, audit, validInput())
	require.NoError(t, err)

	got, err := svc.Get(bob, shared.ID)
	require.NoError(t, err)
	require.Equal(t, shared.ID, got.ID)

	_, err = svc.Get(bob, private.ID)
	require.ErrorIs(t, err, ErrNotFound)

	rename := "Mine now"
	_, err = svc.Update(bob, audit, shared.ID, UpdateInput{Name: &rename})
	require.ErrorIs(t, err, ErrReadOnly)
	require.ErrorIs(t, svc.Delete(bob, audit, shared.ID), ErrReadOnly)

	list, err := svc.List(bob, ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, list.TotalItems)

	own, err := svc.List(bob, ListOptions{OnlyOwn: true})
	require.NoError(t, err)
	require.Zero(t, own.TotalItems)

	outdoor := LocationOutdoor
	updated, err := svc.Update(alice, audit, private.ID, UpdateInput{LocationType: &outdoor})
	require.NoError(t, err)
	require.Equal(t, LocationOutdoor, updated.LocationType)

	bad := "cellar"
	_, err = svc.List(alice, ListOptions{LocationType: &bad})
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
}

func TestServiceAddImageBuildsTenantKey(t *testing.T) {
	t.Parallel()

	svc := New(repo.NewMemoryRepository(), zaptest.NewLogger(t), testBucket)
	owner := uuid.New()
	ctx := scoped(owner)
	audit := requesttrace.Anonymous("test")

	studio, err := svc.Create(ctx, audit, validInput())
	require.NoError(t, err)

	img, err := svc.AddImage(ctx, audit, studio.ID, ImageInput{FileName: "Main Hall.JPG", Caption: "hall", IsMain: true})
	require.NoError(t, err)
	require.True(t, img.IsMain)
	require.Equal(t, testBucket, img.Bucket)
	require.True(t, strings.HasPrefix(img.ObjectKey, "photographers/"+tenant.ShortID(owner)+"/studios/"))
	require.True(t, strings.HasSuffix(img.ObjectKey, "-main-hall.jpg"))

	_, err = svc.AddImage(ctx, audit, studio.ID, ImageInput{Caption: strings.Repeat("c", 256)})
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "caption")
	require.Contains(t, validationErr.Fields, "fileName")

	_, err = svc.AddImage(context.Background(), audit, studio.ID, ImageInput{FileName: "a.jpg"})
	require.ErrorIs(t, err, ErrScopeMissing)
}

func TestServiceSetMainImageIsExclusiveUnderContention(t *testing.T) {
	t.Parallel()

	svc := New(repo.NewMemoryRepository(), zaptest.NewLogger(t), testBucket)
	ctx := scoped(uuid.New())
	audit := requesttrace.Anonymous("test")

	studio, err := svc.Create(ctx, audit, validInput())
	require.NoError(t, err)

	var ids []int64
	for range 5 {
		img, err := svc.AddImage(ctx, audit, studio.ID, ImageInput{FileName: "shot.jpg"})
		require.NoError(t, err)
		ids = append(ids, img.ID)
	}

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			require.NoError(t, svc.SetMainImage(ctx, audit, studio.ID, id))
		}(ids[i%len(ids)])
	}
	wg.Wait()

	images, err := svc.ListImages(ctx, studio.ID)
	require.NoError(t, err)
	require.Len(t, images, 5)
	mains := 0
	for _, img := range images {
		if img.IsMain {
			mains++
		}
	}
	require.Equal(t, 1, mains)
	require.True(t, images[0].IsMain)

	require.ErrorIs(t, svc.SetMainImage(ctx, audit, studio.ID, 424242), ErrImageNotFound)
}

func TestServiceSetMainImageRetriesOnce(t *testing.T) {
	t.Parallel()

	ctx := scoped(uuid.New())
	audit := requesttrace.Anonymous("test")
	mem := repo.NewMemoryRepository()
	setup := New(mem, zaptest.NewLogger(t), testBucket)
	studio, err := setup.Create(ctx, audit, validInput())
	require.NoError(t, err)
	img, err := setup.AddImage(ctx, audit, studio.ID, ImageInput{FileName: "a.jpg"})
	require.NoError(t, err)

	flaky := &flakyRepository{Repository: mem, conflicts: 1}
	svc := New(flaky, zaptest.NewLogger(t), testBucket)
	require.NoError(t, svc.SetMainImage(ctx, audit, studio.ID, img.ID))
	require.Equal(t, 2, flaky.calls)

	flaky = &flakyRepository{Repository: mem, conflicts: 2}
	svc = New(flaky, zaptest.NewLogger(t), testBucket)
	require.ErrorIs(t, svc.SetMainImage(ctx, audit, studio.ID, img.ID), ErrConflict)
	require.Equal(t, 2, flaky.calls)
}

func TestServiceMissingScope(t *testing.T) {
	t.Parallel()

	svc := New(repo.NewMemoryRepository(), zaptest.NewLogger(t), testBucket)
	_, err := svc.Create(context.Background(), requesttrace.Anonymous("test"), validInput())
	require.ErrorIs(t, err, ErrScopeMissing)
}

func TestNewRequiresBucket(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { New(repo.NewMemoryRepository(), nil, " ") })
	require.Panics(t, func() { New(nil, nil, testBucket) })
}

type recordingStore struct {
	mu      sync.Mutex
	deleted []storage.ObjectLocation
	err     error
}

func (r *recordingStore) Check(context.Context, string, string) error { return nil }

func (r *recordingStore) Delete(_ context.Context, loc storage.ObjectLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, loc)
	return r.err
}

func TestServiceDeleteRemovesImageBlobs(t *testing.T) {
	t.Parallel()

	objects := &recordingStore{}
	svc := NewWithObjectStore(repo.NewMemoryRepository(), zaptest.NewLogger(t), testBucket, objects)
	ctx := scoped(uuid.New())
	audit := requesttrace.Anonymous("test")

	studio, err := svc.Create(ctx, audit, validInput())
	require.NoError(t, err)
	first, err := svc.AddImage(ctx, audit, studio.ID, ImageInput{FileName: "a.jpg"})
	require.NoError(t, err)
	second, err := svc.AddImage(ctx, audit, studio.ID, ImageInput{FileName: "b.jpg"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteImage(ctx, audit, studio.ID, first.ID))
	require.Equal(t, []storage.ObjectLocation{{Bucket: testBucket, FullPath: first.ObjectKey}}, objects.deleted)

	objects.err = errors.New("bucket unavailable")
	require.NoError(t, svc.Delete(ctx, audit, studio.ID))
	require.Len(t, objects.deleted, 2)
	require.Equal(t, second.ObjectKey, objects.deleted[1].FullPath)

	_, err = svc.Get(ctx, studio.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceDeleteImageOfForeignStudioKeepsBlob(t *testing.T) {
	t.Parallel()

	objects := &recordingStore{}
	svc := NewWithObjectStore(repo.NewMemoryRepository(), zaptest.NewLogger(t), testBucket, objects)
	owner := scoped(uuid.New())
	audit := requesttrace.Anonymous("test")

	in := validInput()
	in.IsPublic = true
	studio, err := svc.Create(owner, audit, in)
	require.NoError(t, err)
	img, err := svc.AddImage(owner, audit, studio.ID, ImageInput{FileName: "a.jpg"})
	require.NoError(t, err)

	err = svc.DeleteImage(scoped(uuid.New()), audit, studio.ID, img.ID)
	require.ErrorIs(t, err, ErrReadOnly)
	require.Empty(t, objects.deleted)
}
