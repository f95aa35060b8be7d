package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/photohub/photohub-saas/platform/go/persistence"
	"github.com/photohub/photohub-saas/platform/go/requesttrace"
)

type mockRepository struct {
	createFn func(ctx context.Context, params persistence.CreatePhotographerParams) (persistence.Photographer, error)
	listFn   func(ctx context.Context, params persistence.ListPhotographersParams) (persistence.ListPhotographersResult, error)
	getFn    func(ctx context.Context, id uuid.UUID) (persistence.Photographer, error)
	updateFn func(ctx context.Context, id uuid.UUID, params persistence.UpdatePhotographerParams) (persistence.Photographer, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (m *mockRepository) Create(ctx context.Context, params persistence.CreatePhotographerParams) (persistence.Photographer, error) {
	if m.createFn == nil {
		panic("createFn not configured")
	}
	return m.createFn(ctx, params)
}

func (m *mockRepository) List(ctx context.Context, params persistence.ListPhotographersParams) (persistence.ListPhotographersResult, error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx, params)
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Photographer, error) {
	if m.getFn == nil {
		panic("getFn not configured")
	}
	return m.getFn(ctx, id)
}

func (m *mockRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdatePhotographerParams) (persistence.Photographer, error) {
	if m.updateFn == nil {
		panic("updateFn not configured")
	}
	return m.updateFn(ctx, id, params)
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn == nil {
		panic("deleteFn not configured")
	}
	return m.deleteFn(ctx, id)
}

func TestServiceCreateValidation(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{}, zaptest.NewLogger(t))

	_, err := svc.Create(context.Background(), requesttrace.Anonymous("test"), CreateInput{
		Email:       "nobody",
		LastName:    "This last name is far too long to fit",
		PhoneNumber: "555",
	})

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "email")
	require.Contains(t, validationErr.Fields, "firstName")
	require.Contains(t, validationErr.Fields, "lastName")
	require.Contains(t, validationErr.Fields, "phoneNumber")
}

func TestServiceCreateSuccess(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	fixedID := uuid.New()
	repository := &mockRepository{createFn: func(_ context.Context, params persistence.CreatePhotographerParams) (persistence.Photographer, error) {
		require.Equal(t, fixedID, params.ID)
		require.Equal(t, "anna@example.com", params.Email)
		require.Equal(t, "+79161234567", params.PhoneNumber)
		return persistence.Photographer{
			ID:          params.ID,
			Email:       params.Email,
			FirstName:   params.FirstName,
			LastName:    params.LastName,
			PhoneNumber: params.PhoneNumber,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, nil
	}}

	svc := New(repository, zaptest.NewLogger(t))
	p, err := svc.Create(context.Background(), requesttrace.Anonymous("test"), CreateInput{
		ID:          fixedID,
		Email:       " Anna@Example.com ",
		FirstName:   " Anna ",
		LastName:    "Smirnova",
		PhoneNumber: "79161234567",
	})
	require.NoError(t, err)
	require.Equal(t, "Anna Smirnova", p.FullName())
}

func TestServiceCreateGeneratesID(t *testing.T) {
	t.Parallel()

	repository := &mockRepository{createFn: func(_ context.Context, params persistence.CreatePhotographerParams) (persistence.Photographer, error) {
		require.NotEqual(t, uuid.Nil, params.ID)
		return persistence.Photographer{}, persistence.ErrPhotographerConflict
	}}

	_, err := New(repository, zaptest.NewLogger(t)).Create(context.Background(), requesttrace.Anonymous("test"),
		CreateInput{Email: "a@b.co", FirstName: "A", LastName: "B"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestServiceListNormalizesPaging(t *testing.T) {
	t.Parallel()

	repository := &mockRepository{listFn: func(_ context.Context, params persistence.ListPhotographersParams) (persistence.ListPhotographersResult, error) {
		require.Equal(t, 1, params.Page)
		require.Equal(t, 100, params.PageSize)
		require.Equal(t, "-createdAt", *params.Sort)
		return persistence.ListPhotographersResult{
			Photographers: []persistence.Photographer{{ID: uuid.New(), Email: "a@b.co"}},
			TotalItems:    101,
		}, nil
	}}

	sort := "-createdAt"
	result, err := New(repository, zaptest.NewLogger(t)).List(context.Background(), ListOptions{PageSize: 500, Sort: &sort})
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalPages)
	require.Len(t, result.Photographers, 1)

	bad := "password"
	_, err = New(repository, zaptest.NewLogger(t)).List(context.Background(), ListOptions{Sort: &bad})
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "sort")
}

func TestServiceUpdate(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	repository := &mockRepository{updateFn: func(_ context.Context, got uuid.UUID, params persistence.UpdatePhotographerParams) (persistence.Photographer, error) {
		require.Equal(t, id, got)
		require.Equal(t, "Ivan", *params.FirstName)
		require.Nil(t, params.LastName)
		return persistence.Photographer{ID: id, FirstName: *params.FirstName}, nil
	}}
	svc := New(repository, zaptest.NewLogger(t))

	name := " Ivan "
	p, err := svc.Update(context.Background(), requesttrace.Anonymous("test"), id, UpdateInput{FirstName: &name})
	require.NoError(t, err)
	require.Equal(t, "Ivan", p.FirstName)

	_, err = svc.Update(context.Background(), requesttrace.Anonymous("test"), id, UpdateInput{})
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "payload")
}

func TestServiceGetAndDeleteMapErrors(t *testing.T) {
	t.Parallel()

	repository := &mockRepository{
		getFn: func(context.Context, uuid.UUID) (persistence.Photographer, error) {
			return persistence.Photographer{}, persistence.ErrPhotographerNotFound
		},
		deleteFn: func(context.Context, uuid.UUID) error {
			return persistence.ErrPhotographerNotFound
		},
	}
	svc := New(repository, zaptest.NewLogger(t))

	_, err := svc.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(context.Background(), requesttrace.Anonymous("test"), uuid.New()), ErrNotFound)
	require.ErrorIs(t, svc.Delete(context.Background(), requesttrace.Anonymous("test"), uuid.Nil), ErrNotFound)
}
