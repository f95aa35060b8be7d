package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/photohub/photohub-saas/domains/clients/be/service"
	"github.com/photohub/photohub-saas/platform/go/problem"
	"github.com/photohub/photohub-saas/platform/go/requesttrace"
)

type mockService struct {
	createFn func(ctx context.Context, audit requesttrace.AuditInfo, input service.Input) (service.Client, error)
	listFn   func(ctx context.Context, opts service.ListOptions) (service.ListResult, error)
	getFn    func(ctx context.Context, id int64) (service.Client, error)
	updateFn func(ctx context.Context, audit requesttrace.AuditInfo, id int64, input service.UpdateInput) (service.Client, error)
	deleteFn func(ctx context.Context, audit requesttrace.AuditInfo, id int64) error
}

func (m *mockService) Create(ctx context.Context, audit requesttrace.AuditInfo, input service.Input) (service.Client, error) {
	if m.createFn == nil {
		panic("createFn not configured")
	}
	return m.createFn(ctx, audit, input)
}

func (m *mockService) List(ctx context.Context, opts service.ListOptions) (service.ListResult, error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx, opts)
}

func (m *mockService) Get(ctx context.Context, id int64) (service.Client, error) {
	if m.getFn == nil {
		panic("getFn not configured")
	}
	return m.getFn(ctx, id)
}

func (m *mockService) Update(ctx context.Context, audit requesttrace.AuditInfo, id int64, input service.UpdateInput) (service.Client, error) {
	if m.updateFn == nil {
		panic("updateFn not configured")
	}
	return m.updateFn(ctx, audit, id, input)
}

func (m *mockService) Delete(ctx context.Context, audit requesttrace.AuditInfo, id int64) error {
	if m.deleteFn == nil {
		panic("deleteFn not configured")
	}
	return m.deleteFn(ctx, audit, id)
}

func serve(t *testing.T, svc service.Service, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	New(svc, zaptest.NewLogger(t)).Routes().ServeHTTP(rec, req)
	return rec
}

func TestCreateClient(t *testing.T) {
	t.Parallel()

	svc := &mockService{createFn: func(_ context.Context, _ requesttrace.AuditInfo, input service.Input) (service.Client, error) {
		require.Equal(t, "Anna", input.FirstName)
		require.Equal(t, time.Date(1990, 3, 8, 0, 0, 0, 0, time.UTC), *input.BirthDate)
		return service.Client{ID: 12, FirstName: input.FirstName, LastName: input.LastName, BirthDate: input.BirthDate}, nil
	}}

	rec := serve(t, svc, http.MethodPost, "/", `{"firstName":"Anna","lastName":"Smirnova","birthDate":"1990-03-08"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "/api/v1/clients/12", rec.Header().Get("Location"))

	var body apiClient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Anna Smirnova", body.FullName)
	require.Equal(t, "1990-03-08", *body.BirthDate)
}

func TestCreateClientRejectsBadDate(t *testing.T) {
	t.Parallel()

	rec := serve(t, &mockService{}, http.MethodPost, "/", `{"firstName":"Anna","birthDate":"08.03.1990"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var p problem.Details
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Contains(t, *p.Errors, "birthDate")
}

func TestUpdateClientClearsBirthDate(t *testing.T) {
	t.Parallel()

	svc := &mockService{updateFn: func(_ context.Context, _ requesttrace.AuditInfo, id int64, input service.UpdateInput) (service.Client, error) {
		require.Equal(t, int64(5), id)
		require.True(t, input.ClearBirthDate)
		require.Nil(t, input.FirstName)
		return service.Client{ID: id}, nil
	}}

	rec := serve(t, svc, http.MethodPatch, "/5", `{"birthDate":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestClientErrors(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		getFn: func(context.Context, int64) (service.Client, error) {
			return service.Client{}, service.ErrNotFound
		},
		deleteFn: func(context.Context, requesttrace.AuditInfo, int64) error {
			return service.ErrScopeMissing
		},
	}

	require.Equal(t, http.StatusNotFound, serve(t, svc, http.MethodGet, "/77", "").Code)
	require.Equal(t, http.StatusForbidden, serve(t, svc, http.MethodDelete, "/77", "").Code)
}

func TestListClients(t *testing.T) {
	t.Parallel()

	svc := &mockService{listFn: func(_ context.Context, opts service.ListOptions) (service.ListResult, error) {
		require.Equal(t, 2, opts.Page)
		require.Equal(t, "petrov", *opts.Search)
		return service.ListResult{Clients: []service.Client{{ID: 1, FirstName: "Ivan", LastName: "Petrov"}}, Page: 2, PageSize: 20, TotalItems: 21, TotalPages: 2}, nil
	}}

	rec := serve(t, svc, http.MethodGet, "/?page=2&search=petrov", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page clientPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, 21, page.TotalItems)
}
