package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/photohub/photohub-saas/domains/events/be/repo"
	"github.com/photohub/photohub-saas/domains/events/be/service"
	"github.com/photohub/photohub-saas/domains/events/be/wire"
	"github.com/photohub/photohub-saas/platform/go/problem"
	"github.com/photohub/photohub-saas/platform/go/requesttrace"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

type mockService struct {
	createFn  func(ctx context.Context, audit requesttrace.AuditInfo, input service.Draft) (service.Event, error)
	getFn     func(ctx context.Context, id int64) (service.Event, error)
	updateFn  func(ctx context.Context, audit requesttrace.AuditInfo, id int64, input service.UpdateInput) (service.Event, error)
	deleteFn  func(ctx context.Context, audit requesttrace.AuditInfo, id int64) error
	listFn    func(ctx context.Context, opts service.ListOptions) (service.ListResult, error)
	queryFn   func(ctx context.Context, opts service.QueryOptions) ([]service.Event, error)
	suggestFn func(category *service.Category) (service.Suggestion, error)
}

func (m *mockService) Create(ctx context.Context, audit requesttrace.AuditInfo, input service.Draft) (service.Event, error) {
	if m.createFn == nil {
		panic("createFn not configured")
	}
	return m.createFn(ctx, audit, input)
}

func (m *mockService) Get(ctx context.Context, id int64) (service.Event, error) {
	if m.getFn == nil {
		panic("getFn not configured")
	}
	return m.getFn(ctx, id)
}

func (m *mockService) Update(ctx context.Context, audit requesttrace.AuditInfo, id int64, input service.UpdateInput) (service.Event, error) {
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

func (m *mockService) List(ctx context.Context, opts service.ListOptions) (service.ListResult, error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx, opts)
}

func (m *mockService) Query(ctx context.Context, opts service.QueryOptions) ([]service.Event, error) {
	if m.queryFn == nil {
		panic("queryFn not configured")
	}
	return m.queryFn(ctx, opts)
}

func (m *mockService) Suggest(category *service.Category) (service.Suggestion, error) {
	if m.suggestFn == nil {
		panic("suggestFn not configured")
	}
	return m.suggestFn(category)
}

func newRouter(t *testing.T, svc service.Service) http.Handler {
	t.Helper()
	h := New(svc, zaptest.NewLogger(t), Config{URLBase: "/calendar/events", UIDDomain: "photohub.test"})
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func do(t *testing.T, handler http.Handler, ctx context.Context, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) problem.Details {
	t.Helper()
	require.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))
	var p problem.Details
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestQueryParsesWindow(t *testing.T) {
	t.Parallel()

	var got service.QueryOptions
	svc := &mockService{queryFn: func(_ context.Context, opts service.QueryOptions) ([]service.Event, error) {
		got = opts
		return []service.Event{{ID: 1, Title: "Shoot", Category: service.CategoryPhotoshoot, Start: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}}, nil
	}}

	rec := do(t, newRouter(t, svc), context.Background(), http.MethodGet,
		"/calendar/events?start=2025-06-01&end=2025-06-08T00:00:00%2B03:00&category=photoshoot", "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *got.Start)
	require.True(t, got.End.Equal(time.Date(2025, 6, 7, 21, 0, 0, 0, time.UTC)))
	require.Equal(t, service.CategoryPhotoshoot, *got.Category)

	var items []wire.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	require.Equal(t, items[0].Start, items[0].End)
	require.Equal(t, "/calendar/events/1/", items[0].URL)
}

func TestQueryRejectsMalformedBound(t *testing.T) {
	t.Parallel()

	rec := do(t, newRouter(t, &mockService{}), context.Background(), http.MethodGet, "/calendar/events?start=yesterday", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	p := decodeProblem(t, rec)
	require.NotNil(t, p.Errors)
	require.Contains(t, *p.Errors, "start")
}

func TestCreateMapsValidationError(t *testing.T) {
	t.Parallel()

	svc := &mockService{createFn: func(context.Context, requesttrace.AuditInfo, service.Draft) (service.Event, error) {
		return service.Event{}, &service.ValidationError{Field: "end", Reason: service.ReasonEndBeforeStart}
	}}

	rec := do(t, newRouter(t, svc), context.Background(), http.MethodPost, "/calendar/events",
		`{"title":"x","start":"2025-06-01T10:00:00Z","end":"2025-06-01T09:00:00Z"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	p := decodeProblem(t, rec)
	require.Equal(t, map[string][]string{"end": {"end-before-start"}}, *p.Errors)
}

func TestCreateRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	rec := do(t, newRouter(t, &mockService{}), context.Background(), http.MethodPost, "/calendar/events", `{"owner":"me"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateDistinguishesNullFromAbsent(t *testing.T) {
	t.Parallel()

	var got service.UpdateInput
	svc := &mockService{updateFn: func(_ context.Context, _ requesttrace.AuditInfo, id int64, input service.UpdateInput) (service.Event, error) {
		got = input
		return service.Event{ID: id, Category: service.CategoryPost}, nil
	}}

	rec := do(t, newRouter(t, svc), context.Background(), http.MethodPatch, "/calendar/events/5",
		`{"category":"post","clientId":null}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.True(t, got.ClientID.Set)
	require.Nil(t, got.ClientID.Value)
	require.False(t, got.StudioID.Set)
	require.False(t, got.End.Set)
	require.Equal(t, service.CategoryPost, *got.Category)
}

func TestGetErrors(t *testing.T) {
	t.Parallel()

	svc := &mockService{getFn: func(_ context.Context, id int64) (service.Event, error) {
		if id == 1 {
			return service.Event{}, service.ErrNotFound
		}
		return service.Event{}, errors.New("database is down")
	}}
	router := newRouter(t, svc)

	require.Equal(t, http.StatusNotFound, do(t, router, context.Background(), http.MethodGet, "/calendar/events/1", "").Code)
	require.Equal(t, http.StatusNotFound, do(t, router, context.Background(), http.MethodGet, "/calendar/events/abc", "").Code)

	rec := do(t, router, context.Background(), http.MethodGet, "/calendar/events/2", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	p := decodeProblem(t, rec)
	require.Equal(t, problem.TypeInternal, *p.Type)
}

func TestDefaultsLocalizesCategory(t *testing.T) {
	t.Parallel()

	svc := &mockService{suggestFn: func(category *service.Category) (service.Suggestion, error) {
		require.Nil(t, category)
		start := time.Date(2025, 5, 20, 12, 30, 0, 0, time.UTC)
		return service.Suggestion{Category: service.CategoryPhotoshoot, Start: start, End: start.Add(time.Hour), Color: service.DefaultColor}, nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/calendar/events/defaults", nil)
	req.Header.Set("Accept-Language", "ru")
	rec := httptest.NewRecorder()
	newRouter(t, svc).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body eventDefaults
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Фотосъемка", body.CategoryDisplay)
	require.Equal(t, "2025-05-20T13:30:00Z", body.End)
}

func TestEndToEndWithMemoryRepository(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)
	svc := service.New(repo.NewMemoryRepository(nil), service.Options{
		Now:    func() time.Time { return now },
		Logger: zaptest.NewLogger(t),
	})
	router := newRouter(t, svc)
	alice := tenant.WithScope(context.Background(), tenant.For(uuid.New()))
	bob := tenant.WithScope(context.Background(), tenant.For(uuid.New()))

	rec := do(t, router, alice, http.MethodPost, "/calendar/events",
		`{"title":"Wedding","start":"2025-06-01T15:30:00Z","allDay":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "/api/v1/calendar/events/1", rec.Header().Get("Location"))

	var created wire.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "2025-06-01T00:00:00Z", created.Start)
	require.Equal(t, "2025-06-01T23:59:59.999999Z", created.End)

	rec = do(t, router, alice, http.MethodPost, "/calendar/events",
		`{"title":"Too late","start":"2025-05-19T10:00:00Z"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, map[string][]string{"start": {"start-in-past"}}, *decodeProblem(t, rec).Errors)

	rec = do(t, router, bob, http.MethodGet, "/calendar/events?start=2025-06-01&end=2025-06-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, router, alice, http.MethodGet, "/calendar/events?start=2025-06-01&end=2025-06-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []wire.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)

	rec = do(t, router, alice, http.MethodGet, "/calendar/events?start=2025-06-02&end=2025-06-01", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, *decodeProblem(t, rec).Errors, "end")

	rec = do(t, router, alice, http.MethodGet, "/calendar/events.ics?start=2025-06-01&end=2025-06-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, wire.ICSContentType, rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "SUMMARY:Wedding")

	require.Equal(t, http.StatusNotFound, do(t, router, bob, http.MethodDelete, "/calendar/events/1", "").Code)
	require.Equal(t, http.StatusNoContent, do(t, router, alice, http.MethodDelete, "/calendar/events/1", "").Code)
	require.Equal(t, http.StatusNotFound, do(t, router, alice, http.MethodGet, "/calendar/events/1", "").Code)

	rec = do(t, router, context.Background(), http.MethodGet, "/calendar/events/page", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}
