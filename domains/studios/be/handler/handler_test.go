package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/photohub/photohub-saas/domains/studios/be/repo"
	"github.com/photohub/photohub-saas/domains/studios/be/service"
	"github.com/photohub/photohub-saas/platform/go/problem"
	"github.com/photohub/photohub-saas/platform/go/requesttrace"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

type conflictService struct {
	service.Service
}

func (conflictService) SetMainImage(context.Context, requesttrace.AuditInfo, int64, int64) error {
	return service.ErrConflict
}

type fixture struct {
	t       *testing.T
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	svc := service.New(repo.NewMemoryRepository(), zaptest.NewLogger(t), "photohub-media")
	return &fixture{t: t, handler: New(svc, zaptest.NewLogger(t)).Routes()}
}

func (f *fixture) do(as uuid.UUID, method, target, body string) *httptest.ResponseRecorder {
	f.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != uuid.Nil {
		req = req.WithContext(tenant.WithScope(req.Context(), tenant.For(as)))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

const loftJSON = `{"name":"Loft","city":"Moscow","street":"Arbat","building":"5","isPublic":true,"website":"loft.ru"}`

func TestStudioLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	alice, bob := uuid.New(), uuid.New()

	rec := f.do(alice, http.MethodPost, "/", loftJSON)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created apiStudio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "studio", created.LocationType)
	require.Equal(t, "https://loft.ru", created.Website)
	require.Equal(t, "Moscow, Arbat, 5", created.FullAddress)
	require.Equal(t, alice.String(), created.CreatedBy)
	require.Equal(t, "/api/v1/studios/1", rec.Header().Get("Location"))

	require.Equal(t, http.StatusOK, f.do(bob, http.MethodGet, "/1", "").Code)
	require.Equal(t, http.StatusForbidden, f.do(bob, http.MethodPatch, "/1", `{"name":"Hijacked"}`).Code)
	require.Equal(t, http.StatusForbidden, f.do(bob, http.MethodDelete, "/1", "").Code)

	rec = f.do(alice, http.MethodPatch, "/1", `{"isPublic":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, http.StatusNotFound, f.do(bob, http.MethodGet, "/1", "").Code)

	rec = f.do(alice, http.MethodGet, "/?own=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page studioPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 1, page.TotalItems)

	require.Equal(t, http.StatusNoContent, f.do(alice, http.MethodDelete, "/1", "").Code)
	require.Equal(t, http.StatusNotFound, f.do(alice, http.MethodGet, "/1", "").Code)
}

func TestStudioImages(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	alice := uuid.New()
	require.Equal(t, http.StatusCreated, f.do(alice, http.MethodPost, "/", loftJSON).Code)

	var ids []int64
	for _, name := range []string{"hall.jpg", "door.png", "roof.jpg"} {
		rec := f.do(alice, http.MethodPost, "/1/images", `{"fileName":"`+name+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		var img apiImage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &img))
		require.Equal(t, "photohub-media", img.Bucket)
		ids = append(ids, img.ID)
	}

	target := "/1/images/" + jsonID(ids[1]) + "/main"
	require.Equal(t, http.StatusNoContent, f.do(alice, http.MethodPost, target, "").Code)

	rec := f.do(alice, http.MethodGet, "/1/images", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var images []apiImage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &images))
	require.Len(t, images, 3)
	require.Equal(t, ids[1], images[0].ID)
	require.True(t, images[0].IsMain)
	require.False(t, images[1].IsMain)
	require.False(t, images[2].IsMain)

	require.Equal(t, http.StatusNotFound, f.do(alice, http.MethodPost, "/1/images/999/main", "").Code)
	require.Equal(t, http.StatusNoContent, f.do(alice, http.MethodDelete, "/1/images/"+jsonID(ids[0]), "").Code)
	require.Equal(t, http.StatusNotFound, f.do(alice, http.MethodDelete, "/1/images/"+jsonID(ids[0]), "").Code)
}

func TestStudioValidationAndScope(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(uuid.New(), http.MethodPost, "/", `{"name":"","locationType":"roof"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var p problem.Details
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Contains(t, *p.Errors, "name")
	require.Contains(t, *p.Errors, "locationType")
	require.Contains(t, *p.Errors, "city")

	require.Equal(t, http.StatusBadRequest, f.do(uuid.New(), http.MethodPost, "/", `{"name":`).Code)
	require.Equal(t, http.StatusForbidden, f.do(uuid.Nil, http.MethodGet, "/", "").Code)
}

func TestSetMainImageConflict(t *testing.T) {
	t.Parallel()

	h := New(conflictService{}, zaptest.NewLogger(t)).Routes()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/3/images/4/main", nil))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
