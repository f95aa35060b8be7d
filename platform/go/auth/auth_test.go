package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCredentialExtractor(t *testing.T) {
	photographerID := "9a7c0a4e-2f4e-4a53-9b7c-0e6f4f2d1a11"

	testCases := []struct {
		name             string
		claims           map[string]interface{}
		wantID           string
		wantPhotographer string
		wantAdmin        bool
		wantErr          bool
	}{
		{
			name:             "photographer claim wins",
			claims:           map[string]interface{}{"uid": "firebase-uid", PhotographerClaim: photographerID},
			wantID:           "firebase-uid",
			wantPhotographer: photographerID,
		},
		{
			name:             "uid fallback",
			claims:           map[string]interface{}{"sub": photographerID, "isAdmin": true},
			wantID:           photographerID,
			wantPhotographer: photographerID,
			wantAdmin:        true,
		},
		{
			name:    "missing subject",
			claims:  map[string]interface{}{"email": "x@example.com"},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			creds, err := DefaultCredentialExtractor(tc.claims)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantID, creds.Id)
			require.Equal(t, tc.wantPhotographer, creds.PhotographerID)
			require.Equal(t, tc.wantAdmin, creds.IsAdmin)
		})
	}
}

func TestJWTMiddleware(t *testing.T) {
	var seen *UserCredentials
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := JWT(UnsignedTokenVerifier(), nil)(next)

	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"user-1","email":"a@example.com"}`))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer e30."+payload)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, "user-1", seen.PhotographerID)
	require.Equal(t, "a@example.com", seen.Email)
}

func TestJWTMiddlewareRejectsInvalidToken(t *testing.T) {
	failing := func(ctx context.Context, token string) (map[string]interface{}, error) {
		return nil, errors.New("expired")
	}
	handler := JWT(failing, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next must not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestRequireRoleAndUser(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	serve := func(h http.Handler, creds *UserCredentials) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if creds != nil {
			req = req.WithContext(WithUser(req.Context(), creds))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusUnauthorized, serve(RequireUser(ok), nil))
	require.Equal(t, http.StatusNoContent, serve(RequireUser(ok), &UserCredentials{Id: "u"}))
	require.Equal(t, http.StatusForbidden, serve(RequireRole("admin")(ok), &UserCredentials{Id: "u"}))
	require.Equal(t, http.StatusNoContent, serve(RequireRole("admin")(ok), &UserCredentials{Id: "u", IsAdmin: true}))
}
