package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/stretchr/testify/require"

	platformauth "github.com/photohub/photohub-saas/platform/go/auth"
)

func authInput(r *http.Request, scopes ...string) *openapi3filter.AuthenticationInput {
	return &openapi3filter.AuthenticationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{Request: r},
		SecuritySchemeName:     "bearerAuth",
		Scopes:                 scopes,
	}
}

func TestValidateAuthenticationRequiresBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/calendar/events", nil)
	require.Error(t, ValidateAuthenticationViaSwagger(context.Background(), authInput(req)))

	req.Header.Set("Authorization", "Bearer abc")
	require.NoError(t, ValidateAuthenticationViaSwagger(context.Background(), authInput(req)))
}

func TestValidateAuthenticationAdminScope(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/photographers", nil)
	req.Header.Set("Authorization", "Bearer abc")

	err := ValidateAuthenticationViaSwagger(context.Background(), authInput(req, "admin"))
	require.ErrorIs(t, err, ErrAdminScopeRequired)

	ctx := platformauth.WithUser(req.Context(), &platformauth.UserCredentials{Id: "u1", IsAdmin: true})
	req = req.WithContext(ctx)
	require.NoError(t, ValidateAuthenticationViaSwagger(context.Background(), authInput(req, "admin")))
}

func TestValidateAuthenticationIgnoresOtherSchemes(t *testing.T) {
	input := &openapi3filter.AuthenticationInput{SecuritySchemeName: "apiKey"}
	require.NoError(t, ValidateAuthenticationViaSwagger(context.Background(), input))
}

func TestWriteValidationProblem(t *testing.T) {
	rec := httptest.NewRecorder()
	writeValidationProblem(rec, "parameter \"start\" is invalid", http.StatusBadRequest)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "validation-error")
}
