package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	platformauth "github.com/photohub/photohub-saas/platform/go/auth"
	"github.com/photohub/photohub-saas/platform/go/problem"
)

// ErrAdminScopeRequired is returned when an operation declares the admin scope and the caller is not an administrator.
var ErrAdminScopeRequired = errors.New("admin role required")

// ValidateAuthenticationViaSwagger satisfies operations that declare bearerAuth in the contract.
// Operations listing the "admin" scope additionally require an administrator.
func ValidateAuthenticationViaSwagger(ctx context.Context, input *openapi3filter.AuthenticationInput) error {
	if input == nil || input.SecuritySchemeName != "bearerAuth" {
		return nil
	}

	r := input.RequestValidationInput.Request
	if r == nil {
		return fmt.Errorf("no request in validation input")
	}
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return fmt.Errorf("missing or invalid Authorization header")
	}

	for _, scope := range input.Scopes {
		if scope != "admin" {
			continue
		}
		creds, ok := platformauth.UserFromContext(r.Context())
		if !ok || creds == nil || !creds.IsAdmin {
			return ErrAdminScopeRequired
		}
	}
	return nil
}

// SpecValidator validates requests against the OpenAPI document before they reach the handlers.
// Failures are reported as problem+json.
func SpecValidator(spec *openapi3.T) func(http.Handler) http.Handler {
	return oapimiddleware.OapiRequestValidatorWithOptions(spec, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: ValidateAuthenticationViaSwagger,
		},
		ErrorHandler: writeValidationProblem,
	})
}

func writeValidationProblem(w http.ResponseWriter, message string, statusCode int) {
	title := "Invalid request"
	problemType := problem.TypeValidation
	switch statusCode {
	case http.StatusUnauthorized:
		title, problemType = "Unauthorized", problem.TypeUnauthorized
	case http.StatusForbidden:
		title, problemType = "Forbidden", problem.TypeForbidden
	case http.StatusNotFound:
		title, problemType = "Resource not found", problem.TypeNotFound
	}
	problem.Write(w, problem.New(title, message, problemType, statusCode, nil))
}
