package tenant

import (
	"context"

	"github.com/google/uuid"
)

// Scope identifies on whose behalf a data operation runs.
// TenantID is the photographer that owns the data. Privileged scopes belong to
// platform administrators and bypass the owner filter entirely.
type Scope struct {
	TenantID   uuid.UUID
	Privileged bool
}

// Admin returns a privileged scope acting as the given account.
func Admin(actor uuid.UUID) Scope {
	return Scope{TenantID: actor, Privileged: true}
}

// For returns an ordinary scope for the given photographer.
func For(photographerID uuid.UUID) Scope {
	return Scope{TenantID: photographerID}
}

// Owns reports whether a row owned by owner is visible to this scope.
func (s Scope) Owns(owner uuid.UUID) bool {
	return s.Privileged || owner == s.TenantID
}

// Valid reports whether the scope carries an identity.
func (s Scope) Valid() bool {
	return s.TenantID != uuid.Nil
}

type ctxKey string

const scopeKey ctxKey = "PHOTOHUB_TENANT_SCOPE"

// WithScope returns a derived context carrying the tenant Scope.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

// FromContext extracts the tenant Scope and a boolean indicating presence.
func FromContext(ctx context.Context) (Scope, bool) {
	v := ctx.Value(scopeKey)
	if v == nil {
		return Scope{}, false
	}

	scope, ok := v.(Scope)
	return scope, ok
}
