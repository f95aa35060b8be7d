package tenant

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrMissingIdentity is returned when credentials carry no photographer id.
var ErrMissingIdentity = errors.New("photographer id is required")

// Derive builds a Scope from the raw identity claim of an authenticated caller.
func Derive(rawID string, privileged bool) (Scope, error) {
	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		return Scope{}, ErrMissingIdentity
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return Scope{}, fmt.Errorf("parse photographer id: %w", err)
	}
	if id == uuid.Nil {
		return Scope{}, ErrMissingIdentity
	}

	return Scope{TenantID: id, Privileged: privileged}, nil
}

// ShortID returns the first 8 hexadecimal characters of a UUID (without dashes).
func ShortID(id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return hex[:8]
}
