package persistence

import (
	"fmt"
	"strings"

	"github.com/photohub/photohub-saas/platform/go/tenant"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// buildOrderBy turns "field,-other" into an ORDER BY clause using only whitelisted columns.
func buildOrderBy(sort *string, defaultOrder string, mapping map[string]string) (string, error) {
	if sort == nil || strings.TrimSpace(*sort) == "" {
		return defaultOrder, nil
	}

	fields := strings.Split(strings.TrimSpace(*sort), ",")
	orderClauses := make([]string, 0, len(fields))

	for _, raw := range fields {
		f := strings.TrimSpace(raw)
		if f == "" {
			continue
		}

		direction := "ASC"
		if strings.HasPrefix(f, "-") {
			direction = "DESC"
			f = strings.TrimPrefix(f, "-")
		}

		column, ok := mapping[f]
		if !ok {
			return "", fmt.Errorf("unsupported sort field %q", f)
		}

		orderClauses = append(orderClauses, fmt.Sprintf("%s %s", column, direction))
	}

	if len(orderClauses) == 0 {
		return defaultOrder, nil
	}

	return "ORDER BY " + strings.Join(orderClauses, ", "), nil
}

// ownerPredicate appends the owner filter for scope to args and returns the SQL predicate.
// Privileged scopes see every row.
func ownerPredicate(scope tenant.Scope, column string, args *[]any) string {
	if scope.Privileged {
		return "TRUE"
	}
	*args = append(*args, scope.TenantID)
	return fmt.Sprintf("%s = $%d", column, len(*args))
}

// visibilityPredicate matches rows that are public or owned by the scope.
func visibilityPredicate(scope tenant.Scope, ownerColumn, publicColumn string, args *[]any) string {
	if scope.Privileged {
		return "TRUE"
	}
	*args = append(*args, scope.TenantID)
	return fmt.Sprintf("(%s OR %s = $%d)", publicColumn, ownerColumn, len(*args))
}
