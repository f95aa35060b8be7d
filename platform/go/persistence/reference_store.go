package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/photohub/photohub-saas/platform/go/tenant"
)

const (
	ReferenceCategoriesTable = "reference_categories"
	ReferencesTable          = "photo_references"
)

var (
	// ErrReferenceNotFound covers both absence and foreign ownership.
	ErrReferenceNotFound = errors.New("reference not found")
	// ErrReferenceCategoryNotFound covers both absence and foreign ownership.
	ErrReferenceCategoryNotFound = errors.New("reference category not found")
	// ErrInvalidCategoryRef indicates the linked category does not exist or belongs to another photographer.
	ErrInvalidCategoryRef = errors.New("reference category is not valid for this photographer")
)

// ReferenceCategoryRecord groups a photographer's references.
type ReferenceCategoryRecord struct {
	ID             int64
	OwnerID        uuid.UUID
	Name           string
	Description    string
	CreatedAt      time.Time
	ReferenceCount int
}

// ReferenceCategoryFields is the mutable state of a category.
type ReferenceCategoryFields struct {
	Name        string
	Description string
}

// ReferenceRecord is an inspiration image kept by a photographer.
type ReferenceRecord struct {
	ID          int64
	OwnerID     uuid.UUID
	CategoryID  *int64
	Title       string
	ObjectKey   string
	Description string
	SourceURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	CategoryName *string
}

// ReferenceFields is the full, already normalized, mutable state of a reference.
type ReferenceFields struct {
	CategoryID  *int64
	Title       string
	ObjectKey   string
	Description string
	SourceURL   string
}

// ListReferencesParams captures filters and pagination for ListReferences.
type ListReferencesParams struct {
	Page       int
	PageSize   int
	CategoryID *int64
	Search     *string
}

// ListReferencesResult includes the rows and the total count for pagination metadata.
type ListReferencesResult struct {
	References []ReferenceRecord
	TotalItems int
}

// ReferenceStore persists reference categories and references scoped to their owner.
type ReferenceStore struct {
	db *TenantDB
}

func NewReferenceStore(db *TenantDB) (*ReferenceStore, error) {
	if db == nil {
		return nil, errors.New("tenant db is required")
	}
	return &ReferenceStore{db: db}, nil
}

const (
	categoryColumns  = `c.id, c.owner_id, c.name, c.description, c.created_at`
	referenceColumns = `r.id, r.owner_id, r.category_id, r.title, r.object_key, r.description, r.source_url, r.created_at, r.updated_at, c.name`
)

var referenceFrom = fmt.Sprintf(`%s r LEFT JOIN %s c ON c.id = r.category_id`, ReferencesTable, ReferenceCategoriesTable)

// CreateCategory inserts a category owned by the scope's tenant.
func (s *ReferenceStore) CreateCategory(ctx context.Context, scope tenant.Scope, fields ReferenceCategoryFields) (ReferenceCategoryRecord, error) {
	var out ReferenceCategoryRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanCategory(tx.QueryRow(ctx, fmt.Sprintf(`
			INSERT INTO %s AS c (owner_id, name, description)
			VALUES ($1, $2, $3)
			RETURNING %s, 0
		`, ReferenceCategoriesTable, categoryColumns), scope.TenantID, fields.Name, fields.Description))
		return err
	})
	if err != nil {
		if _, ok := foreignKeyViolation(err); ok {
			return ReferenceCategoryRecord{}, ErrPhotographerNotFound
		}
		return ReferenceCategoryRecord{}, err
	}
	return out, nil
}

// ListCategories returns the scope's categories ordered by name with their reference counts.
func (s *ReferenceStore) ListCategories(ctx context.Context, scope tenant.Scope) ([]ReferenceCategoryRecord, error) {
	var args []any
	query := fmt.Sprintf(`
		SELECT %s, (SELECT COUNT(*) FROM %s r WHERE r.category_id = c.id)
		FROM %s c
		WHERE %s
		ORDER BY c.name ASC, c.id ASC
	`, categoryColumns, ReferencesTable, ReferenceCategoriesTable, ownerPredicate(scope, "c.owner_id", &args))

	out := []ReferenceCategoryRecord{}
	err := s.db.ReadTenant(ctx, scope, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("list reference categories: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			c, err := scanCategory(rows)
			if err != nil {
				return fmt.Errorf("scan reference category: %w", err)
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetCategory returns a category owned by the scope.
func (s *ReferenceStore) GetCategory(ctx context.Context, scope tenant.Scope, id int64) (ReferenceCategoryRecord, error) {
	var out ReferenceCategoryRecord
	err := s.db.ReadTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = getCategoryTx(ctx, tx, scope, id, false)
		return err
	})
	return out, err
}

// UpdateCategory loads the category under a row lock, lets mutate compute the new state and writes it back.
func (s *ReferenceStore) UpdateCategory(ctx context.Context, scope tenant.Scope, id int64, mutate func(current ReferenceCategoryRecord) (ReferenceCategoryFields, error)) (ReferenceCategoryRecord, error) {
	var out ReferenceCategoryRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		current, err := getCategoryTx(ctx, tx, scope, id, true)
		if err != nil {
			return err
		}
		fields, err := mutate(current)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(`UPDATE %s SET name = $1, description = $2 WHERE id = $3`, ReferenceCategoriesTable),
			fields.Name, fields.Description, id); err != nil {
			return fmt.Errorf("update reference category: %w", err)
		}
		out, err = getCategoryTx(ctx, tx, scope, id, false)
		return err
	})
	return out, err
}

// DeleteCategory removes a category; its references stay with the category cleared.
func (s *ReferenceStore) DeleteCategory(ctx context.Context, scope tenant.Scope, id int64) error {
	return s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		args := []any{id}
		tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND %s`,
			ReferenceCategoriesTable, ownerPredicate(scope, "owner_id", &args)), args...)
		if err != nil {
			return fmt.Errorf("delete reference category: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrReferenceCategoryNotFound
		}
		return nil
	})
}

// CreateReference inserts a reference owned by the scope's tenant.
func (s *ReferenceStore) CreateReference(ctx context.Context, scope tenant.Scope, fields ReferenceFields) (ReferenceRecord, error) {
	var out ReferenceRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		if err := checkCategoryRefTx(ctx, tx, scope.TenantID, fields.CategoryID); err != nil {
			return err
		}
		var id int64
		if err := tx.QueryRow(ctx, fmt.Sprintf(`
			INSERT INTO %s (owner_id, category_id, title, object_key, description, source_url)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, ReferencesTable), scope.TenantID, fields.CategoryID, fields.Title, fields.ObjectKey,
			fields.Description, fields.SourceURL).Scan(&id); err != nil {
			return err
		}
		var err error
		out, err = getReferenceTx(ctx, tx, scope, id, false)
		return err
	})
	if err != nil {
		if constraint, ok := foreignKeyViolation(err); ok {
			if strings.Contains(constraint, "category") {
				return ReferenceRecord{}, ErrInvalidCategoryRef
			}
			return ReferenceRecord{}, ErrPhotographerNotFound
		}
		return ReferenceRecord{}, err
	}
	return out, nil
}

// GetReference returns a reference owned by the scope.
func (s *ReferenceStore) GetReference(ctx context.Context, scope tenant.Scope, id int64) (ReferenceRecord, error) {
	var out ReferenceRecord
	err := s.db.ReadTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = getReferenceTx(ctx, tx, scope, id, false)
		return err
	})
	return out, err
}

// ListReferences returns the scope's references, newest first, optionally narrowed to one
// category or to titles and descriptions containing the search text.
func (s *ReferenceStore) ListReferences(ctx context.Context, scope tenant.Scope, params ListReferencesParams) (ListReferencesResult, error) {
	page, pageSize := normalizePage(params.Page, params.PageSize)

	var args []any
	where := []string{ownerPredicate(scope, "r.owner_id", &args)}
	if params.CategoryID != nil {
		args = append(args, *params.CategoryID)
		where = append(where, fmt.Sprintf("r.category_id = $%d", len(args)))
	}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*params.Search))+"%")
		where = append(where, fmt.Sprintf("(LOWER(r.title) LIKE $%[1]d OR LOWER(r.description) LIKE $%[1]d)", len(args)))
	}
	whereSQL := strings.Join(where, " AND ")

	result := ListReferencesResult{References: []ReferenceRecord{}}
	err := s.db.ReadTenant(ctx, scope, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s r WHERE %s`, ReferencesTable, whereSQL), args...).
			Scan(&result.TotalItems); err != nil {
			return fmt.Errorf("count references: %w", err)
		}
		if result.TotalItems == 0 {
			return nil
		}

		dataArgs := append(append([]any{}, args...), pageSize, (page-1)*pageSize)
		refs, err := queryReferencesTx(ctx, tx, fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE %s
			ORDER BY r.created_at DESC, r.id DESC
			LIMIT $%d OFFSET $%d
		`, referenceColumns, referenceFrom, whereSQL, len(dataArgs)-1, len(dataArgs)), dataArgs...)
		result.References = refs
		return err
	})
	if err != nil {
		return ListReferencesResult{}, err
	}
	return result, nil
}

// RelatedReferences returns up to limit other references of the same owner, those sharing
// the reference's category first, newest first within each group.
func (s *ReferenceStore) RelatedReferences(ctx context.Context, scope tenant.Scope, id int64, limit int) ([]ReferenceRecord, error) {
	if limit <= 0 {
		return []ReferenceRecord{}, nil
	}
	var out []ReferenceRecord
	err := s.db.ReadTenant(ctx, scope, func(tx pgx.Tx) error {
		target, err := getReferenceTx(ctx, tx, scope, id, false)
		if err != nil {
			return err
		}
		out, err = queryReferencesTx(ctx, tx, fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE r.owner_id = $1 AND r.id <> $2
			ORDER BY COALESCE(r.category_id = $3::BIGINT, FALSE) DESC, r.created_at DESC, r.id DESC
			LIMIT $4
		`, referenceColumns, referenceFrom), target.OwnerID, target.ID, target.CategoryID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateReference loads the reference under a row lock, lets mutate compute the new state and writes it back.
func (s *ReferenceStore) UpdateReference(ctx context.Context, scope tenant.Scope, id int64, mutate func(current ReferenceRecord) (ReferenceFields, error)) (ReferenceRecord, error) {
	var out ReferenceRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		current, err := getReferenceTx(ctx, tx, scope, id, true)
		if err != nil {
			return err
		}
		fields, err := mutate(current)
		if err != nil {
			return err
		}
		if err := checkCategoryRefTx(ctx, tx, current.OwnerID, fields.CategoryID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(`
			UPDATE %s
			SET category_id = $1, title = $2, object_key = $3, description = $4, source_url = $5, updated_at = NOW()
			WHERE id = $6
		`, ReferencesTable), fields.CategoryID, fields.Title, fields.ObjectKey, fields.Description, fields.SourceURL, id); err != nil {
			return fmt.Errorf("update reference: %w", err)
		}
		out, err = getReferenceTx(ctx, tx, scope, id, false)
		return err
	})
	return out, err
}

// DeleteReference removes a reference and returns the deleted row so its image can be cleaned up.
func (s *ReferenceStore) DeleteReference(ctx context.Context, scope tenant.Scope, id int64) (ReferenceRecord, error) {
	var out ReferenceRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = getReferenceTx(ctx, tx, scope, id, true)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, ReferencesTable), id); err != nil {
			return fmt.Errorf("delete reference: %w", err)
		}
		return nil
	})
	return out, err
}

func getCategoryTx(ctx context.Context, tx pgx.Tx, scope tenant.Scope, id int64, forUpdate bool) (ReferenceCategoryRecord, error) {
	args := []any{id}
	query := fmt.Sprintf(`
		SELECT %s, (SELECT COUNT(*) FROM %s r WHERE r.category_id = c.id)
		FROM %s c WHERE c.id = $1 AND %s
	`, categoryColumns, ReferencesTable, ReferenceCategoriesTable, ownerPredicate(scope, "c.owner_id", &args))
	if forUpdate {
		query += " FOR UPDATE OF c"
	}

	c, err := scanCategory(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReferenceCategoryRecord{}, ErrReferenceCategoryNotFound
		}
		return ReferenceCategoryRecord{}, fmt.Errorf("get reference category: %w", err)
	}
	return c, nil
}

func getReferenceTx(ctx context.Context, tx pgx.Tx, scope tenant.Scope, id int64, forUpdate bool) (ReferenceRecord, error) {
	args := []any{id}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE r.id = $1 AND %s`,
		referenceColumns, referenceFrom, ownerPredicate(scope, "r.owner_id", &args))
	if forUpdate {
		query += " FOR UPDATE OF r"
	}

	ref, err := scanReference(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReferenceRecord{}, ErrReferenceNotFound
		}
		return ReferenceRecord{}, fmt.Errorf("get reference: %w", err)
	}
	return ref, nil
}

func queryReferencesTx(ctx context.Context, tx pgx.Tx, query string, args ...any) ([]ReferenceRecord, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query references: %w", err)
	}
	defer rows.Close()

	out := []ReferenceRecord{}
	for rows.Next() {
		ref, err := scanReference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// checkCategoryRefTx verifies that a linked category belongs to owner.
func checkCategoryRefTx(ctx context.Context, tx pgx.Tx, owner uuid.UUID, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	var ok bool
	if err := tx.QueryRow(ctx, fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND owner_id = $2 FOR KEY SHARE)
	`, ReferenceCategoriesTable), *categoryID, owner).Scan(&ok); err != nil {
		return fmt.Errorf("check category reference: %w", err)
	}
	if !ok {
		return ErrInvalidCategoryRef
	}
	return nil
}

func scanCategory(row pgx.Row) (ReferenceCategoryRecord, error) {
	var c ReferenceCategoryRecord
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.CreatedAt, &c.ReferenceCount); err != nil {
		return ReferenceCategoryRecord{}, err
	}
	return c, nil
}

func scanReference(row pgx.Row) (ReferenceRecord, error) {
	var r ReferenceRecord
	if err := row.Scan(&r.ID, &r.OwnerID, &r.CategoryID, &r.Title, &r.ObjectKey, &r.Description,
		&r.SourceURL, &r.CreatedAt, &r.UpdatedAt, &r.CategoryName); err != nil {
		return ReferenceRecord{}, err
	}
	return r, nil
}
