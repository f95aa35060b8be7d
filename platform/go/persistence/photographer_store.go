package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const PhotographersTable = "photographers"

// Photographer represents a row in the photographers table. Photographers are the tenants.
type Photographer struct {
	ID          uuid.UUID `db:"photographer_id" json:"id"`
	Email       string    `db:"email" json:"email"`
	FirstName   string    `db:"first_name" json:"firstName"`
	LastName    string    `db:"last_name" json:"lastName"`
	PhoneNumber string    `db:"phone_number" json:"phoneNumber"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

var (
	// ErrPhotographerNotFound indicates a missing photographer record.
	ErrPhotographerNotFound = errors.New("photographer not found")
	// ErrPhotographerConflict indicates a uniqueness violation (duplicated email or id).
	ErrPhotographerConflict = errors.New("photographer conflict")
)

// PhotographerStore exposes persistence helpers for the photographers table.
type PhotographerStore struct {
	db *TenantDB
}

// NewPhotographerStore returns a store instance.
func NewPhotographerStore(db *TenantDB) (*PhotographerStore, error) {
	if db == nil {
		return nil, errors.New("tenant db is required")
	}
	return &PhotographerStore{db: db}, nil
}

// ListPhotographersParams captures filters and pagination for ListPhotographers.
type ListPhotographersParams struct {
	Page     int
	PageSize int
	Sort     *string
	Email    *string
}

// ListPhotographersResult includes the rows and the total count for pagination metadata.
type ListPhotographersResult struct {
	Photographers []Photographer
	TotalItems    int
}

// CreatePhotographerParams captures the fields required to insert a new photographer.
type CreatePhotographerParams struct {
	ID          uuid.UUID
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
}

const photographerColumns = `photographer_id, email, first_name, last_name, phone_number, created_at, updated_at`

// CreatePhotographer inserts a new photographer and returns the persisted record.
func (s *PhotographerStore) CreatePhotographer(ctx context.Context, params CreatePhotographerParams) (Photographer, error) {
	if params.ID == uuid.Nil {
		return Photographer{}, errors.New("photographer id is required")
	}

	var out Photographer
	err := s.db.WithAdmin(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
			INSERT INTO %s (photographer_id, email, first_name, last_name, phone_number)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING %s
		`, PhotographersTable, photographerColumns),
			params.ID,
			strings.ToLower(strings.TrimSpace(params.Email)),
			strings.TrimSpace(params.FirstName),
			strings.TrimSpace(params.LastName),
			strings.TrimSpace(params.PhoneNumber),
		)

		var err error
		out, err = scanPhotographer(row)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return Photographer{}, ErrPhotographerConflict
		}
		return Photographer{}, err
	}

	return out, nil
}

// ListPhotographers returns photographers matching the filters with pagination applied.
func (s *PhotographerStore) ListPhotographers(ctx context.Context, params ListPhotographersParams) (ListPhotographersResult, error) {
	page, pageSize := normalizePage(params.Page, params.PageSize)

	whereParts := []string{"1=1"}
	var args []any

	if params.Email != nil && strings.TrimSpace(*params.Email) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*params.Email))+"%")
		whereParts = append(whereParts, fmt.Sprintf("LOWER(email) LIKE $%d", len(args)))
	}

	whereSQL := strings.Join(whereParts, " AND ")

	orderSQL, err := buildPhotographerOrderBy(params.Sort)
	if err != nil {
		return ListPhotographersResult{}, err
	}

	result := ListPhotographersResult{Photographers: []Photographer{}}
	err = s.db.WithAdmin(ctx, func(tx pgx.Tx) error {
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", PhotographersTable, whereSQL)
		if err := tx.QueryRow(ctx, countQuery, args...).Scan(&result.TotalItems); err != nil {
			return fmt.Errorf("count photographers: %w", err)
		}
		if result.TotalItems == 0 {
			return nil
		}

		dataArgs := append(append([]any{}, args...), pageSize, (page-1)*pageSize)
		query := fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE %s
			%s
			LIMIT $%d OFFSET $%d
		`, photographerColumns, PhotographersTable, whereSQL, orderSQL, len(dataArgs)-1, len(dataArgs))

		rows, err := tx.Query(ctx, query, dataArgs...)
		if err != nil {
			return fmt.Errorf("list photographers: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			p, scanErr := scanPhotographer(rows)
			if scanErr != nil {
				return fmt.Errorf("scan photographer: %w", scanErr)
			}
			result.Photographers = append(result.Photographers, p)
		}
		return rows.Err()
	})
	if err != nil {
		return ListPhotographersResult{}, err
	}

	return result, nil
}

func buildPhotographerOrderBy(sort *string) (string, error) {
	return buildOrderBy(sort, "ORDER BY created_at DESC", map[string]string{
		"email":     "email",
		"lastName":  "last_name",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	})
}

// GetPhotographer returns a single photographer by identifier.
func (s *PhotographerStore) GetPhotographer(ctx context.Context, id uuid.UUID) (Photographer, error) {
	var out Photographer
	err := s.db.WithAdmin(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanPhotographer(tx.QueryRow(ctx, fmt.Sprintf(
			`SELECT %s FROM %s WHERE photographer_id = $1`, photographerColumns, PhotographersTable), id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Photographer{}, ErrPhotographerNotFound
		}
		return Photographer{}, err
	}
	return out, nil
}

// PhotographerExists reports whether the id belongs to a registered photographer.
func (s *PhotographerStore) PhotographerExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.WithAdmin(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, fmt.Sprintf(
			`SELECT EXISTS (SELECT 1 FROM %s WHERE photographer_id = $1)`, PhotographersTable), id).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("lookup photographer: %w", err)
	}
	return exists, nil
}

// UpdatePhotographerParams represents self-editable profile fields.
type UpdatePhotographerParams struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
}

// UpdatePhotographer applies the provided fields and returns the updated record.
func (s *PhotographerStore) UpdatePhotographer(ctx context.Context, id uuid.UUID, params UpdatePhotographerParams) (Photographer, error) {
	setParts := []string{}
	var args []any

	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, strings.TrimSpace(*value))
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("first_name", params.FirstName)
	add("last_name", params.LastName)
	add("phone_number", params.PhoneNumber)

	if len(setParts) == 0 {
		return Photographer{}, errors.New("no fields to update")
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s, updated_at = NOW()
		WHERE photographer_id = $%d
		RETURNING %s
	`, PhotographersTable, strings.Join(setParts, ", "), len(args), photographerColumns)

	var out Photographer
	err := s.db.WithAdmin(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanPhotographer(tx.QueryRow(ctx, query, args...))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Photographer{}, ErrPhotographerNotFound
		}
		return Photographer{}, err
	}
	return out, nil
}

// DeletePhotographer removes a photographer. Events, clients and studios cascade.
func (s *PhotographerStore) DeletePhotographer(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrPhotographerNotFound
	}

	return s.db.WithAdmin(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE photographer_id = $1`, PhotographersTable), id)
		if err != nil {
			return fmt.Errorf("delete photographer: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrPhotographerNotFound
		}
		return nil
	})
}

func scanPhotographer(row pgx.Row) (Photographer, error) {
	var p Photographer
	if err := row.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.PhoneNumber, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Photographer{}, err
	}
	return p, nil
}
