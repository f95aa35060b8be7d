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
	StudiosTable      = "studios"
	StudioImagesTable = "studio_images"
)

// StudioRecord is a shooting location. Public studios are visible to every photographer;
// only the creator may change them.
type StudioRecord struct {
	ID           int64
	CreatedBy    uuid.UUID
	Name         string
	LocationType string
	City         string
	District     string
	Street       string
	Building     string
	Website      string
	Description  string
	IsPublic     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullAddress joins the address parts, skipping an empty district.
func (s StudioRecord) FullAddress() string {
	parts := []string{s.City}
	if s.District != "" {
		parts = append(parts, s.District)
	}
	parts = append(parts, s.Street, s.Building)
	return strings.Join(parts, ", ")
}

// StudioImageRecord is one picture of a studio.
type StudioImageRecord struct {
	ID        int64
	StudioID  int64
	ObjectKey string
	Caption   string
	IsMain    bool
	CreatedAt time.Time
}

var (
	// ErrStudioNotFound covers absence and studios that are neither public nor owned.
	ErrStudioNotFound = errors.New("studio not found")
	// ErrStudioReadOnly is returned when a visible studio is modified by someone other than its creator.
	ErrStudioReadOnly = errors.New("studio is read-only for this photographer")
	// ErrStudioImageNotFound indicates the image does not exist within the studio.
	ErrStudioImageNotFound = errors.New("studio image not found")
)

// StudioFields is the full mutable state of a studio.
type StudioFields struct {
	Name         string
	LocationType string
	City         string
	District     string
	Street       string
	Building     string
	Website      string
	Description  string
	IsPublic     bool
}

// ListStudiosParams captures filters and pagination for ListStudios.
type ListStudiosParams struct {
	Page         int
	PageSize     int
	Search       *string
	LocationType *string
	OnlyOwn      bool
}

// ListStudiosResult includes the rows and the total count for pagination metadata.
type ListStudiosResult struct {
	Studios    []StudioRecord
	TotalItems int
}

// AddStudioImageParams describes a new image row.
type AddStudioImageParams struct {
	ObjectKey string
	Caption   string
	IsMain    bool
}

// StudioStore persists studios and their images.
type StudioStore struct {
	db   *TenantDB
	main ExclusiveFlag
}

func NewStudioStore(db *TenantDB) (*StudioStore, error) {
	if db == nil {
		return nil, errors.New("tenant db is required")
	}
	return &StudioStore{db: db, main: StudioMainImage}, nil
}

const studioColumns = `id, created_by, name, location_type, city, district, street, building, website, description, is_public, created_at, updated_at`
const studioImageColumns = `id, studio_id, object_key, caption, is_main, created_at`

// CreateStudio inserts a studio created by the scope's tenant.
func (s *StudioStore) CreateStudio(ctx context.Context, scope tenant.Scope, fields StudioFields) (StudioRecord, error) {
	var out StudioRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanStudio(tx.QueryRow(ctx, fmt.Sprintf(`
			INSERT INTO %s (created_by, name, location_type, city, district, street, building, website, description, is_public)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING %s
		`, StudiosTable, studioColumns),
			scope.TenantID, fields.Name, fields.LocationType, fields.City, fields.District,
			fields.Street, fields.Building, fields.Website, fields.Description, fields.IsPublic))
		return err
	})
	if err != nil {
		if _, ok := foreignKeyViolation(err); ok {
			return StudioRecord{}, ErrPhotographerNotFound
		}
		return StudioRecord{}, err
	}
	return out, nil
}

// GetStudio returns a studio that is public or owned by the scope.
func (s *StudioStore) GetStudio(ctx context.Context, scope tenant.Scope, id int64) (StudioRecord, error) {
	var out StudioRecord
	err := s.db.ReadTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = getVisibleStudioTx(ctx, tx, scope, id, false)
		return err
	})
	return out, err
}

// ListStudios returns visible studios ordered by name.
func (s *StudioStore) ListStudios(ctx context.Context, scope tenant.Scope, params ListStudiosParams) (ListStudiosResult, error) {
	page, pageSize := normalizePage(params.Page, params.PageSize)

	var args []any
	var where []string
	if params.OnlyOwn {
		where = append(where, ownerPredicate(scope, "created_by", &args))
	} else {
		where = append(where, visibilityPredicate(scope, "created_by", "is_public", &args))
	}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*params.Search))+"%")
		where = append(where, fmt.Sprintf("(LOWER(name) LIKE $%[1]d OR LOWER(city) LIKE $%[1]d)", len(args)))
	}
	if params.LocationType != nil && *params.LocationType != "" {
		args = append(args, *params.LocationType)
		where = append(where, fmt.Sprintf("location_type = $%d", len(args)))
	}
	whereSQL := strings.Join(where, " AND ")

	result := ListStudiosResult{Studios: []StudioRecord{}}
	err := s.db.ReadTenant(ctx, scope, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, StudiosTable, whereSQL), args...).
			Scan(&result.TotalItems); err != nil {
			return fmt.Errorf("count studios: %w", err)
		}
		if result.TotalItems == 0 {
			return nil
		}

		dataArgs := append(append([]any{}, args...), pageSize, (page-1)*pageSize)
		rows, err := tx.Query(ctx, fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE %s
			ORDER BY name ASC, id ASC
			LIMIT $%d OFFSET $%d
		`, studioColumns, StudiosTable, whereSQL, len(dataArgs)-1, len(dataArgs)), dataArgs...)
		if err != nil {
			return fmt.Errorf("list studios: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			st, err := scanStudio(rows)
			if err != nil {
				return fmt.Errorf("scan studio: %w", err)
			}
			result.Studios = append(result.Studios, st)
		}
		return rows.Err()
	})
	if err != nil {
		return ListStudiosResult{}, err
	}
	return result, nil
}

// UpdateStudio locks the studio, lets mutate compute the new state and writes it back.
func (s *StudioStore) UpdateStudio(ctx context.Context, scope tenant.Scope, id int64, mutate func(current StudioRecord) (StudioFields, error)) (StudioRecord, error) {
	var out StudioRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		current, err := getOwnedStudioTx(ctx, tx, scope, id, true)
		if err != nil {
			return err
		}

		fields, err := mutate(current)
		if err != nil {
			return err
		}

		out, err = scanStudio(tx.QueryRow(ctx, fmt.Sprintf(`
			UPDATE %s
			SET name = $1, location_type = $2, city = $3, district = $4, street = $5,
			    building = $6, website = $7, description = $8, is_public = $9, updated_at = NOW()
			WHERE id = $10
			RETURNING %s
		`, StudiosTable, studioColumns),
			fields.Name, fields.LocationType, fields.City, fields.District, fields.Street,
			fields.Building, fields.Website, fields.Description, fields.IsPublic, id))
		return err
	})
	return out, err
}

// DeleteStudio removes a studio and its images; events keep existing with the link cleared.
func (s *StudioStore) DeleteStudio(ctx context.Context, scope tenant.Scope, id int64) error {
	return s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		if _, err := getOwnedStudioTx(ctx, tx, scope, id, true); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, StudiosTable), id); err != nil {
			return fmt.Errorf("delete studio: %w", err)
		}
		return nil
	})
}

// ListImages returns a visible studio's images, main image first then oldest first.
func (s *StudioStore) ListImages(ctx context.Context, scope tenant.Scope, studioID int64) ([]StudioImageRecord, error) {
	images := []StudioImageRecord{}
	err := s.db.ReadTenant(ctx, scope, func(tx pgx.Tx) error {
		if _, err := getVisibleStudioTx(ctx, tx, scope, studioID, false); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE studio_id = $1
			ORDER BY is_main DESC, created_at ASC, id ASC
		`, studioImageColumns, StudioImagesTable), studioID)
		if err != nil {
			return fmt.Errorf("list studio images: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			img, err := scanStudioImage(rows)
			if err != nil {
				return fmt.Errorf("scan studio image: %w", err)
			}
			images = append(images, img)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}

// AddImage attaches an image to a studio visible to the scope, so photographers can contribute
// pictures of public locations. When params.IsMain is set the new image becomes the only main
// image in the same transaction.
func (s *StudioStore) AddImage(ctx context.Context, scope tenant.Scope, studioID int64, params AddStudioImageParams) (StudioImageRecord, error) {
	var out StudioImageRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		studio, err := getVisibleStudioTx(ctx, tx, scope, studioID, false)
		if err != nil {
			return err
		}
		if params.IsMain && !scope.Owns(studio.CreatedBy) {
			return ErrStudioReadOnly
		}

		out, err = scanStudioImage(tx.QueryRow(ctx, fmt.Sprintf(`
			INSERT INTO %s (studio_id, object_key, caption, is_main)
			VALUES ($1, $2, $3, FALSE)
			RETURNING %s
		`, StudioImagesTable, studioImageColumns), studioID, params.ObjectKey, params.Caption))
		if err != nil {
			return fmt.Errorf("insert studio image: %w", err)
		}

		if params.IsMain {
			if err := s.main.SetTx(ctx, tx, studioID, out.ID); err != nil {
				return err
			}
			out.IsMain = true
		}
		return nil
	})
	return out, err
}

// DeleteImage removes one image of a studio the scope owns.
func (s *StudioStore) DeleteImage(ctx context.Context, scope tenant.Scope, studioID, imageID int64) error {
	return s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		if _, err := getOwnedStudioTx(ctx, tx, scope, studioID, false); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND studio_id = $2`, StudioImagesTable), imageID, studioID)
		if err != nil {
			return fmt.Errorf("delete studio image: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrStudioImageNotFound
		}
		return nil
	})
}

// SetMainImage makes imageID the only main image of the studio.
func (s *StudioStore) SetMainImage(ctx context.Context, scope tenant.Scope, studioID, imageID int64) error {
	return s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		if _, err := getOwnedStudioTx(ctx, tx, scope, studioID, false); err != nil {
			return err
		}
		err := s.main.SetTx(ctx, tx, studioID, imageID)
		if errors.Is(err, ErrFlagMemberNotFound) {
			return ErrStudioImageNotFound
		}
		return err
	})
}

func getVisibleStudioTx(ctx context.Context, tx pgx.Tx, scope tenant.Scope, id int64, forUpdate bool) (StudioRecord, error) {
	args := []any{id}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND %s`,
		studioColumns, StudiosTable, visibilityPredicate(scope, "created_by", "is_public", &args))
	if forUpdate {
		query += " FOR UPDATE"
	}

	st, err := scanStudio(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StudioRecord{}, ErrStudioNotFound
		}
		return StudioRecord{}, fmt.Errorf("get studio: %w", err)
	}
	return st, nil
}

// getOwnedStudioTx distinguishes "cannot see" (not found) from "can see but not edit" (read-only).
func getOwnedStudioTx(ctx context.Context, tx pgx.Tx, scope tenant.Scope, id int64, forUpdate bool) (StudioRecord, error) {
	st, err := getVisibleStudioTx(ctx, tx, scope, id, forUpdate)
	if err != nil {
		return StudioRecord{}, err
	}
	if !scope.Owns(st.CreatedBy) {
		return StudioRecord{}, ErrStudioReadOnly
	}
	return st, nil
}

func scanStudio(row pgx.Row) (StudioRecord, error) {
	var s StudioRecord
	if err := row.Scan(&s.ID, &s.CreatedBy, &s.Name, &s.LocationType, &s.City, &s.District, &s.Street,
		&s.Building, &s.Website, &s.Description, &s.IsPublic, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return StudioRecord{}, err
	}
	return s, nil
}

func scanStudioImage(row pgx.Row) (StudioImageRecord, error) {
	var img StudioImageRecord
	if err := row.Scan(&img.ID, &img.StudioID, &img.ObjectKey, &img.Caption, &img.IsMain, &img.CreatedAt); err != nil {
		return StudioImageRecord{}, err
	}
	return img, nil
}
