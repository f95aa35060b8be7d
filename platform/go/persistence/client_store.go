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

const ClientsTable = "clients"

// ClientRecord is a customer of a photographer.
type ClientRecord struct {
	ID          int64
	OwnerID     uuid.UUID
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Address     string
	Notes       string
	BirthDate   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FullName renders "first last" the way calendar feeds display clients.
func (c ClientRecord) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ErrClientNotFound covers both absence and foreign ownership.
var ErrClientNotFound = errors.New("client not found")

// ClientFields is the full mutable state of a client.
type ClientFields struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Address     string
	Notes       string
	BirthDate   *time.Time
}

// ListClientsParams captures filters and pagination for ListClients.
type ListClientsParams struct {
	Page     int
	PageSize int
	Search   *string
}

// ListClientsResult includes the rows and the total count for pagination metadata.
type ListClientsResult struct {
	Clients    []ClientRecord
	TotalItems int
}

// ClientStore persists clients scoped to their owning photographer.
type ClientStore struct {
	db *TenantDB
}

func NewClientStore(db *TenantDB) (*ClientStore, error) {
	if db == nil {
		return nil, errors.New("tenant db is required")
	}
	return &ClientStore{db: db}, nil
}

const clientColumns = `id, owner_id, first_name, last_name, email, phone_number, address, notes, birth_date, created_at, updated_at`

// CreateClient inserts a client owned by the scope's tenant.
func (s *ClientStore) CreateClient(ctx context.Context, scope tenant.Scope, fields ClientFields) (ClientRecord, error) {
	var out ClientRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = scanClient(tx.QueryRow(ctx, fmt.Sprintf(`
			INSERT INTO %s (owner_id, first_name, last_name, email, phone_number, address, notes, birth_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING %s
		`, ClientsTable, clientColumns),
			scope.TenantID, fields.FirstName, fields.LastName, fields.Email,
			fields.PhoneNumber, fields.Address, fields.Notes, fields.BirthDate))
		return err
	})
	if err != nil {
		if _, ok := foreignKeyViolation(err); ok {
			return ClientRecord{}, ErrPhotographerNotFound
		}
		return ClientRecord{}, err
	}
	return out, nil
}

// GetClient returns a client visible to the scope.
func (s *ClientStore) GetClient(ctx context.Context, scope tenant.Scope, id int64) (ClientRecord, error) {
	var out ClientRecord
	err := s.db.ReadTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = getClientTx(ctx, tx, scope, id, false)
		return err
	})
	return out, err
}

// ListClients returns the scope's clients, newest first.
func (s *ClientStore) ListClients(ctx context.Context, scope tenant.Scope, params ListClientsParams) (ListClientsResult, error) {
	page, pageSize := normalizePage(params.Page, params.PageSize)

	var args []any
	where := []string{ownerPredicate(scope, "owner_id", &args)}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*params.Search))+"%")
		where = append(where, fmt.Sprintf(
			"(LOWER(first_name) LIKE $%[1]d OR LOWER(last_name) LIKE $%[1]d OR LOWER(email) LIKE $%[1]d)", len(args)))
	}
	whereSQL := strings.Join(where, " AND ")

	result := ListClientsResult{Clients: []ClientRecord{}}
	err := s.db.ReadTenant(ctx, scope, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, ClientsTable, whereSQL), args...).
			Scan(&result.TotalItems); err != nil {
			return fmt.Errorf("count clients: %w", err)
		}
		if result.TotalItems == 0 {
			return nil
		}

		dataArgs := append(append([]any{}, args...), pageSize, (page-1)*pageSize)
		rows, err := tx.Query(ctx, fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE %s
			ORDER BY created_at DESC, id DESC
			LIMIT $%d OFFSET $%d
		`, clientColumns, ClientsTable, whereSQL, len(dataArgs)-1, len(dataArgs)), dataArgs...)
		if err != nil {
			return fmt.Errorf("list clients: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanClient(rows)
			if err != nil {
				return fmt.Errorf("scan client: %w", err)
			}
			result.Clients = append(result.Clients, c)
		}
		return rows.Err()
	})
	if err != nil {
		return ListClientsResult{}, err
	}
	return result, nil
}

// UpdateClient loads the client under a row lock, lets mutate compute the new state and writes it back.
func (s *ClientStore) UpdateClient(ctx context.Context, scope tenant.Scope, id int64, mutate func(current ClientRecord) (ClientFields, error)) (ClientRecord, error) {
	var out ClientRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		current, err := getClientTx(ctx, tx, scope, id, true)
		if err != nil {
			return err
		}

		fields, err := mutate(current)
		if err != nil {
			return err
		}

		out, err = scanClient(tx.QueryRow(ctx, fmt.Sprintf(`
			UPDATE %s
			SET first_name = $1, last_name = $2, email = $3, phone_number = $4,
			    address = $5, notes = $6, birth_date = $7, updated_at = NOW()
			WHERE id = $8
			RETURNING %s
		`, ClientsTable, clientColumns),
			fields.FirstName, fields.LastName, fields.Email, fields.PhoneNumber,
			fields.Address, fields.Notes, fields.BirthDate, id))
		return err
	})
	return out, err
}

// DeleteClient removes a client; linked events keep existing with the link cleared.
func (s *ClientStore) DeleteClient(ctx context.Context, scope tenant.Scope, id int64) error {
	return s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		args := []any{id}
		tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND %s`,
			ClientsTable, ownerPredicate(scope, "owner_id", &args)), args...)
		if err != nil {
			return fmt.Errorf("delete client: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrClientNotFound
		}
		return nil
	})
}

func getClientTx(ctx context.Context, tx pgx.Tx, scope tenant.Scope, id int64, forUpdate bool) (ClientRecord, error) {
	args := []any{id}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND %s`,
		clientColumns, ClientsTable, ownerPredicate(scope, "owner_id", &args))
	if forUpdate {
		query += " FOR UPDATE"
	}

	c, err := scanClient(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ClientRecord{}, ErrClientNotFound
		}
		return ClientRecord{}, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

func scanClient(row pgx.Row) (ClientRecord, error) {
	var c ClientRecord
	if err := row.Scan(&c.ID, &c.OwnerID, &c.FirstName, &c.LastName, &c.Email, &c.PhoneNumber,
		&c.Address, &c.Notes, &c.BirthDate, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return ClientRecord{}, err
	}
	return c, nil
}
