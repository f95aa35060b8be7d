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

const EventsTable = "events"

// EventRecord is a scheduled item as stored, plus the display names of its linked client and studio.
type EventRecord struct {
	ID          int64
	OwnerID     uuid.UUID
	Title       string
	Category    string
	Start       time.Time
	End         *time.Time
	AllDay      bool
	ClientID    *int64
	StudioID    *int64
	Color       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	ClientName *string
	StudioName *string
}

var (
	// ErrEventNotFound covers both absence and foreign ownership.
	ErrEventNotFound = errors.New("event not found")
	// ErrInvalidClientRef indicates the linked client does not exist or belongs to another photographer.
	ErrInvalidClientRef = errors.New("client reference is not valid for this photographer")
	// ErrInvalidStudioRef indicates the linked studio does not exist or is neither public nor owned.
	ErrInvalidStudioRef = errors.New("studio reference is not visible to this photographer")
	// ErrInvalidEventRange indicates a stored end that precedes the start.
	ErrInvalidEventRange = errors.New("event end precedes its start")
)

// EventFields is the full, already normalized, mutable state of an event.
type EventFields struct {
	Title       string
	Category    string
	Start       time.Time
	End         *time.Time
	AllDay      bool
	ClientID    *int64
	StudioID    *int64
	Color       string
	Description string
}

// ListEventsParams captures filters and pagination for ListEvents.
type ListEventsParams struct {
	Page     int
	PageSize int
	Category *string
	ClientID *int64
	StudioID *int64
}

// ListEventsResult includes the rows and the total count for pagination metadata.
type ListEventsResult struct {
	Events     []EventRecord
	TotalItems int
}

// QueryEventsParams selects the events overlapping [RangeStart, RangeEnd).
type QueryEventsParams struct {
	RangeStart time.Time
	RangeEnd   time.Time
	Category   *string
}

// EventStore persists events scoped to their owning photographer.
type EventStore struct {
	db *TenantDB
}

func NewEventStore(db *TenantDB) (*EventStore, error) {
	if db == nil {
		return nil, errors.New("tenant db is required")
	}
	return &EventStore{db: db}, nil
}

const eventSelect = `
	SELECT e.id, e.owner_id, e.title, e.category, e.start_at, e.end_at, e.all_day,
	       e.client_id, e.studio_id, e.color, e.description, e.created_at, e.updated_at,
	       CASE WHEN c.id IS NULL THEN NULL ELSE TRIM(c.first_name || ' ' || c.last_name) END,
	       s.name
	FROM events e
	LEFT JOIN clients c ON c.id = e.client_id
	LEFT JOIN studios s ON s.id = e.studio_id`

// CreateEvent inserts an event owned by the scope's tenant. Linked client and studio are
// checked inside the same transaction.
func (s *EventStore) CreateEvent(ctx context.Context, scope tenant.Scope, fields EventFields) (EventRecord, error) {
	var out EventRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		if err := checkEventRefsTx(ctx, tx, scope.TenantID, fields.ClientID, fields.StudioID); err != nil {
			return err
		}

		var id int64
		if err := tx.QueryRow(ctx, fmt.Sprintf(`
			INSERT INTO %s (owner_id, title, category, start_at, end_at, all_day, client_id, studio_id, color, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`, EventsTable),
			scope.TenantID, fields.Title, fields.Category, fields.Start, fields.End, fields.AllDay,
			fields.ClientID, fields.StudioID, fields.Color, fields.Description).Scan(&id); err != nil {
			return err
		}

		var err error
		out, err = getEventTx(ctx, tx, scope, id, false)
		return err
	})
	if err != nil {
		if refErr := referenceErrorFor(err); refErr != nil {
			return EventRecord{}, refErr
		}
		return EventRecord{}, err
	}
	return out, nil
}

// GetEvent returns an event visible to the scope.
func (s *EventStore) GetEvent(ctx context.Context, scope tenant.Scope, id int64) (EventRecord, error) {
	var out EventRecord
	err := s.db.ReadTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		out, err = getEventTx(ctx, tx, scope, id, false)
		return err
	})
	return out, err
}

// UpdateEvent locks the event, lets mutate compute the new state and writes it back.
// References are checked against the event's owner, which may differ from a privileged scope.
func (s *EventStore) UpdateEvent(ctx context.Context, scope tenant.Scope, id int64, mutate func(current EventRecord) (EventFields, error)) (EventRecord, error) {
	var out EventRecord
	err := s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		current, err := getEventTx(ctx, tx, scope, id, true)
		if err != nil {
			return err
		}

		fields, err := mutate(current)
		if err != nil {
			return err
		}

		if err := checkEventRefsTx(ctx, tx, current.OwnerID, fields.ClientID, fields.StudioID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, fmt.Sprintf(`
			UPDATE %s
			SET title = $1, category = $2, start_at = $3, end_at = $4, all_day = $5,
			    client_id = $6, studio_id = $7, color = $8, description = $9, updated_at = NOW()
			WHERE id = $10
		`, EventsTable),
			fields.Title, fields.Category, fields.Start, fields.End, fields.AllDay,
			fields.ClientID, fields.StudioID, fields.Color, fields.Description, id); err != nil {
			return err
		}

		out, err = getEventTx(ctx, tx, scope, id, false)
		return err
	})
	if err != nil {
		if refErr := referenceErrorFor(err); refErr != nil {
			return EventRecord{}, refErr
		}
		return EventRecord{}, err
	}
	return out, nil
}

// DeleteEvent removes an event owned by the scope.
func (s *EventStore) DeleteEvent(ctx context.Context, scope tenant.Scope, id int64) error {
	return s.db.WithTenant(ctx, scope, func(tx pgx.Tx) error {
		args := []any{id}
		tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND %s`,
			EventsTable, ownerPredicate(scope, "owner_id", &args)), args...)
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrEventNotFound
		}
		return nil
	})
}

// ListEvents pages through the scope's events in chronological order.
func (s *EventStore) ListEvents(ctx context.Context, scope tenant.Scope, params ListEventsParams) (ListEventsResult, error) {
	page, pageSize := normalizePage(params.Page, params.PageSize)

	var args []any
	where := []string{ownerPredicate(scope, "e.owner_id", &args)}
	if params.Category != nil && *params.Category != "" {
		args = append(args, *params.Category)
		where = append(where, fmt.Sprintf("e.category = $%d", len(args)))
	}
	if params.ClientID != nil {
		args = append(args, *params.ClientID)
		where = append(where, fmt.Sprintf("e.client_id = $%d", len(args)))
	}
	if params.StudioID != nil {
		args = append(args, *params.StudioID)
		where = append(where, fmt.Sprintf("e.studio_id = $%d", len(args)))
	}
	whereSQL := strings.Join(where, " AND ")

	result := ListEventsResult{Events: []EventRecord{}}
	err := s.db.ReadTenant(ctx, scope, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s e WHERE %s`, EventsTable, whereSQL), args...).
			Scan(&result.TotalItems); err != nil {
			return fmt.Errorf("count events: %w", err)
		}
		if result.TotalItems == 0 {
			return nil
		}

		dataArgs := append(append([]any{}, args...), pageSize, (page-1)*pageSize)
		events, err := queryEventsTx(ctx, tx, fmt.Sprintf(`%s
			WHERE %s
			ORDER BY e.start_at ASC, e.id ASC
			LIMIT $%d OFFSET $%d
		`, eventSelect, whereSQL, len(dataArgs)-1, len(dataArgs)), dataArgs...)
		if err != nil {
			return err
		}
		result.Events = events
		return nil
	})
	if err != nil {
		return ListEventsResult{}, err
	}
	return result, nil
}

// QueryEvents returns the scope's events whose [start, end) interval overlaps
// [RangeStart, RangeEnd), ordered by start then id. An event without an end is treated
// as the instant at its start, and such an instant counts when it falls inside the window.
func (s *EventStore) QueryEvents(ctx context.Context, scope tenant.Scope, params QueryEventsParams) ([]EventRecord, error) {
	if !params.RangeEnd.After(params.RangeStart) {
		return []EventRecord{}, nil
	}

	var args []any
	where := []string{ownerPredicate(scope, "e.owner_id", &args)}
	if params.Category != nil && *params.Category != "" {
		args = append(args, *params.Category)
		where = append(where, fmt.Sprintf("e.category = $%d", len(args)))
	}
	args = append(args, params.RangeEnd, params.RangeStart)
	endIdx, startIdx := len(args)-1, len(args)
	where = append(where,
		fmt.Sprintf("e.start_at < $%d", endIdx),
		fmt.Sprintf("(COALESCE(e.end_at, e.start_at) > $%[1]d OR e.start_at >= $%[1]d)", startIdx))

	var events []EventRecord
	err := s.db.ReadTenant(ctx, scope, func(tx pgx.Tx) error {
		var err error
		events, err = queryEventsTx(ctx, tx, fmt.Sprintf(`%s
			WHERE %s
			ORDER BY e.start_at ASC, e.id ASC
		`, eventSelect, strings.Join(where, " AND ")), args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func queryEventsTx(ctx context.Context, tx pgx.Tx, query string, args ...any) ([]EventRecord, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []EventRecord{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func getEventTx(ctx context.Context, tx pgx.Tx, scope tenant.Scope, id int64, forUpdate bool) (EventRecord, error) {
	args := []any{id}
	query := fmt.Sprintf(`%s WHERE e.id = $1 AND %s`, eventSelect, ownerPredicate(scope, "e.owner_id", &args))
	if forUpdate {
		query += " FOR UPDATE OF e"
	}

	ev, err := scanEvent(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EventRecord{}, ErrEventNotFound
		}
		return EventRecord{}, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// checkEventRefsTx verifies that a linked client belongs to owner and that a linked studio
// is public or created by owner. The rows are share-locked until commit.
func checkEventRefsTx(ctx context.Context, tx pgx.Tx, owner uuid.UUID, clientID, studioID *int64) error {
	if clientID != nil {
		var ok bool
		if err := tx.QueryRow(ctx, fmt.Sprintf(`
			SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND owner_id = $2 FOR KEY SHARE)
		`, ClientsTable), *clientID, owner).Scan(&ok); err != nil {
			return fmt.Errorf("check client reference: %w", err)
		}
		if !ok {
			return ErrInvalidClientRef
		}
	}
	if studioID != nil {
		var ok bool
		if err := tx.QueryRow(ctx, fmt.Sprintf(`
			SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND (is_public OR created_by = $2) FOR KEY SHARE)
		`, StudiosTable), *studioID, owner).Scan(&ok); err != nil {
			return fmt.Errorf("check studio reference: %w", err)
		}
		if !ok {
			return ErrInvalidStudioRef
		}
	}
	return nil
}

func scanEvent(row pgx.Row) (EventRecord, error) {
	var ev EventRecord
	if err := row.Scan(&ev.ID, &ev.OwnerID, &ev.Title, &ev.Category, &ev.Start, &ev.End, &ev.AllDay,
		&ev.ClientID, &ev.StudioID, &ev.Color, &ev.Description, &ev.CreatedAt, &ev.UpdatedAt,
		&ev.ClientName, &ev.StudioName); err != nil {
		return EventRecord{}, err
	}
	return ev, nil
}
