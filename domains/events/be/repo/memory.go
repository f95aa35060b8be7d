package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/photohub/photohub-saas/platform/go/calendar"
	"github.com/photohub/photohub-saas/platform/go/persistence"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

// ReferenceLookup resolves linked clients and studios for the in-memory repository.
// A lookup returns the display name and whether the reference is usable by owner.
type ReferenceLookup interface {
	Client(owner uuid.UUID, id int64) (string, bool)
	Studio(owner uuid.UUID, id int64) (string, bool)
}

// MemoryRepository keeps events in process. It applies the same tenant filtering
// and overlap rules as the postgres store and backs tests and offline tooling.
type MemoryRepository struct {
	mu     sync.Mutex
	refs   ReferenceLookup
	nextID int64
	events map[int64]persistence.EventRecord
	now    func() time.Time
}

// NewMemoryRepository returns an empty repository. A nil lookup rejects every link.
func NewMemoryRepository(refs ReferenceLookup) *MemoryRepository {
	return &MemoryRepository{
		refs:   refs,
		events: map[int64]persistence.EventRecord{},
		now:    time.Now,
	}
}

func (m *MemoryRepository) Create(ctx context.Context, fields persistence.EventFields) (persistence.EventRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.EventRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := persistence.EventRecord{OwnerID: scope.TenantID}
	if err := m.apply(&rec, fields); err != nil {
		return persistence.EventRecord{}, err
	}
	m.nextID++
	rec.ID = m.nextID
	rec.CreatedAt = m.now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	m.events[rec.ID] = rec
	return clone(rec), nil
}

func (m *MemoryRepository) Get(ctx context.Context, id int64) (persistence.EventRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.EventRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.events[id]
	if !ok || !scope.Owns(rec.OwnerID) {
		return persistence.EventRecord{}, persistence.ErrEventNotFound
	}
	return clone(rec), nil
}

func (m *MemoryRepository) Update(ctx context.Context, id int64, mutate MutateFunc) (persistence.EventRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.EventRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.events[id]
	if !ok || !scope.Owns(current.OwnerID) {
		return persistence.EventRecord{}, persistence.ErrEventNotFound
	}

	fields, err := mutate(clone(current))
	if err != nil {
		return persistence.EventRecord{}, err
	}

	next := current
	if err := m.apply(&next, fields); err != nil {
		return persistence.EventRecord{}, err
	}
	next.UpdatedAt = m.now().UTC()
	m.events[id] = next
	return clone(next), nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id int64) error {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.events[id]
	if !ok || !scope.Owns(rec.OwnerID) {
		return persistence.ErrEventNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *MemoryRepository) List(ctx context.Context, params persistence.ListEventsParams) (persistence.ListEventsResult, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return persistence.ListEventsResult{}, err
	}

	m.mu.Lock()
	matched := m.filter(scope, func(rec persistence.EventRecord) bool {
		if params.Category != nil && rec.Category != *params.Category {
			return false
		}
		if params.ClientID != nil && (rec.ClientID == nil || *rec.ClientID != *params.ClientID) {
			return false
		}
		if params.StudioID != nil && (rec.StudioID == nil || *rec.StudioID != *params.StudioID) {
			return false
		}
		return true
	})
	m.mu.Unlock()

	result := persistence.ListEventsResult{Events: []persistence.EventRecord{}, TotalItems: len(matched)}
	page, pageSize := params.Page, params.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	from := (page - 1) * pageSize
	if from >= len(matched) {
		return result, nil
	}
	to := min(from+pageSize, len(matched))
	result.Events = append(result.Events, matched[from:to]...)
	return result, nil
}

func (m *MemoryRepository) Query(ctx context.Context, params persistence.QueryEventsParams) ([]persistence.EventRecord, error) {
	scope, err := requireTenantScope(ctx)
	if err != nil {
		return nil, err
	}
	if !params.RangeEnd.After(params.RangeStart) {
		return []persistence.EventRecord{}, nil
	}
	window := calendar.Window{Start: params.RangeStart, End: params.RangeEnd}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.filter(scope, func(rec persistence.EventRecord) bool {
		if params.Category != nil && rec.Category != *params.Category {
			return false
		}
		return window.Overlaps(rec.Start, rec.End)
	}), nil
}

// filter returns matching events visible to scope in chronological order. Callers hold mu.
func (m *MemoryRepository) filter(scope tenant.Scope, keep func(persistence.EventRecord) bool) []persistence.EventRecord {
	out := []persistence.EventRecord{}
	for _, rec := range m.events {
		if scope.Owns(rec.OwnerID) && keep(rec) {
			out = append(out, clone(rec))
		}
	}
	calendar.SortChronological(out,
		func(r persistence.EventRecord) time.Time { return r.Start },
		func(r persistence.EventRecord) int64 { return r.ID })
	return out
}

// apply resolves links against the event owner and copies fields onto rec.
func (m *MemoryRepository) apply(rec *persistence.EventRecord, fields persistence.EventFields) error {
	if fields.End != nil && fields.End.Before(fields.Start) {
		return persistence.ErrInvalidEventRange
	}

	rec.ClientName, rec.StudioName = nil, nil
	if fields.ClientID != nil {
		if m.refs == nil {
			return persistence.ErrInvalidClientRef
		}
		name, ok := m.refs.Client(rec.OwnerID, *fields.ClientID)
		if !ok {
			return persistence.ErrInvalidClientRef
		}
		rec.ClientName = &name
	}
	if fields.StudioID != nil {
		if m.refs == nil {
			return persistence.ErrInvalidStudioRef
		}
		name, ok := m.refs.Studio(rec.OwnerID, *fields.StudioID)
		if !ok {
			return persistence.ErrInvalidStudioRef
		}
		rec.StudioName = &name
	}

	rec.Title = fields.Title
	rec.Category = fields.Category
	rec.Start = fields.Start
	rec.End = copyTime(fields.End)
	rec.AllDay = fields.AllDay
	rec.ClientID = copyInt(fields.ClientID)
	rec.StudioID = copyInt(fields.StudioID)
	rec.Color = fields.Color
	rec.Description = fields.Description
	return nil
}

func clone(rec persistence.EventRecord) persistence.EventRecord {
	rec.End = copyTime(rec.End)
	rec.ClientID = copyInt(rec.ClientID)
	rec.StudioID = copyInt(rec.StudioID)
	if rec.ClientName != nil {
		name := *rec.ClientName
		rec.ClientName = &name
	}
	if rec.StudioName != nil {
		name := *rec.StudioName
		rec.StudioName = &name
	}
	return rec
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
