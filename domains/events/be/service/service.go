package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/photohub/photohub-saas/domains/events/be/repo"
	"github.com/photohub/photohub-saas/platform/go/calendar"
	"github.com/photohub/photohub-saas/platform/go/logging"
	"github.com/photohub/photohub-saas/platform/go/persistence"
	"github.com/photohub/photohub-saas/platform/go/requesttrace"
)

// Optional is a patch value for a nullable field.
// Set distinguishes "leave unchanged" from "clear" (Set with a nil Value).
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a patch that sets the field to v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a patch that clears the field.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// UpdateInput carries a partial edit. Nil pointers and unset optionals keep the stored value.
type UpdateInput struct {
	Title       *string
	Category    *Category
	Start       *time.Time
	End         Optional[time.Time]
	AllDay      *bool
	ClientID    Optional[int64]
	StudioID    Optional[int64]
	Color       *string
	Description *string
}

func (in UpdateInput) empty() bool {
	return in.Title == nil && in.Category == nil && in.Start == nil && !in.End.Set &&
		in.AllDay == nil && !in.ClientID.Set && !in.StudioID.Set && in.Color == nil && in.Description == nil
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
	Page     int
	PageSize int
	Category *Category
	ClientID *int64
	StudioID *int64
}

// ListResult wraps a page of events with pagination metadata.
type ListResult struct {
	Events     []Event
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// QueryOptions selects events overlapping a window. Missing bounds fall back to the default span around now.
type QueryOptions struct {
	Start    *time.Time
	End      *time.Time
	Category *Category
}

// Suggestion holds the defaults offered when a new event is being drafted.
type Suggestion struct {
	Category Category
	Start    time.Time
	End      time.Time
	AllDay   bool
	Color    string
}

// Service defines the business operations for the events domain.
type Service interface {
	Create(ctx context.Context, audit requesttrace.AuditInfo, input Draft) (Event, error)
	Get(ctx context.Context, id int64) (Event, error)
	Update(ctx context.Context, audit requesttrace.AuditInfo, id int64, input UpdateInput) (Event, error)
	Delete(ctx context.Context, audit requesttrace.AuditInfo, id int64) error
	List(ctx context.Context, opts ListOptions) (ListResult, error)
	Query(ctx context.Context, opts QueryOptions) ([]Event, error)
	Suggest(category *Category) (Suggestion, error)
}

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	Now         func() time.Time
	QueryWindow time.Duration
	Logger      *zap.Logger
	// Location is the calendar all-day events are clamped in. UTC when nil.
	Location *time.Location
}

type service struct {
	repo        repo.Repository
	now         func() time.Time
	queryWindow time.Duration
	logger      *zap.Logger
	location    *time.Location
}

// New constructs an events Service instance backed by the provided repository.
func New(r repo.Repository, opts Options) Service {
	if r == nil {
		panic("events repository is required")
	}
	s := &service{
		repo:        r,
		now:         opts.Now,
		queryWindow: opts.QueryWindow,
		logger:      opts.Logger,
		location:    opts.Location,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.queryWindow <= 0 {
		s.queryWindow = calendar.DefaultSpan
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.location == nil {
		s.location = time.UTC
	}
	return s
}

func (s *service) Create(ctx context.Context, audit requesttrace.AuditInfo, input Draft) (Event, error) {
	draft, err := ValidateAndNormalize(input.In(s.location), ModeCreate, s.now())
	if err != nil {
		return Event{}, err
	}

	record, err := s.repo.Create(ctx, fieldsFromDraft(draft))
	if err != nil {
		return Event{}, mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("event created", zap.Int64("event_id", record.ID), zap.String("category", record.Category))
	return mapEvent(record), nil
}

func (s *service) Get(ctx context.Context, id int64) (Event, error) {
	if id <= 0 {
		return Event{}, ErrNotFound
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return Event{}, mapPersistenceError(err)
	}
	return mapEvent(record), nil
}

func (s *service) Update(ctx context.Context, audit requesttrace.AuditInfo, id int64, input UpdateInput) (Event, error) {
	if id <= 0 {
		return Event{}, ErrNotFound
	}
	if input.empty() {
		return Event{}, invalid("payload", "at least one field must be provided")
	}

	now := s.now()
	record, err := s.repo.Update(ctx, id, func(current persistence.EventRecord) (persistence.EventFields, error) {
		draft, err := ValidateAndNormalize(mergeDraft(current, input).In(s.location), ModeUpdate, now)
		if err != nil {
			return persistence.EventFields{}, err
		}
		return fieldsFromDraft(draft), nil
	})
	if err != nil {
		return Event{}, mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("event updated", zap.Int64("event_id", record.ID))
	return mapEvent(record), nil
}

func (s *service) Delete(ctx context.Context, audit requesttrace.AuditInfo, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("event deleted", zap.Int64("event_id", id))
	return nil
}

func (s *service) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	params := persistence.ListEventsParams{
		Page:     page,
		PageSize: pageSize,
		ClientID: opts.ClientID,
		StudioID: opts.StudioID,
	}
	if opts.Category != nil {
		if !opts.Category.Valid() {
			return ListResult{}, invalid("category", "unknown category")
		}
		c := string(*opts.Category)
		params.Category = &c
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return ListResult{}, mapPersistenceError(err)
	}

	events := make([]Event, 0, len(result.Events))
	for _, record := range result.Events {
		events = append(events, mapEvent(record))
	}

	totalPages := 0
	if result.TotalItems > 0 {
		totalPages = (result.TotalItems + pageSize - 1) / pageSize
	}

	return ListResult{
		Events:     events,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: result.TotalItems,
		TotalPages: totalPages,
	}, nil
}

func (s *service) Query(ctx context.Context, opts QueryOptions) ([]Event, error) {
	window, err := calendar.ResolveWindow(opts.Start, opts.End, s.now(), s.queryWindow)
	if err != nil {
		return nil, invalid("end", "end must be after start")
	}

	params := persistence.QueryEventsParams{RangeStart: window.Start, RangeEnd: window.End}
	if opts.Category != nil {
		if !opts.Category.Valid() {
			return nil, invalid("category", "unknown category")
		}
		c := string(*opts.Category)
		params.Category = &c
	}

	records, err := s.repo.Query(ctx, params)
	if err != nil {
		return nil, mapPersistenceError(err)
	}

	events := make([]Event, 0, len(records))
	for _, record := range records {
		events = append(events, mapEvent(record))
	}
	calendar.SortChronological(events,
		func(e Event) time.Time { return e.Start },
		func(e Event) int64 { return e.ID })
	return events, nil
}

func (s *service) Suggest(category *Category) (Suggestion, error) {
	c := CategoryPhotoshoot
	if category != nil {
		if !category.Valid() {
			return Suggestion{}, invalid("category", "unknown category")
		}
		c = *category
	}

	start, end := calendar.SuggestSlot(s.now())
	return Suggestion{Category: c, Start: start, End: end, Color: DefaultColor}, nil
}

func (s *service) log(ctx context.Context, audit requesttrace.AuditInfo) *zap.Logger {
	return logging.FromContextOr(ctx, s.logger).With(audit.Fields()...)
}

// mergeDraft overlays a patch on the stored event.
func mergeDraft(current persistence.EventRecord, in UpdateInput) Draft {
	d := Draft{
		Title:       current.Title,
		Category:    Category(current.Category),
		Start:       current.Start,
		End:         current.End,
		AllDay:      current.AllDay,
		ClientID:    current.ClientID,
		StudioID:    current.StudioID,
		Color:       current.Color,
		Description: current.Description,
	}
	if in.Title != nil {
		d.Title = *in.Title
	}
	if in.Category != nil {
		d.Category = *in.Category
	}
	if in.Start != nil {
		d.Start = *in.Start
	}
	if in.End.Set {
		d.End = in.End.Value
	}
	if in.AllDay != nil {
		d.AllDay = *in.AllDay
	}
	if in.ClientID.Set {
		d.ClientID = in.ClientID.Value
	}
	if in.StudioID.Set {
		d.StudioID = in.StudioID.Value
	}
	if in.Color != nil {
		d.Color = *in.Color
	}
	if in.Description != nil {
		d.Description = *in.Description
	}
	return d
}

func fieldsFromDraft(d Draft) persistence.EventFields {
	return persistence.EventFields{
		Title:       d.Title,
		Category:    string(d.Category),
		Start:       d.Start,
		End:         d.End,
		AllDay:      d.AllDay,
		ClientID:    d.ClientID,
		StudioID:    d.StudioID,
		Color:       d.Color,
		Description: d.Description,
	}
}

func mapEvent(record persistence.EventRecord) Event {
	return Event{
		ID:          record.ID,
		OwnerID:     record.OwnerID,
		Title:       record.Title,
		Category:    Category(record.Category),
		Start:       record.Start,
		End:         record.End,
		AllDay:      record.AllDay,
		ClientID:    record.ClientID,
		ClientName:  record.ClientName,
		StudioID:    record.StudioID,
		StudioName:  record.StudioName,
		Color:       record.Color,
		Description: record.Description,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	var validation *ValidationError
	switch {
	case errors.As(err, &validation):
		return validation
	case errors.Is(err, persistence.ErrEventNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrInvalidClientRef):
		return invalid("clientId", "client does not exist")
	case errors.Is(err, persistence.ErrInvalidStudioRef):
		return invalid("studioId", "location does not exist")
	case errors.Is(err, persistence.ErrInvalidEventRange):
		return &ValidationError{Field: "end", Reason: ReasonEndBeforeStart, Message: "end must not be before start"}
	case errors.Is(err, repo.ErrScopeMissing), errors.Is(err, persistence.ErrPhotographerNotFound):
		return ErrScopeMissing
	default:
		return err
	}
}
