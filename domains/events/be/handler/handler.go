package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/photohub/photohub-saas/domains/events/be/service"
	"github.com/photohub/photohub-saas/domains/events/be/wire"
	platformlogging "github.com/photohub/photohub-saas/platform/go/logging"
	"github.com/photohub/photohub-saas/platform/go/problem"
	"github.com/photohub/photohub-saas/platform/go/requesttrace"
)

type operation string

const (
	queryOperation    operation = "eventsQuery"
	exportOperation   operation = "eventsExport"
	listOperation     operation = "eventsList"
	defaultsOperation operation = "eventsDefaults"
	createOperation   operation = "eventsCreate"
	getOperation      operation = "eventsGet"
	updateOperation   operation = "eventsUpdate"
	deleteOperation   operation = "eventsDelete"
)

// Config controls how events are rendered on the wire.
type Config struct {
	// Location is the display time zone for wire timestamps and date-only query bounds.
	Location *time.Location
	// URLBase prefixes the detail URL of every event.
	URLBase string
	// UIDDomain qualifies iCalendar UIDs.
	UIDDomain string
	// BasePath is the externally visible mount point, used for Location headers.
	BasePath string
}

// Handler exposes the events service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
	cfg    Config
	now    func() time.Time
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger, cfg Config) *Handler {
	if svc == nil {
		panic("events service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "/api/v1/calendar/events"
	}

	return &Handler{svc: svc, logger: logger, cfg: cfg, now: time.Now}
}

// Register mounts the events endpoints under /calendar on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/calendar/events.ics", h.Export)
	r.Mount("/calendar/events", h.Routes())
}

// Routes mounts the events endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Query)
	r.Post("/", h.Create)
	r.Get("/page", h.List)
	r.Get("/defaults", h.Defaults)
	r.Route("/{eventId}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
	})
	return r
}

// Query answers the calendar widget feed: events overlapping [start, end).
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	opts, err := h.queryOptions(r)
	if err != nil {
		h.writeError(w, r, err, queryOperation)
		return
	}

	events, err := h.svc.Query(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err, queryOperation)
		return
	}

	problem.WriteJSON(w, http.StatusOK, wire.ToWireList(events, h.wireOptions(r)))
}

// Export renders the same window as Query in iCalendar form.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	opts, err := h.queryOptions(r)
	if err != nil {
		h.writeError(w, r, err, exportOperation)
		return
	}

	events, err := h.svc.Query(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err, exportOperation)
		return
	}

	w.Header().Set("Content-Type", wire.ICSContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="photohub.ics"`)
	w.WriteHeader(http.StatusOK)
	if err := wire.WriteICS(w, events, wire.ICSOptions{
		Options:   h.wireOptions(r),
		UIDDomain: h.cfg.UIDDomain,
		Stamp:     h.now().UTC(),
	}); err != nil {
		h.loggerFrom(r.Context()).Error("write calendar export", zap.Error(err))
	}
}

// List pages through events for management screens.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	opts, err := buildListOptions(r)
	if err != nil {
		h.writeError(w, r, err, listOperation)
		return
	}

	result, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err, listOperation)
		return
	}

	problem.WriteJSON(w, http.StatusOK, eventPage{
		Items:      wire.ToWireList(result.Events, h.wireOptions(r)),
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

// Defaults suggests start and end values for a new event form.
func (h *Handler) Defaults(w http.ResponseWriter, r *http.Request) {
	var category *service.Category
	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		c := service.Category(raw)
		category = &c
	}

	s, err := h.svc.Suggest(category)
	if err != nil {
		h.writeError(w, r, err, defaultsOperation)
		return
	}

	lang := wire.MatchLanguage(r.Header.Get("Accept-Language"))
	problem.WriteJSON(w, http.StatusOK, eventDefaults{
		Category:        string(s.Category),
		CategoryDisplay: wire.CategoryLabel(s.Category, lang),
		Start:           s.Start.In(h.cfg.Location).Format(wire.TimeLayout),
		End:             s.End.In(h.cfg.Location).Format(wire.TimeLayout),
		AllDay:          s.AllDay,
		Color:           s.Color,
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body eventBody
	if err := problem.DecodeJSON(r, &body); err != nil {
		h.writeBodyError(w, r, err, createOperation)
		return
	}

	created, err := h.svc.Create(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), body.draft())
	if err != nil {
		h.writeError(w, r, err, createOperation)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/%d", strings.TrimRight(h.cfg.BasePath, "/"), created.ID))
	problem.WriteJSON(w, http.StatusCreated, wire.ToWire(created, h.wireOptions(r)))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(r)
	if !ok {
		h.writeError(w, r, service.ErrNotFound, getOperation)
		return
	}

	event, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, getOperation)
		return
	}

	problem.WriteJSON(w, http.StatusOK, wire.ToWire(event, h.wireOptions(r)))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(r)
	if !ok {
		h.writeError(w, r, service.ErrNotFound, updateOperation)
		return
	}

	var body eventBody
	if err := problem.DecodeJSON(r, &body); err != nil {
		h.writeBodyError(w, r, err, updateOperation)
		return
	}

	updated, err := h.svc.Update(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), id, body.patch())
	if err != nil {
		h.writeError(w, r, err, updateOperation)
		return
	}

	problem.WriteJSON(w, http.StatusOK, wire.ToWire(updated, h.wireOptions(r)))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(r)
	if !ok {
		h.writeError(w, r, service.ErrNotFound, deleteOperation)
		return
	}

	if err := h.svc.Delete(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), id); err != nil {
		h.writeError(w, r, err, deleteOperation)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) wireOptions(r *http.Request) wire.Options {
	return wire.Options{
		Location: h.cfg.Location,
		URLBase:  h.cfg.URLBase,
		Language: wire.MatchLanguage(r.Header.Get("Accept-Language")),
	}
}

func (h *Handler) queryOptions(r *http.Request) (service.QueryOptions, error) {
	q := r.URL.Query()
	opts := service.QueryOptions{}

	var err error
	if opts.Start, err = parseBound(q.Get("start"), h.cfg.Location); err != nil {
		return opts, &service.ValidationError{Field: "start", Reason: service.ReasonInvalidField, Message: err.Error()}
	}
	if opts.End, err = parseBound(q.Get("end"), h.cfg.Location); err != nil {
		return opts, &service.ValidationError{Field: "end", Reason: service.ReasonInvalidField, Message: err.Error()}
	}
	if raw := strings.TrimSpace(q.Get("category")); raw != "" {
		c := service.Category(raw)
		opts.Category = &c
	}
	return opts, nil
}

// parseBound accepts an RFC 3339 timestamp or a bare date, which is read as midnight in loc.
func parseBound(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return &t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, raw, loc); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("%q is not an ISO-8601 date or timestamp", raw)
}

func buildListOptions(r *http.Request) (service.ListOptions, error) {
	q := r.URL.Query()
	opts := service.ListOptions{}

	ints := []struct {
		name string
		dst  *int
	}{{"page", &opts.Page}, {"pageSize", &opts.PageSize}}
	for _, p := range ints {
		if raw := q.Get(p.name); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return opts, &service.ValidationError{Field: p.name, Reason: service.ReasonInvalidField, Message: "must be an integer"}
			}
			*p.dst = v
		}
	}

	if raw := strings.TrimSpace(q.Get("category")); raw != "" {
		c := service.Category(raw)
		opts.Category = &c
	}

	ids := []struct {
		name string
		dst  **int64
	}{{"clientId", &opts.ClientID}, {"studioId", &opts.StudioID}}
	for _, p := range ids {
		if raw := q.Get(p.name); raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return opts, &service.ValidationError{Field: p.name, Reason: service.ReasonInvalidField, Message: "must be an integer"}
			}
			*p.dst = &v
		}
	}
	return opts, nil
}

func eventID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) writeBodyError(w http.ResponseWriter, r *http.Request, err error, op operation) {
	h.loggerFrom(r.Context()).Warn("events request body rejected",
		zap.String("operation", string(op)), zap.Error(err))
	problem.Write(w, problem.New("Invalid request body", err.Error(), problem.TypeValidation, http.StatusBadRequest, nil))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, op operation) {
	problem.Write(w, h.problemForError(r.Context(), err, op))
}

func (h *Handler) problemForError(ctx context.Context, err error, op operation) problem.Details {
	status, title, detail, problemType, fields := classifyError(err)

	logger := h.loggerFrom(ctx)
	fieldsForLog := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("events operation failed", append(fieldsForLog, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("event not found", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("events request rejected", append(fieldsForLog, zap.Error(err))...)
	}

	return problem.New(title, detail, problemType, status, fields)
}

func classifyError(err error) (status int, title, detail, problemType string, fieldErrors map[string][]string) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest,
			"Validation failed",
			validationErr.Error(),
			problem.TypeValidation,
			validationErr.FieldErrors()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound,
			"Resource not found",
			"event not found",
			problem.TypeNotFound,
			nil
	case errors.Is(err, service.ErrScopeMissing):
		return http.StatusForbidden,
			"Forbidden",
			"no photographer account is bound to this request",
			problem.TypeForbidden,
			nil
	default:
		return http.StatusInternalServerError,
			"Internal server error",
			"an unexpected error occurred",
			problem.TypeInternal,
			nil
	}
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	return platformlogging.FromContextOr(ctx, h.logger)
}
