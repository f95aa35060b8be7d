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

	"github.com/photohub/photohub-saas/domains/clients/be/service"
	platformlogging "github.com/photohub/photohub-saas/platform/go/logging"
	"github.com/photohub/photohub-saas/platform/go/problem"
	"github.com/photohub/photohub-saas/platform/go/requesttrace"
)

type operation string

const (
	createOperation operation = "clientsCreate"
	listOperation   operation = "clientsList"
	getOperation    operation = "clientsGet"
	updateOperation operation = "clientsUpdate"
	deleteOperation operation = "clientsDelete"
)

// Handler exposes the clients service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("clients service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the clients endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{clientId}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
	})
	return r
}

type clientBody struct {
	FirstName   *string                  `json:"firstName"`
	LastName    *string                  `json:"lastName"`
	Email       *string                  `json:"email"`
	PhoneNumber *string                  `json:"phoneNumber"`
	Address     *string                  `json:"address"`
	Notes       *string                  `json:"notes"`
	BirthDate   problem.Nullable[string] `json:"birthDate"`
}

type apiClient struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	Address     string    `json:"address"`
	Notes       string    `json:"notes"`
	BirthDate   *string   `json:"birthDate"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type clientPage struct {
	Items      []apiClient `json:"items"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalItems int         `json:"totalItems"`
	TotalPages int         `json:"totalPages"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := service.ListOptions{}
	opts.Page, _ = strconv.Atoi(q.Get("page"))
	opts.PageSize, _ = strconv.Atoi(q.Get("pageSize"))
	if search := strings.TrimSpace(q.Get("search")); search != "" {
		opts.Search = &search
	}

	result, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err, listOperation)
		return
	}

	items := make([]apiClient, 0, len(result.Clients))
	for _, c := range result.Clients {
		items = append(items, toAPIClient(c))
	}
	problem.WriteJSON(w, http.StatusOK, clientPage{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body clientBody
	if err := problem.DecodeJSON(r, &body); err != nil {
		h.writeError(w, r, &service.ValidationError{Fields: service.FieldErrors{"body": {err.Error()}}}, createOperation)
		return
	}

	birth, err := parseBirthDate(body.BirthDate)
	if err != nil {
		h.writeError(w, r, err, createOperation)
		return
	}

	input := service.Input{
		FirstName:   deref(body.FirstName),
		LastName:    deref(body.LastName),
		Email:       deref(body.Email),
		PhoneNumber: deref(body.PhoneNumber),
		Address:     deref(body.Address),
		Notes:       deref(body.Notes),
		BirthDate:   birth,
	}

	created, err := h.svc.Create(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), input)
	if err != nil {
		h.writeError(w, r, err, createOperation)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/clients/%d", created.ID))
	problem.WriteJSON(w, http.StatusCreated, toAPIClient(created))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	client, err := h.svc.Get(r.Context(), clientID(r))
	if err != nil {
		h.writeError(w, r, err, getOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toAPIClient(client))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var body clientBody
	if err := problem.DecodeJSON(r, &body); err != nil {
		h.writeError(w, r, &service.ValidationError{Fields: service.FieldErrors{"body": {err.Error()}}}, updateOperation)
		return
	}

	birth, err := parseBirthDate(body.BirthDate)
	if err != nil {
		h.writeError(w, r, err, updateOperation)
		return
	}

	input := service.UpdateInput{
		FirstName:      body.FirstName,
		LastName:       body.LastName,
		Email:          body.Email,
		PhoneNumber:    body.PhoneNumber,
		Address:        body.Address,
		Notes:          body.Notes,
		BirthDate:      birth,
		ClearBirthDate: body.BirthDate.Set && body.BirthDate.Value == nil,
	}

	updated, err := h.svc.Update(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), clientID(r), input)
	if err != nil {
		h.writeError(w, r, err, updateOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toAPIClient(updated))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), clientID(r)); err != nil {
		h.writeError(w, r, err, deleteOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// clientID returns 0 for malformed ids; the service reports those as not found.
func clientID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "clientId"), 10, 64)
	return id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseBirthDate(v problem.Nullable[string]) (*time.Time, error) {
	if v.Value == nil || strings.TrimSpace(*v.Value) == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(*v.Value))
	if err != nil {
		return nil, &service.ValidationError{Fields: service.FieldErrors{"birthDate": {"birthDate must be a YYYY-MM-DD date"}}}
	}
	return &d, nil
}

func toAPIClient(c service.Client) apiClient {
	out := apiClient{
		ID:          c.ID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		FullName:    c.FullName(),
		Email:       c.Email,
		PhoneNumber: c.PhoneNumber,
		Address:     c.Address,
		Notes:       c.Notes,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if c.BirthDate != nil {
		d := c.BirthDate.Format(time.DateOnly)
		out.BirthDate = &d
	}
	return out
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, op operation) {
	problem.Write(w, h.problemForError(r.Context(), err, op))
}

func (h *Handler) problemForError(ctx context.Context, err error, op operation) problem.Details {
	status, title, detail, problemType, fields := classifyError(err)

	logger := platformlogging.FromContextOr(ctx, h.logger)
	fieldsForLog := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("clients operation failed", append(fieldsForLog, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("client not found", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("clients request rejected", append(fieldsForLog, zap.Error(err))...)
	}

	return problem.New(title, detail, problemType, status, fields)
}

func classifyError(err error) (status int, title, detail, problemType string, fieldErrors service.FieldErrors) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "Validation failed", "one or more fields are invalid", problem.TypeValidation, validationErr.Fields
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Resource not found", "client not found", problem.TypeNotFound, nil
	case errors.Is(err, service.ErrScopeMissing):
		return http.StatusForbidden, "Forbidden", "no photographer account is bound to this request", problem.TypeForbidden, nil
	default:
		return http.StatusInternalServerError, "Internal server error", "an unexpected error occurred", problem.TypeInternal, nil
	}
}
