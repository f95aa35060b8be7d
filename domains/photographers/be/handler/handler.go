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
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/photohub/photohub-saas/domains/photographers/be/service"
	platformauth "github.com/photohub/photohub-saas/platform/go/auth"
	platformlogging "github.com/photohub/photohub-saas/platform/go/logging"
	"github.com/photohub/photohub-saas/platform/go/problem"
	"github.com/photohub/photohub-saas/platform/go/requesttrace"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

type operation string

const (
	createOperation   operation = "photographersCreate"
	listOperation     operation = "photographersList"
	getOperation      operation = "photographersGet"
	deleteOperation   operation = "photographersDelete"
	meGetOperation    operation = "photographersMe"
	meUpdateOperation operation = "photographersUpdateMe"
)

var errNoAccount = errors.New("no photographer account is bound to this request")

// Handler exposes the photographers service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("photographers service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

// AdminRoutes mounts the account management endpoints. Callers must guard them with an admin check.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{photographerId}", h.Get)
	r.Delete("/{photographerId}", h.Delete)
	return r
}

// MeRoutes mounts the endpoints acting on the caller's own account.
func (h *Handler) MeRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Me)
	r.Patch("/", h.UpdateMe)
	return r
}

type createBody struct {
	ID          *string `json:"id"`
	Email       string  `json:"email"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	PhoneNumber string  `json:"phoneNumber"`
}

type updateBody struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	PhoneNumber *string `json:"phoneNumber"`
}

type apiPhotographer struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	FullName    string    `json:"fullName"`
	PhoneNumber string    `json:"phoneNumber"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type photographerPage struct {
	Items      []apiPhotographer `json:"items"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalItems int               `json:"totalItems"`
	TotalPages int               `json:"totalPages"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := service.ListOptions{}
	opts.Page, _ = strconv.Atoi(q.Get("page"))
	opts.PageSize, _ = strconv.Atoi(q.Get("pageSize"))
	if email := strings.TrimSpace(q.Get("email")); email != "" {
		opts.Email = &email
	}
	if sort := strings.TrimSpace(q.Get("sort")); sort != "" {
		opts.Sort = &sort
	}

	result, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err, listOperation)
		return
	}

	items := make([]apiPhotographer, 0, len(result.Photographers))
	for _, p := range result.Photographers {
		items = append(items, toAPIPhotographer(p))
	}
	problem.WriteJSON(w, http.StatusOK, photographerPage{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body createBody
	if err := problem.DecodeJSON(r, &body); err != nil {
		h.writeError(w, r, &service.ValidationError{Fields: service.FieldErrors{"body": {err.Error()}}}, createOperation)
		return
	}

	input := service.CreateInput{
		Email:       body.Email,
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		PhoneNumber: body.PhoneNumber,
	}
	if body.ID != nil && strings.TrimSpace(*body.ID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*body.ID))
		if err != nil {
			h.writeError(w, r, &service.ValidationError{Fields: service.FieldErrors{"id": {"id must be a UUID"}}}, createOperation)
			return
		}
		input.ID = id
	}

	created, err := h.svc.Create(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), input)
	if err != nil {
		h.writeError(w, r, err, createOperation)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/admin/photographers/%s", created.ID))
	problem.WriteJSON(w, http.StatusCreated, toAPIPhotographer(created))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), photographerID(r))
	if err != nil {
		h.writeError(w, r, err, getOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toAPIPhotographer(p))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), photographerID(r)); err != nil {
		h.writeError(w, r, err, deleteOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, err := currentPhotographer(r.Context())
	if err != nil {
		h.writeError(w, r, err, meGetOperation)
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, meGetOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toAPIPhotographer(p))
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var body updateBody
	if err := problem.DecodeJSON(r, &body); err != nil {
		h.writeError(w, r, &service.ValidationError{Fields: service.FieldErrors{"body": {err.Error()}}}, meUpdateOperation)
		return
	}

	id, err := currentPhotographer(r.Context())
	if err != nil {
		h.writeError(w, r, err, meUpdateOperation)
		return
	}

	updated, err := h.svc.Update(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), id, service.UpdateInput{
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		PhoneNumber: body.PhoneNumber,
	})
	if err != nil {
		h.writeError(w, r, err, meUpdateOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toAPIPhotographer(updated))
}

// currentPhotographer prefers the tenant scope and falls back to the verified credentials.
func currentPhotographer(ctx context.Context) (uuid.UUID, error) {
	if scope, ok := tenant.FromContext(ctx); ok && scope.Valid() {
		return scope.TenantID, nil
	}
	creds, ok := platformauth.UserFromContext(ctx)
	if !ok || creds == nil {
		return uuid.Nil, errNoAccount
	}
	scope, err := tenant.Derive(creds.PhotographerID, false)
	if err != nil {
		return uuid.Nil, errNoAccount
	}
	return scope.TenantID, nil
}

// photographerID returns uuid.Nil for malformed ids; the service reports those as not found.
func photographerID(r *http.Request) uuid.UUID {
	id, err := uuid.Parse(chi.URLParam(r, "photographerId"))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func toAPIPhotographer(p service.Photographer) apiPhotographer {
	return apiPhotographer{
		ID:          p.ID.String(),
		Email:       p.Email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		FullName:    p.FullName(),
		PhoneNumber: p.PhoneNumber,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
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
		logger.Error("photographers operation failed", append(fieldsForLog, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("photographer not found", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("photographers request rejected", append(fieldsForLog, zap.Error(err))...)
	}

	return problem.New(title, detail, problemType, status, fields)
}

func classifyError(err error) (status int, title, detail, problemType string, fieldErrors service.FieldErrors) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "Validation failed", "one or more fields are invalid", problem.TypeValidation, validationErr.Fields
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Resource not found", "photographer not found", problem.TypeNotFound, nil
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "Conflict", "a photographer with this id or email already exists", problem.TypeConflict, nil
	case errors.Is(err, errNoAccount):
		return http.StatusUnauthorized, "Unauthorized", errNoAccount.Error(), problem.TypeUnauthorized, nil
	default:
		return http.StatusInternalServerError, "Internal server error", "an unexpected error occurred", problem.TypeInternal, nil
	}
}
