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

	"github.com/photohub/photohub-saas/domains/references/be/service"
	platformlogging "github.com/photohub/photohub-saas/platform/go/logging"
	"github.com/photohub/photohub-saas/platform/go/problem"
	"github.com/photohub/photohub-saas/platform/go/requesttrace"
)

type operation string

const (
	createOperation         operation = "referencesCreate"
	listOperation           operation = "referencesList"
	getOperation            operation = "referencesGet"
	relatedOperation        operation = "referencesRelated"
	updateOperation         operation = "referencesUpdate"
	deleteOperation         operation = "referencesDelete"
	createCategoryOperation operation = "referenceCategoriesCreate"
	listCategoriesOperation operation = "referenceCategoriesList"
	getCategoryOperation    operation = "referenceCategoriesGet"
	updateCategoryOperation operation = "referenceCategoriesUpdate"
	deleteCategoryOperation operation = "referenceCategoriesDelete"
)

// Handler exposes the references service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("references service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the reference endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{referenceId}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
		r.Get("/related", h.Related)
	})
	return r
}

// CategoryRoutes mounts the reference category endpoints on a fresh router.
func (h *Handler) CategoryRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListCategories)
	r.Post("/", h.CreateCategory)
	r.Route("/{categoryId}", func(r chi.Router) {
		r.Get("/", h.GetCategory)
		r.Patch("/", h.UpdateCategory)
		r.Delete("/", h.DeleteCategory)
	})
	return r
}

type referenceBody struct {
	CategoryID  problem.Nullable[int64] `json:"categoryId"`
	Title       *string                 `json:"title"`
	FileName    *string                 `json:"fileName"`
	Description *string                 `json:"description"`
	SourceURL   *string                 `json:"sourceUrl"`
}

type categoryBody struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type apiReference struct {
	ID           int64     `json:"id"`
	CategoryID   *int64    `json:"categoryId"`
	CategoryName *string   `json:"categoryName"`
	Title        string    `json:"title"`
	Bucket       string    `json:"bucket"`
	ObjectKey    string    `json:"objectKey"`
	Description  string    `json:"description"`
	SourceURL    string    `json:"sourceUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type apiCategory struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	ReferenceCount int       `json:"referenceCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

type referencePage struct {
	Items      []apiReference `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalItems int            `json:"totalItems"`
	TotalPages int            `json:"totalPages"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := service.ListOptions{}
	opts.Page, _ = strconv.Atoi(q.Get("page"))
	opts.PageSize, _ = strconv.Atoi(q.Get("pageSize"))
	if search := strings.TrimSpace(q.Get("search")); search != "" {
		opts.Search = &search
	}
	if raw := strings.TrimSpace(q.Get("categoryId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.writeError(w, r, &service.ValidationError{Fields: service.FieldErrors{"categoryId": {"categoryId must be a positive integer"}}}, listOperation)
			return
		}
		opts.CategoryID = &id
	}

	result, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err, listOperation)
		return
	}

	items := make([]apiReference, 0, len(result.References))
	for _, ref := range result.References {
		items = append(items, toAPIReference(ref))
	}
	problem.WriteJSON(w, http.StatusOK, referencePage{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body referenceBody
	if err := problem.DecodeJSON(r, &body); err != nil {
		h.writeError(w, r, &service.ValidationError{Fields: service.FieldErrors{"body": {err.Error()}}}, createOperation)
		return
	}

	input := service.Input{
		CategoryID:  body.CategoryID.Value,
		Title:       deref(body.Title),
		FileName:    deref(body.FileName),
		Description: deref(body.Description),
		SourceURL:   deref(body.SourceURL),
	}

	created, err := h.svc.Create(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), input)
	if err != nil {
		h.writeError(w, r, err, createOperation)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/references/%d", created.ID))
	problem.WriteJSON(w, http.StatusCreated, toAPIReference(created))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ref, err := h.svc.Get(r.Context(), pathID(r, "referenceId"))
	if err != nil {
		h.writeError(w, r, err, getOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toAPIReference(ref))
}

func (h *Handler) Related(w http.ResponseWriter, r *http.Request) {
	refs, err := h.svc.Related(r.Context(), pathID(r, "referenceId"))
	if err != nil {
		h.writeError(w, r, err, relatedOperation)
		return
	}

	items := make([]apiReference, 0, len(refs))
	for _, ref := range refs {
		items = append(items, toAPIReference(ref))
	}
	problem.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var body referenceBody
	if err := problem.DecodeJSON(r, &body); err != nil {
		h.writeError(w, r, &service.ValidationError{Fields: service.FieldErrors{"body": {err.Error()}}}, updateOperation)
		return
	}

	input := service.UpdateInput{
		CategoryID:    body.CategoryID.Value,
		ClearCategory: body.CategoryID.Set && body.CategoryID.Value == nil,
		Title:         body.Title,
		FileName:      body.FileName,
		Description:   body.Description,
		SourceURL:     body.SourceURL,
	}

	updated, err := h.svc.Update(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), pathID(r, "referenceId"), input)
	if err != nil {
		h.writeError(w, r, err, updateOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toAPIReference(updated))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), pathID(r, "referenceId")); err != nil {
		h.writeError(w, r, err, deleteOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, r, err, listCategoriesOperation)
		return
	}

	items := make([]apiCategory, 0, len(categories))
	for _, c := range categories {
		items = append(items, toAPICategory(c))
	}
	problem.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var body categoryBody
	if err := problem.DecodeJSON(r, &body); err != nil {
		h.writeError(w, r, &service.ValidationError{Fields: service.FieldErrors{"body": {err.Error()}}}, createCategoryOperation)
		return
	}

	created, err := h.svc.CreateCategory(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), service.CategoryInput{
		Name:        deref(body.Name),
		Description: deref(body.Description),
	})
	if err != nil {
		h.writeError(w, r, err, createCategoryOperation)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/reference-categories/%d", created.ID))
	problem.WriteJSON(w, http.StatusCreated, toAPICategory(created))
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCategory(r.Context(), pathID(r, "categoryId"))
	if err != nil {
		h.writeError(w, r, err, getCategoryOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toAPICategory(c))
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var body categoryBody
	if err := problem.DecodeJSON(r, &body); err != nil {
		h.writeError(w, r, &service.ValidationError{Fields: service.FieldErrors{"body": {err.Error()}}}, updateCategoryOperation)
		return
	}

	updated, err := h.svc.UpdateCategory(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), pathID(r, "categoryId"),
		service.CategoryUpdateInput{Name: body.Name, Description: body.Description})
	if err != nil {
		h.writeError(w, r, err, updateCategoryOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toAPICategory(updated))
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCategory(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), pathID(r, "categoryId")); err != nil {
		h.writeError(w, r, err, deleteCategoryOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID returns 0 for malformed ids; the service reports those as not found.
func pathID(r *http.Request, param string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	return id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toAPIReference(ref service.Reference) apiReference {
	return apiReference{
		ID:           ref.ID,
		CategoryID:   ref.CategoryID,
		CategoryName: ref.CategoryName,
		Title:        ref.Title,
		Bucket:       ref.Bucket,
		ObjectKey:    ref.ObjectKey,
		Description:  ref.Description,
		SourceURL:    ref.SourceURL,
		CreatedAt:    ref.CreatedAt,
		UpdatedAt:    ref.UpdatedAt,
	}
}

func toAPICategory(c service.Category) apiCategory {
	return apiCategory{
		ID:             c.ID,
		Name:           c.Name,
		Description:    c.Description,
		ReferenceCount: c.ReferenceCount,
		CreatedAt:      c.CreatedAt,
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
		logger.Error("references operation failed", append(fieldsForLog, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("reference not found", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("references request rejected", append(fieldsForLog, zap.Error(err))...)
	}

	return problem.New(title, detail, problemType, status, fields)
}

func classifyError(err error) (status int, title, detail, problemType string, fieldErrors service.FieldErrors) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "Validation failed", "one or more fields are invalid", problem.TypeValidation, validationErr.Fields
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Resource not found", "reference not found", problem.TypeNotFound, nil
	case errors.Is(err, service.ErrCategoryNotFound):
		return http.StatusNotFound, "Resource not found", "reference category not found", problem.TypeNotFound, nil
	case errors.Is(err, service.ErrScopeMissing):
		return http.StatusForbidden, "Forbidden", "no photographer account is bound to this request", problem.TypeForbidden, nil
	default:
		return http.StatusInternalServerError, "Internal server error", "an unexpected error occurred", problem.TypeInternal, nil
	}
}
