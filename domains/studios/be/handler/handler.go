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

	"github.com/photohub/photohub-saas/domains/studios/be/service"
	platformlogging "github.com/photohub/photohub-saas/platform/go/logging"
	"github.com/photohub/photohub-saas/platform/go/problem"
	"github.com/photohub/photohub-saas/platform/go/requesttrace"
)

type operation string

const (
	createOperation       operation = "studiosCreate"
	listOperation         operation = "studiosList"
	getOperation          operation = "studiosGet"
	updateOperation       operation = "studiosUpdate"
	deleteOperation       operation = "studiosDelete"
	listImagesOperation   operation = "studioImagesList"
	addImageOperation     operation = "studioImagesAdd"
	deleteImageOperation  operation = "studioImagesDelete"
	setMainImageOperation operation = "studioImagesSetMain"
)

// Handler exposes the studios service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("studios service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the studio and studio image endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{studioId}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)

		r.Get("/images", h.ListImages)
		r.Post("/images", h.AddImage)
		r.Delete("/images/{imageId}", h.DeleteImage)
		r.Post("/images/{imageId}/main", h.SetMainImage)
	})
	return r
}

type studioBody struct {
	Name         *string `json:"name"`
	LocationType *string `json:"locationType"`
	City         *string `json:"city"`
	District     *string `json:"district"`
	Street       *string `json:"street"`
	Building     *string `json:"building"`
	Website      *string `json:"website"`
	Description  *string `json:"description"`
	IsPublic     *bool   `json:"isPublic"`
}

type imageBody struct {
	FileName string `json:"fileName"`
	Caption  string `json:"caption"`
	IsMain   bool   `json:"isMain"`
}

type apiStudio struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	LocationType string    `json:"locationType"`
	City         string    `json:"city"`
	District     string    `json:"district"`
	Street       string    `json:"street"`
	Building     string    `json:"building"`
	FullAddress  string    `json:"fullAddress"`
	Website      string    `json:"website"`
	Description  string    `json:"description"`
	IsPublic     bool      `json:"isPublic"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type apiImage struct {
	ID        int64     `json:"id"`
	Bucket    string    `json:"bucket"`
	ObjectKey string    `json:"objectKey"`
	Caption   string    `json:"caption"`
	IsMain    bool      `json:"isMain"`
	CreatedAt time.Time `json:"createdAt"`
}

type studioPage struct {
	Items      []apiStudio `json:"items"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalItems int         `json:"totalItems"`
	TotalPages int         `json:"totalPages"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := service.ListOptions{OnlyOwn: q.Get("own") == "true"}
	opts.Page, _ = strconv.Atoi(q.Get("page"))
	opts.PageSize, _ = strconv.Atoi(q.Get("pageSize"))
	if search := strings.TrimSpace(q.Get("search")); search != "" {
		opts.Search = &search
	}
	if lt := strings.TrimSpace(q.Get("locationType")); lt != "" {
		opts.LocationType = &lt
	}

	result, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err, listOperation)
		return
	}

	items := make([]apiStudio, 0, len(result.Studios))
	for _, s := range result.Studios {
		items = append(items, toAPIStudio(s))
	}
	problem.WriteJSON(w, http.StatusOK, studioPage{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body studioBody
	if err := problem.DecodeJSON(r, &body); err != nil {
		h.writeError(w, r, bodyError(err), createOperation)
		return
	}

	input := service.Input{
		Name:         deref(body.Name),
		LocationType: deref(body.LocationType),
		City:         deref(body.City),
		District:     deref(body.District),
		Street:       deref(body.Street),
		Building:     deref(body.Building),
		Website:      deref(body.Website),
		Description:  deref(body.Description),
		IsPublic:     body.IsPublic != nil && *body.IsPublic,
	}

	created, err := h.svc.Create(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), input)
	if err != nil {
		h.writeError(w, r, err, createOperation)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/studios/%d", created.ID))
	problem.WriteJSON(w, http.StatusCreated, toAPIStudio(created))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	studio, err := h.svc.Get(r.Context(), pathID(r, "studioId"))
	if err != nil {
		h.writeError(w, r, err, getOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toAPIStudio(studio))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var body studioBody
	if err := problem.DecodeJSON(r, &body); err != nil {
		h.writeError(w, r, bodyError(err), updateOperation)
		return
	}

	input := service.UpdateInput{
		Name:         body.Name,
		LocationType: body.LocationType,
		City:         body.City,
		District:     body.District,
		Street:       body.Street,
		Building:     body.Building,
		Website:      body.Website,
		Description:  body.Description,
		IsPublic:     body.IsPublic,
	}

	updated, err := h.svc.Update(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), pathID(r, "studioId"), input)
	if err != nil {
		h.writeError(w, r, err, updateOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toAPIStudio(updated))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), pathID(r, "studioId")); err != nil {
		h.writeError(w, r, err, deleteOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.svc.ListImages(r.Context(), pathID(r, "studioId"))
	if err != nil {
		h.writeError(w, r, err, listImagesOperation)
		return
	}

	items := make([]apiImage, 0, len(images))
	for _, img := range images {
		items = append(items, toAPIImage(img))
	}
	problem.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) AddImage(w http.ResponseWriter, r *http.Request) {
	var body imageBody
	if err := problem.DecodeJSON(r, &body); err != nil {
		h.writeError(w, r, bodyError(err), addImageOperation)
		return
	}

	studioID := pathID(r, "studioId")
	img, err := h.svc.AddImage(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()), studioID, service.ImageInput{
		FileName: body.FileName,
		Caption:  body.Caption,
		IsMain:   body.IsMain,
	})
	if err != nil {
		h.writeError(w, r, err, addImageOperation)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/studios/%d/images/%d", studioID, img.ID))
	problem.WriteJSON(w, http.StatusCreated, toAPIImage(img))
}

func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteImage(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()),
		pathID(r, "studioId"), pathID(r, "imageId"))
	if err != nil {
		h.writeError(w, r, err, deleteImageOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetMainImage(w http.ResponseWriter, r *http.Request) {
	err := h.svc.SetMainImage(r.Context(), requesttrace.FromContextOrAnonymous(r.Context()),
		pathID(r, "studioId"), pathID(r, "imageId"))
	if err != nil {
		h.writeError(w, r, err, setMainImageOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID returns 0 for malformed ids; the service reports those as not found.
func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func bodyError(err error) error {
	return &service.ValidationError{Fields: service.FieldErrors{"body": {err.Error()}}}
}

func toAPIStudio(s service.Studio) apiStudio {
	return apiStudio{
		ID:           s.ID,
		Name:         s.Name,
		LocationType: s.LocationType,
		City:         s.City,
		District:     s.District,
		Street:       s.Street,
		Building:     s.Building,
		FullAddress:  s.FullAddress(),
		Website:      s.Website,
		Description:  s.Description,
		IsPublic:     s.IsPublic,
		CreatedBy:    s.CreatedBy.String(),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func toAPIImage(img service.Image) apiImage {
	return apiImage{
		ID:        img.ID,
		Bucket:    img.Bucket,
		ObjectKey: img.ObjectKey,
		Caption:   img.Caption,
		IsMain:    img.IsMain,
		CreatedAt: img.CreatedAt,
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
		logger.Error("studios operation failed", append(fieldsForLog, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("studio resource not found", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("studios request rejected", append(fieldsForLog, zap.Error(err))...)
	}

	return problem.New(title, detail, problemType, status, fields)
}

func classifyError(err error) (status int, title, detail, problemType string, fieldErrors service.FieldErrors) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "Validation failed", "one or more fields are invalid", problem.TypeValidation, validationErr.Fields
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Resource not found", "studio not found", problem.TypeNotFound, nil
	case errors.Is(err, service.ErrImageNotFound):
		return http.StatusNotFound, "Resource not found", "studio image not found", problem.TypeNotFound, nil
	case errors.Is(err, service.ErrReadOnly):
		return http.StatusForbidden, "Forbidden", "only the creator may change this studio", problem.TypeForbidden, nil
	case errors.Is(err, service.ErrScopeMissing):
		return http.StatusForbidden, "Forbidden", "no photographer account is bound to this request", problem.TypeForbidden, nil
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "Conflict", "the main image was changed concurrently, retry the request", problem.TypeConflict, nil
	default:
		return http.StatusInternalServerError, "Internal server error", "an unexpected error occurred", problem.TypeInternal, nil
	}
}
