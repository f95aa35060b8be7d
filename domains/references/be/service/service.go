package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/photohub/photohub-saas/domains/references/be/repo"
	"github.com/photohub/photohub-saas/platform/go/logging"
	"github.com/photohub/photohub-saas/platform/go/persistence"
	"github.com/photohub/photohub-saas/platform/go/requesttrace"
	"github.com/photohub/photohub-saas/platform/go/storage"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain sentinel errors.
var (
	ErrNotFound         = errors.New("reference not found")
	ErrCategoryNotFound = errors.New("reference category not found")
	ErrScopeMissing     = errors.New("tenant scope missing from context")
)

const (
	maxTitleLength       = 50
	maxDescriptionLength = 500
	maxSourceURLLength   = 500

	// RelatedLimit caps how many related references are suggested for one reference.
	RelatedLimit = 4
)

// Category groups references of one photographer.
type Category struct {
	ID             int64
	OwnerID        uuid.UUID
	Name           string
	Description    string
	ReferenceCount int
	CreatedAt      time.Time
}

// Reference is an inspiration image with where it came from.
// ObjectKey is the tenant-prefixed path inside Bucket.
type Reference struct {
	ID           int64
	OwnerID      uuid.UUID
	CategoryID   *int64
	CategoryName *string
	Title        string
	Bucket       string
	ObjectKey    string
	Description  string
	SourceURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CategoryInput carries the full state of a category.
type CategoryInput struct {
	Name        string
	Description string
}

// CategoryUpdateInput carries a partial category edit.
type CategoryUpdateInput struct {
	Name        *string
	Description *string
}

// Input carries a new reference. FileName names the uploaded image.
type Input struct {
	CategoryID  *int64
	Title       string
	FileName    string
	Description string
	SourceURL   string
}

// UpdateInput carries a partial edit. A FileName replaces the image; ClearCategory unlinks the category.
type UpdateInput struct {
	CategoryID    *int64
	ClearCategory bool
	Title         *string
	FileName      *string
	Description   *string
	SourceURL     *string
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
	CategoryID *int64
	Search     *string
	Page       int
	PageSize   int
}

// ListResult wraps a page of references with pagination metadata.
type ListResult struct {
	References []Reference
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// Service defines the business operations for the references domain.
type Service interface {
	CreateCategory(ctx context.Context, audit requesttrace.AuditInfo, input CategoryInput) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	UpdateCategory(ctx context.Context, audit requesttrace.AuditInfo, id int64, input CategoryUpdateInput) (Category, error)
	DeleteCategory(ctx context.Context, audit requesttrace.AuditInfo, id int64) error

	Create(ctx context.Context, audit requesttrace.AuditInfo, input Input) (Reference, error)
	List(ctx context.Context, opts ListOptions) (ListResult, error)
	Get(ctx context.Context, id int64) (Reference, error)
	Related(ctx context.Context, id int64) ([]Reference, error)
	Update(ctx context.Context, audit requesttrace.AuditInfo, id int64, input UpdateInput) (Reference, error)
	Delete(ctx context.Context, audit requesttrace.AuditInfo, id int64) error
}

type service struct {
	repo    repo.Repository
	bucket  string
	objects storage.ObjectStore
	logger  *zap.Logger
}

// New constructs a references Service. Image keys are placed in bucket under the tenant prefix.
func New(r repo.Repository, logger *zap.Logger, bucket string) Service {
	return NewWithObjectStore(r, logger, bucket, nil)
}

// NewWithObjectStore also removes image blobs from objects once they are no longer referenced.
func NewWithObjectStore(r repo.Repository, logger *zap.Logger, bucket string, objects storage.ObjectStore) Service {
	if r == nil {
		panic("references repository is required")
	}
	if strings.TrimSpace(bucket) == "" {
		panic("media bucket is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{repo: r, bucket: bucket, objects: objects, logger: logger}
}

func (s *service) CreateCategory(ctx context.Context, audit requesttrace.AuditInfo, input CategoryInput) (Category, error) {
	fields, err := validateCategory(input)
	if err != nil {
		return Category{}, err
	}

	record, err := s.repo.CreateCategory(ctx, fields)
	if err != nil {
		return Category{}, mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("reference category created", zap.Int64("category_id", record.ID))
	return mapCategory(record), nil
}

func (s *service) ListCategories(ctx context.Context) ([]Category, error) {
	records, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, mapPersistenceError(err)
	}

	out := make([]Category, 0, len(records))
	for _, record := range records {
		out = append(out, mapCategory(record))
	}
	return out, nil
}

func (s *service) GetCategory(ctx context.Context, id int64) (Category, error) {
	if id <= 0 {
		return Category{}, ErrCategoryNotFound
	}

	record, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return Category{}, mapPersistenceError(err)
	}
	return mapCategory(record), nil
}

func (s *service) UpdateCategory(ctx context.Context, audit requesttrace.AuditInfo, id int64, input CategoryUpdateInput) (Category, error) {
	if id <= 0 {
		return Category{}, ErrCategoryNotFound
	}

	record, err := s.repo.UpdateCategory(ctx, id, func(current persistence.ReferenceCategoryRecord) (persistence.ReferenceCategoryFields, error) {
		next := CategoryInput{Name: current.Name, Description: current.Description}
		if input.Name != nil {
			next.Name = *input.Name
		}
		if input.Description != nil {
			next.Description = *input.Description
		}
		return validateCategory(next)
	})
	if err != nil {
		return Category{}, mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("reference category updated", zap.Int64("category_id", record.ID))
	return mapCategory(record), nil
}

// DeleteCategory keeps the category's references and leaves them uncategorized.
func (s *service) DeleteCategory(ctx context.Context, audit requesttrace.AuditInfo, id int64) error {
	if id <= 0 {
		return ErrCategoryNotFound
	}

	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("reference category deleted", zap.Int64("category_id", id))
	return nil
}

func (s *service) Create(ctx context.Context, audit requesttrace.AuditInfo, input Input) (Reference, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok || !scope.Valid() {
		return Reference{}, ErrScopeMissing
	}

	fieldErrors := FieldErrors{}
	if strings.TrimSpace(input.FileName) == "" {
		fieldErrors.add("fileName", "fileName is required")
	}
	fields, err := validate(input, fieldErrors)
	if err != nil {
		return Reference{}, err
	}

	key, err := s.imageKey(scope, input.FileName)
	if err != nil {
		return Reference{}, err
	}
	fields.ObjectKey = key

	record, err := s.repo.Create(ctx, fields)
	if err != nil {
		return Reference{}, mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("reference created", zap.Int64("reference_id", record.ID))
	return s.mapReference(record), nil
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

	params := persistence.ListReferencesParams{Page: page, PageSize: pageSize, CategoryID: opts.CategoryID}
	if opts.Search != nil && strings.TrimSpace(*opts.Search) != "" {
		search := strings.TrimSpace(*opts.Search)
		params.Search = &search
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return ListResult{}, mapPersistenceError(err)
	}

	refs := make([]Reference, 0, len(result.References))
	for _, record := range result.References {
		refs = append(refs, s.mapReference(record))
	}

	totalPages := 0
	if result.TotalItems > 0 {
		totalPages = (result.TotalItems + pageSize - 1) / pageSize
	}

	return ListResult{
		References: refs,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: result.TotalItems,
		TotalPages: totalPages,
	}, nil
}

func (s *service) Get(ctx context.Context, id int64) (Reference, error) {
	if id <= 0 {
		return Reference{}, ErrNotFound
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return Reference{}, mapPersistenceError(err)
	}
	return s.mapReference(record), nil
}

// Related suggests other references of the same photographer, same category first.
func (s *service) Related(ctx context.Context, id int64) ([]Reference, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}

	records, err := s.repo.Related(ctx, id, RelatedLimit)
	if err != nil {
		return nil, mapPersistenceError(err)
	}

	out := make([]Reference, 0, len(records))
	for _, record := range records {
		out = append(out, s.mapReference(record))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, audit requesttrace.AuditInfo, id int64, input UpdateInput) (Reference, error) {
	if id <= 0 {
		return Reference{}, ErrNotFound
	}

	var newKey string
	if input.FileName != nil {
		if strings.TrimSpace(*input.FileName) == "" {
			return Reference{}, &ValidationError{Fields: FieldErrors{"fileName": {"fileName must not be empty"}}}
		}
		scope, ok := tenant.FromContext(ctx)
		if !ok || !scope.Valid() {
			return Reference{}, ErrScopeMissing
		}
		key, err := s.imageKey(scope, *input.FileName)
		if err != nil {
			return Reference{}, err
		}
		newKey = key
	}

	var replaced persistence.ReferenceRecord
	record, err := s.repo.Update(ctx, id, func(current persistence.ReferenceRecord) (persistence.ReferenceFields, error) {
		replaced = current
		fields, err := validate(merge(current, input), FieldErrors{})
		if err != nil {
			return persistence.ReferenceFields{}, err
		}
		fields.ObjectKey = current.ObjectKey
		if newKey != "" {
			fields.ObjectKey = newKey
		}
		return fields, nil
	})
	if err != nil {
		return Reference{}, mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("reference updated", zap.Int64("reference_id", record.ID), zap.Bool("image_replaced", newKey != ""))
	if newKey != "" && replaced.ObjectKey != "" && replaced.ObjectKey != record.ObjectKey {
		s.removeBlob(ctx, audit, replaced)
	}
	return s.mapReference(record), nil
}

func (s *service) Delete(ctx context.Context, audit requesttrace.AuditInfo, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}

	record, err := s.repo.Delete(ctx, id)
	if err != nil {
		return mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("reference deleted", zap.Int64("reference_id", id))
	if record.ObjectKey != "" {
		s.removeBlob(ctx, audit, record)
	}
	return nil
}

func (s *service) imageKey(scope tenant.Scope, fileName string) (string, error) {
	key, err := storage.ReferenceImageKey(fileName)
	if err != nil {
		return "", fmt.Errorf("build image key: %w", err)
	}
	location, err := storage.ResolveObjectLocation(scope, s.bucket, key)
	if err != nil {
		return "", fmt.Errorf("resolve image location: %w", err)
	}
	return location.FullPath, nil
}

// removeBlob deletes the stored image of a reference that no longer points at it.
// Failures only leave an orphaned blob, so they are logged and not returned.
func (s *service) removeBlob(ctx context.Context, audit requesttrace.AuditInfo, record persistence.ReferenceRecord) {
	if s.objects == nil {
		return
	}
	loc := storage.ObjectLocation{Bucket: s.bucket, FullPath: record.ObjectKey}
	if err := s.objects.Delete(ctx, loc); err != nil {
		s.log(ctx, audit).Warn("remove reference image blob",
			zap.Int64("reference_id", record.ID), zap.String("object", loc.FullPath), zap.Error(err))
	}
}

func validateCategory(in CategoryInput) (persistence.ReferenceCategoryFields, error) {
	fieldErrors := FieldErrors{}
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		fieldErrors.add("name", "name is required")
	case utf8.RuneCountInString(name) > maxTitleLength:
		fieldErrors.add("name", fmt.Sprintf("name must be at most %d characters", maxTitleLength))
	}
	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		fieldErrors.add("description", fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}

	if len(fieldErrors) > 0 {
		return persistence.ReferenceCategoryFields{}, &ValidationError{Fields: fieldErrors}
	}
	return persistence.ReferenceCategoryFields{Name: name, Description: description}, nil
}

// validate checks the editable fields and returns them normalized. A source URL without a
// scheme is retried as https. The object key is left for the caller.
func validate(in Input, fieldErrors FieldErrors) (persistence.ReferenceFields, error) {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		fieldErrors.add("title", "title is required")
	case utf8.RuneCountInString(title) > maxTitleLength:
		fieldErrors.add("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}

	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		fieldErrors.add("description", fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}

	source := strings.TrimSpace(in.SourceURL)
	if source != "" {
		normalized, ok := normalizeSourceURL(source)
		switch {
		case !ok:
			fieldErrors.add("sourceUrl", "sourceUrl must be a valid http(s) URL")
		case utf8.RuneCountInString(normalized) > maxSourceURLLength:
			fieldErrors.add("sourceUrl", fmt.Sprintf("sourceUrl must be at most %d characters", maxSourceURLLength))
		default:
			source = normalized
		}
	}

	if in.CategoryID != nil && *in.CategoryID <= 0 {
		fieldErrors.add("categoryId", "categoryId must be positive")
	}

	if len(fieldErrors) > 0 {
		return persistence.ReferenceFields{}, &ValidationError{Fields: fieldErrors}
	}
	return persistence.ReferenceFields{
		CategoryID:  in.CategoryID,
		Title:       title,
		Description: description,
		SourceURL:   source,
	}, nil
}

func normalizeSourceURL(raw string) (string, bool) {
	for _, candidate := range []string{raw, "https://" + raw} {
		u, err := url.ParseRequestURI(candidate)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || !strings.Contains(u.Host, ".") {
			continue
		}
		return u.String(), true
	}
	return raw, false
}

func merge(current persistence.ReferenceRecord, in UpdateInput) Input {
	out := Input{
		CategoryID:  current.CategoryID,
		Title:       current.Title,
		Description: current.Description,
		SourceURL:   current.SourceURL,
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&out.Title, in.Title)
	set(&out.Description, in.Description)
	set(&out.SourceURL, in.SourceURL)
	if in.ClearCategory {
		out.CategoryID = nil
	} else if in.CategoryID != nil {
		out.CategoryID = in.CategoryID
	}
	return out
}

func (s *service) log(ctx context.Context, audit requesttrace.AuditInfo) *zap.Logger {
	return logging.FromContextOr(ctx, s.logger).With(audit.Fields()...)
}

func mapCategory(record persistence.ReferenceCategoryRecord) Category {
	return Category{
		ID:             record.ID,
		OwnerID:        record.OwnerID,
		Name:           record.Name,
		Description:    record.Description,
		ReferenceCount: record.ReferenceCount,
		CreatedAt:      record.CreatedAt,
	}
}

func (s *service) mapReference(record persistence.ReferenceRecord) Reference {
	return Reference{
		ID:           record.ID,
		OwnerID:      record.OwnerID,
		CategoryID:   record.CategoryID,
		CategoryName: record.CategoryName,
		Title:        record.Title,
		Bucket:       s.bucket,
		ObjectKey:    record.ObjectKey,
		Description:  record.Description,
		SourceURL:    record.SourceURL,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationErr
	case errors.Is(err, persistence.ErrReferenceNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrReferenceCategoryNotFound):
		return ErrCategoryNotFound
	case errors.Is(err, persistence.ErrInvalidCategoryRef):
		return &ValidationError{Fields: FieldErrors{"categoryId": {"category does not exist"}}}
	case errors.Is(err, repo.ErrScopeMissing), errors.Is(err, persistence.ErrPhotographerNotFound):
		return ErrScopeMissing
	default:
		return err
	}
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
