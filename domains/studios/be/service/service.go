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

	"github.com/photohub/photohub-saas/domains/studios/be/repo"
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
	ErrNotFound      = errors.New("studio not found")
	ErrImageNotFound = errors.New("studio image not found")
	ErrReadOnly      = errors.New("studio belongs to another photographer")
	ErrConflict      = errors.New("concurrent main image change")
	ErrScopeMissing  = errors.New("tenant scope missing from context")
)

// Location types.
const (
	LocationStudio  = "studio"
	LocationOutdoor = "outdoor"
)

const (
	maxNameLength        = 50
	maxAddressLength     = 50
	maxDescriptionLength = 500
	maxCaptionLength     = 255
)

// Studio is a shooting location.
type Studio struct {
	ID           int64
	CreatedBy    uuid.UUID
	Name         string
	LocationType string
	City         string
	District     string
	Street       string
	Building     string
	Website      string
	Description  string
	IsPublic     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullAddress joins the address parts, skipping an empty district.
func (s Studio) FullAddress() string {
	parts := []string{s.City}
	if s.District != "" {
		parts = append(parts, s.District)
	}
	return strings.Join(append(parts, s.Street, s.Building), ", ")
}

// Image is one picture of a studio. ObjectKey is the tenant-prefixed path inside Bucket.
type Image struct {
	ID        int64
	StudioID  int64
	Bucket    string
	ObjectKey string
	Caption   string
	IsMain    bool
	CreatedAt time.Time
}

// Input carries the full state of a studio. An empty LocationType means LocationStudio.
type Input struct {
	Name         string
	LocationType string
	City         string
	District     string
	Street       string
	Building     string
	Website      string
	Description  string
	IsPublic     bool
}

// UpdateInput carries a partial edit.
type UpdateInput struct {
	Name         *string
	LocationType *string
	City         *string
	District     *string
	Street       *string
	Building     *string
	Website      *string
	Description  *string
	IsPublic     *bool
}

// ImageInput describes an uploaded picture.
type ImageInput struct {
	FileName string
	Caption  string
	IsMain   bool
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
	Search       *string
	LocationType *string
	OnlyOwn      bool
	Page         int
	PageSize     int
}

// ListResult wraps a page of studios with pagination metadata.
type ListResult struct {
	Studios    []Studio
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// Service defines the business operations for the studios domain.
type Service interface {
	Create(ctx context.Context, audit requesttrace.AuditInfo, input Input) (Studio, error)
	List(ctx context.Context, opts ListOptions) (ListResult, error)
	Get(ctx context.Context, id int64) (Studio, error)
	Update(ctx context.Context, audit requesttrace.AuditInfo, id int64, input UpdateInput) (Studio, error)
	Delete(ctx context.Context, audit requesttrace.AuditInfo, id int64) error

	ListImages(ctx context.Context, studioID int64) ([]Image, error)
	AddImage(ctx context.Context, audit requesttrace.AuditInfo, studioID int64, input ImageInput) (Image, error)
	DeleteImage(ctx context.Context, audit requesttrace.AuditInfo, studioID, imageID int64) error
	SetMainImage(ctx context.Context, audit requesttrace.AuditInfo, studioID, imageID int64) error
}

type service struct {
	repo    repo.Repository
	bucket  string
	objects storage.ObjectStore
	logger  *zap.Logger
}

// New constructs a studios Service. Image keys are placed in bucket under the tenant prefix.
func New(r repo.Repository, logger *zap.Logger, bucket string) Service {
	return NewWithObjectStore(r, logger, bucket, nil)
}

// NewWithObjectStore also removes image blobs from objects once their rows are gone.
func NewWithObjectStore(r repo.Repository, logger *zap.Logger, bucket string, objects storage.ObjectStore) Service {
	if r == nil {
		panic("studios repository is required")
	}
	if strings.TrimSpace(bucket) == "" {
		panic("media bucket is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{repo: r, bucket: bucket, objects: objects, logger: logger}
}

func (s *service) Create(ctx context.Context, audit requesttrace.AuditInfo, input Input) (Studio, error) {
	fields, err := validate(input)
	if err != nil {
		return Studio{}, err
	}

	record, err := s.repo.Create(ctx, fields)
	if err != nil {
		return Studio{}, mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("studio created", zap.Int64("studio_id", record.ID), zap.Bool("public", record.IsPublic))
	return mapStudio(record), nil
}

func (s *service) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	page := max(opts.Page, 1)
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	params := persistence.ListStudiosParams{Page: page, PageSize: pageSize, OnlyOwn: opts.OnlyOwn}
	if opts.Search != nil && strings.TrimSpace(*opts.Search) != "" {
		search := strings.TrimSpace(*opts.Search)
		params.Search = &search
	}
	if opts.LocationType != nil && *opts.LocationType != "" {
		lt := *opts.LocationType
		if lt != LocationStudio && lt != LocationOutdoor {
			return ListResult{}, &ValidationError{Fields: FieldErrors{"locationType": {"locationType must be studio or outdoor"}}}
		}
		params.LocationType = &lt
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return ListResult{}, mapPersistenceError(err)
	}

	studios := make([]Studio, 0, len(result.Studios))
	for _, record := range result.Studios {
		studios = append(studios, mapStudio(record))
	}

	totalPages := 0
	if result.TotalItems > 0 {
		totalPages = (result.TotalItems + pageSize - 1) / pageSize
	}

	return ListResult{
		Studios:    studios,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: result.TotalItems,
		TotalPages: totalPages,
	}, nil
}

func (s *service) Get(ctx context.Context, id int64) (Studio, error) {
	if id <= 0 {
		return Studio{}, ErrNotFound
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return Studio{}, mapPersistenceError(err)
	}
	return mapStudio(record), nil
}

func (s *service) Update(ctx context.Context, audit requesttrace.AuditInfo, id int64, input UpdateInput) (Studio, error) {
	if id <= 0 {
		return Studio{}, ErrNotFound
	}

	record, err := s.repo.Update(ctx, id, func(current persistence.StudioRecord) (persistence.StudioFields, error) {
		return validate(merge(current, input))
	})
	if err != nil {
		return Studio{}, mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("studio updated", zap.Int64("studio_id", record.ID))
	return mapStudio(record), nil
}

func (s *service) Delete(ctx context.Context, audit requesttrace.AuditInfo, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}

	var images []persistence.StudioImageRecord
	if s.objects != nil {
		var err error
		if images, err = s.repo.ListImages(ctx, id); err != nil {
			return mapPersistenceError(err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("studio deleted", zap.Int64("studio_id", id), zap.Int("images", len(images)))
	for _, image := range images {
		s.removeBlob(ctx, audit, image)
	}
	return nil
}

func (s *service) ListImages(ctx context.Context, studioID int64) ([]Image, error) {
	if studioID <= 0 {
		return nil, ErrNotFound
	}

	records, err := s.repo.ListImages(ctx, studioID)
	if err != nil {
		return nil, mapPersistenceError(err)
	}

	images := make([]Image, 0, len(records))
	for _, record := range records {
		images = append(images, s.mapImage(record))
	}
	return images, nil
}

func (s *service) AddImage(ctx context.Context, audit requesttrace.AuditInfo, studioID int64, input ImageInput) (Image, error) {
	if studioID <= 0 {
		return Image{}, ErrNotFound
	}

	scope, ok := tenant.FromContext(ctx)
	if !ok || !scope.Valid() {
		return Image{}, ErrScopeMissing
	}

	fieldErrors := FieldErrors{}
	caption := strings.TrimSpace(input.Caption)
	if utf8.RuneCountInString(caption) > maxCaptionLength {
		fieldErrors.add("caption", fmt.Sprintf("caption must be at most %d characters", maxCaptionLength))
	}
	if strings.TrimSpace(input.FileName) == "" {
		fieldErrors.add("fileName", "fileName is required")
	}
	if len(fieldErrors) > 0 {
		return Image{}, &ValidationError{Fields: fieldErrors}
	}

	key, err := storage.StudioImageKey(studioID, input.FileName)
	if err != nil {
		return Image{}, fmt.Errorf("build image key: %w", err)
	}
	location, err := storage.ResolveObjectLocation(scope, s.bucket, key)
	if err != nil {
		return Image{}, fmt.Errorf("resolve image location: %w", err)
	}

	params := persistence.AddStudioImageParams{ObjectKey: location.FullPath, Caption: caption, IsMain: input.IsMain}
	record, err := s.repo.AddImage(ctx, studioID, params)
	if errors.Is(err, persistence.ErrFlagConflict) {
		record, err = s.repo.AddImage(ctx, studioID, params)
	}
	if err != nil {
		return Image{}, mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("studio image added",
		zap.Int64("studio_id", studioID),
		zap.Int64("image_id", record.ID),
		zap.Bool("main", record.IsMain),
	)
	return s.mapImage(record), nil
}

func (s *service) DeleteImage(ctx context.Context, audit requesttrace.AuditInfo, studioID, imageID int64) error {
	if studioID <= 0 {
		return ErrNotFound
	}
	if imageID <= 0 {
		return ErrImageNotFound
	}

	var target *persistence.StudioImageRecord
	if s.objects != nil {
		images, err := s.repo.ListImages(ctx, studioID)
		if err != nil {
			return mapPersistenceError(err)
		}
		for i := range images {
			if images[i].ID == imageID {
				target = &images[i]
				break
			}
		}
	}

	if err := s.repo.DeleteImage(ctx, studioID, imageID); err != nil {
		return mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("studio image deleted", zap.Int64("studio_id", studioID), zap.Int64("image_id", imageID))
	if target != nil {
		s.removeBlob(ctx, audit, *target)
	}
	return nil
}

// removeBlob deletes the stored object of an image whose row is already gone.
// Failures only leave an orphaned blob, so they are logged and not returned.
func (s *service) removeBlob(ctx context.Context, audit requesttrace.AuditInfo, image persistence.StudioImageRecord) {
	loc := storage.ObjectLocation{Bucket: s.bucket, FullPath: image.ObjectKey}
	if err := s.objects.Delete(ctx, loc); err != nil {
		s.log(ctx, audit).Warn("remove studio image blob",
			zap.Int64("image_id", image.ID), zap.String("object", loc.FullPath), zap.Error(err))
	}
}

// SetMainImage retries once when a concurrent writer wins the flag, then reports ErrConflict.
func (s *service) SetMainImage(ctx context.Context, audit requesttrace.AuditInfo, studioID, imageID int64) error {
	if studioID <= 0 {
		return ErrNotFound
	}
	if imageID <= 0 {
		return ErrImageNotFound
	}

	err := s.repo.SetMainImage(ctx, studioID, imageID)
	if errors.Is(err, persistence.ErrFlagConflict) {
		s.log(ctx, audit).Debug("main image race, retrying", zap.Int64("studio_id", studioID))
		err = s.repo.SetMainImage(ctx, studioID, imageID)
	}
	if err != nil {
		return mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("studio main image set", zap.Int64("studio_id", studioID), zap.Int64("image_id", imageID))
	return nil
}

// validate checks every field and returns the normalized persistence fields.
// A website without a scheme is accepted when it parses with an https:// prefix.
func validate(in Input) (persistence.StudioFields, error) {
	fieldErrors := FieldErrors{}

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		fieldErrors.add("name", "name is required")
	case utf8.RuneCountInString(name) > maxNameLength:
		fieldErrors.add("name", fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}

	locationType := strings.TrimSpace(in.LocationType)
	if locationType == "" {
		locationType = LocationStudio
	}
	if locationType != LocationStudio && locationType != LocationOutdoor {
		fieldErrors.add("locationType", "locationType must be studio or outdoor")
	}

	address := func(field, value string, required bool) string {
		value = strings.TrimSpace(value)
		switch {
		case value == "" && required:
			fieldErrors.add(field, field+" is required")
		case utf8.RuneCountInString(value) > maxAddressLength:
			fieldErrors.add(field, fmt.Sprintf("%s must be at most %d characters", field, maxAddressLength))
		}
		return value
	}
	city := address("city", in.City, true)
	district := address("district", in.District, false)
	street := address("street", in.Street, true)
	building := address("building", in.Building, true)

	website := strings.TrimSpace(in.Website)
	if website != "" {
		normalized, ok := normalizeWebsite(website)
		if !ok {
			fieldErrors.add("website", "website must be a valid URL")
		}
		website = normalized
	}

	if utf8.RuneCountInString(in.Description) > maxDescriptionLength {
		fieldErrors.add("description", fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}

	if len(fieldErrors) > 0 {
		return persistence.StudioFields{}, &ValidationError{Fields: fieldErrors}
	}

	return persistence.StudioFields{
		Name:         name,
		LocationType: locationType,
		City:         city,
		District:     district,
		Street:       street,
		Building:     building,
		Website:      website,
		Description:  in.Description,
		IsPublic:     in.IsPublic,
	}, nil
}

func normalizeWebsite(raw string) (string, bool) {
	for _, candidate := range []string{raw, "https://" + raw} {
		u, err := url.ParseRequestURI(candidate)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || !strings.Contains(u.Host, ".") {
			continue
		}
		return u.String(), true
	}
	return raw, false
}

func merge(current persistence.StudioRecord, in UpdateInput) Input {
	out := Input{
		Name:         current.Name,
		LocationType: current.LocationType,
		City:         current.City,
		District:     current.District,
		Street:       current.Street,
		Building:     current.Building,
		Website:      current.Website,
		Description:  current.Description,
		IsPublic:     current.IsPublic,
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&out.Name, in.Name)
	set(&out.LocationType, in.LocationType)
	set(&out.City, in.City)
	set(&out.District, in.District)
	set(&out.Street, in.Street)
	set(&out.Building, in.Building)
	set(&out.Website, in.Website)
	set(&out.Description, in.Description)
	if in.IsPublic != nil {
		out.IsPublic = *in.IsPublic
	}
	return out
}

func (s *service) log(ctx context.Context, audit requesttrace.AuditInfo) *zap.Logger {
	return logging.FromContextOr(ctx, s.logger).With(audit.Fields()...)
}

func mapStudio(record persistence.StudioRecord) Studio {
	return Studio{
		ID:           record.ID,
		CreatedBy:    record.CreatedBy,
		Name:         record.Name,
		LocationType: record.LocationType,
		City:         record.City,
		District:     record.District,
		Street:       record.Street,
		Building:     record.Building,
		Website:      record.Website,
		Description:  record.Description,
		IsPublic:     record.IsPublic,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}

func (s *service) mapImage(record persistence.StudioImageRecord) Image {
	return Image{
		ID:        record.ID,
		StudioID:  record.StudioID,
		Bucket:    s.bucket,
		ObjectKey: record.ObjectKey,
		Caption:   record.Caption,
		IsMain:    record.IsMain,
		CreatedAt: record.CreatedAt,
	}
}

func mapPersistenceError(err error) error {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationErr
	case errors.Is(err, persistence.ErrStudioNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrStudioImageNotFound):
		return ErrImageNotFound
	case errors.Is(err, persistence.ErrStudioReadOnly):
		return ErrReadOnly
	case errors.Is(err, persistence.ErrFlagConflict):
		return ErrConflict
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
