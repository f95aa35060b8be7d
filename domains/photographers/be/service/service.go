package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/photohub/photohub-saas/domains/photographers/be/repo"
	"github.com/photohub/photohub-saas/platform/go/logging"
	"github.com/photohub/photohub-saas/platform/go/persistence"
	"github.com/photohub/photohub-saas/platform/go/requesttrace"
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
	ErrNotFound = errors.New("photographer not found")
	ErrConflict = errors.New("photographer conflict")
)

const maxNameLength = 30

var phonePattern = regexp.MustCompile(`^\+?7?\d{10}$`)

// Photographer is the account that owns events, clients and studios.
type Photographer struct {
	ID          uuid.UUID
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FullName renders "first last".
func (p Photographer) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
	Email    *string
	Page     int
	PageSize int
	Sort     *string
}

// ListResult wraps a page of photographers with pagination metadata.
type ListResult struct {
	Photographers []Photographer
	Page          int
	PageSize      int
	TotalItems    int
	TotalPages    int
}

// CreateInput registers an account. A nil ID generates one; provisioning from the identity
// provider passes the provider's photographer id.
type CreateInput struct {
	ID          uuid.UUID
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
}

// UpdateInput encapsulates the self-editable profile fields.
type UpdateInput struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
}

// Service defines the business operations for the photographers domain.
type Service interface {
	Create(ctx context.Context, audit requesttrace.AuditInfo, input CreateInput) (Photographer, error)
	List(ctx context.Context, opts ListOptions) (ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (Photographer, error)
	Update(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, input UpdateInput) (Photographer, error)
	Delete(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error
}

type service struct {
	repo   repo.Repository
	logger *zap.Logger
}

// New constructs a photographers Service instance backed by the provided repository.
func New(r repo.Repository, logger *zap.Logger) Service {
	if r == nil {
		panic("photographers repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{repo: r, logger: logger}
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

	sortValue, err := sanitizeSort(opts.Sort)
	if err != nil {
		return ListResult{}, err
	}

	params := persistence.ListPhotographersParams{Page: page, PageSize: pageSize, Sort: sortValue}
	if opts.Email != nil && strings.TrimSpace(*opts.Email) != "" {
		email := strings.TrimSpace(*opts.Email)
		params.Email = &email
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return ListResult{}, err
	}

	out := make([]Photographer, 0, len(result.Photographers))
	for _, record := range result.Photographers {
		out = append(out, mapPhotographer(record))
	}

	totalPages := 0
	if result.TotalItems > 0 {
		totalPages = (result.TotalItems + pageSize - 1) / pageSize
	}

	return ListResult{
		Photographers: out,
		Page:          page,
		PageSize:      pageSize,
		TotalItems:    result.TotalItems,
		TotalPages:    totalPages,
	}, nil
}

func (s *service) Create(ctx context.Context, audit requesttrace.AuditInfo, input CreateInput) (Photographer, error) {
	fieldErrors := FieldErrors{}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	switch {
	case email == "":
		fieldErrors.add("email", "email is required")
	default:
		if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			fieldErrors.add("email", "email must be a valid address")
		}
	}

	first := checkName(fieldErrors, "firstName", input.FirstName)
	last := checkName(fieldErrors, "lastName", input.LastName)
	phone := checkPhone(fieldErrors, input.PhoneNumber)

	if len(fieldErrors) > 0 {
		return Photographer{}, &ValidationError{Fields: fieldErrors}
	}

	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	record, err := s.repo.Create(ctx, persistence.CreatePhotographerParams{
		ID:          id,
		Email:       email,
		FirstName:   first,
		LastName:    last,
		PhoneNumber: phone,
	})
	if err != nil {
		return Photographer{}, mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("photographer created", zap.String("photographer_id", record.ID.String()))
	return mapPhotographer(record), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (Photographer, error) {
	if id == uuid.Nil {
		return Photographer{}, ErrNotFound
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return Photographer{}, mapPersistenceError(err)
	}
	return mapPhotographer(record), nil
}

func (s *service) Update(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, input UpdateInput) (Photographer, error) {
	if id == uuid.Nil {
		return Photographer{}, ErrNotFound
	}

	fieldErrors := FieldErrors{}
	params := persistence.UpdatePhotographerParams{}
	if input.FirstName != nil {
		v := checkName(fieldErrors, "firstName", *input.FirstName)
		params.FirstName = &v
	}
	if input.LastName != nil {
		v := checkName(fieldErrors, "lastName", *input.LastName)
		params.LastName = &v
	}
	if input.PhoneNumber != nil {
		v := checkPhone(fieldErrors, *input.PhoneNumber)
		params.PhoneNumber = &v
	}
	if params.FirstName == nil && params.LastName == nil && params.PhoneNumber == nil {
		fieldErrors.add("payload", "at least one field must be provided")
	}
	if len(fieldErrors) > 0 {
		return Photographer{}, &ValidationError{Fields: fieldErrors}
	}

	record, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return Photographer{}, mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("photographer updated", zap.String("photographer_id", id.String()))
	return mapPhotographer(record), nil
}

// Delete removes the account; the store cascades to events, clients, studios and images.
func (s *service) Delete(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("photographer deleted", zap.String("photographer_id", id.String()))
	return nil
}

func checkName(fieldErrors FieldErrors, field, value string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		fieldErrors.add(field, field+" is required")
	case utf8.RuneCountInString(value) > maxNameLength:
		fieldErrors.add(field, fmt.Sprintf("%s must be at most %d characters", field, maxNameLength))
	}
	return value
}

// checkPhone accepts an empty number; valid numbers gain a leading "+".
func checkPhone(fieldErrors FieldErrors, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !phonePattern.MatchString(value) {
		fieldErrors.add("phoneNumber", "phone number must look like +72345678901")
		return value
	}
	if !strings.HasPrefix(value, "+") {
		value = "+" + value
	}
	return value
}

func sanitizeSort(sort *string) (*string, error) {
	if sort == nil || strings.TrimSpace(*sort) == "" {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*sort)

	allowed := map[string]struct{}{
		"email":     {},
		"lastName":  {},
		"createdAt": {},
		"updatedAt": {},
	}
	for _, raw := range strings.Split(trimmed, ",") {
		field := strings.TrimPrefix(strings.TrimSpace(raw), "-")
		if field == "" {
			continue
		}
		if _, ok := allowed[field]; !ok {
			return nil, &ValidationError{Fields: FieldErrors{"sort": {fmt.Sprintf("unsupported sort field %q", field)}}}
		}
	}
	return &trimmed, nil
}

func (s *service) log(ctx context.Context, audit requesttrace.AuditInfo) *zap.Logger {
	return logging.FromContextOr(ctx, s.logger).With(audit.Fields()...)
}

func mapPhotographer(record persistence.Photographer) Photographer {
	return Photographer{
		ID:          record.ID,
		Email:       record.Email,
		FirstName:   record.FirstName,
		LastName:    record.LastName,
		PhoneNumber: record.PhoneNumber,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrPhotographerNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrPhotographerConflict):
		return ErrConflict
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
