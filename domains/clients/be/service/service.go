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

	"github.com/photohub/photohub-saas/domains/clients/be/repo"
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
	ErrNotFound     = errors.New("client not found")
	ErrScopeMissing = errors.New("tenant scope missing from context")
)

const (
	maxNameLength    = 30
	maxAddressLength = 255
	maxNotesLength   = 500
	minimumAge       = 14
)

var phonePattern = regexp.MustCompile(`^\+?7?\d{10}$`)

// Client represents the domain view of a photographer's customer.
type Client struct {
	ID          int64
	OwnerID     uuid.UUID
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Address     string
	Notes       string
	BirthDate   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FullName renders "first last".
func (c Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Input carries the full state of a client.
type Input struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Address     string
	Notes       string
	BirthDate   *time.Time
}

// UpdateInput carries a partial edit. ClearBirthDate removes a stored birth date.
type UpdateInput struct {
	FirstName      *string
	LastName       *string
	Email          *string
	PhoneNumber    *string
	Address        *string
	Notes          *string
	BirthDate      *time.Time
	ClearBirthDate bool
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
	Search   *string
	Page     int
	PageSize int
}

// ListResult wraps a page of clients with pagination metadata.
type ListResult struct {
	Clients    []Client
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// Service defines the business operations for the clients domain.
type Service interface {
	Create(ctx context.Context, audit requesttrace.AuditInfo, input Input) (Client, error)
	List(ctx context.Context, opts ListOptions) (ListResult, error)
	Get(ctx context.Context, id int64) (Client, error)
	Update(ctx context.Context, audit requesttrace.AuditInfo, id int64, input UpdateInput) (Client, error)
	Delete(ctx context.Context, audit requesttrace.AuditInfo, id int64) error
}

type service struct {
	repo   repo.Repository
	now    func() time.Time
	logger *zap.Logger
}

// New constructs a clients Service instance backed by the provided repository.
// A nil now uses the wall clock.
func New(r repo.Repository, logger *zap.Logger, now func() time.Time) Service {
	if r == nil {
		panic("clients repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: r, logger: logger, now: now}
}

func (s *service) Create(ctx context.Context, audit requesttrace.AuditInfo, input Input) (Client, error) {
	fields, err := s.validate(input)
	if err != nil {
		return Client{}, err
	}

	record, err := s.repo.Create(ctx, fields)
	if err != nil {
		return Client{}, mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("client created", zap.Int64("client_id", record.ID))
	return mapClient(record), nil
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

	params := persistence.ListClientsParams{Page: page, PageSize: pageSize}
	if opts.Search != nil && strings.TrimSpace(*opts.Search) != "" {
		search := strings.TrimSpace(*opts.Search)
		params.Search = &search
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return ListResult{}, mapPersistenceError(err)
	}

	clients := make([]Client, 0, len(result.Clients))
	for _, record := range result.Clients {
		clients = append(clients, mapClient(record))
	}

	totalPages := 0
	if result.TotalItems > 0 {
		totalPages = (result.TotalItems + pageSize - 1) / pageSize
	}

	return ListResult{
		Clients:    clients,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: result.TotalItems,
		TotalPages: totalPages,
	}, nil
}

func (s *service) Get(ctx context.Context, id int64) (Client, error) {
	if id <= 0 {
		return Client{}, ErrNotFound
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return Client{}, mapPersistenceError(err)
	}
	return mapClient(record), nil
}

func (s *service) Update(ctx context.Context, audit requesttrace.AuditInfo, id int64, input UpdateInput) (Client, error) {
	if id <= 0 {
		return Client{}, ErrNotFound
	}

	record, err := s.repo.Update(ctx, id, func(current persistence.ClientRecord) (persistence.ClientFields, error) {
		return s.validate(merge(current, input))
	})
	if err != nil {
		return Client{}, mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("client updated", zap.Int64("client_id", record.ID))
	return mapClient(record), nil
}

func (s *service) Delete(ctx context.Context, audit requesttrace.AuditInfo, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapPersistenceError(err)
	}

	s.log(ctx, audit).Info("client deleted", zap.Int64("client_id", id))
	return nil
}

// validate checks every field and returns the normalized persistence fields.
// Phone numbers gain a leading "+" when it is missing.
func (s *service) validate(in Input) (persistence.ClientFields, error) {
	fieldErrors := FieldErrors{}

	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	checkName := func(field, value string) {
		switch {
		case value == "":
			fieldErrors.add(field, field+" is required")
		case utf8.RuneCountInString(value) > maxNameLength:
			fieldErrors.add(field, fmt.Sprintf("%s must be at most %d characters", field, maxNameLength))
		}
	}
	checkName("firstName", first)
	checkName("lastName", last)

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email != "" {
		if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			fieldErrors.add("email", "email must be a valid address")
		}
	}

	phone := strings.TrimSpace(in.PhoneNumber)
	if phone != "" {
		if !phonePattern.MatchString(phone) {
			fieldErrors.add("phoneNumber", "phone number must look like +72345678901")
		} else if !strings.HasPrefix(phone, "+") {
			phone = "+" + phone
		}
	}

	address := strings.TrimSpace(in.Address)
	if utf8.RuneCountInString(address) > maxAddressLength {
		fieldErrors.add("address", fmt.Sprintf("address must be at most %d characters", maxAddressLength))
	}
	if utf8.RuneCountInString(in.Notes) > maxNotesLength {
		fieldErrors.add("notes", fmt.Sprintf("notes must be at most %d characters", maxNotesLength))
	}

	var birth *time.Time
	if in.BirthDate != nil {
		d := time.Date(in.BirthDate.Year(), in.BirthDate.Month(), in.BirthDate.Day(), 0, 0, 0, 0, time.UTC)
		birth = &d
		if ageOn(d, s.now()) < minimumAge {
			fieldErrors.add("birthDate", fmt.Sprintf("client must be at least %d years old", minimumAge))
		}
	}

	if len(fieldErrors) > 0 {
		return persistence.ClientFields{}, &ValidationError{Fields: fieldErrors}
	}

	return persistence.ClientFields{
		FirstName:   first,
		LastName:    last,
		Email:       email,
		PhoneNumber: phone,
		Address:     address,
		Notes:       in.Notes,
		BirthDate:   birth,
	}, nil
}

// ageOn returns completed years between birth and today.
func ageOn(birth, today time.Time) int {
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return age
}

func merge(current persistence.ClientRecord, in UpdateInput) Input {
	out := Input{
		FirstName:   current.FirstName,
		LastName:    current.LastName,
		Email:       current.Email,
		PhoneNumber: current.PhoneNumber,
		Address:     current.Address,
		Notes:       current.Notes,
		BirthDate:   current.BirthDate,
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&out.FirstName, in.FirstName)
	set(&out.LastName, in.LastName)
	set(&out.Email, in.Email)
	set(&out.PhoneNumber, in.PhoneNumber)
	set(&out.Address, in.Address)
	set(&out.Notes, in.Notes)
	if in.ClearBirthDate {
		out.BirthDate = nil
	} else if in.BirthDate != nil {
		out.BirthDate = in.BirthDate
	}
	return out
}

func (s *service) log(ctx context.Context, audit requesttrace.AuditInfo) *zap.Logger {
	return logging.FromContextOr(ctx, s.logger).With(audit.Fields()...)
}

func mapClient(record persistence.ClientRecord) Client {
	return Client{
		ID:          record.ID,
		OwnerID:     record.OwnerID,
		FirstName:   record.FirstName,
		LastName:    record.LastName,
		Email:       record.Email,
		PhoneNumber: record.PhoneNumber,
		Address:     record.Address,
		Notes:       record.Notes,
		BirthDate:   record.BirthDate,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationErr
	case errors.Is(err, persistence.ErrClientNotFound):
		return ErrNotFound
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
