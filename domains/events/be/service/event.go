package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category is the closed set of event kinds.
type Category string

const (
	CategoryPhotoshoot Category = "photoshoot"
	CategoryPost       Category = "post"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryPhotoshoot, CategoryPost}

// DefaultColor is used when a draft carries no color.
const DefaultColor = "#3788d8"

const (
	maxTitleLength       = 255
	maxDescriptionLength = 500
	maxColorLength       = 20
)

// ParseCategory validates a raw category key.
func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return c, nil
}

func (c Category) Valid() bool {
	return c == CategoryPhotoshoot || c == CategoryPost
}

// AcceptsLinks reports whether events of this category may reference a client or a studio.
// Social posts have neither.
func (c Category) AcceptsLinks() bool {
	return c == CategoryPhotoshoot
}

// Event is the domain view of a scheduled item.
type Event struct {
	ID          int64
	OwnerID     uuid.UUID
	Title       string
	Category    Category
	Start       time.Time
	End         *time.Time
	AllDay      bool
	ClientID    *int64
	ClientName  *string
	StudioID    *int64
	StudioName  *string
	Color       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EffectiveEnd returns End, or Start for items stored without an end.
func (e Event) EffectiveEnd() time.Time {
	if e.End != nil {
		return *e.End
	}
	return e.Start
}

// Domain sentinel errors.
var (
	ErrNotFound = errors.New("event not found")
	// ErrScopeMissing means the request reached the service without a tenant scope.
	ErrScopeMissing = errors.New("tenant scope missing from context")
)
