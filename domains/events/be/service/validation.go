package service

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/photohub/photohub-saas/platform/go/calendar"
)

// Reason classifies a validation failure.
type Reason string

const (
	ReasonEndBeforeStart Reason = "end-before-start"
	ReasonStartInPast    Reason = "start-in-past"
	ReasonInvalidField   Reason = "invalid-field"
)

// ValidationError reports the first offending field of a draft.
type ValidationError struct {
	Field   string
	Reason  Reason
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Reason, e.Message)
}

// FieldErrors renders the error in the {field: [reason]} shape used by problem documents.
func (e *ValidationError) FieldErrors() map[string][]string {
	return map[string][]string{e.Field: {string(e.Reason)}}
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Reason: ReasonInvalidField, Message: message}
}

// Mode tells the validator whether the draft is a new item or an edit.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

// Draft is the caller-supplied state of an event before normalization.
type Draft struct {
	Title       string
	Category    Category
	Start       time.Time
	End         *time.Time
	AllDay      bool
	ClientID    *int64
	StudioID    *int64
	Color       string
	Description string
}

// In returns the draft with its instants expressed in loc. All-day clamping follows the
// calendar of whatever location the instants carry, so callers pin one location first.
func (d Draft) In(loc *time.Location) Draft {
	if loc == nil {
		return d
	}
	out := d
	out.Start = d.Start.In(loc)
	if d.End != nil {
		end := d.End.In(loc)
		out.End = &end
	}
	return out
}

// ValidateAndNormalize checks a draft and returns the normalized copy. It never touches storage.
// Checks run in a fixed order and stop at the first failure: all-day clamping, end/start
// ordering, the past-start check (create only), then field checks.
func ValidateAndNormalize(d Draft, mode Mode, now time.Time) (Draft, error) {
	out := d
	out.Title = strings.TrimSpace(d.Title)
	out.Color = strings.TrimSpace(d.Color)
	if out.Color == "" {
		out.Color = DefaultColor
	}
	if out.Category == "" {
		out.Category = CategoryPhotoshoot
	}
	if d.End != nil {
		end := *d.End
		out.End = &end
	}

	if out.Start.IsZero() {
		return Draft{}, invalid("start", "start is required")
	}

	if out.AllDay {
		out.Start = calendar.StartOfDay(out.Start)
		endDay := out.Start
		if out.End != nil {
			endDay = *out.End
		}
		end := calendar.EndOfDay(endDay)
		out.End = &end
	}

	if out.End != nil && out.End.Before(out.Start) {
		return Draft{}, &ValidationError{Field: "end", Reason: ReasonEndBeforeStart, Message: "end must not be before start"}
	}

	if mode == ModeCreate && out.Start.Before(now) {
		return Draft{}, &ValidationError{Field: "start", Reason: ReasonStartInPast, Message: "start must not be in the past"}
	}

	if out.Title == "" {
		return Draft{}, invalid("title", "title is required")
	}
	if utf8.RuneCountInString(out.Title) > maxTitleLength {
		return Draft{}, invalid("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if !out.Category.Valid() {
		return Draft{}, invalid("category", fmt.Sprintf("unknown category %q", out.Category))
	}
	if utf8.RuneCountInString(out.Description) > maxDescriptionLength {
		return Draft{}, invalid("description", fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	if utf8.RuneCountInString(out.Color) > maxColorLength {
		return Draft{}, invalid("color", fmt.Sprintf("color must be at most %d characters", maxColorLength))
	}
	if !out.Category.AcceptsLinks() {
		if out.ClientID != nil {
			return Draft{}, invalid("clientId", fmt.Sprintf("%s events cannot link a client", out.Category))
		}
		if out.StudioID != nil {
			return Draft{}, invalid("studioId", fmt.Sprintf("%s events cannot link a location", out.Category))
		}
	}

	if out.End == nil {
		end := out.Start
		out.End = &end
	}

	return out, nil
}
