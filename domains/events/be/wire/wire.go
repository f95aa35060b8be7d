// Package wire renders events for calendar front-ends: the JSON event shape
// consumed by calendar widgets and an iCalendar export of the same items.
package wire

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/photohub/photohub-saas/domains/events/be/service"
)

// Event is the calendar widget representation of a scheduled item.
type Event struct {
	ID            int64         `json:"id"`
	Title         string        `json:"title"`
	Start         string        `json:"start"`
	End           string        `json:"end"`
	AllDay        bool          `json:"allDay"`
	Color         string        `json:"color"`
	URL           string        `json:"url"`
	ExtendedProps ExtendedProps `json:"extendedProps"`
}

// ExtendedProps carries the fields calendar widgets pass through untouched.
type ExtendedProps struct {
	Category        string  `json:"category"`
	CategoryDisplay string  `json:"category_display"`
	Description     string  `json:"description"`
	Client          *string `json:"client"`
	Location        *string `json:"location"`
}

// Options controls rendering. A nil Location renders instants in UTC.
type Options struct {
	Location *time.Location
	URLBase  string
	Language language.Tag
}

// TimeLayout is the timestamp layout of start and end.
const TimeLayout = time.RFC3339Nano

// ToWire projects e onto the widget shape. An event without an end reports its start as end.
func ToWire(e service.Event, opts Options) Event {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	return Event{
		ID:     e.ID,
		Title:  e.Title,
		Start:  e.Start.In(loc).Format(TimeLayout),
		End:    e.EffectiveEnd().In(loc).Format(TimeLayout),
		AllDay: e.AllDay,
		Color:  e.Color,
		URL:    DetailURL(opts.URLBase, e.ID),
		ExtendedProps: ExtendedProps{
			Category:        string(e.Category),
			CategoryDisplay: CategoryLabel(e.Category, opts.Language),
			Description:     e.Description,
			Client:          e.ClientName,
			Location:        e.StudioName,
		},
	}
}

// ToWireList renders events in their given order.
func ToWireList(events []service.Event, opts Options) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		out = append(out, ToWire(e, opts))
	}
	return out
}

// DetailURL builds "<base>/<id>/".
func DetailURL(base string, id int64) string {
	return fmt.Sprintf("%s/%d/", strings.TrimRight(base, "/"), id)
}
