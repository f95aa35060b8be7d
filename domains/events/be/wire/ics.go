package wire

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/photohub/photohub-saas/domains/events/be/service"
	"github.com/photohub/photohub-saas/platform/go/calendar"
)

const productID = "-//PhotoHub//Calendar Export//EN"

// ICSContentType is the media type of WriteICS output.
const ICSContentType = "text/calendar; charset=utf-8"

// ICSOptions controls the iCalendar export.
type ICSOptions struct {
	Options
	// UIDDomain qualifies event UIDs, e.g. "photohub.app".
	UIDDomain string
	// Stamp is written as DTSTAMP on every event.
	Stamp time.Time
}

// BuildCalendar renders events as a published iCalendar feed.
// All-day events use DATE values with an exclusive end date.
func BuildCalendar(events []service.Event, opts ICSOptions) *ics.Calendar {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	domain := opts.UIDDomain
	if domain == "" {
		domain = "photohub.local"
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRTimezone(loc.String())

	for _, e := range events {
		ve := cal.AddEvent(fmt.Sprintf("event-%d@%s", e.ID, domain))
		ve.SetDtStampTime(opts.Stamp)
		ve.SetSummary(e.Title)
		if e.AllDay {
			ve.SetAllDayStartAt(calendar.StartOfDay(e.Start.In(loc)))
			ve.SetAllDayEndAt(calendar.StartOfDay(e.EffectiveEnd().In(loc)).AddDate(0, 0, 1))
		} else {
			ve.SetStartAt(e.Start)
			ve.SetEndAt(e.EffectiveEnd())
		}
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.StudioName != nil {
			ve.SetLocation(*e.StudioName)
		}
		if opts.URLBase != "" {
			ve.SetURL(DetailURL(opts.URLBase, e.ID))
		}
		ve.SetColor(e.Color)
		ve.SetProperty(ics.ComponentPropertyCategories, CategoryLabel(e.Category, opts.Language))
		if !e.UpdatedAt.IsZero() {
			ve.SetModifiedAt(e.UpdatedAt)
		}
	}
	return cal
}

// WriteICS serializes events to w.
func WriteICS(w io.Writer, events []service.Event, opts ICSOptions) error {
	return BuildCalendar(events, opts).SerializeTo(w)
}
