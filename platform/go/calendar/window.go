// Package calendar holds the storage-independent time rules of the scheduling core:
// query windows, interval overlap, chronological ordering and all-day clamping.
package calendar

import (
	"cmp"
	"errors"
	"slices"
	"time"
)

// DefaultSpan is how far the default query window reaches on each side of now.
const DefaultSpan = 30 * 24 * time.Hour

// ErrInvertedWindow is returned when a requested window ends before it starts.
var ErrInvertedWindow = errors.New("window end must be after its start")

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// DefaultWindow returns [now-span, now+span).
func DefaultWindow(now time.Time, span time.Duration) Window {
	if span <= 0 {
		span = DefaultSpan
	}
	return Window{Start: now.Add(-span), End: now.Add(span)}
}

// ResolveWindow fills each missing bound from the default window independently.
func ResolveWindow(start, end *time.Time, now time.Time, span time.Duration) (Window, error) {
	w := DefaultWindow(now, span)
	if start != nil {
		w.Start = *start
	}
	if end != nil {
		w.End = *end
	}
	if !w.End.After(w.Start) {
		return Window{}, ErrInvertedWindow
	}
	return w, nil
}

// Overlaps reports whether an item spanning [start, end) intersects the window.
// A nil or zero-length end makes the item an instant, which matches when it lies inside the window.
func (w Window) Overlaps(start time.Time, end *time.Time) bool {
	if !start.Before(w.End) {
		return false
	}
	if end == nil || !end.After(start) {
		return !start.Before(w.Start)
	}
	return end.After(w.Start)
}

// SortChronological orders items by start ascending, ties broken by id.
func SortChronological[T any](items []T, start func(T) time.Time, id func(T) int64) {
	slices.SortStableFunc(items, func(a, b T) int {
		if c := start(a).Compare(start(b)); c != 0 {
			return c
		}
		return cmp.Compare(id(a), id(b))
	})
}
