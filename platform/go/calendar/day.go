package calendar

import "time"

// StartOfDay returns 00:00:00 of t's calendar date in t's own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999999 of t's calendar date in t's own location.
// Microsecond precision matches what the database stores.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999999000, t.Location())
}

// SuggestSlot proposes the next free-looking half-hour boundary after now and a one-hour slot.
// Before half past the slot starts at :30 of the current hour, otherwise at the next full hour.
func SuggestSlot(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	base := time.Date(y, m, d, now.Hour(), 0, 0, 0, now.Location())

	var start time.Time
	if now.Minute() < 30 {
		start = base.Add(30 * time.Minute)
	} else {
		start = base.Add(time.Hour)
	}
	return start, start.Add(time.Hour)
}
