package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func ptrTo[T any](v T) *T { return &v }

func requireReason(t *testing.T, err error, field string, reason Reason) {
	t.Helper()
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, field, vErr.Field)
	require.Equal(t, reason, vErr.Reason)
}

func TestValidateEndBeforeStart(t *testing.T) {
	t.Parallel()

	_, err := ValidateAndNormalize(Draft{
		Title: "Shoot",
		Start: at(t, "2025-06-01T10:00:00Z"),
		End:   ptrTo(at(t, "2025-06-01T09:00:00Z")),
	}, ModeCreate, fixedNow)

	requireReason(t, err, "end", ReasonEndBeforeStart)
}

func TestValidateAllDayClamp(t *testing.T) {
	t.Parallel()

	out, err := ValidateAndNormalize(Draft{
		Title:  "Wedding",
		Start:  at(t, "2025-06-01T15:30:00Z"),
		AllDay: true,
	}, ModeCreate, fixedNow)
	require.NoError(t, err)

	require.Equal(t, at(t, "2025-06-01T00:00:00Z"), out.Start)
	require.NotNil(t, out.End)
	require.Equal(t, time.Date(2025, 6, 1, 23, 59, 59, 999999000, time.UTC), *out.End)
}

func TestValidateAllDayClampKeepsEndDate(t *testing.T) {
	t.Parallel()

	out, err := ValidateAndNormalize(Draft{
		Title:  "Retreat",
		Start:  at(t, "2025-06-01T15:30:00Z"),
		End:    ptrTo(at(t, "2025-06-03T08:00:00Z")),
		AllDay: true,
	}, ModeCreate, fixedNow)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 6, 3, 23, 59, 59, 999999000, time.UTC), *out.End)
}

func TestValidateAllDayEndOnEarlierDateFails(t *testing.T) {
	t.Parallel()

	_, err := ValidateAndNormalize(Draft{
		Title:  "Backwards",
		Start:  at(t, "2025-06-03T10:00:00Z"),
		End:    ptrTo(at(t, "2025-06-02T10:00:00Z")),
		AllDay: true,
	}, ModeCreate, fixedNow)
	requireReason(t, err, "end", ReasonEndBeforeStart)
}

func TestValidatePastStartOnlyOnCreate(t *testing.T) {
	t.Parallel()

	draft := Draft{
		Title: "Yesterday",
		Start: fixedNow.Add(-time.Hour),
		End:   ptrTo(fixedNow.Add(time.Hour)),
	}

	_, err := ValidateAndNormalize(draft, ModeCreate, fixedNow)
	requireReason(t, err, "start", ReasonStartInPast)

	out, err := ValidateAndNormalize(draft, ModeUpdate, fixedNow)
	require.NoError(t, err)
	require.Equal(t, draft.Start, out.Start)
}

func TestValidateMissingEndDefaultsToStart(t *testing.T) {
	t.Parallel()

	start := at(t, "2025-06-01T10:00:00Z")
	out, err := ValidateAndNormalize(Draft{Title: "Post", Category: CategoryPost, Start: start}, ModeCreate, fixedNow)
	require.NoError(t, err)
	require.Equal(t, start, *out.End)
}

func TestValidateDefaults(t *testing.T) {
	t.Parallel()

	out, err := ValidateAndNormalize(Draft{Title: "  Portraits  ", Start: at(t, "2025-06-01T10:00:00Z")}, ModeCreate, fixedNow)
	require.NoError(t, err)
	require.Equal(t, "Portraits", out.Title)
	require.Equal(t, CategoryPhotoshoot, out.Category)
	require.Equal(t, DefaultColor, out.Color)
}

func TestValidateFieldChecks(t *testing.T) {
	t.Parallel()

	start := at(t, "2025-06-01T10:00:00Z")
	cases := []struct {
		name  string
		draft Draft
		field string
	}{
		{"blank title", Draft{Title: "   ", Start: start}, "title"},
		{"long title", Draft{Title: strings.Repeat("a", 256), Start: start}, "title"},
		{"unknown category", Draft{Title: "x", Category: "party", Start: start}, "category"},
		{"long description", Draft{Title: "x", Start: start, Description: strings.Repeat("д", 501)}, "description"},
		{"long color", Draft{Title: "x", Start: start, Color: strings.Repeat("f", 21)}, "color"},
		{"post with client", Draft{Title: "x", Category: CategoryPost, Start: start, ClientID: ptrTo(int64(1))}, "clientId"},
		{"post with studio", Draft{Title: "x", Category: CategoryPost, Start: start, StudioID: ptrTo(int64(1))}, "studioId"},
		{"missing start", Draft{Title: "x"}, "start"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ValidateAndNormalize(tc.draft, ModeCreate, fixedNow)
			requireReason(t, err, tc.field, ReasonInvalidField)
		})
	}
}

func TestValidateLimitsCountCharacters(t *testing.T) {
	t.Parallel()

	out, err := ValidateAndNormalize(Draft{
		Title:       strings.Repeat("ф", 255),
		Description: strings.Repeat("ж", 500),
		Start:       at(t, "2025-06-01T10:00:00Z"),
	}, ModeCreate, fixedNow)
	require.NoError(t, err)
	require.Len(t, []rune(out.Title), 255)
}

func TestValidateOrderingHoldsAfterNormalization(t *testing.T) {
	t.Parallel()

	base := at(t, "2025-06-01T10:00:00Z")
	for _, allDay := range []bool{false, true} {
		for _, offset := range []time.Duration{0, time.Minute, 5 * time.Hour, 48 * time.Hour} {
			out, err := ValidateAndNormalize(Draft{
				Title:  "Check",
				Start:  base,
				End:    ptrTo(base.Add(offset)),
				AllDay: allDay,
			}, ModeCreate, fixedNow)
			require.NoError(t, err)
			require.False(t, out.End.Before(out.Start))
		}
	}
}

func TestValidateFirstFailureWins(t *testing.T) {
	t.Parallel()

	// end-before-start is reported even though the title is also invalid and the start is in the past.
	_, err := ValidateAndNormalize(Draft{
		Start: fixedNow.Add(-2 * time.Hour),
		End:   ptrTo(fixedNow.Add(-3 * time.Hour)),
	}, ModeCreate, fixedNow)
	requireReason(t, err, "end", ReasonEndBeforeStart)
}
