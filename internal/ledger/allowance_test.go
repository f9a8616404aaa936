package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMondayUTC(t *testing.T) {
	monday := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		in   time.Time
	}{
		{"monday itself", time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)},
		{"monday evening", time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)},
		{"wednesday", time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)},
		{"sunday", time.Date(2026, 9, 6, 18, 30, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, monday, MondayUTC(c.in))
		})
	}
}

func TestMondayUTCNormalizesZone(t *testing.T) {
	// Sunday 23:00 in UTC-5 is Monday 04:00 UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	in := time.Date(2026, 8, 30, 23, 0, 0, 0, loc)

	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), MondayUTC(in))
}

func TestWeeksBetween(t *testing.T) {
	base := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(0), WeeksBetween(base, base))
	assert.Equal(t, int64(0), WeeksBetween(base, base.AddDate(0, 0, 6)))
	assert.Equal(t, int64(1), WeeksBetween(base, base.AddDate(0, 0, 7)))
	assert.Equal(t, int64(4), WeeksBetween(base, base.AddDate(0, 0, 28)))
	assert.Equal(t, int64(0), WeeksBetween(base.AddDate(0, 0, 14), base), "never negative")
}

func TestWeeksBetweenMondayAnchors(t *testing.T) {
	// A player created mid-week owes nothing until the next Monday passes.
	created := time.Date(2026, 8, 5, 15, 0, 0, 0, time.UTC) // Wednesday
	sameWeek := time.Date(2026, 8, 7, 9, 0, 0, 0, time.UTC) // Friday
	nextWeek := time.Date(2026, 8, 11, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(0), WeeksBetween(MondayUTC(created), MondayUTC(sameWeek)))
	assert.Equal(t, int64(1), WeeksBetween(MondayUTC(created), MondayUTC(nextWeek)))
}
