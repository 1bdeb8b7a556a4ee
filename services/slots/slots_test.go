package slots

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWeekendMorningFromMonday(t *testing.T) {
	now := time.Date(2025, 2, 24, 6, 0, 0, 0, time.UTC)

	got := Resolve("weekend_morning", now)

	assert.Equal(t, "2025-03-01", got.Date)
	assert.Equal(t, "Sat, Mar 1, 8:00 AM – 10:00 AM", got.Label)
	assert.Equal(t, "2025-03-01T08:00:00", got.StartISO)
	assert.Equal(t, "2025-03-01T10:00:00", got.EndISO)
}

func TestResolveKeepsWallClockAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// Clocks spring forward at 02:00 on Sunday 2025-03-09.
	now := time.Date(2025, 3, 8, 12, 0, 0, 0, ny)

	got := Resolve("weekend_morning", now)

	assert.Equal(t, "2025-03-09", got.Date)
	assert.Equal(t, "Sun, Mar 9, 8:00 AM – 10:00 AM", got.Label)
	assert.Equal(t, "2025-03-09T08:00:00", got.StartISO)
	assert.Equal(t, "2025-03-09T10:00:00", got.EndISO)

	fallback := Resolve("not_a_slot", now)
	assert.Equal(t, "2025-03-09T09:00:00", fallback.StartISO)
	assert.Equal(t, "2025-03-09T11:00:00", fallback.EndISO)
}

func TestResolveSkipsTodayOnceWindowStarted(t *testing.T) {
	// Tuesday 07:30, the weekday morning window opened at 07:00.
	now := time.Date(2025, 2, 25, 7, 30, 0, 0, time.UTC)

	got := Resolve("weekday_morning", now)

	assert.Equal(t, "2025-02-26", got.Date)
	assert.Equal(t, "Wed, Feb 26, 7:00 AM – 9:00 AM", got.Label)
}

func TestResolveKeepsTodayBeforeWindow(t *testing.T) {
	now := time.Date(2025, 2, 25, 6, 59, 0, 0, time.UTC)

	got := Resolve("weekday_morning", now)

	assert.Equal(t, "2025-02-25", got.Date)
}

func TestResolveWeekdayFromSaturday(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	got := Resolve("weekday_evening", now)

	assert.Equal(t, "2025-03-03", got.Date)
	assert.Equal(t, "Mon, Mar 3, 6:00 PM – 8:00 PM", got.Label)
}

func TestResolveUnknownFallsBackToTomorrow(t *testing.T) {
	now := time.Date(2025, 2, 24, 22, 0, 0, 0, time.UTC)

	got := Resolve("whenever", now)

	assert.Equal(t, "2025-02-25", got.Date)
	assert.Equal(t, "2025-02-25T09:00:00", got.StartISO)
	assert.Equal(t, "2025-02-25T11:00:00", got.EndISO)
}

func TestResolveNeverBeforeNow(t *testing.T) {
	base := time.Date(2025, 2, 24, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24*7; h += 5 {
		now := base.Add(time.Duration(h) * time.Hour)
		for _, name := range Names() {
			got := Resolve(name, now)
			require.True(t, got.Start.After(now), "%s at %s resolved to %s", name, now, got.StartISO)
			if got.Date == now.Format("2006-01-02") {
				assert.True(t, got.Start.After(now))
			}
		}
	}
}

func TestResolveIsPure(t *testing.T) {
	now := time.Date(2025, 6, 11, 10, 15, 0, 0, time.UTC)
	assert.Equal(t, Resolve("weekday_morning", now), Resolve("weekday_morning", now))
}

func TestPickNearest(t *testing.T) {
	now := time.Date(2025, 2, 24, 6, 0, 0, 0, time.UTC) // Monday

	got := PickNearest([]string{"weekend_morning", "weekday_evening", "weekday_morning"}, now)
	assert.Equal(t, "weekday_morning", got.Name)
	assert.Equal(t, "2025-02-24", got.Date)

	empty := PickNearest(nil, now)
	assert.Equal(t, DefaultSlot, empty.Name)
	assert.Equal(t, "2025-03-01", empty.Date)
}

func TestPickLocationDeterministic(t *testing.T) {
	a := PickLocation("booking-123")
	b := PickLocation("booking-123")
	assert.Equal(t, a, b)
	assert.Contains(t, locations, a)
}
