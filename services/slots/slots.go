// Package slots turns abstract availability windows ("weekday_morning") into
// concrete calendar occurrences. Everything here is pure: the same name and
// reference instant always give the same answer.
package slots

import (
	"time"

	"github.com/cespare/xxhash/v2"

	"huddle/models"
)

const (
	// DefaultSlot is resolved when a caller has no slot preference at all.
	DefaultSlot = "weekend_morning"

	isoLayout   = "2006-01-02T15:04:05"
	dateLayout  = "2006-01-02"
	dayLayout   = "Mon, Jan 2"
	clockLayout = "3:04 PM"

	// searchDays bounds the forward scan; every known window recurs within a week.
	searchDays = 14
)

type window struct {
	weekend   bool
	startHour int
	endHour   int
}

var windows = map[string]window{
	"weekday_morning":   {weekend: false, startHour: 7, endHour: 9},
	"weekday_afternoon": {weekend: false, startHour: 12, endHour: 14},
	"weekday_evening":   {weekend: false, startHour: 18, endHour: 20},
	"weekend_morning":   {weekend: true, startHour: 8, endHour: 10},
	"weekend_afternoon": {weekend: true, startHour: 14, endHour: 16},
	"weekend_evening":   {weekend: true, startHour: 17, endHour: 19},
}

var locations = []string{
	"Riverside Park Pavilion",
	"Central Community Center",
	"Harbor Sports Club",
	"Eastside Recreation Hall",
	"Northgate Commons",
	"Lakeshore Trailhead",
}

// Known reports whether name is one of the fixed slot names.
func Known(name string) bool {
	_, ok := windows[name]
	return ok
}

// Names returns every known slot name.
func Names() []string {
	out := make([]string, 0, len(windows))
	for name := range windows {
		out = append(out, name)
	}
	return out
}

// Resolve maps name to its nearest occurrence starting strictly after now.
// Unknown names resolve to tomorrow 09:00–11:00 instead of failing.
func Resolve(name string, now time.Time) models.ResolvedSlot {
	w, ok := windows[name]
	if !ok {
		day := midnight(now).AddDate(0, 0, 1)
		return build(name, atHour(day, 9), atHour(day, 11))
	}
	today := midnight(now)
	for offset := 0; offset < searchDays; offset++ {
		day := today.AddDate(0, 0, offset)
		if isWeekend(day) != w.weekend {
			continue
		}
		start := atHour(day, w.startHour)
		if !start.After(now) {
			continue
		}
		return build(name, start, atHour(day, w.endHour))
	}
	// Unreachable for the fixed table; keep the fallback total anyway.
	day := today.AddDate(0, 0, 1)
	return build(name, atHour(day, 9), atHour(day, 11))
}

// PickNearest resolves every name and returns the earliest occurrence.
// An empty list resolves DefaultSlot.
func PickNearest(names []string, now time.Time) models.ResolvedSlot {
	if len(names) == 0 {
		return Resolve(DefaultSlot, now)
	}
	best := Resolve(names[0], now)
	for _, name := range names[1:] {
		r := Resolve(name, now)
		if r.Start.Before(best.Start) {
			best = r
		}
	}
	return best
}

// PickLocation deterministically picks a venue for seed (usually a booking id).
func PickLocation(seed string) string {
	return locations[xxhash.Sum64String(seed)%uint64(len(locations))]
}

// Label formats a window as "Sat, Mar 1, 8:00 AM – 10:00 AM".
func Label(start, end time.Time) string {
	return start.Format(dayLayout) + ", " + start.Format(clockLayout) + " – " + end.Format(clockLayout)
}

func build(name string, start, end time.Time) models.ResolvedSlot {
	return models.ResolvedSlot{
		Name:     name,
		Date:     start.Format(dateLayout),
		Start:    start,
		End:      end,
		Label:    Label(start, end),
		StartISO: start.Format(isoLayout),
		EndISO:   end.Format(isoLayout),
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// atHour is the wall-clock hour on day, so DST days keep the window table.
func atHour(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
