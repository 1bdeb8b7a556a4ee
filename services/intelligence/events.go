package ai

import (
	"sort"
	"time"

	"huddle/models"
	"huddle/services/slots"
)

type eventTemplate struct {
	name     string
	activity string
	slot     string
}

var eventCatalogue = []eventTemplate{
	{"Saturday Park Run", "running", "weekend_morning"},
	{"Thursday Night Tempo Club", "running", "weekday_evening"},
	{"Sunday Social Ride", "cycling", "weekend_morning"},
	{"Lunchtime Bouldering", "climbing", "weekday_afternoon"},
	{"Sunset Flow Yoga", "yoga", "weekend_evening"},
	{"Doubles Ladder Night", "tennis", "weekday_evening"},
	{"Padel Mixer", "padel", "weekend_afternoon"},
	{"Ridge Trail Hike", "hiking", "weekend_morning"},
	{"Open Water Swim", "swimming", "weekday_morning"},
	{"Five-a-side Pickup", "football", "weekday_evening"},
}

// searchEvents lists upcoming catalogue events, optionally for one activity,
// soonest first.
func searchEvents(activity string, now time.Time) []models.Event {
	var out []models.Event
	starts := map[string]time.Time{}
	for _, e := range eventCatalogue {
		if activity != "" && e.activity != activity {
			continue
		}
		slot := slots.Resolve(e.slot, now)
		starts[e.name] = slot.Start
		out = append(out, models.Event{
			Name:     e.name,
			Activity: e.activity,
			Slot:     e.slot,
			When:     slot.Label,
			Location: slots.PickLocation(e.name),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return starts[out[i].Name].Before(starts[out[j].Name]) })
	return out
}
