package models

// Participant is a candidate (or accepted member) snapshot as returned by the candidate supply.
type Participant struct {
	ID                string   `bson:"id" json:"id"`
	Name              string   `bson:"name" json:"name"`
	IsMock            bool     `bson:"is_mock" json:"isMock"` // mock users answer through the response simulator
	Gender            string   `bson:"gender,omitempty" json:"gender,omitempty"`
	Level             string   `bson:"level,omitempty" json:"level,omitempty"` // e.g. "beginner", "intermediate", "advanced"
	Pace              string   `bson:"pace,omitempty" json:"pace,omitempty"`
	Activities        []string `bson:"activities,omitempty" json:"activities,omitempty"`
	AvailabilitySlots []string `bson:"availability_slots,omitempty" json:"availabilitySlots,omitempty"` // abstract slot names, e.g. "weekday_morning"
	Bio               string   `bson:"bio,omitempty" json:"bio,omitempty"`
	Email             string   `bson:"email,omitempty" json:"email,omitempty"`
	Phone             string   `bson:"phone,omitempty" json:"phone,omitempty"`
}

// HasSlot reports whether the participant lists the given availability slot.
func (p Participant) HasSlot(slot string) bool {
	for _, s := range p.AvailabilitySlots {
		if s == slot {
			return true
		}
	}
	return false
}

// DoesActivity reports whether the participant does the activity. Participants
// without an activity list are treated as open to anything.
func (p Participant) DoesActivity(activity string) bool {
	if activity == "" || len(p.Activities) == 0 {
		return true
	}
	for _, a := range p.Activities {
		if equalFold(a, activity) {
			return true
		}
	}
	return false
}
