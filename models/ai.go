package models

// AIRequest is the payload coming into /api/chat.
type AIRequest struct {
	SessionID string  `json:"sessionId" binding:"required"`
	ClientID  *string `json:"clientId,omitempty"`
	Text      string  `json:"text" binding:"required"`
}

// AIAction is a button offered alongside a reply.
type AIAction struct {
	Label string `json:"label"`
	Type  string `json:"type"` // e.g. "cancel_booking", "book_group"
	Value string `json:"value,omitempty"`
}

// AIResponse is what the chat handler returns.
type AIResponse struct {
	Tool          string         `json:"tool"` // which tool handled the message
	ResponseText  string         `json:"response"`
	Actions       []AIAction     `json:"actions,omitempty"`
	People        []Participant  `json:"people,omitempty"`
	Events        []Event        `json:"events,omitempty"`
	BookingID     string         `json:"bookingId,omitempty"`
	CancelFlowID  string         `json:"cancelFlowId,omitempty"`
	Notifications []Notification `json:"notifications"`
}

// AIContext is the per-session conversation state kept between messages.
type AIContext struct {
	LastActivity     string        `json:"lastActivity,omitempty"`
	LastSearch       []Participant `json:"lastSearch,omitempty"`
	LastBookingID    string        `json:"lastBookingId,omitempty"`
	CancelFlowID     string        `json:"cancelFlowId,omitempty"`
	Level            string        `json:"level,omitempty"`
	Pace             string        `json:"pace,omitempty"`
	GenderPreference string        `json:"genderPreference,omitempty"`
	Turns            int           `json:"turns"`
}

// Event is a public activity listed by the search_events tool.
type Event struct {
	Name     string `json:"name"`
	Activity string `json:"activity"`
	Slot     string `json:"slot"`
	When     string `json:"when"`
	Location string `json:"location"`
}
