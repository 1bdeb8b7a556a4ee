package models

import "time"

// ResolvedSlot is an abstract slot name pinned to a concrete two-hour window.
// It is derived on demand and never stored.
type ResolvedSlot struct {
	Name     string    `json:"name"`
	Date     string    `json:"date"` // "2006-01-02"
	Start    time.Time `json:"-"`
	End      time.Time `json:"-"`
	Label    string    `json:"label"` // e.g. "Sat, Mar 1, 8:00 AM – 10:00 AM"
	StartISO string    `json:"startIso"`
	EndISO   string    `json:"endIso"`
}
