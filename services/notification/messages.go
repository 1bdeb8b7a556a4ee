package notification

import (
	"fmt"
	"strings"

	"huddle/models"
)

// maxNamed is how many participants a message names before "+N more".
const maxNamed = 5

// Names joins up to five participant names and appends "+N more" for the rest.
func Names(ps []models.Participant) string {
	if len(ps) == 0 {
		return ""
	}
	names := make([]string, 0, maxNamed)
	for i, p := range ps {
		if i == maxNamed {
			break
		}
		names = append(names, p.Name)
	}
	out := strings.Join(names, ", ")
	if extra := len(ps) - maxNamed; extra > 0 {
		out += fmt.Sprintf(" +%d more", extra)
	}
	return out
}

func when(v models.BookingView) string {
	if v.SelectedSlot != nil {
		return v.SelectedSlot.Label
	}
	if v.DesiredTime != "" {
		return v.DesiredTime
	}
	return "a time that works for everyone"
}

func activity(v models.BookingView) string {
	if v.Activity == "" {
		return "activity"
	}
	return v.Activity
}

// Completion announces a converged group.
func Completion(v models.BookingView) models.Notification {
	return models.Notification{
		Kind: models.NotificationBookingCompleted,
		Message: fmt.Sprintf("Your %s group is confirmed! %s will join you on %s at %s.",
			activity(v), Names(v.AcceptedParticipants), when(v), v.Location),
	}
}

// Failure explains an exhausted candidate pool.
func Failure(v models.BookingView) models.Notification {
	return models.Notification{
		Kind: models.NotificationBookingFailed,
		Message: fmt.Sprintf("I invited %d people for %s but only %d of the %d needed accepted. "+
			"Want to try again with a different time, level or location?",
			len(v.Invitations), activity(v), len(v.AcceptedParticipants), v.Headcount),
	}
}

// Cancelled confirms a direct cancellation of a still-running booking.
func Cancelled(v models.BookingView) models.Notification {
	msg := fmt.Sprintf("Your %s booking has been cancelled.", activity(v))
	if len(v.AcceptedParticipants) > 0 {
		msg += fmt.Sprintf(" I've let %s know.", Names(v.AcceptedParticipants))
	}
	return models.Notification{Kind: models.NotificationBookingCancelled, Message: msg}
}

// Error is the generic apology emitted when a loop crashes.
func Error(v models.BookingView) models.Notification {
	return models.Notification{
		Kind:    models.NotificationBookingError,
		Message: fmt.Sprintf("Sorry, something went wrong while organizing your %s group. Please try again.", activity(v)),
	}
}

// RescheduleResult reports whether the remaining group agreed on a new time.
func RescheduleResult(v models.BookingView, remaining []models.Participant, ok bool) models.Notification {
	if ok {
		return models.Notification{
			Kind: models.NotificationRescheduleSucceeded,
			Message: fmt.Sprintf("Good news: %s agreed to reschedule %s. The group is staying together.",
				Names(remaining), activity(v)),
		}
	}
	return models.Notification{
		Kind: models.NotificationRescheduleFailed,
		Message: fmt.Sprintf("Not everyone could make a new time for %s, so the group could not stay together. "+
			"Want me to start a fresh booking?", activity(v)),
	}
}

// MemberLeft tells the remaining group someone dropped out.
func MemberLeft(v models.BookingView, leaver string, remaining []models.Participant) models.Notification {
	msg := fmt.Sprintf("%s has left the %s group.", leaver, activity(v))
	if len(remaining) > 0 {
		msg += fmt.Sprintf(" %s are still in; I can look for a replacement if you'd like.", Names(remaining))
	}
	return models.Notification{Kind: models.NotificationMemberLeft, Message: msg}
}

// BackfillResult reports the search for a new group for the person who left.
func BackfillResult(v models.BookingView, ok bool) models.Notification {
	if ok {
		return models.Notification{
			Kind: models.NotificationBackfillCompleted,
			Message: fmt.Sprintf("Found you a new %s group: %s on %s at %s.",
				activity(v), Names(v.AcceptedParticipants), when(v), v.Location),
		}
	}
	return models.Notification{
		Kind:    models.NotificationBackfillFailed,
		Message: fmt.Sprintf("I couldn't find a new %s group at another time. Try different criteria?", activity(v)),
	}
}

// Reminder is delivered shortly before the event starts.
func Reminder(v models.BookingView) models.Notification {
	return models.Notification{
		Kind:    models.NotificationReminder,
		Message: fmt.Sprintf("Reminder: %s starts %s at %s.", activity(v), when(v), v.Location),
	}
}
