package handlers

import (
	"errors"
	"net/http"

	"huddle/models"
	"huddle/services/booking"
	"huddle/services/cancellation"
	"huddle/services/convergence"
	"huddle/services/ledger"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrBookingNotFound),
		errors.Is(err, ledger.ErrInvitationNotFound),
		errors.Is(err, ledger.ErrCancelFlowNotFound),
		errors.Is(err, models.ErrUnknownInvitation):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrInvalidRequest),
		errors.Is(err, cancellation.ErrInvalidIntention):
		return http.StatusBadRequest
	case errors.Is(err, cancellation.ErrInvalidState),
		errors.Is(err, cancellation.ErrNotPolling),
		errors.Is(err, convergence.ErrNotRunning),
		errors.Is(err, models.ErrInvitationResolved):
		return http.StatusConflict
	case errors.Is(err, cancellation.ErrNotInGroup):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
