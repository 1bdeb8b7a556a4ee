package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Booking endpoints
	StartBooking        gin.HandlerFunc
	GetBooking          gin.HandlerFunc
	ListSessionBookings gin.HandlerFunc
	SetSpeed            gin.HandlerFunc
	RespondToInvitation gin.HandlerFunc
	DrainNotifications  gin.HandlerFunc

	// Cancellation endpoints
	CancelBooking     gin.HandlerFunc
	GetCancelFlow     gin.HandlerFunc
	ConfirmReschedule gin.HandlerFunc

	// Chat endpoints
	Chat gin.HandlerFunc

	Health gin.HandlerFunc
}

// NewHandlerBundle binds the handler methods.
func NewHandlerBundle(b *BookingHandler, cn *CancellationHandler, ai *AIHandler) *HandlerBundle {
	return &HandlerBundle{
		StartBooking:        b.StartBooking,
		GetBooking:          b.GetBooking,
		ListSessionBookings: b.ListSessionBookings,
		SetSpeed:            b.SetSpeed,
		RespondToInvitation: b.RespondToInvitation,
		DrainNotifications:  b.DrainNotifications,
		CancelBooking:       cn.CancelBooking,
		GetCancelFlow:       cn.GetCancelFlow,
		ConfirmReschedule:   cn.ConfirmReschedule,
		Chat:                ai.Chat,
		Health:              Health,
	}
}
