package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"huddle/middleware"
	"huddle/models"
	"huddle/services/booking"
	"huddle/utils"
)

type BookingHandler struct {
	BookingSvc booking.BookingService
	Logger     *zap.Logger
}

// StartBooking handles POST /api/bookings.
func (h *BookingHandler) StartBooking(c *gin.Context) {
	var req booking.StartBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.ClientID == nil {
		if id, ok := middleware.ClientID(c); ok {
			req.ClientID = &id
		}
	}

	ack, err := h.BookingSvc.StartBooking(c.Request.Context(), req)
	if err != nil {
		utils.JSONError(c, statusFor(err), "failed to start booking", err.Error())
		return
	}
	c.JSON(http.StatusAccepted, ack)
}

// GetBooking handles GET /api/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	v, err := h.BookingSvc.GetBooking(c.Param("id"))
	if err != nil {
		utils.JSONError(c, statusFor(err), "booking not found", err.Error())
		return
	}
	c.JSON(http.StatusOK, v)
}

// ListSessionBookings handles GET /api/sessions/:sessionID/bookings.
func (h *BookingHandler) ListSessionBookings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"bookings": h.BookingSvc.ListSessionBookings(c.Param("sessionID"))})
}

// SetSpeed handles PUT /api/bookings/:id/speed.
func (h *BookingHandler) SetSpeed(c *gin.Context) {
	var body struct {
		Multiplier float64 `json:"multiplier" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.BookingSvc.SetSpeed(c.Param("id"), body.Multiplier); err != nil {
		utils.JSONError(c, statusFor(err), "failed to set speed", err.Error())
		return
	}
	h.Logger.Info("Speed multiplier changed", zap.String("bookingId", c.Param("id")), zap.Float64("multiplier", body.Multiplier))
	c.JSON(http.StatusOK, gin.H{"bookingId": c.Param("id"), "speedMultiplier": body.Multiplier})
}

// RespondToInvitation handles POST /api/invitations/:id/respond.
func (h *BookingHandler) RespondToInvitation(c *gin.Context) {
	var body struct {
		Accept *bool `json:"accept" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	inv, err := h.BookingSvc.RespondToInvitation(c.Param("id"), *body.Accept)
	if err != nil {
		utils.JSONError(c, statusFor(err), "failed to record response", err.Error())
		return
	}
	c.JSON(http.StatusOK, inv)
}

// DrainNotifications handles GET /api/sessions/:sessionID/notifications.
// Returned notifications are removed from the outbox.
func (h *BookingHandler) DrainNotifications(c *gin.Context) {
	notes := h.BookingSvc.DrainNotifications(c.Param("sessionID"))
	if notes == nil {
		notes = []models.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notes})
}
