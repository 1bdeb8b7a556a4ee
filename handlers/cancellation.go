package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"huddle/middleware"
	"huddle/models"
	"huddle/services/cancellation"
	"huddle/utils"
)

// CancelService is the cancellation surface the handlers use.
type CancelService interface {
	RequestCancellation(ctx context.Context, req cancellation.CancelRequest) (cancellation.CancelResponse, error)
	ConfirmReschedule(flowID, participantID string) (models.CancelFlowView, error)
	GetCancelFlow(flowID string) (models.CancelFlowView, error)
}

type CancellationHandler struct {
	CancelSvc CancelService
	Logger    *zap.Logger
}

// CancelBooking handles POST /api/bookings/:id/cancel. An empty body opens the
// flow; a body with an intention commits it.
func (h *CancellationHandler) CancelBooking(c *gin.Context) {
	var body struct {
		SessionID     string                 `json:"sessionId"`
		ParticipantID string                 `json:"participantId"`
		Intention     models.CancelIntention `json:"intention"`
		CancelFlowID  string                 `json:"cancelFlowId"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}
	if body.ParticipantID == "" {
		body.ParticipantID, _ = middleware.ClientID(c)
	}

	resp, err := h.CancelSvc.RequestCancellation(c.Request.Context(), cancellation.CancelRequest{
		BookingID:     c.Param("id"),
		SessionID:     body.SessionID,
		ParticipantID: body.ParticipantID,
		Intention:     body.Intention,
		CancelFlowID:  body.CancelFlowID,
	})
	if err != nil {
		utils.JSONError(c, statusFor(err), "cancellation rejected", err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetCancelFlow handles GET /api/cancel-flows/:id.
func (h *CancellationHandler) GetCancelFlow(c *gin.Context) {
	v, err := h.CancelSvc.GetCancelFlow(c.Param("id"))
	if err != nil {
		utils.JSONError(c, statusFor(err), "cancel flow not found", err.Error())
		return
	}
	c.JSON(http.StatusOK, v)
}

// ConfirmReschedule handles POST /api/cancel-flows/:id/confirm.
func (h *CancellationHandler) ConfirmReschedule(c *gin.Context) {
	var body struct {
		ParticipantID string `json:"participantId"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}
	if body.ParticipantID == "" {
		body.ParticipantID, _ = middleware.ClientID(c)
	}
	if body.ParticipantID == "" {
		utils.JSONError(c, http.StatusBadRequest, "participantId is required", "")
		return
	}

	v, err := h.CancelSvc.ConfirmReschedule(c.Param("id"), body.ParticipantID)
	if err != nil {
		utils.JSONError(c, statusFor(err), "failed to confirm reschedule", err.Error())
		return
	}
	h.Logger.Info("Reschedule confirmed", zap.String("flowId", v.ID), zap.String("participantId", body.ParticipantID))
	c.JSON(http.StatusOK, v)
}
