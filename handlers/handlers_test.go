package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"huddle/models"
	"huddle/services/booking"
	"huddle/services/cancellation"
	"huddle/services/convergence"
	"huddle/services/ledger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBookingService struct {
	lastStart booking.StartBookingRequest
	startErr  error
	speedErr  error
	respErr   error
	notes     []models.Notification
}

func (f *fakeBookingService) StartBooking(_ context.Context, req booking.StartBookingRequest) (*booking.StartBookingAck, error) {
	f.lastStart = req
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &booking.StartBookingAck{BookingID: "b-1", Status: "running", CandidateCount: 12}, nil
}

func (f *fakeBookingService) GetBooking(id string) (models.BookingView, error) {
	if id != "b-1" {
		return models.BookingView{}, ledger.ErrBookingNotFound
	}
	return models.BookingView{ID: id, Activity: "tennis"}, nil
}

func (f *fakeBookingService) ListSessionBookings(sessionID string) []models.BookingView {
	return []models.BookingView{{ID: "b-1", SessionID: sessionID}}
}

func (f *fakeBookingService) RespondToInvitation(id string, accept bool) (models.Invitation, error) {
	if f.respErr != nil {
		return models.Invitation{}, f.respErr
	}
	status := models.InvitationStatus("declined")
	if accept {
		status = "accepted"
	}
	return models.Invitation{ID: id, Status: status}, nil
}

func (f *fakeBookingService) SetSpeed(string, float64) error { return f.speedErr }

func (f *fakeBookingService) DrainNotifications(string) []models.Notification {
	out := f.notes
	f.notes = nil
	return out
}

type fakeCancelService struct {
	last       cancellation.CancelRequest
	err        error
	confirmErr error
}

func (f *fakeCancelService) RequestCancellation(_ context.Context, req cancellation.CancelRequest) (cancellation.CancelResponse, error) {
	f.last = req
	if f.err != nil {
		return cancellation.CancelResponse{}, f.err
	}
	return cancellation.CancelResponse{BookingID: req.BookingID, Status: "awaiting_intention", CancelFlowID: "cf-1"}, nil
}

func (f *fakeCancelService) ConfirmReschedule(flowID, participantID string) (models.CancelFlowView, error) {
	if f.confirmErr != nil {
		return models.CancelFlowView{}, f.confirmErr
	}
	return models.CancelFlowView{ID: flowID, Confirmed: []string{participantID}}, nil
}

func (f *fakeCancelService) GetCancelFlow(flowID string) (models.CancelFlowView, error) {
	if flowID != "cf-1" {
		return models.CancelFlowView{}, ledger.ErrCancelFlowNotFound
	}
	return models.CancelFlowView{ID: flowID}, nil
}

type fakeChat struct{ err error }

func (f fakeChat) ProcessMessage(_ context.Context, req models.AIRequest) (*models.AIResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.AIResponse{Tool: "chat", ResponseText: "echo: " + req.Text}, nil
}

func newRouter(b *fakeBookingService, cn *fakeCancelService, chat ChatService) *gin.Engine {
	hb := NewHandlerBundle(
		&BookingHandler{BookingSvc: b, Logger: zap.NewNop()},
		&CancellationHandler{CancelSvc: cn, Logger: zap.NewNop()},
		&AIHandler{AISvc: chat, Logger: zap.NewNop()},
	)
	r := gin.New()
	r.POST("/bookings", hb.StartBooking)
	r.GET("/bookings/:id", hb.GetBooking)
	r.PUT("/bookings/:id/speed", hb.SetSpeed)
	r.POST("/bookings/:id/cancel", hb.CancelBooking)
	r.POST("/invitations/:id/respond", hb.RespondToInvitation)
	r.GET("/cancel-flows/:id", hb.GetCancelFlow)
	r.POST("/cancel-flows/:id/confirm", hb.ConfirmReschedule)
	r.GET("/sessions/:sessionID/bookings", hb.ListSessionBookings)
	r.GET("/sessions/:sessionID/notifications", hb.DrainNotifications)
	r.POST("/chat", hb.Chat)
	r.GET("/health", hb.Health)
	return r
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStartBooking(t *testing.T) {
	b := &fakeBookingService{}
	r := newRouter(b, &fakeCancelService{}, fakeChat{})

	w := do(r, http.MethodPost, "/bookings", gin.H{"sessionId": "s-1", "activity": "tennis", "headcount": 3})
	require.Equal(t, http.StatusAccepted, w.Code)

	var ack booking.StartBookingAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, "b-1", ack.BookingID)
	assert.Equal(t, "tennis", b.lastStart.Activity)
}

func TestStartBookingValidation(t *testing.T) {
	b := &fakeBookingService{}
	r := newRouter(b, &fakeCancelService{}, fakeChat{})

	w := do(r, http.MethodPost, "/bookings", gin.H{"activity": "tennis"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	b.startErr = fmt.Errorf("%w: headcount must be between 1 and 20", booking.ErrInvalidRequest)
	w = do(r, http.MethodPost, "/bookings", gin.H{"sessionId": "s-1", "activity": "tennis", "headcount": 99})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "headcount")
}

func TestGetBooking(t *testing.T) {
	r := newRouter(&fakeBookingService{}, &fakeCancelService{}, fakeChat{})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/bookings/b-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/bookings/nope", nil).Code)
}

func TestSetSpeed(t *testing.T) {
	b := &fakeBookingService{}
	r := newRouter(b, &fakeCancelService{}, fakeChat{})

	assert.Equal(t, http.StatusOK, do(r, http.MethodPut, "/bookings/b-1/speed", gin.H{"multiplier": 120}).Code)

	b.speedErr = convergence.ErrNotRunning
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPut, "/bookings/b-1/speed", gin.H{"multiplier": 120}).Code)
}

func TestRespondToInvitation(t *testing.T) {
	b := &fakeBookingService{}
	r := newRouter(b, &fakeCancelService{}, fakeChat{})

	w := do(r, http.MethodPost, "/invitations/inv-1/respond", gin.H{"accept": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "declined")

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/invitations/inv-1/respond", gin.H{}).Code)

	b.respErr = fmt.Errorf("respond: %w", models.ErrInvitationResolved)
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/invitations/inv-1/respond", gin.H{"accept": true}).Code)
}

func TestCancelBooking(t *testing.T) {
	cn := &fakeCancelService{}
	r := newRouter(&fakeBookingService{}, cn, fakeChat{})

	w := do(r, http.MethodPost, "/bookings/b-1/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b-1", cn.last.BookingID)
	assert.Equal(t, models.IntentionUnset, cn.last.Intention)

	w = do(r, http.MethodPost, "/bookings/b-1/cancel", gin.H{"intention": "leave", "cancelFlowId": "cf-1", "participantId": "c-9"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.IntentionLeave, cn.last.Intention)
	assert.Equal(t, "c-9", cn.last.ParticipantID)

	cn.err = cancellation.ErrInvalidState
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/bookings/b-1/cancel", nil).Code)

	cn.err = cancellation.ErrInvalidIntention
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/bookings/b-1/cancel", gin.H{"intention": "maybe"}).Code)
}

func TestCancelFlowEndpoints(t *testing.T) {
	cn := &fakeCancelService{}
	r := newRouter(&fakeBookingService{}, cn, fakeChat{})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/cancel-flows/cf-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/cancel-flows/cf-2", nil).Code)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/cancel-flows/cf-1/confirm", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/cancel-flows/cf-1/confirm", gin.H{"participantId": "p-1"}).Code)

	cn.confirmErr = cancellation.ErrNotInGroup
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/cancel-flows/cf-1/confirm", gin.H{"participantId": "p-x"}).Code)
	cn.confirmErr = cancellation.ErrNotPolling
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/cancel-flows/cf-1/confirm", gin.H{"participantId": "p-1"}).Code)
}

func TestDrainNotifications(t *testing.T) {
	b := &fakeBookingService{notes: []models.Notification{{ID: "n-1", Kind: models.NotificationBookingCompleted}}}
	r := newRouter(b, &fakeCancelService{}, fakeChat{})

	w := do(r, http.MethodGet, "/sessions/s-1/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "n-1")

	w = do(r, http.MethodGet, "/sessions/s-1/notifications", nil)
	assert.JSONEq(t, `{"notifications":[]}`, w.Body.String())
}

func TestChat(t *testing.T) {
	r := newRouter(&fakeBookingService{}, &fakeCancelService{}, fakeChat{})
	w := do(r, http.MethodPost, "/chat", gin.H{"sessionId": "s-1", "text": "hi"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "echo: hi")

	r = newRouter(&fakeBookingService{}, &fakeCancelService{}, fakeChat{err: assert.AnError})
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodPost, "/chat", gin.H{"sessionId": "s-1", "text": "hi"}).Code)
}

func TestHealth(t *testing.T) {
	r := newRouter(&fakeBookingService{}, &fakeCancelService{}, fakeChat{})
	w := do(r, http.MethodGet, "/health", nil)
	assert.Contains(t, []int{http.StatusOK, http.StatusServiceUnavailable}, w.Code)
	assert.Contains(t, w.Body.String(), "dependencies")
}
