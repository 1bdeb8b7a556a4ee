// Package ai routes chat messages to the booking tools and keeps per-session
// conversation context.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"huddle/models"
	"huddle/services/booking"
	"huddle/services/cancellation"
	"huddle/services/ledger"
	"huddle/services/matching"
	"huddle/services/notification"
)

const (
	defaultHeadcount = 3
	searchLimit      = 10
)

// CancelTool is the "cancel booking" entry point.
type CancelTool interface {
	RequestCancellation(ctx context.Context, req cancellation.CancelRequest) (cancellation.CancelResponse, error)
}

type LocalAIService struct {
	ctxStore  ContextStore
	bookSvc   booking.BookingService
	cancelSvc CancelTool
	supply    matching.CandidateSupply
	llm       TextGenerator
	now       func() time.Time
	logger    *zap.Logger
}

// NewLocalAIService wires the orchestrator. llm may be nil, in which case open
// chat gets canned replies.
func NewLocalAIService(
	ctxStore ContextStore,
	bookSvc booking.BookingService,
	cancelSvc CancelTool,
	supply matching.CandidateSupply,
	llm TextGenerator,
	logger *zap.Logger,
) *LocalAIService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalAIService{
		ctxStore:  ctxStore,
		bookSvc:   bookSvc,
		cancelSvc: cancelSvc,
		supply:    supply,
		llm:       llm,
		now:       time.Now,
		logger:    logger,
	}
}

// ProcessMessage handles one chat message. Every response carries the
// session's pending notifications.
func (s *LocalAIService) ProcessMessage(ctx context.Context, req models.AIRequest) (*models.AIResponse, error) {
	aiCtx, err := s.ctxStore.Get(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load context: %w", err)
	}

	m := parse(req.Text, aiCtx)
	if m.activity == "" {
		m.activity = aiCtx.LastActivity
	}
	remember(aiCtx, m)

	var resp *models.AIResponse
	switch m.tool {
	case ToolSearchPeople:
		resp = s.handleSearchPeople(ctx, req, m, aiCtx)
	case ToolRefineResults:
		resp = s.handleRefine(m, aiCtx)
	case ToolAnalyzeProfile:
		resp = s.handleAnalyzeProfile(m, aiCtx)
	case ToolSearchEvents:
		resp = s.handleSearchEvents(m)
	case ToolBookGroup:
		resp = s.handleBookGroup(ctx, req, m, aiCtx)
	case ToolCancelBooking:
		resp = s.handleCancel(ctx, req, m, aiCtx)
	default:
		resp = s.handleChat(ctx, req, aiCtx)
	}
	resp.Tool = m.tool

	aiCtx.Turns++
	if err := s.ctxStore.Set(ctx, req.SessionID, aiCtx); err != nil {
		return nil, fmt.Errorf("save context: %w", err)
	}

	resp.Notifications = s.bookSvc.DrainNotifications(req.SessionID)
	if resp.Notifications == nil {
		resp.Notifications = []models.Notification{}
	}
	s.logger.Debug("Chat message handled",
		zap.String("sessionId", req.SessionID),
		zap.String("tool", m.tool),
		zap.Int("notifications", len(resp.Notifications)))
	return resp, nil
}

// remember keeps preferences sticky across messages.
func remember(aiCtx *models.AIContext, m message) {
	if m.activity != "" {
		aiCtx.LastActivity = m.activity
	}
	if m.level != "" {
		aiCtx.Level = m.level
	}
	if m.pace != "" {
		aiCtx.Pace = m.pace
	}
	if m.gender != "" {
		aiCtx.GenderPreference = m.gender
	}
}

func askForActivity() *models.AIResponse {
	return &models.AIResponse{ResponseText: "Which activity are you thinking of? For example running, tennis or climbing."}
}

func clientID(req models.AIRequest) string {
	if req.ClientID == nil {
		return ""
	}
	return *req.ClientID
}

func (s *LocalAIService) handleSearchPeople(ctx context.Context, req models.AIRequest, m message, aiCtx *models.AIContext) *models.AIResponse {
	if m.activity == "" {
		return askForActivity()
	}
	people, stats, err := s.supply.Match(ctx, models.MatchCriteria{
		Activity:          m.activity,
		Gender:            aiCtx.GenderPreference,
		Level:             aiCtx.Level,
		Pace:              aiCtx.Pace,
		AvailabilitySlots: m.slots,
		ExcludeID:         clientID(req),
		Limit:             searchLimit,
	})
	if err != nil {
		s.logger.Warn("Candidate search failed", zap.Error(err))
		return &models.AIResponse{ResponseText: "I couldn't search for people right now. Please try again in a moment."}
	}
	aiCtx.LastSearch = people
	if len(people) == 0 {
		return &models.AIResponse{ResponseText: fmt.Sprintf(
			"I couldn't find anyone for %s with those preferences. Try a different time or level?", m.activity)}
	}
	return &models.AIResponse{
		ResponseText: fmt.Sprintf("I found %d people for %s (%d in the pool): %s.",
			len(people), m.activity, stats.TotalCandidates, notification.Names(people)),
		People: people,
		Actions: []models.AIAction{
			{Label: fmt.Sprintf("Book a %s group", m.activity), Type: ToolBookGroup, Value: m.activity},
		},
	}
}

func (s *LocalAIService) handleRefine(m message, aiCtx *models.AIContext) *models.AIResponse {
	var out []models.Participant
	for _, p := range aiCtx.LastSearch {
		if m.level != "" && !strings.EqualFold(p.Level, m.level) {
			continue
		}
		if m.pace != "" && !strings.EqualFold(p.Pace, m.pace) {
			continue
		}
		if m.gender != "" && m.gender != "any" && !strings.EqualFold(p.Gender, m.gender) {
			continue
		}
		if len(m.slots) > 0 && !hasAnySlot(p, m.slots) {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return &models.AIResponse{ResponseText: "Nobody from the last search fits that. Want me to search again?"}
	}
	aiCtx.LastSearch = out
	return &models.AIResponse{
		ResponseText: fmt.Sprintf("Narrowed it down to %d: %s.", len(out), notification.Names(out)),
		People:       out,
	}
}

func hasAnySlot(p models.Participant, slots []string) bool {
	for _, s := range slots {
		if p.HasSlot(s) {
			return true
		}
	}
	return false
}

func (s *LocalAIService) handleAnalyzeProfile(m message, aiCtx *models.AIContext) *models.AIResponse {
	for _, p := range aiCtx.LastSearch {
		if p.Name != m.personName {
			continue
		}
		var parts []string
		if p.Level != "" {
			parts = append(parts, p.Level+" level")
		}
		if p.Pace != "" {
			parts = append(parts, p.Pace+" pace")
		}
		if len(p.Activities) > 0 {
			parts = append(parts, "does "+strings.Join(p.Activities, ", "))
		}
		if len(p.AvailabilitySlots) > 0 {
			parts = append(parts, "free "+strings.ReplaceAll(strings.Join(p.AvailabilitySlots, ", "), "_", " "))
		}
		text := p.Name
		if len(parts) > 0 {
			text += ": " + strings.Join(parts, "; ")
		}
		if p.Bio != "" {
			text += ". " + p.Bio
		}
		return &models.AIResponse{ResponseText: text, People: []models.Participant{p}}
	}
	return &models.AIResponse{ResponseText: "I don't have a profile for that person. Try searching first."}
}

func (s *LocalAIService) handleSearchEvents(m message) *models.AIResponse {
	events := searchEvents(m.activity, s.now())
	if len(events) == 0 {
		return &models.AIResponse{ResponseText: fmt.Sprintf("There are no %s events coming up.", m.activity)}
	}
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, fmt.Sprintf("%s (%s)", e.Name, e.When))
	}
	return &models.AIResponse{
		ResponseText: "Coming up: " + strings.Join(names, "; ") + ".",
		Events:       events,
	}
}

func (s *LocalAIService) handleBookGroup(ctx context.Context, req models.AIRequest, m message, aiCtx *models.AIContext) *models.AIResponse {
	if m.activity == "" {
		return askForActivity()
	}
	headcount := m.headcount
	if headcount == 0 {
		headcount = defaultHeadcount
	}
	ack, err := s.bookSvc.StartBooking(ctx, booking.StartBookingRequest{
		SessionID:         req.SessionID,
		ClientID:          req.ClientID,
		Activity:          m.activity,
		Headcount:         headcount,
		GenderPreference:  aiCtx.GenderPreference,
		Level:             aiCtx.Level,
		Pace:              aiCtx.Pace,
		AvailabilitySlots: m.slots,
		DesiredTime:       desiredTime(m.slots),
	})
	if err != nil {
		if errors.Is(err, booking.ErrInvalidRequest) {
			return &models.AIResponse{ResponseText: "I couldn't start that booking: " + err.Error()}
		}
		s.logger.Error("Failed to start booking", zap.String("sessionId", req.SessionID), zap.Error(err))
		return &models.AIResponse{ResponseText: "Something went wrong starting your booking. Please try again."}
	}
	aiCtx.LastBookingID = ack.BookingID
	aiCtx.CancelFlowID = ""
	return &models.AIResponse{
		ResponseText: ack.Message,
		BookingID:    ack.BookingID,
		Actions: []models.AIAction{
			{Label: "Cancel booking", Type: ToolCancelBooking, Value: ack.BookingID},
		},
	}
}

func desiredTime(slots []string) string {
	if len(slots) == 0 {
		return ""
	}
	return strings.ReplaceAll(strings.Join(slots, " or "), "_", " ")
}

func (s *LocalAIService) handleCancel(ctx context.Context, req models.AIRequest, m message, aiCtx *models.AIContext) *models.AIResponse {
	if aiCtx.LastBookingID == "" {
		return &models.AIResponse{ResponseText: "You don't have a booking to cancel."}
	}
	resp, err := s.cancelSvc.RequestCancellation(ctx, cancellation.CancelRequest{
		BookingID:     aiCtx.LastBookingID,
		SessionID:     req.SessionID,
		ParticipantID: clientID(req),
		Intention:     m.intention,
		CancelFlowID:  aiCtx.CancelFlowID,
	})
	switch {
	case errors.Is(err, ledger.ErrBookingNotFound):
		aiCtx.LastBookingID = ""
		return &models.AIResponse{ResponseText: "I can't find that booking anymore."}
	case errors.Is(err, cancellation.ErrInvalidState):
		return &models.AIResponse{ResponseText: "That booking has already ended, so there's nothing to cancel."}
	case err != nil:
		s.logger.Error("Cancellation failed", zap.String("bookingId", aiCtx.LastBookingID), zap.Error(err))
		return &models.AIResponse{ResponseText: "Something went wrong cancelling your booking. Please try again."}
	}

	out := &models.AIResponse{ResponseText: resp.Message, BookingID: resp.BookingID, CancelFlowID: resp.CancelFlowID}
	if resp.Status == string(models.FlowAwaitingIntention) {
		aiCtx.CancelFlowID = resp.CancelFlowID
		for _, opt := range resp.Options {
			out.Actions = append(out.Actions, models.AIAction{Label: optionLabel(opt), Type: ToolCancelBooking, Value: string(opt)})
		}
		return out
	}
	aiCtx.CancelFlowID = ""
	if resp.BackfillBookingID != "" {
		aiCtx.LastBookingID = resp.BackfillBookingID
	}
	return out
}

func optionLabel(i models.CancelIntention) string {
	if i == models.IntentionReschedule {
		return "Reschedule with the group"
	}
	return "Leave the group"
}

var cannedReplies = []string{
	"Hi! I can find people to do activities with, list events, or book a small group. What are you up for?",
	"Tell me an activity and a time, like \"find running partners for weekend mornings\".",
	"I'm here to help you get a group together. Want me to search or book?",
}

func (s *LocalAIService) handleChat(ctx context.Context, req models.AIRequest, aiCtx *models.AIContext) *models.AIResponse {
	canned := cannedReplies[aiCtx.Turns%len(cannedReplies)]
	if s.llm == nil {
		return &models.AIResponse{ResponseText: canned}
	}
	prompt := req.Text
	if aiCtx.LastActivity != "" {
		prompt = fmt.Sprintf("(The user was last talking about %s.) %s", aiCtx.LastActivity, req.Text)
	}
	text, err := s.llm.GenerateContent(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		s.logger.Warn("Falling back to canned chat reply", zap.Error(err))
		return &models.AIResponse{ResponseText: canned}
	}
	return &models.AIResponse{ResponseText: text}
}
