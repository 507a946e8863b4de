// Package api exposes the chatbot over REST and owns the orchestration
// between sessions, the conversation engine, and the ticket pipeline.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cremix-io/deskbot/internal/completion"
	"github.com/cremix-io/deskbot/internal/engine"
	"github.com/cremix-io/deskbot/internal/notify"
	"github.com/cremix-io/deskbot/internal/session"
	"github.com/cremix-io/deskbot/internal/ticket"
	"github.com/cremix-io/deskbot/pkg/protocol"
)

// ResolvedRecorder persists conversations the bot closed on its own.
type ResolvedRecorder interface {
	Record(r ticket.ResolvedIssue) error
	List(limit int) ([]ticket.ResolvedIssue, error)
}

// Service ties the engine, session store, and ticket pipeline together.
// One Service instance serves all sessions.
type Service struct {
	engine   *engine.Engine
	sessions *session.Manager
	ai       completion.Responder
	tickets  ticket.API
	resolved ResolvedRecorder
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewService creates the orchestration service. resolved may be nil to skip
// persistence; notifier may be nil for no notifications.
func NewService(eng *engine.Engine, sessions *session.Manager, ai completion.Responder, tickets ticket.API, resolved ResolvedRecorder, notifier notify.Notifier, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine:   eng,
		sessions: sessions,
		ai:       ai,
		tickets:  tickets,
		resolved: resolved,
		notifier: notifier,
		logger:   logger,
	}
}

// TurnResult is what one processed turn returns to the client.
type TurnResult struct {
	UserMessage  protocol.Message      `json:"userMessage"`
	BotMessage   protocol.Message      `json:"botMessage"`
	Conversation protocol.Conversation `json:"conversation"`
	Resolved     bool                  `json:"resolved,omitempty"`
	OfferTicket  bool                  `json:"offerTicket,omitempty"`
	DraftTicket  bool                  `json:"draftTicket,omitempty"`
	EndChat      bool                  `json:"endChat,omitempty"`
}

// CreateSession opens a session and posts the greeting.
func (s *Service) CreateSession(customer protocol.Customer) (session.View, error) {
	v := s.sessions.Create(customer)

	text, options := s.engine.Greeting()
	if err := s.sessions.AppendBot(v.ID, protocol.NewMessage(protocol.SenderBot, text, options)); err != nil {
		return session.View{}, err
	}

	s.logger.Info("session created", "session", v.ID, "customer", customer.ID)
	return s.sessions.Get(v.ID)
}

// Session returns a session snapshot.
func (s *Service) Session(id string) (session.View, error) {
	return s.sessions.Get(id)
}

// Sessions lists all live sessions.
func (s *Service) Sessions() []session.View {
	return s.sessions.List()
}

// CloseSession removes a session.
func (s *Service) CloseSession(id string) error {
	if err := s.sessions.Close(id); err != nil {
		return err
	}
	s.logger.Info("session closed", "session", id)
	return nil
}

// PostMessage runs one free-text turn.
func (s *Service) PostMessage(ctx context.Context, id, text string) (*TurnResult, error) {
	return s.turn(ctx, id, text, func(h *session.TurnHandle) engine.Turn {
		return s.engine.HandleMessage(ctx, text, h.Conv, h.Transcript)
	})
}

// PostOption runs one option-click turn.
func (s *Service) PostOption(ctx context.Context, id, option string) (*TurnResult, error) {
	return s.turn(ctx, id, option, func(h *session.TurnHandle) engine.Turn {
		return s.engine.HandleOption(ctx, option, h.Conv, h.Transcript)
	})
}

func (s *Service) turn(ctx context.Context, id, input string, run func(*session.TurnHandle) engine.Turn) (*TurnResult, error) {
	h, err := s.sessions.BeginTurn(id)
	if err != nil {
		return nil, err
	}

	turn := run(h)

	userMsg := protocol.NewMessage(protocol.SenderUser, input, nil)
	botMsg := protocol.NewMessage(protocol.SenderBot, turn.BotText, turn.BotOptions)
	if err := s.sessions.CommitTurn(h, userMsg, botMsg, turn.Conv); err != nil {
		return nil, err
	}

	s.logger.Info("turn complete",
		"session", id,
		"phase", turn.Conv.Phase,
		"attempts", turn.Conv.Attempts,
	)

	if turn.Resolved {
		s.recordResolved(id, turn.Conv)
	}

	return &TurnResult{
		UserMessage:  userMsg,
		BotMessage:   botMsg,
		Conversation: turn.Conv,
		Resolved:     turn.Resolved,
		OfferTicket:  turn.OfferTicket,
		DraftTicket:  turn.DraftTicket,
		EndChat:      turn.EndChat,
	}, nil
}

func (s *Service) recordResolved(sessionID string, conv protocol.Conversation) {
	if s.resolved == nil {
		return
	}
	v, err := s.sessions.Get(sessionID)
	if err != nil {
		return
	}
	resolvedAt := time.Now().UTC()
	if conv.ResolvedAt != nil {
		resolvedAt = *conv.ResolvedAt
	}
	rec := ticket.ResolvedIssue{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		CustomerID: v.Customer.ID,
		Category:   conv.Category,
		Issue:      conv.Issue,
		Method:     conv.ResolutionMethod,
		ResolvedAt: resolvedAt,
	}
	if err := s.resolved.Record(rec); err != nil {
		s.logger.Warn("recording resolved issue failed", "session", sessionID, "error", err)
	}
}

// SubmitTicket runs the ticket pipeline for a session: analyze the
// transcript, synthesize the submission, and hand it to the backend. The
// bot's confirmation (or apology) lands in the transcript either way.
func (s *Service) SubmitTicket(ctx context.Context, id string) (*protocol.Ticket, *TurnResult, error) {
	v, err := s.sessions.Get(id)
	if err != nil {
		return nil, nil, err
	}

	draft, err := s.ai.AnalyzeTranscript(ctx, v.Transcript, v.Conversation)
	if err != nil {
		return nil, nil, fmt.Errorf("analyze transcript: %w", err)
	}

	sub := ticket.Synthesize(draft, v.Customer, v.Transcript, time.Now())

	created, err := s.tickets.Create(ctx, sub)
	if err != nil {
		s.logger.Error("ticket submission failed", "session", id, "error", err)
		s.notifier.TicketFailed(ctx, v.Customer, err.Error())

		botMsg := protocol.NewMessage(protocol.SenderBot,
			"Failed to create ticket. Please try again.",
			[]string{"Try again", engine.OptContinueChat})
		conv := v.Conversation
		conv.Phase = protocol.PhaseEscalationPending
		s.sessions.AppendBot(id, botMsg)
		s.sessions.SetConversation(id, conv)

		return nil, &TurnResult{BotMessage: botMsg, Conversation: conv, OfferTicket: true}, nil
	}

	s.logger.Info("ticket created",
		"session", id,
		"ticket", created.ID,
		"priority", created.Priority,
		"category", created.Category,
	)
	s.notifier.TicketCreated(ctx, created, v.Customer)

	text := fmt.Sprintf(
		"✅ I've created a support ticket for you!\n\n*Subject:* %s\n*Priority:* %s\n*Ticket ID:* %s\n\nOur support team will review it and get back to you soon. Is there anything else I can help you with?",
		created.Subject, created.Priority, created.ID)
	botMsg := protocol.NewMessage(protocol.SenderBot, text,
		[]string{engine.OptStartNewIssue, engine.OptEndChat})
	conv := v.Conversation
	conv.Phase = protocol.PhaseTicketDrafted
	s.sessions.AppendBot(id, botMsg)
	s.sessions.SetConversation(id, conv)

	return created, &TurnResult{BotMessage: botMsg, Conversation: conv}, nil
}

// ResolvedIssues lists persisted bot resolutions, newest first.
func (s *Service) ResolvedIssues(limit int) ([]ticket.ResolvedIssue, error) {
	if s.resolved == nil {
		return nil, nil
	}
	return s.resolved.List(limit)
}
