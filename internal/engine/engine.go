// Package engine owns the per-turn conversation logic: category detection,
// scripted solution trees, completion-backed replies, resolution, and
// escalation. All phase changes go through a single transition function so
// the state machine stays explicit.
package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cremix-io/deskbot/internal/completion"
	"github.com/cremix-io/deskbot/internal/kb"
	"github.com/cremix-io/deskbot/pkg/protocol"
)

// escalationCeiling forces the ticket offer after this many bot turns
// without resolution, whatever the completion client thinks.
const escalationCeiling = 3

// Well-known option labels the engine reacts to.
const (
	OptStartNewIssue   = "Start New Issue"
	OptAnotherIssue    = "Yes, another issue"
	OptEndChat         = "End Chat"
	OptAllGood         = "No, all good"
	OptCreateTicket    = "Yes, Create Ticket"
	OptContinueTrying  = "No, Continue Trying"
	OptContinueChat    = "No, Continue Chatting"
	OptOtherIssue      = "Other Issue"
	OptCreateTicketAlt = "Create a ticket"
)

// Turn is the outcome of one bot turn.
type Turn struct {
	BotText     string
	BotOptions  []string
	Conv        protocol.Conversation
	Resolved    bool
	OfferTicket bool // bot is asking whether to create a ticket
	DraftTicket bool // user confirmed: run the ticket pipeline
	EndChat     bool
}

// Engine decides the next bot turn from user input and conversation state.
type Engine struct {
	kb     *kb.KnowledgeBase
	ai     completion.Responder
	logger *slog.Logger
}

// New creates an engine. logger may be nil.
func New(knowledge *kb.KnowledgeBase, ai completion.Responder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{kb: knowledge, ai: ai, logger: logger}
}

// Greeting returns the opening bot message for a fresh session.
func (e *Engine) Greeting() (string, []string) {
	return "👋 Hi! I'm your virtual assistant. I'm here to help you resolve issues quickly. What can I help you with today?",
		append(e.kb.Names(), OptOtherIssue)
}

// HandleMessage processes a free-text user message. Completion failures are
// absorbed here: the user only ever sees a rule-based reply, never an error.
func (e *Engine) HandleMessage(ctx context.Context, text string, conv protocol.Conversation, transcript []protocol.Message) Turn {
	if isTicketRequest(text) {
		conv = transition(conv, protocol.PhaseTicketDrafted)
		return Turn{
			BotText:     "I understand you'd like to create a ticket. Let me analyze our conversation and create one for you...",
			Conv:        conv,
			DraftTicket: true,
		}
	}

	conv.Attempts++

	if conv.Category == "" {
		if category, ok := e.kb.Detect(text); ok {
			cat, _ := e.kb.Category(category)
			conv.Category = category
			conv = transition(conv, protocol.PhaseIssueSelection)
			return e.finalize(Turn{
				BotText:    "I can help you with " + strings.ToLower(category) + "! " + cat.Question,
				BotOptions: cat.Options,
				Conv:       conv,
			})
		}

		resp, err := e.ai.Respond(ctx, text, transcript, conv)
		if err != nil {
			e.logger.Warn("completion responder failed, prompting for category", "error", err)
			conv = transition(conv, protocol.PhaseCategorySelection)
			return e.finalize(Turn{
				BotText:    "I understand you need help. Could you please select the category that best describes your issue?",
				BotOptions: append(e.kb.Names(), OptOtherIssue),
				Conv:       conv,
			})
		}
		return e.finalize(e.fromCompletion(resp, conv))
	}

	resp, err := e.ai.Respond(ctx, text, transcript, conv)
	if err != nil {
		e.logger.Warn("completion responder failed, using scripted fallback", "error", err)
		return e.finalize(e.scriptedFallback(text, conv))
	}
	return e.finalize(e.fromCompletion(resp, conv))
}

// HandleOption processes a clicked option.
func (e *Engine) HandleOption(ctx context.Context, option string, conv protocol.Conversation, transcript []protocol.Message) Turn {
	switch option {
	case OptStartNewIssue, OptAnotherIssue:
		return Turn{
			BotText:    "Of course! What can I help you with now?",
			BotOptions: append(e.kb.Names(), OptOtherIssue),
			Conv:       resetConversation(),
		}
	case OptEndChat, OptAllGood:
		return Turn{
			BotText: "Perfect! Thank you for using our support chat. Have a great day! 👋",
			Conv:    transition(conv, protocol.PhaseEnded),
			EndChat: true,
		}
	}

	if isTicketConfirmation(option) {
		conv = transition(conv, protocol.PhaseTicketDrafted)
		return Turn{
			BotText:     "I understand this issue requires further assistance. Let me analyze our conversation and create a support ticket for you...",
			Conv:        conv,
			DraftTicket: true,
		}
	}

	if option == OptContinueTrying || option == OptContinueChat {
		return e.declineEscalation(conv)
	}

	conv.Attempts++

	if isPositiveOption(option) {
		conv = resolve(conv, protocol.ResolvedByConfirmation)
		return Turn{
			BotText:    "🎉 Excellent! I'm happy I could help resolve your issue. Your issue has been marked as resolved. Is there anything else I can assist you with?",
			BotOptions: []string{OptAnotherIssue, OptAllGood},
			Conv:       conv,
			Resolved:   true,
		}
	}

	// Scripted branches win over the generic negative markers: "Yes,
	// password not working" is a solution-tree key, not a complaint.
	if branch, ok := e.kb.Branch(conv.Category, option); ok {
		conv.Issue = option
		conv = transition(conv, protocol.PhaseIssueSelection)
		return e.finalize(Turn{BotText: branch.Message, BotOptions: branch.Options, Conv: conv})
	}

	if cat, ok := e.kb.Category(option); ok {
		conv.Category = option
		conv.Issue = ""
		conv = transition(conv, protocol.PhaseIssueSelection)
		return e.finalize(Turn{BotText: cat.Question, BotOptions: cat.Options, Conv: conv})
	}

	if isNegativeOption(option) {
		return e.finalize(e.alternativeSolution(ctx, option, conv, transcript))
	}

	if conv.Category == "" {
		conv = transition(conv, protocol.PhaseCategorySelection)
	}
	return e.finalize(Turn{
		BotText:    "I want to make sure I provide the best help. Could you clarify what you need assistance with?",
		BotOptions: append(e.kb.Names(), OptCreateTicketAlt),
		Conv:       conv,
	})
}

// fromCompletion maps a completion response onto a turn: terminal
// resolution, an escalation offer, or a regular reply with options derived
// from the suggested actions.
func (e *Engine) fromCompletion(resp *completion.Response, conv protocol.Conversation) Turn {
	if resp.Resolved {
		conv = resolve(conv, protocol.ResolvedByAssistant)
		return Turn{
			BotText:    resp.Message + "\n\n🎉 Your issue has been marked as resolved. Thank you for using our support chat!",
			BotOptions: []string{OptStartNewIssue, OptEndChat},
			Conv:       conv,
			Resolved:   true,
		}
	}

	if hasAction(resp.SuggestedActions, completion.ActionCreateTicket) {
		conv = transition(conv, protocol.PhaseEscalationPending)
		return Turn{
			BotText:     resp.Message + "\n\nWould you like me to create a support ticket for you?",
			BotOptions:  []string{OptCreateTicket, OptContinueTrying},
			Conv:        conv,
			OfferTicket: true,
		}
	}

	options := []string{"Yes, that helped!", "No, still having issues", "Try something else"}
	if len(resp.SuggestedActions) > 0 {
		options = completion.OptionsForActions(resp.SuggestedActions)
	}
	if conv.Category == "" {
		conv = transition(conv, protocol.PhaseCategorySelection)
	}
	return Turn{BotText: resp.Message, BotOptions: options, Conv: conv}
}

// scriptedFallback handles a free-text message when the completion client
// is down and a category is already set.
func (e *Engine) scriptedFallback(text string, conv protocol.Conversation) Turn {
	if isPositiveText(text) {
		conv = resolve(conv, protocol.ResolvedByConfirmation)
		return Turn{
			BotText:    "🎉 Great! I'm glad I could help resolve your issue. Is there anything else I can help you with today?",
			BotOptions: []string{OptAnotherIssue, OptAllGood},
			Conv:       conv,
			Resolved:   true,
		}
	}

	conv = transition(conv, protocol.PhaseEscalationPending)
	return Turn{
		BotText:     "I understand this didn't resolve your issue. Would you like me to create a support ticket so a specialist can help?",
		BotOptions:  []string{OptCreateTicket, OptContinueTrying},
		Conv:        conv,
		OfferTicket: true,
	}
}

// alternativeSolution asks the completion client for a different approach
// after a scripted solution failed.
func (e *Engine) alternativeSolution(ctx context.Context, option string, conv protocol.Conversation, transcript []protocol.Message) Turn {
	prompt := "The previous solution didn't work. Issue: " + conv.Category
	if conv.Issue != "" {
		prompt += " - " + conv.Issue
	}
	prompt += ". Please provide an alternative solution."

	resp, err := e.ai.Respond(ctx, prompt, transcript, conv)
	if err != nil || resp.Source == completion.SourceFallback {
		conv = transition(conv, protocol.PhaseEscalationPending)
		return Turn{
			BotText:     "I understand the previous solution didn't work. Would you like me to create a support ticket for personalized assistance?",
			BotOptions:  []string{OptCreateTicket, OptContinueTrying},
			Conv:        conv,
			OfferTicket: true,
		}
	}

	if hasAction(resp.SuggestedActions, completion.ActionCreateTicket) {
		conv = transition(conv, protocol.PhaseEscalationPending)
		return Turn{
			BotText:     resp.Message + "\n\nWould you like me to create a support ticket for you?",
			BotOptions:  []string{OptCreateTicket, OptContinueTrying},
			Conv:        conv,
			OfferTicket: true,
		}
	}

	return Turn{
		BotText:    resp.Message,
		BotOptions: []string{"That helped!", "Still not working", OptCreateTicketAlt},
		Conv:       conv,
	}
}

// declineEscalation routes back to category selection, or re-asks the
// current category's scripted question when one is already set. The attempt
// counter restarts so the ceiling doesn't re-fire on the next turn.
func (e *Engine) declineEscalation(conv protocol.Conversation) Turn {
	conv.Attempts = 0
	if conv.Category == "" {
		conv = transition(conv, protocol.PhaseCategorySelection)
		return Turn{
			BotText:    "No problem! I'm still here to help. What else can I assist you with?",
			BotOptions: append(e.kb.Names(), OptOtherIssue),
			Conv:       conv,
		}
	}
	cat, _ := e.kb.Category(conv.Category)
	conv = transition(conv, protocol.PhaseIssueSelection)
	return Turn{
		BotText:    "No problem, let's keep trying. " + cat.Question,
		BotOptions: cat.Options,
		Conv:       conv,
	}
}

// finalize applies the escalation ceiling: after escalationCeiling bot
// turns without resolution the bot always offers a ticket.
func (e *Engine) finalize(t Turn) Turn {
	if t.Conv.Attempts < escalationCeiling || t.Resolved || t.DraftTicket || t.OfferTicket {
		return t
	}
	if t.Conv.Phase.Terminal() {
		return t
	}
	t.Conv = transition(t.Conv, protocol.PhaseEscalationPending)
	t.BotText += "\n\nI've tried several approaches but it seems like this issue needs specialized attention. Would you like me to create a support ticket?"
	t.BotOptions = []string{OptCreateTicket, OptContinueTrying}
	t.OfferTicket = true
	return t
}

func hasAction(actions []string, want string) bool {
	for _, a := range actions {
		if a == want {
			return true
		}
	}
	return false
}
