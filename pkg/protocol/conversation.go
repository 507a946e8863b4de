package protocol

import "time"

// Phase is the explicit state of a conversation. All transitions go through
// the engine's single transition function; resolved and escalation-pending
// are distinct phases, so a conversation can never be both at once.
type Phase string

const (
	PhaseStart             Phase = "start"
	PhaseCategorySelection Phase = "category_selection"
	PhaseIssueSelection    Phase = "issue_selection"
	PhaseResolved          Phase = "resolved"
	PhaseEscalationPending Phase = "escalation_pending"
	PhaseTicketDrafted     Phase = "ticket_drafted"
	PhaseEnded             Phase = "ended"
)

// Terminal reports whether the phase ends the current conversation instance.
// A new conversation can still be started in the same session, which resets
// the context but keeps the transcript.
func (p Phase) Terminal() bool {
	return p == PhaseResolved || p == PhaseEnded
}

// ResolutionMethod records how a conversation reached the resolved phase.
type ResolutionMethod string

const (
	ResolvedByAssistant    ResolutionMethod = "ai_assistant"
	ResolvedByConfirmation ResolutionMethod = "user_confirmation"
)

// Conversation is the per-session conversation state. It is a value type:
// every turn produces a new Conversation rather than mutating the old one,
// so turn history stays reproducible in tests.
type Conversation struct {
	Phase            Phase            `json:"phase"`
	Category         string           `json:"category,omitempty"`
	Issue            string           `json:"issue,omitempty"`
	Attempts         int              `json:"attempts"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty"`
	ResolutionMethod ResolutionMethod `json:"resolution_method,omitempty"`
}

// NewConversation returns the initial conversation state.
func NewConversation() Conversation {
	return Conversation{Phase: PhaseStart}
}

// Resolved reports whether the conversation reached the resolved phase.
func (c Conversation) Resolved() bool { return c.Phase == PhaseResolved }

// EscalationReady reports whether the conversation is waiting on the user
// to confirm or decline ticket creation.
func (c Conversation) EscalationReady() bool { return c.Phase == PhaseEscalationPending }
