package engine

import (
	"time"

	"github.com/cremix-io/deskbot/pkg/protocol"
)

// transition is the single place conversation phases change. Terminal
// phases are sticky: once ended or resolved, only an explicit reset (a new
// Conversation value) starts over.
func transition(conv protocol.Conversation, to protocol.Phase) protocol.Conversation {
	if conv.Phase.Terminal() {
		return conv
	}
	conv.Phase = to
	return conv
}

// resolve marks the conversation resolved and records how and when.
func resolve(conv protocol.Conversation, method protocol.ResolutionMethod) protocol.Conversation {
	conv = transition(conv, protocol.PhaseResolved)
	if conv.Phase != protocol.PhaseResolved {
		return conv
	}
	now := time.Now().UTC()
	conv.ResolvedAt = &now
	conv.ResolutionMethod = method
	return conv
}

// resetConversation returns a fresh context for "start new issue" flows.
// The transcript is owned by the session and survives this reset.
func resetConversation() protocol.Conversation {
	conv := protocol.NewConversation()
	conv.Phase = protocol.PhaseCategorySelection
	return conv
}
