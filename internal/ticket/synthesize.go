// Package ticket turns analyzed conversations into CRM ticket submissions,
// talks to the external ticket backend, and keeps a local record of
// conversations the bot resolved on its own.
package ticket

import (
	"time"

	"github.com/cremix-io/deskbot/pkg/protocol"
)

// SourceChatbot marks tickets created by the bot, as opposed to ones agents
// file by hand.
const SourceChatbot = "chatbot"

// Synthesize assembles the backend payload from an analyzed draft, the
// customer, and the full transcript. It is a pure function: it never
// mutates its inputs and carries every draft field through unchanged, so a
// submitted ticket always matches what the analyzer produced.
func Synthesize(draft *protocol.TicketDraft, customer protocol.Customer, transcript []protocol.Message, now time.Time) protocol.TicketSubmission {
	history := make([]protocol.HistoryEntry, 0, len(transcript))
	for _, m := range transcript {
		history = append(history, protocol.HistoryEntry{
			Sender:    m.Sender,
			Text:      m.Text,
			Timestamp: m.Timestamp,
		})
	}

	status := protocol.TicketNew
	if draft.UrgencyLevel == protocol.UrgencyUrgent {
		status = protocol.TicketUrgent
	}

	return protocol.TicketSubmission{
		Subject:       draft.Subject,
		Description:   draft.Description,
		Priority:      draft.Priority,
		Status:        status,
		Category:      draft.Category,
		Source:        SourceChatbot,
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		CreatedAt:     now.UTC(),
		History:       history,
		AIAnalysis: &protocol.Analysis{
			Sentiment:         draft.CustomerSentiment,
			Urgency:           draft.UrgencyLevel,
			SuggestedSolution: draft.SuggestedSolution,
			Tags:              append([]string(nil), draft.Tags...),
			Confidence:        draft.Confidence,
		},
	}
}
