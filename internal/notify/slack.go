// Package notify pushes escalation events to the support team's Slack
// channel. Notification failures are logged and swallowed: a missed ping
// must never fail the ticket pipeline.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"

	"github.com/cremix-io/deskbot/pkg/protocol"
)

// Notifier receives escalation events. Implementations must be safe for
// concurrent use.
type Notifier interface {
	TicketCreated(ctx context.Context, t *protocol.Ticket, customer protocol.Customer)
	TicketFailed(ctx context.Context, customer protocol.Customer, reason string)
}

// Nop discards all notifications. Used when Slack is not configured.
type Nop struct{}

func (Nop) TicketCreated(context.Context, *protocol.Ticket, protocol.Customer) {}
func (Nop) TicketFailed(context.Context, protocol.Customer, string)            {}

// poster is the slice of the Slack API the notifier uses.
type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Slack posts escalation events to one channel.
type Slack struct {
	api     poster
	channel string
	logger  *slog.Logger
}

// NewSlack creates a Slack notifier.
func NewSlack(botToken, channel string, logger *slog.Logger) (*Slack, error) {
	if botToken == "" {
		return nil, fmt.Errorf("notify: slack bot_token is required")
	}
	if channel == "" {
		return nil, fmt.Errorf("notify: slack channel is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Slack{api: slack.New(botToken), channel: channel, logger: logger}, nil
}

// TicketCreated announces a newly filed ticket.
func (s *Slack) TicketCreated(ctx context.Context, t *protocol.Ticket, customer protocol.Customer) {
	s.post(ctx, FormatTicketCreated(t, customer))
}

// TicketFailed announces a submission the backend rejected, so the team
// can reach out to the customer manually.
func (s *Slack) TicketFailed(ctx context.Context, customer protocol.Customer, reason string) {
	s.post(ctx, FormatTicketFailed(customer, reason))
}

func (s *Slack) post(ctx context.Context, text string) {
	_, _, err := s.api.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false))
	if err != nil {
		s.logger.Warn("slack notification failed", "error", err)
	}
}

// FormatTicketCreated renders the ticket announcement in Slack mrkdwn.
func FormatTicketCreated(t *protocol.Ticket, customer protocol.Customer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *New support ticket from chatbot*\n", priorityEmoji(t.Priority))
	fmt.Fprintf(&b, "*Subject:* %s\n", t.Subject)
	fmt.Fprintf(&b, "*Priority:* %s  *Status:* %s\n", t.Priority, t.Status)
	if t.Category != "" {
		fmt.Fprintf(&b, "*Category:* %s\n", t.Category)
	}
	who := customer.Name
	if who == "" {
		who = customer.ID
	}
	fmt.Fprintf(&b, "*Customer:* %s", who)
	if customer.Email != "" {
		fmt.Fprintf(&b, " (%s)", customer.Email)
	}
	if t.ID != "" {
		fmt.Fprintf(&b, "\n*Ticket:* %s", t.ID)
	}
	return b.String()
}

// FormatTicketFailed renders the failed-submission alert.
func FormatTicketFailed(customer protocol.Customer, reason string) string {
	who := customer.Name
	if who == "" {
		who = customer.ID
	}
	return fmt.Sprintf("⚠️ *Ticket submission failed*\n*Customer:* %s\n*Reason:* %s\nPlease follow up manually.", who, reason)
}

func priorityEmoji(p protocol.Priority) string {
	switch p {
	case protocol.PriorityCritical:
		return "🔴"
	case protocol.PriorityHigh:
		return "🟠"
	case protocol.PriorityMedium:
		return "🟡"
	default:
		return "🟢"
	}
}
