package ticket

import (
	"testing"
	"time"

	"github.com/cremix-io/deskbot/pkg/protocol"
)

func sampleDraft() *protocol.TicketDraft {
	return &protocol.TicketDraft{
		Subject:           "Login Issues: Yes, forgot password",
		Description:       "Customer cannot log in.",
		Priority:          protocol.PriorityHigh,
		Category:          "Login Issues",
		SuggestedSolution: "Walk the customer through a password reset.",
		CustomerSentiment: protocol.SentimentFrustrated,
		UrgencyLevel:      protocol.UrgencyHigh,
		Tags:              []string{"loginissues", "frustrated"},
		Confidence:        0.6,
	}
}

func TestSynthesizeCarriesDraftThrough(t *testing.T) {
	draft := sampleDraft()
	customer := protocol.Customer{ID: "cust-7", Name: "Ada", Email: "ada@example.com"}
	transcript := []protocol.Message{
		protocol.NewMessage(protocol.SenderUser, "I can't login", nil),
		protocol.NewMessage(protocol.SenderBot, "Let's fix that", []string{"Yes, forgot password"}),
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sub := Synthesize(draft, customer, transcript, now)

	if sub.Subject != draft.Subject || sub.Description != draft.Description {
		t.Errorf("subject/description altered: %+v", sub)
	}
	if sub.Priority != protocol.PriorityHigh {
		t.Errorf("priority = %q", sub.Priority)
	}
	if sub.Status != protocol.TicketNew {
		t.Errorf("status = %q, want %q", sub.Status, protocol.TicketNew)
	}
	if sub.Source != SourceChatbot {
		t.Errorf("source = %q", sub.Source)
	}
	if sub.CustomerID != "cust-7" || sub.CustomerName != "Ada" {
		t.Errorf("customer fields = %+v", sub)
	}
	if len(sub.History) != 2 || sub.History[0].Sender != protocol.SenderUser {
		t.Errorf("history = %+v", sub.History)
	}
	if sub.AIAnalysis == nil {
		t.Fatal("missing aiAnalysis")
	}
	if sub.AIAnalysis.Sentiment != protocol.SentimentFrustrated || sub.AIAnalysis.Confidence != 0.6 {
		t.Errorf("analysis = %+v", sub.AIAnalysis)
	}
	if !sub.CreatedAt.Equal(now) {
		t.Errorf("createdAt = %v", sub.CreatedAt)
	}
}

func TestSynthesizeUrgentDraftGetsUrgentStatus(t *testing.T) {
	draft := sampleDraft()
	draft.UrgencyLevel = protocol.UrgencyUrgent

	sub := Synthesize(draft, protocol.Customer{ID: "c"}, nil, time.Now())
	if sub.Status != protocol.TicketUrgent {
		t.Errorf("status = %q, want %q", sub.Status, protocol.TicketUrgent)
	}
}

func TestSynthesizeDoesNotAliasDraftTags(t *testing.T) {
	draft := sampleDraft()
	sub := Synthesize(draft, protocol.Customer{ID: "c"}, nil, time.Now())

	sub.AIAnalysis.Tags[0] = "tampered"
	if draft.Tags[0] != "loginissues" {
		t.Error("submission tags alias the draft's slice")
	}
}
