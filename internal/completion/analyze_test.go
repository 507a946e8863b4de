package completion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/cremix-io/deskbot/pkg/protocol"
)

func urgentTranscript() []protocol.Message {
	return []protocol.Message{
		protocol.NewMessage(protocol.SenderBot, "Hi! How can I help?", nil),
		protocol.NewMessage(protocol.SenderUser, "URGENT: my payment failed and I can't access my invoices", nil),
	}
}

func TestLocalDraftUrgent(t *testing.T) {
	conv := protocol.NewConversation()
	conv.Category = "Payment Problems"
	conv.Issue = "Payment failed"

	draft := LocalDraft(urgentTranscript(), conv)
	if draft.Priority != protocol.PriorityHigh {
		t.Errorf("priority = %s, want HIGH", draft.Priority)
	}
	if draft.UrgencyLevel != protocol.UrgencyHigh {
		t.Errorf("urgency = %s, want high", draft.UrgencyLevel)
	}
	if draft.Subject != "Payment Problems: Payment failed" {
		t.Errorf("subject = %q", draft.Subject)
	}
	if !strings.Contains(draft.Description, "URGENT: my payment failed") {
		t.Errorf("description lost the user's words:\n%s", draft.Description)
	}
	if !hasString(draft.Tags, "paymentproblems") {
		t.Errorf("tags = %v", draft.Tags)
	}
}

func TestLocalDraftIsDeterministic(t *testing.T) {
	conv := protocol.NewConversation()
	conv.Category = "Technical Support"
	first := LocalDraft(urgentTranscript(), conv)
	for i := 0; i < 10; i++ {
		if got := LocalDraft(urgentTranscript(), conv); !reflect.DeepEqual(got, first) {
			t.Fatalf("iteration %d: draft differs\n got: %+v\nwant: %+v", i, got, first)
		}
	}
}

func TestLocalDraftSentiment(t *testing.T) {
	transcript := []protocol.Message{
		protocol.NewMessage(protocol.SenderUser, "this is ridiculous, worst service ever", nil),
	}
	draft := LocalDraft(transcript, protocol.NewConversation())
	if draft.CustomerSentiment != protocol.SentimentAngry {
		t.Errorf("sentiment = %s, want angry", draft.CustomerSentiment)
	}
	if draft.Priority != protocol.PriorityHigh {
		t.Errorf("angry customer should raise priority, got %s", draft.Priority)
	}
}

func TestLocalDraftDefaults(t *testing.T) {
	draft := LocalDraft(nil, protocol.NewConversation())
	if draft.Subject != "Customer Support Request" {
		t.Errorf("subject = %q", draft.Subject)
	}
	if draft.Category != "General Support" {
		t.Errorf("category = %q", draft.Category)
	}
	if draft.Priority != protocol.PriorityLow {
		t.Errorf("priority = %s", draft.Priority)
	}
}

func TestLocalDraftSubjectTruncation(t *testing.T) {
	long := strings.Repeat("a", 120)
	transcript := []protocol.Message{protocol.NewMessage(protocol.SenderUser, long, nil)}
	draft := LocalDraft(transcript, protocol.NewConversation())
	if got := len([]rune(draft.Subject)); got > subjectLimit {
		t.Errorf("subject length = %d, want <= %d", got, subjectLimit)
	}
	if !strings.HasSuffix(draft.Subject, "...") {
		t.Errorf("subject = %q, want ellipsis", draft.Subject)
	}
}

func TestAnalyzeTranscriptFromModel(t *testing.T) {
	analysis := `{
		"subject": "Refund request for double charge",
		"description": "Customer was charged twice for the monthly plan.",
		"priority": "high",
		"category": "Payment Problems",
		"suggestedSolution": "Issue a refund for the duplicate transaction.",
		"customerSentiment": "FRUSTRATED",
		"urgencyLevel": "HIGH",
		"tags": ["billing", "refund"],
		"confidence": 0.85
	}`
	srv, _ := modelServer(t, analysis)
	c := New("test-key", testKB(t), WithBaseURL(srv.URL))

	conv := protocol.NewConversation()
	conv.Category = "Payment Problems"
	draft, err := c.AnalyzeTranscript(context.Background(), urgentTranscript(), conv)
	if err != nil {
		t.Fatal(err)
	}
	if draft.Subject != "Refund request for double charge" {
		t.Errorf("subject = %q", draft.Subject)
	}
	if draft.Priority != protocol.PriorityHigh {
		t.Errorf("priority not normalized: %s", draft.Priority)
	}
	if draft.CustomerSentiment != protocol.SentimentFrustrated {
		t.Errorf("sentiment not normalized: %s", draft.CustomerSentiment)
	}
	if draft.UrgencyLevel != protocol.UrgencyHigh {
		t.Errorf("urgency not normalized: %s", draft.UrgencyLevel)
	}
	if draft.Confidence != 0.85 {
		t.Errorf("confidence = %v", draft.Confidence)
	}
}

func TestAnalyzeTranscriptUnparseableFallsBack(t *testing.T) {
	srv, _ := modelServer(t, "Sorry, I can only answer in prose.")
	c := New("test-key", testKB(t), WithBaseURL(srv.URL))

	conv := protocol.NewConversation()
	conv.Category = "Payment Problems"
	draft, err := c.AnalyzeTranscript(context.Background(), urgentTranscript(), conv)
	if err != nil {
		t.Fatal(err)
	}
	local := LocalDraft(urgentTranscript(), conv)
	if !reflect.DeepEqual(draft, local) {
		t.Errorf("unparseable analysis did not fall back to the local draft")
	}
}

func TestAnalyzeTranscriptServerErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := New("test-key", testKB(t), WithBaseURL(srv.URL))

	draft, err := c.AnalyzeTranscript(context.Background(), urgentTranscript(), protocol.NewConversation())
	if err != nil {
		t.Fatal(err)
	}
	if draft == nil || draft.Subject == "" {
		t.Fatalf("draft = %+v", draft)
	}
}

func TestParseDraftFillsDefaults(t *testing.T) {
	draft, err := parseDraft(`{"priority": "whatever", "urgencyLevel": "soonish"}`)
	if err != nil {
		t.Fatal(err)
	}
	if draft.Subject != "Customer Support Request" {
		t.Errorf("subject = %q", draft.Subject)
	}
	if draft.Priority != protocol.PriorityMedium {
		t.Errorf("unknown priority should normalize to MEDIUM, got %s", draft.Priority)
	}
	if draft.UrgencyLevel != protocol.UrgencyStandard {
		t.Errorf("unknown urgency should normalize to standard, got %s", draft.UrgencyLevel)
	}
	if draft.Confidence != 0.7 {
		t.Errorf("confidence = %v", draft.Confidence)
	}
}
