package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cremix-io/deskbot/pkg/protocol"
)

const (
	subjectLimit    = 60
	subjectSnippet  = 50
	defaultCategory = "General Support"
)

// urgentKeywords force HIGH priority and high urgency. They are scanned
// before the milder problemKeywords list.
var urgentKeywords = []string{
	"urgent", "critical", "emergency", "immediately", "asap", "can't access", "not working",
}

var problemKeywords = []string{
	"problem", "issue", "error", "failed", "broken", "trouble",
}

// angryKeywords outrank frustratedKeywords in the sentiment scan.
var angryKeywords = []string{"angry", "unacceptable", "ridiculous", "worst", "hate"}

var frustratedKeywords = []string{"frustrated", "annoying", "slow", "terrible", "horrible"}

// AnalyzeTranscript turns a conversation into a structured ticket draft.
// The remote analysis asks the model for JSON; any transport or parse
// failure falls back to the local analyzer, never to an error.
func (c *Client) AnalyzeTranscript(ctx context.Context, transcript []protocol.Message, conv protocol.Conversation) (*protocol.TicketDraft, error) {
	if !c.Configured() {
		return LocalDraft(transcript, conv), nil
	}

	msgs := []chatMessage{
		{Role: "system", Content: c.analysisPrompt(conv)},
		{Role: "user", Content: "Please analyze this conversation and extract ticket details:\n\n" + formatTranscript(transcript)},
	}
	// Low temperature for consistent analysis output.
	text, err := c.chatCompletion(ctx, msgs, 400, 0.3)
	if err != nil {
		c.logger.Warn("ticket analysis call failed, using local analyzer", "error", err)
		return LocalDraft(transcript, conv), nil
	}

	draft, err := parseDraft(text)
	if err != nil {
		c.logger.Warn("ticket analysis output unparseable, using local analyzer", "error", err)
		return LocalDraft(transcript, conv), nil
	}
	return draft, nil
}

func (c *Client) analysisPrompt(conv protocol.Conversation) string {
	convJSON, _ := json.Marshal(conv)
	return fmt.Sprintf(`You are an expert customer support analyst. Analyze the customer conversation and extract structured ticket information.

PRIORITY LEVELS: LOW (general inquiries), MEDIUM (standard issues), HIGH (service or payment problems), CRITICAL (account locked, service down).
CATEGORIES: %s, General Support.
SENTIMENT: positive, neutral, frustrated, angry.

Respond with a JSON object:
{
  "subject": "Brief ticket title (max 60 chars)",
  "description": "Detailed issue description with context",
  "priority": "LOW|MEDIUM|HIGH|CRITICAL",
  "category": "Category name",
  "suggestedSolution": "Recommended next steps",
  "customerSentiment": "positive|neutral|frustrated|angry",
  "urgencyLevel": "low|standard|high|urgent",
  "tags": ["relevant", "keywords"],
  "confidence": 0.8
}

Current context: %s`, strings.Join(c.kb.Names(), ", "), convJSON)
}

func formatTranscript(transcript []protocol.Message) string {
	var b strings.Builder
	for _, m := range transcript {
		who := "Assistant"
		if m.Sender == protocol.SenderUser {
			who = "Customer"
		}
		fmt.Fprintf(&b, "%s: %s\n", who, m.Text)
	}
	return b.String()
}

// parseDraft decodes and normalizes the model's JSON analysis.
func parseDraft(text string) (*protocol.TicketDraft, error) {
	var raw struct {
		Subject           string   `json:"subject"`
		Description       string   `json:"description"`
		Priority          string   `json:"priority"`
		Category          string   `json:"category"`
		SuggestedSolution string   `json:"suggestedSolution"`
		CustomerSentiment string   `json:"customerSentiment"`
		UrgencyLevel      string   `json:"urgencyLevel"`
		Tags              []string `json:"tags"`
		Confidence        float64  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}

	draft := &protocol.TicketDraft{
		Subject:           truncate(raw.Subject, subjectLimit),
		Description:       raw.Description,
		Priority:          normalizePriority(raw.Priority),
		Category:          raw.Category,
		SuggestedSolution: raw.SuggestedSolution,
		CustomerSentiment: normalizeSentiment(raw.CustomerSentiment),
		UrgencyLevel:      normalizeUrgency(raw.UrgencyLevel),
		Tags:              raw.Tags,
		Confidence:        clamp01(raw.Confidence),
	}
	if draft.Subject == "" {
		draft.Subject = "Customer Support Request"
	}
	if draft.Description == "" {
		draft.Description = "Customer needs assistance based on chat conversation."
	}
	if draft.Category == "" {
		draft.Category = defaultCategory
	}
	if draft.Confidence == 0 {
		draft.Confidence = 0.7
	}
	return draft, nil
}

// LocalDraft is the rule-based transcript analyzer. It is a pure function
// of its inputs: same transcript and context always yield the same draft.
func LocalDraft(transcript []protocol.Message, conv protocol.Conversation) *protocol.TicketDraft {
	userMessages := protocol.UserText(transcript)

	category := conv.Category
	if category == "" {
		category = defaultCategory
	}

	var all strings.Builder
	for _, m := range transcript {
		all.WriteString(strings.ToLower(m.Text))
		all.WriteByte(' ')
	}
	allText := all.String()

	priority := protocol.PriorityLow
	urgency := protocol.UrgencyLow
	switch {
	case containsAny(allText, urgentKeywords):
		priority = protocol.PriorityHigh
		urgency = protocol.UrgencyHigh
	case containsAny(allText, problemKeywords):
		priority = protocol.PriorityMedium
		urgency = protocol.UrgencyStandard
	}

	sentiment := protocol.SentimentNeutral
	switch {
	case containsAny(allText, angryKeywords):
		sentiment = protocol.SentimentAngry
		priority = protocol.PriorityHigh
	case containsAny(allText, frustratedKeywords):
		sentiment = protocol.SentimentFrustrated
	}

	var first string
	if len(userMessages) > 0 {
		first = userMessages[0]
	}
	subject := first
	switch {
	case conv.Issue != "":
		subject = category + ": " + conv.Issue
	case len([]rune(first)) > subjectSnippet:
		subject = string([]rune(first)[:subjectSnippet]) + "..."
	case first == "":
		subject = "Customer Support Request"
	}
	subject = truncate(subject, subjectLimit)

	var desc strings.Builder
	fmt.Fprintf(&desc, "Customer Issue: %s\n\nIssue Details:\n", category)
	for i, msg := range userMessages {
		fmt.Fprintf(&desc, "%d. %s\n", i+1, msg)
	}
	desc.WriteString("\nConversation Summary:\n")
	fmt.Fprintf(&desc, "The customer contacted support regarding %s. ", strings.ToLower(category))
	if conv.Issue != "" {
		fmt.Fprintf(&desc, "Specifically about: %s. ", conv.Issue)
	}
	desc.WriteString("Previous troubleshooting attempts were made through the chatbot but the issue requires human attention.\n")
	fmt.Fprintf(&desc, "\nCustomer Sentiment: %s\n", sentiment)

	return &protocol.TicketDraft{
		Subject:           subject,
		Description:       desc.String(),
		Priority:          priority,
		Category:          category,
		SuggestedSolution: fmt.Sprintf("Review the customer's %s issue and provide personalized assistance.", strings.ToLower(category)),
		CustomerSentiment: sentiment,
		UrgencyLevel:      urgency,
		Tags:              []string{strings.ReplaceAll(strings.ToLower(category), " ", ""), string(sentiment)},
		Confidence:        0.6,
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func normalizePriority(s string) protocol.Priority {
	switch protocol.Priority(strings.ToUpper(s)) {
	case protocol.PriorityLow, protocol.PriorityMedium, protocol.PriorityHigh, protocol.PriorityCritical:
		return protocol.Priority(strings.ToUpper(s))
	}
	return protocol.PriorityMedium
}

func normalizeSentiment(s string) protocol.Sentiment {
	switch protocol.Sentiment(strings.ToLower(s)) {
	case protocol.SentimentPositive, protocol.SentimentNeutral, protocol.SentimentFrustrated, protocol.SentimentAngry:
		return protocol.Sentiment(strings.ToLower(s))
	}
	return protocol.SentimentNeutral
}

func normalizeUrgency(s string) protocol.Urgency {
	switch protocol.Urgency(strings.ToLower(s)) {
	case protocol.UrgencyLow, protocol.UrgencyStandard, protocol.UrgencyHigh, protocol.UrgencyUrgent:
		return protocol.Urgency(strings.ToLower(s))
	}
	return protocol.UrgencyStandard
}
