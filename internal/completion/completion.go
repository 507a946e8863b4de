// Package completion wraps the external chat-completion service the bot
// consults on every turn. The client degrades to a local rule-based
// responder whenever the service is unconfigured, unreachable, or returns
// something unusable; callers never see those failures, only a fallback
// answer. The Source field on each response records which path produced it.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cremix-io/deskbot/internal/kb"
	"github.com/cremix-io/deskbot/pkg/protocol"
)

// historyWindow bounds how many transcript entries go into a prompt.
// Older context is deliberately dropped; this is not configurable.
const historyWindow = 10

// placeholderKey is treated the same as an empty credential. The SPA config
// template ships with it, so it must never trigger a network call.
const placeholderKey = "your-api-key-here"

// Source records which path produced a response.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Response is the completion client's answer for one turn.
type Response struct {
	Message          string
	Resolved         bool
	Confidence       float64
	SuggestedActions []string
	Source           Source
}

// Responder is what the conversation engine needs from this package.
type Responder interface {
	Respond(ctx context.Context, userMessage string, transcript []protocol.Message, conv protocol.Conversation) (*Response, error)
	AnalyzeTranscript(ctx context.Context, transcript []protocol.Message, conv protocol.Conversation) (*protocol.TicketDraft, error)
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	httpc   *http.Client
	apiKey  string
	baseURL string
	model   string
	kb      *kb.KnowledgeBase
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a completion client. An empty or placeholder apiKey is valid:
// the client then answers from the local fallback responder without ever
// touching the network. The 30s timeout is a defensive bound; the source
// behavior had none.
func New(apiKey string, knowledge *kb.KnowledgeBase, opts ...Option) *Client {
	c := &Client{
		httpc:   &http.Client{Timeout: 30 * time.Second},
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1",
		model:   "gpt-3.5-turbo",
		kb:      knowledge,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a usable credential is present.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.apiKey != placeholderKey
}

// Respond produces the completion-backed answer for one turn. It returns an
// error only on catastrophic local bugs; service failures degrade to the
// fallback responder instead.
func (c *Client) Respond(ctx context.Context, userMessage string, transcript []protocol.Message, conv protocol.Conversation) (*Response, error) {
	if !c.Configured() {
		return c.fallback(userMessage), nil
	}

	msgs := c.buildPrompt(userMessage, transcript, conv)
	text, err := c.chatCompletion(ctx, msgs, 500, 0.7)
	if err != nil {
		c.logger.Warn("completion call failed, using fallback", "error", err)
		return c.fallback(userMessage), nil
	}

	return &Response{
		Message:          text,
		Resolved:         resolutionSignaled(text, userMessage),
		Confidence:       confidenceFor(text),
		SuggestedActions: extractActions(text),
		Source:           SourceModel,
	}, nil
}

// buildPrompt assembles the bounded prompt: fixed system instruction, the
// last historyWindow transcript entries, then the current user message.
func (c *Client) buildPrompt(userMessage string, transcript []protocol.Message, conv protocol.Conversation) []chatMessage {
	msgs := []chatMessage{{Role: "system", Content: c.systemPrompt(conv)}}

	recent := transcript
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}
	for _, m := range recent {
		role := "assistant"
		if m.Sender == protocol.SenderUser {
			role = "user"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: m.Text})
	}

	return append(msgs, chatMessage{Role: "user", Content: userMessage})
}

func (c *Client) systemPrompt(conv protocol.Conversation) string {
	var b strings.Builder
	b.WriteString("You are a helpful customer support chatbot for a CRM system. Your role is to:\n\n")
	b.WriteString("1. Help customers resolve technical issues quickly and efficiently\n")
	b.WriteString("2. Provide clear, step-by-step solutions\n")
	b.WriteString("3. Be friendly, professional, and empathetic\n")
	b.WriteString("4. Identify when an issue is successfully resolved\n")
	b.WriteString("5. Escalate to human support when necessary\n\n")
	b.WriteString("IMPORTANT GUIDELINES:\n")
	b.WriteString("- Always provide specific, actionable solutions\n")
	b.WriteString("- Ask clarifying questions when needed\n")
	b.WriteString("- Confirm when an issue is resolved by saying \"ISSUE_RESOLVED\" at the end\n")
	b.WriteString("- If you can't solve the issue after 2-3 attempts, suggest creating a support ticket\n")
	b.WriteString("- Keep responses concise but helpful (under 200 words)\n\n")

	category := conv.Category
	if category == "" {
		category = "General Support"
	}
	issue := conv.Issue
	if issue == "" {
		issue = "Not specified"
	}
	fmt.Fprintf(&b, "Current context:\n- Customer issue category: %s\n- Previous attempts: %d\n- Issue type: %s\n\n", category, conv.Attempts, issue)

	b.WriteString("Known issue categories: ")
	b.WriteString(strings.Join(c.kb.Names(), ", "))
	b.WriteString(".\nRespond in a helpful, professional tone and provide specific solutions.")
	return b.String()
}

// --- wire format ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// chatCompletion performs one call against the completions endpoint and
// returns the generated text.
func (c *Client) chatCompletion(ctx context.Context, msgs []chatMessage, maxTokens int, temperature float64) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}
