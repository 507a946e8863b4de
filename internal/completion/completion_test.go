package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cremix-io/deskbot/internal/kb"
	"github.com/cremix-io/deskbot/pkg/protocol"
)

func testKB(t *testing.T) *kb.KnowledgeBase {
	t.Helper()
	k, err := kb.Default()
	if err != nil {
		t.Fatal(err)
	}
	return k
}

// modelServer returns an httptest server that answers every chat-completions
// call with the given text, and a pointer to the captured request payload.
func modelServer(t *testing.T, reply string) (*httptest.Server, *chatRequest) {
	t.Helper()
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestConfigured(t *testing.T) {
	k := testKB(t)
	if New("", k).Configured() {
		t.Error("empty key reported as configured")
	}
	if New("your-api-key-here", k).Configured() {
		t.Error("placeholder key reported as configured")
	}
	if !New("sk-real", k).Configured() {
		t.Error("real key reported as unconfigured")
	}
}

func TestRespondUnconfiguredNeverTouchesNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := New("", testKB(t), WithBaseURL(srv.URL))
	resp, err := c.Respond(context.Background(), "I can't log in", nil, protocol.NewConversation())
	if err != nil {
		t.Fatal(err)
	}
	if resp.Source != SourceFallback {
		t.Errorf("source = %s, want fallback", resp.Source)
	}
	if calls != 0 {
		t.Errorf("made %d network calls without a credential", calls)
	}
}

func TestRespondFromModel(t *testing.T) {
	srv, captured := modelServer(t, "Please try again after you clear your browser cache. ISSUE_RESOLVED")
	c := New("test-key", testKB(t), WithBaseURL(srv.URL), WithModel("test-model"))

	transcript := []protocol.Message{
		protocol.NewMessage(protocol.SenderBot, "Hi!", nil),
		protocol.NewMessage(protocol.SenderUser, "my payment failed", nil),
	}
	conv := protocol.NewConversation()
	conv.Category = "Payment Problems"

	resp, err := c.Respond(context.Background(), "it failed again", transcript, conv)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Source != SourceModel {
		t.Errorf("source = %s, want model", resp.Source)
	}
	if !resp.Resolved {
		t.Error("ISSUE_RESOLVED marker not picked up")
	}
	if !hasString(resp.SuggestedActions, ActionRetry) || !hasString(resp.SuggestedActions, ActionClearCache) {
		t.Errorf("actions = %v", resp.SuggestedActions)
	}

	if captured.Model != "test-model" {
		t.Errorf("model = %q", captured.Model)
	}
	// system prompt + 2 transcript entries + current message
	if len(captured.Messages) != 4 {
		t.Fatalf("prompt has %d messages, want 4", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || !strings.Contains(captured.Messages[0].Content, "Payment Problems") {
		t.Errorf("system prompt missing context: %q", captured.Messages[0].Content)
	}
	if last := captured.Messages[3]; last.Role != "user" || last.Content != "it failed again" {
		t.Errorf("last message = %+v", last)
	}
}

func TestRespondServerErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New("test-key", testKB(t), WithBaseURL(srv.URL))
	resp, err := c.Respond(context.Background(), "I can't login to my account", nil, protocol.NewConversation())
	if err != nil {
		t.Fatalf("service failure leaked as error: %v", err)
	}
	if resp.Source != SourceFallback {
		t.Errorf("source = %s, want fallback", resp.Source)
	}
	if !strings.Contains(resp.Message, "login") {
		t.Errorf("fallback ignored detected category: %q", resp.Message)
	}
}

func TestPromptHistoryWindow(t *testing.T) {
	srv, captured := modelServer(t, "ok")
	c := New("test-key", testKB(t), WithBaseURL(srv.URL))

	var transcript []protocol.Message
	for i := 0; i < 25; i++ {
		transcript = append(transcript, protocol.NewMessage(protocol.SenderUser, "msg", nil))
	}
	if _, err := c.Respond(context.Background(), "latest", transcript, protocol.NewConversation()); err != nil {
		t.Fatal(err)
	}
	// system + historyWindow + current message
	if got := len(captured.Messages); got != historyWindow+2 {
		t.Errorf("prompt has %d messages, want %d", got, historyWindow+2)
	}
}

func TestFallbackPositiveResolves(t *testing.T) {
	c := New("", testKB(t))
	for _, text := range []string{"yes, it worked", "thanks a lot", "yep"} {
		resp := c.fallback(text)
		if !resp.Resolved {
			t.Errorf("%q: not resolved", text)
		}
		if !hasString(resp.SuggestedActions, ActionMarkResolved) {
			t.Errorf("%q: actions = %v", text, resp.SuggestedActions)
		}
	}
}

func TestFallbackCannedAdvice(t *testing.T) {
	c := New("", testKB(t))

	resp := c.fallback("I forgot my password")
	if !strings.Contains(resp.Message, "login issues") && !strings.Contains(resp.Message, "login") {
		t.Errorf("message = %q", resp.Message)
	}
	if !hasString(resp.SuggestedActions, ActionResetPassword) {
		t.Errorf("canned login advice lost its actions: %v", resp.SuggestedActions)
	}

	resp = c.fallback("weather forecast please")
	if resp.Confidence != 0.4 || !hasString(resp.SuggestedActions, ActionClarify) {
		t.Errorf("generic fallback = %+v", resp)
	}
}

func TestOptionsForActions(t *testing.T) {
	opts := OptionsForActions([]string{ActionClearCache, ActionClearCache, "bogus", ActionRetry})
	want := []string{"Clear Browser Cache", "Try Again", "That helped!", "Still not working", "Try different approach"}
	if len(opts) != len(want) {
		t.Fatalf("options = %v", opts)
	}
	for i := range want {
		if opts[i] != want[i] {
			t.Errorf("options[%d] = %q, want %q", i, opts[i], want[i])
		}
	}
}

func hasString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
