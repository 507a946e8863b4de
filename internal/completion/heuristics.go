package completion

import "strings"

// resolutionMarkers are phrases in the model's own output that signal the
// issue is solved. ISSUE_RESOLVED is the explicit marker the system prompt
// asks the model to emit.
var resolutionMarkers = []string{
	"issue_resolved",
	"problem solved",
	"issue resolved",
	"working now",
	"fixed",
	"solved",
	"success",
}

// positivePhrases are signals in the user's message that the issue is
// solved. Either signal alone is sufficient.
var positivePhrases = []string{
	"thank you",
	"thanks",
	"it works",
	"working now",
	"fixed",
	"solved",
	"yes, it worked",
	"that helped",
	"problem solved",
}

// resolutionSignaled reports whether either the model output or the user's
// message carries a resolution signal.
func resolutionSignaled(modelOutput, userMessage string) bool {
	return containsAny(strings.ToLower(modelOutput), resolutionMarkers) ||
		containsAny(strings.ToLower(userMessage), positivePhrases)
}

// confidenceFor scores a model reply by its phrasing: step-by-step language
// raises the score, hedging lowers it. This is a lexical approximation, not
// a calibrated probability; the model is never asked for its own confidence.
func confidenceFor(modelOutput string) float64 {
	lower := strings.ToLower(modelOutput)
	confidence := 0.5

	if strings.Contains(lower, "step") || strings.Contains(lower, "follow") {
		confidence += 0.2
	}
	if strings.Contains(lower, "try") || strings.Contains(lower, "check") {
		confidence += 0.1
	}
	if strings.Contains(lower, "should") || strings.Contains(lower, "will") {
		confidence += 0.1
	}
	if strings.Contains(lower, "might") || strings.Contains(lower, "maybe") {
		confidence -= 0.1
	}
	if strings.Contains(lower, "not sure") || strings.Contains(lower, "unclear") {
		confidence -= 0.2
	}

	return clamp01(confidence)
}

// Suggested action identifiers.
const (
	ActionRefreshPage   = "refresh_page"
	ActionClearCache    = "clear_cache"
	ActionResetPassword = "reset_password"
	ActionCreateTicket  = "create_ticket"
	ActionRetry         = "retry"
	ActionMarkResolved  = "mark_resolved"
	ActionClarify       = "clarify_issue"
)

// actionTriggers maps each action to the phrases that suggest it. Scan
// order is stable so extracted action lists are deterministic.
var actionTriggers = []struct {
	action   string
	triggers []string
}{
	{ActionRefreshPage, []string{"refresh", "reload"}},
	{ActionClearCache, []string{"clear cache", "clear browser", "clear your browser cache"}},
	{ActionResetPassword, []string{"reset password", "reset your password", "forgot password"}},
	{ActionCreateTicket, []string{"contact support", "create ticket", "create a support ticket"}},
	{ActionRetry, []string{"try again", "retry"}},
}

// extractActions scans text for the fixed set of phrase triggers.
func extractActions(text string) []string {
	lower := strings.ToLower(text)
	var actions []string
	for _, t := range actionTriggers {
		if containsAny(lower, t.triggers) {
			actions = append(actions, t.action)
		}
	}
	return actions
}

// actionLabels turns action identifiers into user-facing option labels.
var actionLabels = map[string]string{
	ActionRefreshPage:   "Refresh Page",
	ActionClearCache:    "Clear Browser Cache",
	ActionResetPassword: "Reset Password",
	ActionCreateTicket:  "Create Support Ticket",
	ActionRetry:         "Try Again",
	ActionMarkResolved:  "Issue Resolved!",
}

// OptionsForActions converts suggested actions into clickable options,
// always followed by the generic follow-ups.
func OptionsForActions(actions []string) []string {
	var options []string
	seen := make(map[string]bool)
	for _, a := range actions {
		label, ok := actionLabels[a]
		if !ok || seen[label] {
			continue
		}
		seen[label] = true
		options = append(options, label)
	}
	return append(options, "That helped!", "Still not working", "Try different approach")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
