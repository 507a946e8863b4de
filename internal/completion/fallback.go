package completion

import "strings"

// cannedAdvice holds the rule-based replies used when the completion
// service cannot answer. The texts deliberately contain the same phrase
// triggers extractActions scans for, so fallback responses still carry
// suggested actions derived from their own wording.
var cannedAdvice = map[string]struct {
	message    string
	confidence float64
}{
	"Login Issues": {
		message: "I can help with login issues. Try these steps:\n" +
			"1. Clear your browser cache\n" +
			"2. Reset your password\n" +
			"3. Try incognito mode\n\n" +
			"Did this help resolve your login issue?",
		confidence: 0.7,
	},
	"Payment Problems": {
		message: "For payment issues, please check:\n" +
			"1. Card details are correct\n" +
			"2. Sufficient funds available\n" +
			"3. Card not expired\n\n" +
			"Then try again. If the issue persists, I can create a support ticket for you. Did this help?",
		confidence: 0.6,
	},
}

// fallback is the local rule-based responder. It never touches the network
// and never fails. Suggested actions come purely from keyword matching on
// the synthetic reply itself.
func (c *Client) fallback(userMessage string) *Response {
	lower := strings.ToLower(userMessage)

	if containsAny(lower, positivePhrases) || isAffirmative(lower) {
		return &Response{
			Message:          "Excellent! I'm glad I could help resolve your issue. Is there anything else I can help you with today?",
			Resolved:         true,
			Confidence:       0.9,
			SuggestedActions: []string{ActionMarkResolved},
			Source:           SourceFallback,
		}
	}

	if category, ok := c.kb.Detect(userMessage); ok {
		if advice, found := cannedAdvice[category]; found {
			return &Response{
				Message:          advice.message,
				Confidence:       advice.confidence,
				SuggestedActions: extractActions(advice.message),
				Source:           SourceFallback,
			}
		}
		if cat, found := c.kb.Category(category); found {
			return &Response{
				Message:          "I can help you with " + strings.ToLower(category) + ". " + cat.Question,
				Confidence:       0.6,
				SuggestedActions: extractActions(cat.Question),
				Source:           SourceFallback,
			}
		}
	}

	return &Response{
		Message: "I understand you need help. Could you please provide more details about your issue so I can assist you better? " +
			"You can also choose from the common issue categories below.",
		Confidence:       0.4,
		SuggestedActions: []string{ActionClarify},
		Source:           SourceFallback,
	}
}

// affirmatives are bare agreement words that count as a positive signal on
// their own, on top of the longer positive phrases.
var affirmatives = []string{"yes", "yeah", "yep"}

func isAffirmative(lower string) bool {
	for _, a := range affirmatives {
		if lower == a || strings.HasPrefix(lower, a+" ") || strings.HasPrefix(lower, a+",") {
			return true
		}
	}
	return false
}
