package engine

import "strings"

// ticketRequestPhrases are explicit asks, in free text, for a ticket or a
// human. Any hit short-circuits the normal turn flow.
var ticketRequestPhrases = []string{
	"create ticket",
	"create a ticket",
	"make a ticket",
	"submit a ticket",
	"file a ticket",
	"open a ticket",
	"raise a ticket",
	"support ticket",
	"speak to a human",
	"talk to a human",
	"human agent",
	"real person",
	"representative",
	"escalate",
}

func isTicketRequest(text string) bool {
	return matchAny(strings.ToLower(text), ticketRequestPhrases)
}

// isTicketConfirmation covers every "yes, create the ticket" shaped option:
// the escalation offer's confirm button as well as scripted leaves like
// "Yes, create refund ticket".
func isTicketConfirmation(option string) bool {
	lower := strings.ToLower(option)
	return strings.Contains(lower, "create") && strings.Contains(lower, "ticket")
}

// positiveOptionMarkers match the confirmation leaves of the solution
// trees. Checked before negativeOptionMarkers so "No, errors gone" reads as
// the success it is despite the leading "No".
var positiveOptionMarkers = []string{
	"problem solved",
	"it worked",
	"that helped",
	"went through",
	"updated successfully",
	"changed successfully",
	"it's working",
	"errors gone",
	"much faster",
	"issue resolved",
}

func isPositiveOption(option string) bool {
	return matchAny(strings.ToLower(option), positiveOptionMarkers)
}

// negativeOptionMarkers match "the suggestion didn't help" leaves and the
// generic retry follow-ups.
var negativeOptionMarkers = []string{
	"still",
	"not working",
	"having trouble",
	"need help",
	"didn't work",
	"different approach",
	"something else",
}

func isNegativeOption(option string) bool {
	return matchAny(strings.ToLower(option), negativeOptionMarkers)
}

// positiveTextMarkers signal resolution in free text. Mirrors the signals
// the completion fallback responder reacts to.
var positiveTextMarkers = []string{
	"thank you",
	"thanks",
	"it works",
	"it worked",
	"working now",
	"fixed",
	"solved",
	"that helped",
	"problem solved",
}

func isPositiveText(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if matchAny(lower, positiveTextMarkers) {
		return true
	}
	for _, a := range []string{"yes", "yeah", "yep"} {
		if lower == a || strings.HasPrefix(lower, a+" ") || strings.HasPrefix(lower, a+",") {
			return true
		}
	}
	return false
}

func matchAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
