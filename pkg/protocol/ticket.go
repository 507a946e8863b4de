package protocol

import "time"

// TicketStatus is the lifecycle state of a ticket in the CRM backend.
type TicketStatus string

const (
	TicketNew        TicketStatus = "NEW"
	TicketOpen       TicketStatus = "OPEN"
	TicketInProgress TicketStatus = "IN_PROGRESS"
	TicketResolved   TicketStatus = "RESOLVED"
	TicketClosed     TicketStatus = "CLOSED"
	TicketUrgent     TicketStatus = "URGENT"
)

// Priority is the ticket priority assigned during analysis.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Sentiment classifies the customer's mood across the conversation.
type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentNeutral    Sentiment = "neutral"
	SentimentFrustrated Sentiment = "frustrated"
	SentimentAngry      Sentiment = "angry"
)

// Urgency is the analysis-level urgency, independent of priority.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyStandard Urgency = "standard"
	UrgencyHigh     Urgency = "high"
	UrgencyUrgent   Urgency = "urgent"
)

// TicketDraft is a structured, not-yet-persisted ticket proposal produced by
// transcript analysis. The backend assigns the durable identifier on submit.
type TicketDraft struct {
	Subject           string    `json:"subject"`
	Description       string    `json:"description"`
	Priority          Priority  `json:"priority"`
	Category          string    `json:"category"`
	SuggestedSolution string    `json:"suggestedSolution"`
	CustomerSentiment Sentiment `json:"customerSentiment"`
	UrgencyLevel      Urgency   `json:"urgencyLevel"`
	Tags              []string  `json:"tags"`
	Confidence        float64   `json:"confidence"`
}

// Customer identifies the person a ticket is filed for.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HistoryEntry is one transcript message in the shape the ticket backend
// stores alongside a chatbot-created ticket.
type HistoryEntry struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Analysis carries the AI-derived fields of a draft under the submission's
// aiAnalysis sub-object.
type Analysis struct {
	Sentiment         Sentiment `json:"sentiment"`
	Urgency           Urgency   `json:"urgency"`
	SuggestedSolution string    `json:"suggestedSolution"`
	Tags              []string  `json:"tags"`
	Confidence        float64   `json:"confidence"`
}

// TicketSubmission is the payload for POST /tickets/customer/{customerId}.
type TicketSubmission struct {
	Subject       string         `json:"subject"`
	Description   string         `json:"description"`
	Priority      Priority       `json:"priority"`
	Status        TicketStatus   `json:"status"`
	Category      string         `json:"category"`
	Source        string         `json:"source"`
	CustomerID    string         `json:"customerId"`
	CustomerName  string         `json:"customerName,omitempty"`
	CustomerEmail string         `json:"customerEmail,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	History       []HistoryEntry `json:"conversationHistory,omitempty"`
	AIAnalysis    *Analysis      `json:"aiAnalysis,omitempty"`
}

// Ticket is a ticket record as returned by the CRM backend.
type Ticket struct {
	ID          string       `json:"id"`
	Subject     string       `json:"subject"`
	Description string       `json:"description"`
	Priority    Priority     `json:"priority"`
	Status      TicketStatus `json:"status"`
	Category    string       `json:"category"`
	Source      string       `json:"source"`
	CustomerID  string       `json:"customerId"`
	AssignedTo  string       `json:"assignedTo,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

