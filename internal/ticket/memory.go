package ticket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cremix-io/deskbot/pkg/protocol"
)

// Memory is an in-process API implementation used when no ticket backend is
// configured, and as a test double.
type Memory struct {
	mu      sync.Mutex
	tickets map[string]*protocol.Ticket
	order   []string
}

// NewMemory creates an empty in-memory ticket backend.
func NewMemory() *Memory {
	return &Memory{tickets: make(map[string]*protocol.Ticket)}
}

func (m *Memory) Create(ctx context.Context, sub protocol.TicketSubmission) (*protocol.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	t := &protocol.Ticket{
		ID:          uuid.NewString(),
		Subject:     sub.Subject,
		Description: sub.Description,
		Priority:    sub.Priority,
		Status:      sub.Status,
		Category:    sub.Category,
		Source:      sub.Source,
		CustomerID:  sub.CustomerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.tickets[t.ID] = t
	m.order = append(m.order, t.ID)
	return copyTicket(t), nil
}

func (m *Memory) Get(ctx context.Context, id string) (*protocol.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket: %q not found", id)
	}
	return copyTicket(t), nil
}

func (m *Memory) List(ctx context.Context) ([]protocol.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]protocol.Ticket, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.tickets[id])
	}
	return out, nil
}

func (m *Memory) Escalate(ctx context.Context, id string) (*protocol.Ticket, error) {
	return m.update(id, func(t *protocol.Ticket) {
		t.Status = protocol.TicketUrgent
		t.Priority = protocol.PriorityHigh
	})
}

func (m *Memory) Assign(ctx context.Context, id, employeeID string) (*protocol.Ticket, error) {
	return m.update(id, func(t *protocol.Ticket) {
		t.AssignedTo = employeeID
		if t.Status == protocol.TicketNew {
			t.Status = protocol.TicketInProgress
		}
	})
}

func (m *Memory) UpdateStatus(ctx context.Context, id string, status protocol.TicketStatus) (*protocol.Ticket, error) {
	return m.update(id, func(t *protocol.Ticket) { t.Status = status })
}

func (m *Memory) update(id string, apply func(*protocol.Ticket)) (*protocol.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket: %q not found", id)
	}
	apply(t)
	t.UpdatedAt = time.Now().UTC()
	return copyTicket(t), nil
}

func copyTicket(t *protocol.Ticket) *protocol.Ticket {
	c := *t
	return &c
}
