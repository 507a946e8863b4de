// Package session holds live chat sessions in memory: the append-only
// transcript, the conversation context, and the per-session turn lock.
// Transcripts live and die with the process; only resolution outcomes and
// tickets are persisted elsewhere.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cremix-io/deskbot/pkg/protocol"
)

var (
	ErrNotFound = errors.New("session: not found")
	ErrBusy     = errors.New("session: turn already in progress")
	ErrEnded    = errors.New("session: already ended")
	ErrStale    = errors.New("session: turn outlived the session")
)

// session is the internal mutable record. Callers only ever see Views and
// turn handles; the manager's lock guards every field.
type session struct {
	id         string
	customer   protocol.Customer
	transcript []protocol.Message
	conv       protocol.Conversation
	createdAt  time.Time
	lastActive time.Time
	busy       bool
}

// View is an immutable snapshot of a session.
type View struct {
	ID           string                `json:"id"`
	Customer     protocol.Customer     `json:"customer"`
	Conversation protocol.Conversation `json:"conversation"`
	Transcript   []protocol.Message    `json:"transcript"`
	CreatedAt    time.Time             `json:"createdAt"`
	LastActive   time.Time             `json:"lastActive"`
}

// TurnHandle is the token for one in-flight turn. It carries copies of the
// state the engine needs; commit fails with ErrStale if the session was
// closed or swept while the turn was running.
type TurnHandle struct {
	SessionID  string
	Conv       protocol.Conversation
	Transcript []protocol.Message
}

// Manager owns all live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a session manager. Sessions idle longer than ttl are
// removed by Sweep; a zero ttl disables expiry.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create opens a new session for a customer and returns its view.
func (m *Manager) Create(customer protocol.Customer) View {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s := &session{
		id:         uuid.NewString(),
		customer:   customer,
		conv:       protocol.NewConversation(),
		createdAt:  now,
		lastActive: now,
	}
	m.sessions[s.id] = s
	return s.view()
}

// Get returns a snapshot of a session.
func (m *Manager) Get(id string) (View, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return View{}, ErrNotFound
	}
	return s.view(), nil
}

// List returns snapshots of all live sessions, most recently active first.
func (m *Manager) List() []View {
	m.mu.RLock()
	defer m.mu.RUnlock()

	views := make([]View, 0, len(m.sessions))
	for _, s := range m.sessions {
		views = append(views, s.view())
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].LastActive.After(views[j].LastActive)
	})
	return views
}

// Close removes a session. Any in-flight turn is discarded at commit time.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// AppendBot adds a bot message outside a turn, used for the greeting and
// the ticket pipeline's status messages.
func (m *Manager) AppendBot(id string, msg protocol.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.transcript = append(s.transcript, msg)
	s.lastActive = m.now()
	return nil
}

// SetConversation replaces the conversation context outside a turn, used by
// the ticket pipeline after drafting.
func (m *Manager) SetConversation(id string, conv protocol.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.conv = conv
	s.lastActive = m.now()
	return nil
}

// BeginTurn claims the session's turn lock and hands back the state the
// engine needs. Exactly one turn may be in flight per session; a second
// caller gets ErrBusy. Turns on ended conversations get ErrEnded.
func (m *Manager) BeginTurn(id string) (*TurnHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.busy {
		return nil, ErrBusy
	}
	if s.conv.Phase == protocol.PhaseEnded {
		return nil, ErrEnded
	}

	s.busy = true
	return &TurnHandle{
		SessionID:  id,
		Conv:       s.conv,
		Transcript: append([]protocol.Message(nil), s.transcript...),
	}, nil
}

// CommitTurn applies a finished turn: appends the user and bot messages,
// stores the new conversation context, and releases the turn lock. If the
// session was closed in the meantime the effects are discarded and
// ErrStale is returned.
func (m *Manager) CommitTurn(h *TurnHandle, userMsg, botMsg protocol.Message, conv protocol.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[h.SessionID]
	if !ok || !s.busy {
		return ErrStale
	}

	s.transcript = append(s.transcript, userMsg, botMsg)
	s.conv = conv
	s.lastActive = m.now()
	s.busy = false
	return nil
}

// AbortTurn releases the turn lock without applying anything.
func (m *Manager) AbortTurn(h *TurnHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[h.SessionID]; ok {
		s.busy = false
	}
}

// Sweep removes sessions idle longer than the TTL and returns how many
// were dropped. Sessions with a turn in flight are left alone.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.ttl)
	dropped := 0
	for id, s := range m.sessions {
		if s.lastActive.Before(cutoff) && !s.busy {
			delete(m.sessions, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (s *session) view() View {
	return View{
		ID:           s.id,
		Customer:     s.customer,
		Conversation: s.conv,
		Transcript:   append([]protocol.Message(nil), s.transcript...),
		CreatedAt:    s.createdAt,
		LastActive:   s.lastActive,
	}
}
