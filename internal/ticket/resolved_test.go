package ticket

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cremix-io/deskbot/pkg/protocol"
)

func testResolvedStore(t *testing.T) *ResolvedStore {
	t.Helper()
	s, err := NewResolvedStore(filepath.Join(t.TempDir(), "resolved.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestResolvedStoreRecordAndList(t *testing.T) {
	s := testResolvedStore(t)

	first := ResolvedIssue{
		ID:         uuid.NewString(),
		SessionID:  "sess-1",
		CustomerID: "cust-1",
		Category:   "Login Issues",
		Issue:      "Yes, forgot password",
		Method:     protocol.ResolvedByConfirmation,
		ResolvedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
	second := ResolvedIssue{
		ID:         uuid.NewString(),
		SessionID:  "sess-2",
		Category:   "Technical Support",
		Method:     protocol.ResolvedByAssistant,
		ResolvedAt: time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC),
	}
	for _, r := range []ResolvedIssue{first, second} {
		if err := s.Record(r); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := s.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].SessionID != "sess-2" {
		t.Errorf("order wrong, newest first expected: %+v", got)
	}
	if got[1].Method != protocol.ResolvedByConfirmation {
		t.Errorf("method = %q", got[1].Method)
	}
	if !got[1].ResolvedAt.Equal(first.ResolvedAt) {
		t.Errorf("resolvedAt = %v, want %v", got[1].ResolvedAt, first.ResolvedAt)
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestResolvedStoreListLimit(t *testing.T) {
	s := testResolvedStore(t)

	for i := 0; i < 5; i++ {
		err := s.Record(ResolvedIssue{
			ID:         uuid.NewString(),
			SessionID:  "sess",
			Method:     protocol.ResolvedByAssistant,
			ResolvedAt: time.Now().Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := s.List(3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestResolvedStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolved.db")

	s, err := NewResolvedStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rec := ResolvedIssue{
		ID:         uuid.NewString(),
		SessionID:  "sess-1",
		Method:     protocol.ResolvedByAssistant,
		ResolvedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	s.Close()

	s2, err := NewResolvedStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, err := s2.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != rec.ID {
		t.Errorf("records did not survive reopen: %+v", got)
	}
}
