package ticket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cremix-io/deskbot/pkg/protocol"
)

func TestClientCreate(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody protocol.TicketSubmission

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(protocol.Ticket{
			ID:      "tik-1",
			Subject: gotBody.Subject,
			Status:  protocol.TicketNew,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	sub := Synthesize(sampleDraft(), protocol.Customer{ID: "cust-7"}, nil, time.Now())

	created, err := c.Create(context.Background(), sub)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != "tik-1" {
		t.Errorf("id = %q", created.ID)
	}
	if gotPath != "/tickets/customer/cust-7" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotBody.Source != SourceChatbot {
		t.Errorf("submitted source = %q", gotBody.Source)
	}
	if gotBody.AIAnalysis == nil {
		t.Error("aiAnalysis missing from wire payload")
	}
}

func TestClientEscalateAndAssignPaths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		json.NewEncoder(w).Encode(protocol.Ticket{ID: "tik-2", Status: protocol.TicketUrgent})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.Escalate(context.Background(), "tik-2"); err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	if _, err := c.Assign(context.Background(), "tik-2", "emp-9"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := c.UpdateStatus(context.Background(), "tik-2", protocol.TicketResolved); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	want := []string{
		"PUT /tickets/tik-2/escalate",
		"PUT /tickets/tik-2/assign/emp-9",
		"PUT /tickets/tik-2",
	}
	for i, w := range want {
		if i >= len(paths) || paths[i] != w {
			t.Errorf("request[%d] = %v, want %q", i, paths, w)
		}
	}
}

func TestClientBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "customer not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Create(context.Background(), protocol.TicketSubmission{CustomerID: "nope"})
	if err == nil {
		t.Fatal("expected error on 404")
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Errorf("error = %v", err)
	}
}

func TestMemoryBackend(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	created, err := m.Create(ctx, protocol.TicketSubmission{
		Subject:    "Broken dashboard",
		Priority:   protocol.PriorityMedium,
		Status:     protocol.TicketNew,
		CustomerID: "cust-1",
		Source:     SourceChatbot,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("empty ticket id")
	}

	if _, err := m.Assign(ctx, created.ID, "emp-3"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	escalated, err := m.Escalate(ctx, created.ID)
	if err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	if escalated.Status != protocol.TicketUrgent || escalated.Priority != protocol.PriorityHigh {
		t.Errorf("escalated = %+v", escalated)
	}
	if escalated.AssignedTo != "emp-3" {
		t.Errorf("assignedTo = %q", escalated.AssignedTo)
	}

	tickets, err := m.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tickets) != 1 {
		t.Errorf("len = %d, want 1", len(tickets))
	}

	if _, err := m.UpdateStatus(ctx, "missing", protocol.TicketClosed); err == nil {
		t.Error("expected error for unknown ticket")
	}
}
