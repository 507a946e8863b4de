package ticket

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cremix-io/deskbot/pkg/protocol"
)

// ResolvedIssue is one conversation the bot closed without human help.
// These records outlive the in-memory session they came from.
type ResolvedIssue struct {
	ID         string                    `json:"id"`
	SessionID  string                    `json:"sessionId"`
	CustomerID string                    `json:"customerId"`
	Category   string                    `json:"category"`
	Issue      string                    `json:"issue,omitempty"`
	Method     protocol.ResolutionMethod `json:"method"`
	ResolvedAt time.Time                 `json:"resolvedAt"`
}

// ResolvedStore persists resolved-issue records in SQLite.
type ResolvedStore struct {
	db *sql.DB
}

// NewResolvedStore opens (or creates) the database and runs migrations.
func NewResolvedStore(path string) (*ResolvedStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("resolved store: open: %w", err)
	}

	// WAL for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("resolved store: wal: %w", err)
	}

	s := &ResolvedStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *ResolvedStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS resolved_issues (
			id          TEXT PRIMARY KEY,
			session_id  TEXT NOT NULL,
			customer_id TEXT NOT NULL DEFAULT '',
			category    TEXT NOT NULL DEFAULT '',
			issue       TEXT NOT NULL DEFAULT '',
			method      TEXT NOT NULL,
			resolved_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_resolved_customer ON resolved_issues(customer_id);
		CREATE INDEX IF NOT EXISTS idx_resolved_at ON resolved_issues(resolved_at);
	`)
	if err != nil {
		return fmt.Errorf("resolved store: migrate: %w", err)
	}
	return nil
}

// Record saves one resolved issue.
func (s *ResolvedStore) Record(r ResolvedIssue) error {
	_, err := s.db.Exec(`
		INSERT INTO resolved_issues (id, session_id, customer_id, category, issue, method, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.SessionID, r.CustomerID, r.Category, r.Issue, string(r.Method), r.ResolvedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("resolved store: record: %w", err)
	}
	return nil
}

// List returns resolved issues, newest first. A zero limit means no limit.
func (s *ResolvedStore) List(limit int) ([]ResolvedIssue, error) {
	query := `SELECT id, session_id, customer_id, category, issue, method, resolved_at
		FROM resolved_issues ORDER BY resolved_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("resolved store: list: %w", err)
	}
	defer rows.Close()

	var out []ResolvedIssue
	for rows.Next() {
		var r ResolvedIssue
		var method, resolvedAt string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.CustomerID, &r.Category, &r.Issue, &method, &resolvedAt); err != nil {
			return nil, fmt.Errorf("resolved store: scan: %w", err)
		}
		r.Method = protocol.ResolutionMethod(method)
		r.ResolvedAt, _ = time.Parse(time.RFC3339, resolvedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the total number of resolved issues.
func (s *ResolvedStore) Count() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM resolved_issues`).Scan(&count); err != nil {
		return 0, fmt.Errorf("resolved store: count: %w", err)
	}
	return count, nil
}

// Close releases the database handle.
func (s *ResolvedStore) Close() error {
	return s.db.Close()
}
