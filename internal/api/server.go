package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cremix-io/deskbot/internal/logring"
	"github.com/cremix-io/deskbot/internal/session"
	"github.com/cremix-io/deskbot/internal/ticket"
	"github.com/cremix-io/deskbot/pkg/protocol"
)

// LogQuerier abstracts log querying so the server doesn't depend on a
// concrete ring.
type LogQuerier interface {
	Query(since time.Time, minLevel slog.Level, limit int) []logring.Record
}

// Config holds API server configuration.
type Config struct {
	Host string
	Port int
	Key  string // bearer token; empty disables auth
}

// Server is the deskbot REST API server.
type Server struct {
	svc    *Service
	cfg    Config
	logger *slog.Logger
	logs   LogQuerier
	srv    *http.Server
}

// NewServer creates the API server. logs may be nil.
func NewServer(svc *Service, cfg Config, logger *slog.Logger, logs LogQuerier) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
		logs:   logs,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/sessions", s.requireAuth(s.handleCreateSession))
	mux.HandleFunc("GET /api/sessions", s.requireAuth(s.handleListSessions))
	mux.HandleFunc("GET /api/sessions/{id}", s.requireAuth(s.handleGetSession))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.requireAuth(s.handleCloseSession))
	mux.HandleFunc("POST /api/sessions/{id}/messages", s.requireAuth(s.handlePostMessage))
	mux.HandleFunc("POST /api/sessions/{id}/options", s.requireAuth(s.handlePostOption))
	mux.HandleFunc("POST /api/sessions/{id}/ticket", s.requireAuth(s.handleSubmitTicket))
	mux.HandleFunc("GET /api/resolved", s.requireAuth(s.handleListResolved))
	mux.HandleFunc("GET /api/logs", s.requireAuth(s.handleGetLogs))

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Key == "" {
			next(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.cfg.Key {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createSessionRequest struct {
	Customer protocol.Customer `json:"customer"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Customer.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "customer.id is required"})
		return
	}

	v, err := s.svc.CreateSession(req.Customer)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Sessions())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Session(r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.CloseSession(r.PathValue("id")); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

type postMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	result, err := s.svc.PostMessage(r.Context(), r.PathValue("id"), req.Text)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type postOptionRequest struct {
	Option string `json:"option"`
}

func (s *Server) handlePostOption(w http.ResponseWriter, r *http.Request) {
	var req postOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Option == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "option is required"})
		return
	}

	result, err := s.svc.PostOption(r.Context(), r.PathValue("id"), req.Option)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type submitTicketResponse struct {
	Ticket *protocol.Ticket `json:"ticket,omitempty"`
	Turn   *TurnResult      `json:"turn"`
}

func (s *Server) handleSubmitTicket(w http.ResponseWriter, r *http.Request) {
	created, turn, err := s.svc.SubmitTicket(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}

	status := http.StatusCreated
	if created == nil {
		// Backend rejected the submission; the apology is in the turn.
		status = http.StatusBadGateway
	}
	writeJSON(w, status, submitTicketResponse{Ticket: created, Turn: turn})
}

func (s *Server) handleListResolved(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	issues, err := s.svc.ResolvedIssues(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if issues == nil {
		issues = []ticket.ResolvedIssue{}
	}
	writeJSON(w, http.StatusOK, issues)
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logring.Record{})
		return
	}

	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	minLevel := slog.LevelDebug
	switch strings.ToLower(r.URL.Query().Get("level")) {
	case "info":
		minLevel = slog.LevelInfo
	case "warn":
		minLevel = slog.LevelWarn
	case "error":
		minLevel = slog.LevelError
	}

	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			since = time.UnixMilli(ms)
		}
	}

	records := s.logs.Query(since, minLevel, limit)
	if records == nil {
		records = []logring.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// writeSessionError maps session errors onto HTTP statuses.
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, session.ErrBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a turn is already in progress"})
	case errors.Is(err, session.ErrEnded):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conversation has ended"})
	case errors.Is(err, session.ErrStale):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "session closed during turn"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
