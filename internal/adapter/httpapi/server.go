// Package httpapi exposes the report service over REST, plus the health,
// readiness, and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/civicgrid/civic-report-service/internal/domain"
	"github.com/civicgrid/civic-report-service/internal/service"
	"github.com/civicgrid/civic-report-service/internal/store"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server wraps the report service in an HTTP API.
type Server struct {
	httpServer *http.Server
	service    *service.ReportService
	ready      ReadinessChecker
	logger     *slog.Logger
}

// NewServer builds the router and the underlying http.Server.
func NewServer(addr string, svc *service.ReportService, ready ReadinessChecker, logger *slog.Logger) *Server {
	s := &Server{
		service: svc,
		ready:   ready,
		logger:  logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	router.HandleFunc("/readyz", s.handleReady).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/reports", s.handleSubmit).Methods("POST")
	api.HandleFunc("/reports", s.handleList).Methods("GET")
	api.HandleFunc("/reports/recent", s.handleRecent).Methods("GET")
	api.HandleFunc("/reports/positions", s.handlePositions).Methods("GET")
	api.HandleFunc("/reports/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/reports/{id}", s.handleGet).Methods("GET")
	api.HandleFunc("/reports/{id}/view", s.handleView).Methods("POST")
	api.HandleFunc("/reports/{id}/approve", s.handleTransition(service.OpApprove)).Methods("POST")
	api.HandleFunc("/reports/{id}/resolve", s.handleTransition(service.OpResolve)).Methods("POST")
	api.HandleFunc("/reports/{id}/vote", s.handleVote).Methods("POST")
	api.HandleFunc("/reports/{id}/comments", s.handleComment).Methods("POST")
	api.HandleFunc("/reports/{id}/share", s.handleShare).Methods("POST")
	api.HandleFunc("/auth", s.handleAuthenticate).Methods("POST")
	api.HandleFunc("/auth/me", s.handleCurrentUser).Methods("GET")

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.ready.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var draft service.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := s.service.Submit(r.Context(), draft)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.Filter{
		Type:          domain.IssueType(q.Get("type")),
		ReporterEmail: q.Get("reporter"),
		Query:         q.Get("q"),
	}
	if filter.Type != "" && !filter.Type.Valid() {
		writeError(w, http.StatusBadRequest, "unknown issue type")
		return
	}

	reports, err := s.service.ListReports(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	reports, err := s.service.RecentReports(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	markers, err := s.service.MapPositions(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": markers})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.GetReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.RecordView(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleTransition serves approve and resolve. A refused transition maps to
// 200 with applied=false rather than an error status: the no-op is the
// contract, not a failure.
func (s *Server) handleTransition(op service.TransitionOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ActorEmail string `json:"actor_email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		report, applied, err := s.service.ApplyTransition(r.Context(), mux.Vars(r)["id"], op, body.ActorEmail)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"applied": applied, "report": report})
	}
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VoterEmail string `json:"voter_email"`
		Direction  string `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Direction != "up" && body.Direction != "down" {
		writeError(w, http.StatusBadRequest, `direction must be "up" or "down"`)
		return
	}

	report, applied, err := s.service.Vote(r.Context(), mux.Vars(r)["id"], body.VoterEmail, body.Direction == "up")
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": applied, "report": report})
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Author      string `json:"author"`
		AuthorEmail string `json:"author_email"`
		Text        string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := s.service.AddComment(r.Context(), mux.Vars(r)["id"], body.Author, body.AuthorEmail, body.Text)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Share(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string      `json:"name"`
		Email string      `json:"email"`
		Role  domain.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.service.Authenticate(r.Context(), body.Name, body.Email, body.Role)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.service.CurrentUser(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// writeServiceError maps service errors onto status codes: validation to
// 400, missing records to 404, everything else to 500.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDraft):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
