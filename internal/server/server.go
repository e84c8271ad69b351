package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"aidigest/internal/domain"
	"aidigest/internal/usecase"
)

// Runner is the slice of the pipeline the trigger surface needs.
type Runner interface {
	Execute(ctx context.Context) (domain.DigestResult, error)
	Active() bool
	State() domain.RunState
	LastResult() *domain.DigestResult
}

// Server exposes the status endpoint and the manual digest trigger.
type Server struct {
	addr   string
	runner Runner
	logger *slog.Logger
}

// New wires the runner behind the HTTP surface.
func New(addr string, runner Runner, logger *slog.Logger) *Server {
	return &Server{addr: addr, runner: runner, logger: logger}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleStatus)
	r.Get("/trigger", s.handleTrigger)
	r.Post("/trigger", s.handleTrigger)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Trigger requests block for the whole run, so writes stay
		// open far longer than a typical API response.
		WriteTimeout: 5 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

type statusResponse struct {
	Status  string          `json:"status"`
	Active  bool            `json:"active"`
	State   string          `json:"state"`
	LastRun *lastRunSummary `json:"last_run,omitempty"`
}

type lastRunSummary struct {
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	StartedAt  string `json:"started_at"`
	Articles   int    `json:"articles"`
	Summarized int    `json:"summarized"`
}

type triggerResponse struct {
	Status     string `json:"status"`
	RunID      string `json:"run_id,omitempty"`
	Articles   int    `json:"articles,omitempty"`
	Summarized int    `json:"summarized,omitempty"`
	FeedErrors int    `json:"feed_errors,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: "ok", Active: s.runner.Active(), State: string(s.runner.State())}
	if last := s.runner.LastResult(); last != nil {
		resp.LastRun = &lastRunSummary{
			RunID:      last.RunID,
			Status:     string(last.Status),
			StartedAt:  last.StartedAt.Format(time.RFC3339),
			Articles:   len(last.Articles),
			Summarized: last.SummarizedCount(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTrigger starts a run and blocks until its terminal status. A run
// already in flight is rejected immediately with 409.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	result, err := s.runner.Execute(r.Context())
	if errors.Is(err, usecase.ErrRunActive) {
		writeJSON(w, http.StatusConflict, triggerResponse{Status: "already_running"})
		return
	}
	if err != nil {
		s.logger.Error("trigger failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, triggerResponse{Status: "error"})
		return
	}

	writeJSON(w, http.StatusOK, triggerResponse{
		Status:     string(result.Status),
		RunID:      result.RunID,
		Articles:   len(result.Articles),
		Summarized: result.SummarizedCount(),
		FeedErrors: len(result.FeedErrors),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
