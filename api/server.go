package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/handoff"
	"github.com/Titouaaaan/tutormesh/logging"
	"github.com/Titouaaaan/tutormesh/metrics"
	"github.com/Titouaaaan/tutormesh/runner"
)

// TranscriptStore looks up persisted sessions without creating them.
type TranscriptStore interface {
	Lookup(sessionID string) (*core.Session, error)
}

// Options configures a Server.
type Options struct {
	// BodyLimit caps JSON request bodies.
	BodyLimit int64
	// BaseContext parents every session. Sessions outlive the request that
	// started them.
	BaseContext context.Context
	// MaxPoll caps the ?timeout of /getAIMessage; 0 means the request
	// context alone bounds the wait.
	MaxPoll time.Duration

	Transcripts TranscriptStore
	Progress    core.ProgressStore
	// Metrics enables /metrics and the request middleware when set.
	Metrics *metrics.Collector
	Logger  logging.Logger
}

// Server serves one runner.
type Server struct {
	runner *runner.Runner
	opts   Options
	hub    *Hub
}

// New creates a Server for rn.
func New(rn *runner.Runner, optFns ...func(o *Options)) *Server {
	opts := Options{
		BodyLimit:   1 << 20,
		BaseContext: context.Background(),
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{runner: rn, opts: opts, hub: NewHub(opts.Logger)}
}

// Hub returns the transcript broadcaster behind /ws.
func (s *Server) Hub() *Hub { return s.hub }

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.opts.Metrics != nil {
		r.Use(s.opts.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/startConversation", s.handleStart)
	r.Get("/getAIMessage", s.handleGetMessage)
	r.Post("/acknowledgeMessage", s.handleAcknowledge)
	r.Post("/userInput", s.handleUserInput)
	r.Get("/ws", s.handleWS)
	r.Get("/sessions/{id}/transcript", s.handleTranscript)
	r.Get("/users/{id}/progress", s.handleProgress)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	runner.Status
	Handoff *handoff.State `json:"handoff,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Status: s.runner.Status()}
	if ch, err := s.runner.Handoff(); err == nil {
		st := ch.State()
		resp.Handoff = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

type startRequest struct {
	StartBool bool   `json:"startBool"`
	UserID    string `json:"userID"`
	Query     string `json:"query,omitempty"`
}

type startResponse struct {
	Message   string `json:"message"`
	RunID     string `json:"run_id"`
	SessionID string `json:"session_id"`
}

// handleStart launches a session and relays its transcript to /ws
// subscribers.
//
// Logging Fields:
//
//	user_id: learner
//	run_id: run identifier
//	error: failure cause
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[startRequest](w, r, s.opts.BodyLimit)
	if !ok {
		return
	}
	if !req.StartBool {
		writeError(w, http.StatusBadRequest, "startBool must be true")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "userID is required")
		return
	}

	runID, msgs, errs, err := s.runner.Start(s.opts.BaseContext, core.StartRequest{UserID: req.UserID, Query: req.Query})
	switch {
	case errors.Is(err, runner.ErrSessionActive):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, runner.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.opts.Logger.Error("api.start.error", "user_id", req.UserID, "error", err.Error())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	go s.relay(runID, msgs, errs)

	s.opts.Logger.Info("api.start", "user_id", req.UserID, "run_id", runID)
	writeJSON(w, http.StatusOK, startResponse{
		Message:   "Conversation started",
		RunID:     runID,
		SessionID: s.runner.Status().SessionID,
	})
}

// relay drains the session streams into the hub.
func (s *Server) relay(runID string, msgs <-chan core.Message, errs <-chan error) {
	ctx := context.Background()
	for m := range msgs {
		s.hub.Broadcast(ctx, Envelope{Type: EventMessage, Payload: m})
	}
	for err := range errs {
		s.opts.Logger.Warn("api.session.error", "run_id", runID, "error", err.Error())
	}
	s.hub.Broadcast(ctx, Envelope{Type: EventStatus, Payload: s.runner.Status()})
}

// handleGetMessage returns the next tutor utterance, blocking until one is
// published. ?timeout bounds the wait and answers 204 when it passes.
func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	ch, err := s.runner.Handoff()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	ctx := r.Context()
	wait := s.opts.MaxPoll
	if v := r.URL.Query().Get("timeout"); v != "" {
		d, perr := time.ParseDuration(v)
		if perr != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "invalid timeout")
			return
		}
		if wait == 0 || d < wait {
			wait = d
		}
	}
	if wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}

	p, err := ch.Next(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		// client went away
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type ackRequest struct {
	Ack bool `json:"ack"`
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[ackRequest](w, r, s.opts.BodyLimit)
	if !ok {
		return
	}
	if !req.Ack {
		writeError(w, http.StatusBadRequest, "Acknowledgment must be true")
		return
	}
	ch, err := s.runner.Handoff()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err := ch.Acknowledge(); err != nil {
		writeHandoffError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Acknowledgment received"})
}

type userInputRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleUserInput(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[userInputRequest](w, r, s.opts.BodyLimit)
	if !ok {
		return
	}
	ch, err := s.runner.Handoff()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err := ch.SupplyUserInput(req.Content); err != nil {
		writeHandoffError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User input received"})
}

func writeHandoffError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, handoff.ErrClosed):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, handoff.ErrNothingToAcknowledge), errors.Is(err, handoff.ErrInputPending):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if s.opts.Transcripts == nil {
		writeError(w, http.StatusNotImplemented, "transcripts are not available")
		return
	}
	sess, err := s.opts.Transcripts.Lookup(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if s.opts.Progress == nil {
		writeError(w, http.StatusNotImplemented, "progress is not available")
		return
	}
	records, err := s.opts.Progress.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.opts.Logger.Error("api.progress.error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to list progress")
		return
	}
	if records == nil {
		records = []core.ProgressRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
