// Package server exposes interview sessions over HTTP as JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/archive"
	"github.com/spigell/interview-coach/internal/interview"
	"github.com/spigell/interview-coach/internal/report"
)

const shutdownTimeout = 10 * time.Second

// QuestionSource supplies main questions for a new session.
type QuestionSource interface {
	Questions(ctx context.Context, role string, mode interview.Mode, skills []string) ([]string, error)
}

// Archiver stores finished interviews.
type Archiver interface {
	Save(ctx context.Context, rec archive.Record) error
}

// Deps are the server's collaborators. Questions and Archive are optional.
type Deps struct {
	Controller *interview.Controller
	Questions  QuestionSource
	Archive    Archiver
	Logger     *zap.Logger
	// FallbackQuestions are used when Questions is nil or fails.
	FallbackQuestions []string
	// DefaultRole applies when a request names no role.
	DefaultRole string
}

// Server keeps live sessions in memory. Each session has its own lock so
// turns of one session are serialized while sessions run independently.
type Server struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	session interview.Session
	summary interview.Summary
}

// New creates a Server.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Controller == nil {
		deps.Controller = interview.NewController(interview.Config{}, interview.Deps{Logger: deps.Logger})
	}
	return &Server{deps: deps, sessions: make(map[string]*entry)}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/sessions", s.createSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", s.getSession).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/replies", s.reply).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/report", s.getReport).Methods(http.MethodGet)
	return r
}

// Run serves on listen until ctx is cancelled.
func (s *Server) Run(ctx context.Context, listen string) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("http server listening", zap.String("listen", listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.deps.Logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	}
}

type createRequest struct {
	Role      string   `json:"role"`
	Mode      string   `json:"mode"`
	Skills    []string `json:"skills"`
	Questions []string `json:"questions"`
}

type replyRequest struct {
	Reply string `json:"reply"`
}

type actionView struct {
	Kind    interview.ActionKind `json:"kind"`
	Text    string               `json:"text"`
	Payload interview.Action     `json:"payload"`
}

type turnResponse struct {
	Session interview.Session `json:"session"`
	Action  actionView        `json:"action"`
}

func viewOf(a interview.Action) actionView {
	return actionView{Kind: a.Kind(), Text: a.Text(), Payload: a}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode, err := interview.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = s.deps.DefaultRole
	}

	questions := req.Questions
	if len(questions) == 0 {
		questions = s.questions(r.Context(), role, mode, req.Skills)
	}

	session, err := interview.NewSession(role, mode, req.Skills, questions)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	session, action, err := s.deps.Controller.Start(session)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	s.mu.Lock()
	s.sessions[session.ID] = &entry{session: session}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, turnResponse{Session: session, Action: viewOf(action)})
}

func (s *Server) questions(ctx context.Context, role string, mode interview.Mode, skills []string) []string {
	if s.deps.Questions == nil {
		return s.deps.FallbackQuestions
	}
	questions, err := s.deps.Questions.Questions(ctx, role, mode, skills)
	if err != nil || len(questions) == 0 {
		s.deps.Logger.Warn("question generation failed; using fallback questions", zap.Error(err))
		return s.deps.FallbackQuestions
	}
	return questions
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	e.mu.Lock()
	session := e.session
	e.mu.Unlock()

	writeJSON(w, http.StatusOK, session)
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next, action, err := s.deps.Controller.HandleReply(r.Context(), e.session, strings.TrimSpace(req.Reply))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	e.session = next

	if finish, ok := action.(interview.Finish); ok {
		e.summary = finish.Summary
		s.archive(r.Context(), e.session, e.summary)
	}

	writeJSON(w, http.StatusOK, turnResponse{Session: next, Action: viewOf(action)})
}

func (s *Server) archive(ctx context.Context, session interview.Session, summary interview.Summary) {
	if s.deps.Archive == nil {
		return
	}
	rec := archive.Record{Session: session, Report: report.Build(session, summary), FinishedAt: session.UpdatedAt}
	if err := s.deps.Archive.Save(ctx, rec); err != nil {
		s.deps.Logger.Error("archiving interview failed", zap.String("session_id", session.ID), zap.Error(err))
	}
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	e.mu.Lock()
	session, summary := e.session, e.summary
	e.mu.Unlock()

	if !session.Finished() {
		writeError(w, http.StatusConflict, "interview is not finished")
		return
	}

	rep := report.Build(session, summary)
	if r.URL.Query().Get("format") == "markdown" {
		md, err := rep.Markdown()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(md))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) lookup(id string) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	return e, ok
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, interview.ErrNotInProgress), errors.Is(err, interview.ErrAlreadyStarted):
		return http.StatusConflict
	case errors.Is(err, interview.ErrNoQuestions):
		return http.StatusBadRequest
	case errors.Is(err, archive.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
