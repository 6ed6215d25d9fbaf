package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/careergurulabs/careerguru/internal/auth"
	"github.com/careergurulabs/careerguru/internal/coach"
	"github.com/careergurulabs/careerguru/internal/config"
	"github.com/careergurulabs/careerguru/internal/history"
	"github.com/careergurulabs/careerguru/internal/observability"
	"github.com/careergurulabs/careerguru/internal/reliability"
	"github.com/careergurulabs/careerguru/internal/session"
)

// Coach runs one assistant exchange per user action.
type Coach interface {
	MockInterview(ctx context.Context, sessionID, role, preparation, question string) (*coach.Result, error)
	ExploreCareer(ctx context.Context, sessionID, role, question string) (*coach.Result, error)
	ReviewResume(ctx context.Context, sessionID, filename string, data []byte) (*coach.Result, error)
	Subscribe(sessionID string) (<-chan any, func())
}

type Server struct {
	cfg      config.Config
	sessions *session.Manager
	coach    Coach
	authSvc  *auth.Service
	store    history.Store
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
	static   http.Handler
}

func New(cfg config.Config, sessions *session.Manager, c Coach, authSvc *auth.Service, store history.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		coach:    c,
		authSvc:  authSvc,
		store:    store,
		metrics:  metrics,
		static:   newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other sites cannot attach to a transcript.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/auth/register", s.handleRegister)
	r.Post("/v1/auth/login", s.handleLogin)
	r.Post("/v1/auth/logout", s.handleLogout)

	r.Post("/v1/session", s.handleCreateSession)
	r.Post("/v1/session/{id}/end", s.handleEndSession)

	r.Post("/v1/interview", s.handleInterview)
	r.Post("/v1/career", s.handleCareer)
	r.Post("/v1/resume", s.handleResume)
	r.Get("/v1/transcript", s.handleTranscript)
	r.Get("/v1/transcript/ws", s.handleTranscriptWS)
	r.Get("/v1/history", s.handleHistory)
	r.Get("/v1/about", s.handleAbout)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"auth_required": s.cfg.AuthRequired,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AuthRequired {
		respondError(w, http.StatusUnauthorized, "auth_required", "log in or register to start a session", true)
		return
	}
	// Anonymous sessions never carry a user identity. A durable identity is
	// only attached by the auth handlers after credentials are verified, so
	// an open-mode caller cannot read or write another user's history.
	sess := s.sessions.Create("", "", false)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()
	respondJSON(w, http.StatusCreated, s.createResponse(sess))
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id", false)
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error(), false)
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) createResponse(sess *session.Session) session.CreateResponse {
	return session.CreateResponse{
		SessionID:       sess.ID,
		UserID:          sess.UserID,
		Email:           sess.Email,
		Authenticated:   sess.Authenticated,
		Status:          sess.Status,
		StartedAt:       sess.StartedAt,
		LastActivityAt:  sess.LastActivityAt,
		InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
	}
}

// requireSession resolves an active session and enforces the auth gate.
func (s *Server) requireSession(sessionID string) (*session.Session, int, string) {
	sess, err := s.sessions.Get(strings.TrimSpace(sessionID))
	if err != nil || sess.Status != session.StatusActive {
		return nil, http.StatusNotFound, "session_not_found"
	}
	if s.cfg.AuthRequired && !sess.Authenticated {
		return nil, http.StatusUnauthorized, "auth_required"
	}
	return sess, 0, ""
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string, retryable bool) {
	respondJSON(w, status, errorResponse{Error: message, Code: code, Retryable: retryable})
}

// respondClassified maps a failure through the error taxonomy.
func respondClassified(w http.ResponseWriter, err error) {
	c := reliability.Classify(err)
	respondError(w, c.HTTPStatus, c.Code, err.Error(), c.Retryable)
}
