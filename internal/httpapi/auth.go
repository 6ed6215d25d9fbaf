package httpapi

import (
	"net/http"
	"strings"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type logoutRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error(), false)
		return
	}

	u, err := s.authSvc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.metrics.AuthEvents.WithLabelValues("register", "error").Inc()
		respondClassified(w, err)
		return
	}
	s.metrics.AuthEvents.WithLabelValues("register", "ok").Inc()

	sess := s.sessions.Create(u.ID, u.Email, true)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()
	respondJSON(w, http.StatusCreated, s.createResponse(sess))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error(), false)
		return
	}

	u, err := s.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.metrics.AuthEvents.WithLabelValues("login", "error").Inc()
		respondClassified(w, err)
		return
	}
	s.metrics.AuthEvents.WithLabelValues("login", "ok").Inc()

	sess := s.sessions.Create(u.ID, u.Email, true)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()
	respondJSON(w, http.StatusOK, s.createResponse(sess))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.SessionID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "session_id is required", false)
		return
	}

	sess, err := s.sessions.End(req.SessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error(), false)
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	s.metrics.AuthEvents.WithLabelValues("logout", "ok").Inc()
	respondJSON(w, http.StatusOK, sess)
}
