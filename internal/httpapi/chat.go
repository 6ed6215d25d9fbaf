package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/careergurulabs/careerguru/internal/conversation"
)

type interviewRequest struct {
	SessionID   string `json:"session_id"`
	Role        string `json:"role"`
	Preparation string `json:"preparation"`
	Question    string `json:"question"`
}

type careerRequest struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Question  string `json:"question"`
}

func (s *Server) handleInterview(w http.ResponseWriter, r *http.Request) {
	var req interviewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error(), false)
		return
	}
	if _, status, code := s.requireSession(req.SessionID); status != 0 {
		respondError(w, status, code, "session rejected", false)
		return
	}

	res, err := s.coach.MockInterview(r.Context(), req.SessionID, req.Role, req.Preparation, req.Question)
	if err != nil {
		respondClassified(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleCareer(w http.ResponseWriter, r *http.Request) {
	var req careerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error(), false)
		return
	}
	if _, status, code := s.requireSession(req.SessionID); status != 0 {
		respondError(w, status, code, "session rejected", false)
		return
	}

	res, err := s.coach.ExploreCareer(r.Context(), req.SessionID, req.Role, req.Question)
	if err != nil {
		respondClassified(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "upload_too_large", err.Error(), true)
		return
	}

	sessionID := r.FormValue("session_id")
	if _, status, code := s.requireSession(sessionID); status != 0 {
		respondError(w, status, code, "session rejected", false)
		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "form file \"resume\" is required", false)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error(), false)
		return
	}

	res, err := s.coach.ReviewResume(r.Context(), sessionID, header.Filename, data)
	if err != nil {
		respondClassified(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type transcriptResponse struct {
	SessionID string               `json:"session_id"`
	Feature   conversation.Feature `json:"feature"`
	Turns     []conversation.Turn  `json:"turns"`
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	feature := conversation.Feature(strings.TrimSpace(r.URL.Query().Get("feature")))
	if sessionID == "" || !feature.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_request", "session_id and a valid feature are required", false)
		return
	}
	if _, status, code := s.requireSession(sessionID); status != 0 {
		respondError(w, status, code, "session rejected", false)
		return
	}

	transcript, err := s.sessions.Log(sessionID, feature)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error(), false)
		return
	}
	respondJSON(w, http.StatusOK, transcriptResponse{
		SessionID: sessionID,
		Feature:   feature,
		Turns:     transcript.Turns(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	sess, status, code := s.requireSession(sessionID)
	if status != 0 {
		respondError(w, status, code, "session rejected", false)
		return
	}

	maxLimit := s.cfg.HistoryContextLimit
	if maxLimit <= 0 {
		maxLimit = 20
	}
	limit := maxLimit
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer", false)
			return
		}
		// Clients may ask for fewer exchanges than the configured
		// bound, never more.
		if n < limit {
			limit = n
		}
	}

	if sess.UserID == "" {
		respondJSON(w, http.StatusOK, map[string]any{"exchanges": []any{}})
		return
	}
	exchanges, err := s.store.Recent(r.Context(), sess.UserID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history_unavailable", err.Error(), true)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"exchanges": exchanges})
}

func (s *Server) handleAbout(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"name":        "Career Guru",
		"description": "AI-powered career assistant: mock interviews, career exploration and resume feedback.",
		"features": []string{
			string(conversation.FeatureMockInterview),
			string(conversation.FeatureCareerExplorer),
			string(conversation.FeatureResumeFeedback),
		},
		"model": s.cfg.GroqModel,
	})
}
