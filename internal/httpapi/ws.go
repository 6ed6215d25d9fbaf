package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/careergurulabs/careerguru/internal/protocol"
)

// handleTranscriptWS streams turn and error events for one session as they
// happen. Inbound traffic is limited to ping keepalives.
func (s *Server) handleTranscriptWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required", false)
		return
	}
	if _, status, code := s.requireSession(sessionID); status != 0 {
		respondError(w, status, code, "session rejected", false)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	events, cancelSub := s.coach.Subscribe(sessionID)
	defer cancelSub()

	done := make(chan struct{})

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-done:
				return
			case msg, ok := <-events:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			continue
		}
		if ctrl, ok := parsed.(protocol.ClientControl); ok && ctrl.Action == "ping" {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_ = s.sessions.Touch(sessionID)
		}
	}

	close(done)
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}
