package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/careergurulabs/careerguru/internal/conversation"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientControl MessageType = "client_control"
	TypeTurnEvent     MessageType = "turn_event"
	TypeErrorEvent    MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientControl is the only inbound message: ping keepalives from the UI.
type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
}

// TurnEvent announces one transcript turn as it is appended.
type TurnEvent struct {
	Type      MessageType          `json:"type"`
	SessionID string               `json:"session_id"`
	Feature   conversation.Feature `json:"feature"`
	Speaker   conversation.Speaker `json:"speaker"`
	Text      string               `json:"text"`
	At        time.Time            `json:"at"`
}

// ErrorEvent surfaces a failed user action on the live feed.
type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func NewTurnEvent(sessionID string, feature conversation.Feature, turn conversation.Turn) TurnEvent {
	return TurnEvent{
		Type:      TypeTurnEvent,
		SessionID: sessionID,
		Feature:   feature,
		Speaker:   turn.Speaker,
		Text:      turn.Text,
		At:        turn.At,
	}
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Action == "" {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
