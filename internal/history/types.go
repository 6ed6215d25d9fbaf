package history

import (
	"context"
	"time"

	"github.com/careergurulabs/careerguru/internal/conversation"
)

// Exchange is one persisted question/answer pair, keyed by user.
type Exchange struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	SessionID string               `json:"session_id"`
	Feature   conversation.Feature `json:"feature"`
	Question  string               `json:"question"`
	Answer    string               `json:"answer"`
	CreatedAt time.Time            `json:"created_at"`
}

// Store persists chat history. The request path only ever appends; transcripts
// shown to the user come from the in-memory session log, not from here.
type Store interface {
	SaveExchange(ctx context.Context, ex Exchange) error
	Recent(ctx context.Context, userID string, limit int) ([]Exchange, error)
	Close() error
}
