package conversation

import (
	"sync"
	"time"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Feature identifies which tab of the app a log belongs to.
type Feature string

const (
	FeatureMockInterview  Feature = "mock_interview"
	FeatureCareerExplorer Feature = "career_explorer"
	FeatureResumeFeedback Feature = "resume_feedback"
)

// Valid reports whether f is one of the known features.
func (f Feature) Valid() bool {
	switch f {
	case FeatureMockInterview, FeatureCareerExplorer, FeatureResumeFeedback:
		return true
	}
	return false
}

// Turn is one entry of a transcript.
type Turn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Log is an append-only, order-preserving transcript for one feature of one
// session. Turns are never edited, sorted or compacted; display order equals
// insertion order.
type Log struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewLog() *Log {
	return &Log{}
}

// AppendExchange records a completed question/answer pair as two turns, user
// first, and returns them. Callers must only invoke this after the assistant
// reply is known, so a failed completion never leaves a dangling user turn.
func (l *Log) AppendExchange(question, answer string) []Turn {
	now := time.Now().UTC()
	pair := []Turn{
		{Speaker: SpeakerUser, Text: question, At: now},
		{Speaker: SpeakerAssistant, Text: answer, At: now},
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, pair...)
	return pair
}

// Turns returns a snapshot of the transcript in insertion order.
func (l *Log) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Len returns the number of recorded turns.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}
