// Package coach drives the three assistant features. Every user action is a
// flat sequence: validate fields, compose the prompt, call the completion
// service once, append the exchange to the session transcript, persist it.
// Nothing is retried and no partial turn is ever recorded.
package coach

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/careergurulabs/careerguru/internal/conversation"
	"github.com/careergurulabs/careerguru/internal/extract"
	"github.com/careergurulabs/careerguru/internal/history"
	"github.com/careergurulabs/careerguru/internal/llm"
	"github.com/careergurulabs/careerguru/internal/observability"
	"github.com/careergurulabs/careerguru/internal/prompt"
	"github.com/careergurulabs/careerguru/internal/protocol"
	"github.com/careergurulabs/careerguru/internal/session"
)

// Result is one completed exchange.
type Result struct {
	Feature  conversation.Feature `json:"feature"`
	Question string               `json:"question"`
	Answer   string               `json:"answer"`
}

type Coach struct {
	sessions *session.Manager
	client   llm.Client
	store    history.Store
	metrics  *observability.Metrics

	mu          sync.Mutex
	subscribers map[string]map[int]chan any
	nextSubID   int
}

func New(sessions *session.Manager, client llm.Client, store history.Store, metrics *observability.Metrics) *Coach {
	return &Coach{
		sessions:    sessions,
		client:      client,
		store:       store,
		metrics:     metrics,
		subscribers: make(map[string]map[int]chan any),
	}
}

// MockInterview runs one mock-interview turn.
func (c *Coach) MockInterview(ctx context.Context, sessionID, role, preparation, question string) (*Result, error) {
	fields := map[string]string{
		prompt.FieldRole:        role,
		prompt.FieldPreparation: preparation,
		prompt.FieldQuestion:    question,
	}
	return c.run(ctx, sessionID, conversation.FeatureMockInterview, fields, question)
}

// ExploreCareer answers one career-exploration question.
func (c *Coach) ExploreCareer(ctx context.Context, sessionID, role, question string) (*Result, error) {
	fields := map[string]string{
		prompt.FieldRole:     role,
		prompt.FieldQuestion: question,
	}
	return c.run(ctx, sessionID, conversation.FeatureCareerExplorer, fields, question)
}

// ReviewResume extracts the uploaded file's text and asks for feedback. The
// extraction happens before any completion call; an unsupported or unreadable
// file never reaches the service.
func (c *Coach) ReviewResume(ctx context.Context, sessionID, filename string, data []byte) (*Result, error) {
	kind := "unknown"
	if k, err := extract.DetectKind(filename); err == nil {
		kind = string(k)
	}

	text, err := extract.Resume(filename, data)
	if err != nil {
		c.metrics.ExtractionEvents.WithLabelValues(kind, "error").Inc()
		return nil, err
	}
	c.metrics.ExtractionEvents.WithLabelValues(kind, "ok").Inc()

	fields := map[string]string{prompt.FieldResumeText: text}
	// The transcript shows a short marker instead of the full resume text.
	return c.run(ctx, sessionID, conversation.FeatureResumeFeedback, fields, "Uploaded resume: "+filename)
}

func (c *Coach) run(ctx context.Context, sessionID string, feature conversation.Feature, fields map[string]string, question string) (*Result, error) {
	promptText, err := prompt.Compose(feature, fields)
	if err != nil {
		c.metrics.CompletionRequests.WithLabelValues(string(feature), "rejected").Inc()
		return nil, err
	}

	sess, err := c.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	transcript, err := c.sessions.Log(sessionID, feature)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := c.client.Complete(ctx, llm.Request{Prompt: promptText})
	c.metrics.ObserveCompletionLatency(time.Since(start))
	if err != nil {
		c.metrics.CompletionRequests.WithLabelValues(string(feature), "error").Inc()
		c.publish(sessionID, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      "completion_failed",
			Retryable: true,
			Detail:    err.Error(),
		})
		return nil, fmt.Errorf("completion failed: %w", err)
	}
	c.metrics.CompletionRequests.WithLabelValues(string(feature), "success").Inc()

	for _, turn := range transcript.AppendExchange(question, res.Text) {
		c.publish(sessionID, protocol.NewTurnEvent(sessionID, feature, turn))
	}

	c.persist(ctx, sess, feature, question, res.Text)

	return &Result{Feature: feature, Question: question, Answer: res.Text}, nil
}

// persist appends the exchange to the user's durable history. Failures do not
// fail the chat turn; the transcript the user sees lives in memory.
func (c *Coach) persist(ctx context.Context, sess *session.Session, feature conversation.Feature, question, answer string) {
	if c.store == nil || sess.UserID == "" {
		return
	}
	err := c.store.SaveExchange(ctx, history.Exchange{
		UserID:    sess.UserID,
		SessionID: sess.ID,
		Feature:   feature,
		Question:  question,
		Answer:    answer,
	})
	if err != nil {
		c.metrics.HistoryWrites.WithLabelValues("error").Inc()
		log.Printf("history write failed for user %s: %v", sess.UserID, err)
		return
	}
	c.metrics.HistoryWrites.WithLabelValues("ok").Inc()
}

// Subscribe registers a live transcript feed for a session. The returned
// cancel must be called when the subscriber disconnects.
func (c *Coach) Subscribe(sessionID string) (<-chan any, func()) {
	ch := make(chan any, 64)

	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	subs, ok := c.subscribers[sessionID]
	if !ok {
		subs = make(map[int]chan any)
		c.subscribers[sessionID] = subs
	}
	subs[id] = ch
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if subs, ok := c.subscribers[sessionID]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(c.subscribers, sessionID)
			}
		}
	}
	return ch, cancel
}

func (c *Coach) publish(sessionID string, event any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subscribers[sessionID] {
		select {
		case ch <- event:
		default:
			// Slow feed consumers miss events rather than stall the turn.
		}
	}
}
