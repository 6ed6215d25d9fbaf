package coach

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/careergurulabs/careerguru/internal/conversation"
	"github.com/careergurulabs/careerguru/internal/extract"
	"github.com/careergurulabs/careerguru/internal/history"
	"github.com/careergurulabs/careerguru/internal/llm"
	"github.com/careergurulabs/careerguru/internal/observability"
	"github.com/careergurulabs/careerguru/internal/prompt"
	"github.com/careergurulabs/careerguru/internal/session"
)

type stubClient struct {
	mu    sync.Mutex
	calls int
	reply string
	err   error
}

func (s *stubClient) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{Text: s.reply}, nil
}

func (s *stubClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var metricsSeq atomic.Int64

func newTestMetrics() *observability.Metrics {
	return observability.NewMetrics(fmt.Sprintf("test_coach_%d", metricsSeq.Add(1)))
}

func newTestCoach(client llm.Client, store history.Store) (*Coach, *session.Manager) {
	sessions := session.NewManager(time.Minute)
	return New(sessions, client, store, newTestMetrics()), sessions
}

func TestMockInterviewAppendsExchange(t *testing.T) {
	client := &stubClient{reply: "Great, let's begin."}
	store := history.NewInMemoryStore()
	c, sessions := newTestCoach(client, store)
	sess := sessions.Create("u1", "u1@example.com", true)

	res, err := c.MockInterview(context.Background(), sess.ID, "backend engineer", "LeetCode practice", "Tell me about yourself")
	if err != nil {
		t.Fatalf("MockInterview() error = %v", err)
	}
	if res.Answer != "Great, let's begin." {
		t.Fatalf("answer = %q", res.Answer)
	}

	transcript, err := sessions.Log(sess.ID, conversation.FeatureMockInterview)
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	turns := transcript.Turns()
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if turns[0].Speaker != conversation.SpeakerUser || turns[0].Text != "Tell me about yourself" {
		t.Fatalf("turn 0 = %+v", turns[0])
	}
	if turns[1].Speaker != conversation.SpeakerAssistant || turns[1].Text != "Great, let's begin." {
		t.Fatalf("turn 1 = %+v", turns[1])
	}

	// The exchange is also persisted for the signed-in user.
	saved, err := store.Recent(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(saved) != 1 || saved[0].Question != "Tell me about yourself" {
		t.Fatalf("unexpected history: %+v", saved)
	}
}

func TestEmptyFieldIssuesNoCall(t *testing.T) {
	client := &stubClient{reply: "should never be seen"}
	c, sessions := newTestCoach(client, history.NewInMemoryStore())
	sess := sessions.Create("u1", "", true)

	_, err := c.MockInterview(context.Background(), sess.ID, "backend engineer", "", "Tell me about yourself")
	var mf *prompt.MissingFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("error = %v, want *MissingFieldError", err)
	}
	if client.callCount() != 0 {
		t.Fatalf("completion calls = %d, want 0", client.callCount())
	}

	transcript, _ := sessions.Log(sess.ID, conversation.FeatureMockInterview)
	if transcript.Len() != 0 {
		t.Fatalf("log should be unchanged, len = %d", transcript.Len())
	}
}

func TestFailedCompletionLeavesLogUnchanged(t *testing.T) {
	client := &stubClient{err: errors.New("dial tcp: connection refused")}
	c, sessions := newTestCoach(client, history.NewInMemoryStore())
	sess := sessions.Create("u1", "", true)

	_, err := c.ExploreCareer(context.Background(), sess.ID, "data analyst", "What does the day to day look like?")
	if err == nil {
		t.Fatalf("expected completion error")
	}
	if client.callCount() != 1 {
		t.Fatalf("completion calls = %d, want exactly 1 (no retries)", client.callCount())
	}

	transcript, _ := sessions.Log(sess.ID, conversation.FeatureCareerExplorer)
	if transcript.Len() != 0 {
		t.Fatalf("log should be unchanged after failure, len = %d", transcript.Len())
	}
}

func TestTxtUploadNeverReachesCompletion(t *testing.T) {
	client := &stubClient{reply: "unused"}
	c, sessions := newTestCoach(client, history.NewInMemoryStore())
	sess := sessions.Create("u1", "", true)

	_, err := c.ReviewResume(context.Background(), sess.ID, "resume.txt", []byte("plain text"))
	if !errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedFormat", err)
	}
	if client.callCount() != 0 {
		t.Fatalf("completion calls = %d, want 0", client.callCount())
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	client := &stubClient{reply: "answer"}
	c, sessions := newTestCoach(client, history.NewInMemoryStore())
	a := sessions.Create("ua", "", true)
	b := sessions.Create("ub", "", true)

	var wg sync.WaitGroup
	for _, tc := range []struct{ id, question string }{
		{a.ID, "question from a"},
		{b.ID, "question from b"},
	} {
		wg.Add(1)
		go func(id, q string) {
			defer wg.Done()
			if _, err := c.ExploreCareer(context.Background(), id, "product manager", q); err != nil {
				t.Errorf("ExploreCareer(%s) error = %v", id, err)
			}
		}(tc.id, tc.question)
	}
	wg.Wait()

	logA, _ := sessions.Log(a.ID, conversation.FeatureCareerExplorer)
	logB, _ := sessions.Log(b.ID, conversation.FeatureCareerExplorer)
	turnsA, turnsB := logA.Turns(), logB.Turns()
	if len(turnsA) != 2 || len(turnsB) != 2 {
		t.Fatalf("lens = %d, %d, want 2 each", len(turnsA), len(turnsB))
	}
	if turnsA[0].Text != "question from a" {
		t.Fatalf("session a has foreign turn: %+v", turnsA[0])
	}
	if turnsB[0].Text != "question from b" {
		t.Fatalf("session b has foreign turn: %+v", turnsB[0])
	}
}

func TestAnonymousSessionSkipsHistory(t *testing.T) {
	client := &stubClient{reply: "answer"}
	store := history.NewInMemoryStore()
	c, sessions := newTestCoach(client, store)
	sess := sessions.Create("", "", false)

	if _, err := c.ExploreCareer(context.Background(), sess.ID, "pilot", "How do I start?"); err != nil {
		t.Fatalf("ExploreCareer() error = %v", err)
	}
	saved, _ := store.Recent(context.Background(), "", 10)
	if len(saved) != 0 {
		t.Fatalf("anonymous exchanges must not be persisted: %+v", saved)
	}
}

func TestSubscribeReceivesTurnEvents(t *testing.T) {
	client := &stubClient{reply: "welcome"}
	c, sessions := newTestCoach(client, history.NewInMemoryStore())
	sess := sessions.Create("u1", "", true)

	events, cancel := c.Subscribe(sess.ID)
	defer cancel()

	if _, err := c.ExploreCareer(context.Background(), sess.ID, "nurse", "Which certifications matter?"); err != nil {
		t.Fatalf("ExploreCareer() error = %v", err)
	}

	got := 0
	timeout := time.After(time.Second)
	for got < 2 {
		select {
		case <-events:
			got++
		case <-timeout:
			t.Fatalf("received %d turn events, want 2", got)
		}
	}
}
