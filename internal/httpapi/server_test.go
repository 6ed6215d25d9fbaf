package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/careergurulabs/careerguru/internal/auth"
	"github.com/careergurulabs/careerguru/internal/coach"
	"github.com/careergurulabs/careerguru/internal/config"
	"github.com/careergurulabs/careerguru/internal/conversation"
	"github.com/careergurulabs/careerguru/internal/history"
	"github.com/careergurulabs/careerguru/internal/llm"
	"github.com/careergurulabs/careerguru/internal/observability"
	"github.com/careergurulabs/careerguru/internal/session"
)

type fixedClient struct{ reply string }

func (c fixedClient) Complete(_ context.Context, _ llm.Request) (llm.Response, error) {
	return llm.Response{Text: c.reply}, nil
}

var metricsSeq atomic.Int64

func newTestServer(t *testing.T, cfg config.Config) (*Server, *session.Manager, history.Store) {
	t.Helper()
	if cfg.SessionInactivityTimeout == 0 {
		cfg.SessionInactivityTimeout = 2 * time.Minute
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 1 << 20
	}
	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	metrics := observability.NewMetrics(fmt.Sprintf("test_httpapi_%d", metricsSeq.Add(1)))
	store := history.NewInMemoryStore()
	c := coach.New(sessions, fixedClient{reply: "Great, let's begin."}, store, metrics)
	authSvc := auth.NewService(auth.NewInMemoryStore())
	return New(cfg, sessions, c, authSvc, store, metrics), sessions, store
}

func postJSON(t *testing.T, url string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	body, _ := json.Marshal(payload)
	res, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	defer res.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return res, out
}

func TestRegisterLoginInterviewTranscript(t *testing.T) {
	srv, _, _ := newTestServer(t, config.Config{AuthRequired: true})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, created := postJSON(t, ts.URL+"/v1/auth/register", map[string]string{
		"email":    "gagan@example.com",
		"password": "longenoughpassword",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want %d (%v)", res.StatusCode, http.StatusCreated, created)
	}
	sessionID, _ := created["session_id"].(string)
	if sessionID == "" {
		t.Fatalf("missing session_id: %+v", created)
	}

	res, answer := postJSON(t, ts.URL+"/v1/interview", map[string]string{
		"session_id":  sessionID,
		"role":        "backend engineer",
		"preparation": "LeetCode practice",
		"question":    "Tell me about yourself",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("interview status = %d (%v)", res.StatusCode, answer)
	}
	if answer["answer"] != "Great, let's begin." {
		t.Fatalf("answer = %v", answer["answer"])
	}

	tr, err := http.Get(ts.URL + "/v1/transcript?session_id=" + sessionID + "&feature=mock_interview")
	if err != nil {
		t.Fatalf("GET transcript error = %v", err)
	}
	defer tr.Body.Close()
	var transcript struct {
		Turns []struct {
			Speaker string `json:"speaker"`
			Text    string `json:"text"`
		} `json:"turns"`
	}
	if err := json.NewDecoder(tr.Body).Decode(&transcript); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if len(transcript.Turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(transcript.Turns))
	}
	if transcript.Turns[0].Speaker != "user" || transcript.Turns[0].Text != "Tell me about yourself" {
		t.Fatalf("turn 0 = %+v", transcript.Turns[0])
	}
	if transcript.Turns[1].Speaker != "assistant" || transcript.Turns[1].Text != "Great, let's begin." {
		t.Fatalf("turn 1 = %+v", transcript.Turns[1])
	}

	// Login again with the same account.
	res, loggedIn := postJSON(t, ts.URL+"/v1/auth/login", map[string]string{
		"email":    "gagan@example.com",
		"password": "longenoughpassword",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d (%v)", res.StatusCode, loggedIn)
	}
}

func TestAuthGate(t *testing.T) {
	srv, _, _ := newTestServer(t, config.Config{AuthRequired: true})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, body := postJSON(t, ts.URL+"/v1/session", map[string]string{})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous session status = %d, want 401 (%v)", res.StatusCode, body)
	}

	open, _, _ := newTestServer(t, config.Config{AuthRequired: false})
	ts2 := httptest.NewServer(open.Router())
	defer ts2.Close()

	res, body = postJSON(t, ts2.URL+"/v1/session", map[string]string{})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("open-mode session status = %d, want 201 (%v)", res.StatusCode, body)
	}
}

func TestOpenSessionCannotClaimIdentity(t *testing.T) {
	srv, _, store := newTestServer(t, config.Config{AuthRequired: false})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx := context.Background()
	seeded := history.Exchange{
		ID:        "ex-1",
		UserID:    "user-a",
		SessionID: "old-session",
		Feature:   conversation.FeatureMockInterview,
		Question:  "What is my weakness?",
		Answer:    "Confidential advice.",
	}
	if err := store.SaveExchange(ctx, seeded); err != nil {
		t.Fatalf("SaveExchange error = %v", err)
	}

	// A caller naming an existing user id in the create payload still gets
	// an identity-less session.
	res, created := postJSON(t, ts.URL+"/v1/session", map[string]string{"user_id": "user-a"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("session status = %d (%v)", res.StatusCode, created)
	}
	if got, _ := created["user_id"].(string); got != "" {
		t.Fatalf("session user_id = %q, want empty", got)
	}
	sessionID, _ := created["session_id"].(string)

	hr, err := http.Get(ts.URL + "/v1/history?session_id=" + sessionID)
	if err != nil {
		t.Fatalf("GET history error = %v", err)
	}
	defer hr.Body.Close()
	var hist struct {
		Exchanges []history.Exchange `json:"exchanges"`
	}
	if err := json.NewDecoder(hr.Body).Decode(&hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.Exchanges) != 0 {
		t.Fatalf("anonymous session read %d foreign exchanges", len(hist.Exchanges))
	}

	// Chatting on the anonymous session must not write into user-a's record.
	res, body := postJSON(t, ts.URL+"/v1/interview", map[string]string{
		"session_id":  sessionID,
		"role":        "data analyst",
		"preparation": "SQL drills",
		"question":    "Walk me through a project",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("interview status = %d (%v)", res.StatusCode, body)
	}
	saved, err := store.Recent(ctx, "user-a", 10)
	if err != nil {
		t.Fatalf("Recent error = %v", err)
	}
	if len(saved) != 1 || saved[0].Question != "What is my weakness?" {
		t.Fatalf("user-a history changed: %+v", saved)
	}
}

func TestHistoryLimitCapped(t *testing.T) {
	srv, sessions, store := newTestServer(t, config.Config{AuthRequired: false, HistoryContextLimit: 3})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		ex := history.Exchange{
			ID:       fmt.Sprintf("ex-%d", i),
			UserID:   "user-b",
			Feature:  conversation.FeatureCareerExplorer,
			Question: fmt.Sprintf("question %d", i),
			Answer:   "answer",
		}
		if err := store.SaveExchange(ctx, ex); err != nil {
			t.Fatalf("SaveExchange error = %v", err)
		}
	}
	sess := sessions.Create("user-b", "b@example.com", true)

	hr, err := http.Get(ts.URL + "/v1/history?session_id=" + sess.ID + "&limit=100")
	if err != nil {
		t.Fatalf("GET history error = %v", err)
	}
	defer hr.Body.Close()
	var hist struct {
		Exchanges []history.Exchange `json:"exchanges"`
	}
	if err := json.NewDecoder(hr.Body).Decode(&hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.Exchanges) != 3 {
		t.Fatalf("exchanges = %d, want configured bound 3", len(hist.Exchanges))
	}
}

func TestEmptyBodyLoginRejected(t *testing.T) {
	srv, _, _ := newTestServer(t, config.Config{AuthRequired: true})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, err := http.Post(ts.URL+"/v1/auth/login", "application/json", http.NoBody)
	if err != nil {
		t.Fatalf("POST login error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != "invalid_request" {
		t.Fatalf("code = %v, want invalid_request", body["code"])
	}
}

func TestInterviewMissingFieldRejected(t *testing.T) {
	srv, sessions, _ := newTestServer(t, config.Config{AuthRequired: false})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	sess := sessions.Create("", "", false)
	res, body := postJSON(t, ts.URL+"/v1/interview", map[string]string{
		"session_id":  sess.ID,
		"role":        "backend engineer",
		"preparation": "",
		"question":    "Tell me about yourself",
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (%v)", res.StatusCode, body)
	}
	if body["code"] != "missing_field" {
		t.Fatalf("code = %v, want missing_field", body["code"])
	}
}

func TestResumeTxtUploadRejected(t *testing.T) {
	srv, sessions, _ := newTestServer(t, config.Config{AuthRequired: false})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	sess := sessions.Create("", "", false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("session_id", sess.ID)
	fw, _ := mw.CreateFormFile("resume", "resume.txt")
	_, _ = fw.Write([]byte("plain text resume"))
	_ = mw.Close()

	res, err := http.Post(ts.URL+"/v1/resume", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /v1/resume error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", res.StatusCode)
	}
	var body map[string]any
	_ = json.NewDecoder(res.Body).Decode(&body)
	if body["code"] != "unsupported_file" {
		t.Fatalf("code = %v, want unsupported_file", body["code"])
	}
}

func TestUIAndAboutRoutes(t *testing.T) {
	srv, _, _ := newTestServer(t, config.Config{AuthRequired: true})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	rootRes, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	rootRes.Body.Close()
	if rootRes.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("GET / status = %d, want %d", rootRes.StatusCode, http.StatusTemporaryRedirect)
	}
	if loc := rootRes.Header.Get("Location"); loc != "/ui/" {
		t.Fatalf("GET / location = %q, want /ui/", loc)
	}

	aboutRes, err := http.Get(ts.URL + "/v1/about")
	if err != nil {
		t.Fatalf("GET /v1/about error = %v", err)
	}
	defer aboutRes.Body.Close()
	var about map[string]any
	if err := json.NewDecoder(aboutRes.Body).Decode(&about); err != nil {
		t.Fatalf("decode about: %v", err)
	}
	if about["name"] != "Career Guru" {
		t.Fatalf("about name = %v", about["name"])
	}
}
