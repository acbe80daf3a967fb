package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-tutor/backend/internal/llmtest"
	"github.com/zhouzirui/z-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/z-tutor/backend/internal/service/tutor/tutortest"
)

func setupRouter(t *testing.T, respond llmtest.Responder) (*chi.Mux, tutortest.Fixture) {
	t.Helper()
	fixture := tutortest.New(t, respond, false)

	r := chi.NewRouter()
	New(fixture.Service).RegisterRoutes(r, nil)
	return r, fixture
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestAskReturnsRoutedReply(t *testing.T) {
	r, _ := setupRouter(t, nil)

	resp := postJSON(r, "/sessions/alice/messages", map[string]string{"text": "explain binary search trees"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var reply chat.Reply
	if err := json.Unmarshal(resp.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Category != "dsa" || reply.PersonaID != "professor-magma" {
		t.Fatalf("unexpected routing: %+v", reply)
	}
	if reply.SessionID != "alice" {
		t.Fatalf("expected session alice, got %q", reply.SessionID)
	}
}

func TestTranscriptAfterAsk(t *testing.T) {
	r, _ := setupRouter(t, nil)
	postJSON(r, "/sessions/alice/messages", map[string]string{"text": "hello there"})

	req := httptest.NewRequest(http.MethodGet, "/sessions/alice/messages", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var session chat.Session
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if len(session.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(session.Turns))
	}
	if session.Turns[0].Role != chat.RoleUser || session.Turns[1].Role != chat.RoleAssistant {
		t.Fatalf("unexpected roles: %+v", session.Turns)
	}
}

func TestTranscriptOfUnknownUserIsEmptyList(t *testing.T) {
	r, _ := setupRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/sessions/nobody/messages", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"turns":[]`) {
		t.Fatalf("expected empty turns array, got %s", resp.Body.String())
	}
}

func TestResetClearsConversation(t *testing.T) {
	r, fixture := setupRouter(t, nil)
	postJSON(r, "/sessions/alice/messages", map[string]string{"text": "explain OOP"})

	req := httptest.NewRequest(http.MethodDelete, "/sessions/alice", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}

	turns, err := fixture.Store.ReadAll(req.Context(), "alice")
	if err != nil {
		t.Fatalf("ReadAll err: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected durable history cleared, got %d turns", len(turns))
	}
}

func TestAskRejectsBadInput(t *testing.T) {
	r, fixture := setupRouter(t, nil)

	resp := postJSON(r, "/sessions/alice/messages", map[string]string{"text": "   "})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank text, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/sessions/alice/messages", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}

	if calls := fixture.Model.Calls(); len(calls) != 0 {
		t.Fatalf("expected no model calls, got %d", len(calls))
	}
}

func TestAskModelFailureIsBadGateway(t *testing.T) {
	r, _ := setupRouter(t, func([]*schema.Message) (string, error) { return "", llmtest.ErrBackendDown })

	resp := postJSON(r, "/sessions/alice/messages", map[string]string{"text": "explain OOP"})
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}

func TestClassifyEndpoint(t *testing.T) {
	r, fixture := setupRouter(t, nil)

	resp := postJSON(r, "/classify", map[string]string{"text": "combinatorics proof"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var result struct {
		Category string `json:"category"`
		Raw      string `json:"raw"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Category != "maths" {
		t.Fatalf("expected maths, got %q", result.Category)
	}

	turns, _ := fixture.Store.ReadAll(context.Background(), "alice")
	if len(turns) != 0 {
		t.Fatalf("classify must not record turns")
	}
}
