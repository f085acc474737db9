package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/RichardoC/quanta/internal/chat"
	"github.com/RichardoC/quanta/internal/llm"
	"github.com/RichardoC/quanta/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubGenerator struct {
	reply string
	err   error
}

func (s stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.reply + prompt, nil
}

func newTestServer(t *testing.T, gen Generator) (*httptest.Server, *chat.Controller) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	controller := chat.New(context.Background(), store.New(&store.MemorySlot{}), gen, chat.Options{
		Logger: logger,
		Delay:  func(string) time.Duration { return 0 },
	})
	server := httptest.NewServer(NewHandler(gen, controller, logger).Routes(t.TempDir()))
	t.Cleanup(func() {
		server.Close()
		controller.Close()
	})
	return server, controller
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleChat(t *testing.T) {
	server, _ := newTestServer(t, stubGenerator{reply: "re: "})

	resp := postJSON(t, server.URL+"/api/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var body MessageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "re: hello", body.Response)
}

func TestHandleChatValidation(t *testing.T) {
	server, _ := newTestServer(t, stubGenerator{})

	for _, body := range []string{`{}`, `{"message":""}`, `{"message":"   "}`, `not json`} {
		resp := postJSON(t, server.URL+"/api/chat", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)

		var errResp ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
		assert.Equal(t, "Message is required", errResp.Error)
	}
}

func TestOversizedBodyIsRejected(t *testing.T) {
	server, controller := newTestServer(t, stubGenerator{})
	body := `{"message":"` + strings.Repeat("a", maxBodyBytes) + `"}`

	for _, path := range []string{"/api/chat", "/api/conversation/messages"} {
		resp := postJSON(t, server.URL+path, body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode, path)

		var errResp ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
		assert.Equal(t, "Message is too long", errResp.Error)
	}
	assert.Len(t, controller.Snapshot().Messages, 1)
}

func TestHandleChatMethod(t *testing.T) {
	server, _ := newTestServer(t, stubGenerator{})

	resp, err := http.Get(server.URL + "/api/chat")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandleChatUpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"auth", &llm.UpstreamError{StatusCode: 401, Err: errors.New("bad key")}, 401, "Invalid API key. Please check your Groq API key."},
		{"rate limit", &llm.UpstreamError{StatusCode: 429, Err: errors.New("slow down")}, 429, "Rate limit exceeded. Please try again later."},
		{"upstream 500", &llm.UpstreamError{StatusCode: 503, Err: errors.New("down")}, 500, "Failed to get AI response. Please try again."},
		{"network", &llm.UpstreamError{Err: errors.New("dial tcp")}, 500, "Failed to get AI response. Please try again."},
		{"other", errors.New("boom"), 500, "Failed to get AI response. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newTestServer(t, stubGenerator{err: tt.err})

			resp := postJSON(t, server.URL+"/api/chat", `{"message":"hello"}`)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var errResp ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
			assert.Equal(t, tt.wantMsg, errResp.Error)
		})
	}
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t, stubGenerator{})

	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "OK", body.Status)
}

func getConversation(t *testing.T, url string) ConversationResponse {
	t.Helper()
	resp, err := http.Get(url + "/api/conversation")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var conv ConversationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conv))
	return conv
}

func TestConversationFlow(t *testing.T) {
	server, controller := newTestServer(t, stubGenerator{reply: "**re:** "})

	conv := getConversation(t, server.URL)
	require.Len(t, conv.Bubbles, 1)
	assert.Equal(t, "<p>"+chat.WelcomeText+"</p>", conv.Bubbles[0].HTML)
	assert.Equal(t, "idle", conv.State)

	resp := postJSON(t, server.URL+"/api/conversation/messages", `{"message":" hi "}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var submitted SubmitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitted))
	assert.Equal(t, "hi", submitted.Message)

	require.Eventually(t, func() bool {
		return len(controller.Snapshot().Messages) == 3 && controller.State() == chat.Idle
	}, 5*time.Second, 10*time.Millisecond)

	conv = getConversation(t, server.URL)
	require.Len(t, conv.Bubbles, 3)
	assert.Equal(t, "U", conv.Bubbles[1].Avatar)
	assert.Equal(t, "<p><strong>re:</strong> hi</p>", conv.Bubbles[2].HTML)
	assert.False(t, conv.Typing)

	resp = postJSON(t, server.URL+"/api/conversation/reset", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reset ConversationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reset))
	require.Len(t, reset.Bubbles, 1)
	assert.Equal(t, "<p>"+chat.NewChatText+"</p>", reset.Bubbles[0].HTML)
}

func TestSubmitMessageValidation(t *testing.T) {
	server, controller := newTestServer(t, stubGenerator{})

	resp := postJSON(t, server.URL+"/api/conversation/messages", `{"message":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Len(t, controller.Snapshot().Messages, 1)
}

func TestPreflight(t *testing.T) {
	server, _ := newTestServer(t, stubGenerator{})

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/chat", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))
}
