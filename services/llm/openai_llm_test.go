package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhyyuka/xingling-chat/services/orchestrator/datatypes"
)

// completionServer fakes an OpenAI-compatible chat completion endpoint.
func completionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestChat_ReturnsFirstChoice(t *testing.T) {
	var captured map[string]any
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "cmpl-1",
			"object": "chat.completion",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "你好！"},
				"finish_reason": "stop"
			}]
		}`)
	})

	client := NewClient(Options{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"})
	reply, err := client.Chat(context.Background(), []datatypes.Message{
		datatypes.SystemMessage("提示"),
		datatypes.UserMessage("hi"),
	}, GenerationParams{Temperature: Float32Ptr(0.7), MaxTokens: IntPtr(2000)})

	require.NoError(t, err)
	assert.Equal(t, "你好！", reply)

	assert.Equal(t, "test-model", captured["model"])
	assert.InEpsilon(t, 0.7, captured["temperature"].(float64), 1e-6)
	assert.Equal(t, float64(2000), captured["max_tokens"])
	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	first := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
}

func TestChat_NoChoicesIsAnError(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "cmpl-1", "object": "chat.completion", "choices": []}`)
	})

	client := NewClient(Options{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"})
	_, err := client.Chat(context.Background(), []datatypes.Message{datatypes.UserMessage("hi")}, GenerationParams{})
	assert.Error(t, err)
}

func TestChat_HTTPErrorPropagates(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "invalid api key", "type": "auth_error"}}`)
	})

	client := NewClient(Options{APIKey: "bad-key", BaseURL: server.URL, Model: "test-model"})
	_, err := client.Chat(context.Background(), []datatypes.Message{datatypes.UserMessage("hi")}, GenerationParams{})
	assert.Error(t, err)
}

func streamChunk(content, reasoning string) string {
	type delta struct {
		Content          string `json:"content,omitempty"`
		ReasoningContent string `json:"reasoning_content,omitempty"`
	}
	payload := map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion.chunk",
		"choices": []map[string]any{{"index": 0, "delta": delta{Content: content, ReasoningContent: reasoning}}},
	}
	data, _ := json.Marshal(payload)
	return fmt.Sprintf("data: %s\n\n", data)
}

func TestChatStream_DeliversEventsInOrder(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range []string{
			streamChunk("", "思考中"),
			streamChunk("你", ""),
			streamChunk("好", ""),
			"data: [DONE]\n\n",
		} {
			fmt.Fprint(w, frame)
			flusher.Flush()
		}
	})

	client := NewClient(Options{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"})

	var events []StreamEvent
	err := client.ChatStream(context.Background(),
		[]datatypes.Message{datatypes.UserMessage("hi")},
		GenerationParams{},
		func(event StreamEvent) error {
			events = append(events, event)
			return nil
		})
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, StreamEvent{Type: StreamEventThinking, Content: "思考中"}, events[0])
	assert.Equal(t, StreamEvent{Type: StreamEventToken, Content: "你"}, events[1])
	assert.Equal(t, StreamEvent{Type: StreamEventToken, Content: "好"}, events[2])
}

func TestChatStream_CallbackErrorStopsStream(t *testing.T) {
	served := 0
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 5; i++ {
			fmt.Fprint(w, streamChunk("x", ""))
			flusher.Flush()
			served++
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	client := NewClient(Options{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"})

	calls := 0
	err := client.ChatStream(context.Background(),
		[]datatypes.Message{datatypes.UserMessage("hi")},
		GenerationParams{},
		func(StreamEvent) error {
			calls++
			return fmt.Errorf("stop")
		})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestNewOpenAIClient_TrimsTrailingSlash(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}]
		}`)
	})

	client := NewClient(Options{APIKey: "k", BaseURL: server.URL + "/", Model: "m"})
	reply, err := client.Chat(context.Background(), []datatypes.Message{datatypes.UserMessage("hi")}, GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
}
