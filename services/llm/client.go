package llm

import (
	"context"

	"github.com/zhyyuka/xingling-chat/services/orchestrator/datatypes"
)

// GenerationParams tunes a single completion call. Nil fields keep the
// backend's defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
}

// StreamEventType identifies what a streaming event carries.
type StreamEventType string

const (
	// StreamEventToken is a fragment of the final answer.
	StreamEventToken StreamEventType = "token"
	// StreamEventThinking is an intermediate reasoning fragment. Backends
	// without a reasoning channel never emit it.
	StreamEventThinking StreamEventType = "thinking"
	// StreamEventError carries an in-band failure reported by the backend.
	StreamEventError StreamEventType = "error"
)

// StreamEvent is one event produced during a streaming completion.
type StreamEvent struct {
	Type    StreamEventType
	Content string
}

// StreamCallback consumes streaming events in arrival order. Returning a
// non-nil error stops the stream; the client must not invoke the callback
// again afterwards.
type StreamCallback func(event StreamEvent) error

// LLMClient is the standard interface for a completion backend.
type LLMClient interface {
	// Chat submits the message sequence and returns the complete reply.
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)

	// ChatStream submits the message sequence and delivers the reply
	// incrementally through callback. It returns once the upstream
	// sequence is exhausted, the callback aborts, or the transport fails.
	ChatStream(ctx context.Context, messages []datatypes.Message, params GenerationParams, callback StreamCallback) error
}

// Options selects the backend endpoint and model for one client instance.
// Empty fields are invalid here; resolving overrides against process
// defaults is the caller's job.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Factory builds a client for the given options. Exchanges construct a
// fresh client per request because the API key, base URL, and model are
// all overridable per request.
type Factory func(opts Options) LLMClient

// Float32Ptr returns a pointer to v, for GenerationParams literals.
func Float32Ptr(v float32) *float32 { return &v }

// IntPtr returns a pointer to v, for GenerationParams literals.
func IntPtr(v int) *int { return &v }
