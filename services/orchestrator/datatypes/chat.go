// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

// This file contains request and response types for the chat endpoints.
// Streaming frame types live in stream.go.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	// MaxMessageContentBytes is the maximum size of a single user message.
	// Checked in bytes, not runes, to bound memory use.
	MaxMessageContentBytes = 32 * 1024

	// MaxSessionIDLength is the maximum length of a session identifier.
	MaxSessionIDLength = 128

	// MaxSearchResultCount caps how many search results a caller may request.
	MaxSearchResultCount = 10
)

// chatValidate is the shared validator instance for chat datatypes.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes enforces the byte-length cap on message content.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// SearchOptions is the per-request web-search configuration. When Enabled
// is false the other fields are ignored.
type SearchOptions struct {
	Enabled     bool   `json:"search_enabled"`
	Provider    string `json:"search_provider"`
	APIKey      string `json:"search_api_key"`
	ResultCount int    `json:"search_result_count" validate:"gte=0,lte=10"`
}

// ChatRequest is the body for POST /chat and POST /chat_stream.
//
// APIKey, BaseURL, Model and SystemPrompt are per-request overrides; an
// empty value falls back to the process-wide defaults configured at
// startup. SearchOptions fields are inlined so the wire shape matches the
// original frontend contract.
type ChatRequest struct {
	RequestID string `json:"request_id" validate:"omitempty,uuid4"`
	Timestamp int64  `json:"timestamp" validate:"gte=0"`

	SessionID string `json:"session_id" validate:"required,max=128"`
	Message   string `json:"message" validate:"required,maxbytes"`

	APIKey       string `json:"api_key"`
	BaseURL      string `json:"base_url"`
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt"`

	Search SearchOptions `json:"search,omitempty"`

	// Flat aliases kept for clients that send the search settings at the
	// top level rather than nested. EnsureDefaults folds them into Search.
	SearchEnabled     bool   `json:"search_enabled,omitempty"`
	SearchProvider    string `json:"search_provider,omitempty"`
	SearchAPIKey      string `json:"search_api_key,omitempty"`
	SearchResultCount int    `json:"search_result_count,omitempty" validate:"gte=0,lte=10"`
}

// Validate checks the request after JSON binding.
func (r *ChatRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults populates the request ID, timestamp, and search defaults,
// and folds the flat search aliases into the Search struct.
func (r *ChatRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.New().String()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
	if r.SearchEnabled {
		r.Search.Enabled = true
	}
	if r.Search.Provider == "" {
		r.Search.Provider = r.SearchProvider
	}
	if r.Search.APIKey == "" {
		r.Search.APIKey = r.SearchAPIKey
	}
	if r.Search.ResultCount == 0 {
		r.Search.ResultCount = r.SearchResultCount
	}
	if r.Search.Provider == "" {
		r.Search.Provider = "tavily"
	}
	if r.Search.ResultCount <= 0 {
		r.Search.ResultCount = 3
	}
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ClearSessionRequest is the body for POST /clear_session.
type ClearSessionRequest struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
}

// Validate checks the request after JSON binding.
func (r *ClearSessionRequest) Validate() error {
	return chatValidate.Struct(r)
}
