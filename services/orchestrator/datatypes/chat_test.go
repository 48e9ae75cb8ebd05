// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

package datatypes

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func validChatRequest() ChatRequest {
	return ChatRequest{SessionID: "s1", Message: "hello"}
}

func TestChatRequest_ValidateAccepts(t *testing.T) {
	req := validChatRequest()
	req.EnsureDefaults()
	assert.NoError(t, req.Validate())
}

func TestChatRequest_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ChatRequest)
	}{
		{"missing session id", func(r *ChatRequest) { r.SessionID = "" }},
		{"session id too long", func(r *ChatRequest) { r.SessionID = strings.Repeat("x", 129) }},
		{"missing message", func(r *ChatRequest) { r.Message = "" }},
		{"oversized message", func(r *ChatRequest) { r.Message = strings.Repeat("a", MaxMessageContentBytes+1) }},
		{"malformed request id", func(r *ChatRequest) { r.RequestID = "not-a-uuid" }},
		{"result count over cap", func(r *ChatRequest) { r.Search.ResultCount = 11 }},
		{"negative timestamp", func(r *ChatRequest) { r.Timestamp = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validChatRequest()
			tt.mutate(&req)
			assert.Error(t, req.Validate())
		})
	}
}

func TestChatRequest_MessageAtByteCapAccepted(t *testing.T) {
	req := validChatRequest()
	req.Message = strings.Repeat("a", MaxMessageContentBytes)
	assert.NoError(t, req.Validate())
}

func TestChatRequest_EnsureDefaults(t *testing.T) {
	req := validChatRequest()
	req.EnsureDefaults()

	_, err := uuid.Parse(req.RequestID)
	assert.NoError(t, err)
	assert.Positive(t, req.Timestamp)
	assert.Equal(t, "tavily", req.Search.Provider)
	assert.Equal(t, 3, req.Search.ResultCount)
	assert.False(t, req.Search.Enabled)
}

func TestChatRequest_EnsureDefaultsKeepsCallerValues(t *testing.T) {
	req := validChatRequest()
	req.RequestID = "6ba7b810-9dad-41d1-80b4-00c04fd430c8"
	req.Timestamp = 1700000000000
	req.Search = SearchOptions{Enabled: true, Provider: "google_serper", APIKey: "key", ResultCount: 5}
	req.EnsureDefaults()

	assert.Equal(t, "6ba7b810-9dad-41d1-80b4-00c04fd430c8", req.RequestID)
	assert.Equal(t, int64(1700000000000), req.Timestamp)
	assert.Equal(t, "google_serper", req.Search.Provider)
	assert.Equal(t, 5, req.Search.ResultCount)
}

func TestChatRequest_FlatAliasesFoldIntoSearch(t *testing.T) {
	req := validChatRequest()
	req.SearchEnabled = true
	req.SearchProvider = "google_serper"
	req.SearchAPIKey = "flat-key"
	req.SearchResultCount = 7
	req.EnsureDefaults()

	assert.True(t, req.Search.Enabled)
	assert.Equal(t, "google_serper", req.Search.Provider)
	assert.Equal(t, "flat-key", req.Search.APIKey)
	assert.Equal(t, 7, req.Search.ResultCount)
}

func TestChatRequest_NestedSearchWinsOverAliases(t *testing.T) {
	req := validChatRequest()
	req.Search = SearchOptions{Provider: "tavily", APIKey: "nested-key", ResultCount: 2}
	req.SearchProvider = "google_serper"
	req.SearchAPIKey = "flat-key"
	req.SearchResultCount = 9
	req.EnsureDefaults()

	assert.Equal(t, "tavily", req.Search.Provider)
	assert.Equal(t, "nested-key", req.Search.APIKey)
	assert.Equal(t, 2, req.Search.ResultCount)
}

func TestClearSessionRequest_Validate(t *testing.T) {
	req := ClearSessionRequest{SessionID: "s1"}
	assert.NoError(t, req.Validate())

	req.SessionID = ""
	assert.Error(t, req.Validate())

	req.SessionID = strings.Repeat("x", 129)
	assert.Error(t, req.Validate())
}

func TestMessageConstructors(t *testing.T) {
	assert.Equal(t, Message{Role: RoleUser, Content: "u"}, UserMessage("u"))
	assert.Equal(t, Message{Role: RoleAssistant, Content: "a"}, AssistantMessage("a"))
	assert.Equal(t, Message{Role: RoleSystem, Content: "s"}, SystemMessage("s"))
}
