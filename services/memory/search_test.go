// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

package memory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSearcher(tavilyURL, serperURL string) *WebSearcher {
	return &WebSearcher{
		httpClient: &http.Client{Timeout: time.Second},
		tavilyURL:  tavilyURL,
		serperURL:  serperURL,
	}
}

func TestSearch_MissingKey(t *testing.T) {
	searcher := newTestSearcher("http://invalid", "http://invalid")
	got := searcher.Search(context.Background(), "query", ProviderTavily, "", 3)
	assert.Equal(t, "（未提供搜索 API 密钥）", got)
}

func TestSearch_UnsupportedProvider(t *testing.T) {
	searcher := newTestSearcher("http://invalid", "http://invalid")
	got := searcher.Search(context.Background(), "query", "bing", "key", 3)
	assert.Equal(t, "（不支持的搜索服务商）", got)
}

func TestSearch_TavilySuccess(t *testing.T) {
	var captured tavilyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "北京天气", "content": "晴，25 度"},
				{"title": "", "content": "明天有雨"},
			},
		})
	}))
	defer server.Close()

	searcher := newTestSearcher(server.URL, "http://invalid")
	got := searcher.Search(context.Background(), "北京天气", ProviderTavily, "tv-key", 2)

	assert.Equal(t, "以下是联网搜索到的信息：\n北京天气: 晴，25 度\n\n无标题: 明天有雨", got)
	assert.Equal(t, "tv-key", captured.APIKey)
	assert.Equal(t, "北京天气", captured.Query)
	assert.Equal(t, 2, captured.MaxResults)
	assert.Equal(t, "basic", captured.SearchDepth)
}

func TestSearch_SerperSuccess(t *testing.T) {
	var capturedKey string
	var captured serperRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedKey = r.Header.Get("X-API-KEY")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"organic": []map[string]string{
				{"title": "Go 语言", "snippet": "静态类型编译语言"},
			},
		})
	}))
	defer server.Close()

	searcher := newTestSearcher("http://invalid", server.URL)
	got := searcher.Search(context.Background(), "golang", ProviderGoogleSerper, "sp-key", 5)

	assert.Equal(t, "以下是联网搜索到的信息：\nGo 语言: 静态类型编译语言", got)
	assert.Equal(t, "sp-key", capturedKey)
	assert.Equal(t, "golang", captured.Query)
	assert.Equal(t, 5, captured.Num)
}

func TestSearch_EmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	defer server.Close()

	searcher := newTestSearcher(server.URL, "http://invalid")
	got := searcher.Search(context.Background(), "nothing", ProviderTavily, "key", 3)
	assert.Equal(t, "（未搜索到相关信息）", got)
}

func TestSearch_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	searcher := newTestSearcher(server.URL, "http://invalid")
	got := searcher.Search(context.Background(), "query", ProviderTavily, "bad-key", 3)
	assert.Equal(t, "（搜索失败：HTTP 401）", got)
}

func TestSearch_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	searcher := newTestSearcher(server.URL, "http://invalid")
	got := searcher.Search(context.Background(), "query", ProviderTavily, "key", 3)
	assert.Contains(t, got, "（搜索出错：")
}

func TestSearch_SetsJSONContentType(t *testing.T) {
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	defer server.Close()

	searcher := newTestSearcher(server.URL, "http://invalid")
	searcher.Search(context.Background(), "query", ProviderTavily, "key", 3)
	assert.Equal(t, "application/json", contentType)
}
