// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Search providers. The set is closed but extensible: adding a provider
// means adding a case to Search and its request/response mapping.
const (
	ProviderTavily       = "tavily"
	ProviderGoogleSerper = "google_serper"
)

const (
	tavilyEndpoint = "https://api.tavily.com/search"
	serperEndpoint = "https://google.serper.dev/search"

	searchTimeout = 10 * time.Second

	searchPreamble = "以下是联网搜索到的信息：\n"
)

// Degraded-result notices. Search failures are never fatal; they become
// one of these inline notices inside the prompt context.
const (
	noticeMissingKey          = "（未提供搜索 API 密钥）"
	noticeNoResults           = "（未搜索到相关信息）"
	noticeUnsupportedProvider = "（不支持的搜索服务商）"
)

// WebSearcher turns a user query into a short reference-text block from a
// configured provider. Endpoints are fields so tests can point them at a
// local server.
type WebSearcher struct {
	httpClient *http.Client
	tavilyURL  string
	serperURL  string
}

// NewWebSearcher returns a searcher with the production endpoints and the
// bounded transport timeout.
func NewWebSearcher() *WebSearcher {
	return &WebSearcher{
		httpClient: &http.Client{Timeout: searchTimeout},
		tavilyURL:  tavilyEndpoint,
		serperURL:  serperEndpoint,
	}
}

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

type serperRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search runs the query against the selected provider and returns a
// human-readable text block. Every failure mode — missing key, transport
// error, timeout, non-200 status, empty results, unknown provider —
// degrades to a bracketed notice string; Search never returns an error.
func (w *WebSearcher) Search(ctx context.Context, query, provider, apiKey string, resultCount int) string {
	if apiKey == "" {
		return noticeMissingKey
	}

	switch provider {
	case ProviderTavily:
		return w.searchTavily(ctx, query, apiKey, resultCount)
	case ProviderGoogleSerper:
		return w.searchSerper(ctx, query, apiKey, resultCount)
	default:
		slog.Warn("Unsupported search provider requested", "provider", provider)
		return noticeUnsupportedProvider
	}
}

func (w *WebSearcher) searchTavily(ctx context.Context, query, apiKey string, resultCount int) string {
	payload := tavilyRequest{
		APIKey:      apiKey,
		Query:       query,
		SearchDepth: "basic",
		MaxResults:  resultCount,
	}
	var parsed tavilyResponse
	if notice := w.postJSON(ctx, w.tavilyURL, nil, payload, &parsed); notice != "" {
		return notice
	}
	if len(parsed.Results) == 0 {
		return noticeNoResults
	}
	lines := make([]string, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		lines = append(lines, formatResult(r.Title, r.Content))
	}
	return searchPreamble + strings.Join(lines, "\n\n")
}

func (w *WebSearcher) searchSerper(ctx context.Context, query, apiKey string, resultCount int) string {
	headers := map[string]string{"X-API-KEY": apiKey}
	payload := serperRequest{Query: query, Num: resultCount}
	var parsed serperResponse
	if notice := w.postJSON(ctx, w.serperURL, headers, payload, &parsed); notice != "" {
		return notice
	}
	if len(parsed.Organic) == 0 {
		return noticeNoResults
	}
	lines := make([]string, 0, len(parsed.Organic))
	for _, item := range parsed.Organic {
		lines = append(lines, formatResult(item.Title, item.Snippet))
	}
	return searchPreamble + strings.Join(lines, "\n\n")
}

// postJSON performs the provider call and decodes the response into out.
// A non-empty return value is the degraded notice to hand back verbatim.
func (w *WebSearcher) postJSON(ctx context.Context, url string, headers map[string]string, payload, out any) string {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("（搜索出错：%v）", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Sprintf("（搜索出错：%v）", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		slog.Warn("Search provider call failed", "url", url, "error", err)
		return fmt.Sprintf("（搜索出错：%v）", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Search provider returned non-200", "url", url, "status", resp.StatusCode)
		return fmt.Sprintf("（搜索失败：HTTP %d）", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Sprintf("（搜索出错：%v）", err)
	}
	return ""
}

func formatResult(title, snippet string) string {
	if title == "" {
		title = "无标题"
	}
	return title + ": " + snippet
}
