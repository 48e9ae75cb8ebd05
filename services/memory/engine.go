// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zhyyuka/xingling-chat/services/llm"
	"github.com/zhyyuka/xingling-chat/services/orchestrator/datatypes"
	"github.com/zhyyuka/xingling-chat/services/orchestrator/observability"
)

var engineTracer = otel.Tracer("xingling.memory.engine")

// FallbackReply is the assistant turn substituted when the completion
// service fails during a single-shot exchange. Single-shot exchanges
// always produce some assistant turn and always persist; streaming
// exchanges persist nothing on failure. That asymmetry is deliberate.
const FallbackReply = "（抱歉，我现在无法回答，请稍后再试。）"

// summaryFailureMarker replaces the summary text when summary generation
// fails. Summarization failure never blocks persisting the exchange.
const summaryFailureMarker = "（摘要生成失败）"

const (
	chatTemperature = 0.7
	chatMaxTokens   = 2000

	summaryTemperature = 0.3
	summaryMaxTokens   = 300

	summarySystemPrompt = "你是一个善于总结的助手。"
	summaryInstruction  = "请总结以下对话内容，用简洁的语言概括主要话题和关键信息：\n\n"
)

// Defaults are the process-wide completion settings, constructed once at
// startup and overridden per request.
type Defaults struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
}

// ExchangeRequest describes one exchange. Empty override fields fall back
// to the engine defaults.
type ExchangeRequest struct {
	SessionID string
	Message   string

	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string

	Search datatypes.SearchOptions
}

// EmitFunc consumes streaming frames in order. Emission is the suspension
// point: the engine does not request the next upstream chunk until the
// previous frame has been delivered, so downstream backpressure delays
// frames but never drops them. Returning an error stops the exchange.
type EmitFunc func(frame datatypes.StreamFrame) error

// Engine drives exchanges end to end: context assembly, optional search
// augmentation, the completion call, and reconciliation of the result
// into the session store.
type Engine struct {
	store     *FileStore
	searcher  *WebSearcher
	newClient llm.Factory
	defaults  Defaults
}

// NewEngine wires an engine from its collaborators.
func NewEngine(store *FileStore, searcher *WebSearcher, factory llm.Factory, defaults Defaults) *Engine {
	return &Engine{
		store:     store,
		searcher:  searcher,
		newClient: factory,
		defaults:  defaults,
	}
}

// Store exposes the underlying session store.
func (e *Engine) Store() *FileStore { return e.store }

func (e *Engine) resolve(req ExchangeRequest) (llm.Options, string) {
	opts := llm.Options{
		APIKey:  req.APIKey,
		BaseURL: req.BaseURL,
		Model:   req.Model,
	}
	if opts.APIKey == "" {
		opts.APIKey = e.defaults.APIKey
	}
	if opts.BaseURL == "" {
		opts.BaseURL = e.defaults.BaseURL
	}
	if opts.Model == "" {
		opts.Model = e.defaults.Model
	}
	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = e.defaults.SystemPrompt
	}
	return opts, systemPrompt
}

// prepare loads session state and assembles the prompt context. It is
// shared by both exchange modes. Storage errors propagate.
func (e *Engine) prepare(ctx context.Context, req ExchangeRequest) ([]datatypes.Message, []datatypes.Message, error) {
	history, err := e.store.History(req.SessionID)
	if err != nil {
		return nil, nil, err
	}
	summary, err := e.store.Summary(req.SessionID)
	if err != nil {
		return nil, nil, err
	}

	searchText := ""
	if req.Search.Enabled {
		searchText = e.searcher.Search(ctx, req.Message, req.Search.Provider, req.Search.APIKey, req.Search.ResultCount)
	}

	_, systemPrompt := e.resolve(req)
	messages := BuildContext(history, summary, searchText, req.Message, systemPrompt)
	return messages, history, nil
}

// Exchange runs a single-shot exchange and returns the assistant reply.
//
// Completion failures are absorbed: the fixed fallback reply becomes the
// assistant turn and the exchange persists exactly as if it were real.
// Only storage errors surface to the caller.
func (e *Engine) Exchange(ctx context.Context, req ExchangeRequest) (string, error) {
	ctx, span := engineTracer.Start(ctx, "Engine.Exchange")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", req.SessionID))

	release, err := e.store.Acquire(ctx, req.SessionID)
	if err != nil {
		return "", err
	}
	defer release()

	messages, history, err := e.prepare(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	opts, _ := e.resolve(req)
	client := e.newClient(opts)

	params := llm.GenerationParams{
		Temperature: llm.Float32Ptr(chatTemperature),
		MaxTokens:   llm.IntPtr(chatMaxTokens),
	}
	reply, err := client.Chat(ctx, messages, params)
	if err != nil {
		span.RecordError(err)
		slog.Error("Completion call failed, substituting fallback reply",
			"sessionId", req.SessionID, "error", err)
		reply = FallbackReply
	}

	history = append(history, datatypes.UserMessage(req.Message), datatypes.AssistantMessage(reply))
	if err := e.finalize(ctx, client, req.SessionID, history); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return reply, nil
}

// ExchangeStream runs an incremental exchange, delivering frames through
// emit as they arrive from the completion service.
//
// On normal upstream exhaustion the accumulated reply is appended and
// persisted. On a mid-stream failure one terminal error frame is emitted
// and nothing is persisted; partial replies are deliberately not saved.
// If emit itself fails (the caller went away) the engine stops pulling
// from upstream and persists nothing.
func (e *Engine) ExchangeStream(ctx context.Context, req ExchangeRequest, emit EmitFunc) error {
	ctx, span := engineTracer.Start(ctx, "Engine.ExchangeStream")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", req.SessionID))

	release, err := e.store.Acquire(ctx, req.SessionID)
	if err != nil {
		return err
	}
	defer release()

	messages, history, err := e.prepare(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		emitErrorFrame(emit, err)
		return err
	}

	opts, _ := e.resolve(req)
	client := e.newClient(opts)

	params := llm.GenerationParams{
		Temperature: llm.Float32Ptr(chatTemperature),
		MaxTokens:   llm.IntPtr(chatMaxTokens),
	}

	var full strings.Builder
	streamErr := client.ChatStream(ctx, messages, params, func(event llm.StreamEvent) error {
		switch event.Type {
		case llm.StreamEventThinking:
			return emit(datatypes.ReasoningFrame(event.Content))
		case llm.StreamEventToken:
			full.WriteString(event.Content)
			return emit(datatypes.ContentFrame(event.Content))
		case llm.StreamEventError:
			return fmt.Errorf("completion backend error: %s", event.Content)
		default:
			return nil
		}
	})
	if streamErr != nil {
		span.RecordError(streamErr)
		span.SetStatus(codes.Error, streamErr.Error())
		slog.Error("Streaming exchange aborted, nothing persisted",
			"sessionId", req.SessionID, "error", streamErr)
		emitErrorFrame(emit, streamErr)
		return streamErr
	}

	history = append(history, datatypes.UserMessage(req.Message), datatypes.AssistantMessage(full.String()))
	if err := e.finalize(ctx, client, req.SessionID, history); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		emitErrorFrame(emit, err)
		return err
	}
	return nil
}

// ClearSession removes both artifacts for a session, idempotently.
func (e *Engine) ClearSession(ctx context.Context, sessionID string) error {
	release, err := e.store.Acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()
	return e.store.Clear(sessionID)
}

// emitErrorFrame delivers a terminal error frame, best effort. If the
// caller is already gone the write fails and there is nothing left to do.
func emitErrorFrame(emit EmitFunc, cause error) {
	if err := emit(datatypes.ErrorFrame(cause.Error())); err != nil {
		slog.Debug("Could not deliver error frame", "error", err)
	}
}

// finalize runs the summarization trigger and persists history. Called
// only after a successful append; history arrives with the new pair
// already at the tail.
//
// When persisted history would reach the window threshold, everything but
// the two most recent turns is compacted into a fresh summary and history
// truncates to those two turns. The compaction is lossy and one-way.
func (e *Engine) finalize(ctx context.Context, client llm.LLMClient, sessionID string, history []datatypes.Message) error {
	if len(history) >= historyWindow {
		summaryText := e.summarize(ctx, client, history[:len(history)-2])
		if m := observability.DefaultMetrics; m != nil {
			m.RecordSummarization(summaryText != summaryFailureMarker)
		}
		if err := e.store.SaveSummary(sessionID, summaryText); err != nil {
			return err
		}
		history = history[len(history)-2:]
		slog.Info("Compacted session history into summary",
			"sessionId", sessionID, "keptTurns", len(history))
	}
	return e.store.SaveHistory(sessionID, history)
}

// summarize asks the completion service for a concise summary of the
// given turns. Failures degrade to the fixed marker string.
func (e *Engine) summarize(ctx context.Context, client llm.LLMClient, turns []datatypes.Message) string {
	if len(turns) == 0 {
		return ""
	}

	var prompt strings.Builder
	prompt.WriteString(summaryInstruction)
	for _, turn := range turns {
		role := "助手"
		if turn.Role == datatypes.RoleUser {
			role = "用户"
		}
		prompt.WriteString(role)
		prompt.WriteString(": ")
		prompt.WriteString(turn.Content)
		prompt.WriteString("\n")
	}

	params := llm.GenerationParams{
		Temperature: llm.Float32Ptr(summaryTemperature),
		MaxTokens:   llm.IntPtr(summaryMaxTokens),
	}
	messages := []datatypes.Message{
		datatypes.SystemMessage(summarySystemPrompt),
		datatypes.UserMessage(prompt.String()),
	}

	summary, err := client.Chat(ctx, messages, params)
	if err != nil {
		slog.Error("Summary generation failed, using marker", "error", err)
		return summaryFailureMarker
	}
	return summary
}
