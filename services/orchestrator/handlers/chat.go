// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

// Package handlers contains the Gin handlers for the chat API. The
// handlers are thin: they bind and validate requests, then call into the
// memory engine, which owns all conversation semantics.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zhyyuka/xingling-chat/services/memory"
	"github.com/zhyyuka/xingling-chat/services/orchestrator/datatypes"
	"github.com/zhyyuka/xingling-chat/services/orchestrator/observability"
)

var chatTracer = otel.Tracer("xingling.orchestrator.handlers")

// ChatService is the engine surface the handlers depend on.
type ChatService interface {
	Exchange(ctx context.Context, req memory.ExchangeRequest) (string, error)
	ExchangeStream(ctx context.Context, req memory.ExchangeRequest, emit memory.EmitFunc) error
	ClearSession(ctx context.Context, sessionID string) error
}

// toExchangeRequest maps the wire request onto the engine request.
func toExchangeRequest(req *datatypes.ChatRequest) memory.ExchangeRequest {
	return memory.ExchangeRequest{
		SessionID:    req.SessionID,
		Message:      req.Message,
		APIKey:       req.APIKey,
		BaseURL:      req.BaseURL,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		Search:       req.Search,
	}
}

// bindChatRequest binds and validates the request body, writing the
// error response itself on failure.
func bindChatRequest(c *gin.Context) (*datatypes.ChatRequest, bool) {
	var req datatypes.ChatRequest
	if err := c.BindJSON(&req); err != nil {
		slog.Error("Failed to parse chat request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return nil, false
	}
	req.EnsureDefaults()
	if err := req.Validate(); err != nil {
		slog.Error("Chat request validation failed", "error", err, "requestId", req.RequestID)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: validation failed"})
		return nil, false
	}
	return &req, true
}

// HandleChat serves POST /chat: one single-shot exchange.
//
// The engine absorbs completion failures into a fallback reply, so the
// only error that reaches the caller is an invalid session id or a
// storage fault.
func HandleChat(svc ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		req, ok := bindChatRequest(c)
		if !ok {
			span.SetStatus(codes.Error, "invalid request")
			recordRequest(observability.EndpointChat, false)
			return
		}
		span.SetAttributes(
			attribute.String("request.id", req.RequestID),
			attribute.String("session.id", req.SessionID),
		)

		reply, err := svc.Exchange(ctx, toExchangeRequest(req))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			recordRequest(observability.EndpointChat, false)
			if errors.Is(err, memory.ErrInvalidSessionID) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session_id"})
				return
			}
			slog.Error("Exchange failed", "error", err, "requestId", req.RequestID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "exchange failed"})
			return
		}

		recordRequest(observability.EndpointChat, true)
		c.JSON(http.StatusOK, datatypes.ChatResponse{Reply: reply})
	}
}

func recordRequest(endpoint observability.Endpoint, success bool) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(endpoint, success)
	}
}
