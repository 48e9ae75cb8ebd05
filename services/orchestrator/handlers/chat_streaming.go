// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zhyyuka/xingling-chat/services/memory"
	"github.com/zhyyuka/xingling-chat/services/orchestrator/observability"
)

// HandleChatStream serves POST /chat_stream: an incremental exchange
// delivered as SSE frames.
//
// Frames pass straight from the engine to the client; the flush after
// each frame is the backpressure point, so a slow client slows the
// upstream pull rather than losing frames. When the client disconnects
// the request context is canceled, the engine stops pulling from the
// completion service, and nothing is persisted.
func HandleChatStream(svc ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		endpoint := observability.EndpointChatStream

		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChatStream")
		defer span.End()

		if m := observability.DefaultMetrics; m != nil {
			m.StreamStarted(endpoint)
			defer m.StreamEnded(endpoint)
		}

		success := false
		defer func() {
			if m := observability.DefaultMetrics; m != nil {
				m.RecordRequest(endpoint, success)
				m.RecordStreamDuration(endpoint, time.Since(startTime), success)
			}
		}()

		req, ok := bindChatRequest(c)
		if !ok {
			span.SetStatus(codes.Error, "invalid request")
			return
		}
		span.SetAttributes(
			attribute.String("request.id", req.RequestID),
			attribute.String("session.id", req.SessionID),
		)

		if err := memory.ValidateSessionID(req.SessionID); err != nil {
			span.SetStatus(codes.Error, "invalid session id")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session_id"})
			return
		}

		SetSSEHeaders(c.Writer)
		writer, err := NewFrameWriter(c.Writer)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "SSE setup failed")
			slog.Error("Failed to create frame writer", "error", err, "requestId", req.RequestID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
			return
		}

		streamErr := svc.ExchangeStream(ctx, toExchangeRequest(req), writer.WriteFrame)
		if streamErr != nil {
			// The engine already emitted the terminal error frame; just
			// record the outcome here.
			span.RecordError(streamErr)
			span.SetStatus(codes.Error, "streaming exchange failed")
			if errors.Is(streamErr, ctx.Err()) {
				slog.Info("Client disconnected mid-stream", "requestId", req.RequestID)
			} else {
				slog.Error("Streaming exchange failed", "error", streamErr, "requestId", req.RequestID)
			}
			return
		}
		success = true
	}
}
