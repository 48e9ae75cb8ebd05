// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zhyyuka/xingling-chat/services/memory"
	"github.com/zhyyuka/xingling-chat/services/orchestrator/datatypes"
	"github.com/zhyyuka/xingling-chat/services/orchestrator/observability"
)

// HandleClearSession serves POST /clear_session. Clearing removes both
// session artifacts together; clearing an unknown session succeeds.
func HandleClearSession(svc ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ClearSessionRequest
		if err := c.BindJSON(&req); err != nil {
			slog.Error("Failed to parse clear_session request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			recordRequest(observability.EndpointClear, false)
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: validation failed"})
			recordRequest(observability.EndpointClear, false)
			return
		}

		slog.Info("Clearing session memory", "sessionId", req.SessionID)
		if err := svc.ClearSession(c.Request.Context(), req.SessionID); err != nil {
			recordRequest(observability.EndpointClear, false)
			if errors.Is(err, memory.ErrInvalidSessionID) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session_id"})
				return
			}
			slog.Error("Failed to clear session", "sessionId", req.SessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear session"})
			return
		}

		recordRequest(observability.EndpointClear, true)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
