// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

package handlers

import (
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zhyyuka/xingling-chat/services/extract"
	"github.com/zhyyuka/xingling-chat/services/memory"
	"github.com/zhyyuka/xingling-chat/services/orchestrator/observability"
)

// MaxUploadBytes caps the accepted upload size.
const MaxUploadBytes = 20 * 1024 * 1024

// HandleUploadChat serves POST /upload_chat: a multipart upload whose
// extracted text is wrapped into a user message and run as a streaming
// exchange. Overrides arrive as form fields alongside the file.
//
// The uploaded bytes live in a temp file only as long as extraction
// needs them; the temp file is removed on every exit path.
func HandleUploadChat(svc ChatService, extractor extract.Extractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		endpoint := observability.EndpointUploadChat

		ctx, span := chatTracer.Start(c.Request.Context(), "HandleUploadChat")
		defer span.End()

		success := false
		defer func() {
			if m := observability.DefaultMetrics; m != nil {
				m.RecordRequest(endpoint, success)
				m.RecordStreamDuration(endpoint, time.Since(startTime), success)
			}
		}()

		sessionID := c.PostForm("session_id")
		if err := memory.ValidateSessionID(sessionID); err != nil {
			span.SetStatus(codes.Error, "invalid session id")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session_id"})
			return
		}
		span.SetAttributes(attribute.String("session.id", sessionID))

		fileHeader, err := c.FormFile("file")
		if err != nil {
			span.SetStatus(codes.Error, "missing file")
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
			return
		}
		if fileHeader.Size > MaxUploadBytes {
			span.SetStatus(codes.Error, "file too large")
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}

		text, err := extractToText(fileHeader, extractor)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "extraction failed")
			slog.Error("File text extraction failed", "file", fileHeader.Filename, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to extract file text"})
			return
		}

		req := memory.ExchangeRequest{
			SessionID:    sessionID,
			Message:      memory.WrapUploadMessage(fileHeader.Filename, text),
			APIKey:       c.PostForm("api_key"),
			BaseURL:      c.PostForm("base_url"),
			Model:        c.PostForm("model"),
			SystemPrompt: c.PostForm("system_prompt"),
		}

		SetSSEHeaders(c.Writer)
		writer, err := NewFrameWriter(c.Writer)
		if err != nil {
			span.RecordError(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
			return
		}

		if streamErr := svc.ExchangeStream(ctx, req, writer.WriteFrame); streamErr != nil {
			span.RecordError(streamErr)
			span.SetStatus(codes.Error, "streaming exchange failed")
			slog.Error("Upload exchange failed", "sessionId", sessionID, "error", streamErr)
			return
		}
		success = true
	}
}

// extractToText stages the upload in a temp file and runs the extractor
// on it. The temp file is always removed before returning.
func extractToText(fileHeader *multipart.FileHeader, extractor extract.Extractor) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	// Keep the original extension so the extractor can dispatch on it.
	tempFile, err := os.CreateTemp("", "upload-*"+filepath.Ext(fileHeader.Filename))
	if err != nil {
		return "", err
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := io.Copy(tempFile, src); err != nil {
		tempFile.Close()
		return "", err
	}
	if err := tempFile.Close(); err != nil {
		return "", err
	}

	return extractor.Extract(tempPath)
}
