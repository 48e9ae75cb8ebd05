// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

package handlers

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/zhyyuka/xingling-chat/services/orchestrator/datatypes"
)

// FrameWriter writes streaming frames to an HTTP response in SSE wire
// format (data: {json}\n\n) and flushes after every frame, so each frame
// reaches the client before the next one is produced upstream.
//
// Safe for concurrent use; writes are serialized by a mutex.
type FrameWriter struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// NewFrameWriter wraps a ResponseWriter. The caller must set SSE headers
// first via SetSSEHeaders. Fails if the writer cannot flush.
func NewFrameWriter(w http.ResponseWriter) (*FrameWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &FrameWriter{writer: w, flusher: flusher}, nil
}

// WriteFrame writes one frame and flushes immediately.
func (w *FrameWriter) WriteFrame(frame datatypes.StreamFrame) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.writer.Write(frame.Encode()); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// SetSSEHeaders configures response headers for SSE streaming. Must be
// called before the first write.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}
