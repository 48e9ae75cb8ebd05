// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

package datatypes

import (
	"encoding/json"
	"fmt"
)

// StreamFrameType tags one discrete streaming event.
type StreamFrameType string

const (
	// FrameReasoning carries an intermediate chain-of-thought fragment.
	// Some backends never emit it.
	FrameReasoning StreamFrameType = "reasoning"

	// FrameContent carries a fragment of the final answer.
	FrameContent StreamFrameType = "content"

	// FrameError is terminal and carries a failure description. No frames
	// follow it and nothing from the exchange is persisted.
	FrameError StreamFrameType = "error"
)

// StreamFrame is one event emitted to the caller during an incremental
// exchange. The wire encoding is a server-sent-event style text frame:
//
//	data: {"type":"content","content":"..."}\n\n
type StreamFrame struct {
	Type    StreamFrameType `json:"type"`
	Content string          `json:"content"`
}

// Encode renders the frame in SSE wire format. StreamFrame only holds
// strings, so marshaling cannot fail in practice; a marshal error is
// folded into an error frame to keep the stream well-formed.
func (f StreamFrame) Encode() []byte {
	data, err := json.Marshal(f)
	if err != nil {
		data = []byte(`{"type":"error","content":"frame encoding failed"}`)
	}
	return []byte(fmt.Sprintf("data: %s\n\n", data))
}

// ReasoningFrame builds a reasoning frame.
func ReasoningFrame(content string) StreamFrame {
	return StreamFrame{Type: FrameReasoning, Content: content}
}

// ContentFrame builds a content frame.
func ContentFrame(content string) StreamFrame {
	return StreamFrame{Type: FrameContent, Content: content}
}

// ErrorFrame builds a terminal error frame.
func ErrorFrame(message string) StreamFrame {
	return StreamFrame{Type: FrameError, Content: message}
}
