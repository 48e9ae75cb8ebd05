// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

// Package memory implements per-session chat memory: the durable session
// store, the prompt context assembler, the web-search augmentor, and the
// exchange engine that drives the completion service and reconciles its
// output back into the store.
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/zhyyuka/xingling-chat/services/orchestrator/datatypes"
)

// ErrInvalidSessionID is returned for session identifiers that fail the
// allow-list check. IDs are used verbatim as filename components, so
// anything that could traverse or escape the data directory is rejected
// outright rather than escaped.
var ErrInvalidSessionID = errors.New("invalid session id")

// sessionIDPattern is the session-id allow-list: 1-128 characters from
// [A-Za-z0-9._-], not starting with a dot or dash. This keeps IDs safe as
// filename components on every platform we care about.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._-]{0,127}$`)

// FileStore persists two artifacts per session under one data directory:
// an ordered JSON turn history (history_<id>.json) and a plain-text
// rolling summary (summary_<id>.txt). A missing artifact always reads as
// empty; the pair is only ever deleted together.
//
// Writes go through a temp file and rename, so a concurrent reader never
// observes a partially written artifact. Cross-request serialization per
// session id is provided by Acquire.
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

// NewFileStore creates the data directory if needed and returns a store
// rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session data dir: %w", err)
	}
	return &FileStore{
		dir:   dir,
		locks: make(map[string]*semaphore.Weighted),
	}, nil
}

// Dir returns the session data directory.
func (s *FileStore) Dir() string { return s.dir }

// ValidateSessionID checks an id against the allow-list.
func ValidateSessionID(sessionID string) error {
	if !sessionIDPattern.MatchString(sessionID) {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}
	return nil
}

func (s *FileStore) historyPath(sessionID string) string {
	return filepath.Join(s.dir, "history_"+sessionID+".json")
}

func (s *FileStore) summaryPath(sessionID string) string {
	return filepath.Join(s.dir, "summary_"+sessionID+".txt")
}

// History loads the ordered turn history for a session. A session never
// seen before yields an empty history, not an error.
func (s *FileStore) History(sessionID string) ([]datatypes.Message, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.historyPath(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var history []datatypes.Message
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return history, nil
}

// Summary loads the rolling summary for a session. Empty means no summary
// has been generated yet.
func (s *FileStore) Summary(sessionID string) (string, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.summaryPath(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read summary: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveHistory atomically replaces the persisted history.
func (s *FileStore) SaveHistory(sessionID string, history []datatypes.Message) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	if history == nil {
		history = []datatypes.Message{}
	}
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	return s.writeAtomic(s.historyPath(sessionID), data)
}

// SaveSummary atomically replaces the persisted summary. The prior
// summary is not preserved once superseded.
func (s *FileStore) SaveSummary(sessionID, summary string) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	return s.writeAtomic(s.summaryPath(sessionID), []byte(summary))
}

// Clear removes both artifacts for a session. Clearing a session that
// does not exist is not an error, so Clear is idempotent.
func (s *FileStore) Clear(sessionID string) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	for _, path := range []string{s.historyPath(sessionID), s.summaryPath(sessionID)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove session artifact: %w", err)
		}
	}
	return nil
}

// writeAtomic writes data through a temp file in the same directory and
// renames it over the destination. The temp file is removed on every
// failure path.
func (s *FileStore) writeAtomic(path string, data []byte) error {
	tempFile, err := os.CreateTemp(s.dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rename artifact: %w", err)
	}

	success = true
	return nil
}
