// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

package memory

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Acquire takes the per-session exclusion lock, blocking until the lock
// is free or ctx is done. Two concurrent exchanges for the same session
// id would otherwise read the same history snapshot and race their
// writes; holding this lock across the read-modify-write span of an
// exchange closes that gap. Sessions with different ids never contend.
//
// The returned release function must be called exactly once.
func (s *FileStore) Acquire(ctx context.Context, sessionID string) (func(), error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	sem, ok := s.locks[sessionID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		s.locks[sessionID] = sem
	}
	s.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}
