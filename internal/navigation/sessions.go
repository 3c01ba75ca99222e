// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package navigation

import (
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// CodeSessionNotFound is returned when ending an unknown session.
const CodeSessionNotFound = "SESSION_NOT_FOUND"

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

func newSessionID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// Sessions holds one Stack per dashboard-browsing session so that open
// dashboards never share navigation state.
type Sessions struct {
	mu     sync.RWMutex
	stacks map[ulid.ULID]*Stack
}

// NewSessions creates an empty session table.
func NewSessions() *Sessions {
	return &Sessions{stacks: make(map[ulid.ULID]*Stack)}
}

// Open starts a session with an empty stack.
func (s *Sessions) Open() ulid.ULID {
	id := newSessionID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stacks[id] = NewStack()
	return id
}

// Get returns the stack of an open session.
func (s *Sessions) Get(id ulid.ULID) (*Stack, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stack, ok := s.stacks[id]
	return stack, ok
}

// Len returns the number of open sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stacks)
}

// End clears the session's stack and forgets it. Holders of the stack see
// the clear through their subscriptions.
func (s *Sessions) End(id ulid.ULID) error {
	s.mu.Lock()
	stack, ok := s.stacks[id]
	delete(s.stacks, id)
	s.mu.Unlock()

	if !ok {
		slog.Debug("end called for unknown navigation session", "session_id", id.String())
		return oops.Code(CodeSessionNotFound).
			With("session_id", id.String()).
			Errorf("navigation session %s not found", id.String())
	}
	stack.ClearPaths()
	return nil
}
