package session

import (
	"sync"
	"time"

	"github.com/edgemoorlf/smootie/internal/log"
)

// Store is the process-wide session map. It is safe for concurrent use;
// requests on different session keys never block each other beyond the
// map lock, and the (user, assistant) pair for a turn is appended under a
// single lock hold so readers never observe a half-committed exchange.
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
	logger   log.Logger
}

// NewStore creates an empty store.
func NewStore(logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		sessions: make(map[string][]Turn),
		logger:   logger,
	}
}

// AppendExchange commits one finished chat turn: the user message followed
// by the assistant response, in that order, atomically. The session is
// created implicitly if this is its first reference.
func (s *Store) AppendExchange(id, userText, assistantText string, invocations []Invocation) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = append(s.sessions[id],
		Turn{Role: RoleUser, Content: userText, CreatedAt: now},
		Turn{Role: RoleAssistant, Content: assistantText, Invocations: invocations, CreatedAt: now},
	)

	s.logger.Debug("committed exchange",
		"session_id", id,
		"turns", len(s.sessions[id]),
		"invocations", len(invocations),
	)
}

// Recent returns a copy of the most recent limit turns in chronological
// order. The cap is a read-time concern only; stored history is never
// truncated. limit <= 0 returns the full history.
func (s *Store) Recent(id string, limit int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[id]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Clear empties a session's history. The session entry itself survives.
// Clearing an unknown or already-empty session is a no-op.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turns, ok := s.sessions[id]; ok && len(turns) > 0 {
		s.sessions[id] = nil
		s.logger.Debug("cleared session", "session_id", id)
	}
}

// Len reports how many turns a session holds.
func (s *Store) Len(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[id])
}
