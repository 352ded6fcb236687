package state

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	contractx "github.com/shreyvishal/beckn-deg-bot/agent/contract"
)

// Mirror is an optional durable copy of session logs. The in-memory store is
// authoritative for the process lifetime; mirror failures are logged and
// never fail a turn.
type Mirror interface {
	Save(ctx context.Context, sessionKey string, turns []contractx.Turn) error
	Load(ctx context.Context, sessionKey string) ([]contractx.Turn, error)
	Delete(ctx context.Context, sessionKey string) error
}

// MemoryStore maps session keys to Sessions. The store mutex only guards the
// map itself; each Session carries its own lock, so sessions for different
// keys never block each other. Growth is unbounded for the process lifetime
// (no eviction); durability, when wanted, comes from the mirror.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	mirror   Mirror
}

type StoreOption func(*MemoryStore)

func WithMirror(m Mirror) StoreOption {
	return func(s *MemoryStore) {
		s.mirror = m
	}
}

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	st := &MemoryStore{
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(st)
		}
	}
	return st
}

// GetOrCreate returns the session for key, creating it lazily on first
// reference. At most one Session object ever exists per key. When a mirror is
// configured, a newly created session is hydrated from it best-effort.
func (s *MemoryStore) GetOrCreate(ctx context.Context, key string) (*Session, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, contractx.ErrInvalidSession
	}

	s.mu.Lock()
	sess, ok := s.sessions[key]
	if !ok {
		sess = &Session{key: key}
		s.sessions[key] = sess
	}
	s.mu.Unlock()

	if !ok && s.mirror != nil {
		if turns, err := s.mirror.Load(ctx, key); err != nil {
			log.Warn().Err(err).Str("session", key).Msg("session mirror load failed")
		} else if len(turns) > 0 {
			sess.Lock()
			if len(sess.turns) == 0 {
				sess.AppendLocked(turns...)
			}
			sess.Unlock()
		}
	}

	return sess, nil
}

// Append adds turns to the session log, creating the session if needed.
func (s *MemoryStore) Append(ctx context.Context, key string, turns ...contractx.Turn) error {
	sess, err := s.GetOrCreate(ctx, key)
	if err != nil {
		return err
	}
	sess.Lock()
	defer sess.Unlock()
	s.CommitLocked(ctx, sess, turns...)
	return nil
}

// CommitLocked appends turns to a session whose lock the caller already
// holds, then pushes the updated log to the mirror. Mirror errors are a
// diagnostic side channel only.
func (s *MemoryStore) CommitLocked(ctx context.Context, sess *Session, turns ...contractx.Turn) {
	sess.AppendLocked(turns...)
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Save(ctx, sess.key, sess.SnapshotLocked()); err != nil {
		log.Warn().Err(err).Str("session", sess.key).Msg("session mirror save failed")
	}
}

// Snapshot returns a copy of the session log, or an empty log for a key that
// has never been referenced. Readers see either the pre- or post-append
// state, never a torn entry.
func (s *MemoryStore) Snapshot(ctx context.Context, key string) ([]contractx.Turn, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, contractx.ErrInvalidSession
	}

	s.mu.Lock()
	sess, ok := s.sessions[key]
	s.mu.Unlock()
	if !ok {
		return []contractx.Turn{}, nil
	}
	return sess.Snapshot(), nil
}
