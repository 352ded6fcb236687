package state

import (
	"sync"

	contractx "github.com/shreyvishal/beckn-deg-bot/agent/contract"
)

// Session owns one conversation's append-only turn log. The embedded mutex
// serializes whole turns for the same session key: the router holds it across
// the read-reconstruct-append region so two concurrent messages for one
// session can never act on the same recovered selection.
type Session struct {
	mu    sync.Mutex
	key   string
	turns []contractx.Turn
}

func (s *Session) Key() string {
	return s.key
}

func (s *Session) Lock() {
	s.mu.Lock()
}

func (s *Session) Unlock() {
	s.mu.Unlock()
}

// SnapshotLocked copies the log. Caller must hold the session lock.
func (s *Session) SnapshotLocked() []contractx.Turn {
	out := make([]contractx.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// AppendLocked adds turns to the end of the log. Caller must hold the session
// lock. Turns are never edited or removed afterwards.
func (s *Session) AppendLocked(turns ...contractx.Turn) {
	s.turns = append(s.turns, turns...)
}

// Snapshot is the self-locking variant for callers outside a turn.
func (s *Session) Snapshot() []contractx.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.SnapshotLocked()
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// RecoverSelection walks the log backwards and returns the selection map of
// the most recent search, or nil if there is none or a later zero-result
// search cleared it. Scope is "most recent search in the session" regardless
// of domain; a new search always supersedes the previous map.
func RecoverSelection(history []contractx.Turn) *contractx.SearchSnapshot {
	for i := len(history) - 1; i >= 0; i-- {
		switch history[i].Kind {
		case contractx.PayloadSearchResult:
			return history[i].Search
		case contractx.PayloadClearSelection:
			return nil
		}
	}
	return nil
}

// RecoverSelect returns the most recent select snapshot, unless a newer
// search (or cleared search) superseded it. A fresh search restarts the
// protocol, so a stale select must not be confirmable.
func RecoverSelect(history []contractx.Turn) *contractx.SelectSnapshot {
	for i := len(history) - 1; i >= 0; i-- {
		switch history[i].Kind {
		case contractx.PayloadSelectResult:
			return history[i].Select
		case contractx.PayloadSearchResult, contractx.PayloadClearSelection:
			return nil
		}
	}
	return nil
}
