package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	contractx "github.com/shreyvishal/beckn-deg-bot/agent/contract"
)

func textTurn(role contractx.Role, text string) contractx.Turn {
	return contractx.TextTurn(role, text, time.Now())
}

func TestMemoryStoreGetOrCreateEmptyKey(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	_, err := store.GetOrCreate(context.Background(), "   ")
	if !errors.Is(err, contractx.ErrInvalidSession) {
		t.Fatalf("GetOrCreate() error = %v, want ErrInvalidSession", err)
	}
}

func TestMemoryStoreSessionIsolation(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Append(ctx, "a", textTurn(contractx.RoleUser, "hello")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := store.Append(ctx, "b", textTurn(contractx.RoleUser, "hi"), textTurn(contractx.RoleAssistant, "hey")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	turnsA, err := store.Snapshot(ctx, "a")
	if err != nil {
		t.Fatalf("Snapshot(a) error = %v", err)
	}
	turnsB, err := store.Snapshot(ctx, "b")
	if err != nil {
		t.Fatalf("Snapshot(b) error = %v", err)
	}

	if len(turnsA) != 1 {
		t.Fatalf("len(turnsA) = %d, want 1", len(turnsA))
	}
	if len(turnsB) != 2 {
		t.Fatalf("len(turnsB) = %d, want 2", len(turnsB))
	}
	if turnsA[0].Text != "hello" {
		t.Fatalf("turnsA[0].Text = %q", turnsA[0].Text)
	}
}

func TestMemoryStoreSnapshotUnknownKey(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	turns, err := store.Snapshot(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("len(turns) = %d, want 0", len(turns))
	}
}

func TestMemoryStoreSnapshotIsCopy(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.Append(ctx, "s", textTurn(contractx.RoleUser, "original")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	turns, err := store.Snapshot(ctx, "s")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	turns[0].Text = "mutated"

	again, err := store.Snapshot(ctx, "s")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if again[0].Text != "original" {
		t.Fatalf("log mutated through snapshot copy: %q", again[0].Text)
	}
}

func TestMemoryStoreConcurrentGetOrCreateSingleInstance(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	const workers = 16
	sessions := make([]*Session, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := store.GetOrCreate(ctx, "shared")
			if err != nil {
				t.Errorf("GetOrCreate() error = %v", err)
				return
			}
			sessions[i] = sess
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if sessions[i] != sessions[0] {
			t.Fatal("GetOrCreate returned distinct Session objects for one key")
		}
	}
}

func TestMemoryStoreConcurrentAppendsKeepAllTurns(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	const writers = 8
	const perWriter = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				if err := store.Append(ctx, "busy", textTurn(contractx.RoleUser, "m")); err != nil {
					t.Errorf("Append() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	turns, err := store.Snapshot(ctx, "busy")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(turns) != writers*perWriter {
		t.Fatalf("len(turns) = %d, want %d", len(turns), writers*perWriter)
	}
}

type recordingMirror struct {
	mu     sync.Mutex
	saved  map[string][]contractx.Turn
	loaded []contractx.Turn
	fail   bool
}

func (m *recordingMirror) Save(_ context.Context, key string, turns []contractx.Turn) error {
	if m.fail {
		return errors.New("mirror down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string][]contractx.Turn)
	}
	m.saved[key] = append([]contractx.Turn(nil), turns...)
	return nil
}

func (m *recordingMirror) Load(_ context.Context, _ string) ([]contractx.Turn, error) {
	if m.fail {
		return nil, errors.New("mirror down")
	}
	return m.loaded, nil
}

func (m *recordingMirror) Delete(_ context.Context, _ string) error {
	return nil
}

func TestMemoryStoreHydratesFromMirror(t *testing.T) {
	t.Parallel()

	mirror := &recordingMirror{
		loaded: []contractx.Turn{
			textTurn(contractx.RoleUser, "earlier"),
			textTurn(contractx.RoleAssistant, "reply"),
		},
	}
	store := NewMemoryStore(WithMirror(mirror))

	sess, err := store.GetOrCreate(context.Background(), "restored")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if sess.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 hydrated turns", sess.Len())
	}
}

func TestMemoryStoreMirrorFailureDoesNotFailTurn(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(WithMirror(&recordingMirror{fail: true}))
	ctx := context.Background()

	if err := store.Append(ctx, "s", textTurn(contractx.RoleUser, "hi")); err != nil {
		t.Fatalf("Append() error = %v, want nil despite mirror failure", err)
	}
	turns, err := store.Snapshot(ctx, "s")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("len(turns) = %d, want 1", len(turns))
	}
}

func TestMemoryStoreMirrorSeesCommittedLog(t *testing.T) {
	t.Parallel()

	mirror := &recordingMirror{}
	store := NewMemoryStore(WithMirror(mirror))
	ctx := context.Background()

	if err := store.Append(ctx, "s", textTurn(contractx.RoleUser, "one"), textTurn(contractx.RoleAssistant, "two")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	if len(mirror.saved["s"]) != 2 {
		t.Fatalf("mirror saved %d turns, want 2", len(mirror.saved["s"]))
	}
}

func TestRecoverSelectionLatestSearchWins(t *testing.T) {
	t.Parallel()

	first := &contractx.SearchSnapshot{TransactionID: "txn-1"}
	second := &contractx.SearchSnapshot{TransactionID: "txn-2"}

	history := []contractx.Turn{
		textTurn(contractx.RoleUser, "find panels"),
		{Role: contractx.RoleAssistant, Kind: contractx.PayloadSearchResult, Search: first},
		textTurn(contractx.RoleUser, "find batteries"),
		{Role: contractx.RoleAssistant, Kind: contractx.PayloadSearchResult, Search: second},
	}

	got := RecoverSelection(history)
	if got == nil || got.TransactionID != "txn-2" {
		t.Fatalf("RecoverSelection() = %#v, want txn-2", got)
	}
}

func TestRecoverSelectionClearedByEmptySearch(t *testing.T) {
	t.Parallel()

	history := []contractx.Turn{
		{Role: contractx.RoleAssistant, Kind: contractx.PayloadSearchResult, Search: &contractx.SearchSnapshot{TransactionID: "txn-1"}},
		{Role: contractx.RoleAssistant, Kind: contractx.PayloadClearSelection},
	}

	if got := RecoverSelection(history); got != nil {
		t.Fatalf("RecoverSelection() = %#v, want nil after clear", got)
	}
}

func TestRecoverSelectionEmptyHistory(t *testing.T) {
	t.Parallel()

	if got := RecoverSelection(nil); got != nil {
		t.Fatalf("RecoverSelection(nil) = %#v, want nil", got)
	}
}

func TestRecoverSelectSupersededByNewSearch(t *testing.T) {
	t.Parallel()

	history := []contractx.Turn{
		{Role: contractx.RoleAssistant, Kind: contractx.PayloadSearchResult, Search: &contractx.SearchSnapshot{TransactionID: "txn-1"}},
		{Role: contractx.RoleAssistant, Kind: contractx.PayloadSelectResult, Select: &contractx.SelectSnapshot{ItemID: "item-1"}},
		{Role: contractx.RoleAssistant, Kind: contractx.PayloadSearchResult, Search: &contractx.SearchSnapshot{TransactionID: "txn-2"}},
	}

	if got := RecoverSelect(history); got != nil {
		t.Fatalf("RecoverSelect() = %#v, want nil after newer search", got)
	}
}

func TestRecoverSelectReturnsLatest(t *testing.T) {
	t.Parallel()

	history := []contractx.Turn{
		{Role: contractx.RoleAssistant, Kind: contractx.PayloadSearchResult, Search: &contractx.SearchSnapshot{TransactionID: "txn-1"}},
		{Role: contractx.RoleAssistant, Kind: contractx.PayloadSelectResult, Select: &contractx.SelectSnapshot{ItemID: "item-7"}},
		textTurn(contractx.RoleUser, "sounds good"),
	}

	got := RecoverSelect(history)
	if got == nil || got.ItemID != "item-7" {
		t.Fatalf("RecoverSelect() = %#v, want item-7", got)
	}
}
