package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contractx "github.com/shreyvishal/beckn-deg-bot/agent/contract"
)

func TestUpstashRedisMirrorRedisKey(t *testing.T) {
	t.Parallel()

	mirror := &UpstashRedisMirror{keyPrefix: defaultMirrorKeyPrefix}
	got, err := mirror.redisKey("abc")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "luma:session:abc" {
		t.Fatalf("redisKey() = %q, want %q", got, "luma:session:abc")
	}
}

func TestUpstashRedisMirrorRedisKeyEmptySession(t *testing.T) {
	t.Parallel()

	mirror := &UpstashRedisMirror{keyPrefix: defaultMirrorKeyPrefix}
	_, err := mirror.redisKey("   ")
	if !errors.Is(err, contractx.ErrInvalidSession) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidSession", err)
	}
}

func TestUpstashRedisMirrorSaveCommand(t *testing.T) {
	t.Parallel()

	const wantKey = "luma:session:session-1"
	var gotCommand []any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	mirror, err := NewUpstashRedisMirror(
		UpstashRedisConfig{
			URL:   server.URL,
			Token: "token",
		},
		WithHTTPClient(server.Client()),
		WithTTL(0),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisMirror() error = %v", err)
	}

	turns := []contractx.Turn{
		contractx.TextTurn(contractx.RoleUser, "hello", time.Now()),
	}
	if err := mirror.Save(context.Background(), "session-1", turns); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if len(gotCommand) != 3 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "SET" {
		t.Fatalf("command[0] = %v, want SET", gotCommand[0])
	}
	if gotCommand[1] != wantKey {
		t.Fatalf("command[1] = %v, want %s", gotCommand[1], wantKey)
	}
}

func TestUpstashRedisMirrorSaveAppendsTTL(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	mirror, err := NewUpstashRedisMirror(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
		WithTTL(90*time.Second),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisMirror() error = %v", err)
	}

	if err := mirror.Save(context.Background(), "s", nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if len(gotCommand) != 5 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[3] != "EX" {
		t.Fatalf("command[3] = %v, want EX", gotCommand[3])
	}
	// JSON numbers decode as float64
	if gotCommand[4] != float64(90) {
		t.Fatalf("command[4] = %v, want 90", gotCommand[4])
	}
}

func TestUpstashRedisMirrorLoadRoundTrip(t *testing.T) {
	t.Parallel()

	seed := []contractx.Turn{
		contractx.TextTurn(contractx.RoleUser, "find solar panels", time.Now()),
		contractx.TextTurn(contractx.RoleAssistant, "here you go", time.Now()),
	}
	payload, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	encoded, err := json.Marshal(string(payload))
	if err != nil {
		t.Fatalf("marshal encoded seed: %v", err)
	}

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprintf(w, `{"result":%s}`, encoded)
	}))
	t.Cleanup(server.Close)

	mirror, err := NewUpstashRedisMirror(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisMirror() error = %v", err)
	}

	turns, err := mirror.Load(context.Background(), "session-2")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if turns[0].Text != "find solar panels" {
		t.Fatalf("turns[0].Text = %q", turns[0].Text)
	}
	if gotCommand[0] != "GET" {
		t.Fatalf("command[0] = %v, want GET", gotCommand[0])
	}
	if gotCommand[1] != "luma:session:session-2" {
		t.Fatalf("command[1] = %v", gotCommand[1])
	}
}

func TestUpstashRedisMirrorLoadMissingKey(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	}))
	t.Cleanup(server.Close)

	mirror, err := NewUpstashRedisMirror(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisMirror() error = %v", err)
	}

	turns, err := mirror.Load(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if turns != nil {
		t.Fatalf("Load() = %#v, want nil for missing key", turns)
	}
}

func TestUpstashRedisMirrorDeleteCommand(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":1}`)
	}))
	t.Cleanup(server.Close)

	mirror, err := NewUpstashRedisMirror(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisMirror() error = %v", err)
	}

	if err := mirror.Delete(context.Background(), "session-3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if gotCommand[0] != "DEL" {
		t.Fatalf("command[0] = %v, want DEL", gotCommand[0])
	}
	if gotCommand[1] != "luma:session:session-3" {
		t.Fatalf("command[1] = %v", gotCommand[1])
	}
}

func TestUpstashRedisMirrorErrorResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"WRONGPASS invalid token"}`)
	}))
	t.Cleanup(server.Close)

	mirror, err := NewUpstashRedisMirror(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisMirror() error = %v", err)
	}

	if err := mirror.Save(context.Background(), "s", nil); err == nil {
		t.Fatal("Save() error = nil, want redis error")
	}
}

func TestNewUpstashRedisMirrorRequiresURLAndToken(t *testing.T) {
	t.Parallel()

	if _, err := NewUpstashRedisMirror(UpstashRedisConfig{Token: "t"}); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := NewUpstashRedisMirror(UpstashRedisConfig{URL: "https://example.upstash.io"}); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestTTLSecondsRoundsUp(t *testing.T) {
	t.Parallel()

	if got := ttlSeconds(1500 * time.Millisecond); got != 2 {
		t.Fatalf("ttlSeconds(1.5s) = %d, want 2", got)
	}
	if got := ttlSeconds(time.Millisecond); got != 1 {
		t.Fatalf("ttlSeconds(1ms) = %d, want 1", got)
	}
}
