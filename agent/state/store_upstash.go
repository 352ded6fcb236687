package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/shreyvishal/beckn-deg-bot/agent/contract"
)

const (
	defaultMirrorKeyPrefix = "luma:session:"
	defaultMirrorTTL       = 24 * time.Hour
	maxResponseSizeBytes   = 2 << 20
)

// UpstashRedisMirror persists turn logs in Upstash Redis via its REST API.
// Each session is one key holding the JSON-encoded log; if durability
// requirements grow past that, move to per-turn RPUSH.
type UpstashRedisMirror struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

type MirrorOption func(*UpstashRedisMirror)

func WithKeyPrefix(prefix string) MirrorOption {
	return func(m *UpstashRedisMirror) {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			m.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) MirrorOption {
	return func(m *UpstashRedisMirror) {
		m.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) MirrorOption {
	return func(m *UpstashRedisMirror) {
		if client != nil {
			m.httpClient = client
		}
	}
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func NewUpstashRedisMirror(cfg UpstashRedisConfig, opts ...MirrorOption) (*UpstashRedisMirror, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	mirror := &UpstashRedisMirror{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultMirrorKeyPrefix,
		ttl:        defaultMirrorTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(mirror)
		}
	}
	if mirror.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return mirror, nil
}

func (m *UpstashRedisMirror) Save(ctx context.Context, sessionKey string, turns []contractx.Turn) error {
	key, err := m.redisKey(sessionKey)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal session log: %w", err)
	}

	cmd := []any{"SET", key, string(payload)}
	if m.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(m.ttl))
	}

	_, err = m.exec(ctx, cmd)
	return err
}

func (m *UpstashRedisMirror) Load(ctx context.Context, sessionKey string) ([]contractx.Turn, error) {
	key, err := m.redisKey(sessionKey)
	if err != nil {
		return nil, err
	}

	resp, err := m.exec(ctx, []any{"GET", key})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, nil
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode session payload: %w", err)
	}

	var turns []contractx.Turn
	if err := json.Unmarshal([]byte(encoded), &turns); err != nil {
		return nil, fmt.Errorf("unmarshal session log: %w", err)
	}
	return turns, nil
}

func (m *UpstashRedisMirror) Delete(ctx context.Context, sessionKey string) error {
	key, err := m.redisKey(sessionKey)
	if err != nil {
		return err
	}
	_, err = m.exec(ctx, []any{"DEL", key})
	return err
}

func (m *UpstashRedisMirror) redisKey(sessionKey string) (string, error) {
	if strings.TrimSpace(sessionKey) == "" {
		return "", contractx.ErrInvalidSession
	}
	return strings.TrimSpace(m.keyPrefix) + sessionKey, nil
}

func (m *UpstashRedisMirror) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if m == nil {
		return nil, errors.New("nil mirror")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
