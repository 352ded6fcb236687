// Package user implements the account and credential subsystem: a bun-backed
// Postgres store for users and opaque bearer tokens. The gateway core only
// consumes the resulting identity as (or mapped to) a session key.
package user

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 30 * 24 * time.Hour

// OpenDB connects a bun handle to Postgres via pgdriver.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

type Store struct {
	db       bun.IDB
	tokenTTL time.Duration
	now      func() time.Time
}

type StoreOption func(*Store)

func WithTokenTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

func NewStore(db bun.IDB, opts ...StoreOption) (*Store, error) {
	if db == nil {
		return nil, errors.New("database handle is required")
	}
	s := &Store{
		db:       db,
		tokenTTL: defaultTokenTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Init creates the tables if they do not exist yet.
func (s *Store) Init(ctx context.Context) error {
	for _, model := range []any{(*User)(nil), (*AccessToken)(nil)} {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

// Create registers a new user. Uniqueness is enforced on both meter id and
// email; violating either yields ErrAlreadyRegistered.
func (s *Store) Create(ctx context.Context, reg Registration) (*User, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	meterID := strings.TrimSpace(reg.MeterID)
	email := strings.ToLower(strings.TrimSpace(reg.Email))

	exists, err := s.db.NewSelect().
		Model((*User)(nil)).
		Where("meter_id = ? OR email = ?", meterID, email).
		Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return nil, ErrAlreadyRegistered
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	u := &User{
		ID:             uuid.NewString(),
		MeterID:        meterID,
		Email:          email,
		HashedPassword: string(hashed),
		FullName:       strings.TrimSpace(reg.FullName),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.db.NewInsert().Model(u).Exec(ctx); err != nil {
		return nil, insertUserError(err)
	}
	return u, nil
}

// insertUserError maps a failed user insert. A concurrent register can slip
// past the existence check and hit the unique constraints; only that case is
// a duplicate, everything else stays an internal error.
func insertUserError(err error) error {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
		return ErrAlreadyRegistered
	}
	return fmt.Errorf("insert user: %w", err)
}

// Authenticate checks meter id + password and returns the active user.
func (s *Store) Authenticate(ctx context.Context, meterID, password string) (*User, error) {
	u := new(User)
	err := s.db.NewSelect().
		Model(u).
		Where("meter_id = ?", strings.TrimSpace(meterID)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	return u, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*User, error) {
	u := new(User)
	err := s.db.NewSelect().Model(u).Where("u.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// TouchActivity bumps the user's updated_at timestamp.
func (s *Store) TouchActivity(ctx context.Context, id string) error {
	_, err := s.db.NewUpdate().
		Model((*User)(nil)).
		Set("updated_at = ?", s.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// IssueToken mints an opaque bearer token for the user and stores its hash.
// The raw secret is returned once and never persisted.
func (s *Store) IssueToken(ctx context.Context, userID string) (string, *AccessToken, error) {
	raw := uuid.NewString() + uuid.NewString()
	now := s.now().UTC()
	tok := &AccessToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(s.tokenTTL),
		CreatedAt: now,
	}
	if _, err := s.db.NewInsert().Model(tok).Exec(ctx); err != nil {
		return "", nil, fmt.Errorf("store token: %w", err)
	}
	return raw, tok, nil
}

// ResolveToken maps a presented bearer token back to its active user,
// touching the user's activity timestamp on success.
func (s *Store) ResolveToken(ctx context.Context, raw string) (*User, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrTokenInvalid
	}

	tok := new(AccessToken)
	err := s.db.NewSelect().
		Model(tok).
		Where("token_hash = ?", hashToken(raw)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if s.now().UTC().After(tok.ExpiresAt) {
		return nil, ErrTokenInvalid
	}

	u, err := s.GetByID(ctx, tok.UserID)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	if err := s.TouchActivity(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("touch activity: %w", err)
	}
	return u, nil
}

// RevokeToken deletes the token record; logout is otherwise client-side.
func (s *Store) RevokeToken(ctx context.Context, raw string) error {
	_, err := s.db.NewDelete().
		Model((*AccessToken)(nil)).
		Where("token_hash = ?", hashToken(strings.TrimSpace(raw))).
		Exec(ctx)
	return err
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
