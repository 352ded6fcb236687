package user

import (
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

var (
	ErrAlreadyRegistered  = errors.New("meter id or email already registered")
	ErrInvalidCredentials = errors.New("incorrect meter id or password")
	ErrInactiveUser       = errors.New("user is inactive")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
	ErrNotFound           = errors.New("user not found")
)

// User is an account keyed by its energy meter. Unique on two independent
// keys: meter id and email.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID             string    `bun:"id,pk" json:"id"`
	MeterID        string    `bun:"meter_id,notnull,unique" json:"meter_id"`
	Email          string    `bun:"email,notnull,unique" json:"email"`
	HashedPassword string    `bun:"hashed_password,notnull" json:"-"`
	FullName       string    `bun:"full_name" json:"full_name,omitempty"`
	IsActive       bool      `bun:"is_active,notnull" json:"is_active"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// AccessToken is an opaque bearer token record; only the hash of the secret
// is stored.
type AccessToken struct {
	bun.BaseModel `bun:"table:access_tokens,alias:t"`

	ID        string    `bun:"id,pk" json:"id"`
	UserID    string    `bun:"user_id,notnull" json:"user_id"`
	TokenHash string    `bun:"token_hash,notnull,unique" json:"-"`
	ExpiresAt time.Time `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Registration is the register request payload.
type Registration struct {
	MeterID  string `json:"meter_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

func (r Registration) Validate() error {
	if len(strings.TrimSpace(r.MeterID)) < 3 {
		return errors.New("meter id must be at least 3 characters")
	}
	email := strings.TrimSpace(r.Email)
	if !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return errors.New("email is invalid")
	}
	if len(r.Password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}
