package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/shreyvishal/beckn-deg-bot/user"
)

type contextKey string

const userContextKey contextKey = "authenticated_user"

func userFromContext(ctx context.Context) *user.User {
	u, _ := ctx.Value(userContextKey).(*user.User)
	return u
}

// Accounts is the credential surface the auth endpoints depend on,
// implemented by user.Store.
type Accounts interface {
	Create(ctx context.Context, reg user.Registration) (*user.User, error)
	Authenticate(ctx context.Context, meterID, password string) (*user.User, error)
	IssueToken(ctx context.Context, userID string) (string, *user.AccessToken, error)
	ResolveToken(ctx context.Context, raw string) (*user.User, error)
	RevokeToken(ctx context.Context, raw string) error
}

type AccountHandler struct {
	accounts Accounts
}

func NewAccountHandler(accounts Accounts) (*AccountHandler, error) {
	if accounts == nil {
		return nil, errors.New("account store is required")
	}
	return &AccountHandler{accounts: accounts}, nil
}

type loginRequest struct {
	MeterID  string `json:"meter_id"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	User        *user.User `json:"user"`
}

func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var reg user.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := reg.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	u, err := h.accounts.Create(r.Context(), reg)
	switch {
	case errors.Is(err, user.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Msg("register failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.accounts.Authenticate(r.Context(), req.MeterID, req.Password)
	switch {
	case errors.Is(err, user.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case errors.Is(err, user.ErrInactiveUser):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Msg("login failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	raw, _, err := h.accounts.IssueToken(r.Context(), u.ID)
	if err != nil {
		log.Error().Err(err).Msg("issue token failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: raw,
		TokenType:   "bearer",
		User:        u,
	})
}

func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	raw := bearerToken(r)
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if err := h.accounts.RevokeToken(r.Context(), raw); err != nil {
		log.Error().Err(err).Msg("revoke token failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	u := userFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Authenticate resolves a bearer token when present and stores the user on
// the request context. Requests without a token pass through anonymous; a
// presented but invalid token is rejected.
func (h *AccountHandler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		u, err := h.accounts.ResolveToken(r.Context(), raw)
		switch {
		case errors.Is(err, user.ErrTokenInvalid), errors.Is(err, user.ErrInactiveUser):
			writeError(w, http.StatusUnauthorized, user.ErrTokenInvalid.Error())
			return
		case err != nil:
			log.Error().Err(err).Msg("token resolution failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
