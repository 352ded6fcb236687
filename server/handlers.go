package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	contractx "github.com/shreyvishal/beckn-deg-bot/agent/contract"
	"github.com/shreyvishal/beckn-deg-bot/agent/router"
)

const maxChatBodyBytes = 1 << 20

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Status  contractx.Status `json:"status"`
	Message string           `json:"message"`
}

type sessionResponse struct {
	SessionID string           `json:"session_id"`
	Turns     []contractx.Turn `json:"turns"`
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAIHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "luma-gateway",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAuthHealth(w http.ResponseWriter, _ *http.Request) {
	status := "healthy"
	if s.accounts == nil {
		status = "unavailable"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"service": "auth",
	})
}

// handleChat runs one conversational turn. An authenticated caller's identity
// pins the session key and carries the account email into the protocol layer;
// anonymous callers must supply their own session id.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := router.Input{
		SessionKey: strings.TrimSpace(req.SessionID),
		Text:       req.Message,
	}
	if u := userFromContext(r.Context()); u != nil {
		in.SessionKey = u.ID
		in.UserEmail = u.Email
	}

	result, err := s.gateway.Handle(r.Context(), in)
	switch {
	case errors.Is(err, contractx.ErrInvalidSession):
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	case errors.Is(err, contractx.ErrInvalidMessage):
		writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	case err != nil:
		log.Error().Err(err).Msg("chat turn failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Status:  result.Status,
		Message: result.Message,
	})
}

func (s *Server) handleSessionSnapshot(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if u := userFromContext(r.Context()); u != nil {
		// an authenticated caller may only read its own session
		sessionID = u.ID
	}
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	turns, err := s.gateway.SessionSnapshot(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("session snapshot failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: sessionID,
		Turns:     turns,
	})
}
