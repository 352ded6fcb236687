// Package router composes the classifiers, the transaction agent, and the
// general responder into the per-message decision pipeline. It owns the
// session locking discipline: one session's turns are fully serialized,
// different sessions never block each other.
package router

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/shreyvishal/beckn-deg-bot/agent/contract"
	statex "github.com/shreyvishal/beckn-deg-bot/agent/state"
)

// MsgGenericFailure is the reply for errors the router cannot classify.
// Users never see raw errors, stack traces, or upstream JSON.
const MsgGenericFailure = "Sorry, something went wrong while processing your message. Please try again."

type Router struct {
	store     *statex.MemoryStore
	intents   contractx.IntentClassifier
	domains   contractx.DomainClassifier
	agent     contractx.TransactionAgent
	responder contractx.Responder

	runner compose.Runnable[*turnState, contractx.Turn]

	now func() time.Time
}

// Input is one incoming message. UserEmail is set when the transport layer
// authenticated the caller.
type Input struct {
	SessionKey string
	Text       string
	UserEmail  string
}

func New(
	store *statex.MemoryStore,
	intents contractx.IntentClassifier,
	domains contractx.DomainClassifier,
	agent contractx.TransactionAgent,
	responder contractx.Responder,
) (*Router, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if intents == nil || domains == nil {
		return nil, errors.New("classifiers are required")
	}
	if agent == nil {
		return nil, errors.New("transaction agent is required")
	}
	if responder == nil {
		return nil, errors.New("responder is required")
	}

	r := &Router{
		store:     store,
		intents:   intents,
		domains:   domains,
		agent:     agent,
		responder: responder,
		now:       time.Now,
	}

	runner, err := r.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	r.runner = runner
	return r, nil
}

// HandleMessage runs one conversational turn: load session, classify, branch,
// append the user/assistant pair, reply.
func (r *Router) HandleMessage(ctx context.Context, sessionKey, text string) (contractx.Result, error) {
	return r.Handle(ctx, Input{SessionKey: sessionKey, Text: text})
}

func (r *Router) Handle(ctx context.Context, in Input) (contractx.Result, error) {
	key := strings.TrimSpace(in.SessionKey)
	if key == "" {
		return contractx.Result{}, contractx.ErrInvalidSession
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return contractx.Result{}, contractx.ErrInvalidMessage
	}

	sess, err := r.store.GetOrCreate(ctx, key)
	if err != nil {
		return contractx.Result{}, err
	}

	// Serialize the whole turn for this session: the snapshot the graph
	// reasons over and the final append form one atomic unit, so a
	// concurrent turn can never confirm against a stale selection.
	sess.Lock()
	defer sess.Unlock()

	history := sess.SnapshotLocked()
	userTurn := contractx.TextTurn(contractx.RoleUser, text, r.now())

	reply, err := r.runner.Invoke(ctx, &turnState{
		SessionKey: key,
		Text:       text,
		UserEmail:  strings.TrimSpace(in.UserEmail),
		History:    history,
	})
	if err != nil {
		log.Error().Err(err).Str("session", key).Msg("turn pipeline failed")
		reply = contractx.TextTurn(contractx.RoleAssistant, MsgGenericFailure, r.now())
		r.store.CommitLocked(ctx, sess, userTurn, reply)
		return contractx.Result{Status: contractx.StatusError, Message: MsgGenericFailure}, nil
	}

	r.store.CommitLocked(ctx, sess, userTurn, reply)
	return contractx.Result{Status: contractx.StatusSuccess, Message: reply.Text}, nil
}

// SessionSnapshot returns an ordered copy of the session log for diagnostic
// and health use.
func (r *Router) SessionSnapshot(ctx context.Context, sessionKey string) ([]contractx.Turn, error) {
	return r.store.Snapshot(ctx, sessionKey)
}
