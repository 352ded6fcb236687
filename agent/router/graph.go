package router

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/shreyvishal/beckn-deg-bot/agent/contract"
)

// turnState travels through the per-message graph. History is the snapshot
// taken under the session lock before the graph runs.
type turnState struct {
	SessionKey string
	Text       string
	UserEmail  string
	History    []contractx.Turn

	Intent contractx.Intent
}

func (r *Router) compileTurnGraph(ctx context.Context) (compose.Runnable[*turnState, contractx.Turn], error) {
	graph := compose.NewGraph[*turnState, contractx.Turn]()

	if err := graph.AddLambdaNode("classify_intent",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (*turnState, error) {
			intent, err := r.intents.ClassifyIntent(ctx, in.Text, in.History)
			if err != nil {
				return nil, err
			}
			in.Intent = intent
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_intent: %w", err)
	}

	if err := graph.AddLambdaNode("transact_path",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (contractx.Turn, error) {
			return r.runTransaction(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node transact_path: %w", err)
	}

	if err := graph.AddLambdaNode("general_path",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (contractx.Turn, error) {
			return r.runGeneral(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node general_path: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *turnState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("turn state is nil")
			}
			if in.Intent == contractx.IntentTransaction {
				return "transact_path", nil
			}
			return "general_path", nil
		},
		map[string]bool{
			"transact_path": true,
			"general_path":  true,
		},
	)

	if err := graph.AddEdge(compose.START, "classify_intent"); err != nil {
		return nil, fmt.Errorf("add edge start->classify_intent: %w", err)
	}
	if err := graph.AddBranch("classify_intent", branch); err != nil {
		return nil, fmt.Errorf("add intent branch: %w", err)
	}
	if err := graph.AddEdge("transact_path", compose.END); err != nil {
		return nil, fmt.Errorf("add edge transact->end: %w", err)
	}
	if err := graph.AddEdge("general_path", compose.END); err != nil {
		return nil, fmt.Errorf("add edge general->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("router.turn_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}

// runTransaction resolves the domain and executes a protocol step. An
// unresolved domain falls back to the general path with the original
// message, so the transaction agent is never invoked with an undefined
// domain.
func (r *Router) runTransaction(ctx context.Context, in *turnState) (contractx.Turn, error) {
	domain, err := r.domains.ClassifyDomain(ctx, in.Text, in.History)
	if err != nil {
		return contractx.Turn{}, err
	}
	if domain == contractx.DomainUnknown {
		return r.runGeneral(ctx, in)
	}

	return r.agent.Execute(ctx, contractx.TransactionRequest{
		SessionKey: in.SessionKey,
		Text:       in.Text,
		Domain:     domain,
		History:    in.History,
		UserEmail:  in.UserEmail,
	})
}

func (r *Router) runGeneral(ctx context.Context, in *turnState) (contractx.Turn, error) {
	reply, err := r.responder.Respond(ctx, in.Text, in.History)
	if err != nil {
		return contractx.Turn{}, err
	}
	return contractx.TextTurn(contractx.RoleAssistant, reply, r.now()), nil
}
