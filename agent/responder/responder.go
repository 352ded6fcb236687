// Package responder answers non-transactional turns with the Luma persona.
// It is stateless given the message and history and has no transactional
// side effects.
package responder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/shreyvishal/beckn-deg-bot/agent/contract"
)

const historyWindow = 20

type Responder struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

var _ contractx.Responder = (*Responder)(nil)

func New(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	personaPrompt string,
) (*Responder, error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(personaPrompt),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add responder prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add responder model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add responder edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add responder edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add responder edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("responder.persona_graph"))
	if err != nil {
		return nil, fmt.Errorf("%w: compile responder graph: %v", contractx.ErrModelInvoke, err)
	}
	return &Responder{runner: runner}, nil
}

func (r *Responder) Respond(
	ctx context.Context,
	text string,
	history []contractx.Turn,
) (string, error) {
	payload := map[string]any{
		"user_message": text,
		"history":      historyPayload(history, historyWindow),
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal responder payload: %v", contractx.ErrModelInvoke, err)
	}

	msg, err := r.runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return "", fmt.Errorf("%w: responder invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return "", fmt.Errorf("%w: empty responder message", contractx.ErrSchemaViolation)
	}

	reply := strings.TrimSpace(msg.Content)
	if reply == "" {
		return "", fmt.Errorf("%w: responder returned empty reply", contractx.ErrSchemaViolation)
	}
	return reply, nil
}

func historyPayload(history []contractx.Turn, limit int) []map[string]string {
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]map[string]string, 0, len(history))
	for _, turn := range history {
		out = append(out, map[string]string{
			"role":    string(turn.Role),
			"content": turn.Text,
		})
	}
	return out
}
