// Package classify implements the intent and domain classifiers. Both
// delegate to an external chat model and parse its output defensively: any
// label other than the exact expected tokens degrades to the safe default
// (GENERAL / unknown) instead of erroring, since misrouting a general query
// is cheaper than crashing a turn.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/shreyvishal/beckn-deg-bot/agent/contract"
)

const historyWindow = 20

type IntentClassifier struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

var _ contractx.IntentClassifier = (*IntentClassifier)(nil)

func NewIntentClassifier(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (*IntentClassifier, error) {
	runner, err := compileLabelGraph(ctx, chatModel, systemPrompt, "classify.intent_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile intent graph: %v", contractx.ErrModelInvoke, err)
	}
	return &IntentClassifier{runner: runner}, nil
}

func (c *IntentClassifier) ClassifyIntent(
	ctx context.Context,
	text string,
	history []contractx.Turn,
) (contractx.Intent, error) {
	msg, err := invokeLabelRunner(ctx, c.runner, text, history)
	if err != nil {
		return contractx.IntentGeneral, err
	}

	label := normalizeLabel(msg.Content)
	if strings.EqualFold(label, string(contractx.IntentTransaction)) {
		return contractx.IntentTransaction, nil
	}
	if !strings.EqualFold(label, string(contractx.IntentGeneral)) {
		log.Debug().Str("label", label).Msg("unexpected intent label, defaulting to GENERAL")
	}
	return contractx.IntentGeneral, nil
}

type DomainClassifier struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

var _ contractx.DomainClassifier = (*DomainClassifier)(nil)

func NewDomainClassifier(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (*DomainClassifier, error) {
	runner, err := compileLabelGraph(ctx, chatModel, systemPrompt, "classify.domain_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile domain graph: %v", contractx.ErrModelInvoke, err)
	}
	return &DomainClassifier{runner: runner}, nil
}

func (c *DomainClassifier) ClassifyDomain(
	ctx context.Context,
	text string,
	history []contractx.Turn,
) (contractx.Domain, error) {
	msg, err := invokeLabelRunner(ctx, c.runner, text, history)
	if err != nil {
		return contractx.DomainUnknown, err
	}

	switch strings.ToLower(normalizeLabel(msg.Content)) {
	case string(contractx.DomainRetail):
		return contractx.DomainRetail, nil
	case string(contractx.DomainSchemes):
		return contractx.DomainSchemes, nil
	default:
		log.Debug().Str("label", msg.Content).Msg("unresolved transaction domain")
		return contractx.DomainUnknown, nil
	}
}

func invokeLabelRunner(
	ctx context.Context,
	runner compose.Runnable[map[string]any, *schema.Message],
	text string,
	history []contractx.Turn,
) (*schema.Message, error) {
	payload := map[string]any{
		"user_message": text,
		"history":      historyPayload(history, historyWindow),
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal classifier payload: %v", contractx.ErrModelInvoke, err)
	}

	msg, err := runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: classifier invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: empty classifier response", contractx.ErrModelInvoke)
	}
	return msg, nil
}

// normalizeLabel strips whitespace, quotes, and trailing punctuation the
// model sometimes wraps labels in.
func normalizeLabel(raw string) string {
	label := strings.TrimSpace(raw)
	label = strings.Trim(label, "\"'`")
	label = strings.TrimRight(label, ".!,:")
	return strings.TrimSpace(label)
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
