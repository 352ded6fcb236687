// Package transaction drives the three-step commerce protocol. There is no
// stored state machine: the step for each turn is inferred from the message
// and from what structured payloads are recoverable from the session log, so
// the log stays the single source of truth.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	becknx "github.com/shreyvishal/beckn-deg-bot/agent/beckn"
	contractx "github.com/shreyvishal/beckn-deg-bot/agent/contract"
	statex "github.com/shreyvishal/beckn-deg-bot/agent/state"
)

// CommerceClient is the slice of the network client the agent needs;
// *beckn.Client satisfies it.
type CommerceClient interface {
	NetworkDomain(domain contractx.Domain) (string, bool)
	Search(ctx context.Context, networkDomain, query string) (*becknx.SearchOutcome, error)
	Select(ctx context.Context, p becknx.SelectParams) (*becknx.SelectOutcome, error)
	Confirm(ctx context.Context, p becknx.ConfirmParams) (*becknx.ConfirmOutcome, error)
}

type Agent struct {
	network CommerceClient
	now     func() time.Time
}

var _ contractx.TransactionAgent = (*Agent)(nil)

func New(network CommerceClient) (*Agent, error) {
	if network == nil {
		return nil, errors.New("commerce client is required")
	}
	return &Agent{
		network: network,
		now:     time.Now,
	}, nil
}

// Execute runs one protocol step and returns the assistant reply turn.
// Recoverable failures (bad index, upstream outage) come back as normal
// reply turns; only programmer-level misuse returns an error.
func (a *Agent) Execute(ctx context.Context, req contractx.TransactionRequest) (contractx.Turn, error) {
	index, hasIndex := parseSelectionIndex(req.Text)

	if hasIndex {
		return a.selectStep(ctx, req, index)
	}
	if isConfirmation(req.Text) {
		if prior := statex.RecoverSelect(req.History); prior != nil {
			return a.confirmStep(ctx, req, prior)
		}
		return contractx.TextTurn(contractx.RoleAssistant, MsgNothingToConfirm, a.now()), nil
	}
	return a.searchStep(ctx, req)
}

func (a *Agent) searchStep(ctx context.Context, req contractx.TransactionRequest) (contractx.Turn, error) {
	networkDomain, ok := a.network.NetworkDomain(req.Domain)
	if !ok {
		return contractx.Turn{}, fmt.Errorf("no network mapping for domain %q", req.Domain)
	}

	outcome, err := a.network.Search(ctx, networkDomain, req.Text)
	if err != nil {
		a.logUpstream("search", req.SessionKey, err)
		// nothing persisted on failure; any older selection map stays live
		return contractx.TextTurn(contractx.RoleAssistant, MsgSearchFailed, a.now()), nil
	}

	if len(outcome.Items) == 0 {
		turn := contractx.TextTurn(contractx.RoleAssistant, MsgNoMatches, a.now())
		turn.Kind = contractx.PayloadClearSelection
		return turn, nil
	}

	snapshot := &contractx.SearchSnapshot{
		Domain:        req.Domain,
		NetworkDomain: networkDomain,
		TransactionID: outcome.Context.TransactionID,
		BppID:         outcome.Context.BppID,
		BppURI:        outcome.Context.BppURI,
		Items:         make([]contractx.CatalogItem, 0, len(outcome.Items)),
		Selection:     make(map[int]contractx.SelectionEntry, len(outcome.Items)),
	}
	for _, item := range outcome.Items {
		snapshot.Items = append(snapshot.Items, contractx.CatalogItem{
			Index:        item.Index,
			Name:         item.Name,
			Price:        fallbackNA(item.Price),
			Currency:     item.Currency,
			Rating:       fallbackNA(item.Rating),
			ProviderName: item.ProviderName,
		})
		snapshot.Selection[item.Index] = contractx.SelectionEntry{
			ItemID:     item.ItemID,
			ProviderID: item.ProviderID,
			ItemName:   item.Name,
		}
	}

	turn := contractx.TextTurn(contractx.RoleAssistant, formatCatalog(snapshot.Items), a.now())
	turn.Kind = contractx.PayloadSearchResult
	turn.Search = snapshot
	return turn, nil
}

func (a *Agent) selectStep(ctx context.Context, req contractx.TransactionRequest, index int) (contractx.Turn, error) {
	search := statex.RecoverSelection(req.History)
	if search == nil {
		return contractx.TextTurn(contractx.RoleAssistant, MsgSelectionNotFound, a.now()), nil
	}
	entry, ok := search.Selection[index]
	if !ok {
		// idempotent: repeating a bad index yields the same corrective
		// message and mutates nothing
		return contractx.TextTurn(contractx.RoleAssistant, MsgSelectionNotFound, a.now()), nil
	}

	outcome, err := a.network.Select(ctx, becknx.SelectParams{
		NetworkDomain: search.NetworkDomain,
		TransactionID: search.TransactionID,
		BppID:         search.BppID,
		BppURI:        search.BppURI,
		ItemID:        entry.ItemID,
		ProviderID:    entry.ProviderID,
	})
	if err != nil {
		a.logUpstream("select", req.SessionKey, err)
		// state stays at the same selection; the user may retry
		return contractx.TextTurn(contractx.RoleAssistant, MsgSelectFailed, a.now()), nil
	}

	turn := contractx.TextTurn(contractx.RoleAssistant, formatSelected(entry.ItemName), a.now())
	turn.Kind = contractx.PayloadSelectResult
	turn.Select = &contractx.SelectSnapshot{
		Domain:        search.Domain,
		NetworkDomain: search.NetworkDomain,
		TransactionID: outcome.Context.TransactionID,
		BppID:         outcome.Context.BppID,
		BppURI:        outcome.Context.BppURI,
		ItemID:        entry.ItemID,
		ProviderID:    entry.ProviderID,
		ItemName:      entry.ItemName,
		FulfillmentID: outcome.FulfillmentID,
		Raw:           outcome.Raw,
	}
	return turn, nil
}

func (a *Agent) confirmStep(ctx context.Context, req contractx.TransactionRequest, prior *contractx.SelectSnapshot) (contractx.Turn, error) {
	outcome, err := a.network.Confirm(ctx, becknx.ConfirmParams{
		NetworkDomain: prior.NetworkDomain,
		TransactionID: prior.TransactionID,
		BppID:         prior.BppID,
		BppURI:        prior.BppURI,
		ItemID:        prior.ItemID,
		ProviderID:    prior.ProviderID,
		FulfillmentID: prior.FulfillmentID,
		CustomerEmail: req.UserEmail,
	})
	if err != nil {
		a.logUpstream("confirm", req.SessionKey, err)
		turn := contractx.TextTurn(contractx.RoleAssistant, formatConfirmFailed(prior.ItemName), a.now())
		turn.Kind = contractx.PayloadConfirmResult
		turn.Confirm = &contractx.ConfirmSnapshot{Success: false, ItemID: prior.ItemID}
		return turn, nil
	}

	turn := contractx.TextTurn(contractx.RoleAssistant, formatConfirmed(prior.ItemName, outcome.OrderID), a.now())
	turn.Kind = contractx.PayloadConfirmResult
	turn.Confirm = &contractx.ConfirmSnapshot{
		Success: true,
		OrderID: outcome.OrderID,
		ItemID:  prior.ItemID,
	}
	return turn, nil
}

// logUpstream keeps diagnostics out of the decision flow. Protocol errors
// are logged distinctly from transport errors even though users see the same
// apology for both.
func (a *Agent) logUpstream(step, sessionKey string, err error) {
	evt := log.Warn().Str("step", step).Str("session", sessionKey).Err(err)
	if errors.Is(err, contractx.ErrUpstreamProtocol) {
		evt.Str("class", "protocol")
	} else {
		evt.Str("class", "transport")
	}
	evt.Msg("commerce network step failed")
}

func fallbackNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}
