package contract

import (
	"encoding/json"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Intent is the coarse routing category for an incoming message.
type Intent string

const (
	IntentTransaction Intent = "BECKN_TRANSACTION"
	IntentGeneral     Intent = "GENERAL"
)

// Domain is the fine-grained transaction domain tag.
type Domain string

const (
	DomainRetail  Domain = "retail"
	DomainSchemes Domain = "schemes"
	DomainUnknown Domain = ""
)

// ModelRole selects which chat model configuration backs a component.
type ModelRole string

const (
	ModelRoleIntent    ModelRole = "intent"
	ModelRoleDomain    ModelRole = "domain"
	ModelRoleResponder ModelRole = "responder"
)

// PayloadKind tags the variant a Turn carries. Structured variants are
// produced by the transaction agent and recovered on later turns to infer the
// protocol step; they are never edited after being appended.
type PayloadKind string

const (
	PayloadText           PayloadKind = "text"
	PayloadSearchResult   PayloadKind = "search_result"
	PayloadClearSelection PayloadKind = "clear_selection"
	PayloadSelectResult   PayloadKind = "select_result"
	PayloadConfirmResult  PayloadKind = "confirm_result"
)

// Turn is one logged message within a session. Text always holds the
// human-readable content; at most one structured payload pointer is set,
// matching Kind.
type Turn struct {
	Role      Role             `json:"role"`
	Kind      PayloadKind      `json:"kind"`
	Text      string           `json:"content"`
	Search    *SearchSnapshot  `json:"search,omitempty"`
	Select    *SelectSnapshot  `json:"select,omitempty"`
	Confirm   *ConfirmSnapshot `json:"confirm,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// TextTurn builds a plain-text turn.
func TextTurn(role Role, text string, now time.Time) Turn {
	return Turn{
		Role:      role,
		Kind:      PayloadText,
		Text:      strings.TrimSpace(text),
		Timestamp: now.UTC(),
	}
}

// SelectionEntry maps a display index to the identifiers needed to select the
// item on the commerce network.
type SelectionEntry struct {
	ItemID     string `json:"item_id"`
	ProviderID string `json:"provider_id"`
	ItemName   string `json:"item_name"`
}

// CatalogItem is one flattened search hit, in upstream encounter order.
// Index is 1-based.
type CatalogItem struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	Price        string `json:"price"`
	Currency     string `json:"currency"`
	Rating       string `json:"rating"`
	ProviderName string `json:"provider_name"`
}

// SearchSnapshot is the structured payload persisted by a successful search.
// Selection is the map the next select step resolves indices against.
type SearchSnapshot struct {
	Domain        Domain                 `json:"domain"`
	NetworkDomain string                 `json:"network_domain"`
	TransactionID string                 `json:"transaction_id"`
	BppID         string                 `json:"bpp_id"`
	BppURI        string                 `json:"bpp_uri"`
	Items         []CatalogItem          `json:"items"`
	Selection     map[int]SelectionEntry `json:"selection"`
}

// SelectSnapshot is the structured payload persisted by a successful select.
// Raw keeps the full upstream response so confirm can recover anything this
// projection misses.
type SelectSnapshot struct {
	Domain        Domain          `json:"domain"`
	NetworkDomain string          `json:"network_domain"`
	TransactionID string          `json:"transaction_id"`
	BppID         string          `json:"bpp_id"`
	BppURI        string          `json:"bpp_uri"`
	ItemID        string          `json:"item_id"`
	ProviderID    string          `json:"provider_id"`
	ItemName      string          `json:"item_name"`
	FulfillmentID string          `json:"fulfillment_id"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

// ConfirmSnapshot records the outcome of a confirm step.
type ConfirmSnapshot struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id,omitempty"`
	ItemID  string `json:"item_id"`
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the single reply envelope the gateway returns per message.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}
