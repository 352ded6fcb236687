// Package beckn implements the client side of the open-commerce network
// protocol: search, select, init, and confirm POSTs with the shared context
// envelope. Transport failures and malformed responses map onto the
// contract's upstream error sentinels so callers can keep their step state
// and retry.
package beckn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/shreyvishal/beckn-deg-bot/agent/contract"
)

const maxResponseSizeBytes = 4 << 20

const (
	actionSearch  = "search"
	actionSelect  = "select"
	actionInit    = "init"
	actionConfirm = "confirm"
)

type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// NetworkDomain maps a conversational domain tag to its wire value.
func (c *Client) NetworkDomain(domain contractx.Domain) (string, bool) {
	switch domain {
	case contractx.DomainRetail:
		return c.cfg.RetailDomain, true
	case contractx.DomainSchemes:
		return c.cfg.SchemesDomain, true
	default:
		return "", false
	}
}

// Search posts a free-text intent and flattens the provider catalogs into
// display order: providers and items exactly as encountered upstream, indices
// 1-based, no re-sorting.
func (c *Client) Search(ctx context.Context, networkDomain, query string) (*SearchOutcome, error) {
	reqCtx := c.newContext(actionSearch, networkDomain, "")
	envelope := requestEnvelope{
		Context: reqCtx,
		Message: searchMessage{
			Intent: intentDescriptor{
				Item: itemDescriptorRef{Descriptor: nameRef{Name: query}},
			},
		},
	}

	raw, err := c.post(ctx, actionSearch, envelope)
	if err != nil {
		return nil, err
	}

	var body searchResponseBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", contractx.ErrUpstreamProtocol, err)
	}

	outcome := &SearchOutcome{
		Context: reqCtx,
		Raw:     raw,
	}
	for _, resp := range body.Responses {
		for _, provider := range resp.Message.Catalog.Providers {
			for _, item := range provider.Items {
				if item.ID == "" || item.Descriptor.Name == "" {
					continue
				}
				outcome.Items = append(outcome.Items, FlattenedItem{
					Index:        len(outcome.Items) + 1,
					ItemID:       item.ID,
					Name:         item.Descriptor.Name,
					Price:        item.Price.Value,
					Currency:     item.Price.Currency,
					Rating:       item.Rating,
					ProviderID:   provider.ID,
					ProviderName: provider.Descriptor.Name,
				})
			}
		}
	}
	return outcome, nil
}

// SelectParams identifies the chosen item. TransactionID and the bpp routing
// pair come from the originating search when recoverable; blanks fall back to
// configured defaults (and a fresh transaction id).
type SelectParams struct {
	NetworkDomain string
	TransactionID string
	BppID         string
	BppURI        string
	ItemID        string
	ProviderID    string
}

func (c *Client) Select(ctx context.Context, p SelectParams) (*SelectOutcome, error) {
	reqCtx := c.newContext(actionSelect, p.NetworkDomain, p.TransactionID)
	c.applyRouting(&reqCtx, p.BppID, p.BppURI)

	envelope := requestEnvelope{
		Context: reqCtx,
		Message: orderMessage{
			Order: orderBody{
				Provider: idRef{ID: p.ProviderID},
				Items:    []idRef{{ID: p.ItemID}},
			},
		},
	}

	raw, err := c.post(ctx, actionSelect, envelope)
	if err != nil {
		return nil, err
	}

	var body selectResponseBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: decode select response: %v", contractx.ErrUpstreamProtocol, err)
	}

	outcome := &SelectOutcome{
		Context: reqCtx,
		Raw:     raw,
	}
	for _, resp := range body.Responses {
		if len(resp.Message.Order.Fulfillments) > 0 {
			outcome.FulfillmentID = resp.Message.Order.Fulfillments[0].ID
			break
		}
	}
	return outcome, nil
}

// Init is reserved on this network; the client exposes it alongside the
// other actions for parity with the protocol surface.
func (c *Client) Init(ctx context.Context, p SelectParams) (json.RawMessage, error) {
	reqCtx := c.newContext(actionInit, p.NetworkDomain, p.TransactionID)
	c.applyRouting(&reqCtx, p.BppID, p.BppURI)

	envelope := requestEnvelope{
		Context: reqCtx,
		Message: orderMessage{
			Order: orderBody{
				Provider: idRef{ID: p.ProviderID},
				Items:    []idRef{{ID: p.ItemID}},
			},
		},
	}
	return c.post(ctx, actionInit, envelope)
}

type ConfirmParams struct {
	NetworkDomain string
	TransactionID string
	BppID         string
	BppURI        string
	ItemID        string
	ProviderID    string
	FulfillmentID string
	// CustomerEmail overrides the configured placeholder when the caller is
	// authenticated.
	CustomerEmail string
}

func (c *Client) Confirm(ctx context.Context, p ConfirmParams) (*ConfirmOutcome, error) {
	reqCtx := c.newContext(actionConfirm, p.NetworkDomain, p.TransactionID)
	c.applyRouting(&reqCtx, p.BppID, p.BppURI)

	email := strings.TrimSpace(p.CustomerEmail)
	if email == "" {
		email = c.cfg.CustomerEmail
	}

	envelope := requestEnvelope{
		Context: reqCtx,
		Message: orderMessage{
			Order: orderBody{
				Provider: idRef{ID: p.ProviderID},
				Items:    []idRef{{ID: p.ItemID}},
				Fulfillments: []fulfillment{
					{
						ID: p.FulfillmentID,
						Customer: customer{
							Person:  person{Name: c.cfg.CustomerName},
							Contact: contact{Phone: c.cfg.CustomerPhone, Email: email},
						},
					},
				},
			},
		},
	}

	raw, err := c.post(ctx, actionConfirm, envelope)
	if err != nil {
		return nil, err
	}

	var body confirmResponseBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: decode confirm response: %v", contractx.ErrUpstreamProtocol, err)
	}

	outcome := &ConfirmOutcome{
		Context: reqCtx,
		Raw:     raw,
	}
	for _, resp := range body.Responses {
		if resp.Message.Order.ID != "" {
			outcome.OrderID = resp.Message.Order.ID
			break
		}
	}
	return outcome, nil
}

func (c *Client) newContext(action, networkDomain, transactionID string) RequestContext {
	if strings.TrimSpace(transactionID) == "" {
		transactionID = uuid.NewString()
	}
	return RequestContext{
		Domain:        networkDomain,
		Action:        action,
		Location:      Location{Country: CodeRef{Code: c.cfg.CountryCode}, City: CodeRef{Code: c.cfg.CityCode}},
		Version:       c.cfg.Version,
		BapID:         c.cfg.BapID,
		BapURI:        c.cfg.BapURI,
		BppID:         c.cfg.BppID,
		BppURI:        c.cfg.BppURI,
		TransactionID: transactionID,
		MessageID:     uuid.NewString(),
		Timestamp:     strconv.FormatInt(c.now().Unix(), 10),
	}
}

func (c *Client) applyRouting(reqCtx *RequestContext, bppID, bppURI string) {
	if v := strings.TrimSpace(bppID); v != "" {
		reqCtx.BppID = v
	}
	if v := strings.TrimSpace(bppURI); v != "" {
		reqCtx.BppURI = v
	}
}

func (c *Client) post(ctx context.Context, action string, envelope requestEnvelope) (json.RawMessage, error) {
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal %s envelope: %v", contractx.ErrUpstreamProtocol, action, err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + action
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build %s request: %v", contractx.ErrUpstreamTransport, action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s request: %v", contractx.ErrUpstreamTransport, action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", contractx.ErrUpstreamTransport, action, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		log.Warn().Str("action", action).Int("status", resp.StatusCode).Msg("commerce network rejected request")
		return nil, fmt.Errorf("%w: %s http status=%d", contractx.ErrUpstreamTransport, action, resp.StatusCode)
	}
	return raw, nil
}
