package beckn

import "encoding/json"

// RequestContext is the protocol envelope shared by every action. All steps
// of one logical transaction carry the same TransactionID; MessageID and
// Timestamp are fresh per step.
type RequestContext struct {
	Domain        string   `json:"domain"`
	Action        string   `json:"action"`
	Location      Location `json:"location"`
	Version       string   `json:"version"`
	BapID         string   `json:"bap_id"`
	BapURI        string   `json:"bap_uri"`
	BppID         string   `json:"bpp_id"`
	BppURI        string   `json:"bpp_uri"`
	TransactionID string   `json:"transaction_id"`
	MessageID     string   `json:"message_id"`
	Timestamp     string   `json:"timestamp"`
}

type Location struct {
	Country CodeRef `json:"country"`
	City    CodeRef `json:"city"`
}

type CodeRef struct {
	Code string `json:"code"`
}

type requestEnvelope struct {
	Context RequestContext `json:"context"`
	Message any            `json:"message"`
}

type searchMessage struct {
	Intent intentDescriptor `json:"intent"`
}

type intentDescriptor struct {
	Item itemDescriptorRef `json:"item"`
}

type itemDescriptorRef struct {
	Descriptor nameRef `json:"descriptor"`
}

type nameRef struct {
	Name string `json:"name"`
}

type orderMessage struct {
	Order orderBody `json:"order"`
}

type orderBody struct {
	Provider     idRef         `json:"provider"`
	Items        []idRef       `json:"items"`
	Fulfillments []fulfillment `json:"fulfillments,omitempty"`
}

type idRef struct {
	ID string `json:"id"`
}

type fulfillment struct {
	ID       string   `json:"id"`
	Customer customer `json:"customer"`
}

type customer struct {
	Person  person  `json:"person"`
	Contact contact `json:"contact"`
}

type person struct {
	Name string `json:"name"`
}

type contact struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

/* ------------------------------ responses ------------------------------ */

type searchResponseBody struct {
	Responses []struct {
		Message struct {
			Catalog struct {
				Providers []catalogProvider `json:"providers"`
			} `json:"catalog"`
		} `json:"message"`
	} `json:"responses"`
}

type catalogProvider struct {
	ID         string        `json:"id"`
	Descriptor nameRef       `json:"descriptor"`
	Items      []catalogItem `json:"items"`
}

type catalogItem struct {
	ID         string  `json:"id"`
	Descriptor nameRef `json:"descriptor"`
	Price      struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"price"`
	Rating string `json:"rating"`
}

type selectResponseBody struct {
	Responses []struct {
		Message struct {
			Order struct {
				Provider     idRef   `json:"provider"`
				Items        []idRef `json:"items"`
				Fulfillments []idRef `json:"fulfillments"`
			} `json:"order"`
		} `json:"message"`
	} `json:"responses"`
}

type confirmResponseBody struct {
	Responses []struct {
		Message struct {
			Order struct {
				ID string `json:"id"`
			} `json:"order"`
		} `json:"message"`
	} `json:"responses"`
}

/* ------------------------------- outcomes ------------------------------- */

// SearchOutcome is the flattened result of a search step.
type SearchOutcome struct {
	Context RequestContext
	Items   []FlattenedItem
	Raw     json.RawMessage
}

// FlattenedItem is one catalog hit in display order; Index is 1-based.
type FlattenedItem struct {
	Index        int
	ItemID       string
	Name         string
	Price        string
	Currency     string
	Rating       string
	ProviderID   string
	ProviderName string
}

// SelectOutcome carries the identifiers confirm needs plus the raw response
// snapshot persisted to the session log.
type SelectOutcome struct {
	Context       RequestContext
	FulfillmentID string
	Raw           json.RawMessage
}

type ConfirmOutcome struct {
	Context RequestContext
	OrderID string
	Raw     json.RawMessage
}
