package contract

import "context"

// IntentClassifier decides the coarse routing category for a message.
// Implementations must fail safe: any unrecognized label maps to
// IntentGeneral rather than an error.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, text string, history []Turn) (Intent, error)
}

// DomainClassifier resolves the transaction domain, consulting history so
// referential messages ("the second one") inherit the prior search's domain.
// Unrecognized labels map to DomainUnknown.
type DomainClassifier interface {
	ClassifyDomain(ctx context.Context, text string, history []Turn) (Domain, error)
}

// Responder produces the reply for non-transactional turns.
type Responder interface {
	Respond(ctx context.Context, text string, history []Turn) (string, error)
}

// TransactionAgent executes one step of the search/select/confirm protocol,
// inferring the step from the message and the recoverable history. The
// returned turn is the assistant reply, carrying any structured payload the
// step produced.
type TransactionAgent interface {
	Execute(ctx context.Context, req TransactionRequest) (Turn, error)
}

// TransactionRequest carries everything a protocol step may need.
type TransactionRequest struct {
	SessionKey string
	Text       string
	Domain     Domain
	History    []Turn
	// UserEmail is set when the caller is authenticated; confirm uses it in
	// place of the configured placeholder contact.
	UserEmail string
}
