package contract

import "errors"

var (
	ErrInvalidSession    = errors.New("session key is empty")
	ErrInvalidMessage    = errors.New("message is empty")
	ErrUpstreamTransport = errors.New("commerce network transport failed")
	ErrUpstreamProtocol  = errors.New("commerce network response malformed")
	ErrModelInvoke       = errors.New("model invoke failed")
	ErrSchemaViolation   = errors.New("model response violates schema")
)
