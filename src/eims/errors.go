package eims

import (
	"errors"
	"fmt"
)

var (
	// ErrSequenceConflict: the gateway expected different document/invoice counters.
	ErrSequenceConflict = errors.New("eims sequence conflict")
	// ErrConflictUnparseable: a conflict response did not carry numeric expected counters.
	ErrConflictUnparseable  = errors.New("eims conflict response missing expected counters")
	ErrRateLimited          = errors.New("eims rate limited")
	ErrGatewayFailure       = errors.New("eims gateway failure")
	ErrMalformedResponse    = errors.New("eims malformed response")
	ErrGatewayUnavailable   = errors.New("eims gateway unavailable")
	ErrAuthenticationFailed = errors.New("eims authentication failed")
)

// GatewayError carries the raw gateway payload for errors that end a submission.
type GatewayError struct {
	Kind       error
	HTTPStatus int
	StatusCode int
	Message    string
	Raw        []byte
}

func (e *GatewayError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(truncate(e.Raw, 512))
	}
	return fmt.Sprintf("%v (http %d, status %d): %s", e.Kind, e.HTTPStatus, e.StatusCode, msg)
}

func (e *GatewayError) Unwrap() error {
	return e.Kind
}

// ConflictError reports the counters the gateway expects next.
type ConflictError struct {
	StatusCode     int
	DocumentNumber int64
	InvoiceCounter int64
	Raw            []byte
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v (status %d): expected document number %d, invoice counter %d",
		ErrSequenceConflict, e.StatusCode, e.DocumentNumber, e.InvoiceCounter)
}

func (e *ConflictError) Unwrap() error {
	return ErrSequenceConflict
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
