package services

import "errors"

var (
	ErrRetriesExhausted       = errors.New("EIMS submission retries exhausted (repeated rate limiting or sequence conflicts)")
	ErrReconciliationRequired = errors.New("EIMS acknowledged the document but it was not stored locally; manual reconciliation required")
	ErrAmountMismatch         = errors.New("collected amount does not match the invoice total")
	ErrInvoiceNotPayable      = errors.New("invoice has not been acknowledged by EIMS")
	ErrSyncTooLarge           = errors.New("sequence sync gap exceeds the placeholder limit")
	ErrInvalidSyncTarget      = errors.New("sequence sync target must be positive")
)
