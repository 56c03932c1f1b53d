package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReceiptStatus string

const (
	ReceiptStatusPending      ReceiptStatus = "Pending"
	ReceiptStatusCreated      ReceiptStatus = "Created"
	ReceiptStatusAcknowledged ReceiptStatus = "Acknowledged"
	ReceiptStatusFailed       ReceiptStatus = "Failed"
)

type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "Cash"
	PaymentMethodBank PaymentMethod = "Bank"
)

// ReceiptRecord is a sales receipt acknowledged by EIMS with an RRN.
type ReceiptRecord struct {
	ID              string          `json:"id"`
	InvoiceID       string          `json:"invoice_id"`
	ReceiptNumber   string          `json:"receipt_number"`
	ReceiptCounter  int64           `json:"receipt_counter"`
	RRN             string          `json:"rrn"`
	QR              string          `json:"qr,omitempty"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	CollectedAmount decimal.Decimal `json:"collected_amount"`
	Status          ReceiptStatus   `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PaymentRequest records money collected against an invoice.
type PaymentRequest struct {
	InvoiceID       string          `json:"invoice_id"`
	TripID          string          `json:"trip_id"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	PaymentDate     string          `json:"payment_date"`
	CollectedAmount decimal.Decimal `json:"collected_amount"`
	Reason          string          `json:"reason"`

	// Bank transfer details, ignored for cash.
	PaymentServiceProvider string `json:"payment_service_provider"`
	AccountNumber          string `json:"account_number"`
	TransactionNumber      string `json:"transaction_number"`
}
