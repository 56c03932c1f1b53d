package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an InvoiceRecord.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "Pending"
	InvoiceStatusSent      InvoiceStatus = "Sent to EIMS"
	InvoiceStatusCompleted InvoiceStatus = "Completed"
	InvoiceStatusFailed    InvoiceStatus = "Failed"
	// InvoiceStatusTemporary marks placeholders written by a manual sequence sync.
	// They advance the local counters but are never reported as real invoices.
	InvoiceStatusTemporary InvoiceStatus = "Temporary"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "Unpaid"
	PaymentStatusPaid   PaymentStatus = "Paid"
)

// InvoiceRecord is a fiscal invoice as acknowledged by EIMS. Records are append-only:
// counters and IRN never change after insertion.
type InvoiceRecord struct {
	ID             string        `json:"id"`
	TripID         string        `json:"trip_id,omitempty"`
	InvoiceNumber  string        `json:"invoice_number"`
	DocumentNumber int64         `json:"document_number"`
	InvoiceCounter int64         `json:"invoice_counter"`
	IRN            string        `json:"irn,omitempty"`
	PreviousIRN    *string       `json:"previous_irn"`
	Status         InvoiceStatus `json:"status"`
	PaymentStatus  PaymentStatus `json:"payment_status"`

	BaseFare         decimal.Decimal `json:"base_fare"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	VATAmount        decimal.Decimal `json:"vat_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`

	SignedQR       string     `json:"signed_qr,omitempty"`
	SignedInvoice  string     `json:"signed_invoice,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`

	Driver      Party  `json:"driver"`
	Rider       Party  `json:"rider"`
	Description string `json:"description,omitempty"`
	TripDate    string `json:"trip_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Party identifies a counterparty on an invoice.
type Party struct {
	Name  string `json:"name,omitempty"`
	TIN   string `json:"tin,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	City  string `json:"city,omitempty"`
}

// Sequence is the local view of the gateway counters.
type Sequence struct {
	DocumentNumber int64   `json:"document_number"`
	InvoiceCounter int64   `json:"invoice_counter"`
	PreviousIRN    *string `json:"previous_irn"`
}

// Next returns the candidate counters for the next submission.
func (s Sequence) Next() Sequence {
	return Sequence{
		DocumentNumber: s.DocumentNumber + 1,
		InvoiceCounter: s.InvoiceCounter + 1,
		PreviousIRN:    s.PreviousIRN,
	}
}
