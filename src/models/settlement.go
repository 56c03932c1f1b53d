package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SettlementStatus string

const (
	SettlementStatusPending SettlementStatus = "Pending"
	SettlementStatusSettled SettlementStatus = "Settled"
	SettlementStatusFailed  SettlementStatus = "Failed"
)

// CanTransitionTo reports whether a settlement may move from s to next.
// Only Pending settlements change, and only to a final state.
func (s SettlementStatus) CanTransitionTo(next SettlementStatus) bool {
	return s == SettlementStatusPending &&
		(next == SettlementStatusSettled || next == SettlementStatusFailed)
}

// SettlementRecord is the three-way split of an invoiced trip.
type SettlementRecord struct {
	ID              string           `json:"id"`
	InvoiceID       string           `json:"invoice_id"`
	TripID          string           `json:"trip_id"`
	DriverEarning   decimal.Decimal  `json:"driver_earning"`
	PlatformEarning decimal.Decimal  `json:"platform_earning"`
	TaxRemitted     decimal.Decimal  `json:"tax_remitted"`
	Status          SettlementStatus `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// SettlementSummary aggregates settlements over a period.
type SettlementSummary struct {
	From            string          `json:"from,omitempty"`
	To              string          `json:"to,omitempty"`
	Count           int             `json:"count"`
	PendingCount    int             `json:"pending_count"`
	SettledCount    int             `json:"settled_count"`
	FailedCount     int             `json:"failed_count"`
	DriverEarning   decimal.Decimal `json:"driver_earning"`
	PlatformEarning decimal.Decimal `json:"platform_earning"`
	TaxRemitted     decimal.Decimal `json:"tax_remitted"`
}
