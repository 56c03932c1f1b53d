package models

import "github.com/shopspring/decimal"

// TripData is the completed-trip notification sent by the Taxiye platform.
type TripData struct {
	TripID         string           `json:"trip_id"`
	InvoiceNumber  string           `json:"invoice_number"`
	Status         string           `json:"status"`
	Date           string           `json:"trip_date"`
	Time           string           `json:"trip_time"`
	BaseFare       decimal.Decimal  `json:"base_fare"`
	CommissionRate *decimal.Decimal `json:"commission_rate"`
	PaymentMethod  PaymentMethod    `json:"payment_method"`
	Description    string           `json:"description"`

	PickupLocation  string `json:"pickup_location"`
	DropoffLocation string `json:"dropoff_location"`

	DriverID      string `json:"driver_id"`
	DriverName    string `json:"driver_name"`
	DriverTIN     string `json:"driver_tin"`
	DriverPhone   string `json:"driver_phone"`
	DriverEmail   string `json:"driver_email"`
	DriverAddress string `json:"driver_address"`

	RiderName  string `json:"rider_name"`
	RiderPhone string `json:"rider_phone"`
	RiderTIN   string `json:"rider_tin"`
}

// Amounts is the full monetary breakdown of a trip. The four values are always
// produced together by the settlement calculator.
type Amounts struct {
	BaseFare         decimal.Decimal `json:"base_fare"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	VATAmount        decimal.Decimal `json:"vat_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
}

// Settings is the seller's fiscal identity and EIMS credentials.
type Settings struct {
	SellerTIN    string `json:"seller_tin"`
	LegalName    string `json:"legal_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Region       string `json:"region"`
	City         string `json:"city"`
	SystemNumber string `json:"system_number"`
	SystemType   string `json:"system_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"-"`
	APIKey       string `json:"-"`
}

// TripStatus is everything known about a trip.
type TripStatus struct {
	TripID     string            `json:"trip_id"`
	Invoice    *InvoiceRecord    `json:"invoice"`
	Receipt    *ReceiptRecord    `json:"receipt,omitempty"`
	Settlement *SettlementRecord `json:"settlement,omitempty"`
}
