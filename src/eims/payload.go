package eims

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
)

const (
	transactionTypeB2C  = "B2C"
	payloadVersion      = "1"
	documentTypeInvoice = "INV"
	taxCodeVAT15        = "VAT15"
	unitPieces          = "PCS"
	natureService       = "service"
	paymentModeCash     = "CASH"
	paymentModeBank     = "BANK"

	receiptTypeSales    = "Sales Receipts"
	paymentCoverageFull = "FULL"
	// EIMS expects receipt timestamps in Ethiopian local time.
	eatOffset = "+03:00"
)

// InvoiceRequest is the body of POST /register. Field order mirrors the gateway
// documentation.
type InvoiceRequest struct {
	BuyerDetails     PartyDetails     `json:"BuyerDetails"`
	DocumentDetails  DocumentDetails  `json:"DocumentDetails"`
	ItemList         []Item           `json:"ItemList"`
	PaymentDetails   PaymentDetails   `json:"PaymentDetails"`
	ReferenceDetails ReferenceDetails `json:"ReferenceDetails"`
	SellerDetails    PartyDetails     `json:"SellerDetails"`
	SourceSystem     SourceSystem     `json:"SourceSystem"`
	ValueDetails     ValueDetails     `json:"ValueDetails"`
	TransactionType  string           `json:"TransactionType"`
	Version          string           `json:"Version"`
}

type PartyDetails struct {
	Tin       *string `json:"Tin"`
	LegalName string  `json:"LegalName"`
	Phone     string  `json:"Phone,omitempty"`
	Email     string  `json:"Email,omitempty"`
	Region    string  `json:"Region,omitempty"`
	City      string  `json:"City,omitempty"`
	Wereda    string  `json:"Wereda,omitempty"`
}

type DocumentDetails struct {
	DocumentNumber int64  `json:"DocumentNumber"`
	Date           string `json:"Date"`
	Type           string `json:"Type"`
}

type Item struct {
	LineNumber         int     `json:"LineNumber"`
	ItemCode           string  `json:"ItemCode"`
	ProductDescription string  `json:"ProductDescription"`
	NatureOfSupplies   string  `json:"NatureOfSupplies"`
	Quantity           int     `json:"Quantity"`
	Unit               string  `json:"Unit"`
	UnitPrice          float64 `json:"UnitPrice"`
	TaxAmount          float64 `json:"TaxAmount"`
	TaxCode            string  `json:"TaxCode"`
	TotalLineAmount    float64 `json:"TotalLineAmount"`
}

type PaymentDetails struct {
	Mode string `json:"Mode"`
}

type ReferenceDetails struct {
	PreviousIrn     *string `json:"PreviousIrn"`
	RelatedDocument *string `json:"RelatedDocument"`
}

type SourceSystem struct {
	SystemType     string `json:"SystemType"`
	SystemNumber   string `json:"SystemNumber"`
	InvoiceCounter int64  `json:"InvoiceCounter"`
}

type ValueDetails struct {
	TotalValue      float64 `json:"TotalValue"`
	TaxValue        float64 `json:"TaxValue"`
	InvoiceCurrency string  `json:"InvoiceCurrency"`
}

// InvoiceInput gathers everything needed to shape a register payload.
type InvoiceInput struct {
	Trip     models.TripData
	Amounts  models.Amounts
	Seller   models.Settings
	Currency string
}

// BuildInvoiceRequest shapes a register payload without sequence values; call
// WithSequence before submitting.
func BuildInvoiceRequest(in InvoiceInput) InvoiceRequest {
	return InvoiceRequest{
		BuyerDetails:     buyerDetails(in.Trip),
		DocumentDetails:  DocumentDetails{Date: in.Trip.Date, Type: documentTypeInvoice},
		ItemList:         itemList(in.Trip, in.Amounts),
		PaymentDetails:   paymentDetails(in.Trip.PaymentMethod),
		ReferenceDetails: ReferenceDetails{},
		SellerDetails:    sellerDetails(in.Trip),
		SourceSystem: SourceSystem{
			SystemType:   in.Seller.SystemType,
			SystemNumber: in.Seller.SystemNumber,
		},
		ValueDetails: ValueDetails{
			TotalValue:      amount(in.Amounts.TotalAmount),
			TaxValue:        amount(in.Amounts.VATAmount),
			InvoiceCurrency: in.Currency,
		},
		TransactionType: transactionTypeB2C,
		Version:         payloadVersion,
	}
}

// WithSequence returns a copy of r carrying the given counters and previous IRN.
func (r InvoiceRequest) WithSequence(seq models.Sequence) InvoiceRequest {
	r.DocumentDetails.DocumentNumber = seq.DocumentNumber
	r.SourceSystem.InvoiceCounter = seq.InvoiceCounter
	r.ReferenceDetails.PreviousIrn = seq.PreviousIRN
	return r
}

// Sequence reports the counters carried by r.
func (r InvoiceRequest) Sequence() models.Sequence {
	return models.Sequence{
		DocumentNumber: r.DocumentDetails.DocumentNumber,
		InvoiceCounter: r.SourceSystem.InvoiceCounter,
		PreviousIRN:    r.ReferenceDetails.PreviousIrn,
	}
}

func buyerDetails(trip models.TripData) PartyDetails {
	return PartyDetails{
		Tin:       optionalTIN(trip.RiderTIN),
		LegalName: trip.RiderName,
		Phone:     trip.RiderPhone,
	}
}

// The driver is the supplier of the ride; the platform files on their behalf.
func sellerDetails(trip models.TripData) PartyDetails {
	return PartyDetails{
		Tin:       optionalTIN(trip.DriverTIN),
		LegalName: trip.DriverName,
		Phone:     trip.DriverPhone,
		Email:     trip.DriverEmail,
		City:      trip.DriverAddress,
	}
}

func itemList(trip models.TripData, a models.Amounts) []Item {
	description := trip.Description
	if description == "" {
		description = "Taxi service"
		if trip.PickupLocation != "" && trip.DropoffLocation != "" {
			description = fmt.Sprintf("Taxi service %s - %s", trip.PickupLocation, trip.DropoffLocation)
		}
	}
	return []Item{{
		LineNumber:         1,
		ItemCode:           trip.TripID,
		ProductDescription: description,
		NatureOfSupplies:   natureService,
		Quantity:           1,
		Unit:               unitPieces,
		UnitPrice:          amount(a.BaseFare.Add(a.CommissionAmount)),
		TaxAmount:          amount(a.VATAmount),
		TaxCode:            taxCodeVAT15,
		TotalLineAmount:    amount(a.TotalAmount),
	}}
}

func paymentDetails(method models.PaymentMethod) PaymentDetails {
	return PaymentDetails{Mode: paymentMode(method)}
}

func paymentMode(method models.PaymentMethod) string {
	if method == models.PaymentMethodBank {
		return paymentModeBank
	}
	return paymentModeCash
}

func optionalTIN(tin string) *string {
	if tin == "" || tin == "0" {
		return nil
	}
	return &tin
}

func amount(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// ReceiptRequest is the body of POST /receipt/sales.
type ReceiptRequest struct {
	ReceiptNumber       string             `json:"ReceiptNumber"`
	ReceiptType         string             `json:"ReceiptType"`
	Reason              string             `json:"Reason"`
	ReceiptDate         string             `json:"ReceiptDate"`
	ReceiptCounter      string             `json:"ReceiptCounter"`
	ManualReceiptNumber string             `json:"ManualReceiptNumber"`
	SourceSystemType    string             `json:"SourceSystemType"`
	SourceSystemNumber  string             `json:"SourceSystemNumber"`
	PaymentMode         string             `json:"PaymentMode"`
	ReceiptCurrency     string             `json:"ReceiptCurrency"`
	SellerTIN           string             `json:"SellerTIN"`
	Invoices            []ReceiptInvoice   `json:"Invoices"`
	TransactionDetails  TransactionDetails `json:"TransactionDetails"`
}

type ReceiptInvoice struct {
	InvoiceIRN      string   `json:"InvoiceIRN"`
	PaymentCoverage string   `json:"PaymentCoverage"`
	RemainingAmount *float64 `json:"RemainingAmount"`
	TotalAmount     float64  `json:"TotalAmount"`
}

type TransactionDetails struct {
	ModeOfPayment          string `json:"ModeOfPayment"`
	DocumentNumber         int64  `json:"DocumentNumber"`
	PaymentServiceProvider string `json:"PaymentServiceProvider"`
	AccountNumber          string `json:"AccountNumber"`
	TransactionNumber      string `json:"TransactionNumber"`
}

// ReceiptInput gathers everything needed to shape a sales receipt.
type ReceiptInput struct {
	Invoice       models.InvoiceRecord
	Payment       models.PaymentRequest
	Seller        models.Settings
	ReceiptNumber string
	Counter       int64
	Currency      string
}

func BuildReceiptRequest(in ReceiptInput) ReceiptRequest {
	reason := in.Payment.Reason
	if reason == "" {
		reason = "Payment for taxi service"
	}
	counter := strconv.FormatInt(in.Counter, 10)
	provider := in.Payment.PaymentServiceProvider
	if provider == "" {
		provider = string(in.Payment.PaymentMethod)
	}

	return ReceiptRequest{
		ReceiptNumber:       in.ReceiptNumber,
		ReceiptType:         receiptTypeSales,
		Reason:              reason,
		ReceiptDate:         in.Payment.PaymentDate + "T00:00:00" + eatOffset,
		ReceiptCounter:      counter,
		ManualReceiptNumber: counter,
		SourceSystemType:    in.Seller.SystemType,
		SourceSystemNumber:  in.Seller.SystemNumber,
		PaymentMode:         paymentMode(in.Payment.PaymentMethod),
		ReceiptCurrency:     in.Currency,
		SellerTIN:           in.Seller.SellerTIN,
		Invoices: []ReceiptInvoice{{
			InvoiceIRN:      in.Invoice.IRN,
			PaymentCoverage: paymentCoverageFull,
			TotalAmount:     amount(in.Invoice.TotalAmount),
		}},
		TransactionDetails: TransactionDetails{
			ModeOfPayment:          strings.ToUpper(string(in.Payment.PaymentMethod)),
			DocumentNumber:         in.Invoice.DocumentNumber,
			PaymentServiceProvider: provider,
			AccountNumber:          in.Payment.AccountNumber,
			TransactionNumber:      in.Payment.TransactionNumber,
		},
	}
}
