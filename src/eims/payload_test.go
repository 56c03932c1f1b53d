package eims

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrip() models.TripData {
	return models.TripData{
		TripID:          "TRIP-1001",
		Status:          "completed",
		Date:            "2025-09-01",
		Time:            "10:15:00",
		BaseFare:        decimal.NewFromInt(100),
		PaymentMethod:   models.PaymentMethodCash,
		PickupLocation:  "Bole",
		DropoffLocation: "Piassa",
		DriverName:      "Abebe Kebede",
		DriverTIN:       "0012345678",
		DriverPhone:     "+251912345678",
		DriverAddress:   "Addis Ababa",
		RiderName:       "Sara Tesfaye",
		RiderPhone:      "+251911223344",
	}
}

func sampleAmounts() models.Amounts {
	return models.Amounts{
		BaseFare:         decimal.NewFromInt(100),
		CommissionAmount: decimal.NewFromInt(15),
		VATAmount:        decimal.RequireFromString("17.25"),
		TotalAmount:      decimal.RequireFromString("132.25"),
	}
}

func sampleSeller() models.Settings {
	return models.Settings{
		SellerTIN:    "0098765432",
		LegalName:    "Taxiye Technologies",
		SystemNumber: "SYS-01",
		SystemType:   "POS",
	}
}

func TestBuildInvoiceRequest_Golden(t *testing.T) {
	irn := "IRN-7"
	req := BuildInvoiceRequest(InvoiceInput{
		Trip:     sampleTrip(),
		Amounts:  sampleAmounts(),
		Seller:   sampleSeller(),
		Currency: "ETB",
	}).WithSequence(models.Sequence{DocumentNumber: 8, InvoiceCounter: 8, PreviousIRN: &irn})

	got, err := json.MarshalIndent(req, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "register_payload", got)
}

func TestInvoiceRequest_WithSequenceDoesNotMutateOriginal(t *testing.T) {
	base := BuildInvoiceRequest(InvoiceInput{Trip: sampleTrip(), Amounts: sampleAmounts(), Seller: sampleSeller(), Currency: "ETB"})

	first := base.WithSequence(models.Sequence{DocumentNumber: 1, InvoiceCounter: 1})
	second := base.WithSequence(models.Sequence{DocumentNumber: 12, InvoiceCounter: 13})

	assert.Equal(t, int64(0), base.DocumentDetails.DocumentNumber)
	assert.Equal(t, models.Sequence{DocumentNumber: 1, InvoiceCounter: 1}, first.Sequence())
	assert.Equal(t, int64(12), second.DocumentDetails.DocumentNumber)
	assert.Equal(t, int64(13), second.SourceSystem.InvoiceCounter)
	assert.Nil(t, first.ReferenceDetails.PreviousIrn)
}

func TestBuildInvoiceRequest_DescriptionAndPaymentMode(t *testing.T) {
	trip := sampleTrip()
	trip.Description = "Airport transfer"
	trip.PaymentMethod = models.PaymentMethodBank
	trip.RiderTIN = "0011223344"

	req := BuildInvoiceRequest(InvoiceInput{Trip: trip, Amounts: sampleAmounts(), Seller: sampleSeller(), Currency: "ETB"})
	assert.Equal(t, "Airport transfer", req.ItemList[0].ProductDescription)
	assert.Equal(t, "BANK", req.PaymentDetails.Mode)
	require.NotNil(t, req.BuyerDetails.Tin)
	assert.Equal(t, "0011223344", *req.BuyerDetails.Tin)

	trip.Description = ""
	trip.PickupLocation = ""
	req = BuildInvoiceRequest(InvoiceInput{Trip: trip, Amounts: sampleAmounts(), Seller: sampleSeller(), Currency: "ETB"})
	assert.Equal(t, "Taxi service", req.ItemList[0].ProductDescription)
}

func TestBuildReceiptRequest(t *testing.T) {
	invoice := models.InvoiceRecord{
		ID:             "inv-1",
		DocumentNumber: 8,
		IRN:            "IRN-8",
		TotalAmount:    decimal.RequireFromString("132.25"),
	}
	payment := models.PaymentRequest{
		InvoiceID:         "inv-1",
		PaymentMethod:     models.PaymentMethodBank,
		PaymentDate:       "2025-09-02",
		CollectedAmount:   decimal.RequireFromString("132.25"),
		AccountNumber:     "1000123",
		TransactionNumber: "FT2509020001",
	}

	req := BuildReceiptRequest(ReceiptInput{
		Invoice:       invoice,
		Payment:       payment,
		Seller:        sampleSeller(),
		ReceiptNumber: "RCPT-3",
		Counter:       3,
		Currency:      "ETB",
	})

	assert.Equal(t, "Sales Receipts", req.ReceiptType)
	assert.Equal(t, "Payment for taxi service", req.Reason)
	assert.Equal(t, "2025-09-02T00:00:00+03:00", req.ReceiptDate)
	assert.Equal(t, "3", req.ReceiptCounter)
	assert.Equal(t, "3", req.ManualReceiptNumber)
	assert.Equal(t, "BANK", req.PaymentMode)
	assert.Equal(t, "0098765432", req.SellerTIN)
	require.Len(t, req.Invoices, 1)
	assert.Equal(t, "IRN-8", req.Invoices[0].InvoiceIRN)
	assert.Equal(t, "FULL", req.Invoices[0].PaymentCoverage)
	assert.Equal(t, 132.25, req.Invoices[0].TotalAmount)
	assert.Equal(t, "BANK", req.TransactionDetails.ModeOfPayment)
	assert.Equal(t, "Bank", req.TransactionDetails.PaymentServiceProvider)
	assert.Equal(t, int64(8), req.TransactionDetails.DocumentNumber)
}
