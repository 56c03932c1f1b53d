package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanTIN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1234567890", "1234567890"},
		{"123-456-7890", "1234567890"},
		{" 0012 3456 78 ", "0012345678"},
		{"123", ""},
		{"", ""},
		{"0", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanTIN(tt.in), "input %q", tt.in)
	}
}

func TestCleanPhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"+251912345678", "+251912345678"},
		{"912345678", "+251912345678"},
		{"+251 912 345 678", "+251912345678"},
		{"0912-345-678", "+251912345678"},
		{"251912345678", "+251912345678"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanPhone(tt.in), "input %q", tt.in)
	}
}

func validTrip() models.TripData {
	return models.TripData{
		TripID:        "TRIP-1",
		Status:        "completed",
		Date:          "2025-09-01",
		Time:          "14:30:00",
		BaseFare:      decimal.NewFromInt(100),
		PaymentMethod: models.PaymentMethodCash,
		DriverName:    " Abebe Kebede ",
		DriverTIN:     "0012-345-678",
		DriverPhone:   "0912 345 678",
		RiderPhone:    "911223344",
		RiderTIN:      "0",
	}
}

func TestValidateTrip_NormalizesAndDefaults(t *testing.T) {
	trip := validTrip()

	require.NoError(t, ValidateTrip(&trip, decimal.RequireFromString("0.15")))

	assert.Equal(t, "Abebe Kebede", trip.DriverName)
	assert.Equal(t, "0012345678", trip.DriverTIN)
	assert.Equal(t, "+251912345678", trip.DriverPhone)
	assert.Equal(t, "+251911223344", trip.RiderPhone)
	assert.Empty(t, trip.RiderTIN)
	require.NotNil(t, trip.CommissionRate)
	assert.True(t, trip.CommissionRate.Equal(decimal.RequireFromString("0.15")))
}

func TestValidateTrip_CollectsFieldErrors(t *testing.T) {
	trip := validTrip()
	trip.TripID = ""
	trip.Date = "01-09-2025"
	trip.Time = "2pm"
	trip.Status = "in_progress"
	trip.DriverTIN = "12"
	rate := decimal.RequireFromString("1.5")
	trip.CommissionRate = &rate
	trip.PaymentMethod = "Card"

	err := ValidateTrip(&trip, decimal.Zero)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	var fieldErrs Errors
	require.True(t, errors.As(err, &fieldErrs))

	fields := map[string]bool{}
	for _, fe := range fieldErrs {
		fields[fe.Field] = true
	}
	for _, f := range []string{"trip_id", "trip_date", "trip_time", "status", "driver_tin", "commission_rate", "payment_method"} {
		assert.True(t, fields[f], "expected error for %s", f)
	}
}

func TestValidateTrip_NegativeFare(t *testing.T) {
	trip := validTrip()
	trip.BaseFare = decimal.NewFromInt(-1)

	err := ValidateTrip(&trip, decimal.Zero)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_fare")
}

func TestValidatePayment(t *testing.T) {
	req := models.PaymentRequest{
		InvoiceID:       "inv-1",
		PaymentMethod:   models.PaymentMethodBank,
		PaymentDate:     "2025-09-01",
		CollectedAmount: decimal.RequireFromString("132.25"),
	}
	err := ValidatePayment(&req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction_number")

	req.TransactionNumber = "FT123"
	assert.NoError(t, ValidatePayment(&req))
}
