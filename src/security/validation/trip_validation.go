package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
)

// ErrInvalidInput is matched by every error returned from this package.
var ErrInvalidInput = errors.New("invalid input")

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
)

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors collects all field errors of a request.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e Errors) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e *Errors) add(field, value, message string) {
	*e = append(*e, FieldError{Field: field, Value: value, Message: message})
}

func (e Errors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// ValidateTrip checks a completed-trip notification and normalizes it in place:
// TINs are reduced to digits, phones to +251 form and free text is cleaned.
// A missing commission rate is replaced by defaultRate.
func ValidateTrip(trip *models.TripData, defaultRate decimal.Decimal) error {
	var errs Errors

	trip.TripID = strings.TrimSpace(trip.TripID)
	if trip.TripID == "" {
		errs.add("trip_id", "", "required field is missing")
	}

	trip.DriverName = CleanText(trip.DriverName)
	if trip.DriverName == "" {
		errs.add("driver_name", "", "required field is missing")
	}

	rawTIN := trip.DriverTIN
	trip.DriverTIN = CleanTIN(rawTIN)
	switch {
	case strings.TrimSpace(rawTIN) == "":
		errs.add("driver_tin", "", "required field is missing")
	case trip.DriverTIN == "" || len(trip.DriverTIN) > maxTINLength:
		errs.add("driver_tin", rawTIN, "invalid TIN number format")
	}

	if rawRiderTIN := strings.TrimSpace(trip.RiderTIN); rawRiderTIN != "" && rawRiderTIN != "0" {
		trip.RiderTIN = CleanTIN(rawRiderTIN)
		if trip.RiderTIN == "" || len(trip.RiderTIN) > maxTINLength {
			errs.add("rider_tin", rawRiderTIN, "invalid TIN number format")
		}
	} else {
		trip.RiderTIN = ""
	}

	trip.DriverPhone = validatePhone(&errs, "driver_phone", trip.DriverPhone, true)
	trip.RiderPhone = validatePhone(&errs, "rider_phone", trip.RiderPhone, false)

	trip.RiderName = CleanText(trip.RiderName)
	trip.Description = CleanText(trip.Description)
	trip.DriverEmail = strings.TrimSpace(trip.DriverEmail)

	if !datePattern.MatchString(trip.Date) {
		errs.add("trip_date", trip.Date, "trip date must be in YYYY-MM-DD format")
	} else if _, err := time.Parse("2006-01-02", trip.Date); err != nil {
		errs.add("trip_date", trip.Date, "invalid date")
	}
	if !timePattern.MatchString(trip.Time) {
		errs.add("trip_time", trip.Time, "trip time must be in HH:MM:SS format")
	} else if _, err := time.Parse("15:04:05", trip.Time); err != nil {
		errs.add("trip_time", trip.Time, "invalid time")
	}

	if !strings.EqualFold(strings.TrimSpace(trip.Status), "completed") {
		errs.add("status", trip.Status, "only completed trips can be invoiced")
	}

	if trip.BaseFare.IsNegative() {
		errs.add("base_fare", trip.BaseFare.String(), "invalid amount value")
	}

	if trip.CommissionRate == nil {
		rate := defaultRate
		trip.CommissionRate = &rate
	}
	if trip.CommissionRate.IsNegative() || trip.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		errs.add("commission_rate", trip.CommissionRate.String(), "commission rate must be between 0.0 and 1.0")
	}

	if err := ValidatePaymentMethod(trip.PaymentMethod); err != nil {
		errs.add("payment_method", string(trip.PaymentMethod), "payment method must be Cash or Bank")
	}

	return errs.orNil()
}

// ValidatePayment checks a payment request before a receipt is issued.
func ValidatePayment(req *models.PaymentRequest) error {
	var errs Errors

	if strings.TrimSpace(req.InvoiceID) == "" && strings.TrimSpace(req.TripID) == "" {
		errs.add("invoice_id", "", "invoice_id or trip_id is required")
	}
	if err := ValidatePaymentMethod(req.PaymentMethod); err != nil {
		errs.add("payment_method", string(req.PaymentMethod), "payment method must be Cash or Bank")
	}
	if !datePattern.MatchString(req.PaymentDate) {
		errs.add("payment_date", req.PaymentDate, "payment date must be in YYYY-MM-DD format")
	}
	if !req.CollectedAmount.IsPositive() {
		errs.add("collected_amount", req.CollectedAmount.String(), "invalid amount value")
	}
	if req.PaymentMethod == models.PaymentMethodBank && strings.TrimSpace(req.TransactionNumber) == "" {
		errs.add("transaction_number", "", "bank payments require a transaction number")
	}

	return errs.orNil()
}

func ValidatePaymentMethod(m models.PaymentMethod) error {
	if m == models.PaymentMethodCash || m == models.PaymentMethodBank {
		return nil
	}
	return FieldError{Field: "payment_method", Value: string(m), Message: "payment method must be Cash or Bank"}
}

func validatePhone(errs *Errors, field, raw string, required bool) string {
	if strings.TrimSpace(raw) == "" {
		if required {
			errs.add(field, "", "required field is missing")
		}
		return ""
	}
	cleaned := CleanPhone(raw)
	if len(cleaned) < minPhoneLength || len(cleaned) > maxPhoneLength {
		errs.add(field, raw, "invalid phone number format")
	}
	return cleaned
}
