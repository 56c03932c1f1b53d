package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
)

var ErrParsingFailed = errors.New("failed to parse trip file")

// requiredColumns must be present in the header of a trip export.
var requiredColumns = []string{"trip_id", "trip_date", "trip_time", "base_fare", "driver_name", "driver_tin"}

// RowError reports a record that could not be read. Line is 1-based and counts the header.
type RowError struct {
	Line    int    `json:"line"`
	TripID  string `json:"trip_id,omitempty"`
	Message string `json:"message"`
}

// CSVParser reads trip exports from the Taxiye dashboard.
type CSVParser interface {
	Parse(r io.Reader) ([]models.TripData, []RowError, error)
}

type csvParserImpl struct{}

func NewCSVParser() CSVParser {
	return &csvParserImpl{}
}

// Parse maps columns by header name, so column order is free and unknown columns
// are ignored. Rows that cannot be read are reported and skipped; a missing or
// incomplete header fails the whole file.
func (p *csvParserImpl) Parse(r io.Reader) ([]models.TripData, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: file is empty", ErrParsingFailed)
		}
		return nil, nil, fmt.Errorf("%w: read header: %v", ErrParsingFailed, err)
	}
	columns := indexHeader(header)
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: missing columns %s", ErrParsingFailed, strings.Join(missing, ", "))
	}

	var trips []models.TripData
	var rowErrs []RowError
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			line := 0
			if errors.As(err, &parseErr) {
				line = parseErr.StartLine
			}
			logger.L.Warn("Failed to read CSV record", "line", line, "error", err)
			rowErrs = append(rowErrs, RowError{Line: line, Message: err.Error()})
			continue
		}
		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}

		row := csvRow{columns: columns, record: record}
		trip, err := row.trip()
		if err != nil {
			logger.L.Warn("Failed to parse trip record", "line", line, "tripID", row.get("trip_id"), "error", err)
			rowErrs = append(rowErrs, RowError{Line: line, TripID: row.get("trip_id"), Message: err.Error()})
			continue
		}
		trips = append(trips, trip)
	}

	logger.L.Info("Trip file parsed", "trips", len(trips), "rejectedRows", len(rowErrs))
	return trips, rowErrs, nil
}

func indexHeader(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	return columns
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

type csvRow struct {
	columns map[string]int
	record  []string
}

func (r csvRow) get(column string) string {
	i, ok := r.columns[column]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r csvRow) trip() (models.TripData, error) {
	fare, err := decimal.NewFromString(r.get("base_fare"))
	if err != nil {
		return models.TripData{}, fmt.Errorf("base_fare %q is not a number", r.get("base_fare"))
	}

	trip := models.TripData{
		TripID:          r.get("trip_id"),
		InvoiceNumber:   r.get("invoice_number"),
		Status:          r.get("status"),
		Date:            r.get("trip_date"),
		Time:            r.get("trip_time"),
		BaseFare:        fare,
		PaymentMethod:   models.PaymentMethod(r.get("payment_method")),
		Description:     r.get("description"),
		PickupLocation:  r.get("pickup_location"),
		DropoffLocation: r.get("dropoff_location"),
		DriverID:        r.get("driver_id"),
		DriverName:      r.get("driver_name"),
		DriverTIN:       r.get("driver_tin"),
		DriverPhone:     r.get("driver_phone"),
		DriverEmail:     r.get("driver_email"),
		DriverAddress:   r.get("driver_address"),
		RiderName:       r.get("rider_name"),
		RiderPhone:      r.get("rider_phone"),
		RiderTIN:        r.get("rider_tin"),
	}
	// exports only carry completed trips and usually leave the column out
	if trip.Status == "" {
		trip.Status = "completed"
	}
	if trip.PaymentMethod == "" {
		trip.PaymentMethod = models.PaymentMethodCash
	}
	if raw := r.get("commission_rate"); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return models.TripData{}, fmt.Errorf("commission_rate %q is not a number", raw)
		}
		trip.CommissionRate = &rate
	}
	return trip, nil
}
