package services

import (
	"context"
	"errors"
	"io"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/eims"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/model"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/parsers"
)

type ImportOutcome string

const (
	ImportInvoiced         ImportOutcome = "invoiced"
	ImportAlreadyProcessed ImportOutcome = "already_processed"
	ImportFailed           ImportOutcome = "failed"
	ImportSkipped          ImportOutcome = "skipped"
)

type ImportedTrip struct {
	TripID  string        `json:"trip_id"`
	Outcome ImportOutcome `json:"outcome"`
	IRN     string        `json:"irn,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// ImportResult summarizes a trip backfill. Rejected lists rows that could not be
// parsed; Trips lists every parsed trip in file order.
type ImportResult struct {
	Invoiced         int                `json:"invoiced"`
	AlreadyProcessed int                `json:"already_processed"`
	Failed           int                `json:"failed"`
	Skipped          int                `json:"skipped"`
	Rejected         []parsers.RowError `json:"rejected,omitempty"`
	Trips            []ImportedTrip     `json:"trips"`
	StopReason       string             `json:"stop_reason,omitempty"`
}

type ImportService interface {
	ImportTrips(ctx context.Context, r io.Reader) (*ImportResult, error)
}

type importServiceImpl struct {
	parser   parsers.CSVParser
	invoices InvoiceService
}

func NewImportService(parser parsers.CSVParser, invoices InvoiceService) ImportService {
	return &importServiceImpl{parser: parser, invoices: invoices}
}

// ImportTrips invoices every trip of a CSV export in file order. A trip that
// fails on its own is recorded and the import moves on; errors that would fail
// every following trip too stop the import and leave the rest skipped.
func (s *importServiceImpl) ImportTrips(ctx context.Context, r io.Reader) (*ImportResult, error) {
	trips, rejected, err := s.parser.Parse(r)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	res := &ImportResult{Rejected: rejected, Trips: make([]ImportedTrip, 0, len(trips))}

	for i, trip := range trips {
		if res.StopReason != "" {
			res.Trips = append(res.Trips, ImportedTrip{TripID: trip.TripID, Outcome: ImportSkipped})
			res.Skipped++
			continue
		}

		out, err := s.invoices.ProcessTrip(ctx, trip)
		switch {
		case err == nil && out.AlreadyProcessed:
			res.Trips = append(res.Trips, ImportedTrip{TripID: trip.TripID, Outcome: ImportAlreadyProcessed, IRN: out.Invoice.IRN})
			res.AlreadyProcessed++
		case err == nil:
			res.Trips = append(res.Trips, ImportedTrip{TripID: trip.TripID, Outcome: ImportInvoiced, IRN: out.Invoice.IRN})
			res.Invoiced++
		default:
			res.Trips = append(res.Trips, ImportedTrip{TripID: trip.TripID, Outcome: ImportFailed, Error: err.Error()})
			res.Failed++
			if stopsImport(err) {
				res.StopReason = err.Error()
				log.Error("Trip import stopped", "tripID", trip.TripID, "position", i+1, "remaining", len(trips)-i-1, "error", err)
			} else {
				log.Warn("Trip import row failed", "tripID", trip.TripID, "error", err)
			}
		}
	}

	log.Info("Trip import finished", "invoiced", res.Invoiced, "alreadyProcessed", res.AlreadyProcessed,
		"failed", res.Failed, "skipped", res.Skipped, "rejectedRows", len(res.Rejected))
	return res, nil
}

func stopsImport(err error) bool {
	return errors.Is(err, ErrReconciliationRequired) ||
		errors.Is(err, ErrRetriesExhausted) ||
		errors.Is(err, model.ErrSettingsNotConfigured) ||
		errors.Is(err, eims.ErrGatewayUnavailable) ||
		errors.Is(err, eims.ErrAuthenticationFailed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
