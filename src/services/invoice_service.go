package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/eims"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/model"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/processors"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/security/validation"
)

// SettingsProvider returns the seller's fiscal identity and credentials.
type SettingsProvider interface {
	Get(ctx context.Context) (*models.Settings, error)
}

// ReceiptFinder looks up the receipt issued for an invoice.
type ReceiptFinder interface {
	FindAcknowledgedByInvoiceID(ctx context.Context, invoiceID string) (*models.ReceiptRecord, error)
}

// TripResult is the outcome of invoicing a completed trip.
type TripResult struct {
	Invoice          *models.InvoiceRecord    `json:"invoice"`
	Settlement       *models.SettlementRecord `json:"settlement,omitempty"`
	AlreadyProcessed bool                     `json:"already_processed"`
	Attempts         int                      `json:"attempts,omitempty"`
}

// PreviewResult is a register payload built without submitting it.
type PreviewResult struct {
	Sequence models.Sequence     `json:"sequence"`
	Amounts  models.Amounts      `json:"amounts"`
	Payload  eims.InvoiceRequest `json:"payload"`
}

type InvoiceService interface {
	ProcessTrip(ctx context.Context, trip models.TripData) (*TripResult, error)
	Preview(ctx context.Context, trip models.TripData, sequence *models.Sequence) (*PreviewResult, error)
	GetTripStatus(ctx context.Context, tripID string) (*models.TripStatus, error)
}

type InvoiceServiceConfig struct {
	DefaultCommissionRate decimal.Decimal
	Currency              string
}

type invoiceServiceImpl struct {
	reconciler  *Reconciler
	invoices    SequenceStore
	calculator  processors.SettlementProcessor
	settings    SettingsProvider
	settlements SettlementService
	receipts    ReceiptFinder
	defaultRate decimal.Decimal
	currency    string
}

func NewInvoiceService(
	cfg InvoiceServiceConfig,
	reconciler *Reconciler,
	invoices SequenceStore,
	calculator processors.SettlementProcessor,
	settings SettingsProvider,
	settlements SettlementService,
	receipts ReceiptFinder,
) InvoiceService {
	return &invoiceServiceImpl{
		reconciler:  reconciler,
		invoices:    invoices,
		calculator:  calculator,
		settings:    settings,
		settlements: settlements,
		receipts:    receipts,
		defaultRate: cfg.DefaultCommissionRate,
		currency:    cfg.Currency,
	}
}

// ProcessTrip validates a completed trip, registers its invoice with EIMS and
// records the settlement. Repeating a trip returns the stored invoice.
func (s *invoiceServiceImpl) ProcessTrip(ctx context.Context, trip models.TripData) (*TripResult, error) {
	// A redelivered trip is answered from the stored invoice even when the
	// payload or the seller settings would no longer validate.
	if tripID := strings.TrimSpace(trip.TripID); tripID != "" {
		existing, err := s.invoices.FindByTripID(ctx, tripID)
		switch {
		case err == nil:
			logger.FromContext(ctx).Info("Trip already invoiced, returning stored invoice",
				"tripID", tripID, "irn", existing.IRN)
			return s.tripResult(ctx, &ReconcileResult{Invoice: existing, AlreadyProcessed: true}), nil
		case !errors.Is(err, model.ErrNotFound):
			return nil, fmt.Errorf("check existing invoice: %w", err)
		}
	}

	draft, _, err := s.prepare(ctx, &trip)
	if err != nil {
		return nil, err
	}

	res, err := s.reconciler.Reconcile(ctx, *draft)
	if err != nil {
		return nil, err
	}
	return s.tripResult(ctx, res), nil
}

func (s *invoiceServiceImpl) tripResult(ctx context.Context, res *ReconcileResult) *TripResult {

	// Settlements are written after the invoice and looked up again on repeats,
	// so a trip whose settlement write failed is completed on its next delivery.
	settlement, err := s.settlements.RecordForInvoice(ctx, res.Invoice)
	if err != nil {
		logger.FromContext(ctx).Error("Invoice registered but settlement could not be recorded",
			"tripID", res.Invoice.TripID, "invoiceID", res.Invoice.ID, "error", err)
	}

	return &TripResult{
		Invoice:          res.Invoice,
		Settlement:       settlement,
		AlreadyProcessed: res.AlreadyProcessed,
		Attempts:         res.Attempts,
	}
}

// Preview builds the register payload for a trip. Without an explicit sequence
// it uses the counters the next live submission would start from.
func (s *invoiceServiceImpl) Preview(ctx context.Context, trip models.TripData, sequence *models.Sequence) (*PreviewResult, error) {
	draft, amounts, err := s.prepare(ctx, &trip)
	if err != nil {
		return nil, err
	}

	var seq models.Sequence
	if sequence != nil {
		seq = *sequence
	} else if seq, err = s.reconciler.NextSequence(ctx); err != nil {
		return nil, fmt.Errorf("read latest sequence: %w", err)
	}

	return &PreviewResult{
		Sequence: seq,
		Amounts:  amounts,
		Payload:  draft.Request.WithSequence(seq),
	}, nil
}

func (s *invoiceServiceImpl) GetTripStatus(ctx context.Context, tripID string) (*models.TripStatus, error) {
	inv, err := s.invoices.FindByTripID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	status := &models.TripStatus{TripID: tripID, Invoice: inv}

	receipt, err := s.receipts.FindAcknowledgedByInvoiceID(ctx, inv.ID)
	switch {
	case err == nil:
		status.Receipt = receipt
	case !errors.Is(err, model.ErrNotFound):
		return nil, err
	}

	if inv.Status == models.InvoiceStatusCompleted {
		settlement, err := s.settlements.RecordForInvoice(ctx, inv)
		if err != nil {
			return nil, err
		}
		status.Settlement = settlement
	}
	return status, nil
}

// prepare validates the trip and shapes the draft submitted by the Reconciler.
func (s *invoiceServiceImpl) prepare(ctx context.Context, trip *models.TripData) (*Draft, models.Amounts, error) {
	if err := validation.ValidateTrip(trip, s.defaultRate); err != nil {
		return nil, models.Amounts{}, err
	}

	amounts, err := s.calculator.Calculate(trip.BaseFare, *trip.CommissionRate)
	if err != nil {
		return nil, models.Amounts{}, fmt.Errorf("%w: %v", validation.ErrInvalidInput, err)
	}

	seller, err := s.settings.Get(ctx)
	if err != nil {
		return nil, models.Amounts{}, fmt.Errorf("load EIMS settings: %w", err)
	}

	req := eims.BuildInvoiceRequest(eims.InvoiceInput{
		Trip:     *trip,
		Amounts:  amounts,
		Seller:   *seller,
		Currency: s.currency,
	})

	record := models.InvoiceRecord{
		InvoiceNumber:    trip.InvoiceNumber,
		BaseFare:         amounts.BaseFare,
		CommissionAmount: amounts.CommissionAmount,
		VATAmount:        amounts.VATAmount,
		TotalAmount:      amounts.TotalAmount,
		Driver: models.Party{
			Name:  trip.DriverName,
			TIN:   trip.DriverTIN,
			Phone: trip.DriverPhone,
			Email: trip.DriverEmail,
			City:  trip.DriverAddress,
		},
		Rider: models.Party{
			Name:  trip.RiderName,
			TIN:   trip.RiderTIN,
			Phone: trip.RiderPhone,
		},
		Description: req.ItemList[0].ProductDescription,
		TripDate:    trip.Date,
	}

	return &Draft{TripID: trip.TripID, Request: req, Record: record}, amounts, nil
}
