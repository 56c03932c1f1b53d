package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/eims"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/model"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/security/validation"
)

const receiptNumberFormat = "RCPT-%06d"

// InvoiceLookup is the invoice access needed to issue receipts.
type InvoiceLookup interface {
	FindByID(ctx context.Context, id string) (*models.InvoiceRecord, error)
	FindByTripID(ctx context.Context, tripID string) (*models.InvoiceRecord, error)
	MarkPaid(ctx context.Context, id string) error
}

// ReceiptStore is implemented by model.ReceiptRepository.
type ReceiptStore interface {
	ReceiptFinder
	NextCounter(ctx context.Context) (int64, error)
	Create(ctx context.Context, rec *models.ReceiptRecord) error
}

type PaymentResult struct {
	Invoice          *models.InvoiceRecord `json:"invoice"`
	Receipt          *models.ReceiptRecord `json:"receipt"`
	AlreadyProcessed bool                  `json:"already_processed"`
}

type PaymentService interface {
	ProcessPayment(ctx context.Context, req models.PaymentRequest) (*PaymentResult, error)
}

type paymentServiceImpl struct {
	invoices InvoiceLookup
	receipts ReceiptStore
	settings SettingsProvider
	gateway  eims.Gateway
	alerts   AlertService
	currency string

	// receipt counters are a dense local sequence; one submission at a time
	mu sync.Mutex
}

func NewPaymentService(invoices InvoiceLookup, receipts ReceiptStore, settings SettingsProvider,
	gateway eims.Gateway, alerts AlertService, currency string) PaymentService {
	if alerts == nil {
		alerts = &MockAlertService{}
	}
	return &paymentServiceImpl{
		invoices: invoices,
		receipts: receipts,
		settings: settings,
		gateway:  gateway,
		alerts:   alerts,
		currency: currency,
	}
}

// ProcessPayment issues the EIMS sales receipt for a fully paid invoice. The
// collected amount must equal the invoice total; a mismatch is rejected before
// anything is sent.
func (s *paymentServiceImpl) ProcessPayment(ctx context.Context, req models.PaymentRequest) (*PaymentResult, error) {
	if err := validation.ValidatePayment(&req); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)

	inv, err := s.findInvoice(ctx, req)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceStatusCompleted || inv.IRN == "" {
		return nil, fmt.Errorf("%w: invoice %s is %s", ErrInvoiceNotPayable, inv.ID, inv.Status)
	}
	if !req.CollectedAmount.Equal(inv.TotalAmount) {
		return nil, fmt.Errorf("%w: collected %s, invoice total %s",
			ErrAmountMismatch, req.CollectedAmount.String(), inv.TotalAmount.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.receipts.FindAcknowledgedByInvoiceID(ctx, inv.ID)
	switch {
	case err == nil:
		log.Info("Invoice already has a receipt", "invoiceID", inv.ID, "rrn", existing.RRN)
		return &PaymentResult{Invoice: inv, Receipt: existing, AlreadyProcessed: true}, nil
	case !errors.Is(err, model.ErrNotFound):
		return nil, err
	}

	seller, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load EIMS settings: %w", err)
	}
	counter, err := s.receipts.NextCounter(ctx)
	if err != nil {
		return nil, err
	}
	receiptNumber := fmt.Sprintf(receiptNumberFormat, counter)

	ack, err := s.gateway.SubmitReceipt(ctx, eims.BuildReceiptRequest(eims.ReceiptInput{
		Invoice:       *inv,
		Payment:       req,
		Seller:        *seller,
		ReceiptNumber: receiptNumber,
		Counter:       counter,
		Currency:      s.currency,
	}))
	if err != nil {
		log.Error("EIMS rejected receipt", "invoiceID", inv.ID, "receiptCounter", counter, "error", err)
		return nil, fmt.Errorf("submit receipt for invoice %s: %w", inv.ID, err)
	}

	rec := &models.ReceiptRecord{
		ID:              uuid.NewString(),
		InvoiceID:       inv.ID,
		ReceiptNumber:   receiptNumber,
		ReceiptCounter:  counter,
		RRN:             ack.RRN,
		QR:              ack.QR,
		PaymentMethod:   req.PaymentMethod,
		CollectedAmount: req.CollectedAmount,
		Status:          models.ReceiptStatusAcknowledged,
		CreatedAt:       time.Now().UTC(),
	}
	storeCtx := context.WithoutCancel(ctx)
	if err := s.receipts.Create(storeCtx, rec); err != nil {
		log.Error("EIMS acknowledged receipt but it could not be stored",
			"reconciliation_required", true, "invoiceID", inv.ID, "rrn", ack.RRN,
			"receiptCounter", counter, "error", err)
		alert := ReconciliationAlert{
			Kind:           "receipt",
			TripID:         inv.TripID,
			DocumentNumber: inv.DocumentNumber,
			InvoiceCounter: inv.InvoiceCounter,
			Reference:      ack.RRN,
			Cause:          err,
			OccurredAt:     time.Now(),
		}
		if alertErr := s.alerts.SendReconciliationAlert(alert); alertErr != nil {
			logger.L.Error("Failed to send reconciliation alert", "error", alertErr, "rrn", ack.RRN)
		}
		return nil, fmt.Errorf("%w: invoice %s, rrn %s: %w", ErrReconciliationRequired, inv.ID, ack.RRN, err)
	}

	if err := s.invoices.MarkPaid(storeCtx, inv.ID); err != nil {
		log.Error("Receipt stored but invoice could not be marked paid", "invoiceID", inv.ID, "error", err)
	} else {
		inv.PaymentStatus = models.PaymentStatusPaid
	}

	log.Info("Receipt registered with EIMS", "invoiceID", inv.ID, "rrn", ack.RRN, "receiptCounter", counter)
	return &PaymentResult{Invoice: inv, Receipt: rec}, nil
}

func (s *paymentServiceImpl) findInvoice(ctx context.Context, req models.PaymentRequest) (*models.InvoiceRecord, error) {
	if req.InvoiceID != "" {
		return s.invoices.FindByID(ctx, req.InvoiceID)
	}
	return s.invoices.FindByTripID(ctx, req.TripID)
}
