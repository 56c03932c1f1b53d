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
)

const (
	DefaultMaxRetries   = 5
	DefaultMaxBackoff   = 10 * time.Second
	maxBackoffExponent  = 30
	invoiceNumberFormat = "INV-%06d"
)

// SequenceStore is the persistence the Reconciler needs. model.InvoiceRepository
// implements it.
type SequenceStore interface {
	LatestSequence(ctx context.Context) (*models.Sequence, error)
	FindByTripID(ctx context.Context, tripID string) (*models.InvoiceRecord, error)
	Create(ctx context.Context, inv *models.InvoiceRecord) error
	CreatePlaceholders(ctx context.Context, placeholders []models.InvoiceRecord) error
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type ReconcilerConfig struct {
	MaxRetries int
	MaxBackoff time.Duration
}

// Reconciler keeps the local document number / invoice counter pair in step with
// EIMS. All runs against one store are serialized: reading the latest sequence,
// submitting and persisting happen under a single lock, so two trips never race
// for the same counters.
type Reconciler struct {
	store      SequenceStore
	gateway    eims.Gateway
	alerts     AlertService
	maxRetries int
	maxBackoff time.Duration
	sleep      Sleeper
	now        func() time.Time

	mu sync.Mutex
}

func NewReconciler(cfg ReconcilerConfig, store SequenceStore, gateway eims.Gateway, alerts AlertService) *Reconciler {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if alerts == nil {
		alerts = &MockAlertService{}
	}
	return &Reconciler{
		store:      store,
		gateway:    gateway,
		alerts:     alerts,
		maxRetries: cfg.MaxRetries,
		maxBackoff: cfg.MaxBackoff,
		sleep:      sleepContext,
		now:        time.Now,
	}
}

// Draft is an invoice ready for submission except for its sequence values.
type Draft struct {
	TripID  string
	Request eims.InvoiceRequest
	// Record carries the descriptive fields persisted on success; counters,
	// IRN and status are filled in by the Reconciler.
	Record models.InvoiceRecord
}

type ReconcileResult struct {
	Invoice          *models.InvoiceRecord
	AlreadyProcessed bool
	Attempts         int
}

// NextSequence returns the counters the next submission would start from.
func (r *Reconciler) NextSequence(ctx context.Context) (models.Sequence, error) {
	last, err := r.store.LatestSequence(ctx)
	if err != nil {
		return models.Sequence{}, err
	}
	if last == nil {
		return models.Sequence{DocumentNumber: 1, InvoiceCounter: 1}, nil
	}
	return last.Next(), nil
}

// Reconcile submits the draft until EIMS acknowledges it, adopting the gateway's
// expected counters on conflicts and backing off when throttled. A trip that
// already has an invoice is returned as is without contacting the gateway.
func (r *Reconciler) Reconcile(ctx context.Context, draft Draft) (*ReconcileResult, error) {
	log := logger.FromContext(ctx).With("tripID", draft.TripID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if draft.TripID != "" {
		existing, err := r.store.FindByTripID(ctx, draft.TripID)
		switch {
		case err == nil:
			log.Info("Trip already invoiced, skipping submission", "irn", existing.IRN)
			return &ReconcileResult{Invoice: existing, AlreadyProcessed: true}, nil
		case !errors.Is(err, model.ErrNotFound):
			return nil, fmt.Errorf("check existing invoice: %w", err)
		}
	}

	seq, err := r.NextSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("read latest sequence: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		log.Debug("Submitting invoice to EIMS", "attempt", attempt,
			"documentNumber", seq.DocumentNumber, "invoiceCounter", seq.InvoiceCounter)

		ack, err := r.gateway.RegisterInvoice(ctx, draft.Request.WithSequence(seq))
		if err == nil {
			inv, err := r.finalize(ctx, draft, seq, ack)
			if err != nil {
				return nil, err
			}
			log.Info("Invoice registered with EIMS", "irn", ack.IRN, "attempts", attempt,
				"documentNumber", seq.DocumentNumber, "invoiceCounter", seq.InvoiceCounter)
			return &ReconcileResult{Invoice: inv, Attempts: attempt}, nil
		}
		lastErr = err

		var conflict *eims.ConflictError
		switch {
		case errors.As(err, &conflict):
			log.Warn("EIMS sequence conflict, adopting expected counters", "attempt", attempt,
				"sentDocumentNumber", seq.DocumentNumber, "sentInvoiceCounter", seq.InvoiceCounter,
				"expectedDocumentNumber", conflict.DocumentNumber, "expectedInvoiceCounter", conflict.InvoiceCounter)
			seq = models.Sequence{
				DocumentNumber: conflict.DocumentNumber,
				InvoiceCounter: conflict.InvoiceCounter,
				PreviousIRN:    seq.PreviousIRN,
			}
		case errors.Is(err, eims.ErrRateLimited):
			if attempt < r.maxRetries {
				delay := r.backoff(attempt)
				log.Warn("EIMS rate limited, backing off", "attempt", attempt, "delay", delay)
				if err := r.sleep(ctx, delay); err != nil {
					return nil, fmt.Errorf("register invoice for trip %s: %w", draft.TripID, err)
				}
			}
		default:
			log.Error("EIMS rejected invoice", "attempt", attempt, "error", err)
			return nil, fmt.Errorf("register invoice for trip %s: %w", draft.TripID, err)
		}
	}

	log.Error("EIMS submission retries exhausted", "maxRetries", r.maxRetries, "error", lastErr)
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, r.maxRetries, lastErr)
}

// backoff is 2^attempt seconds, capped at maxBackoff.
func (r *Reconciler) backoff(attempt int) time.Duration {
	if attempt > maxBackoffExponent {
		return r.maxBackoff
	}
	d := time.Duration(1<<attempt) * time.Second
	if d > r.maxBackoff {
		return r.maxBackoff
	}
	return d
}

// finalize stores the accepted counters exactly as they were sent.
func (r *Reconciler) finalize(ctx context.Context, draft Draft, seq models.Sequence, ack *eims.Acknowledgement) (*models.InvoiceRecord, error) {
	inv := draft.Record
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	inv.TripID = draft.TripID
	if inv.InvoiceNumber == "" {
		inv.InvoiceNumber = fmt.Sprintf(invoiceNumberFormat, seq.DocumentNumber)
	}
	inv.DocumentNumber = seq.DocumentNumber
	inv.InvoiceCounter = seq.InvoiceCounter
	inv.PreviousIRN = seq.PreviousIRN
	inv.IRN = ack.IRN
	inv.SignedQR = ack.SignedQR
	inv.SignedInvoice = ack.SignedInvoice
	inv.AcknowledgedAt = ack.AcknowledgedAt
	inv.Status = models.InvoiceStatusCompleted
	inv.PaymentStatus = models.PaymentStatusUnpaid
	inv.CreatedAt = r.now().UTC()

	// The gateway has filed the invoice; a cancelled caller must not stop the write.
	if err := r.store.Create(context.WithoutCancel(ctx), &inv); err != nil {
		logger.FromContext(ctx).Error("EIMS acknowledged invoice but it could not be stored",
			"reconciliation_required", true,
			"tripID", draft.TripID, "irn", ack.IRN,
			"documentNumber", seq.DocumentNumber, "invoiceCounter", seq.InvoiceCounter,
			"error", err)
		alert := ReconciliationAlert{
			Kind:           "invoice",
			TripID:         draft.TripID,
			DocumentNumber: seq.DocumentNumber,
			InvoiceCounter: seq.InvoiceCounter,
			Reference:      ack.IRN,
			Cause:          err,
			OccurredAt:     r.now(),
		}
		if alertErr := r.alerts.SendReconciliationAlert(alert); alertErr != nil {
			logger.L.Error("Failed to send reconciliation alert", "error", alertErr, "irn", ack.IRN)
		}
		return nil, fmt.Errorf("%w: trip %s, irn %s, document %d, counter %d: %w",
			ErrReconciliationRequired, draft.TripID, ack.IRN, seq.DocumentNumber, seq.InvoiceCounter, err)
	}
	return &inv, nil
}
