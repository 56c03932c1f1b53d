package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
)

const (
	// MaxSyncPlaceholders bounds a single manual sync.
	MaxSyncPlaceholders = 5000

	placeholderNumberFormat = "TEMP-%d"
	placeholderDescription  = "Sequence sync placeholder"
)

// SyncResult reports what a manual sequence sync did.
type SyncResult struct {
	Previous models.Sequence `json:"previous"`
	Target   models.Sequence `json:"target"`
	Created  int             `json:"created"`
}

// CurrentSequence returns the latest local counters, or zero counters when no
// invoice exists yet.
func (r *Reconciler) CurrentSequence(ctx context.Context) (models.Sequence, error) {
	last, err := r.store.LatestSequence(ctx)
	if err != nil {
		return models.Sequence{}, err
	}
	if last == nil {
		return models.Sequence{}, nil
	}
	return *last, nil
}

// SyncSequence advances the local counters to target, the last counters EIMS
// accepted, by writing Temporary placeholder invoices. The last placeholder
// carries exactly the target, so the next live submission starts at target+1.
// Nothing is written when the local counters are already at or past the target.
func (r *Reconciler) SyncSequence(ctx context.Context, target models.Sequence) (*SyncResult, error) {
	if !validSyncTarget(target) {
		return nil, fmt.Errorf("%w: document %d, counter %d", ErrInvalidSyncTarget, target.DocumentNumber, target.InvoiceCounter)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.CurrentSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("read latest sequence: %w", err)
	}
	target.PreviousIRN = current.PreviousIRN
	result := &SyncResult{Previous: current, Target: target}

	if current.DocumentNumber >= target.DocumentNumber && current.InvoiceCounter >= target.InvoiceCounter {
		logger.FromContext(ctx).Info("Local sequence already at or ahead of target, nothing to sync",
			"documentNumber", current.DocumentNumber, "invoiceCounter", current.InvoiceCounter)
		return result, nil
	}

	if n := placeholderCount(current, target); n > MaxSyncPlaceholders {
		return nil, fmt.Errorf("%w: %d placeholders needed, limit %d", ErrSyncTooLarge, n, MaxSyncPlaceholders)
	}
	placeholders := buildPlaceholders(current, target, r.now())
	if err := r.store.CreatePlaceholders(ctx, placeholders); err != nil {
		return nil, fmt.Errorf("write sync placeholders: %w", err)
	}
	result.Created = len(placeholders)

	logger.FromContext(ctx).Info("Invoice sequence synchronized",
		"fromDocumentNumber", current.DocumentNumber, "fromInvoiceCounter", current.InvoiceCounter,
		"toDocumentNumber", target.DocumentNumber, "toInvoiceCounter", target.InvoiceCounter,
		"placeholders", result.Created)
	if err := r.alerts.SendSequenceSyncNotice(*result); err != nil {
		logger.L.Warn("Failed to send sequence sync notice", "error", err)
	}
	return result, nil
}

// validSyncTarget accepts positive counters, or a zero pair meaning the gateway
// has not accepted anything yet.
func validSyncTarget(target models.Sequence) bool {
	if target.DocumentNumber == 0 && target.InvoiceCounter == 0 {
		return true
	}
	return target.DocumentNumber >= 1 && target.InvoiceCounter >= 1
}

// placeholderCount is the larger of the two gaps. The counter with the smaller
// gap holds once it reaches its target; a counter already past its target
// never moves.
func placeholderCount(current, target models.Sequence) int64 {
	return max(target.DocumentNumber-current.DocumentNumber, target.InvoiceCounter-current.InvoiceCounter)
}

// buildPlaceholders steps each counter by one towards its target.
func buildPlaceholders(current, target models.Sequence, now time.Time) []models.InvoiceRecord {
	n := placeholderCount(current, target)
	out := make([]models.InvoiceRecord, 0, n)
	for i := int64(1); i <= n; i++ {
		doc := step(current.DocumentNumber, target.DocumentNumber, i)
		counter := step(current.InvoiceCounter, target.InvoiceCounter, i)
		out = append(out, models.InvoiceRecord{
			ID:             uuid.NewString(),
			InvoiceNumber:  fmt.Sprintf(placeholderNumberFormat, doc),
			DocumentNumber: doc,
			InvoiceCounter: counter,
			PreviousIRN:    current.PreviousIRN,
			Status:         models.InvoiceStatusTemporary,
			PaymentStatus:  models.PaymentStatusUnpaid,
			Description:    placeholderDescription,
			CreatedAt:      now.UTC(),
		})
	}
	return out
}

func step(from, to, i int64) int64 {
	if from >= to {
		return from
	}
	return min(from+i, to)
}
