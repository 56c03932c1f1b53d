package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/model"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/security/validation"
)

// SettlementStore is implemented by model.SettlementRepository.
type SettlementStore interface {
	Create(ctx context.Context, s *models.SettlementRecord) error
	FindByID(ctx context.Context, id string) (*models.SettlementRecord, error)
	FindByInvoiceID(ctx context.Context, invoiceID string) (*models.SettlementRecord, error)
	UpdateStatus(ctx context.Context, id string, next models.SettlementStatus) (*models.SettlementRecord, error)
	Summary(ctx context.Context, from, to string) (*models.SettlementSummary, error)
}

type SettlementService interface {
	// RecordForInvoice creates the settlement of a Completed invoice, or returns
	// the one already recorded.
	RecordForInvoice(ctx context.Context, inv *models.InvoiceRecord) (*models.SettlementRecord, error)
	UpdateStatus(ctx context.Context, id string, next models.SettlementStatus) (*models.SettlementRecord, error)
	Summary(ctx context.Context, from, to string) (*models.SettlementSummary, error)
}

type settlementServiceImpl struct {
	store SettlementStore
}

func NewSettlementService(store SettlementStore) SettlementService {
	return &settlementServiceImpl{store: store}
}

func (s *settlementServiceImpl) RecordForInvoice(ctx context.Context, inv *models.InvoiceRecord) (*models.SettlementRecord, error) {
	if inv.Status != models.InvoiceStatusCompleted {
		return nil, fmt.Errorf("%w: invoice %s is %s", ErrInvoiceNotPayable, inv.ID, inv.Status)
	}

	existing, err := s.store.FindByInvoiceID(ctx, inv.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	rec := &models.SettlementRecord{
		ID:              uuid.NewString(),
		InvoiceID:       inv.ID,
		TripID:          inv.TripID,
		DriverEarning:   inv.BaseFare,
		PlatformEarning: inv.CommissionAmount,
		TaxRemitted:     inv.VATAmount,
		Status:          models.SettlementStatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, model.ErrSettlementExists) {
			return s.store.FindByInvoiceID(ctx, inv.ID)
		}
		return nil, err
	}
	logger.FromContext(ctx).Info("Settlement recorded", "settlementID", rec.ID, "tripID", rec.TripID,
		"driverEarning", rec.DriverEarning.String(), "platformEarning", rec.PlatformEarning.String(),
		"taxRemitted", rec.TaxRemitted.String())
	return rec, nil
}

func (s *settlementServiceImpl) UpdateStatus(ctx context.Context, id string, next models.SettlementStatus) (*models.SettlementRecord, error) {
	if next != models.SettlementStatusSettled && next != models.SettlementStatusFailed {
		return nil, validation.Errors{{Field: "status", Value: string(next), Message: "status must be Settled or Failed"}}
	}
	rec, err := s.store.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Settlement status updated", "settlementID", id, "status", next)
	return rec, nil
}

func (s *settlementServiceImpl) Summary(ctx context.Context, from, to string) (*models.SettlementSummary, error) {
	var errs validation.Errors
	for _, f := range []struct{ field, value string }{{"from", from}, {"to", to}} {
		if f.value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", f.value); err != nil {
			errs = append(errs, validation.FieldError{Field: f.field, Value: f.value, Message: "date must be in YYYY-MM-DD format"})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return s.store.Summary(ctx, from, to)
}
