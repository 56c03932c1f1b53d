package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
)

var (
	ErrSettlementExists      = errors.New("settlement already exists for this invoice")
	ErrInvalidStatusTransfer = errors.New("settlement status transition not allowed")
)

const settlementColumns = `id, invoice_id, trip_id, driver_earning, platform_earning, tax_remitted, status, created_at, updated_at`

type SettlementRepository struct {
	db *sql.DB
}

func NewSettlementRepository(db *sql.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

func (r *SettlementRepository) Create(ctx context.Context, s *models.SettlementRecord) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = s.CreatedAt

	_, err := r.db.ExecContext(ctx, `INSERT INTO settlements (`+settlementColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.InvoiceID, s.TripID, s.DriverEarning, s.PlatformEarning, s.TaxRemitted, s.Status,
		formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err, "settlements.invoice_id") {
			return fmt.Errorf("%w: %s", ErrSettlementExists, s.InvoiceID)
		}
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

func (r *SettlementRepository) FindByID(ctx context.Context, id string) (*models.SettlementRecord, error) {
	return scanSettlement(r.db.QueryRowContext(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE id = ?`, id))
}

func (r *SettlementRepository) FindByInvoiceID(ctx context.Context, invoiceID string) (*models.SettlementRecord, error) {
	return scanSettlement(r.db.QueryRowContext(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE invoice_id = ?`, invoiceID))
}

// UpdateStatus moves a Pending settlement to a final state. The WHERE clause makes
// the transition atomic against concurrent updates.
func (r *SettlementRepository) UpdateStatus(ctx context.Context, id string, next models.SettlementStatus) (*models.SettlementRecord, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransfer, current.Status, next)
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE settlements SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		next, formatTime(now), id, current.Status)
	if err != nil {
		return nil, fmt.Errorf("update settlement status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: settlement %s changed concurrently", ErrInvalidStatusTransfer, id)
	}
	current.Status = next
	current.UpdatedAt = now
	return current, nil
}

// Summary aggregates settlements created within [from, to] (YYYY-MM-DD, inclusive).
// Empty bounds are open.
func (r *SettlementRepository) Summary(ctx context.Context, from, to string) (*models.SettlementSummary, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE 1=1`
	var args []any
	if from != "" {
		query += ` AND substr(created_at, 1, 10) >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND substr(created_at, 1, 10) <= ?`
		args = append(args, to)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query settlements: %w", err)
	}
	defer rows.Close()

	summary := &models.SettlementSummary{
		From:            from,
		To:              to,
		DriverEarning:   decimal.Zero,
		PlatformEarning: decimal.Zero,
		TaxRemitted:     decimal.Zero,
	}
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		summary.Count++
		switch s.Status {
		case models.SettlementStatusPending:
			summary.PendingCount++
		case models.SettlementStatusSettled:
			summary.SettledCount++
		case models.SettlementStatusFailed:
			summary.FailedCount++
		}
		summary.DriverEarning = summary.DriverEarning.Add(s.DriverEarning)
		summary.PlatformEarning = summary.PlatformEarning.Add(s.PlatformEarning)
		summary.TaxRemitted = summary.TaxRemitted.Add(s.TaxRemitted)
	}
	return summary, rows.Err()
}

func scanSettlement(row rowScanner) (*models.SettlementRecord, error) {
	var (
		s                    models.SettlementRecord
		createdAt, updatedAt string
	)
	err := row.Scan(&s.ID, &s.InvoiceID, &s.TripID, &s.DriverEarning, &s.PlatformEarning, &s.TaxRemitted,
		&s.Status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan settlement: %w", err)
	}
	s.CreatedAt, _ = parseTime(createdAt)
	s.UpdatedAt, _ = parseTime(updatedAt)
	return &s, nil
}
