package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
)

var ErrDuplicateReceiptCounter = errors.New("receipt counter already used")

const receiptColumns = `id, invoice_id, receipt_number, receipt_counter, rrn, qr, payment_method, collected_amount, status, created_at`

type ReceiptRepository struct {
	db *sql.DB
}

func NewReceiptRepository(db *sql.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// NextCounter returns the next receipt counter. Receipt counters form a dense
// local sequence starting at 1.
func (r *ReceiptRepository) NextCounter(ctx context.Context) (int64, error) {
	var last sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(receipt_counter) FROM receipts`).Scan(&last); err != nil {
		return 0, fmt.Errorf("query receipt counter: %w", err)
	}
	return last.Int64 + 1, nil
}

func (r *ReceiptRepository) Create(ctx context.Context, rec *models.ReceiptRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO receipts (`+receiptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.InvoiceID, rec.ReceiptNumber, rec.ReceiptCounter, rec.RRN, rec.QR,
		rec.PaymentMethod, rec.CollectedAmount, rec.Status, formatTime(rec.CreatedAt))
	if err != nil {
		if isUniqueViolation(err, "receipts.receipt_counter") {
			return fmt.Errorf("%w: %d", ErrDuplicateReceiptCounter, rec.ReceiptCounter)
		}
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

// FindAcknowledgedByInvoiceID returns the receipt EIMS acknowledged for an invoice.
func (r *ReceiptRepository) FindAcknowledgedByInvoiceID(ctx context.Context, invoiceID string) (*models.ReceiptRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+receiptColumns+` FROM receipts
		WHERE invoice_id = ? AND status = ? ORDER BY receipt_counter DESC LIMIT 1`,
		invoiceID, models.ReceiptStatusAcknowledged)
	var (
		rec       models.ReceiptRecord
		createdAt string
	)
	err := row.Scan(&rec.ID, &rec.InvoiceID, &rec.ReceiptNumber, &rec.ReceiptCounter, &rec.RRN, &rec.QR,
		&rec.PaymentMethod, &rec.CollectedAmount, &rec.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan receipt: %w", err)
	}
	rec.CreatedAt, _ = parseTime(createdAt)
	return &rec, nil
}
