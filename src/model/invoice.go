package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateTrip = errors.New("an invoice already exists for this trip")
)

const invoiceColumns = `id, trip_id, invoice_number, document_number, invoice_counter, irn, previous_irn,
	status, payment_status, base_fare, commission_amount, vat_amount, total_amount,
	signed_qr, signed_invoice, acknowledged_at,
	driver_name, driver_tin, driver_phone, driver_email,
	rider_name, rider_phone, rider_tin, description, trip_date, created_at`

// InvoiceRepository persists InvoiceRecords in sqlite. It is the sequence store:
// insertion order is creation order, and the newest Completed or Temporary row
// holds the local counters.
type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// LatestSequence returns the counters of the newest Completed or Temporary record
// together with the IRN of the newest Completed record. It returns nil when no
// invoice has been recorded yet.
func (r *InvoiceRepository) LatestSequence(ctx context.Context) (*models.Sequence, error) {
	var seq models.Sequence
	err := r.db.QueryRowContext(ctx, `
		SELECT document_number, invoice_counter FROM invoices
		WHERE status IN (?, ?)
		ORDER BY seq DESC LIMIT 1`,
		models.InvoiceStatusCompleted, models.InvoiceStatusTemporary,
	).Scan(&seq.DocumentNumber, &seq.InvoiceCounter)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest sequence: %w", err)
	}

	var irn string
	err = r.db.QueryRowContext(ctx, `
		SELECT irn FROM invoices
		WHERE status = ? AND irn IS NOT NULL AND irn != ''
		ORDER BY seq DESC LIMIT 1`,
		models.InvoiceStatusCompleted,
	).Scan(&irn)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("query previous irn: %w", err)
	default:
		seq.PreviousIRN = &irn
	}
	return &seq, nil
}

func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*models.InvoiceRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	return scanInvoice(row)
}

func (r *InvoiceRepository) FindByTripID(ctx context.Context, tripID string) (*models.InvoiceRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE trip_id = ?`, tripID)
	return scanInvoice(row)
}

// Create inserts a new invoice record.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.InvoiceRecord) error {
	if err := insertInvoice(ctx, r.db, inv); err != nil {
		if isUniqueViolation(err, "invoices.trip_id") {
			return fmt.Errorf("%w: %s", ErrDuplicateTrip, inv.TripID)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// CreatePlaceholders inserts sync placeholders atomically: either all rows are
// written or none.
func (r *InvoiceRepository) CreatePlaceholders(ctx context.Context, placeholders []models.InvoiceRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin placeholder tx: %w", err)
	}
	defer tx.Rollback()

	for i := range placeholders {
		if err := insertInvoice(ctx, tx, &placeholders[i]); err != nil {
			return fmt.Errorf("insert placeholder %d/%d: %w",
				placeholders[i].DocumentNumber, placeholders[i].InvoiceCounter, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit placeholders: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) MarkPaid(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE invoices SET payment_status = ? WHERE id = ?`,
		models.PaymentStatusPaid, id)
	if err != nil {
		return fmt.Errorf("mark invoice paid: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListInvoices returns real invoices, newest first. Sync placeholders are excluded.
func (r *InvoiceRepository) ListInvoices(ctx context.Context, limit int) ([]models.InvoiceRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices
		WHERE status != ? ORDER BY seq DESC LIMIT ?`, models.InvoiceStatusTemporary, limit)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []models.InvoiceRecord
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertInvoice(ctx context.Context, db execer, inv *models.InvoiceRecord) error {
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	if inv.PaymentStatus == "" {
		inv.PaymentStatus = models.PaymentStatusUnpaid
	}
	_, err := db.ExecContext(ctx, `INSERT INTO invoices (`+invoiceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, nullString(inv.TripID), inv.InvoiceNumber, inv.DocumentNumber, inv.InvoiceCounter,
		nullString(inv.IRN), inv.PreviousIRN,
		inv.Status, inv.PaymentStatus, inv.BaseFare, inv.CommissionAmount, inv.VATAmount, inv.TotalAmount,
		inv.SignedQR, inv.SignedInvoice, formatTimePtr(inv.AcknowledgedAt),
		inv.Driver.Name, inv.Driver.TIN, inv.Driver.Phone, inv.Driver.Email,
		inv.Rider.Name, inv.Rider.Phone, inv.Rider.TIN, inv.Description, inv.TripDate,
		formatTime(inv.CreatedAt),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*models.InvoiceRecord, error) {
	var (
		inv                       models.InvoiceRecord
		tripID, irn, previousIRN  sql.NullString
		acknowledgedAt, createdAt sql.NullString
	)
	err := row.Scan(
		&inv.ID, &tripID, &inv.InvoiceNumber, &inv.DocumentNumber, &inv.InvoiceCounter, &irn, &previousIRN,
		&inv.Status, &inv.PaymentStatus, &inv.BaseFare, &inv.CommissionAmount, &inv.VATAmount, &inv.TotalAmount,
		&inv.SignedQR, &inv.SignedInvoice, &acknowledgedAt,
		&inv.Driver.Name, &inv.Driver.TIN, &inv.Driver.Phone, &inv.Driver.Email,
		&inv.Rider.Name, &inv.Rider.Phone, &inv.Rider.TIN, &inv.Description, &inv.TripDate, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan invoice: %w", err)
	}

	inv.TripID = tripID.String
	inv.IRN = irn.String
	if previousIRN.Valid {
		inv.PreviousIRN = &previousIRN.String
	}
	if acknowledgedAt.Valid {
		if t, err := parseTime(acknowledgedAt.String); err == nil {
			inv.AcknowledgedAt = &t
		}
	}
	inv.CreatedAt, _ = parseTime(createdAt.String)
	return &inv, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func isUniqueViolation(err error, column string) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
