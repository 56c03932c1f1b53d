package model

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/database"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "eims.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func completedInvoice(tripID string, doc, counter int64, irn string) *models.InvoiceRecord {
	return &models.InvoiceRecord{
		ID:             uuid.NewString(),
		TripID:         tripID,
		InvoiceNumber:  "INV-" + tripID,
		DocumentNumber: doc,
		InvoiceCounter: counter,
		IRN:            irn,
		Status:         models.InvoiceStatusCompleted,
		BaseFare:       decimal.NewFromInt(100),
		TotalAmount:    decimal.RequireFromString("132.25"),
	}
}

func TestLatestSequence_Empty(t *testing.T) {
	repo := NewInvoiceRepository(createTestDB(t))

	seq, err := repo.LatestSequence(context.Background())
	require.NoError(t, err)
	assert.Nil(t, seq)
}

func TestLatestSequence_UsesNewestCompleted(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository(createTestDB(t))

	require.NoError(t, repo.Create(ctx, completedInvoice("T1", 6, 6, "IRN-6")))
	require.NoError(t, repo.Create(ctx, completedInvoice("T2", 7, 7, "IRN-7")))

	failed := completedInvoice("T3", 9, 9, "")
	failed.Status = models.InvoiceStatusFailed
	require.NoError(t, repo.Create(ctx, failed))

	seq, err := repo.LatestSequence(ctx)
	require.NoError(t, err)
	require.NotNil(t, seq)
	assert.Equal(t, int64(7), seq.DocumentNumber)
	assert.Equal(t, int64(7), seq.InvoiceCounter)
	require.NotNil(t, seq.PreviousIRN)
	assert.Equal(t, "IRN-7", *seq.PreviousIRN)
}

func TestLatestSequence_PlaceholdersAdvanceCounters(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository(createTestDB(t))

	require.NoError(t, repo.Create(ctx, completedInvoice("T1", 3, 3, "IRN-3")))
	require.NoError(t, repo.CreatePlaceholders(ctx, []models.InvoiceRecord{
		{ID: uuid.NewString(), InvoiceNumber: "TEMP-4", DocumentNumber: 4, InvoiceCounter: 4, Status: models.InvoiceStatusTemporary},
		{ID: uuid.NewString(), InvoiceNumber: "TEMP-5", DocumentNumber: 5, InvoiceCounter: 5, Status: models.InvoiceStatusTemporary},
	}))

	seq, err := repo.LatestSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), seq.DocumentNumber)
	assert.Equal(t, int64(5), seq.InvoiceCounter)
	assert.Equal(t, "IRN-3", *seq.PreviousIRN)

	list, err := repo.ListInvoices(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1, "placeholders are not real invoices")
	assert.Equal(t, "T1", list[0].TripID)
}

func TestCreate_DuplicateTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository(createTestDB(t))

	require.NoError(t, repo.Create(ctx, completedInvoice("T1", 1, 1, "IRN-1")))
	err := repo.Create(ctx, completedInvoice("T1", 2, 2, "IRN-2"))
	assert.ErrorIs(t, err, ErrDuplicateTrip)
}

func TestFindByTripID_RoundTripsFields(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository(createTestDB(t))

	ack := time.Date(2025, 9, 1, 11, 30, 0, 0, time.UTC)
	prev := "IRN-0"
	inv := completedInvoice("T1", 1, 1, "IRN-1")
	inv.PreviousIRN = &prev
	inv.AcknowledgedAt = &ack
	inv.Driver = models.Party{Name: "Abebe", TIN: "0012345678", Phone: "+251912345678"}
	require.NoError(t, repo.Create(ctx, inv))

	got, err := repo.FindByTripID(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)
	assert.Equal(t, "IRN-0", *got.PreviousIRN)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("132.25")))
	assert.True(t, ack.Equal(*got.AcknowledgedAt))
	assert.Equal(t, models.PaymentStatusUnpaid, got.PaymentStatus)
	assert.Equal(t, "Abebe", got.Driver.Name)

	_, err = repo.FindByTripID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkPaid(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository(createTestDB(t))
	inv := completedInvoice("T1", 1, 1, "IRN-1")
	require.NoError(t, repo.Create(ctx, inv))

	require.NoError(t, repo.MarkPaid(ctx, inv.ID))
	got, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)

	assert.ErrorIs(t, repo.MarkPaid(ctx, "nope"), ErrNotFound)
}

func TestSettlementLifecycle(t *testing.T) {
	ctx := context.Background()
	db := createTestDB(t)
	invoices := NewInvoiceRepository(db)
	settlements := NewSettlementRepository(db)

	inv := completedInvoice("T1", 1, 1, "IRN-1")
	require.NoError(t, invoices.Create(ctx, inv))

	s := &models.SettlementRecord{
		ID:              uuid.NewString(),
		InvoiceID:       inv.ID,
		TripID:          "T1",
		DriverEarning:   decimal.NewFromInt(100),
		PlatformEarning: decimal.NewFromInt(15),
		TaxRemitted:     decimal.RequireFromString("17.25"),
		Status:          models.SettlementStatusPending,
	}
	require.NoError(t, settlements.Create(ctx, s))

	dup := *s
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, settlements.Create(ctx, &dup), ErrSettlementExists)

	updated, err := settlements.UpdateStatus(ctx, s.ID, models.SettlementStatusSettled)
	require.NoError(t, err)
	assert.Equal(t, models.SettlementStatusSettled, updated.Status)

	_, err = settlements.UpdateStatus(ctx, s.ID, models.SettlementStatusFailed)
	assert.ErrorIs(t, err, ErrInvalidStatusTransfer)

	summary, err := settlements.Summary(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, 1, summary.SettledCount)
	assert.True(t, summary.TaxRemitted.Equal(decimal.RequireFromString("17.25")))
}

func TestReceiptCounters(t *testing.T) {
	ctx := context.Background()
	db := createTestDB(t)
	invoices := NewInvoiceRepository(db)
	receipts := NewReceiptRepository(db)

	inv := completedInvoice("T1", 1, 1, "IRN-1")
	require.NoError(t, invoices.Create(ctx, inv))

	next, err := receipts.NextCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	rec := &models.ReceiptRecord{
		ID:              uuid.NewString(),
		InvoiceID:       inv.ID,
		ReceiptNumber:   "RCPT-1",
		ReceiptCounter:  1,
		RRN:             "RRN-1",
		PaymentMethod:   models.PaymentMethodCash,
		CollectedAmount: decimal.RequireFromString("132.25"),
		Status:          models.ReceiptStatusAcknowledged,
	}
	require.NoError(t, receipts.Create(ctx, rec))

	next, err = receipts.NextCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next)

	got, err := receipts.FindAcknowledgedByInvoiceID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "RRN-1", got.RRN)

	dup := *rec
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, receipts.Create(ctx, &dup), ErrDuplicateReceiptCounter)
}

func TestSettingsEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	db := createTestDB(t)
	box, err := security.NewSecretBox([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	repo := NewSettingsRepository(db, box)

	_, err = repo.Get(ctx)
	assert.ErrorIs(t, err, ErrSettingsNotConfigured)

	require.NoError(t, repo.Save(ctx, &models.Settings{
		SellerTIN:    "0001234567",
		LegalName:    "Taxiye Technologies",
		SystemNumber: "SYS-1",
		SystemType:   "POS",
		ClientID:     "client",
		ClientSecret: "s3cret",
		APIKey:       "api-key",
	}))

	var stored string
	require.NoError(t, db.QueryRow(`SELECT client_secret_enc FROM eims_settings`).Scan(&stored))
	assert.NotEqual(t, "s3cret", stored)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got.ClientSecret)
	assert.Equal(t, "api-key", got.APIKey)
	assert.Equal(t, "Taxiye Technologies", got.LegalName)
}
