package services

import (
	"context"
	"testing"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncSequence_WritesPlaceholdersUpToTarget(t *testing.T) {
	store := &memoryStore{records: []models.InvoiceRecord{
		{TripID: "t3", DocumentNumber: 3, InvoiceCounter: 3, IRN: "IRN-3", Status: models.InvoiceStatusCompleted},
	}}
	r, _, alerts := newTestReconciler(store, &scriptedGateway{})

	res, err := r.SyncSequence(context.Background(), models.Sequence{DocumentNumber: 7, InvoiceCounter: 7})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Created)
	assert.Equal(t, int64(3), res.Previous.DocumentNumber)

	require.Len(t, store.records, 5)
	for i, p := range store.records[1:] {
		assert.Equal(t, models.InvoiceStatusTemporary, p.Status)
		assert.Equal(t, int64(4+i), p.DocumentNumber)
		assert.Equal(t, int64(4+i), p.InvoiceCounter)
		assert.Empty(t, p.TripID)
		assert.Empty(t, p.IRN)
	}
	assert.Equal(t, "TEMP-7", store.records[4].InvoiceNumber)

	next, err := r.NextSequence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(8), next.DocumentNumber)
	assert.Equal(t, int64(8), next.InvoiceCounter)
	require.NotNil(t, next.PreviousIRN)
	assert.Equal(t, "IRN-3", *next.PreviousIRN, "placeholders do not break the IRN chain")

	require.Len(t, alerts.Syncs, 1)
	assert.Equal(t, 4, alerts.Syncs[0].Created)
}

func TestSyncSequence_UnevenGaps(t *testing.T) {
	store := &memoryStore{records: []models.InvoiceRecord{
		{TripID: "t", DocumentNumber: 3, InvoiceCounter: 5, IRN: "IRN-3", Status: models.InvoiceStatusCompleted},
	}}
	r, _, _ := newTestReconciler(store, &scriptedGateway{})

	res, err := r.SyncSequence(context.Background(), models.Sequence{DocumentNumber: 6, InvoiceCounter: 6})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)

	var got []models.Sequence
	for _, p := range store.records[1:] {
		got = append(got, models.Sequence{DocumentNumber: p.DocumentNumber, InvoiceCounter: p.InvoiceCounter})
	}
	assert.Equal(t, []models.Sequence{
		{DocumentNumber: 4, InvoiceCounter: 6},
		{DocumentNumber: 5, InvoiceCounter: 6},
		{DocumentNumber: 6, InvoiceCounter: 6},
	}, got)
}

func TestSyncSequence_CounterAheadNeverMovesBack(t *testing.T) {
	store := &memoryStore{records: []models.InvoiceRecord{
		{TripID: "t", DocumentNumber: 3, InvoiceCounter: 9, IRN: "IRN-3", Status: models.InvoiceStatusCompleted},
	}}
	r, _, _ := newTestReconciler(store, &scriptedGateway{})

	res, err := r.SyncSequence(context.Background(), models.Sequence{DocumentNumber: 6, InvoiceCounter: 6})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)

	var got []models.Sequence
	for _, p := range store.records[1:] {
		got = append(got, models.Sequence{DocumentNumber: p.DocumentNumber, InvoiceCounter: p.InvoiceCounter})
	}
	assert.Equal(t, []models.Sequence{
		{DocumentNumber: 4, InvoiceCounter: 9},
		{DocumentNumber: 5, InvoiceCounter: 9},
		{DocumentNumber: 6, InvoiceCounter: 9},
	}, got)

	next, err := r.NextSequence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), next.DocumentNumber)
	assert.Equal(t, int64(10), next.InvoiceCounter)
}

func TestSyncSequence_ZeroTargetIsNoOp(t *testing.T) {
	store := &memoryStore{}
	r, _, alerts := newTestReconciler(store, &scriptedGateway{})

	res, err := r.SyncSequence(context.Background(), models.Sequence{})
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Empty(t, store.records)
	assert.Empty(t, alerts.Syncs)
}

func TestSyncSequence_NoOpWhenAhead(t *testing.T) {
	store := &memoryStore{records: []models.InvoiceRecord{
		{TripID: "t", DocumentNumber: 9, InvoiceCounter: 9, IRN: "IRN-9", Status: models.InvoiceStatusCompleted},
	}}
	r, _, alerts := newTestReconciler(store, &scriptedGateway{})

	for _, target := range []models.Sequence{{DocumentNumber: 9, InvoiceCounter: 9}, {DocumentNumber: 4, InvoiceCounter: 2}} {
		res, err := r.SyncSequence(context.Background(), target)
		require.NoError(t, err)
		assert.Zero(t, res.Created)
	}
	assert.Len(t, store.records, 1)
	assert.Empty(t, alerts.Syncs)
}

func TestSyncSequence_EmptyStore(t *testing.T) {
	store := &memoryStore{}
	r, _, _ := newTestReconciler(store, &scriptedGateway{})

	res, err := r.SyncSequence(context.Background(), models.Sequence{DocumentNumber: 2, InvoiceCounter: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, int64(1), store.records[0].DocumentNumber)
	assert.Nil(t, store.records[0].PreviousIRN)

	next, err := r.NextSequence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Sequence{DocumentNumber: 3, InvoiceCounter: 3}, next)
}

func TestSyncSequence_Rejects(t *testing.T) {
	r, _, _ := newTestReconciler(&memoryStore{}, &scriptedGateway{})

	_, err := r.SyncSequence(context.Background(), models.Sequence{DocumentNumber: 0, InvoiceCounter: 5})
	assert.ErrorIs(t, err, ErrInvalidSyncTarget)

	_, err = r.SyncSequence(context.Background(), models.Sequence{DocumentNumber: -1, InvoiceCounter: -1})
	assert.ErrorIs(t, err, ErrInvalidSyncTarget)

	_, err = r.SyncSequence(context.Background(), models.Sequence{DocumentNumber: MaxSyncPlaceholders + 1, InvoiceCounter: 1})
	assert.ErrorIs(t, err, ErrSyncTooLarge)
}

func TestSyncSequence_StoreFailureWritesNothing(t *testing.T) {
	store := &memoryStore{createErr: errStoreDown}
	r, _, alerts := newTestReconciler(store, &scriptedGateway{})

	_, err := r.SyncSequence(context.Background(), models.Sequence{DocumentNumber: 3, InvoiceCounter: 3})
	require.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, store.records)
	assert.Empty(t, alerts.Syncs)
}
