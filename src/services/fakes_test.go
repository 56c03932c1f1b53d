package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/eims"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/model"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
)

// memoryStore is an in-memory SequenceStore with the same ordering rules as the
// sqlite repository: newest Completed/Temporary row wins.
type memoryStore struct {
	mu        sync.Mutex
	records   []models.InvoiceRecord
	createErr error
}

func (s *memoryStore) LatestSequence(ctx context.Context) (*models.Sequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var seq *models.Sequence
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if r.Status == models.InvoiceStatusCompleted || r.Status == models.InvoiceStatusTemporary {
			seq = &models.Sequence{DocumentNumber: r.DocumentNumber, InvoiceCounter: r.InvoiceCounter}
			break
		}
	}
	if seq == nil {
		return nil, nil
	}
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if r.Status == models.InvoiceStatusCompleted && r.IRN != "" {
			irn := r.IRN
			seq.PreviousIRN = &irn
			break
		}
	}
	return seq, nil
}

func (s *memoryStore) FindByTripID(ctx context.Context, tripID string) (*models.InvoiceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.TripID != "" && r.TripID == tripID {
			rec := r
			return &rec, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *memoryStore) Create(ctx context.Context, inv *models.InvoiceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	for _, r := range s.records {
		if inv.TripID != "" && r.TripID == inv.TripID {
			return model.ErrDuplicateTrip
		}
	}
	s.records = append(s.records, *inv)
	return nil
}

func (s *memoryStore) CreatePlaceholders(ctx context.Context, placeholders []models.InvoiceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.records = append(s.records, placeholders...)
	return nil
}

func (s *memoryStore) completed() []models.InvoiceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.InvoiceRecord
	for _, r := range s.records {
		if r.Status == models.InvoiceStatusCompleted {
			out = append(out, r)
		}
	}
	return out
}

type registerResponse func(seq models.Sequence) (*eims.Acknowledgement, error)

// scriptedGateway replays queued responses, then acknowledges everything.
type scriptedGateway struct {
	mu        sync.Mutex
	script    []registerResponse
	sent      []models.Sequence
	receipts  []eims.ReceiptRequest
	receiptFn func(req eims.ReceiptRequest) (*eims.ReceiptAcknowledgement, error)
}

func (g *scriptedGateway) then(responses ...registerResponse) *scriptedGateway {
	g.script = append(g.script, responses...)
	return g
}

func (g *scriptedGateway) RegisterInvoice(ctx context.Context, req eims.InvoiceRequest) (*eims.Acknowledgement, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	seq := req.Sequence()
	g.sent = append(g.sent, seq)
	if len(g.script) > 0 {
		next := g.script[0]
		g.script = g.script[1:]
		return next(seq)
	}
	return accept(seq)
}

func (g *scriptedGateway) SubmitReceipt(ctx context.Context, req eims.ReceiptRequest) (*eims.ReceiptAcknowledgement, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.receipts = append(g.receipts, req)
	if g.receiptFn != nil {
		return g.receiptFn(req)
	}
	return &eims.ReceiptAcknowledgement{RRN: "RRN-" + req.ReceiptCounter, QR: "receipt-qr"}, nil
}

func (g *scriptedGateway) Ping(ctx context.Context) error { return nil }

func (g *scriptedGateway) sentSequences() []models.Sequence {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.Sequence(nil), g.sent...)
}

func accept(seq models.Sequence) (*eims.Acknowledgement, error) {
	at := time.Date(2025, 9, 1, 10, 15, 30, 0, time.UTC)
	return &eims.Acknowledgement{
		IRN:            fmt.Sprintf("IRN-%d", seq.DocumentNumber),
		SignedQR:       "qr",
		SignedInvoice:  "signed",
		AcknowledgedAt: &at,
	}, nil
}

func conflict(doc, counter int64) registerResponse {
	return func(models.Sequence) (*eims.Acknowledgement, error) {
		return nil, &eims.ConflictError{StatusCode: 406, DocumentNumber: doc, InvoiceCounter: counter}
	}
}

func throttled() registerResponse {
	return func(models.Sequence) (*eims.Acknowledgement, error) {
		return nil, &eims.GatewayError{Kind: eims.ErrRateLimited, StatusCode: 429, Message: "Too many requests!"}
	}
}

func rejected(raw string) registerResponse {
	return func(models.Sequence) (*eims.Acknowledgement, error) {
		return nil, &eims.GatewayError{Kind: eims.ErrGatewayFailure, StatusCode: 400, Message: "Invalid TIN", Raw: []byte(raw)}
	}
}

// recordingSleeper records backoff delays without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return s.err
}

type staticSettings struct {
	settings *models.Settings
	err      error
}

func (s staticSettings) Get(context.Context) (*models.Settings, error) {
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.settings
	return &cp, nil
}

var errStoreDown = errors.New("database is locked")
