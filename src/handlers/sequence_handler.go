package handlers

import (
	"context"
	"net/http"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/services"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/utils"
)

// SequenceManager is implemented by services.Reconciler.
type SequenceManager interface {
	CurrentSequence(ctx context.Context) (models.Sequence, error)
	NextSequence(ctx context.Context) (models.Sequence, error)
	SyncSequence(ctx context.Context, target models.Sequence) (*services.SyncResult, error)
}

type SequenceHandler struct {
	sequences SequenceManager
}

func NewSequenceHandler(sequences SequenceManager) *SequenceHandler {
	return &SequenceHandler{sequences: sequences}
}

type sequenceResponse struct {
	Current models.Sequence `json:"current"`
	Next    models.Sequence `json:"next"`
}

func (h *SequenceHandler) HandleGetSequence(w http.ResponseWriter, r *http.Request) {
	current, err := h.sequences.CurrentSequence(r.Context())
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	next, err := h.sequences.NextSequence(r.Context())
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, sequenceResponse{Current: current, Next: next})
}

// syncRequest names the last counters EIMS accepted. With Expected set the
// values are the ones quoted by a conflict message, i.e. the next counters the
// gateway wants, and are stepped back by one.
type syncRequest struct {
	DocumentNumber int64 `json:"document_number"`
	InvoiceCounter int64 `json:"invoice_counter"`
	Expected       bool  `json:"expected"`
}

func (s syncRequest) target() models.Sequence {
	if s.Expected {
		return models.Sequence{DocumentNumber: s.DocumentNumber - 1, InvoiceCounter: s.InvoiceCounter - 1}
	}
	return models.Sequence{DocumentNumber: s.DocumentNumber, InvoiceCounter: s.InvoiceCounter}
}

func (h *SequenceHandler) HandleSyncSequence(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	operator := ""
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		operator = claims.Subject
	}
	target := req.target()
	logger.FromContext(r.Context()).Info("Manual sequence sync requested", "operator", operator,
		"documentNumber", target.DocumentNumber, "invoiceCounter", target.InvoiceCounter)

	res, err := h.sequences.SyncSequence(r.Context(), target)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, res)
}
