package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/services"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/utils"
)

type TripHandler struct {
	invoiceService services.InvoiceService
}

func NewTripHandler(invoiceService services.InvoiceService) *TripHandler {
	return &TripHandler{invoiceService: invoiceService}
}

// HandleReceiveTrip accepts a completed-trip notification, registers the invoice
// with EIMS and records the settlement. Repeated deliveries answer 200 with the
// stored invoice.
func (h *TripHandler) HandleReceiveTrip(w http.ResponseWriter, r *http.Request) {
	var trip models.TripData
	if err := utils.DecodeJSON(w, r, &trip); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	logger.FromContext(r.Context()).Info("Received completed trip", "tripID", trip.TripID)

	res, err := h.invoiceService.ProcessTrip(r.Context(), trip)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyProcessed {
		status = http.StatusOK
	}
	utils.SendJSON(w, status, res)
}

func (h *TripHandler) HandleGetTripStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.invoiceService.GetTripStatus(r.Context(), chi.URLParam(r, "tripID"))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, status)
}

type previewRequest struct {
	Trip     models.TripData  `json:"trip"`
	Sequence *models.Sequence `json:"sequence,omitempty"`
}

// HandlePreviewInvoice returns the register payload a trip would produce,
// optionally with operator-chosen counters, without submitting it.
func (h *TripHandler) HandlePreviewInvoice(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Sequence != nil && (req.Sequence.DocumentNumber < 1 || req.Sequence.InvoiceCounter < 1) {
		utils.SendJSONError(w, "sequence counters must be positive", http.StatusBadRequest)
		return
	}

	preview, err := h.invoiceService.Preview(r.Context(), req.Trip, req.Sequence)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, preview)
}
