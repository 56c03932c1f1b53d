package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/services"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/utils"
)

type SettlementHandler struct {
	settlementService services.SettlementService
}

func NewSettlementHandler(settlementService services.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementService: settlementService}
}

func (h *SettlementHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary, err := h.settlementService.Summary(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, summary)
}

func (h *SettlementHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.SettlementStatus `json:"status"`
	}
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.settlementService.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, rec)
}
