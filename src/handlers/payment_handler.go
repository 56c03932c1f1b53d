package handlers

import (
	"net/http"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/services"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/utils"
)

type PaymentHandler struct {
	paymentService services.PaymentService
}

func NewPaymentHandler(paymentService services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) HandleProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.paymentService.ProcessPayment(r.Context(), req)
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
