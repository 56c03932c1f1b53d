package handlers

import (
	"context"
	"net/http"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/utils"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type EIMSHandler struct {
	gateway Pinger
}

func NewEIMSHandler(gateway Pinger) *EIMSHandler {
	return &EIMSHandler{gateway: gateway}
}

// HandlePing checks that EIMS is reachable with the configured credentials.
func (h *EIMSHandler) HandlePing(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.Ping(r.Context()); err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "EIMS connection established"})
}
