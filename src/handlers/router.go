package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/security"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/utils"
	"golang.org/x/time/rate"
)

// RequestTimeout covers a full reconciliation run including backoff.
const RequestTimeout = 2 * time.Minute

type RouterDeps struct {
	Auth        *security.AuthService
	Limiter     *rate.Limiter
	Trips       *TripHandler
	Payments    *PaymentHandler
	Sequences   *SequenceHandler
	Settlements *SettlementHandler
	EIMS        *EIMSHandler
	Uploads     *UploadHandler
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))
	if d.Limiter != nil {
		r.Use(RateLimitMiddleware(d.Limiter))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.SendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(d.Auth, security.RoleWebhook, security.RoleOperator))
			r.Post("/webhooks/trips", d.Trips.HandleReceiveTrip)
			r.Post("/payments", d.Payments.HandleProcessPayment)
			r.Get("/trips/{tripID}", d.Trips.HandleGetTripStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(d.Auth, security.RoleOperator))
			r.Get("/sequence", d.Sequences.HandleGetSequence)
			r.Post("/sequence/sync", d.Sequences.HandleSyncSequence)
			r.Post("/invoices/preview", d.Trips.HandlePreviewInvoice)
			r.Get("/settlements/summary", d.Settlements.HandleGetSummary)
			r.Post("/settlements/{id}/status", d.Settlements.HandleUpdateStatus)
			r.Get("/eims/ping", d.EIMS.HandlePing)
			r.Post("/trips/import", d.Uploads.HandleImportTrips)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.SendJSONError(w, "not found", http.StatusNotFound)
	})
	return r
}
