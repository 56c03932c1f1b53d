package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/eims"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/model"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/parsers"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/security/validation"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/services"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/utils"
)

// errorStatus maps service errors to HTTP status codes. Order matters: a
// reconciliation error also wraps the storage error that caused it.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrReconciliationRequired):
		return http.StatusInternalServerError
	case errors.Is(err, validation.ErrInvalidInput),
		errors.Is(err, validation.ErrUnsupportedFile),
		errors.Is(err, parsers.ErrParsingFailed),
		errors.Is(err, services.ErrInvalidSyncTarget):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAmountMismatch),
		errors.Is(err, services.ErrSyncTooLarge):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvoiceNotPayable),
		errors.Is(err, model.ErrInvalidStatusTransfer),
		errors.Is(err, model.ErrDuplicateTrip):
		return http.StatusConflict
	case errors.Is(err, model.ErrSettingsNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrRetriesExhausted),
		errors.Is(err, eims.ErrGatewayFailure),
		errors.Is(err, eims.ErrConflictUnparseable),
		errors.Is(err, eims.ErrMalformedResponse),
		errors.Is(err, eims.ErrAuthenticationFailed):
		return http.StatusBadGateway
	case errors.Is(err, eims.ErrGatewayUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// sendServiceError writes err as JSON. Field errors and the raw gateway payload
// are included so callers can act on them.
func sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	details := map[string]any{}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		details["fields"] = fieldErrs
	}
	var gwErr *eims.GatewayError
	if errors.As(err, &gwErr) && len(gwErr.Raw) > 0 {
		details["gateway_response"] = string(gwErr.Raw)
	}
	if errors.Is(err, services.ErrReconciliationRequired) {
		details["reconciliation_required"] = true
	}

	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("Request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	utils.SendJSONErrorWithDetails(w, err.Error(), status, details)
}
