package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
)

// MaxRequestBodyBytes bounds JSON request bodies.
const MaxRequestBodyBytes = 1 << 20

// SendJSONError sends {"error": message} with the given status.
func SendJSONError(w http.ResponseWriter, message string, statusCode int) {
	SendJSONErrorWithDetails(w, message, statusCode, nil)
}

// SendJSONErrorWithDetails adds extra top-level fields to the error body.
func SendJSONErrorWithDetails(w http.ResponseWriter, message string, statusCode int, details map[string]any) {
	body := map[string]any{"error": message}
	for k, v := range details {
		body[k] = v
	}
	logger.L.Warn("Sending JSON error to client", "message", message, "statusCode", statusCode)
	SendJSON(w, statusCode, body)
}

func SendJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Error("Failed to encode JSON response", "error", err)
	}
}

// DecodeJSON reads a single JSON document from the request body.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}
