package eims

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const throttleMessage = "too many requests"

var expectedValue = regexp.MustCompile(`(?i)expected\s*:\s*(.*)$`)

// envelope is the common EIMS response wrapper. body is an object on success and
// an array of error entries on rejection.
type envelope struct {
	StatusCode flexInt         `json:"statusCode"`
	Message    string          `json:"message"`
	Body       json.RawMessage `json:"body"`
}

// flexInt accepts numbers and numeric strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("statusCode %q is not numeric", s)
	}
	*f = flexInt(n)
	return nil
}

// Acknowledgement is the fiscal acknowledgement of a registered invoice.
type Acknowledgement struct {
	IRN            string     `json:"irn"`
	SignedQR       string     `json:"signedQR"`
	SignedInvoice  string     `json:"signedInvoice"`
	AckDateRaw     string     `json:"acknowledged_date"`
	AcknowledgedAt *time.Time `json:"-"`
}

// ReceiptAcknowledgement is the gateway's answer to a sales receipt.
type ReceiptAcknowledgement struct {
	RRN string `json:"rrn"`
	QR  string `json:"qr"`
}

// classify turns a raw gateway response into nil (success) or a typed error.
func classify(httpStatus int, raw []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if httpStatus == http.StatusTooManyRequests {
			return nil, &GatewayError{Kind: ErrRateLimited, HTTPStatus: httpStatus, Raw: raw}
		}
		return nil, &GatewayError{Kind: ErrMalformedResponse, HTTPStatus: httpStatus, Raw: raw,
			Message: fmt.Sprintf("decode response: %v", err)}
	}

	status := int(env.StatusCode)
	if status == 0 {
		status = httpStatus
	}

	if httpStatus == http.StatusTooManyRequests || status == http.StatusTooManyRequests ||
		strings.Contains(strings.ToLower(env.Message), throttleMessage) {
		return nil, &GatewayError{Kind: ErrRateLimited, HTTPStatus: httpStatus, StatusCode: status, Message: env.Message, Raw: raw}
	}

	if status == http.StatusNotAcceptable || status == http.StatusExpectationFailed {
		return nil, parseConflict(status, env.Body, raw)
	}

	if httpStatus >= http.StatusBadRequest || status >= http.StatusBadRequest {
		return nil, &GatewayError{Kind: ErrGatewayFailure, HTTPStatus: httpStatus, StatusCode: status, Message: env.Message, Raw: raw}
	}
	return &env, nil
}

// parseConflict extracts the counters quoted in "... expected : <N>" messages.
// Both must be present and numeric; anything else is a gateway contract violation.
func parseConflict(status int, body json.RawMessage, raw []byte) error {
	var (
		doc, counter       int64
		haveDoc, haveCount bool
	)
	for _, msg := range errorMessages(body) {
		lower := strings.ToLower(msg)
		switch {
		case strings.Contains(lower, "document number"):
			n, err := expectedNumber(msg)
			if err != nil {
				return &GatewayError{Kind: ErrConflictUnparseable, StatusCode: status, Message: err.Error(), Raw: raw}
			}
			doc, haveDoc = n, true
		case strings.Contains(lower, "invoice counter"):
			n, err := expectedNumber(msg)
			if err != nil {
				return &GatewayError{Kind: ErrConflictUnparseable, StatusCode: status, Message: err.Error(), Raw: raw}
			}
			counter, haveCount = n, true
		}
	}
	if !haveDoc || !haveCount {
		return &GatewayError{Kind: ErrConflictUnparseable, StatusCode: status, Raw: raw,
			Message: fmt.Sprintf("document number found=%t, invoice counter found=%t", haveDoc, haveCount)}
	}
	return &ConflictError{StatusCode: status, DocumentNumber: doc, InvoiceCounter: counter, Raw: raw}
}

func expectedNumber(msg string) (int64, error) {
	m := expectedValue.FindStringSubmatch(msg)
	if m == nil {
		return 0, fmt.Errorf("no expected value in %q", msg)
	}
	value := strings.TrimSpace(m[1])
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("expected value %q is not a positive integer", value)
	}
	return n, nil
}

// errorMessages flattens body[].errorMessage, accepting a list or a single string
// per entry, and bare strings as entries.
func errorMessages(body json.RawMessage) []string {
	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil
	}

	var out []string
	for _, entry := range entries {
		var s string
		if json.Unmarshal(entry, &s) == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			ErrorMessage json.RawMessage `json:"errorMessage"`
		}
		if json.Unmarshal(entry, &obj) != nil || len(obj.ErrorMessage) == 0 {
			continue
		}
		var list []string
		if json.Unmarshal(obj.ErrorMessage, &list) == nil {
			out = append(out, list...)
			continue
		}
		if json.Unmarshal(obj.ErrorMessage, &s) == nil {
			out = append(out, s)
		}
	}
	return out
}

// parseAckDate accepts the timestamp variants EIMS returns, such as
// "2025-09-01T10:15:30.123Z", "2025-09-01T10:15:30+03:00[Africa/Addis_Ababa]"
// or a zone-less local time.
func parseAckDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "["); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return &t
	}

	eat := time.FixedZone("EAT", 3*60*60)
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, strings.TrimSuffix(s, "Z"), eat); err == nil {
			return &t
		}
	}
	return nil
}
