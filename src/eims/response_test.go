package eims

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Success(t *testing.T) {
	raw := []byte(`{"statusCode":200,"message":"Success","body":{"irn":"IRN-1","signedQR":"qr","signedInvoice":"sig","acknowledged_date":"2025-09-01T10:15:30Z"}}`)

	env, err := classify(http.StatusOK, raw)
	require.NoError(t, err)
	assert.Equal(t, 200, int(env.StatusCode))
	assert.Contains(t, string(env.Body), "IRN-1")
}

func TestClassify_Conflict(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		raw       string
		wantDoc   int64
		wantCount int64
	}{
		{
			name:      "406 with message lists",
			status:    http.StatusOK,
			raw:       `{"statusCode":406,"message":"Not Acceptable","body":[{"errorMessage":["Document number is not in sequence. expected : 12"]},{"errorMessage":["Invoice counter is not in sequence. expected : 12"]}]}`,
			wantDoc:   12,
			wantCount: 12,
		},
		{
			name:      "417 with single string and padding",
			status:    http.StatusExpectationFailed,
			raw:       `{"statusCode":"417","body":[{"errorMessage":"Invoice Counter mismatch, expected :  31 "},{"errorMessage":"Document Number mismatch, Expected: 40"}]}`,
			wantDoc:   40,
			wantCount: 31,
		},
		{
			name:      "bare string entries",
			status:    http.StatusNotAcceptable,
			raw:       `{"statusCode":406,"body":["document number expected : 5","invoice counter expected : 6"]}`,
			wantDoc:   5,
			wantCount: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classify(tt.status, []byte(tt.raw))
			require.ErrorIs(t, err, ErrSequenceConflict)

			var conflict *ConflictError
			require.True(t, errors.As(err, &conflict))
			assert.Equal(t, tt.wantDoc, conflict.DocumentNumber)
			assert.Equal(t, tt.wantCount, conflict.InvoiceCounter)
		})
	}
}

func TestClassify_ConflictUnparseable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing invoice counter", `{"statusCode":406,"body":[{"errorMessage":["Document number expected : 12"]}]}`},
		{"non numeric", `{"statusCode":406,"body":[{"errorMessage":["Document number expected : twelve","Invoice counter expected : 12"]}]}`},
		{"no expected marker", `{"statusCode":417,"body":[{"errorMessage":["Document number is wrong","Invoice counter is wrong"]}]}`},
		{"zero", `{"statusCode":406,"body":[{"errorMessage":["Document number expected : 0","Invoice counter expected : 1"]}]}`},
		{"empty body", `{"statusCode":406,"body":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classify(http.StatusOK, []byte(tt.raw))
			require.ErrorIs(t, err, ErrConflictUnparseable)
			assert.False(t, errors.Is(err, ErrSequenceConflict))

			var gw *GatewayError
			require.True(t, errors.As(err, &gw))
			assert.Equal(t, tt.raw, string(gw.Raw))
		})
	}
}

func TestClassify_Throttling(t *testing.T) {
	_, err := classify(http.StatusOK, []byte(`{"statusCode":400,"message":"Too many requests!","body":[]}`))
	assert.ErrorIs(t, err, ErrRateLimited)

	_, err = classify(http.StatusTooManyRequests, []byte(`rate limit`))
	assert.ErrorIs(t, err, ErrRateLimited)

	_, err = classify(http.StatusOK, []byte(`{"statusCode":429,"body":[]}`))
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestClassify_HardFailures(t *testing.T) {
	_, err := classify(http.StatusOK, []byte(`{"statusCode":400,"message":"Invalid TIN","body":[{"errorMessage":["Seller TIN is invalid"]}]}`))
	require.ErrorIs(t, err, ErrGatewayFailure)
	var gw *GatewayError
	require.True(t, errors.As(err, &gw))
	assert.Equal(t, "Invalid TIN", gw.Message)
	assert.Contains(t, string(gw.Raw), "Seller TIN is invalid")

	_, err = classify(http.StatusInternalServerError, []byte(`{"message":"boom"}`))
	assert.ErrorIs(t, err, ErrGatewayFailure)

	_, err = classify(http.StatusOK, []byte(`<html>gateway timeout</html>`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseAckDate(t *testing.T) {
	utc := parseAckDate("2025-09-01T10:15:30.123Z")
	require.NotNil(t, utc)
	assert.Equal(t, 10, utc.UTC().Hour())

	zoned := parseAckDate("2025-09-01T10:15:30+03:00[Africa/Addis_Ababa]")
	require.NotNil(t, zoned)
	assert.Equal(t, 7, zoned.UTC().Hour())

	local := parseAckDate("2025-09-01 10:15:30")
	require.NotNil(t, local)
	assert.Equal(t, 7, local.UTC().Hour())

	assert.Nil(t, parseAckDate(""))
	assert.Nil(t, parseAckDate("yesterday"))
}
