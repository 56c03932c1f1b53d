package eims

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	"golang.org/x/oauth2"
)

const maxResponseBytes = 1 << 20

// Gateway is the EIMS surface used by the services.
type Gateway interface {
	RegisterInvoice(ctx context.Context, req InvoiceRequest) (*Acknowledgement, error)
	SubmitReceipt(ctx context.Context, req ReceiptRequest) (*ReceiptAcknowledgement, error)
	Ping(ctx context.Context) error
}

type Config struct {
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
}

// Client talks to the EIMS REST API. Every call carries a bearer token from the
// TokenManager through an oauth2.Transport.
type Client struct {
	apiURL  string
	timeout time.Duration
	base    http.RoundTripper
	tokens  *TokenManager
}

func NewClient(cfg Config, tokens *TokenManager) *Client {
	apiURL := trimSlash(cfg.BaseURL)
	if cfg.APIVersion != "" {
		apiURL += "/" + strings.Trim(cfg.APIVersion, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiURL:  apiURL,
		timeout: timeout,
		base:    http.DefaultTransport,
		tokens:  tokens,
	}
}

func (c *Client) httpClient(ctx context.Context) *http.Client {
	return &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: c.tokens.TokenSource(ctx),
			Base:   c.base,
		},
	}
}

// RegisterInvoice submits an invoice. A nil error means the gateway acknowledged
// it; otherwise the error is a *ConflictError or a *GatewayError.
func (c *Client) RegisterInvoice(ctx context.Context, req InvoiceRequest) (*Acknowledgement, error) {
	status, raw, err := c.post(ctx, "/register", req)
	if err != nil {
		return nil, err
	}
	env, err := classify(status, raw)
	if err != nil {
		return nil, err
	}

	var ack Acknowledgement
	if err := json.Unmarshal(env.Body, &ack); err != nil || ack.IRN == "" {
		return nil, &GatewayError{Kind: ErrMalformedResponse, HTTPStatus: status, StatusCode: int(env.StatusCode),
			Message: "acknowledgement without irn", Raw: raw}
	}
	ack.AcknowledgedAt = parseAckDate(ack.AckDateRaw)
	return &ack, nil
}

func (c *Client) SubmitReceipt(ctx context.Context, req ReceiptRequest) (*ReceiptAcknowledgement, error) {
	status, raw, err := c.post(ctx, "/receipt/sales", req)
	if err != nil {
		return nil, err
	}
	env, err := classify(status, raw)
	if err != nil {
		return nil, err
	}

	var ack ReceiptAcknowledgement
	if err := json.Unmarshal(env.Body, &ack); err != nil || ack.RRN == "" {
		return nil, &GatewayError{Kind: ErrMalformedResponse, HTTPStatus: status, StatusCode: int(env.StatusCode),
			Message: "receipt acknowledgement without rrn", Raw: raw}
	}
	return &ack, nil
}

// Ping verifies connectivity and credentials by obtaining a token.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.tokens.Token(ctx)
	return err
}

// post sends body as JSON. A 401 invalidates the cached token and is retried once;
// an unauthorized request was not processed, so it cannot double-submit.
func (c *Client) post(ctx context.Context, path string, body any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("encode request: %w", err)
	}

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(payload))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		res, err := c.httpClient(ctx).Do(req)
		if err != nil {
			if errors.Is(err, ErrAuthenticationFailed) {
				return 0, nil, err
			}
			return 0, nil, &GatewayError{Kind: ErrGatewayUnavailable, Message: err.Error()}
		}

		raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
		res.Body.Close()
		if err != nil {
			return res.StatusCode, nil, &GatewayError{Kind: ErrGatewayUnavailable, HTTPStatus: res.StatusCode,
				Message: fmt.Sprintf("read response: %v", err)}
		}

		if res.StatusCode == http.StatusUnauthorized && attempt == 1 {
			logger.FromContext(ctx).Warn("EIMS rejected bearer token, re-authenticating", "path", path)
			c.tokens.Invalidate()
			continue
		}
		if res.StatusCode == http.StatusUnauthorized {
			return res.StatusCode, raw, &GatewayError{Kind: ErrAuthenticationFailed, HTTPStatus: res.StatusCode, Raw: raw}
		}
		return res.StatusCode, raw, nil
	}
}

func trimSlash(s string) string {
	return strings.TrimRight(s, "/")
}
