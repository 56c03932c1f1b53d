package eims

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	"golang.org/x/oauth2"
)

const (
	cacheKeyAccessToken  = "eims:access_token"
	cacheKeyRefreshToken = "eims:refresh_token"

	defaultExpiresIn = 3600
)

// TokenCache is the subset of github.com/patrickmn/go-cache used for tokens.
type TokenCache interface {
	Get(k string) (interface{}, bool)
	Set(k string, x interface{}, d time.Duration)
	Delete(k string)
}

// Credentials identify the seller's system to EIMS.
type Credentials struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	APIKey       string `json:"apikey"`
	TIN          string `json:"tin"`
}

// CredentialsFunc loads the current credentials, typically from the settings store.
type CredentialsFunc func(ctx context.Context) (Credentials, error)

type tokenResponse struct {
	Data struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    int    `json:"expiresIn"`
	} `json:"data"`
}

// TokenManager obtains EIMS bearer tokens. A cached token is reused until it is
// within the expiry margin; then the refresh token is tried, and a full login is
// the fallback.
type TokenManager struct {
	authURL     string
	httpClient  *http.Client
	cache       TokenCache
	credentials CredentialsFunc
	margin      time.Duration
	refreshTTL  time.Duration
	now         func() time.Time

	mu sync.Mutex
}

type TokenManagerConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Margin     time.Duration
	RefreshTTL time.Duration
}

func NewTokenManager(cfg TokenManagerConfig, cache TokenCache, credentials CredentialsFunc) *TokenManager {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenManager{
		authURL:     trimSlash(cfg.BaseURL) + "/auth",
		httpClient:  client,
		cache:       cache,
		credentials: credentials,
		margin:      cfg.Margin,
		refreshTTL:  cfg.RefreshTTL,
		now:         time.Now,
	}
}

// Token returns a bearer token valid for at least the configured margin.
func (m *TokenManager) Token(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.cache.Get(cacheKeyAccessToken); ok {
		if tok, ok := v.(*oauth2.Token); ok && tok.Expiry.After(m.now().Add(m.margin)) {
			return tok, nil
		}
	}

	if v, ok := m.cache.Get(cacheKeyRefreshToken); ok {
		if refresh, ok := v.(string); ok && refresh != "" {
			tok, err := m.refresh(ctx, refresh)
			if err == nil {
				return tok, nil
			}
			logger.L.Warn("EIMS token refresh failed, falling back to login", "error", err)
		}
	}

	return m.login(ctx)
}

// Invalidate drops the cached access token so the next call re-authenticates.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Delete(cacheKeyAccessToken)
}

// TokenSource adapts the manager to oauth2 for requests made under ctx.
func (m *TokenManager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &boundTokenSource{ctx: ctx, manager: m}
}

type boundTokenSource struct {
	ctx     context.Context
	manager *TokenManager
}

func (s *boundTokenSource) Token() (*oauth2.Token, error) {
	return s.manager.Token(s.ctx)
}

func (m *TokenManager) login(ctx context.Context) (*oauth2.Token, error) {
	creds, err := m.credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load credentials: %v", ErrAuthenticationFailed, err)
	}
	resp, err := m.post(ctx, m.authURL+"/login", creds)
	if err != nil {
		return nil, fmt.Errorf("%w: login: %v", ErrAuthenticationFailed, err)
	}
	logger.L.Info("EIMS login succeeded", "tin", creds.TIN)
	return m.store(resp, ""), nil
}

func (m *TokenManager) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	resp, err := m.post(ctx, m.authURL+"/refresh-token", map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return nil, err
	}
	logger.L.Debug("EIMS token refreshed")
	return m.store(resp, refreshToken), nil
}

func (m *TokenManager) store(resp *tokenResponse, previousRefresh string) *oauth2.Token {
	expiresIn := resp.Data.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}
	ttl := time.Duration(expiresIn) * time.Second

	refresh := resp.Data.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}

	tok := &oauth2.Token{
		AccessToken:  resp.Data.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: refresh,
		Expiry:       m.now().Add(ttl),
	}
	m.cache.Set(cacheKeyAccessToken, tok, ttl)
	if refresh != "" {
		m.cache.Set(cacheKeyRefreshToken, refresh, m.refreshTTL)
	}
	return tok
}

func (m *TokenManager) post(ctx context.Context, url string, body any) (*tokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("http %d: %s", res.StatusCode, truncate(raw, 256))
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.Data.AccessToken == "" {
		return nil, fmt.Errorf("token response missing accessToken")
	}
	return &tr, nil
}
