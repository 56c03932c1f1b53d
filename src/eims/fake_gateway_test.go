package eims

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
)

// fakeGateway is an httptest EIMS double. Handlers for /v1/register and
// /v1/receipt/sales are supplied per test; auth endpoints are built in.
type fakeGateway struct {
	server *httptest.Server

	mu            sync.Mutex
	logins        int
	refreshes     int
	failRefresh   bool
	failLogin     bool
	lastAuthz     []string
	register      http.HandlerFunc
	receipt       http.HandlerFunc
	loginRequests []Credentials
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	g := &fakeGateway{}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", g.handleLogin)
	mux.HandleFunc("/auth/refresh-token", g.handleRefresh)
	mux.HandleFunc("/v1/register", func(w http.ResponseWriter, r *http.Request) {
		g.recordAuthz(r)
		g.mu.Lock()
		h := g.register
		g.mu.Unlock()
		h(w, r)
	})
	mux.HandleFunc("/v1/receipt/sales", func(w http.ResponseWriter, r *http.Request) {
		g.recordAuthz(r)
		g.mu.Lock()
		h := g.receipt
		g.mu.Unlock()
		h(w, r)
	})

	g.server = httptest.NewServer(mux)
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGateway) recordAuthz(r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastAuthz = append(g.lastAuthz, r.Header.Get("Authorization"))
}

func (g *fakeGateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	_ = json.NewDecoder(r.Body).Decode(&creds)

	g.mu.Lock()
	g.logins++
	n := g.logins
	fail := g.failLogin
	g.loginRequests = append(g.loginRequests, creds)
	g.mu.Unlock()

	if fail {
		http.Error(w, `{"message":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}
	writeToken(w, fmt.Sprintf("access-%d", n), fmt.Sprintf("refresh-%d", n))
}

func (g *fakeGateway) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	g.mu.Lock()
	g.refreshes++
	n := g.refreshes
	fail := g.failRefresh
	g.mu.Unlock()

	if fail || body.RefreshToken == "" {
		http.Error(w, `{"message":"refresh token expired"}`, http.StatusUnauthorized)
		return
	}
	writeToken(w, fmt.Sprintf("refreshed-%d", n), "")
}

func writeToken(w http.ResponseWriter, access, refresh string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": map[string]any{
			"accessToken":  access,
			"refreshToken": refresh,
			"expiresIn":    3600,
		},
	})
}

func (g *fakeGateway) counts() (logins, refreshes int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.logins, g.refreshes
}

func (g *fakeGateway) authorizations() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.lastAuthz...)
}

func testCredentials(context.Context) (Credentials, error) {
	return Credentials{ClientID: "client", ClientSecret: "secret", APIKey: "key", TIN: "0098765432"}, nil
}

func newTestTokenManager(g *fakeGateway) *TokenManager {
	return NewTokenManager(TokenManagerConfig{
		BaseURL:    g.server.URL,
		Margin:     30 * time.Second,
		RefreshTTL: 7 * 24 * time.Hour,
	}, cache.New(time.Hour, time.Hour), testCredentials)
}

func newTestClient(g *fakeGateway) *Client {
	return NewClient(Config{BaseURL: g.server.URL + "/", APIVersion: "v1", Timeout: 5 * time.Second}, newTestTokenManager(g))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
