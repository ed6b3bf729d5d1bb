package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sngm3741/store-catalog/api/internal/config"
	commonhttp "github.com/sngm3741/store-catalog/api/internal/interfaces/http/common"
	"github.com/sngm3741/store-catalog/api/internal/metrics"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T, auth config.AuthConfig) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.New().Register(reg))
	return &Server{
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		registry:       reg,
		auth:           newTokenVerifier(auth),
		checks:         map[string]healthCheck{},
		allowedOrigins: []string{"https://app.example"},
		requestTimeout: time.Second,
	}
}

func signToken(t *testing.T, secret string, claims authClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() authClaims {
	now := time.Now()
	return authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "catalog-auth",
			Audience:  jwt.ClaimStrings{"catalog"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Name: "Wes",
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv := newTestServer(t, config.AuthConfig{JWTSecret: testSecret, JWTIssuer: "catalog-auth", JWTAudience: "catalog"})

	var seen commonhttp.AuthenticatedUser
	protected := srv.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = commonhttp.UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := validClaims()
	wrongAudience.Audience = jwt.ClaimStrings{"other"}
	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", validClaims()), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, expired), http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + signToken(t, testSecret, wrongIssuer), http.StatusUnauthorized},
		{"wrong audience", "Bearer " + signToken(t, testSecret, wrongAudience), http.StatusUnauthorized},
		{"no subject", "Bearer " + signToken(t, testSecret, noSubject), http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, testSecret, validClaims()), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/hearts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	assert.Equal(t, "user-1", seen.ID)
	assert.Equal(t, "Wes", seen.Name)
}

func TestAuthMiddleware_RejectsOtherAlgorithms(t *testing.T) {
	srv := newTestServer(t, config.AuthConfig{JWTSecret: testSecret})
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, validClaims())
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = srv.auth.parse(signed)
	assert.Error(t, err)
}

func TestWithCORS(t *testing.T) {
	handler := withCORS([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/stores", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/stores", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	wildcard := withCORS([]string{"*"})(http.NotFoundHandler())
	req = httptest.NewRequest(http.MethodGet, "/stores", nil)
	req.Header.Set("Origin", "https://any.example")
	rec = httptest.NewRecorder()
	wildcard.ServeHTTP(rec, req)
	assert.Equal(t, "https://any.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(t, config.AuthConfig{JWTSecret: testSecret})
	srv.checks["mongo"] = func(context.Context) error { return nil }

	rec := httptest.NewRecorder()
	srv.healthHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mongo":"ok"`)

	srv.checks["redis"] = func(context.Context) error { return errors.New("dial tcp: refused") }
	rec = httptest.NewRecorder()
	srv.healthHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestRouter_MetricsAndProtectedRoutes(t *testing.T) {
	srv := newTestServer(t, config.AuthConfig{JWTSecret: testSecret})
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hearts", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stores", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
