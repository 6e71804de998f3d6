package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentforge/contentforge/internal/config"
	"github.com/contentforge/contentforge/internal/entitlement"
	"github.com/contentforge/contentforge/internal/generator"
	"github.com/contentforge/contentforge/internal/keywords"
	"github.com/contentforge/contentforge/internal/model"
	"github.com/contentforge/contentforge/internal/session"
	"github.com/contentforge/contentforge/internal/store"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.Server.CORSOrigins = []string{"*"}
	c.Server.RatePerSecond = 1000
	c.Server.RateBurst = 1000
	c.Pricing.Currency = "INR"
	c.Pricing.Monthly = 99
	c.Pricing.Weekly = 25
	c.Support.UPIID = "contentforge@upi"
	c.Support.PayeeName = "ContentForge"
	c.Support.Amounts = []float64{25, 50, 99}
	return c
}

func newTestEnv(t *testing.T) *appEnv {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	gen, err := generator.New(generator.WithSeed(1))
	require.NoError(t, err)

	src := keywords.NewCached(keywords.NewStatic(
		model.TrendingKeyword{Keyword: "AI Shorts", SearchVolume: 9000},
		model.TrendingKeyword{Keyword: "Faceless Channels", SearchVolume: 7000},
	), st, time.Hour)

	resolver := entitlement.NewResolver(st)
	deps := session.Deps{Generator: gen, Keywords: src, Resolver: resolver, Claims: st}

	return &appEnv{
		store:    st,
		gen:      gen,
		keywords: src,
		resolver: resolver,
		sessions: session.NewManager(deps, time.Hour),
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg = testConfig()
	return newRouter(newTestEnv(t))
}

func doJSON(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServeHealth(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestGenerate_YouTube(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/generate", "", generateRequest{
		Platform: "youtube",
		Topic:    "home espresso",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[generateResponse](t, rec)
	assert.Equal(t, model.PlatformYouTube, resp.Platform)
	assert.False(t, resp.PrecisionApplied)
	assert.Nil(t, resp.Upgrade)
	require.NotNil(t, resp.Content)
	assert.GreaterOrEqual(t, len(resp.Content.Titles), 3)
	assert.LessOrEqual(t, len(resp.Content.Titles), 5)
	assert.NotEmpty(t, resp.Content.Hashtags)
	assert.Empty(t, resp.Content.Captions)
}

func TestGenerate_Instagram(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/generate", "", generateRequest{
		Platform: "instagram",
		Topic:    "street photography",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[generateResponse](t, rec)
	require.NotNil(t, resp.Content)
	assert.Len(t, resp.Content.Captions, 3)
	assert.Empty(t, resp.Content.Titles)
}

func TestGenerate_UnknownPlatform(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/generate", "", generateRequest{
		Platform: "tiktok",
		Topic:    "home espresso",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerate_TopicTooShort(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/generate", "", generateRequest{
		Platform: "youtube",
		Topic:    "ab",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerate_InvalidBody(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerate_PrecisionDeniedWithoutEntitlement(t *testing.T) {
	h := newTestRouter(t)
	precision := true

	rec := doJSON(t, h, http.MethodPost, "/api/generate", "user-1", generateRequest{
		Platform:  "youtube",
		Topic:     "home espresso",
		Precision: &precision,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[generateResponse](t, rec)
	assert.False(t, resp.PrecisionApplied, "precision must never apply without a verified payment")
	require.NotNil(t, resp.Upgrade)
	assert.Equal(t, "INR", resp.Upgrade.Currency)
	assert.InDelta(t, 99.0, resp.Upgrade.Monthly, 0.001)
	assert.InDelta(t, 25.0, resp.Upgrade.Weekly, 0.001)
}

func TestResults_MissingParams(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/api/results?platform=youtube", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "/", decode[map[string]string](t, rec)["redirect"])
}

func TestResults_OK(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/api/results?platform=instagram&topic=street+photography", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[generateResponse](t, rec)
	assert.Equal(t, model.PlatformInstagram, resp.Platform)
	assert.Len(t, resp.Content.Captions, 3)
}

func TestClaim_RequiresIdentity(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/payment-claims", "", claimRequest{Amount: 99})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	result := decode[model.ClaimResult](t, rec)
	assert.False(t, result.Success)
}

func TestClaim_RejectsZeroAmount(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/payment-claims", "user-1", claimRequest{Amount: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClaim_GrantsPrecisionForSession(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/payment-claims", "user-1", claimRequest{Amount: 99})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[model.ClaimResult](t, rec)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.PaymentID)

	// The same identity now generates with precision applied.
	precision := true
	rec = doJSON(t, h, http.MethodPost, "/api/generate", "user-1", generateRequest{
		Platform:  "youtube",
		Topic:     "home espresso",
		Precision: &precision,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[generateResponse](t, rec)
	assert.True(t, resp.PrecisionApplied)
	assert.Nil(t, resp.Upgrade)

	// A different identity stays non-premium.
	status := doJSON(t, h, http.MethodGet, "/api/premium-status", "user-2", nil)
	require.Equal(t, http.StatusOK, status.Code)
	assert.False(t, decode[map[string]any](t, status)["premium"].(bool))
}

func TestPremiumStatus_Anonymous(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/api/premium-status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.False(t, body["premium"].(bool))
	assert.NotNil(t, body["pricing"])
}

func TestSupport(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/api/support", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "contentforge@upi", body["upi_id"])
	assert.Contains(t, body["upi_uri"], "upi://pay?pa=contentforge@upi")
}

func TestRateLimit(t *testing.T) {
	cfg = testConfig()
	cfg.Server.RatePerSecond = 0.001
	cfg.Server.RateBurst = 1
	h := newRouter(newTestEnv(t))

	first := doJSON(t, h, http.MethodPost, "/api/generate", "", generateRequest{
		Platform: "youtube",
		Topic:    "home espresso",
	})
	require.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, h, http.MethodPost, "/api/generate", "", generateRequest{
		Platform: "youtube",
		Topic:    "home espresso",
	})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// Non-generation endpoints are not limited.
	health := doJSON(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestJWTIdentity(t *testing.T) {
	cfg = testConfig()
	cfg.Auth.JWTSecret = "test-secret"
	h := newRouter(newTestEnv(t))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	// A valid token carries the sub claim as identity.
	rec := doJSON(t, h, http.MethodPost, "/api/payment-claims", token, claimRequest{Amount: 99})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[model.ClaimResult](t, rec).Success)

	// A garbage token degrades to anonymous.
	rec = doJSON(t, h, http.MethodPost, "/api/payment-claims", "not-a-jwt", claimRequest{Amount: 99})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A token signed with the wrong key degrades to anonymous.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user-1",
	}).SignedString([]byte("wrong-secret"))
	require.NoError(t, err)
	rec = doJSON(t, h, http.MethodPost, "/api/payment-claims", forged, claimRequest{Amount: 99})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
