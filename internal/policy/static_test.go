package policy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perimeterhq/corsgate/internal/config"
	"github.com/perimeterhq/corsgate/internal/cors"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func intPtr(v int) *int {
	return &v
}

func TestStatic_ActualRequest(t *testing.T) {
	policy := Static(config.CORSPolicy{
		Name:           "api",
		AllowedOrigins: []string{"https://app.example"},
		ExposedHeaders: []string{"X-Request-Id"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/data", http.NoBody)
	req.Header.Set(cors.HeaderOrigin, "https://app.example")

	out := cors.Execute(req, policy)

	assert.Equal(t, cors.VerdictContinue, out.Verdict)
	assert.Equal(t, "https://app.example", out.Header.Get(cors.HeaderAllowOrigin))
	assert.Equal(t, "X-Request-Id", out.Header.Get(cors.HeaderExposeHeaders))
	assert.Empty(t, out.Header.Get(cors.HeaderAllowCredentials))
}

func TestStatic_WildcardOrigins(t *testing.T) {
	policy := Static(config.CORSPolicy{
		Name:           "public",
		AllowedOrigins: []string{"*"},
	})

	req := httptest.NewRequest(http.MethodGet, "/public/feed", http.NoBody)
	req.Header.Set(cors.HeaderOrigin, "https://whoever.example")

	out := cors.Execute(req, policy)

	assert.Equal(t, cors.VerdictContinue, out.Verdict)

	// The wildcard marker still results in the literal origin being
	// echoed.
	assert.Equal(t, "https://whoever.example", out.Header.Get(cors.HeaderAllowOrigin))
}

func TestStatic_Preflight(t *testing.T) {
	policy := Static(config.CORSPolicy{
		Name:             "api",
		AllowedOrigins:   []string{"https://app.example"},
		AllowedMethods:   []string{"GET", "PUT"},
		AllowedHeaders:   []string{"content-type"},
		MaxAge:           intPtr(600),
		AllowCredentials: true,
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/data", http.NoBody)
	req.Header.Set(cors.HeaderOrigin, "https://app.example")
	req.Header.Set(cors.HeaderRequestMethod, "PUT")
	req.Header.Set(cors.HeaderRequestHdrs, "content-type")

	out := cors.Execute(req, policy)

	require.Equal(t, cors.VerdictShortCircuit, out.Verdict)
	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, "GET,PUT", out.Header.Get(cors.HeaderAllowMethods))
	assert.Equal(t, "origin,content-type", out.Header.Get(cors.HeaderAllowHeaders))
	assert.Equal(t, "600", out.Header.Get(cors.HeaderMaxAge))
	assert.Equal(t, "true", out.Header.Get(cors.HeaderAllowCredentials))
}

func TestStatic_UnconfiguredCapabilitiesAreNil(t *testing.T) {
	// Only fields present in the config become callbacks; the engine
	// must see nil for the rest and apply its defaults.
	policy := Static(config.CORSPolicy{
		Name:           "minimal",
		AllowedOrigins: []string{"https://app.example"},
	})

	assert.Nil(t, policy.Init)
	assert.NotNil(t, policy.AllowedOrigins)
	assert.Nil(t, policy.AllowedMethods)
	assert.Nil(t, policy.AllowedHeaders)
	assert.Nil(t, policy.ExposedHeaders)
	assert.Nil(t, policy.MaxAge)
	assert.Nil(t, policy.AllowCredentials)
}

func TestStatic_EmptyAllowListRejects(t *testing.T) {
	policy := Static(config.CORSPolicy{Name: "closed"})

	req := httptest.NewRequest(http.MethodGet, "/closed", http.NoBody)
	req.Header.Set(cors.HeaderOrigin, "https://app.example")

	out := cors.Execute(req, policy)

	assert.Equal(t, cors.VerdictContinue, out.Verdict)
	assert.Empty(t, out.Header)
}
