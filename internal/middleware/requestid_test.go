package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_GeneratesIdentifier(t *testing.T) {
	var seen string

	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotEmpty(t, seen)

	_, err := uuid.Parse(seen)
	assert.NoError(t, err, "generated identifier should be a UUID")
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader), "identifier is echoed on the response")
}

func TestRequestID_PreservesClientIdentifier(t *testing.T) {
	var seen string

	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set(RequestIDHeader, "client-supplied-id")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "client-supplied-id", seen)
	assert.Equal(t, "client-supplied-id", rec.Header().Get(RequestIDHeader))
}

func TestRequestIDFrom_MissingMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)

	assert.Empty(t, RequestIDFrom(req.Context()))
}
