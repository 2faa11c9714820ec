package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perimeterhq/corsgate/internal/config"
	"github.com/perimeterhq/corsgate/internal/testutil"
)

func TestNew(t *testing.T) {
	srv, err := New(testutil.NewTestLogger(), testutil.NewTestConfig(), nil)

	require.NoError(t, err)
	assert.NotNil(t, srv)
}

func TestNew_InvalidUpstream(t *testing.T) {
	cfg := testutil.NewTestConfig()
	cfg.Upstream.URL = "/not/absolute"

	_, err := New(testutil.NewTestLogger(), cfg, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create proxy")
}

func TestNew_RedisPolicyWithoutClient(t *testing.T) {
	cfg := testutil.NewTestConfig()
	cfg.CORS.Policies = append(cfg.CORS.Policies, config.CORSPolicy{
		Name:         "dynamic",
		PathPattern:  `^/v2/.*`,
		OriginSource: config.OriginSourceRedis,
		OriginSetKey: "cors:origins",
	})

	_, err := New(testutil.NewTestLogger(), cfg, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build CORS policies")
}
