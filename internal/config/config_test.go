package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: 5 * time.Second,
			LogLevel:        "info",
		},
		CORS: CORSConfig{
			Policies: []CORSPolicy{
				{
					Name:           "api",
					PathPattern:    `^/api/.*`,
					AllowedOrigins: []string{"https://app.example"},
					AllowedMethods: []string{"GET", "POST"},
				},
			},
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			mutate: func(_ *Config) {},
		},
		{
			name:        "invalid port negative",
			mutate:      func(c *Config) { c.Server.Port = -1 },
			expectError: true,
			errorMsg:    "invalid server port",
		},
		{
			name:        "invalid port too high",
			mutate:      func(c *Config) { c.Server.Port = 99999 },
			expectError: true,
			errorMsg:    "invalid server port",
		},
		{
			name:        "missing host",
			mutate:      func(c *Config) { c.Server.Host = "" },
			expectError: true,
			errorMsg:    "server host cannot be empty",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Server.LogLevel = "loud" },
			expectError: true,
			errorMsg:    "invalid log level",
		},
		{
			name:        "policy without name",
			mutate:      func(c *Config) { c.CORS.Policies[0].Name = "" },
			expectError: true,
			errorMsg:    "name is required",
		},
		{
			name: "duplicate policy names",
			mutate: func(c *Config) {
				c.CORS.Policies = append(c.CORS.Policies, c.CORS.Policies[0])
			},
			expectError: true,
			errorMsg:    "duplicate policy name",
		},
		{
			name:        "invalid path pattern",
			mutate:      func(c *Config) { c.CORS.Policies[0].PathPattern = `([` },
			expectError: true,
			errorMsg:    "invalid regex",
		},
		{
			name:        "unknown origin source",
			mutate:      func(c *Config) { c.CORS.Policies[0].OriginSource = "ldap" },
			expectError: true,
			errorMsg:    "origin_source must be",
		},
		{
			name: "redis source without set key",
			mutate: func(c *Config) {
				c.CORS.Policies[0].OriginSource = OriginSourceRedis
				c.CORS.Policies[0].AllowedOrigins = nil
			},
			expectError: true,
			errorMsg:    "origin_set_key is required",
		},
		{
			name: "redis source without redis address",
			mutate: func(c *Config) {
				c.CORS.Policies[0].OriginSource = OriginSourceRedis
				c.CORS.Policies[0].OriginSetKey = "cors:origins"
				c.CORS.Policies[0].AllowedOrigins = nil
			},
			expectError: true,
			errorMsg:    "redis.address is required",
		},
		{
			name: "wildcard mixed with explicit origins",
			mutate: func(c *Config) {
				c.CORS.Policies[0].AllowedOrigins = []string{"*", "https://app.example"}
			},
			expectError: true,
			errorMsg:    "wildcard origin must be the only",
		},
		{
			name: "invalid method token",
			mutate: func(c *Config) {
				c.CORS.Policies[0].AllowedMethods = []string{"GET, POST"}
			},
			expectError: true,
			errorMsg:    "not a valid token",
		},
		{
			name: "invalid header token",
			mutate: func(c *Config) {
				c.CORS.Policies[0].AllowedHeaders = []string{"x custom"}
			},
			expectError: true,
			errorMsg:    "not a valid token",
		},
		{
			name: "negative max age",
			mutate: func(c *Config) {
				maxAge := -1
				c.CORS.Policies[0].MaxAge = &maxAge
			},
			expectError: true,
			errorMsg:    "max_age cannot be negative",
		},
		{
			name:        "invalid failure mode",
			mutate:      func(c *Config) { c.CORS.Policies[0].FailureMode = "explode" },
			expectError: true,
			errorMsg:    "failure_mode must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestConfig_Validate_Defaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, OriginSourceStatic, cfg.CORS.Policies[0].OriginSource)
	assert.Equal(t, FailClosed, cfg.CORS.Policies[0].FailureMode)
	assert.Equal(t, 30*time.Second, cfg.Upstream.RequestTimeout)
}

func TestConfig_NeedsRedis(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.NeedsRedis())

	cfg.CORS.Policies = append(cfg.CORS.Policies, CORSPolicy{
		Name:         "dynamic",
		PathPattern:  `^/v2/.*`,
		OriginSource: OriginSourceRedis,
		OriginSetKey: "cors:origins",
	})
	assert.True(t, cfg.NeedsRedis())
}

func TestLoad(t *testing.T) {
	yamlContent := `
server:
  host: 0.0.0.0
  port: 9090
  read_timeout: 10s
  write_timeout: 10s
  shutdown_timeout: 30s
  log_level: debug
upstream:
  url: http://backend:3000
redis:
  address: localhost:6379
  dial_timeout: 5s
  pool_size: 10
cors:
  policies:
    - name: api
      path_pattern: ^/api/.*
      allowed_origins: ["https://app.example", "https://admin.example"]
      allowed_methods: [GET, POST, PUT]
      allowed_headers: [content-type, authorization]
      exposed_headers: [X-Request-Id]
      max_age: 600
      allow_credentials: true
    - name: public
      path_pattern: ^/public/.*
      allowed_origins: ["*"]
`

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://backend:3000", cfg.Upstream.URL)
	require.Len(t, cfg.CORS.Policies, 2)

	api := cfg.CORS.Policies[0]
	assert.Equal(t, "api", api.Name)
	assert.Equal(t, []string{"https://app.example", "https://admin.example"}, api.AllowedOrigins)
	assert.Equal(t, []string{"GET", "POST", "PUT"}, api.AllowedMethods)
	require.NotNil(t, api.MaxAge)
	assert.Equal(t, 600, *api.MaxAge)
	assert.True(t, api.AllowCredentials)

	assert.Equal(t, []string{"*"}, cfg.CORS.Policies[1].AllowedOrigins)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}
