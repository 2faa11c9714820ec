//nolint:tagliatelle // superior snake-case yo.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/perimeterhq/corsgate/internal/cors"
)

// Origin sources for a CORS policy.
const (
	OriginSourceStatic = "static"
	OriginSourceRedis  = "redis"
)

// Failure modes for policies whose allow-list lives in Redis.
const (
	FailOpen   = "fail_open"
	FailClosed = "fail_closed"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Upstream UpstreamConfig `yaml:"upstream"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
}

// RedisConfig holds Redis client configuration. Redis is required only
// when at least one CORS policy sources its origins from Redis.
type RedisConfig struct {
	Address      string        `yaml:"address"`
	Password     string        `yaml:"password"` //nolint:gosec // Config field, not a hardcoded secret.
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

// UpstreamConfig describes the application behind the gateway. An empty
// URL enables the built-in echo handler instead of proxying.
type UpstreamConfig struct {
	URL            string        `yaml:"url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// CORSConfig holds the ordered CORS policy list.
type CORSConfig struct {
	Policies []CORSPolicy `yaml:"policies"`
}

// CORSPolicy configures one CORS policy, selected by path pattern.
// First matching policy wins; paths matching no policy get no CORS
// processing at all.
type CORSPolicy struct {
	Name        string `yaml:"name"`
	PathPattern string `yaml:"path_pattern"` // Regex pattern

	// OriginSource is "static" (default) or "redis".
	OriginSource string `yaml:"origin_source"`

	// AllowedOrigins is the static allow-list. The single entry "*"
	// authorizes every origin.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// OriginSetKey is the Redis set holding the allow-list when
	// origin_source is "redis".
	OriginSetKey string `yaml:"origin_set_key"`

	// FailureMode governs Redis errors: "fail_closed" (default) aborts
	// the request, "fail_open" degrades to an empty allow-list.
	FailureMode string `yaml:"failure_mode"`

	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	ExposedHeaders   []string `yaml:"exposed_headers"`
	MaxAge           *int     `yaml:"max_age"` // seconds; omitted = no Access-Control-Max-Age
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// NeedsRedis reports whether any policy requires a Redis connection.
func (c *Config) NeedsRedis() bool {
	for _, p := range c.CORS.Policies {
		if p.OriginSource == OriginSourceRedis {
			return true
		}
	}

	return false
}

// Validate validates the configuration and sets defaults.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive")
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	if c.Upstream.RequestTimeout == 0 {
		c.Upstream.RequestTimeout = 30 * time.Second
	}

	if c.Upstream.RequestTimeout < 0 {
		return fmt.Errorf("upstream.request_timeout must be positive")
	}

	if err := c.validateCORS(); err != nil {
		return fmt.Errorf("cors: %w", err)
	}

	// Redis is required infrastructure only for Redis-sourced policies.
	if c.NeedsRedis() {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address is required when a policy uses origin_source: redis")
		}

		if c.Redis.DialTimeout <= 0 {
			return fmt.Errorf("redis.dial_timeout must be positive")
		}

		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be positive")
		}
	}

	return nil
}

func (c *Config) validateCORS() error {
	names := make(map[string]bool)

	for i := range c.CORS.Policies {
		p := &c.CORS.Policies[i]

		if p.Name == "" {
			return fmt.Errorf("policies[%d].name is required", i)
		}

		if names[p.Name] {
			return fmt.Errorf("duplicate policy name: %s", p.Name)
		}

		names[p.Name] = true

		if p.PathPattern == "" {
			return fmt.Errorf("policies[%d].path_pattern is required", i)
		}

		if _, err := regexp.Compile(p.PathPattern); err != nil {
			return fmt.Errorf("policies[%d].path_pattern invalid regex: %w", i, err)
		}

		if err := p.validate(); err != nil {
			return fmt.Errorf("policies[%d] (%s): %w", i, p.Name, err)
		}
	}

	return nil
}

// validate checks a single policy and sets its defaults.
func (p *CORSPolicy) validate() error {
	switch p.OriginSource {
	case "":
		p.OriginSource = OriginSourceStatic
	case OriginSourceStatic:
	case OriginSourceRedis:
		if p.OriginSetKey == "" {
			return fmt.Errorf("origin_set_key is required for origin_source: redis")
		}

		if len(p.AllowedOrigins) > 0 {
			return fmt.Errorf("allowed_origins cannot be combined with origin_source: redis")
		}
	default:
		return fmt.Errorf("origin_source must be %q or %q", OriginSourceStatic, OriginSourceRedis)
	}

	switch p.FailureMode {
	case "":
		p.FailureMode = FailClosed
	case FailOpen, FailClosed:
	default:
		return fmt.Errorf("failure_mode must be %q or %q", FailOpen, FailClosed)
	}

	for _, origin := range p.AllowedOrigins {
		if origin == "" {
			return fmt.Errorf("allowed_origins entries cannot be empty")
		}

		if origin == "*" && len(p.AllowedOrigins) > 1 {
			return fmt.Errorf("wildcard origin must be the only allowed_origins entry")
		}
	}

	// Methods and header names are emitted verbatim into response
	// headers, so they must be valid HTTP tokens.
	for _, m := range p.AllowedMethods {
		if _, ok := cors.ParseSingleToken(m); !ok {
			return fmt.Errorf("allowed_methods entry %q is not a valid token", m)
		}
	}

	for _, h := range p.AllowedHeaders {
		if _, ok := cors.ParseSingleToken(h); !ok {
			return fmt.Errorf("allowed_headers entry %q is not a valid token", h)
		}
	}

	for _, h := range p.ExposedHeaders {
		if _, ok := cors.ParseSingleToken(h); !ok {
			return fmt.Errorf("exposed_headers entry %q is not a valid token", h)
		}
	}

	if p.MaxAge != nil && *p.MaxAge < 0 {
		return fmt.Errorf("max_age cannot be negative")
	}

	return nil
}
