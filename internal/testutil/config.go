package testutil

import (
	"time"

	"github.com/perimeterhq/corsgate/internal/config"
)

// NewTestConfig returns a minimal valid config for testing.
func NewTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: 5 * time.Second,
			LogLevel:        "info",
		},
		CORS: config.CORSConfig{
			Policies: []config.CORSPolicy{
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
