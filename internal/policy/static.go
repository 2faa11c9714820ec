// Package policy provides concrete CORS policies and the path-based
// selection layer that binds them to requests.
package policy

import (
	"net/http"
	"slices"

	"github.com/perimeterhq/corsgate/internal/config"
	"github.com/perimeterhq/corsgate/internal/cors"
)

// Static builds a stateless policy whose every decision is fixed at
// construction time. Capabilities absent from the configuration are
// left nil, so the engine applies its documented defaults instead of
// calling the policy.
func Static(cfg config.CORSPolicy) cors.Policy[struct{}] {
	origins := cors.OriginList(slices.Clone(cfg.AllowedOrigins)...)
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		origins = cors.AnyOrigin()
	}

	p := cors.Policy[struct{}]{Name: cfg.Name}

	p.AllowedOrigins = func(_ *http.Request, s struct{}) (cors.Origins, struct{}, error) {
		return origins, s, nil
	}

	applyStatic(&p, cfg)

	return p
}

// applyStatic fills the capabilities that are fixed configuration,
// for any policy state type.
func applyStatic[S any](p *cors.Policy[S], cfg config.CORSPolicy) {
	if len(cfg.AllowedMethods) > 0 {
		methods := slices.Clone(cfg.AllowedMethods)

		p.AllowedMethods = func(_ *http.Request, s S) ([]string, S, error) {
			return methods, s, nil
		}
	}

	if len(cfg.AllowedHeaders) > 0 {
		headers := slices.Clone(cfg.AllowedHeaders)

		p.AllowedHeaders = func(_ *http.Request, s S) ([]string, S, error) {
			return headers, s, nil
		}
	}

	if len(cfg.ExposedHeaders) > 0 {
		exposed := slices.Clone(cfg.ExposedHeaders)

		p.ExposedHeaders = func(_ *http.Request, s S) ([]string, S, error) {
			return exposed, s, nil
		}
	}

	if cfg.MaxAge != nil {
		maxAge := *cfg.MaxAge

		p.MaxAge = func(_ *http.Request, s S) (int, S, error) {
			return maxAge, s, nil
		}
	}

	if cfg.AllowCredentials {
		p.AllowCredentials = func(_ *http.Request, s S) (bool, S, error) {
			return true, s, nil
		}
	}
}
