// Package proxy forwards requests that survived CORS negotiation to
// the configured upstream application.
package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/perimeterhq/corsgate/internal/config"
)

// Proxy reverse-proxies to a single upstream.
type Proxy struct {
	target *url.URL
	rp     *httputil.ReverseProxy
	logger logrus.FieldLogger
}

// New creates a proxy for the configured upstream URL.
func New(logger logrus.FieldLogger, cfg config.UpstreamConfig) (*Proxy, error) {
	target, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}

	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("upstream URL %q must be absolute", cfg.URL)
	}

	p := &Proxy{
		target: target,
		logger: logger.WithField("component", "proxy"),
	}

	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	p.rp = &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
			r.SetXForwarded()
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			p.logger.WithFields(logrus.Fields{
				"target_url":  target.String(),
				"error":       err.Error(),
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
			}).Error("Upstream error")

			p.writeJSONError(w, http.StatusBadGateway, "upstream unavailable")
		},
	}

	return p, nil
}

// Target returns the upstream URL being proxied to.
func (p *Proxy) Target() string {
	return p.target.String()
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Debug("Proxying request")

	p.rp.ServeHTTP(w, r)
}

func (p *Proxy) writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		p.logger.WithError(err).Error("Failed to encode error response")
	}
}
