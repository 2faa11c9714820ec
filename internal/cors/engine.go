// Package cors implements CORS negotiation as a pure, per-request
// decision function: given an inbound request and a pluggable policy,
// it decides which CORS response headers to emit and whether the
// request should short-circuit (preflight), pass through, or fail.
//
// The engine holds no state across requests and performs no I/O of its
// own; concurrency, cancellation and response writing are entirely the
// host's concern.
package cors

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
)

// Verdict is the disposition of a negotiated request.
type Verdict int

const (
	// VerdictContinue lets normal request dispatch proceed; the
	// accumulated headers must be emitted on the eventual response.
	VerdictContinue Verdict = iota

	// VerdictShortCircuit instructs the host to reply immediately with
	// Status and the accumulated headers, skipping the downstream
	// application. Used for recognized preflight requests.
	VerdictShortCircuit

	// VerdictFatal signals an unrecoverable policy failure. The host
	// should surface it as a generic internal error, never as a
	// CORS-specific response.
	VerdictFatal
)

// String returns the verdict name, for logs and metric labels.
func (v Verdict) String() string {
	switch v {
	case VerdictContinue:
		return "continue"
	case VerdictShortCircuit:
		return "short_circuit"
	case VerdictFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the result of negotiating one request.
type Outcome struct {
	Verdict Verdict

	// Status is the response status for VerdictShortCircuit.
	Status int

	// Header holds the accumulated CORS response headers. It may be
	// empty (plain pass-through) and is never nil for non-fatal
	// outcomes.
	Header http.Header

	// Err is non-nil only for VerdictFatal.
	Err error
}

// negotiation is the mutable accumulator for one request. It is created
// at the start of Execute, owned exclusively by the engine, and
// discarded at termination.
type negotiation[S any] struct {
	policy Policy[S]
	state  S
	req    *http.Request

	method         string
	origin         string
	requestMethod  string
	preflight      bool
	reqHdrsPresent bool
	allowedHeaders []string

	header http.Header
}

// Execute runs the CORS decision sequence for r against policy p.
//
// Requests without an Origin header pass through untouched. Requests
// from unauthorized origins, and OPTIONS requests whose
// Access-Control-Request-Method header is not a single valid token,
// pass through with no CORS headers; the browser rejects the response
// on its end. A recognized preflight always short-circuits with 200,
// whether or not authorization succeeded partway: rejection is conveyed
// purely through absent headers, never through the status code.
func Execute[S any](r *http.Request, p Policy[S]) Outcome {
	origin := r.Header.Get(HeaderOrigin)
	if origin == "" {
		// Not a CORS request.
		return Outcome{Verdict: VerdictContinue, Header: make(http.Header)}
	}

	n := &negotiation[S]{
		policy: p,
		req:    r,
		method: r.Method,
		origin: origin,
		// The allowed-headers list is seeded with "origin" before any
		// policy contribution.
		allowedHeaders: []string{"origin"},
		header:         make(http.Header),
	}

	if p.Init != nil {
		state, err := p.Init(r)
		if err != nil {
			return n.fatal("init", err)
		}

		n.state = state
	}

	return n.run()
}

// run executes the decision sequence after policy initialization. Each
// step may terminate negotiation early.
func (n *negotiation[S]) run() Outcome {
	// Origin authorization. An unauthorized origin is not an error:
	// the request passes through and the missing
	// Access-Control-Allow-Origin header makes the browser reject the
	// response.
	origins := Origins{}

	if cb := n.policy.AllowedOrigins; cb != nil {
		var err error

		origins, n.state, err = cb(n.req, n.state)
		if err != nil {
			return n.fatal("allowed_origins", err)
		}
	}

	if !origins.Wildcard() && !origins.Contains(n.origin) {
		return n.passThrough()
	}

	// Preflight detection: OPTIONS plus a syntactically valid
	// Access-Control-Request-Method header. A malformed value (anything
	// other than exactly one token) demotes the request to an ordinary
	// one with no CORS headers at all.
	if n.method == http.MethodOptions {
		if acrm, found := firstHeader(n.req.Header, HeaderRequestMethod); found {
			token, ok := ParseSingleToken(acrm)
			if !ok {
				return n.passThrough()
			}

			n.preflight = true
			n.requestMethod = token
		}
	}

	if n.preflight {
		if outcome, done := n.runPreflight(); done {
			return outcome
		}
	} else {
		// Exposed headers apply only to actual (non-preflight)
		// responses.
		if cb := n.policy.ExposedHeaders; cb != nil {
			exposed, state, err := cb(n.req, n.state)
			if err != nil {
				return n.fatal("exposed_headers", err)
			}

			n.state = state

			if len(exposed) > 0 {
				n.header.Set(HeaderExposeHeaders, JoinTokens(exposed))
			}
		}
	}

	return n.credentials()
}

// runPreflight covers the preflight-only steps: request-headers
// presence, max-age, allowed methods and allowed headers. The returned
// outcome is meaningful only when done is true.
func (n *negotiation[S]) runPreflight() (Outcome, bool) {
	// Presence only; the concrete header names are not validated here.
	_, n.reqHdrsPresent = firstHeader(n.req.Header, HeaderRequestHdrs)

	if cb := n.policy.MaxAge; cb != nil {
		maxAge, state, err := cb(n.req, n.state)
		if err != nil {
			return n.fatal("max_age", err), true
		}

		n.state = state

		if maxAge >= 0 {
			n.header.Set(HeaderMaxAge, strconv.Itoa(maxAge))
		}
	}

	var methods []string

	if cb := n.policy.AllowedMethods; cb != nil {
		var err error

		methods, n.state, err = cb(n.req, n.state)
		if err != nil {
			return n.fatal("allowed_methods", err), true
		}
	}

	if !slices.Contains(methods, n.requestMethod) {
		// Preflight authorization failed for this method. Negotiation
		// ends with whatever headers have accumulated so far; the 200
		// short-circuit still happens in terminate.
		return n.terminate(), true
	}

	if cb := n.policy.AllowedHeaders; cb != nil {
		headers, state, err := cb(n.req, n.state)
		if err != nil {
			return n.fatal("allowed_headers", err), true
		}

		n.state = state
		n.allowedHeaders = append(n.allowedHeaders, headers...)
	}

	n.header.Set(HeaderAllowMethods, JoinTokens(methods))

	if n.reqHdrsPresent {
		n.header.Set(HeaderAllowHeaders, JoinTokens(n.allowedHeaders))
	} else {
		n.header.Set(HeaderAllowHeaders, "")
	}

	return Outcome{}, false
}

// credentials is the final authorization step shared by the preflight
// and actual paths.
func (n *negotiation[S]) credentials() Outcome {
	allow := false

	if cb := n.policy.AllowCredentials; cb != nil {
		var err error

		allow, n.state, err = cb(n.req, n.state)
		if err != nil {
			return n.fatal("allow_credentials", err)
		}
	}

	// The literal request origin is always echoed, never a wildcard:
	// the wildcard is forbidden whenever credentials may be present,
	// and echoing uniformly keeps the two paths identical.
	n.header.Set(HeaderAllowOrigin, n.origin)

	if allow {
		n.header.Set(HeaderAllowCredentials, "true")
	}

	n.header.Set(HeaderVary, varyOrigin)

	return n.terminate()
}

// terminate produces the final outcome from the accumulated headers. A
// recognized preflight always short-circuits with 200, regardless of
// how far authorization got.
func (n *negotiation[S]) terminate() Outcome {
	if n.preflight {
		return Outcome{
			Verdict: VerdictShortCircuit,
			Status:  http.StatusOK,
			Header:  n.header,
		}
	}

	return Outcome{Verdict: VerdictContinue, Header: n.header}
}

// passThrough ends negotiation before preflight detection completed:
// the request continues downstream with no CORS headers.
func (n *negotiation[S]) passThrough() Outcome {
	return Outcome{Verdict: VerdictContinue, Header: n.header}
}

// fatal converts a policy callback error into a fatal outcome. Only
// callback failures escape the engine; negotiation-level rejections are
// resolved locally as "no CORS headers" outcomes. The host logs the
// error once, with its own request context attached.
func (n *negotiation[S]) fatal(callback string, err error) Outcome {
	return Outcome{
		Verdict: VerdictFatal,
		Err:     fmt.Errorf("cors policy %q: %s: %w", n.policy.Name, callback, err),
	}
}

// firstHeader returns the first value associated with the canonical
// key k, and whether the header is present at all. Unlike
// http.Header.Get, presence is reported even for an empty value.
func firstHeader(hdrs http.Header, k string) (string, bool) {
	v, found := hdrs[k]
	if !found || len(v) == 0 {
		return "", false
	}

	return v[0], true
}
