package middleware

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/perimeterhq/corsgate/internal/cors"
	"github.com/perimeterhq/corsgate/internal/policy"
)

var corsDecisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cors_decisions_total",
		Help: "Total number of CORS negotiation outcomes",
	},
	[]string{"policy", "verdict"},
)

func init() {
	prometheus.MustRegister(corsDecisionsTotal)
}

// CORS returns middleware that runs CORS negotiation for every request
// whose path matches a configured policy. The negotiation outcome
// drives the pipeline:
//
//   - Continue: the accumulated headers are copied onto the response
//     and the downstream handler runs as usual.
//   - ShortCircuit: the response is written immediately (a recognized
//     preflight, always 200) and the downstream handler never runs.
//   - Fatal: a policy callback failed; the request is aborted with a
//     plain 500, never a CORS-specific response.
//
// Paths matching no policy are passed through untouched.
func CORS(log logrus.FieldLogger, selector *policy.Selector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			exec, name, ok := selector.Match(r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)

				return
			}

			outcome := exec.Execute(r)
			corsDecisionsTotal.WithLabelValues(name, outcome.Verdict.String()).Inc()

			switch outcome.Verdict {
			case cors.VerdictContinue:
				applyHeaders(w.Header(), outcome.Header)
				next.ServeHTTP(w, r)

			case cors.VerdictShortCircuit:
				applyHeaders(w.Header(), outcome.Header)
				w.WriteHeader(outcome.Status)

			default:
				// VerdictFatal, or anything unrecognized. Never let an
				// unknown verdict fall through to the downstream handler.
				log.WithError(outcome.Err).WithFields(logrus.Fields{
					"policy":     name,
					"verdict":    outcome.Verdict.String(),
					"method":     r.Method,
					"path":       r.URL.Path,
					"request_id": RequestIDFrom(r.Context()),
				}).Error("CORS negotiation aborted")

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		})
	}
}

// applyHeaders copies the negotiated headers onto the response. The
// engine never produces multi-valued headers, but empty values (the
// explicit empty Access-Control-Allow-Headers) must survive the copy.
func applyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Set(key, value)
		}
	}
}
