package policy

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/perimeterhq/corsgate/internal/config"
	"github.com/perimeterhq/corsgate/internal/cors"
	"github.com/perimeterhq/corsgate/internal/redis"
)

// originState is the per-request policy state: the origin allow-list
// loaded from Redis during Init and consulted by AllowedOrigins. The
// engine threads it through without inspection.
type originState struct {
	origins cors.Origins
}

// RedisOrigins builds a policy whose origin allow-list is a Redis set.
// Init loads the set once per request; every other capability is fixed
// configuration, as in Static.
//
// Redis failures follow the policy's failure mode: fail_closed turns
// the error into a fatal negotiation outcome, fail_open degrades to an
// empty allow-list, so the request passes through with no CORS headers.
func RedisOrigins(
	log logrus.FieldLogger,
	client redis.Client,
	cfg config.CORSPolicy,
) cors.Policy[originState] {
	log = log.WithFields(logrus.Fields{
		"component": "cors_policy",
		"policy":    cfg.Name,
	})

	p := cors.Policy[originState]{Name: cfg.Name}

	p.Init = func(r *http.Request) (originState, error) {
		members, err := client.SMembers(r.Context(), cfg.OriginSetKey)
		if err != nil {
			if cfg.FailureMode == config.FailOpen {
				log.WithError(err).WithField("key", cfg.OriginSetKey).
					Warn("origin allow-list unavailable, failing open with empty list")

				return originState{origins: cors.OriginList()}, nil
			}

			return originState{}, fmt.Errorf("load origin allow-list %q: %w", cfg.OriginSetKey, err)
		}

		return originState{origins: cors.OriginList(members...)}, nil
	}

	p.AllowedOrigins = func(_ *http.Request, s originState) (cors.Origins, originState, error) {
		return s.origins, s, nil
	}

	applyStatic(&p, cfg)

	return p
}
