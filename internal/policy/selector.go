package policy

import (
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/perimeterhq/corsgate/internal/config"
	"github.com/perimeterhq/corsgate/internal/cors"
	"github.com/perimeterhq/corsgate/internal/redis"
)

// Selector matches request paths to bound CORS policy executors.
type Selector struct {
	rules []compiledRule
}

// compiledRule pairs a compiled path pattern with the executor of the
// policy it selects.
type compiledRule struct {
	name    string
	pattern *regexp.Regexp
	exec    cors.Executor
}

// NewSelector compiles the configured policies into a Selector. The
// Redis client may be nil as long as no policy sources its origins from
// Redis.
func NewSelector(
	log logrus.FieldLogger,
	client redis.Client,
	policies []config.CORSPolicy,
) (*Selector, error) {
	rules := make([]compiledRule, 0, len(policies))

	for _, p := range policies {
		pattern, err := regexp.Compile(p.PathPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid path_pattern in policy %q: %w", p.Name, err)
		}

		var exec cors.Executor

		switch p.OriginSource {
		case config.OriginSourceRedis:
			if client == nil {
				return nil, fmt.Errorf("policy %q sources origins from redis but no client is configured", p.Name)
			}

			exec = cors.Bind(RedisOrigins(log, client, p))
		default:
			exec = cors.Bind(Static(p))
		}

		rules = append(rules, compiledRule{
			name:    p.Name,
			pattern: pattern,
			exec:    exec,
		})
	}

	return &Selector{rules: rules}, nil
}

// Match returns the executor and name of the first policy matching the
// given path. Policies are evaluated in order - first match wins.
func (s *Selector) Match(path string) (cors.Executor, string, bool) {
	for _, r := range s.rules {
		if r.pattern.MatchString(path) {
			return r.exec, r.name, true
		}
	}

	return nil, "", false
}
