package cors

import (
	"net/http"
)

// Origins is the answer to a policy's AllowedOrigins callback: either
// the wildcard marker (any origin is authorized) or an explicit list of
// origin serializations.
type Origins struct {
	wildcard bool
	list     []string
}

// AnyOrigin returns the wildcard marker.
func AnyOrigin() Origins {
	return Origins{wildcard: true}
}

// OriginList returns an explicit origin allow-list.
func OriginList(origins ...string) Origins {
	return Origins{list: origins}
}

// Wildcard reports whether o is the wildcard marker.
func (o Origins) Wildcard() bool {
	return o.wildcard
}

// Contains reports whether origin is a member of the allow-list.
// It is always false for the wildcard marker; callers are expected to
// check Wildcard first.
func (o Origins) Contains(origin string) bool {
	for _, allowed := range o.list {
		if allowed == origin {
			return true
		}
	}

	return false
}

// Policy is the pluggable decision authority consulted during CORS
// negotiation. It is a capability struct: every callback except Init
// may be nil, in which case the engine applies the documented default
// and does not call the policy at all.
//
// Defaults for nil callbacks:
//   - AllowedOrigins: empty list (no origin is authorized)
//   - AllowedMethods: empty list (no preflight method is authorized)
//   - AllowedHeaders: empty list
//   - ExposedHeaders: empty list
//   - MaxAge: undefined (no Access-Control-Max-Age header)
//   - AllowCredentials: false
//
// S is an opaque state type owned by the policy. The engine obtains the
// initial state from Init (or the zero value of S when Init is nil) and
// threads it through every subsequent callback without inspecting it.
// Callbacks must be synchronous and fast; any error they return aborts
// negotiation with a fatal outcome.
type Policy[S any] struct {
	// Name identifies the policy in logs.
	Name string

	Init             func(r *http.Request) (S, error)
	AllowedOrigins   func(r *http.Request, state S) (Origins, S, error)
	AllowedMethods   func(r *http.Request, state S) ([]string, S, error)
	AllowedHeaders   func(r *http.Request, state S) ([]string, S, error)
	ExposedHeaders   func(r *http.Request, state S) ([]string, S, error)
	MaxAge           func(r *http.Request, state S) (int, S, error) // negative means undefined
	AllowCredentials func(r *http.Request, state S) (bool, S, error)
}

// An Executor runs CORS negotiation for a single request. It erases the
// policy's state type so that differently-typed policies can sit behind
// one selection layer.
type Executor interface {
	Execute(r *http.Request) Outcome
}

type executorFunc func(r *http.Request) Outcome

func (f executorFunc) Execute(r *http.Request) Outcome {
	return f(r)
}

// Bind adapts p into an Executor, erasing its state type.
func Bind[S any](p Policy[S]) Executor {
	return executorFunc(func(r *http.Request) Outcome {
		return Execute(r, p)
	})
}
