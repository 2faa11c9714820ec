package handlers

import (
	"encoding/json"
	"net/http"
)

// EchoResponse describes the request as the downstream application saw
// it, including the CORS request headers the browser sent. Useful when
// running the gateway without an upstream to try policies out.
type EchoResponse struct {
	Method        string `json:"method"`
	Path          string `json:"path"`
	Origin        string `json:"origin,omitempty"`
	RequestMethod string `json:"access_control_request_method,omitempty"`
}

// Echo returns the built-in downstream handler used when no upstream is
// configured.
func Echo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := EchoResponse{
			Method:        r.Method,
			Path:          r.URL.Path,
			Origin:        r.Header.Get("Origin"),
			RequestMethod: r.Header.Get("Access-Control-Request-Method"),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)

			return
		}
	}
}
