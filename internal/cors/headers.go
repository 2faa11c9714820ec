package cors

// Header names involved in CORS negotiation, in canonical format.
const (
	// request headers
	HeaderOrigin        = "Origin"
	HeaderRequestMethod = "Access-Control-Request-Method"
	HeaderRequestHdrs   = "Access-Control-Request-Headers"

	// response headers
	HeaderAllowOrigin      = "Access-Control-Allow-Origin"
	HeaderAllowCredentials = "Access-Control-Allow-Credentials"
	HeaderAllowMethods     = "Access-Control-Allow-Methods"
	HeaderAllowHeaders     = "Access-Control-Allow-Headers"
	HeaderExposeHeaders    = "Access-Control-Expose-Headers"
	HeaderMaxAge           = "Access-Control-Max-Age"
	HeaderVary             = "Vary"
)

// varyOrigin is the value set on the Vary header of every response that
// echoes a request origin.
const varyOrigin = "origin"
