package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures cross-origin access to the API.
type CORSConfig struct {
	// AllowOrigins lists origins allowed to call the API. Empty, or a
	// single "*", allows every origin.
	AllowOrigins []string

	// AllowMethods lists the methods clients may use. Empty defaults to
	// the methods the API actually serves.
	AllowMethods []string

	// AllowHeaders lists request headers clients may send. Empty echoes
	// whatever the preflight asked for.
	AllowHeaders []string

	// AllowCredentials permits cookies and authorization headers on
	// cross-origin requests. Credentialed responses must name a concrete
	// origin, so wildcard matching switches to echoing the caller's own.
	AllowCredentials bool

	// MaxAge is how long, in seconds, a preflight result may be cached.
	// Zero omits the header, negative sends "0".
	MaxAge int
}

type cors struct {
	allowAll    bool
	origins     map[string]string // lowercase origin to configured casing
	methods     string
	headers     string
	credentials bool
	maxAge      string
}

// CORS returns a middleware handling cross-origin requests: preflights
// are answered directly, actual requests pass through annotated with
// the allow headers. Origin matching is case-insensitive and Vary is
// maintained so shared caches never serve one origin's response to
// another.
func CORS(cfg CORSConfig) Middleware {
	c := &cors{
		origins:     make(map[string]string, len(cfg.AllowOrigins)),
		credentials: cfg.AllowCredentials,
	}

	c.allowAll = len(cfg.AllowOrigins) == 0
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			c.allowAll = true
			break
		}
		c.origins[strings.ToLower(o)] = o
	}
	// A credentialed wildcard is rejected by browsers; echo the
	// specific origin instead.
	if c.credentials {
		c.allowAll = false
	}

	c.methods = strings.Join(cfg.AllowMethods, ", ")
	if c.methods == "" {
		c.methods = "GET, POST, PATCH, DELETE, OPTIONS"
	}
	c.headers = strings.Join(cfg.AllowHeaders, ", ")

	switch {
	case cfg.MaxAge > 0:
		c.maxAge = strconv.Itoa(cfg.MaxAge)
	case cfg.MaxAge < 0:
		c.maxAge = "0"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Same-origin or non-browser caller.
				if !c.allowAll {
					w.Header().Add("Vary", "Origin")
				}
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				c.preflight(w, r, origin)
				return
			}

			c.annotate(w, origin)
			next.ServeHTTP(w, r)
		})
	}
}

// preflight answers an OPTIONS probe without invoking the handler
// chain.
func (c *cors) preflight(w http.ResponseWriter, r *http.Request, origin string) {
	w.Header().Add("Vary", "Origin")
	w.Header().Add("Vary", "Access-Control-Request-Method")
	w.Header().Add("Vary", "Access-Control-Request-Headers")

	allowed := c.match(origin)
	if allowed == "" {
		// Unknown origin: answer without CORS headers and let the
		// browser block it.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", allowed)
	w.Header().Set("Access-Control-Allow-Methods", c.methods)

	if c.headers != "" {
		w.Header().Set("Access-Control-Allow-Headers", c.headers)
	} else if rh := r.Header.Get("Access-Control-Request-Headers"); rh != "" {
		w.Header().Set("Access-Control-Allow-Headers", rh)
	}
	if c.credentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	if c.maxAge != "" {
		w.Header().Set("Access-Control-Max-Age", c.maxAge)
	}

	w.WriteHeader(http.StatusNoContent)
}

// annotate adds the allow headers to an actual cross-origin response.
func (c *cors) annotate(w http.ResponseWriter, origin string) {
	if !c.allowAll {
		w.Header().Add("Vary", "Origin")
	}
	allowed := c.match(origin)
	if allowed == "" {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", allowed)
	if c.credentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
}

// match resolves the Access-Control-Allow-Origin value for origin, or
// "" when the origin is not allowed. Credentialed configurations echo
// the caller's origin in its configured casing.
func (c *cors) match(origin string) string {
	if c.allowAll {
		return "*"
	}
	if len(c.origins) == 0 && c.credentials {
		return origin
	}
	return c.origins[strings.ToLower(origin)]
}
