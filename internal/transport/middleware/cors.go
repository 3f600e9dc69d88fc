package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/heartmarshall/labassist-backend/internal/config"
)

// exposedHeaders lets browser clients read the backoff and correlation
// headers.
const exposedHeaders = "Retry-After, X-Request-Id"

// CORS returns middleware that handles Cross-Origin Resource Sharing for
// the assistant's browser client. Preflight requests are answered here and
// never reach the API; a preflight from an unknown origin gets 403.
func CORS(cfg config.CORSConfig) Middleware {
	allowed := originSet(cfg.AllowedOrigins)
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			ok := origin != "" && allowed.match(origin)
			if ok {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Expose-Headers", exposedHeaders)
				h.Add("Vary", "Origin")
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			h := w.Header()
			h.Set("Access-Control-Allow-Methods", cfg.AllowedMethods)
			h.Set("Access-Control-Allow-Headers", cfg.AllowedHeaders)
			h.Set("Access-Control-Max-Age", maxAge)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

type origins struct {
	any   bool
	exact map[string]struct{}
}

func originSet(list string) origins {
	o := origins{exact: map[string]struct{}{}}
	for _, s := range strings.Split(list, ",") {
		s = strings.TrimSpace(s)
		switch s {
		case "":
		case "*":
			o.any = true
		default:
			o.exact[strings.TrimSuffix(s, "/")] = struct{}{}
		}
	}
	return o
}

func (o origins) match(origin string) bool {
	if o.any {
		return true
	}
	_, ok := o.exact[origin]
	return ok
}
