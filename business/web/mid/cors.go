package mid

import (
	"context"
	"net/http"

	"github.com/learnblock/learnblock/foundation/web"
)

// Cors sets the response headers needed for Cross-Origin Resource Sharing.
// Credentials are allowed so the browser sends the session cookie.
func Cors(origin string) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Set the CORS headers to the response.
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token")
			if origin != "*" {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			// Call the next handler.
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
