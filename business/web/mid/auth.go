package mid

import (
	"context"
	"errors"
	"net/http"

	"github.com/learnblock/learnblock/business/web/auth"
	"github.com/learnblock/learnblock/business/web/errs"
	"github.com/learnblock/learnblock/foundation/web"
)

// Authenticate validates the session cookie and puts the claims into the
// context. Requests without a valid session are rejected.
func Authenticate(a *auth.Auth) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			cookie, err := r.Cookie(auth.CookieName)
			if err != nil {
				return errs.NewTrusted(errors.New("session required"), http.StatusUnauthorized)
			}

			claims, err := a.Validate(cookie.Value)
			if err != nil {
				return errs.NewTrusted(err, http.StatusUnauthorized)
			}

			// Add claims to the context so they can be retrieved later.
			ctx = auth.SetClaims(ctx, claims)

			// Call the next handler.
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
