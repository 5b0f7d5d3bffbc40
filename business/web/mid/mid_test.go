package mid_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/learnblock/learnblock/business/sys/metrics"
	"github.com/learnblock/learnblock/business/web/auth"
	"github.com/learnblock/learnblock/business/web/errs"
	"github.com/learnblock/learnblock/business/web/mid"
	"github.com/learnblock/learnblock/foundation/web"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func newApp(a *auth.Auth) *web.App {
	log := zap.NewNop().Sugar()
	m := metrics.New("test")

	app := web.NewApp(
		make(chan os.Signal, 1),
		mid.Logger(log),
		mid.Errors(log),
		mid.Metrics(m),
		mid.Panics(m),
	)

	app.Handle(http.MethodGet, "v1", "/panic", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("boom")
	})

	app.Handle(http.MethodGet, "v1", "/trusted", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errs.NewTrusted(errors.New("not here"), http.StatusNotFound)
	})

	app.Handle(http.MethodGet, "v1", "/private", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		claims, err := auth.GetClaims(ctx)
		if err != nil {
			return err
		}
		return web.Respond(ctx, w, claims.Subject, http.StatusOK)
	}, mid.Authenticate(a))

	return app
}

func Test_Middleware(t *testing.T) {
	a, err := auth.New(auth.Config{Domain: "learnblock.io", ChainID: 4157, Secret: "test-secret-test-secret"})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the authenticator: %s", failed, err)
	}
	app := newApp(a)

	t.Log("Given the need to handle errors in the middleware chain.")
	{
		t.Logf("\tTest 0:\tWhen a handler panics.")
		{
			w := httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/panic", nil))

			if w.Code != http.StatusInternalServerError {
				t.Fatalf("\t%s\tTest 0:\tShould respond with a 500: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 0:\tShould respond with a 500.", success)
		}

		t.Logf("\tTest 1:\tWhen a handler returns a trusted error.")
		{
			w := httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/trusted", nil))

			var resp errs.Response
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould decode the response: %s", failed, err)
			}

			if w.Code != http.StatusNotFound || resp.Error != "not here" {
				t.Fatalf("\t%s\tTest 1:\tShould respond with the trusted error: %d %+v", failed, w.Code, resp)
			}
			t.Logf("\t%s\tTest 1:\tShould respond with the trusted error.", success)
		}

		t.Logf("\tTest 2:\tWhen a private route has no session.")
		{
			w := httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/private", nil))

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("\t%s\tTest 2:\tShould respond with a 401: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 2:\tShould respond with a 401.", success)
		}

		t.Logf("\tTest 3:\tWhen a private route has a forged session.")
		{
			r := httptest.NewRequest(http.MethodGet, "/v1/private", nil)
			r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "not.a.token"})

			w := httptest.NewRecorder()
			app.ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("\t%s\tTest 3:\tShould respond with a 401: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 3:\tShould respond with a 401.", success)
		}
	}
}
