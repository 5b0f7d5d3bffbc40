// Package handlers manages the different versions of the API.
package handlers

import (
	"context"
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/learnblock/learnblock/app/services/learnblock/handlers/debug/checkgrp"
	v1 "github.com/learnblock/learnblock/app/services/learnblock/handlers/v1"
	"github.com/learnblock/learnblock/app/services/learnblock/handlers/v1/learngrp"
	"github.com/learnblock/learnblock/business/core/state"
	"github.com/learnblock/learnblock/business/sys/metrics"
	"github.com/learnblock/learnblock/business/web/auth"
	"github.com/learnblock/learnblock/business/web/mid"
	"github.com/learnblock/learnblock/foundation/events"
	"github.com/learnblock/learnblock/foundation/nameservice"
	"github.com/learnblock/learnblock/foundation/web"
	"go.uber.org/zap"
)

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown      chan os.Signal
	Log           *zap.SugaredLogger
	Metrics       *metrics.Metrics
	State         *state.State
	Auth          *auth.Auth
	NS            *nameservice.NameService
	Evts          *events.Events
	Public        learngrp.PublicConfig
	CorsOrigin    string
	CookieSecure  bool
	FollowSession bool
}

// APIMux constructs a http.Handler with all application routes defined.
func APIMux(cfg MuxConfig) http.Handler {

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(cfg.Metrics),
		mid.Cors(cfg.CorsOrigin),
		mid.Panics(cfg.Metrics),
	)

	// Accept CORS 'OPTIONS' preflight requests.
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "", "/*", h, mid.Cors(cfg.CorsOrigin))

	// Load the v1 routes.
	v1.Routes(app, v1.Config{
		Log:           cfg.Log,
		State:         cfg.State,
		Auth:          cfg.Auth,
		NS:            cfg.NS,
		Evts:          cfg.Evts,
		Public:        cfg.Public,
		CookieSecure:  cfg.CookieSecure,
		FollowSession: cfg.FollowSession,
	})

	return app
}

// DebugStandardLibraryMux registers all the debug routes from the standard library
// into a new mux bypassing the use of the DefaultServerMux. Using the
// DefaultServerMux would be a security risk since a dependency could inject a
// handler into our service without us knowing it.
func DebugStandardLibraryMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Register all the standard library debug endpoints.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// DebugMux registers all the debug standard library routes and then custom
// debug application routes for the service, including the prometheus
// metrics endpoint.
func DebugMux(build string, log *zap.SugaredLogger, m *metrics.Metrics, ready func(ctx context.Context) error) http.Handler {
	mux := DebugStandardLibraryMux()

	// Register debug check endpoints.
	cgh := checkgrp.Handlers{
		Build: build,
		Log:   log,
		Ready: ready,
	}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)
	mux.Handle("/metrics", m.Handler())

	return mux
}
