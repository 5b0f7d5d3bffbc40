// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/learnblock/learnblock/app/services/learnblock/handlers/v1/authgrp"
	"github.com/learnblock/learnblock/app/services/learnblock/handlers/v1/learngrp"
	"github.com/learnblock/learnblock/business/core/state"
	"github.com/learnblock/learnblock/business/web/auth"
	"github.com/learnblock/learnblock/business/web/mid"
	"github.com/learnblock/learnblock/foundation/events"
	"github.com/learnblock/learnblock/foundation/nameservice"
	"github.com/learnblock/learnblock/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log           *zap.SugaredLogger
	State         *state.State
	Auth          *auth.Auth
	NS            *nameservice.NameService
	Evts          *events.Events
	Public        learngrp.PublicConfig
	CookieSecure  bool
	FollowSession bool
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	authen := mid.Authenticate(cfg.Auth)

	agh := authgrp.Handlers{
		Log:           cfg.Log,
		Auth:          cfg.Auth,
		State:         cfg.State,
		CookieSecure:  cfg.CookieSecure,
		FollowSession: cfg.FollowSession,
	}

	app.Handle(http.MethodGet, version, "/auth/nonce", agh.Nonce)
	app.Handle(http.MethodPost, version, "/auth/verify", agh.Verify)
	app.Handle(http.MethodGet, version, "/auth/session", agh.Session)
	app.Handle(http.MethodDelete, version, "/auth/session", agh.SignOut, authen)

	lgh := learngrp.Handlers{
		Log:    cfg.Log,
		State:  cfg.State,
		NS:     cfg.NS,
		Evts:   cfg.Evts,
		Public: cfg.Public,

		FollowSession: cfg.FollowSession,
	}

	// When the core follows the signed in account only one account is
	// served at a time. The last sign in wins and the cached state is
	// visible to that session only.
	var viewer []web.Middleware
	if cfg.FollowSession {
		viewer = append(viewer, authen)
	}

	app.Handle(http.MethodGet, version, "/config", lgh.Config)
	app.Handle(http.MethodGet, version, "/state", lgh.Snapshot, viewer...)
	app.Handle(http.MethodPost, version, "/state/refresh", lgh.Refresh, authen)
	app.Handle(http.MethodGet, version, "/content", lgh.Contents)
	app.Handle(http.MethodGet, version, "/content/:id", lgh.ContentByID)
	app.Handle(http.MethodPost, version, "/content", lgh.CreateContent, authen)
	app.Handle(http.MethodPost, version, "/content/:id/questions", lgh.AddQuestion, authen)
	app.Handle(http.MethodPost, version, "/content/:id/read", lgh.Read, authen)
	app.Handle(http.MethodPost, version, "/content/:id/quiz", lgh.Quiz, authen)
	app.Handle(http.MethodPost, version, "/register", lgh.Register, authen)
	app.Handle(http.MethodPost, version, "/claim", lgh.Claim, authen)
	app.Handle(http.MethodGet, version, "/actions", lgh.Actions, viewer...)
	app.Handle(http.MethodGet, version, "/users/:address/profile", lgh.UserProfile)
	app.Handle(http.MethodGet, version, "/events", lgh.Events, viewer...)
}
