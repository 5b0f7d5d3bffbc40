// Package authgrp maintains the group of handlers for Sign-In with Ethereum.
package authgrp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/learnblock/learnblock/business/core/state"
	"github.com/learnblock/learnblock/business/web/auth"
	"github.com/learnblock/learnblock/business/web/errs"
	"github.com/learnblock/learnblock/foundation/validate"
	"github.com/learnblock/learnblock/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of auth endpoints.
type Handlers struct {
	Log          *zap.SugaredLogger
	Auth         *auth.Auth
	State        *state.State
	CookieSecure bool

	// FollowSession connects the core to the signed in address. It is set
	// when the service runs without its own signer.
	FollowSession bool
}

// Nonce issues a nonce for a sign in message.
func (h Handlers) Nonce(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		Nonce string `json:"nonce"`
	}{
		Nonce: h.Auth.IssueNonce(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Verify checks the signed message and sets the session cookie.
func (h Handlers) Verify(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req verifyRequest
	if err := web.Decode(r, &req); err != nil {
		if validate.IsFieldErrors(err) {
			return err
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	session, err := h.Auth.Verify(req.Message, req.Signature)
	if err != nil {
		return errs.FromCore(err)
	}

	h.Log.Infow("sign in", "traceid", web.GetTraceID(ctx), "address", session.Address)

	if h.FollowSession {
		if err := h.State.Connect(ctx, session.Address, nil); err != nil {
			return errs.FromCore(err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	resp := sessionResponse{
		Authenticated: true,
		Address:       session.Address.Hex(),
		ExpiresAt:     session.ExpiresAt.UTC(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Session reports whether the request carries a valid session.
func (h Handlers) Session(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(auth.CookieName)
	if err != nil {
		return web.Respond(ctx, w, sessionResponse{}, http.StatusOK)
	}

	claims, err := h.Auth.Validate(cookie.Value)
	if err != nil {
		return web.Respond(ctx, w, sessionResponse{}, http.StatusOK)
	}

	resp := sessionResponse{
		Authenticated: true,
		Address:       claims.Address().Hex(),
		ExpiresAt:     claims.ExpiresAt.Time.UTC(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SignOut clears the session cookie. When the core follows the session the
// account is disconnected and its cache cleared.
func (h Handlers) SignOut(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.GetClaims(ctx)
	if err != nil {
		return errs.NewTrusted(errors.New("session required"), http.StatusUnauthorized)
	}

	if h.FollowSession && h.State.Snapshot().Address == claims.Address() {
		h.State.Disconnect()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// =============================================================================

type verifyRequest struct {
	Message   string `json:"message" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

type sessionResponse struct {
	Authenticated bool      `json:"authenticated"`
	Address       string    `json:"address,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt,omitzero"`
}

