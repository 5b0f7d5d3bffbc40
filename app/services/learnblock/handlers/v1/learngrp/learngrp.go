// Package learngrp maintains the group of handlers for the LearnBlock state,
// content and actions.
package learngrp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/learnblock/learnblock/business/core/state"
	"github.com/learnblock/learnblock/business/web/auth"
	"github.com/learnblock/learnblock/business/web/errs"
	"github.com/learnblock/learnblock/foundation/events"
	"github.com/learnblock/learnblock/foundation/nameservice"
	"github.com/learnblock/learnblock/foundation/validate"
	"github.com/learnblock/learnblock/foundation/web"
	"go.uber.org/zap"
)

// PublicConfig is the runtime configuration the frontend needs to talk to
// the chain and wallets.
type PublicConfig struct {
	ChainID                int64  `json:"chainId"`
	RPCURL                 string `json:"rpcUrl"`
	ContractAddress        string `json:"contractAddress"`
	WalletConnectProjectID string `json:"walletConnectProjectId"`
}

// Handlers manages the set of LearnBlock endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	State  *state.State
	NS     *nameservice.NameService
	Evts   *events.Events
	WS     websocket.Upgrader
	Public PublicConfig

	// FollowSession is set when the core follows the signed in account. The
	// core serves one account at a time, so the cached state is only shown
	// to the session that owns it.
	FollowSession bool
}

// Config returns the public runtime configuration.
func (h Handlers) Config(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Public, http.StatusOK)
}

// Snapshot returns the cached state for the connected account.
func (h Handlers) Snapshot(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.requireViewer(ctx); err != nil {
		return err
	}

	return web.Respond(ctx, w, ToAppSnapshot(h.State.Snapshot()), http.StatusOK)
}

// Refresh fetches the profile for the connected account again.
func (h Handlers) Refresh(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.requireAccount(ctx); err != nil {
		return err
	}

	snap := h.State.RefreshUserProfile(ctx)
	return web.Respond(ctx, w, ToAppSnapshot(snap), http.StatusOK)
}

// Contents returns the cached content list. A reload is forced with the
// query parameter reload=true.
func (h Handlers) Contents(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var contents []state.Content
	switch r.URL.Query().Get("reload") {
	case "true":
		contents = h.State.LoadAllContentIDs(ctx)
	default:
		contents = h.State.Snapshot().Contents
	}

	return web.Respond(ctx, w, toAppContents(contents), http.StatusOK)
}

// ContentByID returns the content with its questions read from the chain.
func (h Handlers) ContentByID(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := contentID(r)
	if err != nil {
		return err
	}

	c := h.State.GetContent(ctx, id)
	if c == nil {
		return errs.NewTrusted(fmt.Errorf("content %d not found", id), http.StatusNotFound)
	}

	return web.Respond(ctx, w, toAppContent(*c), http.StatusOK)
}

// UserProfile reads the profile of any address directly from the chain.
func (h Handlers) UserProfile(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	param := web.Param(r, "address")
	if !common.IsHexAddress(param) {
		return errs.NewTrusted(fmt.Errorf("invalid address %q", param), http.StatusBadRequest)
	}
	addr := common.HexToAddress(param)

	resp := appUserProfile{
		Address:          addr.Hex(),
		Profile:          toAppProfile(h.State.GetUserProfile(ctx, addr)),
		UnredeemedPoints: h.State.GetUnredeemedPoints(ctx, addr),
		BadgeIDs:         h.State.GetUserBadgeIDs(ctx, addr),
		CompletedContent: h.State.GetUserCompletedContent(ctx, addr),
		IsTrustee:        h.State.GetIsTrustee(ctx, addr),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Actions returns the in-flight flag and last error of every action.
func (h Handlers) Actions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.requireViewer(ctx); err != nil {
		return err
	}

	statuses := h.State.ActionStatuses()

	resp := make(map[string]appActionStatus, len(statuses))
	for name, st := range statuses {
		as := appActionStatus{InFlight: st.InFlight}
		if st.Err != nil {
			as.Error = st.Err.Error()
		}
		resp[name] = as
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

// Register registers the connected account.
func (h Handlers) Register(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.requireAccount(ctx); err != nil {
		return err
	}

	return h.respondResult(ctx, w, h.State.RegisterUser(ctx), http.StatusOK)
}

// Read records that the connected account read the content.
func (h Handlers) Read(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.requireAccount(ctx); err != nil {
		return err
	}

	id, err := contentID(r)
	if err != nil {
		return err
	}

	return h.respondResult(ctx, w, h.State.ReadArticle(ctx, id), http.StatusOK)
}

// Quiz submits quiz answers for the content.
func (h Handlers) Quiz(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.requireAccount(ctx); err != nil {
		return err
	}

	id, err := contentID(r)
	if err != nil {
		return err
	}

	var req appQuiz
	if err := decode(r, &req); err != nil {
		return err
	}

	return h.respondResult(ctx, w, h.State.TakeQuiz(ctx, id, req.toContract()), http.StatusOK)
}

// CreateContent registers new content. The account must be a trustee.
func (h Handlers) CreateContent(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.requireAccount(ctx); err != nil {
		return err
	}

	var req appNewContent
	if err := decode(r, &req); err != nil {
		return err
	}

	nc, meta := req.toContract()
	res := h.State.CreateContent(ctx, nc, meta)

	if res.Success {
		h.State.LoadAllContentIDs(ctx)
	}

	return h.respondResult(ctx, w, res, http.StatusCreated)
}

// AddQuestion appends a quiz question to the content. The account must be
// a trustee.
func (h Handlers) AddQuestion(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.requireAccount(ctx); err != nil {
		return err
	}

	id, err := contentID(r)
	if err != nil {
		return err
	}

	var req appNewQuestion
	if err := decode(r, &req); err != nil {
		return err
	}

	res := h.State.AddQuizQuestion(ctx, id, req.toContract())

	if res.Success {
		h.State.LoadAllContentIDs(ctx)
	}

	return h.respondResult(ctx, w, res, http.StatusCreated)
}

// Claim redeems points for the reward token.
func (h Handlers) Claim(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.requireAccount(ctx); err != nil {
		return err
	}

	var req appClaim
	if err := decode(r, &req); err != nil {
		return err
	}

	return h.respondResult(ctx, w, h.State.ClaimXFI(ctx, req.Points), http.StatusOK)
}

// =============================================================================

// Events handles a web socket to provide log and snapshot events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	if err := h.requireViewer(ctx); err != nil {
		return err
	}
	owner := h.State.Snapshot().Address

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// Send the current state so the client doesn't wait for the next commit.
	snap := h.State.Snapshot()
	first := events.Event{
		Type:    events.TypeSnapshot,
		Time:    time.Now().UTC(),
		Version: snap.Version,
		Data:    ToAppSnapshot(snap),
	}
	if err := c.WriteJSON(first); err != nil {
		return nil
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt, wd := <-ch:
			if !wd {
				return nil
			}

			if h.FollowSession && h.State.Snapshot().Address != owner {
				c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "account changed"))
				return nil
			}

			if err := c.WriteJSON(evt); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// =============================================================================

// requireAccount checks the session belongs to the connected account.
func (h Handlers) requireAccount(ctx context.Context) error {
	claims, err := auth.GetClaims(ctx)
	if err != nil {
		return errs.NewTrusted(errors.New("session required"), http.StatusUnauthorized)
	}

	snap := h.State.Snapshot()
	if !snap.Connected {
		return errs.FromCore(state.ErrNotConnected)
	}

	if snap.Address != claims.Address() {
		return errs.NewTrusted(fmt.Errorf("session for %s does not match connected account", claims.Address().Hex()), http.StatusForbidden)
	}

	return nil
}

// requireViewer checks the session may see the cached state. Without
// FollowSession the core serves a configured account and its state is
// public.
func (h Handlers) requireViewer(ctx context.Context) error {
	if !h.FollowSession {
		return nil
	}
	return h.requireAccount(ctx)
}

// respondResult converts an action result. A successful action refreshes
// the cached profile before responding.
func (h Handlers) respondResult(ctx context.Context, w http.ResponseWriter, res state.Result, status int) error {
	if !res.Success {
		return errs.FromCore(res.Err)
	}

	h.Log.Infow("action", "traceid", web.GetTraceID(ctx), "tx", res.TxHash, "pending", res.Pending, "contentid", res.ContentID,
		"account", h.NS.Lookup(h.State.Snapshot().Address))

	snap := h.State.RefreshUserProfile(ctx)

	resp := appResult{
		Success:   true,
		Pending:   res.Pending,
		ContentID: res.ContentID,
		State:     ToAppSnapshot(snap),
	}
	if res.TxHash != (common.Hash{}) {
		resp.TxHash = res.TxHash.Hex()
	}

	return web.Respond(ctx, w, resp, status)
}

func contentID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(web.Param(r, "id"), 10, 64)
	if err != nil {
		return 0, errs.NewTrusted(fmt.Errorf("invalid content id: %w", err), http.StatusBadRequest)
	}
	return id, nil
}

func decode(r *http.Request, val any) error {
	if err := web.Decode(r, val); err != nil {
		if validate.IsFieldErrors(err) {
			return err
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	return nil
}
