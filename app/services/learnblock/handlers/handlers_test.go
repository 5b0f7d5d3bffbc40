package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/learnblock/learnblock/app/services/learnblock/handlers"
	"github.com/learnblock/learnblock/app/services/learnblock/handlers/v1/learngrp"
	"github.com/learnblock/learnblock/business/core/state"
	"github.com/learnblock/learnblock/business/sys/metrics"
	"github.com/learnblock/learnblock/business/web/auth"
	"github.com/learnblock/learnblock/foundation/contract"
	"github.com/learnblock/learnblock/foundation/events"
	"github.com/learnblock/learnblock/foundation/nameservice"
	"github.com/learnblock/learnblock/foundation/siwe"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const (
	pkHexKey      = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	pkHexKeyOther = "aed31b6b5a9e8f2ad4c5b6a31e7f0c9d8b2a4c6e1f3d5b7a9c0e2f4a6b8d0c1e"
)

// reader serves one content item and a profile for every address.
type reader struct{}

func (reader) UserProfile(ctx context.Context, user common.Address) (contract.UserProfile, error) {
	return contract.UserProfile{
		UserID:              big.NewInt(3),
		ArticlesRead:        big.NewInt(1),
		QuizzesTaken:        big.NewInt(0),
		TotalPointsEarned:   big.NewInt(25),
		TotalPointsRedeemed: big.NewInt(5),
		BadgeCount:          big.NewInt(0),
	}, nil
}

func (reader) IsRegistered(ctx context.Context, user common.Address) (bool, error) {
	return true, nil
}

func (reader) IsTrustee(ctx context.Context, account common.Address) (bool, error) {
	return false, nil
}

func (reader) Content(ctx context.Context, contentID uint64) (contract.Content, error) {
	if contentID != 1 {
		return contract.Content{}, contract.ErrNotFound
	}
	return contract.Content{ID: 1, Title: "Blocks", Body: "A block is...", Points: 25}, nil
}

func (reader) ContentIDs(ctx context.Context) ([]uint64, error) {
	return []uint64{1}, nil
}

func (reader) QuizQuestions(ctx context.Context, contentID uint64) ([]contract.QuizQuestion, error) {
	return []contract.QuizQuestion{{Question: "What links blocks?", Options: [4]string{"hashes", "names", "dates", "keys"}, CorrectOption: 0}}, nil
}

func (reader) UnredeemedPoints(ctx context.Context, user common.Address) (*big.Int, error) {
	return big.NewInt(20), nil
}

func (reader) BadgeIDs(ctx context.Context, user common.Address) ([]uint64, error) {
	return []uint64{}, nil
}

func (reader) CompletedContent(ctx context.Context, user common.Address) ([]uint64, error) {
	return []uint64{1}, nil
}

// =============================================================================

func newMux(t *testing.T) (http.Handler, *state.State, *auth.Auth) {
	log := zap.NewNop().Sugar()
	m := metrics.New("test")

	st, err := state.New(state.Config{Reader: reader{}, Metrics: m})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %s", failed, err)
	}
	t.Cleanup(st.Shutdown)
	st.LoadAllContentIDs(context.Background())

	ath, err := auth.New(auth.Config{Domain: "learnblock.io", ChainID: 4157, Secret: "test-secret-test-secret"})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct auth: %s", failed, err)
	}

	ns, err := nameservice.New(t.TempDir())
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the name service: %s", failed, err)
	}

	mux := handlers.APIMux(handlers.MuxConfig{
		Shutdown:      make(chan os.Signal, 1),
		Log:           log,
		Metrics:       m,
		State:         st,
		Auth:          ath,
		NS:            ns,
		Evts:          events.New(),
		Public:        learngrp.PublicConfig{ChainID: 4157, WalletConnectProjectID: "project"},
		CorsOrigin:    "*",
		FollowSession: true,
	})

	return mux, st, ath
}

func signIn(t *testing.T, mux http.Handler, pkHex string) (*http.Cookie, common.Address) {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/auth/nonce", nil))

	var nonce struct {
		Nonce string `json:"nonce"`
	}
	if err := json.NewDecoder(w.Body).Decode(&nonce); err != nil {
		t.Fatalf("\t%s\tShould be able to get a nonce: %s", failed, err)
	}

	key, err := crypto.HexToECDSA(pkHex)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the key: %s", failed, err)
	}

	issued := time.Now().Add(-time.Minute).UTC()
	msg := siwe.Message{
		Domain:         "learnblock.io",
		Address:        crypto.PubkeyToAddress(key.PublicKey),
		URI:            "https://learnblock.io",
		Version:        siwe.Version,
		ChainID:        4157,
		Nonce:          nonce.Nonce,
		IssuedAt:       issued,
		ExpirationTime: issued.Add(time.Hour),
	}

	sig, err := siwe.Sign(msg.String(), key)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign: %s", failed, err)
	}

	body, _ := json.Marshal(map[string]string{"message": msg.String(), "signature": sig})
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/auth/verify", bytes.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("\t%s\tShould be able to sign in: %d %s", failed, w.Code, w.Body.String())
	}

	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c, msg.Address
		}
	}

	t.Fatalf("\t%s\tShould receive a session cookie.", failed)
	return nil, common.Address{}
}

// =============================================================================

func Test_API(t *testing.T) {
	t.Log("Given the need to serve the LearnBlock API.")
	{
		t.Logf("\tTest 0:\tWhen reading content.")
		{
			mux, _, _ := newMux(t)

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/content", nil))

			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 0:\tShould list content: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 0:\tShould list content.", success)

			if strings.Contains(w.Body.String(), "correct") {
				t.Fatalf("\t%s\tTest 0:\tShould not expose the correct answer: %s", failed, w.Body.String())
			}
			t.Logf("\t%s\tTest 0:\tShould not expose the correct answer.", success)

			w = httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/content/9", nil))
			if w.Code != http.StatusNotFound {
				t.Fatalf("\t%s\tTest 0:\tShould report missing content: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 0:\tShould report missing content.", success)
		}

		t.Logf("\tTest 1:\tWhen acting without a session.")
		{
			mux, _, _ := newMux(t)

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/register", nil))

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("\t%s\tTest 1:\tShould require a session: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 1:\tShould require a session.", success)
		}

		t.Logf("\tTest 2:\tWhen signing in with Ethereum.")
		{
			mux, st, _ := newMux(t)
			cookie, addr := signIn(t, mux, pkHexKey)
			t.Logf("\t%s\tTest 2:\tShould receive a session cookie.", success)

			snap := st.Snapshot()
			if !snap.Connected || snap.Address != addr || snap.Profile.UnredeemedPoints != "20" {
				t.Fatalf("\t%s\tTest 2:\tShould connect the signed in account: %+v", failed, snap)
			}
			t.Logf("\t%s\tTest 2:\tShould connect the signed in account.", success)

			r := httptest.NewRequest(http.MethodPost, "/v1/content/1/read", nil)
			r.AddCookie(cookie)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, r)

			if w.Code != http.StatusConflict {
				t.Fatalf("\t%s\tTest 2:\tShould refuse actions without a wallet: %d %s", failed, w.Code, w.Body.String())
			}
			t.Logf("\t%s\tTest 2:\tShould refuse actions without a wallet.", success)

			r = httptest.NewRequest(http.MethodDelete, "/v1/auth/session", nil)
			r.AddCookie(cookie)
			w = httptest.NewRecorder()
			mux.ServeHTTP(w, r)

			if w.Code != http.StatusNoContent || st.Snapshot().Connected {
				t.Fatalf("\t%s\tTest 2:\tShould sign out and clear the cache: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 2:\tShould sign out and clear the cache.", success)
		}

		t.Logf("\tTest 3:\tWhen reading another user's profile.")
		{
			mux, _, _ := newMux(t)

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/users/0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4/profile", nil))

			var resp struct {
				Profile struct {
					UnredeemedPoints string `json:"unredeemedPoints"`
				} `json:"profile"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.Profile.UnredeemedPoints != "20" {
				t.Fatalf("\t%s\tTest 3:\tShould read the profile from the chain: %v %+v", failed, err, resp)
			}
			t.Logf("\t%s\tTest 3:\tShould read the profile from the chain.", success)

			w = httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/users/nobody/profile", nil))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest 3:\tShould reject a bad address: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 3:\tShould reject a bad address.", success)
		}

		t.Logf("\tTest 4:\tWhen a second account signs in.")
		{
			mux, st, _ := newMux(t)

			get := func(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
				r := httptest.NewRequest(http.MethodGet, path, nil)
				if cookie != nil {
					r.AddCookie(cookie)
				}
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, r)
				return w
			}

			if w := get("/v1/state", nil); w.Code != http.StatusUnauthorized {
				t.Fatalf("\t%s\tTest 4:\tShould hide the state without a session: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 4:\tShould hide the state without a session.", success)

			first, _ := signIn(t, mux, pkHexKey)
			if w := get("/v1/state", first); w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 4:\tShould show the state to its owner: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 4:\tShould show the state to its owner.", success)

			second, addr := signIn(t, mux, pkHexKeyOther)
			if st.Snapshot().Address != addr {
				t.Fatalf("\t%s\tTest 4:\tShould follow the latest sign in.", failed)
			}
			t.Logf("\t%s\tTest 4:\tShould follow the latest sign in.", success)

			for _, path := range []string{"/v1/state", "/v1/actions"} {
				if w := get(path, first); w.Code != http.StatusForbidden {
					t.Fatalf("\t%s\tTest 4:\tShould refuse %s to the previous account: %d", failed, path, w.Code)
				}
			}
			t.Logf("\t%s\tTest 4:\tShould refuse the state to the previous account.", success)

			w := get("/v1/state", second)
			var snap struct {
				Address string `json:"address"`
			}
			if err := json.NewDecoder(w.Body).Decode(&snap); err != nil || w.Code != http.StatusOK || snap.Address != addr.Hex() {
				t.Fatalf("\t%s\tTest 4:\tShould show the state to the new owner: %d %v %+v", failed, w.Code, err, snap)
			}
			t.Logf("\t%s\tTest 4:\tShould show the state to the new owner.", success)
		}
	}
}
