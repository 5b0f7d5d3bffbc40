// Package auth provides Sign-In with Ethereum session support. A client asks
// for a nonce, signs a message carrying it and trades the signature for a
// session token that later requests present as a cookie.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/learnblock/learnblock/foundation/siwe"
)

// CookieName is the name of the session cookie.
const CookieName = "learnblock_session"

// Set of error variables for authentication.
var (
	ErrUnknownNonce   = errors.New("unknown or already used nonce")
	ErrDomainMismatch = errors.New("message domain does not match")
	ErrChainMismatch  = errors.New("message chain id does not match")
	ErrInvalidSession = errors.New("invalid session")
)

// Config represents the settings for the authenticator.
type Config struct {
	Domain     string
	ChainID    int64
	Secret     string
	SessionTTL time.Duration
	NonceTTL   time.Duration
	MaxNonces  int
}

// Claims represents the session claims carried by the token. The subject is
// the signed in address.
type Claims struct {
	jwt.RegisteredClaims
	ChainID int64 `json:"chain_id,omitempty"`
}

// Address returns the signed in address.
func (c Claims) Address() common.Address {
	return common.HexToAddress(c.Subject)
}

// Session is an established session.
type Session struct {
	Token     string
	Address   common.Address
	ExpiresAt time.Time
}

// Auth issues nonces and sessions.
type Auth struct {
	domain     string
	chainID    int64
	secret     []byte
	sessionTTL time.Duration
	nonces     *expirable.LRU[string, time.Time]
	parser     *jwt.Parser
}

// New constructs an authenticator.
func New(cfg Config) (*Auth, error) {
	if cfg.Domain == "" {
		return nil, errors.New("auth: domain is required")
	}
	if cfg.Secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	if cfg.ChainID <= 0 {
		return nil, errors.New("auth: chain id is required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.NonceTTL <= 0 {
		cfg.NonceTTL = 5 * time.Minute
	}
	if cfg.MaxNonces <= 0 {
		cfg.MaxNonces = 10_000
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Domain),
		jwt.WithExpirationRequired(),
	)

	a := Auth{
		domain:     cfg.Domain,
		chainID:    cfg.ChainID,
		secret:     []byte(cfg.Secret),
		sessionTTL: cfg.SessionTTL,
		nonces:     expirable.NewLRU[string, time.Time](cfg.MaxNonces, nil, cfg.NonceTTL),
		parser:     parser,
	}

	return &a, nil
}

// IssueNonce returns a single use nonce for a sign in message.
func (a *Auth) IssueNonce() string {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	a.nonces.Add(nonce, time.Now())
	return nonce
}

// Verify checks the signed message and establishes a session for the
// address that signed it. The nonce is consumed only by a valid message.
func (a *Auth) Verify(message string, signature string) (Session, error) {
	msg, err := siwe.Verify(message, signature)
	if err != nil {
		return Session{}, err
	}

	if msg.Domain != a.domain {
		return Session{}, ErrDomainMismatch
	}

	if msg.ChainID != a.chainID {
		return Session{}, ErrChainMismatch
	}

	now := time.Now()
	if err := msg.CheckTime(now); err != nil {
		return Session{}, err
	}

	if !a.nonces.Remove(msg.Nonce) {
		return Session{}, ErrUnknownNonce
	}

	expires := now.Add(a.sessionTTL)
	if !msg.ExpirationTime.IsZero() && msg.ExpirationTime.Before(expires) {
		expires = msg.ExpirationTime
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    a.domain,
			Subject:   msg.Address.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		ChainID: msg.ChainID,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return Session{}, fmt.Errorf("signing token: %w", err)
	}

	session := Session{
		Token:     token,
		Address:   msg.Address,
		ExpiresAt: expires,
	}

	return session, nil
}

// Validate parses the session token and returns its claims.
func (a *Auth) Validate(token string) (Claims, error) {
	var claims Claims
	tkn, err := a.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	if !tkn.Valid || !common.IsHexAddress(claims.Subject) {
		return Claims{}, ErrInvalidSession
	}

	return claims, nil
}

// =============================================================================

type ctxKey int

const claimKey ctxKey = 1

// SetClaims stores the claims in the context.
func SetClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimKey, claims)
}

// GetClaims returns the claims from the context.
func GetClaims(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimKey).(Claims)
	if !ok {
		return Claims{}, ErrInvalidSession
	}
	return v, nil
}
