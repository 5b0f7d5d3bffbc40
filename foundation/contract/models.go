package contract

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NumOptions is the fixed number of answer options for a quiz question.
const NumOptions = 4

// UserProfile is the on-chain record for a registered address.
type UserProfile struct {
	UserID              *big.Int
	ArticlesRead        *big.Int
	QuizzesTaken        *big.Int
	TotalPointsEarned   *big.Int
	TotalPointsRedeemed *big.Int
	BadgeCount          *big.Int
	GoldenBadgeClaimed  bool
}

// Exists reports whether the contract has a profile for the address. The
// contract hands out user ids starting at one.
func (p UserProfile) Exists() bool {
	return p.UserID != nil && p.UserID.Sign() > 0
}

// Unredeemed returns the points earned but not yet redeemed.
func (p UserProfile) Unredeemed() *big.Int {
	return new(big.Int).Sub(p.TotalPointsEarned, p.TotalPointsRedeemed)
}

// Content is a piece of educational content registered by a trustee.
type Content struct {
	ID      uint64
	Title   string
	Body    string
	Sources []string
	Points  uint64
	Creator common.Address
}

// QuizQuestion is a single multiple choice question attached to content.
type QuizQuestion struct {
	Question      string
	Options       [NumOptions]string
	CorrectOption uint8
}

// NewContent is what a trustee submits to register content.
type NewContent struct {
	Title   string
	Body    string
	Sources []string
	Points  uint64
}
