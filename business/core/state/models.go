package state

import (
	"math/big"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/learnblock/learnblock/foundation/contract"
)

// RegistrationState represents where the connected account is in the
// registration flow. Pending is local only and never exists on chain.
type RegistrationState int

// Set of registration states.
const (
	Unregistered RegistrationState = iota
	Pending
	Registered
)

// String implements the fmt.Stringer interface.
func (rs RegistrationState) String() string {
	switch rs {
	case Pending:
		return "pending"
	case Registered:
		return "registered"
	default:
		return "unregistered"
	}
}

// MarshalText implements the encoding.TextMarshaler interface.
func (rs RegistrationState) MarshalText() ([]byte, error) {
	return []byte(rs.String()), nil
}

// =============================================================================

// Profile is the normalized form of the on-chain user profile. Every number
// is a base 10 string since the contract stores them as uint256.
type Profile struct {
	UserID              string
	ArticlesRead        string
	QuizzesTaken        string
	TotalPointsEarned   string
	TotalPointsRedeemed string
	UnredeemedPoints    string
	BadgeCount          string
	GoldenBadgeClaimed  bool
}

// DefaultProfile returns the zeroed profile used when an address has no
// profile or the profile could not be read.
func DefaultProfile() Profile {
	return Profile{
		UserID:              "0",
		ArticlesRead:        "0",
		QuizzesTaken:        "0",
		TotalPointsEarned:   "0",
		TotalPointsRedeemed: "0",
		UnredeemedPoints:    "0",
		BadgeCount:          "0",
	}
}

// Exists reports whether the profile belongs to a registered user.
func (p Profile) Exists() bool {
	return p.UserID != "" && p.UserID != "0"
}

// newProfile normalizes a validated contract profile.
func newProfile(p contract.UserProfile) Profile {
	return Profile{
		UserID:              p.UserID.String(),
		ArticlesRead:        p.ArticlesRead.String(),
		QuizzesTaken:        p.QuizzesTaken.String(),
		TotalPointsEarned:   p.TotalPointsEarned.String(),
		TotalPointsRedeemed: p.TotalPointsRedeemed.String(),
		UnredeemedPoints:    p.Unredeemed().String(),
		BadgeCount:          p.BadgeCount.String(),
		GoldenBadgeClaimed:  p.GoldenBadgeClaimed,
	}
}

// formatPoints renders a point balance, treating nil as zero.
func formatPoints(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// =============================================================================

// ContentMeta is presentation data kept in memory only. It is not stored on
// chain and does not survive a restart.
type ContentMeta struct {
	ReadTime   string
	Difficulty string
	Category   string
}

// Content is a content item with its quiz questions and metadata.
type Content struct {
	ID        uint64
	Title     string
	Body      string
	Sources   []string
	Points    uint64
	Creator   common.Address
	Questions []contract.QuizQuestion
	Meta      ContentMeta
}

func newContent(c contract.Content, questions []contract.QuizQuestion) Content {
	return Content{
		ID:        c.ID,
		Title:     c.Title,
		Body:      c.Body,
		Sources:   c.Sources,
		Points:    c.Points,
		Creator:   c.Creator,
		Questions: questions,
	}
}

func (c Content) clone() Content {
	c.Sources = slices.Clone(c.Sources)
	c.Questions = slices.Clone(c.Questions)
	return c
}

// =============================================================================

// Snapshot is the complete cached view of on-chain state for the connected
// account. Every field of a snapshot comes from the same commit.
type Snapshot struct {
	Version          uint64
	Address          common.Address
	Connected        bool
	Profile          Profile
	UnredeemedPoints string
	Registration     RegistrationState
	IsTrustee        bool
	BadgeIDs         []uint64
	CompletedContent []uint64
	Contents         []Content
	Meta             map[uint64]ContentMeta
	RefreshedAt      time.Time

	// session changes every time the cache is reset for another account.
	session uint64
}

// emptySnapshot returns the cache as it looks with no account connected.
func emptySnapshot() Snapshot {
	return Snapshot{
		Profile:          DefaultProfile(),
		UnredeemedPoints: "0",
		BadgeIDs:         []uint64{},
		CompletedContent: []uint64{},
		Contents:         []Content{},
		Meta:             make(map[uint64]ContentMeta),
	}
}

// clone makes a deep copy so callers can't reach into the store.
func (s Snapshot) clone() Snapshot {
	s.BadgeIDs = slices.Clone(s.BadgeIDs)
	s.CompletedContent = slices.Clone(s.CompletedContent)

	contents := make([]Content, len(s.Contents))
	for i, c := range s.Contents {
		contents[i] = c.clone()
	}
	s.Contents = contents

	meta := make(map[uint64]ContentMeta, len(s.Meta))
	for id, m := range s.Meta {
		meta[id] = m
	}
	s.Meta = meta

	return s
}

// Content returns the cached content with the specified id.
func (s Snapshot) Content(id uint64) (Content, bool) {
	for _, c := range s.Contents {
		if c.ID == id {
			return c, true
		}
	}
	return Content{}, false
}
