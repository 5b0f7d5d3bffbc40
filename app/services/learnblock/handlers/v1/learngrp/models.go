package learngrp

import (
	"strconv"
	"time"

	"github.com/learnblock/learnblock/business/core/state"
	"github.com/learnblock/learnblock/foundation/contract"
)

type appProfile struct {
	UserID              string `json:"userId"`
	ArticlesRead        string `json:"articlesRead"`
	QuizzesTaken        string `json:"quizzesTaken"`
	TotalPointsEarned   string `json:"totalPointsEarned"`
	TotalPointsRedeemed string `json:"totalPointsRedeemed"`
	UnredeemedPoints    string `json:"unredeemedPoints"`
	BadgeCount          string `json:"badgeCount"`
	GoldenBadgeClaimed  bool   `json:"goldenBadgeClaimed"`
}

func toAppProfile(p state.Profile) appProfile {
	return appProfile{
		UserID:              p.UserID,
		ArticlesRead:        p.ArticlesRead,
		QuizzesTaken:        p.QuizzesTaken,
		TotalPointsEarned:   p.TotalPointsEarned,
		TotalPointsRedeemed: p.TotalPointsRedeemed,
		UnredeemedPoints:    p.UnredeemedPoints,
		BadgeCount:          p.BadgeCount,
		GoldenBadgeClaimed:  p.GoldenBadgeClaimed,
	}
}

// appQuestion leaves out the correct option so readers can't see it.
type appQuestion struct {
	Question string    `json:"question"`
	Options  [4]string `json:"options"`
}

type appContent struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Body       string        `json:"body"`
	Sources    []string      `json:"sources"`
	Points     uint64        `json:"points"`
	Creator    string        `json:"creator"`
	Questions  []appQuestion `json:"questions"`
	ReadTime   string        `json:"readTime,omitempty"`
	Difficulty string        `json:"difficulty,omitempty"`
	Category   string        `json:"category,omitempty"`
}

func toAppContent(c state.Content) appContent {
	questions := make([]appQuestion, len(c.Questions))
	for i, q := range c.Questions {
		questions[i] = appQuestion{Question: q.Question, Options: q.Options}
	}

	sources := c.Sources
	if sources == nil {
		sources = []string{}
	}

	return appContent{
		ID:         strconv.FormatUint(c.ID, 10),
		Title:      c.Title,
		Body:       c.Body,
		Sources:    sources,
		Points:     c.Points,
		Creator:    c.Creator.Hex(),
		Questions:  questions,
		ReadTime:   c.Meta.ReadTime,
		Difficulty: c.Meta.Difficulty,
		Category:   c.Meta.Category,
	}
}

func toAppContents(contents []state.Content) []appContent {
	out := make([]appContent, len(contents))
	for i, c := range contents {
		out[i] = toAppContent(c)
	}
	return out
}

// AppSnapshot is the JSON form of the cached state. It is also the payload
// of snapshot events on the websocket.
type AppSnapshot struct {
	Version          uint64                  `json:"version"`
	Address          string                  `json:"address,omitempty"`
	Connected        bool                    `json:"connected"`
	Profile          appProfile              `json:"profile"`
	UnredeemedPoints string                  `json:"unredeemedPoints"`
	Registration     state.RegistrationState `json:"registration"`
	IsTrustee        bool                    `json:"isTrustee"`
	BadgeIDs         []uint64                `json:"badgeIds"`
	CompletedContent []uint64                `json:"completedContent"`
	ContentCount     int                     `json:"contentCount"`
	RefreshedAt      time.Time               `json:"refreshedAt,omitzero"`
}

// ToAppSnapshot converts a snapshot for the API.
func ToAppSnapshot(snap state.Snapshot) AppSnapshot {
	app := AppSnapshot{
		Version:          snap.Version,
		Connected:        snap.Connected,
		Profile:          toAppProfile(snap.Profile),
		UnredeemedPoints: snap.UnredeemedPoints,
		Registration:     snap.Registration,
		IsTrustee:        snap.IsTrustee,
		BadgeIDs:         snap.BadgeIDs,
		CompletedContent: snap.CompletedContent,
		ContentCount:     len(snap.Contents),
		RefreshedAt:      snap.RefreshedAt,
	}

	if snap.Connected {
		app.Address = snap.Address.Hex()
	}

	return app
}

type appResult struct {
	Success   bool        `json:"success"`
	Pending   bool        `json:"pending,omitempty"`
	TxHash    string      `json:"txHash,omitempty"`
	ContentID uint64      `json:"contentId,omitempty"`
	State     AppSnapshot `json:"state"`
}

type appActionStatus struct {
	InFlight bool   `json:"inFlight"`
	Error    string `json:"error,omitempty"`
}

type appUserProfile struct {
	Address          string     `json:"address"`
	Profile          appProfile `json:"profile"`
	UnredeemedPoints string     `json:"unredeemedPoints"`
	BadgeIDs         []uint64   `json:"badgeIds"`
	CompletedContent []uint64   `json:"completedContent"`
	IsTrustee        bool       `json:"isTrustee"`
}

// =============================================================================

type appNewContent struct {
	Title      string   `json:"title" validate:"required"`
	Body       string   `json:"body" validate:"required"`
	Sources    []string `json:"sources" validate:"dive,url"`
	Points     uint64   `json:"points" validate:"required,gt=0"`
	ReadTime   string   `json:"readTime"`
	Difficulty string   `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Category   string   `json:"category"`
}

func (nc appNewContent) toContract() (contract.NewContent, state.ContentMeta) {
	c := contract.NewContent{
		Title:   nc.Title,
		Body:    nc.Body,
		Sources: nc.Sources,
		Points:  nc.Points,
	}

	meta := state.ContentMeta{
		ReadTime:   nc.ReadTime,
		Difficulty: nc.Difficulty,
		Category:   nc.Category,
	}

	return c, meta
}

type appNewQuestion struct {
	Question      string    `json:"question" validate:"required"`
	Options       [4]string `json:"options" validate:"dive,required"`
	CorrectOption uint8     `json:"correctOption" validate:"lte=3"`
}

func (nq appNewQuestion) toContract() contract.QuizQuestion {
	return contract.QuizQuestion{
		Question:      nq.Question,
		Options:       nq.Options,
		CorrectOption: nq.CorrectOption,
	}
}

type appQuiz struct {
	Answers []int `json:"answers" validate:"required,min=1,dive,gte=0,lte=3"`
}

func (q appQuiz) toContract() []uint8 {
	answers := make([]uint8, len(q.Answers))
	for i, a := range q.Answers {
		answers[i] = uint8(a)
	}
	return answers
}

type appClaim struct {
	Points uint64 `json:"points" validate:"required,gt=0"`
}
