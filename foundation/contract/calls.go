package contract

import "math/big"

// Call describes a state changing contract method and its arguments.
type Call struct {
	Method string
	Args   []any
}

// ReadArticle records that the sender read the specified content.
func ReadArticle(contentID uint64) Call {
	return Call{
		Method: "readArticle",
		Args:   []any{new(big.Int).SetUint64(contentID)},
	}
}

// SubmitQuiz submits the sender's answers for the quiz on the content.
func SubmitQuiz(contentID uint64, answers []uint8) Call {
	return Call{
		Method: "submitQuiz",
		Args:   []any{new(big.Int).SetUint64(contentID), answers},
	}
}

// CreateContent registers new content. Only trustees may call it.
func CreateContent(nc NewContent) Call {
	sources := nc.Sources
	if sources == nil {
		sources = []string{}
	}

	return Call{
		Method: "createContent",
		Args:   []any{nc.Title, nc.Body, sources, new(big.Int).SetUint64(nc.Points)},
	}
}

// AddQuizQuestion attaches a question to existing content. Only trustees
// may call it.
func AddQuizQuestion(contentID uint64, q QuizQuestion) Call {
	return Call{
		Method: "addQuizQuestion",
		Args:   []any{new(big.Int).SetUint64(contentID), q.Question, q.Options, q.CorrectOption},
	}
}

// ClaimXFI redeems unredeemed points for the platform's reward token.
func ClaimXFI(points uint64) Call {
	return Call{
		Method: "claimXFI",
		Args:   []any{new(big.Int).SetUint64(points)},
	}
}
