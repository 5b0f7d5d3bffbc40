package state

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/learnblock/learnblock/foundation/contract"
)

// Set of action names used for status and metrics.
const (
	ActionRegister        = "register"
	ActionReadArticle     = "read_article"
	ActionTakeQuiz        = "take_quiz"
	ActionCreateContent   = "create_content"
	ActionAddQuizQuestion = "add_quiz_question"
	ActionClaimXFI        = "claim_xfi"
)

// Actions lists every action the core can perform.
var Actions = []string{
	ActionRegister,
	ActionReadArticle,
	ActionTakeQuiz,
	ActionCreateContent,
	ActionAddQuizQuestion,
	ActionClaimXFI,
}

// Result is the outcome of an action. Actions never return errors directly;
// a failure is reported through Err with Success false.
type Result struct {
	Success   bool
	Pending   bool
	Err       error
	TxHash    common.Hash
	ContentID uint64
}

// ActionStatus is the observable state of one action.
type ActionStatus struct {
	InFlight bool
	Err      error
}

func failure(err error) Result {
	return Result{Err: err}
}

// =============================================================================

// ActionStatus returns the in-flight flag and last error for the action.
func (s *State) ActionStatus(name string) ActionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.actions[name]
}

// ActionStatuses returns the status of every action.
func (s *State) ActionStatuses() map[string]ActionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]ActionStatus, len(Actions))
	for _, name := range Actions {
		out[name] = s.actions[name]
	}
	return out
}

// ReadArticle records that the connected account read the content.
func (s *State) ReadArticle(ctx context.Context, contentID uint64) Result {
	return s.perform(ctx, ActionReadArticle, func(ctx context.Context) Result {
		receipt, err := s.transact(ctx, contract.ReadArticle(contentID))
		if err != nil {
			return failure(err)
		}
		return Result{Success: true, TxHash: receipt.TxHash}
	})
}

// TakeQuiz submits the answers for the quiz of the content.
func (s *State) TakeQuiz(ctx context.Context, contentID uint64, answers []uint8) Result {
	return s.perform(ctx, ActionTakeQuiz, func(ctx context.Context) Result {
		if len(answers) == 0 {
			return failure(fmt.Errorf("quiz %d: no answers", contentID))
		}
		for i, a := range answers {
			if a >= contract.NumOptions {
				return failure(fmt.Errorf("quiz %d: answer %d out of range: %d", contentID, i, a))
			}
		}

		receipt, err := s.transact(ctx, contract.SubmitQuiz(contentID, answers))
		if err != nil {
			return failure(err)
		}
		return Result{Success: true, TxHash: receipt.TxHash}
	})
}

// CreateContent registers new content on chain and keeps the metadata in
// memory for the newly assigned id. Only trustees may create content.
func (s *State) CreateContent(ctx context.Context, nc contract.NewContent, meta ContentMeta) Result {
	return s.perform(ctx, ActionCreateContent, func(ctx context.Context) Result {
		writer, _, err := s.connection()
		if err != nil {
			return failure(err)
		}

		if err := s.requireTrustee(ctx, writer.From()); err != nil {
			return failure(err)
		}

		receipt, err := s.transact(ctx, contract.CreateContent(nc))
		if err != nil {
			return failure(err)
		}

		id, err := writer.ContentCreatedID(receipt)
		if err != nil {
			return Result{Err: err, TxHash: receipt.TxHash}
		}

		s.store.Update(func(snap *Snapshot) bool {
			snap.Meta[id] = meta
			for i := range snap.Contents {
				if snap.Contents[i].ID == id {
					snap.Contents[i].Meta = meta
				}
			}
			return true
		})

		return Result{Success: true, TxHash: receipt.TxHash, ContentID: id}
	})
}

// AddQuizQuestion appends a question to the quiz of the content. Only
// trustees may add questions.
func (s *State) AddQuizQuestion(ctx context.Context, contentID uint64, q contract.QuizQuestion) Result {
	return s.perform(ctx, ActionAddQuizQuestion, func(ctx context.Context) Result {
		if q.CorrectOption >= contract.NumOptions {
			return failure(fmt.Errorf("question: correct option out of range: %d", q.CorrectOption))
		}

		writer, _, err := s.connection()
		if err != nil {
			return failure(err)
		}

		if err := s.requireTrustee(ctx, writer.From()); err != nil {
			return failure(err)
		}

		receipt, err := s.transact(ctx, contract.AddQuizQuestion(contentID, q))
		if err != nil {
			return failure(err)
		}
		return Result{Success: true, TxHash: receipt.TxHash, ContentID: contentID}
	})
}

// ClaimXFI redeems unredeemed points for the reward token.
func (s *State) ClaimXFI(ctx context.Context, points uint64) Result {
	return s.perform(ctx, ActionClaimXFI, func(ctx context.Context) Result {
		if points == 0 {
			return failure(fmt.Errorf("claim: no points"))
		}

		receipt, err := s.transact(ctx, contract.ClaimXFI(points))
		if err != nil {
			return failure(err)
		}
		return Result{Success: true, TxHash: receipt.TxHash}
	})
}

// =============================================================================

// perform runs the action while tracking its in-flight flag and error.
func (s *State) perform(ctx context.Context, name string, fn func(ctx context.Context) Result) Result {
	s.evHandler("state: %s: started", name)

	s.mu.Lock()
	s.actions[name] = ActionStatus{InFlight: true}
	s.mu.Unlock()

	res := fn(ctx)

	s.mu.Lock()
	s.actions[name] = ActionStatus{Err: res.Err}
	s.mu.Unlock()

	s.metrics.Action(name, res.Success)

	switch {
	case res.Err != nil:
		s.evHandler("state: %s: ERROR: %s", name, res.Err)
	case res.Pending:
		s.evHandler("state: %s: completed: pending", name)
	default:
		s.evHandler("state: %s: completed: tx[%s]", name, res.TxHash)
	}

	return res
}

// transact sends the call through the signer's submitter and waits for it to
// be mined.
func (s *State) transact(ctx context.Context, call contract.Call) (*types.Receipt, error) {
	writer, submitter, err := s.connection()
	if err != nil {
		return nil, err
	}

	tx, err := submitter.Submit(ctx, call)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", call.Method, err)
	}

	s.evHandler("state: transact: %s: waiting for tx[%s]", call.Method, tx.Hash())

	receipt, err := writer.WaitMined(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", call.Method, err)
	}

	return receipt, nil
}

// requireTrustee fails when the account can't manage content.
func (s *State) requireTrustee(ctx context.Context, account common.Address) error {
	trustee, err := s.reader.IsTrustee(ctx, account)
	if err != nil {
		return fmt.Errorf("trustee check: %w", err)
	}
	if !trustee {
		return ErrNotTrustee
	}
	return nil
}
