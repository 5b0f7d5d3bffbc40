package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Reader is the read-only handle to the contract.
type Reader struct {
	backend Backend
	address common.Address
}

// NewReader constructs a read-only handle using the specified backend.
func NewReader(backend Backend, address common.Address) *Reader {
	return &Reader{
		backend: backend,
		address: address,
	}
}

// Address returns the address of the bound contract.
func (r *Reader) Address() common.Address {
	return r.address
}

// ChainID returns the chain id reported by the node. It doubles as a
// readiness check for the endpoint.
func (r *Reader) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := r.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	return id, nil
}

// Close releases the underlying connection if the backend holds one.
func (r *Reader) Close() {
	if c, ok := r.backend.(interface{ Close() }); ok {
		c.Close()
	}
}

// UserProfile returns the profile recorded for the user. An address without
// a profile returns a profile with a zero user id.
func (r *Reader) UserProfile(ctx context.Context, user common.Address) (UserProfile, error) {
	const method = "getUserProfile"

	values, err := r.call(ctx, method, 7, user)
	if err != nil {
		return UserProfile{}, err
	}

	var nums [6]*big.Int
	for i := range nums {
		if nums[i], err = bigField(method, values, i); err != nil {
			return UserProfile{}, err
		}
	}

	golden, err := field[bool](method, values, 6)
	if err != nil {
		return UserProfile{}, err
	}

	p := UserProfile{
		UserID:              nums[0],
		ArticlesRead:        nums[1],
		QuizzesTaken:        nums[2],
		TotalPointsEarned:   nums[3],
		TotalPointsRedeemed: nums[4],
		BadgeCount:          nums[5],
		GoldenBadgeClaimed:  golden,
	}

	if p.TotalPointsRedeemed.Cmp(p.TotalPointsEarned) > 0 {
		return UserProfile{}, fmt.Errorf("%w: %s: redeemed %s exceeds earned %s", ErrShapeMismatch, method, p.TotalPointsRedeemed, p.TotalPointsEarned)
	}

	return p, nil
}

// IsRegistered reports whether the user has a profile on chain.
func (r *Reader) IsRegistered(ctx context.Context, user common.Address) (bool, error) {
	const method = "isRegistered"

	values, err := r.call(ctx, method, 1, user)
	if err != nil {
		return false, err
	}

	return field[bool](method, values, 0)
}

// IsTrustee reports whether the account may create content and quizzes.
func (r *Reader) IsTrustee(ctx context.Context, account common.Address) (bool, error) {
	const method = "isTrustee"

	values, err := r.call(ctx, method, 1, account)
	if err != nil {
		return false, err
	}

	return field[bool](method, values, 0)
}

// Content returns the content for the specified id.
func (r *Reader) Content(ctx context.Context, contentID uint64) (Content, error) {
	const method = "getContent"

	values, err := r.call(ctx, method, 7, new(big.Int).SetUint64(contentID))
	if err != nil {
		return Content{}, err
	}

	exists, err := field[bool](method, values, 6)
	if err != nil {
		return Content{}, err
	}
	if !exists {
		return Content{}, fmt.Errorf("content %d: %w", contentID, ErrNotFound)
	}

	id, err := uintField(method, values, 0)
	if err != nil {
		return Content{}, err
	}
	if id != contentID {
		return Content{}, fmt.Errorf("%w: %s: asked for id %d, got %d", ErrShapeMismatch, method, contentID, id)
	}

	title, err := field[string](method, values, 1)
	if err != nil {
		return Content{}, err
	}

	body, err := field[string](method, values, 2)
	if err != nil {
		return Content{}, err
	}

	sources, err := field[[]string](method, values, 3)
	if err != nil {
		return Content{}, err
	}

	points, err := uintField(method, values, 4)
	if err != nil {
		return Content{}, err
	}

	creator, err := field[common.Address](method, values, 5)
	if err != nil {
		return Content{}, err
	}

	c := Content{
		ID:      id,
		Title:   title,
		Body:    body,
		Sources: sources,
		Points:  points,
		Creator: creator,
	}

	return c, nil
}

// ContentIDs returns the ids of all registered content.
func (r *Reader) ContentIDs(ctx context.Context) ([]uint64, error) {
	return r.idList(ctx, "getAllContentIds")
}

// QuizQuestions returns every question attached to the content in order.
func (r *Reader) QuizQuestions(ctx context.Context, contentID uint64) ([]QuizQuestion, error) {
	const method = "getQuizQuestion"

	id := new(big.Int).SetUint64(contentID)

	values, err := r.call(ctx, "getQuizQuestionCount", 1, id)
	if err != nil {
		return nil, err
	}

	count, err := uintField("getQuizQuestionCount", values, 0)
	if err != nil {
		return nil, err
	}

	questions := make([]QuizQuestion, 0, count)
	for i := uint64(0); i < count; i++ {
		values, err := r.call(ctx, method, 3, id, new(big.Int).SetUint64(i))
		if err != nil {
			return nil, err
		}

		text, err := field[string](method, values, 0)
		if err != nil {
			return nil, err
		}

		options, err := field[[NumOptions]string](method, values, 1)
		if err != nil {
			return nil, err
		}

		correct, err := field[uint8](method, values, 2)
		if err != nil {
			return nil, err
		}
		if correct >= NumOptions {
			return nil, fmt.Errorf("%w: %s: correct option %d out of range", ErrShapeMismatch, method, correct)
		}

		questions = append(questions, QuizQuestion{
			Question:      text,
			Options:       options,
			CorrectOption: correct,
		})
	}

	return questions, nil
}

// UnredeemedPoints returns the points the user can still redeem.
func (r *Reader) UnredeemedPoints(ctx context.Context, user common.Address) (*big.Int, error) {
	const method = "getUnredeemedPoints"

	values, err := r.call(ctx, method, 1, user)
	if err != nil {
		return nil, err
	}

	return bigField(method, values, 0)
}

// BadgeIDs returns the ids of the badges held by the user.
func (r *Reader) BadgeIDs(ctx context.Context, user common.Address) ([]uint64, error) {
	return r.idList(ctx, "getUserBadges", user)
}

// CompletedContent returns the ids of the content the user completed.
func (r *Reader) CompletedContent(ctx context.Context, user common.Address) ([]uint64, error) {
	return r.idList(ctx, "getUserCompletedContent", user)
}

// ContentCreatedID extracts the id assigned to new content from the
// ContentCreated event emitted by this contract in the receipt.
func (r *Reader) ContentCreatedID(receipt *types.Receipt) (uint64, error) {
	event := parsed.Events["ContentCreated"]

	for _, log := range receipt.Logs {
		if log.Address != r.address || len(log.Topics) < 2 || log.Topics[0] != event.ID {
			continue
		}

		id := new(big.Int).SetBytes(log.Topics[1].Bytes())
		if !id.IsUint64() {
			return 0, fmt.Errorf("%w: ContentCreated: id %s overflows", ErrShapeMismatch, id)
		}

		return id.Uint64(), nil
	}

	return 0, fmt.Errorf("ContentCreated event in %s: %w", receipt.TxHash, ErrNotFound)
}

// =============================================================================

// call packs and executes a read-only call and checks the result arity.
func (r *Reader) call(ctx context.Context, method string, arity int, args ...any) ([]any, error) {
	input, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{
		To:   &r.address,
		Data: input,
	}

	output, err := r.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := parsed.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack %s: %s", ErrShapeMismatch, method, err)
	}

	if len(values) != arity {
		return nil, fmt.Errorf("%w: %s: got %d values, exp %d", ErrShapeMismatch, method, len(values), arity)
	}

	return values, nil
}

// idList executes a call returning a single uint256[] and converts it.
func (r *Reader) idList(ctx context.Context, method string, args ...any) ([]uint64, error) {
	values, err := r.call(ctx, method, 1, args...)
	if err != nil {
		return nil, err
	}

	raw, err := field[[]*big.Int](method, values, 0)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, len(raw))
	for i, v := range raw {
		if v == nil || !v.IsUint64() {
			return nil, fmt.Errorf("%w: %s: id %v overflows", ErrShapeMismatch, method, v)
		}
		ids[i] = v.Uint64()
	}

	return ids, nil
}

// field asserts the type of the value at the index.
func field[T any](method string, values []any, i int) (T, error) {
	v, ok := values[i].(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s: value %d is %T, exp %T", ErrShapeMismatch, method, i, values[i], zero)
	}
	return v, nil
}

func bigField(method string, values []any, i int) (*big.Int, error) {
	v, err := field[*big.Int](method, values, i)
	if err != nil {
		return nil, err
	}
	if v == nil || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s: value %d is not a uint256", ErrShapeMismatch, method, i)
	}
	return v, nil
}

func uintField(method string, values []any, i int) (uint64, error) {
	v, err := bigField(method, values, i)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s: value %d overflows uint64", ErrShapeMismatch, method, i)
	}
	return v.Uint64(), nil
}
