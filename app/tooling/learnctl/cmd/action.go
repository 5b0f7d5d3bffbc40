package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/learnblock/learnblock/business/core/state"
	"github.com/learnblock/learnblock/foundation/contract"
	"github.com/spf13/cobra"
)

var (
	answers []uint

	title      string
	body       string
	sources    []string
	points     uint64
	readTime   string
	difficulty string
	category   string

	question string
	options  []string
	correct  uint
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register the account",
	Args:  cobra.NoArgs,
	RunE:  registerRun,
}

var readCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Record that the account read the content",
	Args:  cobra.ExactArgs(1),
	RunE:  readRun,
}

var quizCmd = &cobra.Command{
	Use:   "quiz <id>",
	Short: "Submit quiz answers for the content",
	Args:  cobra.ExactArgs(1),
	RunE:  quizRun,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create content, requires a trustee account",
	Args:  cobra.NoArgs,
	RunE:  createRun,
}

var questionCmd = &cobra.Command{
	Use:   "question <id>",
	Short: "Add a quiz question to the content, requires a trustee account",
	Args:  cobra.ExactArgs(1),
	RunE:  questionRun,
}

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Redeem points for XFI",
	Args:  cobra.NoArgs,
	RunE:  claimRun,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(questionCmd)
	rootCmd.AddCommand(claimCmd)

	quizCmd.Flags().UintSliceVar(&answers, "answers", nil, "Answer index per question, in order.")
	quizCmd.MarkFlagRequired("answers")

	createCmd.Flags().StringVar(&title, "title", "", "Title of the content.")
	createCmd.Flags().StringVar(&body, "body", "", "Body text of the content.")
	createCmd.Flags().StringSliceVar(&sources, "source", nil, "Source URL, may be repeated.")
	createCmd.Flags().Uint64Var(&points, "points", 0, "Points rewarded for the content.")
	createCmd.Flags().StringVar(&readTime, "read-time", "", "Estimated read time.")
	createCmd.Flags().StringVar(&difficulty, "difficulty", "", "Difficulty level.")
	createCmd.Flags().StringVar(&category, "category", "", "Category of the content.")
	createCmd.MarkFlagRequired("title")
	createCmd.MarkFlagRequired("body")
	createCmd.MarkFlagRequired("points")

	questionCmd.Flags().StringVar(&question, "question", "", "Question text.")
	questionCmd.Flags().StringSliceVar(&options, "option", nil, "Answer option, exactly four.")
	questionCmd.Flags().UintVar(&correct, "correct", 0, "Index of the correct option.")
	questionCmd.MarkFlagRequired("question")
	questionCmd.MarkFlagRequired("option")

	claimCmd.Flags().Uint64Var(&points, "points", 0, "Points to redeem.")
	claimCmd.MarkFlagRequired("points")
}

// act opens a signing session, runs the action and prints the result.
func act(cmd *cobra.Command, fn func(ctx context.Context, s *session) state.Result) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := open(ctx, true)
	if err != nil {
		return err
	}
	defer s.close()

	return printResult(fn(ctx, s))
}

func registerRun(cmd *cobra.Command, args []string) error {
	return act(cmd, func(ctx context.Context, s *session) state.Result {
		return s.state.RegisterUser(ctx)
	})
}

func readRun(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	return act(cmd, func(ctx context.Context, s *session) state.Result {
		return s.state.ReadArticle(ctx, id)
	})
}

func quizRun(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	picks := make([]uint8, len(answers))
	for i, a := range answers {
		if a >= contract.NumOptions {
			return fmt.Errorf("answer %d out of range: %d", i, a)
		}
		picks[i] = uint8(a)
	}

	return act(cmd, func(ctx context.Context, s *session) state.Result {
		return s.state.TakeQuiz(ctx, id, picks)
	})
}

func createRun(cmd *cobra.Command, args []string) error {
	nc := contract.NewContent{
		Title:   title,
		Body:    body,
		Sources: sources,
		Points:  points,
	}

	meta := state.ContentMeta{
		ReadTime:   readTime,
		Difficulty: difficulty,
		Category:   category,
	}

	return act(cmd, func(ctx context.Context, s *session) state.Result {
		return s.state.CreateContent(ctx, nc, meta)
	})
}

func questionRun(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if len(options) != contract.NumOptions {
		return fmt.Errorf("need exactly %d options, got %d", contract.NumOptions, len(options))
	}

	q := contract.QuizQuestion{
		Question:      question,
		CorrectOption: uint8(correct),
	}
	copy(q.Options[:], options)

	return act(cmd, func(ctx context.Context, s *session) state.Result {
		return s.state.AddQuizQuestion(ctx, id, q)
	})
}

func claimRun(cmd *cobra.Command, args []string) error {
	return act(cmd, func(ctx context.Context, s *session) state.Result {
		return s.state.ClaimXFI(ctx, points)
	})
}

func parseID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid content id: %w", err)
	}
	return id, nil
}
