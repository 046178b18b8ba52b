package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/memoir/internal/core/domain"
)

var (
	answerQuestion string
	answerLimit    int
	answerJSON     bool
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Record and manage answers",
	Long:  `Record answers to questions and manage the ones already saved.`,
}

var answerAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Record an answer",
	Long: `Record an answer to a question. The answer is embedded right away when
an embedding provider is configured; otherwise run 'memoir reindex' later.

Example:
  memoir answer add -q "What was your first car?" "A rusty 1972 Beetle"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnswerAdd,
}

var answerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List answers, newest first",
	Args:  cobra.NoArgs,
	RunE:  runAnswerList,
}

var answerEditCmd = &cobra.Command{
	Use:   "edit <id> <text>",
	Short: "Replace the text of an answer",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAnswerEdit,
}

var answerDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an answer",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnswerDelete,
}

var answerCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count recorded answers",
	Args:  cobra.NoArgs,
	RunE:  runAnswerCount,
}

func init() {
	answerAddCmd.Flags().StringVarP(&answerQuestion, "question", "q", "", "question being answered (required)")
	_ = answerAddCmd.MarkFlagRequired("question")
	answerListCmd.Flags().IntVarP(&answerLimit, "limit", "n", 20, "maximum number of answers")
	answerListCmd.Flags().BoolVar(&answerJSON, "json", false, "output answers as JSON")

	answerCmd.AddCommand(answerAddCmd)
	answerCmd.AddCommand(answerListCmd)
	answerCmd.AddCommand(answerEditCmd)
	answerCmd.AddCommand(answerDeleteCmd)
	answerCmd.AddCommand(answerCountCmd)
	rootCmd.AddCommand(answerCmd)
}

func runAnswerAdd(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}
	ctx := commandContext(cmd)
	profile, err := resolveProfile(ctx)
	if err != nil {
		return err
	}

	result, err := answerService.Save(ctx, profile.ID, answerQuestion, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}

	cmd.Printf("Saved answer #%d (embedding: %s)\n", result.Answer.ID, result.Embedding)
	printEmbeddingHint(cmd, result.Embedding)
	return nil
}

func runAnswerList(cmd *cobra.Command, _ []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}
	ctx := commandContext(cmd)
	profile, err := resolveProfile(ctx)
	if err != nil {
		return err
	}

	answers, err := answerService.List(ctx, profile.ID, answerLimit)
	if err != nil {
		return fmt.Errorf("failed to list answers: %w", err)
	}

	if answerJSON {
		if answers == nil {
			answers = []domain.Answer{}
		}
		data, err := json.MarshalIndent(answers, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answers: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(answers) == 0 {
		cmd.Println("No answers recorded yet.")
		return nil
	}
	for i := range answers {
		a := &answers[i]
		cmd.Printf("#%d  %s  %s\n", a.ID, a.CreatedAt.Local().Format("2006-01-02 15:04"), a.Question)
		cmd.Printf("     %s\n", a.Text)
	}
	return nil
}

func runAnswerEdit(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}
	id, err := parseAnswerID(args[0])
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	profile, err := resolveProfile(ctx)
	if err != nil {
		return err
	}

	result, err := answerService.Update(ctx, profile.ID, id, strings.Join(args[1:], " "))
	if err != nil {
		return fmt.Errorf("failed to update answer: %w", err)
	}

	cmd.Printf("Updated answer #%d (embedding: %s)\n", result.Answer.ID, result.Embedding)
	printEmbeddingHint(cmd, result.Embedding)
	return nil
}

func runAnswerDelete(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}
	id, err := parseAnswerID(args[0])
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	profile, err := resolveProfile(ctx)
	if err != nil {
		return err
	}

	if err := answerService.Delete(ctx, profile.ID, id); err != nil {
		return fmt.Errorf("failed to delete answer: %w", err)
	}
	cmd.Printf("Deleted answer #%d\n", id)
	return nil
}

func runAnswerCount(cmd *cobra.Command, _ []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}
	ctx := commandContext(cmd)
	profile, err := resolveProfile(ctx)
	if err != nil {
		return err
	}

	n, err := answerService.Count(ctx, profile.ID)
	if err != nil {
		return fmt.Errorf("failed to count answers: %w", err)
	}
	cmd.Println(n)
	return nil
}

func parseAnswerID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid answer id %q", domain.ErrInvalidInput, s)
	}
	return id, nil
}

func printEmbeddingHint(cmd *cobra.Command, status domain.EmbeddingStatus) {
	if status == domain.EmbeddingFailed {
		cmd.Println("The answer was saved but could not be embedded. Run 'memoir reindex' to retry.")
	}
}
