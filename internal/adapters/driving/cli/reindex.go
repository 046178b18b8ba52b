package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/memoir/internal/core/domain"
)

var reindexLimit int

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Embed answers that have no embedding yet",
	Long: `Embed answers that were saved while the embedding provider was missing
or failing, oldest first. Run again while more work remains.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	reindexCmd.Flags().IntVarP(&reindexLimit, "limit", "n", 0, "maximum answers to embed (default from reindex.batch_limit)")
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	if reindexService == nil {
		return errors.New("reindex service not configured")
	}
	ctx := commandContext(cmd)
	profile, err := resolveProfile(ctx)
	if err != nil {
		return err
	}

	result, err := reindexService.Reindex(ctx, profile.ID, reindexLimit)
	if errors.Is(err, domain.ErrEmbeddingUnavailable) {
		return fmt.Errorf("%w. Run 'memoir settings set embedding.provider ollama' to configure one", err)
	}
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	cmd.Printf("Indexed: %d, failed: %d\n", result.Indexed, result.Failed)
	if result.HasMore {
		cmd.Println("More answers are waiting. Run 'memoir reindex' again.")
	}
	return nil
}
