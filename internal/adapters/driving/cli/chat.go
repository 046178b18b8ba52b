package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/memoir/internal/core/domain"
)

var (
	chatFormality float64
	chatDetail    float64
	chatHumor     float64
	chatJSON      bool
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask the reconstruction a question",
	Long: `Compose a reply in the profile's voice, grounded in its recorded answers.

Tone sliders range from 0 to 1 and only change the style of the reply.

Examples:
  memoir chat "What was your first job?"
  memoir chat --humor 0.9 --detail 0.2 "Any advice for my wedding?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().Float64Var(&chatFormality, "formality", domain.DefaultToneValue, "formality 0 (casual) to 1 (formal)")
	chatCmd.Flags().Float64Var(&chatDetail, "detail", domain.DefaultToneValue, "detail 0 (brief) to 1 (thorough)")
	chatCmd.Flags().Float64Var(&chatHumor, "humor", domain.DefaultToneValue, "humor 0 (serious) to 1 (playful)")
	chatCmd.Flags().BoolVar(&chatJSON, "json", false, "output the reply as JSON")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}
	ctx := commandContext(cmd)

	profile, err := resolveProfile(ctx)
	if err != nil {
		return err
	}

	reply, err := chatService.Chat(ctx, domain.ChatRequest{
		ProfileID: profile.ID,
		Message:   strings.Join(args, " "),
		Tone:      domain.ToneFrom(&chatFormality, &chatDetail, &chatHumor),
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	if chatJSON {
		data, err := json.MarshalIndent(reply, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal reply: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(reply.Text)
	if verbose && len(reply.Citations) > 0 {
		cmd.Println()
		cmd.Printf("Sources (%s):\n", reply.Mode)
		for _, c := range reply.Citations {
			cmd.Printf("  [%d] #%d %s (%.2f)\n", c.Rank, c.AnswerID, c.Question, c.Score)
		}
	}
	return nil
}
