package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/memoir/internal/core/domain"
	"github.com/custodia-labs/memoir/internal/core/services"
)

var settingsAnnotations = map[string]string{settingsOnly: "true"}

var (
	settingsModel  string
	settingsAPIKey string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change settings stored in <home>/config.toml.

Any key can also be overridden with an environment variable named
MEMOIR_<KEY>, for example MEMOIR_LLM_API_KEY for llm.api_key.`,
	Annotations: settingsAnnotations,
	RunE:        runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show current settings",
	Annotations: settingsAnnotations,
	RunE:        runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a single setting",
	Long: `Change a single setting by its dotted key.

Examples:
  memoir settings set retrieval.top_k 8
  memoir settings set composer.temperature 0.3
  memoir settings set server.request_timeout 90s`,
	Args:        cobra.ExactArgs(2),
	Annotations: settingsAnnotations,
	RunE:        runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:         "keys",
	Short:       "List the setting keys",
	Args:        cobra.NoArgs,
	Annotations: settingsAnnotations,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, k := range services.SettingKeys() {
			cmd.Println(k)
		}
		return nil
	},
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding <provider>",
	Short: "Configure the embedding provider",
	Long: `Configure the embedding provider: ollama, openai or gemini.

Example:
  memoir settings embedding openai --api-key sk-...`,
	Args:        cobra.ExactArgs(1),
	Annotations: settingsAnnotations,
	RunE:        runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm <provider>",
	Short: "Configure the LLM provider",
	Long: `Configure the LLM provider used to compose replies: ollama, openai,
anthropic or gemini.`,
	Args:        cobra.ExactArgs(1),
	Annotations: settingsAnnotations,
	RunE:        runSettingsLLM,
}

var settingsValidateCmd = &cobra.Command{
	Use:         "validate",
	Short:       "Check that the configured providers are reachable",
	Args:        cobra.NoArgs,
	Annotations: settingsAnnotations,
	RunE:        runSettingsValidate,
}

func init() {
	for _, c := range []*cobra.Command{settingsEmbeddingCmd, settingsLLMCmd} {
		c.Flags().StringVar(&settingsModel, "model", "", "model name (default depends on provider)")
		c.Flags().StringVar(&settingsAPIKey, "api-key", "", "API key for cloud providers")
	}

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	cmd.Printf("  Rate limit: %.1f req/s\n", settings.Embedding.RateLimit)
	cmd.Println()

	cmd.Println("[LLM]")
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Pool size: %d\n", settings.Retrieval.PoolSize)
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Min score: %.2f\n", settings.Retrieval.MinScore)
	cmd.Println()

	cmd.Println("[Composer]")
	cmd.Printf("  Max tokens: %d\n", settings.Composer.MaxTokens)
	cmd.Printf("  Temperature: %.2f\n", settings.Composer.Temperature)
	cmd.Printf("  Disclosure: %s\n", settings.Composer.Disclosure)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	cmd.Printf("  Request timeout: %s\n", settings.Server.RequestTimeout)
	cmd.Printf("  CORS origin: %s\n", settings.Server.CORSOrigin)
	cmd.Println()

	cmd.Printf("Default profile: %s\n", settings.DefaultProfile)
	cmd.Printf("Reindex batch: %d\n", settings.ReindexBatchLimit)
	cmd.Printf("Reindex interval: %s\n", settings.ReindexInterval)
	cmd.Printf("Log level: %s\n", settings.LogLevel)
	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	if provider == "" {
		cmd.Println("  Provider: (none)")
		return
	}
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Println("  API Key: (not set)")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("%w (see 'memoir settings keys')", err)
	}
	cmd.Printf("Set %s\n", args[0])
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	provider := domain.AIProvider(args[0])
	if err := settingsService.SetEmbeddingProvider(provider, settingsModel, settingsAPIKey); err != nil {
		return fmt.Errorf("failed to set embedding provider: %w", err)
	}
	cmd.Printf("Embedding provider set to %s\n", provider.Description())
	return nil
}

func runSettingsLLM(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	provider := domain.AIProvider(args[0])
	if err := settingsService.SetLLMProvider(provider, settingsModel, settingsAPIKey); err != nil {
		return fmt.Errorf("failed to set LLM provider: %w", err)
	}
	cmd.Printf("LLM provider set to %s\n", provider.Description())
	return nil
}

func runSettingsValidate(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	var errs []error
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("Embedding: %v\n", err)
		errs = append(errs, err)
	} else {
		cmd.Println("Embedding: ok")
	}
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("LLM: %v\n", err)
		errs = append(errs, err)
	} else {
		cmd.Println("LLM: ok")
	}
	if len(errs) > 0 {
		return errors.New("provider validation failed")
	}
	return nil
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
