// Package cli implements the memoir command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/memoir/internal/core/ports/driving"
	"github.com/custodia-labs/memoir/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Global flags.
var (
	homeDir     string
	profileFlag string
	verbose     bool
	logLevel    string
)

// Services used by the commands. They are wired by PersistentPreRunE unless
// SetServices was called first, which is what the tests do.
var (
	profileService  driving.ProfileService
	answerService   driving.AnswerService
	chatService     driving.ChatService
	reindexService  driving.ReindexService
	settingsService driving.SettingsService

	servicesInjected bool
	current          *app
)

// Command annotations that narrow the wiring done in setup.
const (
	skipServices = "skip-services" // no services at all
	settingsOnly = "settings-only" // config store and settings service only
)

var rootCmd = &cobra.Command{
	Use:   "memoir",
	Short: "Record answers and talk to their reconstruction",
	Long: `memoir records a person's answers to questions and composes replies
in their voice, grounded in what they actually said.

Answers are stored locally and embedded for semantic retrieval when an
embedding provider is configured. Without providers, replies fall back to a
plain keyword match over the recorded answers.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&homeDir, "home", "", "data and config directory (default ~/.memoir)")
	flags.StringVar(&profileFlag, "profile", "", "profile name (default from profile.default_name)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "show retrieval and composition steps")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// Execute runs the root command. Command output goes to stdout.
func Execute() error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.Execute()
}

// SetServices injects the services used by the commands and disables the
// default wiring.
func SetServices(
	profiles driving.ProfileService,
	answers driving.AnswerService,
	chat driving.ChatService,
	reindex driving.ReindexService,
	settings driving.SettingsService,
) {
	profileService = profiles
	answerService = answers
	chatService = chat
	reindexService = reindex
	settingsService = settings
	servicesInjected = true
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := loadDotEnv(); err != nil {
		return err
	}
	logger.SetVerbose(verbose)
	if logLevel != "" {
		logger.Configure(logLevel, cmd.ErrOrStderr())
	}

	if servicesInjected || cmd.Annotations[skipServices] == "true" {
		return nil
	}

	home, err := resolveHome()
	if err != nil {
		return err
	}

	if cmd.Annotations[settingsOnly] == "true" {
		svc, err := newSettingsService(home)
		if err != nil {
			return err
		}
		settingsService = svc
		return nil
	}

	a, err := newApp(cmd.Context(), appOptions{home: home, inMemory: serveInMemory})
	if err != nil {
		return err
	}
	current = a
	profileService = a.profiles
	answerService = a.answers
	chatService = a.chat
	reindexService = a.reindex
	settingsService = a.settingsSvc

	if logLevel == "" {
		logger.Configure(a.settings.LogLevel, cmd.ErrOrStderr())
		logger.SetVerbose(verbose)
	}
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if current == nil {
		return nil
	}
	err := current.Close()
	current = nil
	return err
}

// loadDotEnv reads .env from the working directory when present.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

func resolveHome() (string, error) {
	if homeDir != "" {
		return homeDir, nil
	}
	if env := os.Getenv("MEMOIR_HOME"); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".memoir"), nil
}

// commandContext returns the command's context, or Background when run outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
