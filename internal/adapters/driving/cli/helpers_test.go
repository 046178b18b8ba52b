package cli

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/memoir/internal/adapters/driven/config/file"
	"github.com/custodia-labs/memoir/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/memoir/internal/core/services"
)

type testServices struct {
	profiles *services.ProfileService
	answers  *services.AnswerService
	settings *services.SettingsService
}

// setupTestServices injects real services over the in-memory store with no
// AI providers. Package state is restored when the test ends.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	store := memory.NewStore()
	embedder := services.NewEmbeddingAdapter(nil, 0)
	configStore, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)

	ts := &testServices{
		profiles: services.NewProfileService(store.Profiles()),
		answers:  services.NewAnswerService(store.Profiles(), store.Answers(), store.Embeddings(), embedder),
		settings: services.NewSettingsService(configStore, nil),
	}
	SetServices(
		ts.profiles,
		ts.answers,
		services.NewChatService(store.Profiles(), store.Answers(),
			services.NewRetriever(store.Embeddings()), embedder, nil, services.ComposerOptions{}),
		services.NewReindexService(store.Profiles(), store.Embeddings(), embedder, 0),
		ts.settings,
	)

	t.Cleanup(func() {
		profileService = nil
		answerService = nil
		chatService = nil
		reindexService = nil
		settingsService = nil
		servicesInjected = false
		resetFlags(rootCmd)
	})
	return ts
}

// resetFlags restores every flag of cmd and its children to its default,
// since cobra binds them to package variables that outlive a run.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCommand executes the root command with args and returns its standard
// output. Log lines and usage go to a separate buffer.
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	var in io.Reader = strings.NewReader(stdin)
	rootCmd.SetIn(in)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
