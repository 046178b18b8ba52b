package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/memoir/internal/core/ports/driven"
)

var testDefaults = map[string]string{
	driven.PromptPersona: "You are {{.Name}}.",
}

func TestPromptStore_ImplementsInterface(t *testing.T) {
	var _ driven.PromptStore = (*PromptStore)(nil)
}

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir, testDefaults)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("", testDefaults)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".memoir", "prompts"), store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir, testDefaults)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptPersona)
	require.NoError(t, err)

	for _, f := range []string{"persona.tmpl", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_Load_ReturnsDefaultContent(t *testing.T) {
	store, err := NewPromptStore(t.TempDir(), testDefaults)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptPersona)

	require.NoError(t, err)
	assert.Equal(t, "You are {{.Name}}.", prompt)
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	custom := "I am {{.Name}} and I speak plainly."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "persona.tmpl"), []byte(custom), 0600))

	store, err := NewPromptStore(dir, testDefaults)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptPersona)

	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir, testDefaults)
	require.NoError(t, err)

	_, _ = store.Load(driven.PromptPersona)
	require.NoError(t, os.Remove(filepath.Join(dir, "persona.tmpl")))
	store.Reload()

	prompt, err := store.Load(driven.PromptPersona)

	require.NoError(t, err)
	assert.Equal(t, "You are {{.Name}}.", prompt)
}

func TestPromptStore_Load_EmptyFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "persona.tmpl"), []byte("  \n"), 0600))

	store, err := NewPromptStore(dir, testDefaults)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptPersona)

	require.NoError(t, err)
	assert.Equal(t, "You are {{.Name}}.", prompt)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir(), testDefaults)
	require.NoError(t, err)

	_, err = store.Load("nonexistent_prompt")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent_prompt")
}

func TestPromptStore_Load_CachesUntilReload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir, testDefaults)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptPersona)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "persona.tmpl"), []byte("modified"), 0600))

	cached, err := store.Load(driven.PromptPersona)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()

	fresh, err := store.Load(driven.PromptPersona)
	require.NoError(t, err)
	assert.Equal(t, "modified", fresh)
}

func TestPromptStore_DefaultsAreCopied(t *testing.T) {
	defaults := map[string]string{driven.PromptPersona: "original"}
	store, err := NewPromptStore(t.TempDir(), defaults)
	require.NoError(t, err)

	defaults[driven.PromptPersona] = "mutated"

	prompt, err := store.Load(driven.PromptPersona)
	require.NoError(t, err)
	assert.Equal(t, "original", prompt)
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store, err := NewPromptStore(t.TempDir(), testDefaults)
	require.NoError(t, err)

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)
	prompts := make(chan string, goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			prompt, err := store.Load(driven.PromptPersona)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			prompts <- prompt
		}()
	}

	wg.Wait()
	close(prompts)

	for prompt := range prompts {
		assert.Equal(t, "You are {{.Name}}.", prompt)
	}
}

func TestPromptStore_DoesNotOverwriteExistingFiles(t *testing.T) {
	dir := t.TempDir()
	custom := "pre-existing persona"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "persona.tmpl"), []byte(custom), 0600))

	store, err := NewPromptStore(dir, testDefaults)
	require.NoError(t, err)
	_, _ = store.Load(driven.PromptPersona)

	data, err := os.ReadFile(filepath.Join(dir, "persona.tmpl"))
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}
