package file

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPromptStore struct {
	reloads atomic.Int32
}

func (c *countingPromptStore) Load(string) (string, error) { return "", nil }
func (c *countingPromptStore) Reload() { c.reloads.Add(1) }

func TestIsPromptChange(t *testing.T) {
	tests := []struct {
		name     string
		event    fsnotify.Event
		expected bool
	}{
		{"write template", fsnotify.Event{Name: "/p/persona.tmpl", Op: fsnotify.Write}, true},
		{"create template", fsnotify.Event{Name: "/p/persona.tmpl", Op: fsnotify.Create}, true},
		{"remove template", fsnotify.Event{Name: "/p/persona.tmpl", Op: fsnotify.Remove}, true},
		{"chmod template", fsnotify.Event{Name: "/p/persona.tmpl", Op: fsnotify.Chmod}, false},
		{"readme write", fsnotify.Event{Name: "/p/README.md", Op: fsnotify.Write}, false},
		{"editor swap file", fsnotify.Event{Name: "/p/.persona.tmpl.swp", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isPromptChange(tt.event))
		})
	}
}

func TestPromptWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	store := &countingPromptStore{}

	w, err := NewPromptWatcher(dir, store)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "persona.tmpl"), []byte("hi {{.Name}}"), 0600))

	assert.Eventually(t, func() bool {
		return store.reloads.Load() > 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNewPromptWatcher_MissingDir(t *testing.T) {
	_, err := NewPromptWatcher(filepath.Join(t.TempDir(), "missing"), &countingPromptStore{})
	assert.Error(t, err)
}
