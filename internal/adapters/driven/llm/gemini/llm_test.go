package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMService(t *testing.T) {
	_, err := NewLLMService(context.Background(), Config{})
	require.Error(t, err)

	svc, err := NewLLMService(context.Background(), Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.NoError(t, svc.Close())
}

func TestNewConfig(t *testing.T) {
	t.Run("zero values leave provider defaults", func(t *testing.T) {
		config := newConfig(0, 0)
		assert.Zero(t, config.MaxOutputTokens)
		assert.Nil(t, config.Temperature)
	})

	t.Run("sets limits", func(t *testing.T) {
		config := newConfig(300, 0.3)
		assert.Equal(t, int32(300), config.MaxOutputTokens)
		require.NotNil(t, config.Temperature)
		assert.InDelta(t, 0.3, *config.Temperature, 1e-6)
	})
}
