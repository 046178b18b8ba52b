package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/memoir/internal/core/domain"
)

func TestChat_FallbackQuotesMatchingAnswer(t *testing.T) {
	setupTestServices(t)

	_, err := runCommand(t, "", "answer", "add", "-q", "Where did you grow up?", "On a farm by the river")
	require.NoError(t, err)

	out, err := runCommand(t, "", "chat", "farm", "life?")

	require.NoError(t, err)
	assert.Contains(t, out, "On a farm by the river")
}

func TestChat_JSONOutput(t *testing.T) {
	setupTestServices(t)

	out, err := runCommand(t, "", "chat", "--json", "--humor", "2", "hello")

	require.NoError(t, err)
	var reply domain.Reply
	require.NoError(t, json.Unmarshal([]byte(out), &reply))
	assert.Equal(t, domain.ReplyFallback, reply.Mode)
	assert.NotEmpty(t, reply.Text)
}

func TestChat_RequiresMessage(t *testing.T) {
	setupTestServices(t)

	_, err := runCommand(t, "", "chat")
	require.Error(t, err)

	_, err = runCommand(t, "", "chat", "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChat_UnknownProfile(t *testing.T) {
	setupTestServices(t)

	_, err := runCommand(t, "", "--profile", "nobody", "chat", "hi")

	assert.ErrorIs(t, err, domain.ErrUnknownProfile)
}
