package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/memoir/internal/core/domain"
)

func TestProfileCreateAndList(t *testing.T) {
	setupTestServices(t)

	out, err := runCommand(t, "", "profile", "create", "grandma")
	require.NoError(t, err)
	assert.Contains(t, out, `Created profile "grandma"`)

	out, err = runCommand(t, "4321\n", "profile", "create", "grandpa", "--pin")
	require.NoError(t, err)
	assert.Contains(t, out, "PIN: ")

	out, err = runCommand(t, "", "profile", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "grandma\n")
	assert.Contains(t, out, "grandpa (PIN)")

	out, err = runCommand(t, "", "profile", "list", "--json")
	require.NoError(t, err)
	assert.NotContains(t, out, "4321")
	var profiles []domain.Profile
	require.NoError(t, json.Unmarshal([]byte(out), &profiles))
	assert.Len(t, profiles, 2)
}

func TestProfileCreate_Duplicate(t *testing.T) {
	setupTestServices(t)

	_, err := runCommand(t, "", "profile", "create", "grandma")
	require.NoError(t, err)

	_, err = runCommand(t, "", "profile", "create", "grandma")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestProfileCreate_InvalidPIN(t *testing.T) {
	setupTestServices(t)

	_, err := runCommand(t, "12\n", "profile", "create", "grandpa", "--pin")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProfileLookup(t *testing.T) {
	setupTestServices(t)
	_, err := runCommand(t, "4321\n", "profile", "create", "grandpa", "--pin")
	require.NoError(t, err)

	out, err := runCommand(t, "4321\n", "profile", "lookup", "grandpa", "--pin")
	require.NoError(t, err)
	assert.Contains(t, out, "grandpa: id ")

	_, err = runCommand(t, "0000\n", "profile", "lookup", "grandpa", "--pin")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = runCommand(t, "", "profile", "lookup", "nobody")
	assert.ErrorIs(t, err, domain.ErrUnknownProfile)
}

func TestProfileFlag_SelectsProfile(t *testing.T) {
	setupTestServices(t)
	_, err := runCommand(t, "", "profile", "create", "grandma")
	require.NoError(t, err)

	_, err = runCommand(t, "", "--profile", "grandma", "answer", "add", "-q", "Q", "A")
	require.NoError(t, err)

	out, err := runCommand(t, "", "--profile", "grandma", "answer", "count")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = runCommand(t, "", "answer", "count")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out, "default profile is separate")
}
