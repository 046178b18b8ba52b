package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/memoir/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/memoir/internal/core/domain"
)

func TestProfileService_Register(t *testing.T) {
	svc := NewProfileService(memory.NewStore().Profiles())
	ctx := context.Background()

	p, err := svc.Register(ctx, "  grandma ", "1234")
	require.NoError(t, err)
	assert.Equal(t, "grandma", p.Name)
	assert.True(t, p.HasPIN())

	_, err = svc.Register(ctx, "grandma", "")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestProfileService_Register_Validation(t *testing.T) {
	svc := NewProfileService(memory.NewStore().Profiles())
	ctx := context.Background()

	tests := []struct {
		name string
		pin  string
	}{
		{"", ""},
		{"grandma", "12"},
		{"grandma", "123456789"},
		{"grandma", "12a4"},
	}

	for _, tt := range tests {
		_, err := svc.Register(ctx, tt.name, tt.pin)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "name=%q pin=%q", tt.name, tt.pin)
	}
}

func TestProfileService_Lookup(t *testing.T) {
	svc := NewProfileService(memory.NewStore().Profiles())
	ctx := context.Background()
	locked, err := svc.Register(ctx, "grandma", "4321")
	require.NoError(t, err)
	open, err := svc.Register(ctx, "grandpa", "")
	require.NoError(t, err)

	got, err := svc.Lookup(ctx, "grandma", " 4321 ")
	require.NoError(t, err)
	assert.Equal(t, locked.ID, got.ID)

	_, err = svc.Lookup(ctx, "grandma", "0000")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Lookup(ctx, "grandma", "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err = svc.Lookup(ctx, "grandpa", "anything")
	require.NoError(t, err)
	assert.Equal(t, open.ID, got.ID)

	_, err = svc.Lookup(ctx, "nobody", "")
	assert.ErrorIs(t, err, domain.ErrUnknownProfile)

	_, err = svc.Lookup(ctx, " ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProfileService_GetAndList(t *testing.T) {
	svc := NewProfileService(memory.NewStore().Profiles())
	ctx := context.Background()
	a, err := svc.Register(ctx, "a", "")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "b", "")
	require.NoError(t, err)

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)

	_, err = svc.Get(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrUnknownProfile)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestProfileService_EnsureDefault(t *testing.T) {
	svc := NewProfileService(memory.NewStore().Profiles())
	ctx := context.Background()

	first, err := svc.EnsureDefault(ctx, "me")
	require.NoError(t, err)
	second, err := svc.EnsureDefault(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = svc.EnsureDefault(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProfileService_EnsureDefault_Concurrent(t *testing.T) {
	svc := NewProfileService(memory.NewStore().Profiles())
	ctx := context.Background()

	const workers = 8
	ids := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := svc.EnsureDefault(ctx, "me")
			if assert.NoError(t, err) {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
