package driving

import (
	"context"

	"github.com/custodia-labs/memoir/internal/core/domain"
)

// ProfileService manages profiles.
type ProfileService interface {
	// Register creates a profile with an optional numeric PIN.
	Register(ctx context.Context, name, pin string) (*domain.Profile, error)

	// Get resolves a profile id. Returns domain.ErrUnknownProfile if missing.
	Get(ctx context.Context, id int64) (*domain.Profile, error)

	// Lookup resolves a profile by name, checking the PIN when one is set.
	Lookup(ctx context.Context, name, pin string) (*domain.Profile, error)

	// List returns all profiles.
	List(ctx context.Context) ([]domain.Profile, error)

	// EnsureDefault creates the named profile if it does not exist.
	EnsureDefault(ctx context.Context, name string) (*domain.Profile, error)
}
