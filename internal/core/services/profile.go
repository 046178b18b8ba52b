package services

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/custodia-labs/memoir/internal/core/domain"
	"github.com/custodia-labs/memoir/internal/core/ports/driven"
	"github.com/custodia-labs/memoir/internal/core/ports/driving"
	"github.com/custodia-labs/memoir/internal/logger"
)

// Ensure ProfileService implements the interface.
var _ driving.ProfileService = (*ProfileService)(nil)

// ProfileService manages profiles.
type ProfileService struct {
	profiles driven.ProfileStore
}

// NewProfileService creates a new profile service.
func NewProfileService(profiles driven.ProfileStore) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// Register creates a profile with an optional numeric PIN.
func (s *ProfileService) Register(ctx context.Context, name, pin string) (*domain.Profile, error) {
	name = strings.TrimSpace(name)
	pin = strings.TrimSpace(pin)
	if name == "" {
		return nil, goerr.Wrap(domain.ErrInvalidInput, "profile name is required")
	}
	if !domain.ValidPIN(pin) {
		return nil, goerr.Wrap(domain.ErrInvalidInput, "pin must be 4 to 8 digits")
	}

	profile := &domain.Profile{Name: name, PIN: pin}
	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, goerr.Wrap(err, "profile name is taken", goerr.V("name", name))
		}
		return nil, storageError(err, "failed to create profile", goerr.V("name", name))
	}

	logger.From(ctx).Info("profile registered", "profile_id", profile.ID, "name", profile.Name)
	return profile, nil
}

// Get resolves a profile id.
func (s *ProfileService) Get(ctx context.Context, id int64) (*domain.Profile, error) {
	return requireProfile(ctx, s.profiles, id)
}

// Lookup resolves a profile by name, checking the PIN when one is set.
func (s *ProfileService) Lookup(ctx context.Context, name, pin string) (*domain.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, goerr.Wrap(domain.ErrInvalidInput, "profile name is required")
	}

	profile, err := s.profiles.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, goerr.Wrap(domain.ErrUnknownProfile, "no profile with that name", goerr.V("name", name))
		}
		return nil, storageError(err, "failed to look up profile", goerr.V("name", name))
	}

	if !profile.MatchPIN(pin) {
		return nil, goerr.Wrap(domain.ErrForbidden, "pin does not match", goerr.V("profile_id", profile.ID))
	}
	return profile, nil
}

// List returns all profiles.
func (s *ProfileService) List(ctx context.Context) ([]domain.Profile, error) {
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, storageError(err, "failed to list profiles")
	}
	return profiles, nil
}

// EnsureDefault creates the named profile if it does not exist.
func (s *ProfileService) EnsureDefault(ctx context.Context, name string) (*domain.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, goerr.Wrap(domain.ErrInvalidInput, "default profile name is empty")
	}

	profile, err := s.profiles.GetByName(ctx, name)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, storageError(err, "failed to look up default profile", goerr.V("name", name))
	}

	profile, err = s.Register(ctx, name, "")
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Created concurrently by another process.
		return s.profiles.GetByName(ctx, name)
	}
	return profile, err
}

// requireProfile maps a missing profile to domain.ErrUnknownProfile.
func requireProfile(ctx context.Context, profiles driven.ProfileStore, id int64) (*domain.Profile, error) {
	profile, err := profiles.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, goerr.Wrap(domain.ErrUnknownProfile, "profile does not exist", goerr.V("profile_id", id))
		}
		return nil, storageError(err, "failed to resolve profile", goerr.V("profile_id", id))
	}
	return profile, nil
}

// storageError tags a store failure with domain.ErrStorage.
func storageError(err error, msg string, opts ...goerr.Option) error {
	return goerr.Wrap(errors.Join(domain.ErrStorage, err), msg, opts...)
}
