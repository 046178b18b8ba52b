package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/memoir/internal/adapters/driven/ai"
	"github.com/custodia-labs/memoir/internal/adapters/driven/config/file"
	"github.com/custodia-labs/memoir/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/memoir/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/memoir/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/memoir/internal/core/domain"
	"github.com/custodia-labs/memoir/internal/core/ports/driven"
	"github.com/custodia-labs/memoir/internal/core/services"
	"github.com/custodia-labs/memoir/internal/logger"
)

type appOptions struct {
	home     string
	inMemory bool
}

// app holds the wired adapters and services for one command run.
type app struct {
	home      string
	promptDir string
	settings  *domain.AppSettings
	status    httpapi.Status

	prompts *file.PromptStore
	ai      *ai.InitResult
	closers []func() error

	profiles    *services.ProfileService
	answers     *services.AnswerService
	chat        *services.ChatService
	reindex     *services.ReindexService
	settingsSvc *services.SettingsService
	scheduler   *services.ReindexScheduler
}

type stores struct {
	profiles   driven.ProfileStore
	answers    driven.AnswerStore
	embeddings driven.EmbeddingStore
}

// newApp loads settings, opens storage and builds every service.
// Provider problems are logged and leave the provider disabled.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	log := logger.From(ctx)

	settingsSvc, err := newSettingsService(opts.home)
	if err != nil {
		return nil, err
	}
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	a := &app{
		home:        opts.home,
		promptDir:   filepath.Join(opts.home, "prompts"),
		settings:    settings,
		settingsSvc: settingsSvc,
	}

	st, err := a.openStores(opts)
	if err != nil {
		return nil, err
	}

	a.prompts, err = file.NewPromptStore(a.promptDir, services.DefaultPrompts())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("opening prompt store: %w", err)
	}

	a.ai = ai.Init(settings)
	for _, w := range a.ai.Warnings {
		log.Warn("AI provider disabled", "reason", w)
	}
	a.closers = append(a.closers, func() error { a.ai.Close(); return nil })
	a.status = httpapi.Status{
		Embedding: a.ai.EmbeddingService != nil,
		LLM:       a.ai.LLMService != nil,
	}

	embedder := services.NewEmbeddingAdapter(a.ai.EmbeddingService, settings.Embedding.RateLimit)
	a.profiles = services.NewProfileService(st.profiles)
	a.answers = services.NewAnswerService(st.profiles, st.answers, st.embeddings, embedder)
	a.chat = services.NewChatService(st.profiles, st.answers, services.NewRetriever(st.embeddings),
		embedder, a.ai.LLMService, services.ComposerOptionsFrom(settings))
	a.chat.SetPromptStore(a.prompts)
	a.reindex = services.NewReindexService(st.profiles, st.embeddings, embedder, settings.ReindexBatchLimit)
	a.scheduler = services.NewReindexScheduler(st.profiles, a.reindex, settings.ReindexInterval)

	if _, err := a.profiles.EnsureDefault(ctx, settings.DefaultProfile); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("creating default profile: %w", err)
	}
	return a, nil
}

func newSettingsService(home string) (*services.SettingsService, error) {
	configStore, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return services.NewSettingsService(configStore, ai.NewConfigValidator()), nil
}

func (a *app) openStores(opts appOptions) (stores, error) {
	if opts.inMemory {
		m := memory.NewStore()
		return stores{m.Profiles(), m.Answers(), m.Embeddings()}, nil
	}

	db, err := sqlite.NewStore(filepath.Join(opts.home, "data"), sqlite.WithMaxOpenConns(a.settings.MaxOpenConns))
	if err != nil {
		return stores{}, fmt.Errorf("opening store: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	return stores{db.Profiles(), db.Answers(), db.Embeddings()}, nil
}

// Close releases everything newApp opened, in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// defaultProfileName returns the configured default profile name.
func defaultProfileName() string {
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil && strings.TrimSpace(s.DefaultProfile) != "" {
			return s.DefaultProfile
		}
	}
	return domain.DefaultAppSettings().DefaultProfile
}

// resolveProfile returns the profile named by --profile, or the default
// profile (created when missing). The CLI is the local operator, so PINs
// are not asked for here.
func resolveProfile(ctx context.Context) (*domain.Profile, error) {
	if profileService == nil {
		return nil, errors.New("profile service not configured")
	}
	if profileFlag == "" {
		return profileService.EnsureDefault(ctx, defaultProfileName())
	}

	profiles, err := profileService.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	for i := range profiles {
		if profiles[i].Name == profileFlag {
			return &profiles[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProfile, profileFlag)
}
