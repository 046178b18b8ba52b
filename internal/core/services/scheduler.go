package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/memoir/internal/core/domain"
	"github.com/custodia-labs/memoir/internal/core/ports/driven"
	"github.com/custodia-labs/memoir/internal/core/ports/driving"
	"github.com/custodia-labs/memoir/internal/logger"
)

// maxSweepRounds bounds how many full batches one profile gets per sweep.
const maxSweepRounds = 10

// ReindexScheduler periodically backfills missing embeddings for every profile.
type ReindexScheduler struct {
	profiles driven.ProfileStore
	reindex  driving.ReindexService
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewReindexScheduler creates a scheduler that sweeps every interval.
func NewReindexScheduler(
	profiles driven.ProfileStore,
	reindex driving.ReindexService,
	interval time.Duration,
) *ReindexScheduler {
	return &ReindexScheduler{
		profiles: profiles,
		reindex:  reindex,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start sweeps once, then again every interval until Stop is called or ctx
// is cancelled. It blocks. A non-positive interval, a second concurrent call
// or a call after Stop returns immediately.
func (s *ReindexScheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return nil
	}

	s.mu.Lock()
	if s.running || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	stopCh := s.stopCh
	s.wg.Add(1)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.wg.Done()
	}()

	logger.From(ctx).Info("reindex scheduler started", "interval", s.interval.String())
	s.sweepLogged(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.sweepLogged(ctx)
		}
	}
}

// Stop ends the loop and waits for an in-flight sweep to finish.
// It is final: a later Start does nothing. Calling Stop twice is safe.
func (s *ReindexScheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stopCh)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *ReindexScheduler) sweepLogged(ctx context.Context) {
	total, err := s.Sweep(ctx)
	log := logger.From(ctx)
	if err != nil {
		log.Warn("reindex sweep stopped", "error", err)
		return
	}
	if total.Indexed > 0 || total.Failed > 0 {
		log.Info("reindex sweep complete", "indexed", total.Indexed, "failed", total.Failed)
	}
}

// Sweep runs reindex batches for every profile until no work remains or the
// round limit is hit. Per-profile failures are logged and skipped; a missing
// embedding provider or a cancelled context ends the sweep.
func (s *ReindexScheduler) Sweep(ctx context.Context) (domain.ReindexResult, error) {
	var total domain.ReindexResult

	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return total, storageError(err, "failed to list profiles for reindex")
	}

	for i := range profiles {
		for round := 0; round < maxSweepRounds; round++ {
			if err := ctx.Err(); err != nil {
				return total, err
			}

			res, err := s.reindex.Reindex(ctx, profiles[i].ID, 0)
			if res != nil {
				total.Indexed += res.Indexed
				total.Failed += res.Failed
			}
			if errors.Is(err, domain.ErrEmbeddingUnavailable) {
				return total, err
			}
			if err != nil {
				logger.From(ctx).Warn("reindex failed", "profile_id", profiles[i].ID, "error", err)
				break
			}
			// Stop when the batch was not full, or when nothing in a full batch succeeded.
			if !res.HasMore || res.Indexed == 0 {
				break
			}
		}
	}
	total.HasMore = false
	return total, nil
}
