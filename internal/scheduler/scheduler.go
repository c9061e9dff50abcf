// Package scheduler implements C7: the background training scheduler
// that periodically retrains each profile's classifier.
package scheduler

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/guardianbridge/gbridge/internal/classifier"
	"github.com/guardianbridge/gbridge/internal/profile"
	"github.com/guardianbridge/gbridge/internal/samplestore"
)

// tickInterval is the scheduler's check cadence.
const tickInterval = 10 * time.Minute

// Scheduler sequentially retrains every configured profile whose
// should_train condition holds, on a fixed tick — a single supervised
// goroutine, not a pool, since training is CPU-bound and the source
// itself runs profiles one at a time within its asyncio loop.
type Scheduler struct {
	profiles  *profile.Store
	cache     *classifier.Cache
	logger    *slog.Logger
	nowFn     func() time.Time
	lastTrain map[string]time.Time
}

// New builds a Scheduler over profiles, invalidating cache entries it
// retrains so the moderation engine (C5) picks up fresh artifacts on
// its next request.
func New(profiles *profile.Store, cache *classifier.Cache, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		profiles:  profiles,
		cache:     cache,
		logger:    logger,
		nowFn:     time.Now,
		lastTrain: map[string]time.Time{},
	}
}

// Run blocks, ticking every tickInterval, until ctx is canceled. Intended
// to be launched in its own goroutine by the server's supervised
// background task group.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	s.trainAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trainAll(ctx)
		}
	}
}

func (s *Scheduler) trainAll(ctx context.Context) {
	names, err := s.profiles.List()
	if err != nil {
		s.logger.Error("scheduler: list profiles", "error", err)
		return
	}

	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		if err := s.trainOne(ctx, name); err != nil {
			s.logger.Error("scheduler: train profile failed", "profile", name, "error", err)
		}
	}
}

func (s *Scheduler) trainOne(ctx context.Context, name string) error {
	cfg, err := s.profiles.Load(name)
	if err != nil {
		return err
	}
	if !cfg.SmartModeration.Enabled {
		return nil
	}

	should, err := s.shouldTrain(ctx, cfg)
	if err != nil {
		return err
	}
	if !should {
		return nil
	}

	store, err := samplestore.Open(s.profiles.HistoryDBPath(name))
	if err != nil {
		return err
	}

	result, err := classifier.Train(ctx, store, s.profiles.ArtifactDir(name), classifier.TrainConfig{
		MinSamples:   cfg.BowTraining.MinSamples,
		MaxSamples:   cfg.BowTraining.MaxSamples,
		MaxFeatures:  cfg.BowTraining.MaxFeatures,
		BatchSize:    cfg.BowTraining.BatchSize,
		MaxSeconds:   cfg.MaxTrainSeconds(),
		UseCharNgram: cfg.BowTraining.UseCharNgram,
		UseBPE:       cfg.BowTraining.UseBPE,
		UseWordNgram: cfg.BowTraining.UseWordNgram,
		WordNgramMin: cfg.BowTraining.WordNgramMin,
		WordNgramMax: cfg.BowTraining.WordNgramMax,
	})
	if err != nil {
		return err
	}

	s.lastTrain[name] = s.nowFn()
	if result.Trained {
		s.cache.Invalidate(s.profiles.ArtifactDir(name))
		s.logger.Info("scheduler: trained profile",
			"profile", name, "samples", result.SampleSize, "batches", result.Batches,
			"accuracy", result.Accuracy, "correlation", result.Correlation, "elapsed", result.Elapsed)
	} else {
		s.logger.Info("scheduler: skipped profile", "profile", name, "reason", result.Reason)
	}
	return nil
}

// shouldTrain reports whether a profile is due for retraining: train if
// there are enough samples and either no model yet exists, or the
// retrain interval has elapsed since the model artifact's own mtime (a
// restart-safe substitute for the in-memory lastTrain map, which only
// covers runs within this process's lifetime).
func (s *Scheduler) shouldTrain(ctx context.Context, cfg profile.Config) (bool, error) {
	store, err := samplestore.Open(s.profiles.HistoryDBPath(cfg.Name))
	if err != nil {
		return false, err
	}
	count, err := store.Count(ctx)
	if err != nil {
		return false, err
	}
	if count < cfg.BowTraining.MinSamples {
		return false, nil
	}

	modelPath := filepath.Join(s.profiles.ArtifactDir(cfg.Name), "model.bin")
	info, err := os.Stat(modelPath)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	return s.nowFn().Sub(info.ModTime()) >= cfg.RetrainInterval(), nil
}
