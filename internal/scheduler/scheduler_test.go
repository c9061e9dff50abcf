package scheduler

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardianbridge/gbridge/internal/classifier"
	"github.com/guardianbridge/gbridge/internal/profile"
	"github.com/guardianbridge/gbridge/internal/samplestore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTrainAllSkipsDisabledProfile(t *testing.T) {
	base := t.TempDir()
	profiles := profile.NewStore(base)

	cfg := profile.Defaults("disabled")
	cfg.SmartModeration.Enabled = false
	require.NoError(t, profiles.Save(cfg))

	s := New(profiles, classifier.NewCache(), discardLogger())
	s.trainAll(context.Background())

	_, ok := s.lastTrain["disabled"]
	assert.False(t, ok)
}

func TestShouldTrainFalseBelowMinSamples(t *testing.T) {
	base := t.TempDir()
	profiles := profile.NewStore(base)
	cfg := profile.Defaults("sparse")
	cfg.BowTraining.MinSamples = 10
	require.NoError(t, profiles.Save(cfg))

	store, err := samplestore.Open(profiles.HistoryDBPath("sparse"))
	require.NoError(t, err)
	_, err = store.Save(context.Background(), "hello", 0, "")
	require.NoError(t, err)

	s := New(profiles, classifier.NewCache(), discardLogger())
	should, err := s.shouldTrain(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, should)
}

func TestShouldTrainTrueWhenNoModelYet(t *testing.T) {
	base := t.TempDir()
	profiles := profile.NewStore(base)
	cfg := profile.Defaults("ready")
	cfg.BowTraining.MinSamples = 1
	require.NoError(t, profiles.Save(cfg))

	store, err := samplestore.Open(profiles.HistoryDBPath("ready"))
	require.NoError(t, err)
	_, err = store.Save(context.Background(), "hello", 0, "")
	require.NoError(t, err)

	s := New(profiles, classifier.NewCache(), discardLogger())
	should, err := s.shouldTrain(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, should)
}

func TestShouldTrainRespectsRetrainInterval(t *testing.T) {
	base := t.TempDir()
	profiles := profile.NewStore(base)
	cfg := profile.Defaults("fresh")
	cfg.BowTraining.MinSamples = 1
	cfg.BowTraining.RetrainIntervalMinutes = 60
	require.NoError(t, profiles.Save(cfg))

	store, err := samplestore.Open(profiles.HistoryDBPath("fresh"))
	require.NoError(t, err)
	_, err = store.Save(context.Background(), "hello", 0, "")
	require.NoError(t, err)

	modelPath := filepath.Join(profiles.ArtifactDir("fresh"), "model.bin")
	require.NoError(t, os.WriteFile(modelPath, []byte("stub"), 0o644))

	s := New(profiles, classifier.NewCache(), discardLogger())
	s.nowFn = func() time.Time { return time.Now() }
	should, err := s.shouldTrain(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, should, "freshly trained model within retrain interval should not retrain")
}
