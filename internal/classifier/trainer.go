// Package classifier implements C6: the TF-IDF + online logistic
// regression smart-moderation model, trained incrementally over a
// profile's sample history.
package classifier

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/guardianbridge/gbridge/internal/samplestore"
)

// TrainConfig holds one training run's parameters, sourced from a
// profile's bow_training settings (per §6).
type TrainConfig struct {
	MinSamples   int
	MaxSamples   int
	MaxFeatures  int
	BatchSize    int
	MaxSeconds   time.Duration
	UseCharNgram bool
	UseBPE       bool
	UseWordNgram bool
	WordNgramMin int
	WordNgramMax int
}

func (cfg TrainConfig) tokenizeOptions() TokenizeOptions {
	return TokenizeOptions{
		CharNgram:    cfg.UseCharNgram,
		BPE:          cfg.UseBPE,
		WordNgram:    cfg.UseWordNgram,
		WordNgramMin: cfg.WordNgramMin,
		WordNgramMax: cfg.WordNgramMax,
	}
}

// TrainResult reports what a training run accomplished, for logging.
// Accuracy and Correlation are both computed on a held-out slice of
// samples excluded from every training batch, not the training data
// itself.
type TrainResult struct {
	Trained     bool
	SampleSize  int
	Batches     int
	Accuracy    float64
	Correlation float64
	Elapsed     time.Duration
	Reason      string // set when Trained is false
}

// holdoutFraction is the share of each shuffled training set reserved
// for post-training evaluation and never shown to a training batch.
const holdoutFraction = 10

// splitHoldout partitions shuffled samples into a training slice and a
// held-out evaluation slice, reserving roughly 1/holdoutFraction of the
// data (at least one sample, and never the whole set).
func splitHoldout(samples []samplestore.Sample) (train, holdout []samplestore.Sample) {
	n := len(samples) / holdoutFraction
	if n < 1 {
		n = 1
	}
	if n >= len(samples) {
		n = len(samples) - 1
	}
	return samples[:len(samples)-n], samples[len(samples)-n:]
}

// Train runs one full training pass for a profile's sample store: trim
// excess history, bail out below the minimum sample count, shuffle
// deterministically, hold out a tail slice for evaluation, fit the
// first training batch (freezing the vocabulary), stream the remaining
// batches under a wall-clock budget, then persist vectorizer before
// model. A single pass over shuffled data is a streaming,
// non-converging trainer per §4.5, not an iterate-to-convergence fit.
func Train(ctx context.Context, store *samplestore.Store, artifactDir string, cfg TrainConfig) (TrainResult, error) {
	start := timeNow()

	if err := store.CleanupExcessSamples(ctx, cfg.MaxSamples); err != nil {
		return TrainResult{}, fmt.Errorf("cleanup excess samples: %w", err)
	}

	total, err := store.Count(ctx)
	if err != nil {
		return TrainResult{}, fmt.Errorf("count samples: %w", err)
	}
	if total < cfg.MinSamples {
		return TrainResult{Reason: "below min_samples"}, nil
	}

	limit := total
	if cfg.MaxSamples > 0 && limit > cfg.MaxSamples {
		limit = cfg.MaxSamples
	}
	ids, err := store.IDs(ctx, limit)
	if err != nil {
		return TrainResult{}, fmt.Errorf("list sample ids: %w", err)
	}
	shuffleInt64(ids, newSplitMix64(fixedSeed))

	samples, err := store.LoadByIDs(ctx, ids)
	if err != nil {
		return TrainResult{}, fmt.Errorf("load samples: %w", err)
	}

	trainSamples, evalSamples := splitHoldout(samples)

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(trainSamples)
	}

	opts := cfg.tokenizeOptions()

	v := NewVectorizer(cfg.MaxFeatures)
	var m *Model
	batches := 0

	for offset := 0; offset < len(trainSamples); offset += batchSize {
		if cfg.MaxSeconds > 0 && offset > 0 && timeNow().Sub(start) > cfg.MaxSeconds {
			break
		}

		end := offset + batchSize
		if end > len(trainSamples) {
			end = len(trainSamples)
		}
		batch := trainSamples[offset:end]

		docs := make([]string, len(batch))
		labels := make([]int, len(batch))
		for i, s := range batch {
			docs[i] = Tokenize(s.Text, opts)
			labels[i] = s.Label
		}

		var X [][]float64
		if !v.Fitted() {
			X = v.Fit(docs)
			m = NewModel(len(v.Vocabulary))
		} else {
			X = v.Transform(docs)
		}
		m.PartialFit(X, labels)
		batches++
	}

	if m == nil {
		return TrainResult{Reason: "no batches trained"}, nil
	}

	if err := SaveArtifacts(artifactDir, v, m); err != nil {
		return TrainResult{}, fmt.Errorf("persist artifacts: %w", err)
	}

	accuracy, correlation := evaluateHoldout(v, m, evalSamples, opts)

	return TrainResult{
		Trained:     true,
		SampleSize:  len(samples),
		Batches:     batches,
		Accuracy:    accuracy,
		Correlation: correlation,
		Elapsed:     timeNow().Sub(start),
	}, nil
}

// evaluateHoldout scores the trained model against samples no training
// batch saw, reporting accuracy and the predicted/actual correlation as
// a secondary quality signal logged alongside every training event.
func evaluateHoldout(v *Vectorizer, m *Model, samples []samplestore.Sample, opts TokenizeOptions) (accuracy, correlation float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	var correct int
	predicted := make([]float64, len(samples))
	actual := make([]float64, len(samples))
	for i, s := range samples {
		x := v.Transform([]string{Tokenize(s.Text, opts)})[0]
		p := m.PredictProba(x)
		predicted[i] = p
		actual[i] = float64(s.Label)
		pred := 0
		if p >= 0.5 {
			pred = 1
		}
		if pred == s.Label {
			correct++
		}
	}
	accuracy = float64(correct) / float64(len(samples))
	if len(samples) > 1 {
		correlation = stat.Correlation(predicted, actual, nil)
	}
	return accuracy, correlation
}

func shuffleInt64(ids []int64, rng *splitMix64) {
	for i := len(ids) - 1; i > 0; i-- {
		j := int(rng.next() % uint64(i+1))
		ids[i], ids[j] = ids[j], ids[i]
	}
}

// timeNow is the package's sole wall-clock read, isolated so tests can
// substitute a fake clock if elapsed-time behavior ever needs exercising
// deterministically.
var timeNow = time.Now
