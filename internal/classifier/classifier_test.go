package classifier

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardianbridge/gbridge/internal/samplestore"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, "hello world", Tokenize("Hello, world!", TokenizeOptions{}))
	assert.Equal(t, "", Tokenize("...", TokenizeOptions{}))
}

func TestTokenizeCharNgrams(t *testing.T) {
	out := Tokenize("ab", TokenizeOptions{CharNgram: true})
	assert.Contains(t, out, "ab")
}

func TestTokenizeBPEChannel(t *testing.T) {
	out := Tokenize("hello world", TokenizeOptions{BPE: true})
	assert.Contains(t, out, "bpe#")
}

func TestTokenizeWordNgrams(t *testing.T) {
	out := Tokenize("buy cheap pills", TokenizeOptions{WordNgram: true, WordNgramMin: 2, WordNgramMax: 2})
	fields := strings.Fields(out)
	assert.Contains(t, fields, "buy")
	assert.Contains(t, fields, "buy_cheap")
	assert.Contains(t, fields, "cheap_pills")
	assert.NotContains(t, fields, "buy_cheap_pills")
}

func TestTokenizeWordNgramsRange(t *testing.T) {
	out := Tokenize("buy cheap pills now", TokenizeOptions{WordNgram: true, WordNgramMin: 2, WordNgramMax: 3})
	fields := strings.Fields(out)
	assert.Contains(t, fields, "buy_cheap")
	assert.Contains(t, fields, "buy_cheap_pills")
	assert.Contains(t, fields, "cheap_pills_now")
}

func TestVectorizerFitTransform(t *testing.T) {
	v := NewVectorizer(100)
	v.MinDF = 1
	docs := []string{"buy cheap pills now", "hello friend how are you", "cheap pills for sale"}
	vecs := v.Fit(docs)
	require.Len(t, vecs, 3)
	assert.True(t, v.Fitted())
	assert.Greater(t, len(v.Vocabulary), 0)

	transformed := v.Transform([]string{"cheap pills"})
	require.Len(t, transformed, 1)
	assert.Len(t, transformed[0], len(v.Vocabulary))
}

func TestModelPartialFitLearnsSeparableClasses(t *testing.T) {
	v := NewVectorizer(50)
	v.MinDF = 1
	docs := []string{"spam spam spam", "spam buy now", "hello friend", "nice to meet you"}
	labels := []int{1, 1, 0, 0}
	X := v.Fit(docs)

	m := NewModel(len(v.Vocabulary))
	for i := 0; i < 200; i++ {
		m.PartialFit(X, labels)
	}

	spamVec := v.Transform([]string{"spam buy"})[0]
	hamVec := v.Transform([]string{"hello friend"})[0]
	assert.Greater(t, m.PredictProba(spamVec), m.PredictProba(hamVec))
}

func TestSaveLoadArtifactsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	v := NewVectorizer(10)
	v.MinDF = 1
	docs := []string{"spam offer", "hello there"}
	X := v.Fit(docs)
	m := NewModel(len(v.Vocabulary))
	m.PartialFit(X, []int{1, 0})

	require.NoError(t, SaveArtifacts(dir, v, m))
	assert.True(t, ArtifactsExist(dir))

	v2, m2, err := LoadArtifacts(dir)
	require.NoError(t, err)
	assert.Equal(t, v.Vocabulary, v2.Vocabulary)
	assert.Equal(t, m.Weights, m2.Weights)
}

func TestCacheGetServesPersistedArtifacts(t *testing.T) {
	dir := t.TempDir()
	v := NewVectorizer(10)
	v.MinDF = 1
	X := v.Fit([]string{"spam", "ham"})
	m := NewModel(len(v.Vocabulary))
	m.PartialFit(X, []int{1, 0})
	require.NoError(t, SaveArtifacts(dir, v, m))

	c := NewCache()
	loaded, ok := c.Get(dir)
	require.True(t, ok)
	require.NotNil(t, loaded)

	_, ok = c.Get(dir)
	assert.True(t, ok)
}

func TestTrainBelowMinSamplesNoOp(t *testing.T) {
	dbPath := t.TempDir() + "/history.db"
	store, err := samplestore.Open(dbPath)
	require.NoError(t, err)
	defer samplestore.CloseAll()

	ctx := context.Background()
	_, err = store.Save(ctx, "only one sample", 0, "")
	require.NoError(t, err)

	result, err := Train(ctx, store, t.TempDir(), TrainConfig{MinSamples: 10, MaxSamples: 1000, MaxFeatures: 50, BatchSize: 5})
	require.NoError(t, err)
	assert.False(t, result.Trained)
	assert.Equal(t, "below min_samples", result.Reason)
}

func TestTrainProducesArtifacts(t *testing.T) {
	dbPath := t.TempDir() + "/history.db"
	store, err := samplestore.Open(dbPath)
	require.NoError(t, err)
	defer samplestore.CloseAll()

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		_, err := store.Save(ctx, "buy cheap pills now limited offer", 1, "spam")
		require.NoError(t, err)
	}
	for i := 0; i < 6; i++ {
		_, err := store.Save(ctx, "hello friend how is your day going", 0, "")
		require.NoError(t, err)
	}

	artifactDir := t.TempDir()
	result, err := Train(ctx, store, artifactDir, TrainConfig{
		MinSamples: 5, MaxSamples: 1000, MaxFeatures: 200, BatchSize: 4,
	})
	require.NoError(t, err)
	assert.True(t, result.Trained)
	assert.True(t, ArtifactsExist(artifactDir))
}

func TestSplitHoldoutReservesATenthForEvaluation(t *testing.T) {
	samples := make([]samplestore.Sample, 20)
	train, holdout := splitHoldout(samples)
	assert.Len(t, holdout, 2)
	assert.Len(t, train, 18)
}

func TestSplitHoldoutAlwaysReservesAtLeastOneSample(t *testing.T) {
	samples := make([]samplestore.Sample, 3)
	train, holdout := splitHoldout(samples)
	assert.Len(t, holdout, 1)
	assert.Len(t, train, 2)
}

// TestEvaluateHoldoutScoresUnseenSamples checks that accuracy/correlation
// are computed against samples the vectorizer/model were never fit on,
// not the data training itself ran over.
func TestEvaluateHoldoutScoresUnseenSamples(t *testing.T) {
	v := NewVectorizer(50)
	v.MinDF = 1
	X := v.Fit([]string{"spam spam spam", "hello friend"})
	m := NewModel(len(v.Vocabulary))
	for i := 0; i < 50; i++ {
		m.PartialFit(X, []int{1, 0})
	}

	holdout := []samplestore.Sample{
		{Text: "spam spam spam", Label: 1},
		{Text: "totally unseen phrase never fit", Label: 0},
	}
	accuracy, correlation := evaluateHoldout(v, m, holdout, TokenizeOptions{})
	assert.GreaterOrEqual(t, accuracy, 0.0)
	assert.LessOrEqual(t, accuracy, 1.0)
	assert.GreaterOrEqual(t, correlation, -1.0)
	assert.LessOrEqual(t, correlation, 1.0)

	accuracy, correlation = evaluateHoldout(v, m, nil, TokenizeOptions{})
	assert.Equal(t, 0.0, accuracy)
	assert.Equal(t, 0.0, correlation)
}

func TestTrainReportsSampleSizeAndAccuracy(t *testing.T) {
	dbPath := t.TempDir() + "/history.db"
	store, err := samplestore.Open(dbPath)
	require.NoError(t, err)
	defer samplestore.CloseAll()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := store.Save(ctx, "buy cheap pills now limited offer", 1, "spam")
		require.NoError(t, err)
	}
	for i := 0; i < 10; i++ {
		_, err := store.Save(ctx, "hello friend how is your day going", 0, "")
		require.NoError(t, err)
	}

	result, err := Train(ctx, store, t.TempDir(), TrainConfig{
		MinSamples: 5, MaxSamples: 1000, MaxFeatures: 200, BatchSize: 100,
	})
	require.NoError(t, err)
	require.True(t, result.Trained)
	// 20 samples shuffled deterministically hold out 2; SampleSize still
	// reports the full set trained-plus-evaluated over.
	assert.Equal(t, 20, result.SampleSize)
	assert.GreaterOrEqual(t, result.Accuracy, 0.0)
	assert.LessOrEqual(t, result.Accuracy, 1.0)
}
