package moderation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardianbridge/gbridge/internal/classifier"
	"github.com/guardianbridge/gbridge/internal/keywordfilter"
	"github.com/guardianbridge/gbridge/internal/profile"
	"github.com/guardianbridge/gbridge/internal/samplestore"
)

func TestEngineKeywordBlock(t *testing.T) {
	dir := t.TempDir()
	kwPath := filepath.Join(dir, "keywords.txt")
	require.NoError(t, os.WriteFile(kwPath, []byte("forbidden\n# a comment\n"), 0o644))

	e := NewEngine(profile.NewStore(t.TempDir()), keywordfilter.NewCache(), classifier.NewCache())
	decision, err := e.Moderate(context.Background(), Request{
		Text: "this is Forbidden stuff", BasicEnabled: true, KeywordsFile: kwPath,
	})
	require.NoError(t, err)
	assert.True(t, decision.Blocked)
	assert.Equal(t, "BASIC_MODERATION_BLOCKED", decision.ErrorCode)
	assert.Contains(t, decision.Reason, "forbidden")
	assert.Equal(t, SourceKeyword, decision.Source)
}

func TestEngineNoMatchPasses(t *testing.T) {
	dir := t.TempDir()
	kwPath := filepath.Join(dir, "keywords.txt")
	require.NoError(t, os.WriteFile(kwPath, []byte("forbidden\n"), 0o644))

	e := NewEngine(profile.NewStore(t.TempDir()), keywordfilter.NewCache(), classifier.NewCache())
	decision, err := e.Moderate(context.Background(), Request{
		Text: "perfectly fine text", BasicEnabled: true, KeywordsFile: kwPath,
	})
	require.NoError(t, err)
	assert.False(t, decision.Blocked)
}

func TestEngineSmartModerationNoArtifactsPasses(t *testing.T) {
	base := t.TempDir()
	e := NewEngine(profile.NewStore(base), keywordfilter.NewCache(), classifier.NewCache())
	decision, err := e.Moderate(context.Background(), Request{
		Text: "hello there", SmartEnabled: true, ProfileName: "default",
	})
	require.NoError(t, err)
	assert.False(t, decision.Blocked)
	assert.Equal(t, SourceBow, decision.Source)
}

func TestEngineSmartModerationBlocksAboveHighThreshold(t *testing.T) {
	base := t.TempDir()
	store := profile.NewStore(base)
	cfg := profile.Defaults("default")
	cfg.SmartModeration.LowThreshold = 0.3
	cfg.SmartModeration.HighThreshold = 0.5
	require.NoError(t, store.Save(cfg))

	v := classifier.NewVectorizer(50)
	v.MinDF = 1
	docs := []string{"buy cheap pills now", "limited offer buy now", "hello friend", "nice weather today"}
	X := v.Fit(docs)
	m := classifier.NewModel(len(v.Vocabulary))
	for i := 0; i < 300; i++ {
		m.PartialFit(X, []int{1, 1, 0, 0})
	}
	require.NoError(t, classifier.SaveArtifacts(store.ArtifactDir("default"), v, m))

	defer samplestore.CloseAll()
	e := NewEngine(store, keywordfilter.NewCache(), classifier.NewCache())
	decision, err := e.Moderate(context.Background(), Request{
		Text: "buy cheap pills now", SmartEnabled: true, ProfileName: "default",
	})
	require.NoError(t, err)
	assert.True(t, decision.Blocked)
	assert.Equal(t, "SMART_MODERATION_BLOCKED", decision.ErrorCode)
}
