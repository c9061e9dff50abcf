package classifier

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// vectorizerState and modelState are the gob-serializable snapshots of
// Vectorizer and Model: a runtime-native artifact format rather than a
// cross-language wire format (see DESIGN.md for why no third-party
// object-serialization library is used here).
type vectorizerState struct {
	MaxFeatures int
	MinDF       int
	MaxDF       float64
	Vocabulary  map[string]int
	IDF         []float64
}

type modelState struct {
	Weights      []float64
	Bias         float64
	LearningRate float64
	L2           float64
}

// SaveArtifacts persists vectorizer.bin then model.bin, in that order,
// via write-to-temp-then-rename so a reader never observes a model
// trained against a vocabulary it can't yet see — per §4.5's "save
// vectorizer then model" ordering requirement.
func SaveArtifacts(dir string, v *Vectorizer, m *Model) error {
	if err := atomicGobWrite(filepath.Join(dir, "vectorizer.bin"), vectorizerState{
		MaxFeatures: v.MaxFeatures, MinDF: v.MinDF, MaxDF: v.MaxDF,
		Vocabulary: v.Vocabulary, IDF: v.IDF,
	}); err != nil {
		return fmt.Errorf("save vectorizer: %w", err)
	}
	if err := atomicGobWrite(filepath.Join(dir, "model.bin"), modelState{
		Weights: m.Weights, Bias: m.Bias, LearningRate: m.LearningRate, L2: m.L2,
	}); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// LoadArtifacts reads vectorizer.bin and model.bin back into a usable
// Vectorizer/Model pair.
func LoadArtifacts(dir string) (*Vectorizer, *Model, error) {
	var vs vectorizerState
	if err := gobReadFile(filepath.Join(dir, "vectorizer.bin"), &vs); err != nil {
		return nil, nil, fmt.Errorf("load vectorizer: %w", err)
	}
	var ms modelState
	if err := gobReadFile(filepath.Join(dir, "model.bin"), &ms); err != nil {
		return nil, nil, fmt.Errorf("load model: %w", err)
	}

	v := &Vectorizer{
		MaxFeatures: vs.MaxFeatures, MinDF: vs.MinDF, MaxDF: vs.MaxDF,
		Vocabulary: vs.Vocabulary, IDF: vs.IDF, fitted: true,
	}
	m := &Model{
		Weights: ms.Weights, Bias: ms.Bias, LearningRate: ms.LearningRate, L2: ms.L2,
		rng: newSplitMix64(fixedSeed),
	}
	return v, m, nil
}

func atomicGobWrite(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func gobReadFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}

// ArtifactsExist reports whether both persisted artifacts are present.
func ArtifactsExist(dir string) bool {
	_, err1 := os.Stat(filepath.Join(dir, "vectorizer.bin"))
	_, err2 := os.Stat(filepath.Join(dir, "model.bin"))
	return err1 == nil && err2 == nil
}
