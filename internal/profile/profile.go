// Package profile manages the on-disk layout and persisted settings for
// one moderation profile: <base>/<name>/{profile.yaml,history.db,
// vectorizer.bin,model.bin}, per §6. profile.yaml is used in place of a
// profile.json so every persisted document shares one marshal format
// with gateway.yaml (A2).
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// BasicModeration holds a profile's keyword-tier settings as stored in
// profile.yaml. The moderation engine does not read them: at request
// time the keyword tier takes enabled, keywords_file and error_code
// from the URL config object (per §6) only.
type BasicModeration struct {
	Enabled      bool   `yaml:"enabled"`
	KeywordsFile string `yaml:"keywords_file"`
	ErrorCode    string `yaml:"error_code"`
}

// SmartModeration holds the classifier-tier thresholds for a profile.
type SmartModeration struct {
	Enabled       bool    `yaml:"enabled"`
	LowThreshold  float64 `yaml:"low_threshold"`
	HighThreshold float64 `yaml:"high_threshold"`
	SampleLog     bool    `yaml:"sample_log"`
}

// BowTraining holds the §4.5 training parameters for a profile.
type BowTraining struct {
	MinSamples             int  `yaml:"min_samples"`
	MaxSamples             int  `yaml:"max_samples"`
	MaxFeatures            int  `yaml:"max_features"`
	BatchSize              int  `yaml:"batch_size"`
	MaxSeconds             int  `yaml:"max_seconds"`
	RetrainIntervalMinutes int  `yaml:"retrain_interval_minutes"`
	UseCharNgram           bool `yaml:"use_char_ngram"`
	UseBPE                 bool `yaml:"use_bpe"`
	UseWordNgram           bool `yaml:"use_word_ngram"`
	WordNgramMin           int  `yaml:"word_ngram_min"`
	WordNgramMax           int  `yaml:"word_ngram_max"`
}

// Config is one profile's persisted profile.yaml.
type Config struct {
	Name            string          `yaml:"-"`
	BasicModeration BasicModeration `yaml:"basic_moderation"`
	SmartModeration SmartModeration `yaml:"smart_moderation"`
	BowTraining     BowTraining     `yaml:"bow_training"`
}

// Defaults returns a profile's out-of-the-box settings.
func Defaults(name string) Config {
	return Config{
		Name: name,
		BasicModeration: BasicModeration{
			Enabled:   true,
			ErrorCode: "BASIC_MODERATION_BLOCKED",
		},
		SmartModeration: SmartModeration{
			Enabled:       true,
			LowThreshold:  0.3,
			HighThreshold: 0.7,
			SampleLog:     true,
		},
		BowTraining: BowTraining{
			MinSamples:             50,
			MaxSamples:             5000,
			MaxFeatures:            2000,
			BatchSize:              200,
			MaxSeconds:             30,
			RetrainIntervalMinutes: 60,
			UseCharNgram:           false,
			UseWordNgram:           false,
			WordNgramMin:           1,
			WordNgramMax:           2,
		},
	}
}

// Store manages the set of profile directories under one base directory.
type Store struct {
	BaseDir string
}

// NewStore returns a Store rooted at baseDir.
func NewStore(baseDir string) *Store { return &Store{BaseDir: baseDir} }

// Dir returns <base>/<name>.
func (s *Store) Dir(name string) string { return filepath.Join(s.BaseDir, name) }

func (s *Store) configPath(name string) string { return filepath.Join(s.Dir(name), "profile.yaml") }

// HistoryDBPath returns the sample-store path for name.
func (s *Store) HistoryDBPath(name string) string { return filepath.Join(s.Dir(name), "history.db") }

// ArtifactDir returns the directory holding vectorizer.bin/model.bin
// for name (same as Dir; kept distinct for callers that only need
// artifacts).
func (s *Store) ArtifactDir(name string) string { return s.Dir(name) }

// Load reads <base>/<name>/profile.yaml, creating it with defaults if
// absent so a freshly named profile is immediately usable.
func (s *Store) Load(name string) (Config, error) {
	path := s.configPath(name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Defaults(name)
		if err := s.Save(cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read profile %s: %w", name, err)
	}

	cfg := Defaults(name)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse profile %s: %w", name, err)
	}
	cfg.Name = name
	return cfg, nil
}

// Save writes cfg to <base>/<name>/profile.yaml, creating the profile
// directory if needed.
func (s *Store) Save(cfg Config) error {
	dir := s.Dir(cfg.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create profile dir %s: %w", cfg.Name, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal profile %s: %w", cfg.Name, err)
	}
	return os.WriteFile(s.configPath(cfg.Name), data, 0o644)
}

// List returns the names of every profile directory under BaseDir that
// contains a profile.yaml, for the training scheduler (C7) to enumerate.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.BaseDir, e.Name(), "profile.yaml")); err == nil {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// RetrainInterval returns cfg's retrain interval as a time.Duration.
func (cfg Config) RetrainInterval() time.Duration {
	return time.Duration(cfg.BowTraining.RetrainIntervalMinutes) * time.Minute
}

// MaxTrainSeconds returns cfg's training wall-clock budget as a
// time.Duration.
func (cfg Config) MaxTrainSeconds() time.Duration {
	return time.Duration(cfg.BowTraining.MaxSeconds) * time.Second
}
