// Package config implements A2's process-level settings: gateway.yaml,
// the bind address, profile base directory, default upstream timeout,
// and log level the server needs before it can even open a listening
// socket. Loader is YAML-primary with a JSON fallback, and the loaded
// Config is held in an atomic.Value so it can be hot-swapped without
// locking readers.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort              = 8787
	DefaultHost              = "127.0.0.1"
	DefaultConfigFilename    = "gateway.yaml"
	DefaultJSONFilename      = "gateway.json"
	DefaultProfileBaseDir    = "profiles"
	DefaultUpstreamTimeoutMS = 60000
	DefaultLogLevel          = "info"
)

// Config is GuardianBridge's process-level configuration, i.e.
// gateway.yaml: everything the server needs to bind and to locate
// profile data, independent of any single request's URL config object.
type Config struct {
	Host              string `yaml:"host,omitempty" json:"host,omitempty"`
	Port              int    `yaml:"port,omitempty" json:"port,omitempty"`
	ProfileBaseDir    string `yaml:"profile_base_dir,omitempty" json:"profile_base_dir,omitempty"`
	UpstreamTimeoutMS int    `yaml:"upstream_timeout_ms,omitempty" json:"upstream_timeout_ms,omitempty"`
	LogLevel          string `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// Manager loads, hot-swaps, and persists the process config.
type Manager struct {
	baseDir  string
	yamlPath string
	jsonPath string

	configValue atomic.Value
}

// NewManager returns a Manager rooted at baseDir, where gateway.yaml/
// gateway.json are expected to live.
func NewManager(baseDir string) *Manager {
	return &Manager{
		baseDir:  baseDir,
		yamlPath: filepath.Join(baseDir, DefaultConfigFilename),
		jsonPath: filepath.Join(baseDir, DefaultJSONFilename),
	}
}

func defaults() Config {
	return Config{
		Host:              DefaultHost,
		Port:              DefaultPort,
		ProfileBaseDir:    DefaultProfileBaseDir,
		UpstreamTimeoutMS: DefaultUpstreamTimeoutMS,
		LogLevel:          DefaultLogLevel,
	}
}

// Load reads gateway.yaml (preferred) or gateway.json, applies defaults
// for any unset field, and stores the result for Get. If neither file
// exists, Load returns and stores an all-defaults Config rather than
// failing — GuardianBridge has no required startup credential, so an
// absent config file is not an error.
func (m *Manager) Load() (*Config, error) {
	cfg := defaults()

	switch {
	case fileExists(m.yamlPath):
		loaded, err := m.loadYAML()
		if err != nil {
			return nil, fmt.Errorf("load YAML config: %w", err)
		}
		mergeDefaults(&loaded, cfg)
		cfg = loaded
	case fileExists(m.jsonPath):
		loaded, err := m.loadJSON()
		if err != nil {
			return nil, fmt.Errorf("load JSON config: %w", err)
		}
		mergeDefaults(&loaded, cfg)
		cfg = loaded
	}

	m.configValue.Store(&cfg)
	return &cfg, nil
}

func (m *Manager) loadYAML() (Config, error) {
	var cfg Config
	data, err := os.ReadFile(m.yamlPath)
	if err != nil {
		return cfg, fmt.Errorf("read YAML config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal YAML config: %w", err)
	}
	return cfg, nil
}

func (m *Manager) loadJSON() (Config, error) {
	var cfg Config
	data, err := os.ReadFile(m.jsonPath)
	if err != nil {
		return cfg, fmt.Errorf("read JSON config file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal JSON config: %w", err)
	}
	return cfg, nil
}

// mergeDefaults fills zero-valued fields in cfg from fallback.
func mergeDefaults(cfg *Config, fallback Config) {
	if cfg.Host == "" {
		cfg.Host = fallback.Host
	}
	if cfg.Port == 0 {
		cfg.Port = fallback.Port
	}
	if cfg.ProfileBaseDir == "" {
		cfg.ProfileBaseDir = fallback.ProfileBaseDir
	}
	if cfg.UpstreamTimeoutMS == 0 {
		cfg.UpstreamTimeoutMS = fallback.UpstreamTimeoutMS
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = fallback.LogLevel
	}
}

// Get returns the currently loaded config, loading it on first use.
func (m *Manager) Get() *Config {
	if v := m.configValue.Load(); v != nil {
		return v.(*Config)
	}
	cfg, err := m.Load()
	if err != nil {
		d := defaults()
		return &d
	}
	return cfg
}

// Save writes cfg as gateway.yaml and hot-swaps the in-memory value.
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.baseDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal YAML config: %w", err)
	}
	if err := os.WriteFile(m.yamlPath, data, 0o644); err != nil {
		return fmt.Errorf("write YAML config file: %w", err)
	}
	m.configValue.Store(cfg)
	return nil
}

// GetYAMLPath returns the gateway.yaml path under baseDir.
func (m *Manager) GetYAMLPath() string { return m.yamlPath }

// Exists reports whether either config file is present.
func (m *Manager) Exists() bool {
	return fileExists(m.yamlPath) || fileExists(m.jsonPath)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
