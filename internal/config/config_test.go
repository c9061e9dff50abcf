package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_LoadAndSave(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	cfg := &Config{
		Host:              "0.0.0.0",
		Port:              9000,
		ProfileBaseDir:    "data/profiles",
		UpstreamTimeoutMS: 45000,
		LogLevel:          "debug",
	}

	err := manager.Save(cfg)
	require.NoError(t, err, "should be able to save config")
	assert.True(t, manager.Exists(), "config file should exist after saving")

	loadedCfg, err := manager.Load()
	require.NoError(t, err, "should be able to load config")

	assert.Equal(t, cfg.Host, loadedCfg.Host)
	assert.Equal(t, cfg.Port, loadedCfg.Port)
	assert.Equal(t, cfg.ProfileBaseDir, loadedCfg.ProfileBaseDir)
	assert.Equal(t, cfg.UpstreamTimeoutMS, loadedCfg.UpstreamTimeoutMS)
	assert.Equal(t, cfg.LogLevel, loadedCfg.LogLevel)
}

func TestConfig_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	cfg := &Config{Host: "10.0.0.1"}

	err := manager.Save(cfg)
	require.NoError(t, err)

	loadedCfg, err := manager.Load()
	require.NoError(t, err, "should be able to load config")

	assert.Equal(t, "10.0.0.1", loadedCfg.Host, "explicit host should be preserved")
	assert.Equal(t, DefaultPort, loadedCfg.Port, "should apply default port")
	assert.Equal(t, DefaultProfileBaseDir, loadedCfg.ProfileBaseDir, "should apply default profile dir")
}

func TestConfig_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	configPath := filepath.Join(tmpDir, DefaultConfigFilename)
	require.NoError(t, os.WriteFile(configPath, []byte(": not valid yaml :::"), 0o644))

	_, err := manager.Load()
	assert.Error(t, err, "should get error when loading invalid YAML")
}

func TestConfig_MissingFileReturnsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	cfg, err := manager.Load()
	require.NoError(t, err, "missing config file is not an error")
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.False(t, manager.Exists())
}

func TestConfig_GetWithoutLoad(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	cfg := manager.Get()
	assert.NotNil(t, cfg, "should not return nil config")
	assert.Equal(t, DefaultPort, cfg.Port, "should return default port")
	assert.Equal(t, DefaultHost, cfg.Host, "should return default host")
}
