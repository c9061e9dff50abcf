package cmd

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/guardianbridge/gbridge/internal/config"
	"github.com/guardianbridge/gbridge/internal/profile"
)

const (
	AppName = "guardianbridge"
	Version = "0.1.0"
)

var (
	logger   *slog.Logger
	homeDir  string
	baseDir  string
	cfgMgr   *config.Manager
	profiles *profile.Store
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger = slog.New(handler)

	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		logger.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}

	baseDir = filepath.Join(homeDir, "."+AppName)
	cfgMgr = config.NewManager(baseDir)
}

var rootCmd = &cobra.Command{
	Use:     "gbridge",
	Short:   "GuardianBridge - moderated AI API gateway",
	Long:    `A reverse proxy that moderates and translates requests between AI API dialects (OpenAI, Claude, Gemini, Codex) before forwarding them upstream.`,
	Version: Version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolP("log-file", "l", false, "enable file logging")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(profileCmd)
}

func setupLogging(verbose, logFile bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	if logFile {
		color.Yellow("file logging not yet implemented, using stdout")
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	logger = slog.New(handler)
}

func profileStore() *profile.Store {
	if profiles == nil {
		cfg := cfgMgr.Get()
		base := cfg.ProfileBaseDir
		if !filepath.IsAbs(base) {
			base = filepath.Join(baseDir, base)
		}
		profiles = profile.NewStore(base)
	}
	return profiles
}
