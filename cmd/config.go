package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/guardianbridge/gbridge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage gateway configuration",
	Long:  `Manage gateway.yaml, GuardianBridge's process-level configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current gateway configuration.`,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate the current gateway configuration for errors.`,
	RunE:  runConfigValidate,
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a default gateway.yaml",
	Long:  `Write a gateway.yaml populated with default values.`,
	RunE:  runConfigGenerate,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configGenerateCmd)

	configGenerateCmd.Flags().BoolP("force", "f", false, "overwrite existing configuration file")
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		color.Yellow("no configuration found. Run 'gbridge config generate' to create one.")
		return nil
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	color.Blue("Current configuration:")
	fmt.Printf("  %-20s: %s\n", "Host", cfg.Host)
	fmt.Printf("  %-20s: %d\n", "Port", cfg.Port)
	fmt.Printf("  %-20s: %s\n", "Profile base dir", cfg.ProfileBaseDir)
	fmt.Printf("  %-20s: %d\n", "Upstream timeout ms", cfg.UpstreamTimeoutMS)
	fmt.Printf("  %-20s: %s\n", "Log level", cfg.LogLevel)
	fmt.Printf("  %-20s: %s\n", "Config path", cfgMgr.GetYAMLPath())

	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		return errors.New("no configuration found")
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var validationErrors []string

	if cfg.Port <= 0 || cfg.Port > 65535 {
		validationErrors = append(validationErrors, "port must be between 1 and 65535")
	}
	if cfg.Host == "" {
		validationErrors = append(validationErrors, "host is required")
	}
	if cfg.ProfileBaseDir == "" {
		validationErrors = append(validationErrors, "profile_base_dir is required")
	}

	if len(validationErrors) > 0 {
		color.Red("configuration validation failed:")
		for _, e := range validationErrors {
			fmt.Printf("  - %s\n", e)
		}
		return errors.New("configuration validation failed")
	}

	color.Green("configuration is valid!")
	return nil
}

func runConfigGenerate(cmd *cobra.Command, _ []string) error {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if cfgMgr.Exists() && !force {
		color.Yellow("configuration file already exists: %s", cfgMgr.GetYAMLPath())
		color.Cyan("use --force to overwrite, or 'gbridge config show' to view current config")
		return nil
	}

	cfg := &config.Config{
		Host:              config.DefaultHost,
		Port:              config.DefaultPort,
		ProfileBaseDir:    config.DefaultProfileBaseDir,
		UpstreamTimeoutMS: config.DefaultUpstreamTimeoutMS,
		LogLevel:          config.DefaultLogLevel,
	}

	if err := cfgMgr.Save(cfg); err != nil {
		return fmt.Errorf("failed to create default configuration: %w", err)
	}

	color.Green("default gateway.yaml created: %s", cfgMgr.GetYAMLPath())
	color.Cyan("\nNext steps:")
	fmt.Println("1. Edit gateway.yaml to set host/port/profile_base_dir as needed")
	fmt.Println("2. Create per-route profiles with 'gbridge profile init <name>'")
	fmt.Println("3. Start the gateway with 'gbridge start'")

	return nil
}
