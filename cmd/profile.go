package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage moderation profiles",
	Long:  `List, inspect, and initialize named moderation profiles (profile.yaml per profile directory).`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured profiles",
	RunE:  runProfileList,
}

var profileInitCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Create a profile with default settings",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileInit,
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a profile's settings",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileShow,
}

func init() {
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileInitCmd)
	profileCmd.AddCommand(profileShowCmd)
}

func runProfileList(cmd *cobra.Command, _ []string) error {
	names, err := profileStore().List()
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	if len(names) == 0 {
		color.Yellow("no profiles configured yet. Run 'gbridge profile init <name>' to create one.")
		return nil
	}
	color.Blue("Profiles:")
	for _, n := range names {
		fmt.Printf("  - %s\n", n)
	}
	return nil
}

func runProfileInit(cmd *cobra.Command, args []string) error {
	name := args[0]
	if name == "" {
		return errors.New("profile name is required")
	}

	store := profileStore()
	if _, err := store.Load(name); err != nil {
		return fmt.Errorf("initialize profile %s: %w", name, err)
	}

	color.Green("profile %q created at %s", name, store.Dir(name))
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	name := args[0]
	cfg, err := profileStore().Load(name)
	if err != nil {
		return fmt.Errorf("load profile %s: %w", name, err)
	}

	color.Blue("Profile %q:", name)
	fmt.Printf("  basic_moderation.enabled  : %v\n", cfg.BasicModeration.Enabled)
	fmt.Printf("  basic_moderation.keywords : %s\n", cfg.BasicModeration.KeywordsFile)
	fmt.Printf("  smart_moderation.enabled  : %v\n", cfg.SmartModeration.Enabled)
	fmt.Printf("  smart_moderation.low      : %.2f\n", cfg.SmartModeration.LowThreshold)
	fmt.Printf("  smart_moderation.high     : %.2f\n", cfg.SmartModeration.HighThreshold)
	fmt.Printf("  bow_training.min_samples  : %d\n", cfg.BowTraining.MinSamples)
	fmt.Printf("  bow_training.max_samples  : %d\n", cfg.BowTraining.MaxSamples)
	fmt.Printf("  bow_training.retrain_mins : %d\n", cfg.BowTraining.RetrainIntervalMinutes)
	return nil
}
