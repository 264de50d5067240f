package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/Rorical/c60chat/internal/completion"
	"github.com/Rorical/c60chat/internal/config"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage API profiles",
	Long:  `Manage API profiles for different providers and models.`,
}

var listProfilesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Active Profile: %s\n\n", cfg.ActiveProfile)
		fmt.Println("Available Profiles:")
		for _, name := range profileNames(cfg, "") {
			profile := cfg.Profiles[name]
			marker := ""
			if name == cfg.ActiveProfile {
				marker = " (active)"
			}
			fmt.Printf("  %s%s\n", name, marker)
			fmt.Printf("    Provider: %s\n", providerOf(profile))
			fmt.Printf("    Model: %s\n", profile.Model)
			if profile.BaseURL != "" {
				fmt.Printf("    Base URL: %s\n", profile.BaseURL)
			}
			hasKey := "No"
			if profile.APIKey != "" {
				hasKey = "Yes"
			}
			fmt.Printf("    API Key: %s\n", hasKey)
			fmt.Println()
		}
		return nil
	},
}

var showProfileCmd = &cobra.Command{
	Use:   "show [profile-name]",
	Short: "Show profile details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		profileName := args[0]
		profile, exists := cfg.Profiles[profileName]
		if !exists {
			return fmt.Errorf("profile '%s' does not exist", profileName)
		}

		fmt.Printf("Profile: %s\n", profileName)
		fmt.Printf("Provider: %s\n", providerOf(profile))
		fmt.Printf("Model: %s\n", profile.Model)
		fmt.Printf("Base URL: %s\n", profile.BaseURL)
		fmt.Printf("Temperature: %g\n", profile.Temperature)
		fmt.Printf("Top P: %g\n", profile.TopP)
		hasKey := "Not set"
		if profile.APIKey != "" {
			hasKey = "Set (hidden for security)"
		}
		fmt.Printf("API Key: %s\n", hasKey)
		return nil
	},
}

var addProfileCmd = &cobra.Command{
	Use:   "add [profile-name]",
	Short: "Add a new profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			prompt := promptui.Prompt{
				Label:    "Profile name",
				Validate: notEmpty,
			}
			profileName, err = prompt.Run()
			if err != nil {
				return fmt.Errorf("prompt failed: %w", err)
			}
		}

		if _, exists := cfg.Profiles[profileName]; exists {
			return fmt.Errorf("profile '%s' already exists", profileName)
		}

		profile, err := promptProfile(config.DefaultProfile(), true)
		if err != nil {
			return err
		}
		cfg.Profiles[profileName] = profile

		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("Profile '%s' added successfully!\n", profileName)
		return nil
	},
}

var editProfileCmd = &cobra.Command{
	Use:   "edit [profile-name]",
	Short: "Edit an existing profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		profileName, err := pickProfile(cfg, args, "Select profile to edit", "")
		if err != nil {
			return err
		}
		profile, exists := cfg.Profiles[profileName]
		if !exists {
			return fmt.Errorf("profile '%s' does not exist", profileName)
		}

		profile, err = promptProfile(profile, false)
		if err != nil {
			return err
		}
		cfg.Profiles[profileName] = profile

		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("Profile '%s' updated successfully!\n", profileName)
		return nil
	},
}

var deleteProfileCmd = &cobra.Command{
	Use:   "delete [profile-name]",
	Short: "Delete a profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		profileName, err := pickProfile(cfg, args, "Select profile to delete", "")
		if err != nil {
			return err
		}
		if _, exists := cfg.Profiles[profileName]; !exists {
			return fmt.Errorf("profile '%s' does not exist", profileName)
		}

		// Confirm deletion
		confirmPrompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete profile '%s'", profileName),
			IsConfirm: true,
		}
		if _, err := confirmPrompt.Run(); err != nil {
			fmt.Println("Deletion cancelled")
			return nil
		}

		removeProfile(cfg, profileName)

		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("Profile '%s' deleted successfully!\n", profileName)
		return nil
	},
}

var switchProfileCmd = &cobra.Command{
	Use:   "switch [profile-name]",
	Short: "Switch to a different profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(args) == 0 && len(profileNames(cfg, cfg.ActiveProfile)) == 0 {
			fmt.Println("No other profiles available to switch to")
			return nil
		}
		profileName, err := pickProfile(cfg, args, "Select profile to switch to", cfg.ActiveProfile)
		if err != nil {
			return err
		}
		if err := switchProfile(profileName); err != nil {
			return err
		}
		fmt.Printf("Switched to profile '%s'\n", profileName)
		return nil
	},
}

// switchProfile makes name the saved active profile.
func switchProfile(name string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Use(name); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// removeProfile deletes name, handing the active slot to another profile or
// to a fresh default when it was the last one.
func removeProfile(cfg *config.Config, name string) {
	delete(cfg.Profiles, name)
	if cfg.ActiveProfile != name {
		return
	}
	if rest := profileNames(cfg, ""); len(rest) > 0 {
		cfg.ActiveProfile = rest[0]
		return
	}
	cfg.ActiveProfile = "default"
	cfg.Profiles["default"] = config.DefaultProfile()
}

// profileNames lists profiles in name order, leaving out skip.
func profileNames(cfg *config.Config, skip string) []string {
	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		if name != skip {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func pickProfile(cfg *config.Config, args []string, label, skip string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	names := profileNames(cfg, skip)
	if len(names) == 0 {
		return "", errors.New("no profiles available")
	}
	prompt := promptui.Select{
		Label: label,
		Items: names,
	}
	_, name, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("selection failed: %w", err)
	}
	return name, nil
}

// promptProfile asks for every profile field, offering p's values as defaults.
func promptProfile(p config.Profile, fresh bool) (config.Profile, error) {
	providers := []string{completion.ProviderGemini, completion.ProviderOpenAI}
	cursor := 0
	if providerOf(p) == completion.ProviderOpenAI {
		cursor = 1
	}
	providerPrompt := promptui.Select{
		Label:     "Provider",
		Items:     providers,
		CursorPos: cursor,
	}
	_, provider, err := providerPrompt.Run()
	if err != nil {
		return p, fmt.Errorf("selection failed: %w", err)
	}
	if fresh && provider == completion.ProviderOpenAI && p.Model == config.DefaultModel {
		p.Model = "gpt-4o-mini"
	}
	p.Provider = provider

	apiKeyPrompt := promptui.Prompt{
		Label:   "API Key (blank to use the environment)",
		Default: p.APIKey,
		Mask:    '*',
	}
	if p.APIKey, err = apiKeyPrompt.Run(); err != nil {
		return p, fmt.Errorf("prompt failed: %w", err)
	}

	modelPrompt := promptui.Prompt{
		Label:    "Model",
		Default:  p.Model,
		Validate: notEmpty,
	}
	if p.Model, err = modelPrompt.Run(); err != nil {
		return p, fmt.Errorf("prompt failed: %w", err)
	}

	baseURLPrompt := promptui.Prompt{
		Label:   "Base URL (optional)",
		Default: p.BaseURL,
	}
	if p.BaseURL, err = baseURLPrompt.Run(); err != nil {
		return p, fmt.Errorf("prompt failed: %w", err)
	}

	if p.Temperature, err = promptFloat("Temperature", p.Temperature); err != nil {
		return p, err
	}
	if p.TopP, err = promptFloat("Top P", p.TopP); err != nil {
		return p, err
	}
	return p, nil
}

func promptFloat(label string, current float32) (float32, error) {
	prompt := promptui.Prompt{
		Label:   label + " (0 for provider default)",
		Default: strconv.FormatFloat(float64(current), 'g', -1, 32),
		Validate: func(s string) error {
			_, err := strconv.ParseFloat(s, 32)
			return err
		},
	}
	s, err := prompt.Run()
	if err != nil {
		return current, fmt.Errorf("prompt failed: %w", err)
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return current, err
	}
	return float32(v), nil
}

func notEmpty(s string) error {
	if s == "" {
		return errors.New("value required")
	}
	return nil
}

func providerOf(p config.Profile) string {
	if p.Provider == "" {
		return completion.ProviderGemini
	}
	return p.Provider
}

func init() {
	// Add subcommands to profile
	profileCmd.AddCommand(listProfilesCmd)
	profileCmd.AddCommand(showProfileCmd)
	profileCmd.AddCommand(addProfileCmd)
	profileCmd.AddCommand(editProfileCmd)
	profileCmd.AddCommand(deleteProfileCmd)
	profileCmd.AddCommand(switchProfileCmd)
}
