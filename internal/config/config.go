package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultModel       = "gemini-3-flash-preview"
	DefaultTemperature = 0.9
	DefaultTopP        = 0.95
)

type Profile struct {
	Provider    string  `json:"provider"` // "gemini" or "openai"
	APIKey      string  `json:"api_key,omitempty"`
	BaseURL     string  `json:"base_url,omitempty"`
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature,omitempty"`
	TopP        float32 `json:"top_p,omitempty"`
}

type Storage struct {
	Backend string `json:"backend"`        // "file", "sqlite" or "memory"
	Path    string `json:"path,omitempty"` // defaults to the data directory
}

type Config struct {
	Profiles      map[string]Profile `json:"profiles"`
	ActiveProfile string             `json:"active_profile"`
	Storage       Storage            `json:"storage"`
	PersonaFile   string             `json:"persona_file,omitempty"`
	LogLevel      string             `json:"log_level,omitempty"`

	currentProfile *Profile
	path           string
}

// LoadConfig reads config.json from the data directory, creating a default
// one on first run.
func LoadConfig() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadConfigFrom(configPath)
}

// LoadConfigFrom is LoadConfig with an explicit file path.
func LoadConfigFrom(configPath string) (*Config, error) {
	// Ensure config directory exists
	if err := ensureConfigDir(configPath); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Load existing config or create default
	config, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.path = configPath

	// Validate and set current profile
	if err := config.setCurrentProfile(); err != nil {
		return nil, fmt.Errorf("failed to set current profile: %w", err)
	}

	return config, nil
}

// DataDir is where config, logs and the file/sqlite stores live.
func DataDir() (string, error) {
	// Use C60_HOME if set, otherwise ~/.c60
	if home := os.Getenv("C60_HOME"); home != "" {
		return home, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".c60"), nil
}

func (c *Config) Dir() string {
	return filepath.Dir(c.path)
}

// Use switches the active profile for this process without saving.
func (c *Config) Use(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("profile '%s' does not exist", name)
	}
	c.ActiveProfile = name
	return c.setCurrentProfile()
}

func (c *Config) Profile() Profile {
	if c.currentProfile == nil {
		return DefaultProfile()
	}
	p := *c.currentProfile
	if p.Provider == "" {
		p.Provider = "gemini"
	}
	if p.Model == "" {
		p.Model = DefaultModel
	}
	return p
}

// GetAPIKey prefers the process environment over the stored profile key.
// An empty result is not an error here; requests fail when they need it.
func (c *Config) GetAPIKey() string {
	p := c.Profile()
	if key := os.Getenv("API_KEY"); key != "" {
		return key
	}
	switch p.Provider {
	case "openai":
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return key
		}
	default:
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
	}
	return p.APIKey
}

// StoragePath resolves the storage location against the data directory.
func (c *Config) StoragePath() string {
	if c.Storage.Path == "" {
		if c.Storage.Backend == "sqlite" {
			return filepath.Join(c.Dir(), "c60.db")
		}
		return filepath.Join(c.Dir(), "state")
	}
	if filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(c.Dir(), c.Storage.Path)
}

func DefaultProfile() Profile {
	return Profile{
		Provider:    "gemini",
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
	}
}

func getConfigPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func ensureConfigDir(configPath string) error {
	configDir := filepath.Dir(configPath)
	return os.MkdirAll(configDir, 0755)
}

func loadConfigFile(configPath string) (*Config, error) {
	// If config file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	if config.Storage.Backend == "" {
		config.Storage.Backend = "file"
	}

	return &config, nil
}

func createDefaultConfig(configPath string) (*Config, error) {
	config := &Config{
		Profiles: map[string]Profile{
			"default": DefaultProfile(),
		},
		ActiveProfile: "default",
		Storage:       Storage{Backend: "file"},
	}

	// Save default config to file
	if err := saveConfig(config, configPath); err != nil {
		return nil, err
	}

	return config, nil
}

func saveConfig(config *Config, configPath string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

func (c *Config) Save() error {
	if c.path == "" {
		configPath, err := getConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		c.path = configPath
	}
	return saveConfig(c, c.path)
}

func (c *Config) setCurrentProfile() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("no profiles defined")
	}

	profile, exists := c.Profiles[c.ActiveProfile]
	if !exists {
		// If active profile doesn't exist, try to use the first available profile
		for name, p := range c.Profiles {
			c.ActiveProfile = name
			profile = p
			exists = true
			break
		}
	}

	if !exists {
		return fmt.Errorf("no valid profiles found")
	}

	c.currentProfile = &profile
	return nil
}
