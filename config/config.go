package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Headless    bool   `yaml:"headless"`
	UserAgent   string `yaml:"user_agent"`
	ProxyURL    string `yaml:"proxy_url"`
	UserDataDir string `yaml:"user_data_dir"`
	StartURL    string `yaml:"start_url"`

	// SettingsPath is the JSON file holding the persisted typing settings
	SettingsPath string `yaml:"settings_path"`
	// SocketPath is where settings messages are accepted; empty disables it
	SocketPath string `yaml:"socket_path"`
	// Seed fixes the random source; 0 means seeded from the clock
	Seed int64 `yaml:"seed"`
	// Input selects how characters reach the page: "dom" edits the element
	// directly, "keyboard" sends trusted input events through the browser.
	Input string `yaml:"input"`

	Log struct {
		Format string `yaml:"format"`
		Level  string `yaml:"level"`
		File   string `yaml:"file"`
	} `yaml:"log"`

	Typing TypingSection `yaml:"typing"`
}

// TypingSection seeds the typing settings used before anything is stored
type TypingSection struct {
	Settings        `yaml:",inline"`
	HesitationDelay DelayRange `yaml:"hesitation_delay"`
}

// Input modes
const (
	InputDOM      = "dom"
	InputKeyboard = "keyboard"
)

// LoadConfig reads the config file and applies environment variable overrides
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	// Defaults across the board
	cfg.Headless = false
	cfg.StartURL = "about:blank"
	cfg.Input = InputDOM
	cfg.SettingsPath = "typing-settings.json"
	cfg.Log.Format = "text"
	cfg.Log.Level = "info"
	cfg.Typing.Settings = Defaults()
	cfg.Typing.HesitationDelay = DefaultHesitation()

	// 1. Read YAML file
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			// A missing file is fine, defaults and env still apply
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	// 2. Env Overrides
	cfg.applyEnv()

	// 3. Validation
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TYPING_SIM_HEADLESS"); v != "" {
		c.Headless = (v == "true" || v == "1")
	}
	if v := os.Getenv("TYPING_SIM_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("TYPING_SIM_PROXY"); v != "" {
		c.ProxyURL = v
	}
	if v := os.Getenv("TYPING_SIM_USER_DATA"); v != "" {
		c.UserDataDir = v
	}
	if v := os.Getenv("TYPING_SIM_START_URL"); v != "" {
		c.StartURL = v
	}
	if v := os.Getenv("TYPING_SIM_SETTINGS_PATH"); v != "" {
		c.SettingsPath = v
	}
	if v := os.Getenv("TYPING_SIM_SOCKET"); v != "" {
		c.SocketPath = v
	}
	if v := os.Getenv("TYPING_SIM_INPUT"); v != "" {
		c.Input = v
	}
	if v := os.Getenv("TYPING_SIM_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("TYPING_SIM_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TYPING_SIM_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("TYPING_SIM_SEED"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = i
		}
	}
	if v := os.Getenv("TYPING_SIM_ERROR_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Typing.ErrorRate = f
		}
	}
}

// Validate checks fields that cannot be clamped and clamps the rest
func (c *Config) Validate() error {
	if c.SettingsPath == "" {
		return fmt.Errorf("settings_path is required")
	}
	switch c.Input {
	case InputDOM, InputKeyboard:
	default:
		return fmt.Errorf("input must be %s or %s, got %q", InputDOM, InputKeyboard, c.Input)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	c.Typing.Settings = c.Typing.Settings.Normalize()
	c.Typing.HesitationDelay = c.Typing.HesitationDelay.normalize()
	return nil
}
