// Package config loads runtime settings from config file, environment and
// flags through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Settings is the consumed widget configuration.
type Settings struct {
	URL                string          `mapstructure:"url"`
	Agent              string          `mapstructure:"agent"`
	Model              string          `mapstructure:"model"`
	ThreadID           string          `mapstructure:"thread_id"`
	UserID             string          `mapstructure:"user_id"`
	Stream             bool            `mapstructure:"stream"`
	StarterMessage     string          `mapstructure:"starter_message"`
	StarterSuggestions []string        `mapstructure:"starter_suggestions"`
	StateDir           string          `mapstructure:"state_dir"`
	Logging            LoggingSettings `mapstructure:"logging"`
}

// LoggingSettings holds logging-related configuration.
type LoggingSettings struct {
	Level string `mapstructure:"level"`
}

var settings *Settings

// Load reads configuration into the package-level settings. An explicit
// config file path wins; otherwise the default location is tried and a
// missing file is not an error.
func Load(cfgFile string) (*Settings, error) {
	viper.SetDefault("stream", true)
	viper.SetDefault("logging.level", "warn")
	viper.SetDefault("state_dir", DefaultStateDir())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("chatkit")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(DefaultConfigDir())
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("CHATKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	loaded := &Settings{}
	if err := viper.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	settings = loaded
	return loaded, nil
}

// Get returns the loaded settings, or zero-value settings when Load was
// never called.
func Get() *Settings {
	if settings == nil {
		return &Settings{Stream: true}
	}
	return settings
}

// DefaultConfigDir is ~/.config/chatkit.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "chatkit")
}

// DefaultStateDir is where the file store keeps persisted threads.
func DefaultStateDir() string {
	return filepath.Join(DefaultConfigDir(), "state")
}
