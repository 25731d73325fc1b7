package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"sheetsync/api/internal/theme"
)

const (
	configName    = "config"
	configType    = "yaml"
	defaultServer = "http://localhost:8787"
)

// Config holds sheetctl settings.
type Config struct {
	Server string `mapstructure:"server"`
	Token  string `mapstructure:"token"`
	Email  string `mapstructure:"email"`
	Theme  string `mapstructure:"theme"`
	Output string `mapstructure:"output"`
}

// ConfigDir returns ~/.sheetctl.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sheetctl"
	}
	return filepath.Join(home, ".sheetctl")
}

// ConfigPath is where login writes the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), configName+"."+configType)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(ConfigDir())
	v.SetConfigPermissions(0o600)

	v.SetDefault("server", defaultServer)
	v.SetDefault("token", "")
	v.SetDefault("email", "")
	v.SetDefault("theme", theme.Default().Slug)
	v.SetDefault("output", "table")

	v.SetEnvPrefix("SHEETCTL")
	v.AutomaticEnv()
	return v
}

// LoadConfig reads ~/.sheetctl/config.yaml and SHEETCTL_* variables. A
// missing file is not an error.
func LoadConfig(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig sets the given keys and writes the config file.
func SaveConfig(v *viper.Viper, values map[string]string) error {
	if err := os.MkdirAll(ConfigDir(), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	for key, value := range values {
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(ConfigPath()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
