// Package config loads and persists the tool's configuration: the source
// and target spreadsheet paths plus the sync timing knobs.
//
// The config lives in a YAML file inside a config directory. A missing
// file is not an error; it is created with defaults on first run and
// rewritten whenever paths change.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// Config keys.
	cfgKeySource       = "source"
	cfgKeyTarget       = "target"
	cfgKeyCooldown     = "cooldown"
	cfgKeyDebounce     = "debounce"
	cfgKeyPollInterval = "poll_interval"
	cfgKeyHistoryPath  = "history_path"
	cfgKeyListenAddr   = "listen"
	cfgKeyLogFile      = "log_file"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# sheetsync configuration

# Spreadsheet paths. Set these with "sheetsync init" or edit directly.
source: ""
target: ""

# Minimum spacing between sync attempts.
cooldown: 2s

# Debounce window for filesystem notifications.
debounce: 3s

# Fallback poll interval while auto-sync is active.
poll_interval: 5s

# Optional overrides; defaults live next to this file.
# history_path:
# log_file:

# WebSocket monitor address for "sheetsync watch --listen".
# listen:
`

// Config holds everything the CLI needs to construct a coordinator.
type Config struct {
	SourcePath   string
	TargetPath   string
	Cooldown     time.Duration
	Debounce     time.Duration
	PollInterval time.Duration
	HistoryPath  string
	LogFile      string
	ListenAddr   string
}

// DefaultDir returns the default configuration directory:
// $SHEETSYNC_CONFIG_DIR if set, otherwise <user config dir>/sheetsync.
func DefaultDir() (string, error) {
	if dir := os.Getenv("SHEETSYNC_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "sheetsync"), nil
}

// Load reads config.yaml from dir using Viper, creating the directory and
// a default config.yaml on first run. A missing config.yaml is not an
// error.
func Load(dir string) (*Config, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(dir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyCooldown, 2*time.Second)
	v.SetDefault(cfgKeyDebounce, 3*time.Second)
	v.SetDefault(cfgKeyPollInterval, 5*time.Second)
	v.SetDefault(cfgKeyHistoryPath, filepath.Join(dir, "history.db"))
	v.SetDefault(cfgKeyLogFile, filepath.Join(dir, "sheetsync.log"))
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Config{
		SourcePath:   v.GetString(cfgKeySource),
		TargetPath:   v.GetString(cfgKeyTarget),
		Cooldown:     v.GetDuration(cfgKeyCooldown),
		Debounce:     v.GetDuration(cfgKeyDebounce),
		PollInterval: v.GetDuration(cfgKeyPollInterval),
		HistoryPath:  v.GetString(cfgKeyHistoryPath),
		LogFile:      v.GetString(cfgKeyLogFile),
		ListenAddr:   v.GetString(cfgKeyListenAddr),
	}, nil
}

// Save writes the configuration back to config.yaml in dir. Called
// whenever the paths change.
func Save(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType(configFileType)
	v.Set(cfgKeySource, cfg.SourcePath)
	v.Set(cfgKeyTarget, cfg.TargetPath)
	v.Set(cfgKeyCooldown, cfg.Cooldown.String())
	v.Set(cfgKeyDebounce, cfg.Debounce.String())
	v.Set(cfgKeyPollInterval, cfg.PollInterval.String())
	v.Set(cfgKeyHistoryPath, cfg.HistoryPath)
	v.Set(cfgKeyLogFile, cfg.LogFile)
	v.Set(cfgKeyListenAddr, cfg.ListenAddr)

	if err := v.WriteConfigAs(filepath.Join(dir, configFileExt)); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does
// not exist in dir.
func ensureDefaultConfigFile(dir string) error {
	path := filepath.Join(dir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
