// Config loading for the flextable CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// Config keys.
	cfgKeyBackend     = "backend"
	cfgKeyDataDir     = "data_dir"
	cfgKeyListen      = "listen"
	cfgKeyPageSize    = "page_size"
	cfgKeyPageSizeMax = "page_size_max"
	cfgKeyRateRPS     = "rate_rps"
	cfgKeyRateBurst   = "rate_burst"

	// Defaults.
	defaultBackend     = "sqlite"
	defaultListen      = ":8080"
	defaultPageSize    = 50
	defaultPageSizeMax = 200
	defaultRateRPS     = 0 // disabled
	defaultRateBurst   = 20
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# Flextable configuration

# Storage backend: sqlite (durable) or memory (ephemeral)
backend: sqlite

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# HTTP listen address
listen: ":8080"

# Record listing page sizes
page_size: 50
page_size_max: 200

# Per-client rate limit in requests per second; 0 disables limiting
rate_rps: 0
rate_burst: 20
`

// loadConfig reads config.yaml from the resolved config directory using Viper.
// It creates the config directory and a default config.yaml on first run.
// A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}

	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeyListen, defaultListen)
	v.SetDefault(cfgKeyPageSize, defaultPageSize)
	v.SetDefault(cfgKeyPageSizeMax, defaultPageSizeMax)
	v.SetDefault(cfgKeyRateRPS, defaultRateRPS)
	v.SetDefault(cfgKeyRateBurst, defaultRateBurst)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Missing config.yaml is not an error.
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	return v, nil
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		// File already exists.
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
