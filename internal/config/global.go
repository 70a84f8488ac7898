package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/skinrec/config.yml.
type GlobalConfig struct {
	// CatalogPath is the repository used when the working directory is not
	// inside one.
	CatalogPath string `yaml:"catalog_path,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "skinrec"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/skinrec/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}
	cfg.CatalogPath = ExpandPath(cfg.CatalogPath)

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

var (
	// ErrCatalogPathNotConfigured is returned when no repository is found
	// and catalog_path is not set.
	ErrCatalogPathNotConfigured = errors.New("catalog_path not configured")
	// ErrCatalogPathInvalid is returned when catalog_path is not a skinrec
	// repository.
	ErrCatalogPathInvalid = errors.New("catalog_path is not a skinrec repository")
)

// ResolveRepository finds the repository containing start, falling back to
// the global catalog_path.
func ResolveRepository(start string) (string, error) {
	if root, err := FindRepository(start); err == nil {
		return root, nil
	}

	cfg, err := LoadGlobalConfig()
	if err != nil {
		return "", err
	}
	if cfg.CatalogPath == "" {
		return "", ErrCatalogPathNotConfigured
	}
	if !IsRepository(cfg.CatalogPath) {
		return "", fmt.Errorf("%w: %s", ErrCatalogPathInvalid, cfg.CatalogPath)
	}
	return cfg.CatalogPath, nil
}

// HelpfulConfigMessage returns a helpful message when no repository is found.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No skinrec repository found.

Run 'skinrec init' in your catalog directory, or create %s to set a default:
  mkdir -p %s
  echo 'catalog_path: /path/to/your/catalog' > %s`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
