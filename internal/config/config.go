// internal/config/config.go
//
// This package handles configuration and the .storefront directory structure.
// Every directory the storefront runs from gets a .storefront/ folder holding
// its config, logs and persisted cart.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/storefront/internal/catalog"
	"github.com/kingrea/storefront/internal/storage"
)

const (
	// StorefrontDir is the name of the directory we create in each project
	StorefrontDir = ".storefront"

	defaultBannerInterval = 5 * time.Second
	defaultSearchDebounce = 500 * time.Millisecond
	defaultSQLiteFile     = "cart.db"
)

const defaultProjectConfigYAML = `# storefront configuration
version: 1

# Remote product catalog. Any dummyjson-compatible API works.
catalog:
  base_url: https://dummyjson.com
  timeout: 30s
  page_size: 10

# Where the cart is persisted between runs. Drivers: file, sqlite, memory.
# Relative paths resolve against .storefront/state.
storage:
  driver: file
  # Example sqlite backend:
  # driver: sqlite
  # path: cart.db

ui:
  banner_interval: 5s
  search_debounce: 500ms
`

// CatalogConfig points the client at a product API.
type CatalogConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	PageSize int           `yaml:"page_size"`
}

// StorageConfig selects the blob store backing the cart.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path,omitempty"`
}

// UIConfig holds screen timings.
type UIConfig struct {
	BannerInterval time.Duration `yaml:"banner_interval"`
	SearchDebounce time.Duration `yaml:"search_debounce"`
}

// ProjectConfig models .storefront/config.yaml.
type ProjectConfig struct {
	Version int           `yaml:"version"`
	Catalog CatalogConfig `yaml:"catalog"`
	Storage StorageConfig `yaml:"storage"`
	UI      UIConfig      `yaml:"ui"`
}

// envOverrides are applied on top of config.yaml. Unset variables leave the
// file value alone.
type envOverrides struct {
	CatalogURL     string        `env:"STOREFRONT_CATALOG_URL"`
	CatalogTimeout time.Duration `env:"STOREFRONT_CATALOG_TIMEOUT"`
	StorageDriver  string        `env:"STOREFRONT_STORAGE_DRIVER"`
	StoragePath    string        `env:"STOREFRONT_STORAGE_PATH"`
}

// Config holds the runtime configuration for the storefront.
type Config struct {
	// ProjectDir is the directory where the user ran `storefront` from
	ProjectDir string

	// StorefrontProjectDir is ProjectDir/.storefront
	StorefrontProjectDir string

	Project ProjectConfig
}

// InitStorefrontDir creates the .storefront directory structure in the given
// project directory. This is called before the TUI starts.
//
// Structure created:
// .storefront/
// ├── config.yaml
// ├── logs/    <- storefront.log
// └── state/   <- persisted cart
func InitStorefrontDir(projectDir string) error {
	storefrontDir := filepath.Join(projectDir, StorefrontDir)

	dirs := []string{
		filepath.Join(storefrontDir, "logs"),
		filepath.Join(storefrontDir, "state"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return ensureProjectConfig(filepath.Join(storefrontDir, "config.yaml"))
}

// NewConfig loads config.yaml from the project directory and applies
// environment overrides.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:           projectDir,
		StorefrontProjectDir: filepath.Join(projectDir, StorefrontDir),
		Project:              defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.StorefrontProjectDir, "logs")
}

// StateDir returns the path to the state directory
func (c *Config) StateDir() string {
	return filepath.Join(c.StorefrontProjectDir, "state")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StorefrontProjectDir, "config.yaml")
}

// StorageOptions translates the storage section into storage.Open options.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{Driver: c.Project.Storage.Driver, Path: c.Project.Storage.Path}
}

// BannerInterval is how long each home banner stays up.
func (c *Config) BannerInterval() time.Duration {
	return c.Project.UI.BannerInterval
}

// SearchDebounce is the quiet period before a search request goes out.
func (c *Config) SearchDebounce() time.Duration {
	return c.Project.UI.SearchDebounce
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err == nil {
		parsed = ProjectConfig{}
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := parsed.applyEnv(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	parsed.applyDefaults()
	parsed.normalize(c.StateDir())
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyEnv() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if overrides.CatalogURL != "" {
		pc.Catalog.BaseURL = overrides.CatalogURL
	}
	if overrides.CatalogTimeout > 0 {
		pc.Catalog.Timeout = overrides.CatalogTimeout
	}
	if overrides.StorageDriver != "" {
		pc.Storage.Driver = overrides.StorageDriver
	}
	if overrides.StoragePath != "" {
		pc.Storage.Path = overrides.StoragePath
	}
	return nil
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Catalog.BaseURL) == "" {
		pc.Catalog.BaseURL = catalog.DefaultBaseURL
	}
	if pc.Catalog.Timeout <= 0 {
		pc.Catalog.Timeout = catalog.DefaultTimeout
	}
	if pc.Catalog.PageSize == 0 {
		pc.Catalog.PageSize = catalog.ProductsPerPage
	}
	if strings.TrimSpace(pc.Storage.Driver) == "" {
		pc.Storage.Driver = storage.DriverFile
	}
	if pc.UI.BannerInterval <= 0 {
		pc.UI.BannerInterval = defaultBannerInterval
	}
	if pc.UI.SearchDebounce <= 0 {
		pc.UI.SearchDebounce = defaultSearchDebounce
	}
}

func (pc *ProjectConfig) normalize(stateDir string) {
	pc.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(pc.Catalog.BaseURL), "/")
	pc.Storage.Driver = strings.ToLower(strings.TrimSpace(pc.Storage.Driver))
	switch pc.Storage.Driver {
	case storage.DriverFile:
		if strings.TrimSpace(pc.Storage.Path) == "" {
			pc.Storage.Path = stateDir
		}
	case storage.DriverSQLite:
		if strings.TrimSpace(pc.Storage.Path) == "" {
			pc.Storage.Path = defaultSQLiteFile
		}
	}
	pc.Storage.Path = resolvePath(stateDir, pc.Storage.Path)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	u, err := url.Parse(pc.Catalog.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("catalog.base_url must be an absolute URL")
	}
	if pc.Catalog.PageSize < 1 {
		return fmt.Errorf("catalog.page_size must be >= 1")
	}
	switch pc.Storage.Driver {
	case storage.DriverFile, storage.DriverSQLite, storage.DriverMemory:
	default:
		return fmt.Errorf("storage.driver must be 'file', 'sqlite' or 'memory'")
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}
