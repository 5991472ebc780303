package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Defaults applied by NewConfig.
const (
	DefaultNetworkName = "Orbit DEV Network"
	DefaultHost        = "localhost"
	DefaultPort        = 3333
	CacheFileName      = "orbit-db-cache.db"
)

// Config represents the main configuration for orbit.
type Config struct {
	User       string           `toml:"user"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level,omitempty"` // "debug", "info" (default), "warn" or "error"
	Network    NetworkConfig    `toml:"network"`
	Database   DatabaseConfig   `toml:"database"`
	Storage    StorageConfig    `toml:"storage"`
	Blockstore BlockstoreConfig `toml:"blockstore"`
}

// NetworkConfig describes the network connected to when no address is given.
type NetworkConfig struct {
	Name string `toml:"name"`
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DatabaseConfig represents configuration for the log database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type      string `toml:"type"`                 // "sqlite" or "memory"
	CacheFile string `toml:"cache_file,omitempty"` // only used for type=sqlite
	Verifier  string `toml:"verifier,omitempty"`   // "age" (default) or "test"

	// ScryptWorkFactor is the log2 scrypt cost used for password verifiers.
	// Zero selects the age default.
	ScryptWorkFactor int `toml:"scrypt_work_factor,omitempty"`
}

// StorageConfig holds settings of the storage node.
type StorageConfig struct {
	Peers  []string `toml:"peers"`  // multiaddrs
	Ignore []string `toml:"ignore"` // patterns left out of directory uploads
}

// BlockstoreConfig represents configuration for the block backend of the storage node.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type BlockstoreConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // for S3-compatible services

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// NewConfig creates a new Config for user with default paths under baseDir.
func NewConfig(user, baseDir string) *Config {
	return &Config{
		User:     user,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Network: NetworkConfig{
			Name: DefaultNetworkName,
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Database: DatabaseConfig{
			Type:      "sqlite",
			CacheFile: filepath.Join(baseDir, CacheFileName),
		},
		Blockstore: BlockstoreConfig{
			Type:   "filesystem",
			FSRoot: filepath.Join(baseDir, "blocks"),
		},
	}
}

// CacheFile returns the configured cache file, defaulting to one in BaseDir.
func (c *Config) CacheFile() string {
	if c.Database.CacheFile != "" {
		return c.Database.CacheFile
	}
	return filepath.Join(c.BaseDir, CacheFileName)
}

// Validate checks the fields every command relies on.
func (c *Config) Validate() error {
	if c.BaseDir == "" {
		return fmt.Errorf("base_dir must be set")
	}
	if c.Network.Host == "" {
		return fmt.Errorf("network.host must be set")
	}
	if c.Network.Port < 1 || c.Network.Port > 65535 {
		return fmt.Errorf("network.port %d out of range", c.Network.Port)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level: %s", c.LogLevel)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
