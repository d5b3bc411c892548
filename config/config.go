package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	StorageLevelDB = "leveldb"
	StorageBolt    = "bolt"
	StorageMemory  = "memory"

	defaultNetworkName = "refchain-local"
	defaultDomain      = "refchain.io"
)

type Config struct {
	ListenAddress  string    `toml:"ListenAddress"`
	DataDir        string    `toml:"DataDir"`
	Storage        string    `toml:"Storage"`
	NetworkName    string    `toml:"NetworkName"`
	OriginPatterns []string  `toml:"OriginPatterns"`
	Logging        Logging   `toml:"Logging"`
	Auth           Auth      `toml:"Auth"`
	RateLimit      RateLimit `toml:"RateLimit"`
	Indexer        Indexer   `toml:"Indexer"`
	Telemetry      Telemetry `toml:"Telemetry"`
	Referral       Referral  `toml:"Referral"`
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	return &Config{
		ListenAddress:  "127.0.0.1:8080",
		DataDir:        "./refchain-data",
		Storage:        StorageLevelDB,
		NetworkName:    defaultNetworkName,
		OriginPatterns: []string{},
		Logging: Logging{
			Level:      "info",
			Env:        "local",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		Auth:      Auth{HMACSecretEnv: "REFCHAIN_ADMIN_SECRET", Issuer: "refchain"},
		RateLimit: RateLimit{RequestsPerMinute: 600, Burst: 60},
		Indexer:   Indexer{Enabled: true, Driver: "sqlite"},
		Referral:  Referral{ServiceDomain: defaultDomain},
	}
}

// Load loads the configuration from the given path, writing the defaults
// there first when the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults(baseDir string) {
	if strings.TrimSpace(c.NetworkName) == "" {
		c.NetworkName = defaultNetworkName
	}
	if strings.TrimSpace(c.Storage) == "" {
		c.Storage = StorageLevelDB
	}
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	if strings.TrimSpace(c.Referral.ServiceDomain) == "" {
		c.Referral.ServiceDomain = defaultDomain
	}
	if c.Indexer.Enabled && strings.TrimSpace(c.Indexer.Driver) == "" {
		c.Indexer.Driver = "sqlite"
	}
	if c.Indexer.Enabled && c.Indexer.Driver == "sqlite" && strings.TrimSpace(c.Indexer.DSN) == "" {
		c.Indexer.DSN = filepath.Join(c.dataDir(baseDir), "events.db")
	}
	if c.OriginPatterns == nil {
		c.OriginPatterns = []string{}
	}
}

func (c *Config) dataDir(baseDir string) string {
	if filepath.IsAbs(c.DataDir) || baseDir == "" {
		return c.DataDir
	}
	return filepath.Join(baseDir, c.DataDir)
}

// AdminSecret resolves the admin HMAC secret, preferring the environment
// variable named by HMACSecretEnv.
func (c *Config) AdminSecret() string {
	if env := strings.TrimSpace(c.Auth.HMACSecretEnv); env != "" {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			return value
		}
	}
	return strings.TrimSpace(c.Auth.HMACSecret)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults(filepath.Dir(path))
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
