package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8080", cfg.ListenAddress)
	require.Equal(t, StorageLevelDB, cfg.Storage)
	require.Equal(t, "refchain.io", cfg.Referral.ServiceDomain)
	require.Equal(t, filepath.Join(dir, "nested", "refchain-data", "events.db"), cfg.Indexer.DSN)

	_, err = os.Stat(path)
	require.NoError(t, err)

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.NetworkName, reloaded.NetworkName)
}

func TestLoadParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `ListenAddress = "0.0.0.0:9000"
DataDir = "/var/lib/refchain"
Storage = "memory"
NetworkName = "refchain-testnet"

[Logging]
Level = "debug"
File = "/var/log/referrald.log"
MaxSizeMB = 10

[Auth]
HMACSecret = "inline"
HMACSecretEnv = ""
Issuer = "ops"

[RateLimit]
RequestsPerMinute = 30
Burst = 5
TrustedProxies = ["10.0.0.0/8", "192.0.2.1"]

[Indexer]
Enabled = true
Driver = "postgres"
DSN = "postgres://refchain@localhost/events"

[Telemetry]
Endpoint = "otel:4318"
Traces = true

[Referral]
ServiceDomain = "ref.example.org"
Paused = true
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, StorageMemory, cfg.Storage)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, 10, cfg.Logging.MaxSizeMB)
	require.Equal(t, 5, cfg.Logging.MaxBackups, "unset keys keep defaults")
	require.Equal(t, "inline", cfg.AdminSecret())
	require.Equal(t, float64(30), cfg.RateLimit.RequestsPerMinute)
	require.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.RateLimit.TrustedProxies)
	require.Equal(t, "postgres", cfg.Indexer.Driver)
	require.True(t, cfg.Telemetry.Traces)
	require.True(t, cfg.Referral.Paused)
	require.Equal(t, "ref.example.org", cfg.Referral.ServiceDomain)
}

func TestAdminSecretPrefersEnvironment(t *testing.T) {
	t.Setenv("REFCHAIN_TEST_SECRET", "from-env")
	cfg := Default()
	cfg.Auth.HMACSecret = "inline"
	cfg.Auth.HMACSecretEnv = "REFCHAIN_TEST_SECRET"
	require.Equal(t, "from-env", cfg.AdminSecret())
}

func TestLoadRejectsInvalidConfigs(t *testing.T) {
	cases := map[string]string{
		"unknown key":      "Bogus = 1\n",
		"bad listen":       "ListenAddress = \"nope\"\n",
		"bad storage":      "Storage = \"s3\"\n",
		"bad domain":       "[Referral]\nServiceDomain = \"a/b\"\n",
		"postgres no dsn":  "[Indexer]\nEnabled = true\nDriver = \"postgres\"\n",
		"bad driver":       "[Indexer]\nEnabled = true\nDriver = \"mysql\"\n",
		"export no target": "[Telemetry]\nMetrics = true\n",
		"bad proxy":        "[RateLimit]\nTrustedProxies = [\"10.0.0.0/33\"]\n",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}
