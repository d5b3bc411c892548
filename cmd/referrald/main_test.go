package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"refchain/config"
	"refchain/storage"
)

func TestOpenDatabaseSelectsBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Storage = config.StorageMemory
	db, err := openDatabase(cfg)
	require.NoError(t, err)
	_, ok := db.(*storage.MemDB)
	require.True(t, ok)
	db.Close()

	cfg.Storage = config.StorageLevelDB
	cfg.DataDir = filepath.Join(t.TempDir(), "chain")
	db, err = openDatabase(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	db.Close()

	cfg.Storage = config.StorageBolt
	db, err = openDatabase(cfg)
	require.NoError(t, err)
	_, ok = db.(*storage.BoltDB)
	require.True(t, ok)
	db.Close()

	cfg.Storage = "s3"
	_, err = openDatabase(cfg)
	require.Error(t, err)
}

func TestServerConfigFromNodeConfig(t *testing.T) {
	t.Setenv("REFCHAIN_ADMIN_SECRET", "env-secret")
	cfg := config.Default()
	cfg.Auth.Audience = "ops"
	cfg.RateLimit.Burst = 7
	cfg.RateLimit.TrustedProxies = []string{"10.0.0.1"}

	out := serverConfig(cfg, nil)
	require.Equal(t, "env-secret", out.Auth.HMACSecret)
	require.Equal(t, "refchain", out.Auth.Issuer)
	require.Equal(t, "ops", out.Auth.Audience)
	require.Equal(t, 7, out.RateLimit.Burst)
	require.Equal(t, []string{"10.0.0.1"}, out.RateLimit.TrustedProxies)
}

func TestFileConfigOnlyWhenPathSet(t *testing.T) {
	require.Nil(t, fileConfig(config.Logging{}))
	fc := fileConfig(config.Logging{File: "/tmp/referrald.log", MaxSizeMB: 5})
	require.NotNil(t, fc)
	require.Equal(t, 5, fc.MaxSizeMB)
}
