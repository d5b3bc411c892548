package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"refchain/config"
	"refchain/core"
	"refchain/indexer"
	"refchain/native/common"
	"refchain/native/referral"
	"refchain/observability"
	"refchain/observability/logging"
	telemetry "refchain/observability/otel"
	"refchain/rpc"
	"refchain/storage"
)

const serviceName = "referrald"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	listenFlag := flag.String("listen", "", "Override the configured RPC listen address")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if addr := strings.TrimSpace(*listenFlag); addr != "" {
		cfg.ListenAddress = addr
	}

	logger := logging.Setup(serviceName, cfg.Logging.Env, logging.ParseLevel(cfg.Logging.Level), fileConfig(cfg.Logging))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("referrald exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func fileConfig(cfg config.Logging) *logging.FileConfig {
	if strings.TrimSpace(cfg.File) == "" {
		return nil
	}
	return &logging.FileConfig{
		Path:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: serviceName,
		Environment: cfg.Logging.Env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	pauses := common.NewPauseSet()
	if cfg.Referral.Paused {
		pauses.Set(referral.ModuleName, true)
	}
	node, err := core.NewNode(db, core.NodeConfig{
		ChainID:       cfg.NetworkName,
		ServiceDomain: cfg.Referral.ServiceDomain,
		Logger:        logger,
		Pauses:        pauses,
	})
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	node.Subscribe(observability.EventMetricsEmitter{})

	var index *indexer.Store
	if cfg.Indexer.Enabled {
		index, err = indexer.Open(cfg.Indexer.Driver, cfg.Indexer.DSN, logger)
		if err != nil {
			return fmt.Errorf("open event index: %w", err)
		}
		defer func() {
			if err := index.Close(); err != nil {
				logger.Warn("event index close failed", slog.Any("error", err))
			}
		}()
		node.Subscribe(index)
	}

	server, err := rpc.NewServer(node, index, serverConfig(cfg, logger))
	if err != nil {
		return fmt.Errorf("create rpc server: %w", err)
	}
	logger.Info("referrald starting",
		slog.String("chain_id", cfg.NetworkName),
		slog.String("listen", cfg.ListenAddress),
		slog.String("storage", cfg.Storage),
		slog.Bool("indexer", index != nil),
		logging.MaskField("indexer_dsn", cfg.Indexer.DSN),
		slog.Bool("referral_paused", cfg.Referral.Paused))
	return server.Start(ctx, cfg.ListenAddress)
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return storage.NewMemDB(), nil
	case config.StorageLevelDB:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		db, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.StorageBolt:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		db, err := storage.NewBoltDB(filepath.Join(cfg.DataDir, "state.db"))
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported storage %q", cfg.Storage)
	}
}

func serverConfig(cfg *config.Config, logger *slog.Logger) rpc.ServerConfig {
	return rpc.ServerConfig{
		Auth: rpc.AuthConfig{
			HMACSecret: cfg.AdminSecret(),
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
		},
		RateLimit: rpc.RateLimit{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
			TrustedProxies:    append([]string{}, cfg.RateLimit.TrustedProxies...),
		},
		OriginPatterns: cfg.OriginPatterns,
		Logger:         logger,
	}
}
