package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"jarvault/config"
	"jarvault/native/bank"
	"jarvault/native/jar"
	"jarvault/observability"
	"jarvault/observability/logging"
	"jarvault/rpc"
	"jarvault/state"
	"jarvault/storage"
	"jarvault/udecimal"
)

const envEnv = "JARVAULT_ENV"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a product genesis file (overrides config GenesisFile)")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envEnv))
	logger := logging.Setup("jarvaultd", env, slog.LevelInfo)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", slog.String("dir", cfg.DataDir), slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)

	contract, err := cfg.Contract()
	if err != nil {
		logger.Error("failed to resolve contract address", slog.Any("error", err))
		os.Exit(1)
	}

	engine := jar.NewEngine(contract)
	engine.SetState(manager)
	engine.SetEmitter(observability.MetricsEmitter{Next: observability.LogEmitter{Log: logger}})
	if cfg.ScorePointBps != 1 {
		perPoint := cfg.ScorePointBps
		engine.SetScoreToAPY(func(totalScore uint64) udecimal.UDecimal {
			return udecimal.New(totalScore*perPoint, 4)
		})
	}

	vault := bank.NewVault()
	engine.SetTransferer(vault)

	registry := jar.NewRegistry(manager)
	registry.SetEmitter(observability.MetricsEmitter{Next: observability.LogEmitter{Log: logger}})

	genesisPath := strings.TrimSpace(*genesisFlag)
	if genesisPath == "" {
		genesisPath = strings.TrimSpace(cfg.GenesisFile)
	}
	if genesisPath != "" {
		if err := seedProducts(registry, genesisPath, logger); err != nil {
			logger.Error("failed to seed genesis products", slog.Any("error", err))
			os.Exit(1)
		}
	}

	server := rpc.NewServer(engine, registry, vault, rpc.ServerConfig{
		AuthToken:     cfg.RPCAuthToken,
		RatePerMinute: cfg.RateLimitPerMinute,
		Logger:        logger,
	})

	logger.Info("jarvaultd ready",
		slog.String("rpc", cfg.RPCAddress),
		slog.String("contract", contract.String()),
		slog.String("dataDir", cfg.DataDir),
	)
	if err := server.Start(cfg.RPCAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("rpc server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// seedProducts registers the genesis products, skipping the ones a previous
// run already persisted.
func seedProducts(registry *jar.Registry, path string, logger *slog.Logger) error {
	genesis, err := config.LoadGenesis(path)
	if err != nil {
		return err
	}
	products, err := genesis.BuildProducts()
	if err != nil {
		return err
	}
	for _, product := range products {
		if err := registry.Register(product); err != nil {
			if errors.Is(err, jar.ErrProductExists) {
				logger.Info("genesis product already registered", slog.String("product", string(product.ID)))
				continue
			}
			return fmt.Errorf("register %s: %w", product.ID, err)
		}
		logger.Info("registered genesis product", slog.String("product", string(product.ID)))
	}
	return nil
}
