package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"

	"assetmarket/config"
	"assetmarket/core"
	"assetmarket/core/types"
	"assetmarket/observability/logging"
	"assetmarket/rpc"
	"assetmarket/storage"
)

const rpcTokenEnv = "ASSETMARKET_RPC_TOKEN"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	memory := flag.Bool("memory", false, "DEV ONLY: run against an in-memory database")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var logOpts *logging.Options
	if cfg.LogFile != "" {
		logOpts = &logging.Options{Path: cfg.LogFile, MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 30}
	}
	logger := logging.Setup("marketd", cfg.Environment, logOpts)

	var db storage.Database
	if *memory {
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("Failed to open database", slog.Any("error", err))
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	node := core.NewNode(db)

	genesis, err := genesisFromConfig(cfg)
	if err != nil {
		logger.Error("Invalid genesis configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if err := node.ApplyGenesis(genesis); err != nil {
		logger.Error("Failed to apply genesis", slog.Any("error", err))
		os.Exit(1)
	}

	authToken := strings.TrimSpace(os.Getenv(rpcTokenEnv))
	if authToken == "" {
		logger.Warn("administrative RPC disabled", "reason", rpcTokenEnv+" not set")
	}

	server := rpc.NewServer(node, authToken, logger)
	if err := server.Start(cfg.ListenAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func genesisFromConfig(cfg *config.Config) (*core.Genesis, error) {
	owner, err := types.ParseAddress(cfg.Owner)
	if err != nil {
		return nil, fmt.Errorf("genesis: owner: %w", err)
	}
	gen := &core.Genesis{
		Owner:         owner,
		FeeBps:        cfg.FeeBps,
		DisputeWindow: cfg.DisputeWindowSecs,
	}
	if cfg.FeeRecipient != "" {
		recipient, err := types.ParseAddress(cfg.FeeRecipient)
		if err != nil {
			return nil, fmt.Errorf("genesis: fee recipient: %w", err)
		}
		gen.FeeRecipient = recipient
	}
	if cfg.Resolver != "" {
		resolver, err := types.ParseAddress(cfg.Resolver)
		if err != nil {
			return nil, fmt.Errorf("genesis: resolver: %w", err)
		}
		gen.Resolver = resolver
	}
	for _, raw := range cfg.Registries {
		registry, err := types.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("genesis: registry %q: %w", raw, err)
		}
		gen.Registries = append(gen.Registries, registry)
	}
	if len(cfg.GenesisAccounts) > 0 {
		gen.Accounts = make(map[[20]byte]*big.Int, len(cfg.GenesisAccounts))
		for rawAddr, rawBalance := range cfg.GenesisAccounts {
			addr, err := types.ParseAddress(rawAddr)
			if err != nil {
				return nil, fmt.Errorf("genesis: account %q: %w", rawAddr, err)
			}
			balance, ok := new(big.Int).SetString(strings.TrimSpace(rawBalance), 10)
			if !ok || balance.Sign() < 0 {
				return nil, fmt.Errorf("genesis: account %q: invalid balance %q", rawAddr, rawBalance)
			}
			gen.Accounts[addr] = balance
		}
	}
	return gen, nil
}
