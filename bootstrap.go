package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/slighter12/rootstock-mcp-go/chain"
	"github.com/slighter12/rootstock-mcp-go/config"
	"github.com/slighter12/rootstock-mcp-go/contracts"
	"github.com/slighter12/rootstock-mcp-go/logger"
	"github.com/slighter12/rootstock-mcp-go/metrics"
	"github.com/slighter12/rootstock-mcp-go/tools"
	"github.com/slighter12/rootstock-mcp-go/tools/types"
)

// app holds the long-lived dependencies shared by every command.
type app struct {
	cfg        *config.Config
	client     *chain.RPCClient
	store      *contracts.Store
	dispatcher *tools.Dispatcher
}

// loadConfig resolves the config path, writing a default file on first run.
func loadConfig(path string) (*config.Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		resolved, err := config.ResolveConfigPath()
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		path = resolved
	}
	if err := config.EnsureDefaultConfig(path); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// newApp wires logging, metrics, the chain client, the artifact store and the
// tool dispatcher. console receives log records; it must never be the stream
// carrying protocol frames.
func newApp(ctx context.Context, cfg *config.Config, console io.Writer) (*app, error) {
	if err := logger.Init(logger.GetLevelFromString(cfg.Logging.Level), logger.Format(cfg.Logging.Format), console, cfg.Logging.Path); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	if cfg.Server.Debug {
		logger.Default().SetLevel(slog.LevelDebug)
	}
	if cfg.Metrics.Enabled {
		metrics.Register()
	}

	active, mainnet, testnet, err := cfg.Networks()
	if err != nil {
		return nil, err
	}

	opts := chain.Options{
		PrivateKey:        cfg.Chain.PrivateKey,
		RequestsPerSecond: cfg.Chain.RequestsPerSecond,
		Burst:             cfg.Chain.Burst,
	}
	client, err := chain.Dial(ctx, active, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", active.Name, err)
	}
	if account, ok := client.Account(); ok {
		logger.Info("Signing account configured", "network", active.Name, "account", account.Hex())
	} else {
		logger.Warn("No private key configured, write tools are disabled", "network", active.Name)
	}

	store := contracts.NewStore(cfg.Contracts.ArtifactsDir)
	if err := store.Load(); err != nil {
		// Deploy tools report artifact_unavailable until the directory is fixed.
		logger.Warn("Contract artifacts not fully loaded", "dir", store.Dir(), "error", err)
	}

	dispatcher, err := tools.NewDefaultDispatcher(&types.Backend{
		Chain:     client,
		Dialer:    chain.RPCDialer{Options: opts},
		Mainnet:   mainnet,
		Testnet:   testnet,
		Artifacts: store,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("register tools: %w", err)
	}

	return &app{
		cfg:        cfg,
		client:     client,
		store:      store,
		dispatcher: dispatcher,
	}, nil
}

// watchArtifacts reloads artifacts on change until ctx is cancelled.
func (a *app) watchArtifacts(ctx context.Context) {
	if !a.cfg.Contracts.Watch {
		return
	}
	go func() {
		if err := a.store.Watch(ctx); err != nil {
			logger.Error("Artifact watcher stopped", "dir", a.store.Dir(), "error", err)
		}
	}()
}

func (a *app) Close() {
	if a.client != nil {
		a.client.Close()
	}
	_ = logger.Default().Close()
}
