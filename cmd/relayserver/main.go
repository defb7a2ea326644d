package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/arenarelay/internal/admin"
	"github.com/udisondev/arenarelay/internal/config"
	"github.com/udisondev/arenarelay/internal/messages"
	"github.com/udisondev/arenarelay/internal/relay"
	"github.com/udisondev/arenarelay/internal/storage"
	"github.com/udisondev/arenarelay/internal/symbol"
)

const ConfigPath = "config/relayserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogging(cfg config.RelayServer) {
	opts := &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func newStorage(cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Backend {
	case "", "filesystem":
		return storage.NewFilesystem(storage.FilesystemOptions{
			Root:         cfg.Root,
			DisableCache: cfg.DisableCache,
		}), nil
	case "postgres":
		return storage.NewPostgres(cfg.Database.DSN()), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func run(ctx context.Context) error {
	// Load config
	cfgPath := ConfigPath
	if p := os.Getenv("ARENARELAY_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadRelayServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	setupLogging(cfg)
	slog.Info("arena relay server starting",
		"bind", cfg.BindAddress, "port", cfg.Port,
		"storage", cfg.Storage.Backend, "matching_policy", cfg.MatchingPolicy)

	// Storage
	store, err := newStorage(cfg.Storage)
	if err != nil {
		return err
	}
	if err := store.Open(ctx); err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()
	slog.Info("storage opened", "backend", cfg.Storage.Backend)

	// Symbol cache
	symbols, err := symbol.LoadFile(cfg.SymbolCachePath)
	if err != nil {
		return fmt.Errorf("loading symbol cache: %w", err)
	}

	// Shared state
	sessions := relay.NewSessionCache(time.Duration(cfg.SessionTTLMinutes) * time.Minute)
	registry := relay.NewGameServerRegistry()

	var validator *relay.EndpointValidator
	if cfg.ValidateEndpoint {
		validator = relay.NewEndpointValidator(time.Duration(cfg.ValidateTimeoutMS) * time.Millisecond)
	}

	policy := relay.PolicyPopulation
	if cfg.MatchingPolicy == "ping" {
		policy = relay.PolicyLowPing
	}

	// Services
	login := relay.NewLoginService(store, symbols, sessions, relay.LoginServiceOptions{
		SessionDisconnectedTTL: time.Duration(cfg.SessionDisconnectedTimeoutMin) * time.Minute,
		AutoCreateAccounts:     cfg.AutoCreateAccounts,
	})
	configSvc := relay.NewConfigService(store, symbols)
	matching := relay.NewMatchingService(registry, relay.MatchingServiceOptions{
		Policy:              policy,
		ForceIntoAnySession: cfg.ForceIntoAnySession,
	})
	serverdb := relay.NewServerDBService(registry, symbols, validator, relay.ServerDBServiceOptions{
		ValidateEndpoint: cfg.ValidateEndpoint,
	})
	transaction := relay.NewTransactionService()

	services := []*relay.Service{
		login.Service, configSvc.Service, matching.Service, serverdb.Service, transaction.Service,
	}

	server := relay.NewServer(relay.ServerOptions{
		BindAddress: cfg.BindAddress,
		Port:        cfg.Port,
		APIKeyHash:  cfg.ServerDBAPIKeyHash,
	}, messages.NewRegistry(), sessions, services...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })

	if cfg.AdminEnabled {
		adminSrv := admin.NewServer(admin.Options{
			BindAddress: cfg.AdminBindAddress,
			Port:        cfg.AdminPort,
			APIKeyHash:  cfg.ServerDBAPIKeyHash,
		}, registry, sessions, services...)
		adminSrv.Metrics().Observe(login, matching, serverdb)
		g.Go(func() error { return adminSrv.Run(gctx) })
	}

	return g.Wait()
}
