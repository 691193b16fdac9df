package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/vitals/internal/config"
	"github.com/claude/vitals/internal/kv"
	"github.com/claude/vitals/internal/mcp"
	"github.com/claude/vitals/internal/report"
	"github.com/claude/vitals/internal/server"
	"github.com/claude/vitals/internal/snapshot"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("vitals starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Open snapshot backend
	ctx := context.Background()
	backend, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open backend", "driver", cfg.Backend.Driver, "error", err)
		os.Exit(1)
	}
	if closer, ok := backend.(io.Closer); ok {
		defer closer.Close()
	}
	log.Info("backend ready", "driver", cfg.Backend.Driver)

	// Wire the engine: snapshots → aggregator → tool dispatcher → HTTP
	store := snapshot.NewStore(backend)
	agg := report.NewAggregator(store, config.ParseRoutine(cfg.Routine))
	dispatcher := mcp.NewDispatcher(agg, Version, log)
	srv := server.New(store, dispatcher, cfg.Auth.APIKey, cfg.Auth.MCPSecret, Version, log)

	// Start server — tsnet or plain HTTP
	var listener net.Listener

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// openBackend constructs the kv store named by the config. The postgres
// driver applies pending migrations before connecting.
func openBackend(ctx context.Context, cfg *config.Config, log *slog.Logger) (kv.Store, error) {
	switch cfg.Backend.Driver {
	case "redis":
		return kv.NewRedis(cfg.Backend.URL, cfg.Backend.Token), nil
	case "sqlite":
		return kv.OpenSQLite(cfg.Backend.Path)
	case "postgres":
		if err := kv.RunMigrations(cfg.Backend.DSN, "migrations"); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		log.Info("migrations applied")
		return kv.NewPostgres(ctx, cfg.Backend.DSN)
	default:
		return nil, fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
	}
}
