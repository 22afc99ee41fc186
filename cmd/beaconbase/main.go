package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"beacon-base/internal/config"
	"beacon-base/internal/dispatcher"
	"beacon-base/internal/grpcclient"
	"beacon-base/internal/inbox"
	"beacon-base/internal/link"
	"beacon-base/internal/observability"
	"beacon-base/internal/pipeline"
	"beacon-base/internal/server"
	"beacon-base/internal/staticmap"
	"beacon-base/internal/store"
	"beacon-base/internal/utilities"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	console, err := utilities.OpenConsoleLog(cfg.LogDir, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, "console log:", err)
		os.Exit(1)
	}
	defer console.Close()

	logger := observability.NewLoggerLevel(observability.ParseLevel(cfg.LogLevel), console)
	logger.Info("Starting beacon-base...", "http_port", cfg.HTTPPort, "serial", cfg.SerialPort, "interval", cfg.Interval)

	if err := run(cfg, logger); err != nil {
		logger.Error("beacon-base stopped", "error", err)
		console.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	key, err := config.ReadAPIKey(cfg.APIKeyFile)
	if err != nil {
		return err
	}

	port, err := link.OpenSerial(link.PortConfig{Name: cfg.SerialPort, Baud: cfg.SerialBaud})
	if err != nil {
		return err
	}
	session := link.NewSession(port, link.DefaultReadTimeout, logger)
	defer session.Close()

	// Inicializar el store antes del engine
	var st store.Store = store.NewMemory()
	if cfg.RedisAddr != "" {
		rs, err := store.NewRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		st = rs
	}
	defer st.Close()

	opts := staticmap.DefaultOptions()
	opts.MapType = cfg.MapType
	renderer := staticmap.NewRenderer(staticmap.NewFetcher(cfg.FetchTimeout), st, key, cfg.MapFile, opts, logger)

	deps := pipeline.Deps{
		Runner:   dispatcher.New(session, logger),
		Renderer: renderer,
		Store:    st,
		Logbook:  utilities.NewLogbook(cfg.LogDir),
		Logger:   logger,
	}

	var notify <-chan struct{}
	if cfg.InboxDir != "" {
		scanner, err := inbox.NewScanner(cfg.InboxDir, cfg.InboxIgnoreExisting, logger)
		if err != nil {
			return err
		}
		deps.Inbox = scanner
		if notify, err = inbox.Watch(ctx, cfg.InboxDir, logger); err != nil {
			logger.Warn("inbox watcher disabled, polling on each cycle", "error", err)
		}
	}

	if cfg.GRPCServer != "" {
		fwd, err := grpcclient.NewGRPCClient(cfg.GRPCServer)
		if err != nil {
			return err
		}
		defer fwd.Close()
		deps.Forwarder = fwd
	}

	engine := pipeline.NewEngine(deps, pipeline.Options{Interval: cfg.Interval, Map: opts})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           server.NewRouter(engine, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP view listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	engine.Run(ctx, notify)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("Quit")
	return nil
}
