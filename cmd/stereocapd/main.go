package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"stereocap/internal/config"
	"stereocap/internal/daemon"
	"stereocap/internal/logging"
	"stereocap/internal/preflight"
	"stereocap/internal/sessions"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(os.Getenv("STEREOCAP_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: os.Stderr,
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Error("prepare directories", logging.Error(err))
		os.Exit(1)
	}

	if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
		for _, result := range failed {
			logger.Error("preflight check failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
		}
		os.Exit(1)
	}

	store, err := sessions.Open(cfg.Sessions.Dir)
	if err != nil {
		logger.Error("open session store", logging.Error(err))
		os.Exit(1)
	}

	device, err := newDevice(cfg)
	if err != nil {
		logger.Error("resolve camera device", logging.Error(err))
		os.Exit(1)
	}

	d, err := daemon.New(daemon.Options{
		Config: cfg,
		Device: device,
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	if err := d.Wait(); err != nil {
		d.Stop()
		logger.Error("capture loop failed", logging.Error(err))
		os.Exit(1)
	}
	d.Stop()
	logger.Info("stereocapd shutting down")
}
