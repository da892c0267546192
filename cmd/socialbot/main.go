package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"socialbot/internal/browser"
	"socialbot/internal/config"
	"socialbot/internal/orchestrator"
	"socialbot/internal/platform"
	"socialbot/internal/recorder"
	"socialbot/internal/reply"
	"socialbot/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the socialbot config file")
	platformName := flag.String("platform", "", "Platform override (falls back to config)")
	dryRun := flag.Bool("dry-run", false, "Force dry-run replies regardless of config")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	if *platformName != "" {
		cfg.Platform = *platformName
	}
	if *dryRun {
		cfg.LLM.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid config: %v", err)
	}

	log := newLogger(cfg.Log)
	log.WithFields(logrus.Fields{
		"platform": cfg.Platform,
		"dry_run":  cfg.LLM.DryRun,
	}).Info("socialbot starting")

	gen, err := reply.New(cfg.LLM, log)
	if err != nil {
		log.Fatalf("failed to initialize reply generator: %v", err)
	}

	ledger, err := store.Open(cfg.HistoryDB)
	if err != nil {
		log.Fatalf("failed to open reply ledger: %v", err)
	}
	defer ledger.Close()

	session := browser.NewSession(cfg.Browser, log)
	if err := session.Start(ctx); err != nil {
		log.Fatalf("failed to start browser session: %v", err)
	}
	// Stop saves cookie state, so it must run on every exit path.
	defer session.Stop()

	adapter, err := platform.New(cfg.Platform, session, cfg, log)
	if err != nil {
		session.Stop()
		log.Fatalf("failed to initialize platform adapter: %v", err)
	}

	var trace orchestrator.Tracer
	if cfg.Trace.Enabled {
		rec, err := recorder.NewRecorder(cfg.Trace.Dir)
		if err != nil {
			log.WithError(err).Warn("trace recorder unavailable, continuing without it")
		} else {
			if err := rec.Start(uuid.NewString(), cfg.Platform); err != nil {
				log.WithError(err).Warn("trace recorder failed to start")
			} else {
				defer rec.Close()
				trace = rec
			}
		}
	}

	if err := adapter.Login(ctx); err != nil {
		session.Stop()
		log.Fatalf("login failed: %v", err)
	}

	orch := orchestrator.New(adapter, ledger, gen, trace, cfg, log)
	if err := orch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		session.Stop()
		log.Fatalf("monitor loop exited with error: %v", err)
	}
	log.Info("socialbot shutting down")
}

// newLogger builds the logrus instance, teeing output to the configured
// log file when one is set.
func newLogger(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err == nil {
			if f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				log.SetOutput(io.MultiWriter(os.Stderr, f))
			}
		}
	}
	return log
}
