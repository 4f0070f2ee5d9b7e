package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docsect/internal/annostore"
	"github.com/dgallion1/docsect/internal/api"
	"github.com/dgallion1/docsect/internal/config"
	"github.com/dgallion1/docsect/internal/pipeline"
	"github.com/dgallion1/docsect/internal/ruleset"
	"github.com/dgallion1/docsect/internal/stats"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Section rules.
	rules, err := ruleset.NewWatcher(cfg.SectionsFile, cfg.SectionEndMarkers, log)
	if err != nil {
		log.Error("loading section rules", "error", err)
		os.Exit(1)
	}
	if cfg.WatchSections {
		if err := rules.Watch(ctx); err != nil {
			log.Warn("sections file watch disabled", "error", err)
		}
	}

	// Annotation sink.
	var sink annostore.Sink
	var client *annostore.Client
	if cfg.AnnostoreURL != "" {
		client = annostore.NewClient(cfg.AnnostoreURL, cfg.AnnostoreAPIKey)
		sink = client
	} else {
		log.Warn("ANNOSTORE_URL not set; section records are kept in memory")
		sink = annostore.NewMemorySink()
	}

	st := stats.NewSegmentStats(cfg.StatsWindow)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, rules, sink, st, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, rules, st, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if client != nil {
			client.Close()
		}
	}()

	log.Info("starting docsect", "port", cfg.Port, "sections_file", rules.Path())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
