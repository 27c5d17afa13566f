package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryan-buckman/parkline/internal/config"
	"github.com/bryan-buckman/parkline/internal/database"
	"github.com/bryan-buckman/parkline/internal/itinerary"
	"github.com/bryan-buckman/parkline/internal/live"
	"github.com/bryan-buckman/parkline/internal/logging"
	"github.com/bryan-buckman/parkline/internal/model"
	"github.com/bryan-buckman/parkline/internal/news"
	"github.com/bryan-buckman/parkline/internal/parksync"
	"github.com/bryan-buckman/parkline/internal/server"
	"github.com/bryan-buckman/parkline/internal/themeparks"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "parkline: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	errorPolicy, err := live.ParseErrorPolicy(cfg.ThemeParks.ErrorPolicy)
	if err != nil {
		return err
	}
	duplicates, err := itinerary.ParseDuplicatePolicy(cfg.Itinerary.Duplicates)
	if err != nil {
		return err
	}

	store, err := database.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage ready", slog.String("database", store.DatabaseType()))

	httpClient := &http.Client{Timeout: 30 * time.Second}
	client := themeparks.NewClient(cfg.ThemeParks.BaseURL, httpClient)

	parks := make([]model.Park, 0, len(cfg.Parks))
	for _, p := range cfg.Parks {
		parks = append(parks, model.Park{ID: p.ID, Name: p.Name})
	}

	syncer := parksync.NewSyncer(client, store, logger)
	if err := syncer.RegisterParks(parks); err != nil {
		return err
	}
	fetcher := news.NewFetcher(store, cfg.News, httpClient, logger)
	poller := parksync.NewPoller(syncer, fetcher, store, parks, cfg.History.Retention(), logger)

	srv := server.New(server.Deps{
		Store:     store,
		Loader:    live.NewLoader(client, errorPolicy, logger),
		Entities:  client,
		Itinerary: itinerary.New(itinerary.WithDuplicatePolicy(duplicates), itinerary.WithLogger(logger)),
		Refresher: poller,
		News:      fetcher,
		Logger:    logger,
	})

	poller.Start()
	defer poller.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.ListenAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("Shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
