package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/markerdeck/markerdeck/internal/api"
	"github.com/markerdeck/markerdeck/internal/catalog"
	"github.com/markerdeck/markerdeck/internal/config"
	"github.com/markerdeck/markerdeck/internal/db"
	"github.com/markerdeck/markerdeck/internal/editor"
	"github.com/markerdeck/markerdeck/internal/events"
	"github.com/markerdeck/markerdeck/internal/logging"
	"github.com/markerdeck/markerdeck/internal/media"
	"github.com/markerdeck/markerdeck/internal/session"
	"github.com/markerdeck/markerdeck/internal/stash"
	"github.com/markerdeck/markerdeck/internal/wall"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(configFlag *string) *cobra.Command {
	var noBanner bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the markerdeck HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(*configFlag)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, !noBanner)
		},
	}
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "Do not print the startup banner")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, showBanner bool) error {
	startTime := time.Now()

	for _, dir := range []string{cfg.DataDir(), cfg.CacheDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	logger := logging.NewLogger(cfg.LogLevel(), cfg.LogFormat())

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another markerdeck instance is already using this data directory")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release instance lock", "error", err)
		}
	}()

	logger.Info("starting markerdeck", "version", config.Version, "data_dir", cfg.DataDir(), "db_driver", cfg.DBDriver())

	database, err := db.New(db.Options{Driver: cfg.DBDriver(), Path: cfg.DBPath(), DSN: cfg.DBDSN()}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(catalog.Models()...); err != nil {
		return err
	}

	repo := catalog.NewRepository(database.Conn())
	catalogSvc := catalog.NewService(repo, nil, catalog.Defaults{
		StashServer: cfg.StashServer(),
		StashAPIKey: cfg.StashAPIKey(),
	}, logging.WithComponent(logger, "catalog"))

	stashClient, err := stash.NewHTTPClient(catalogSvc, cfg.StashTimeout(), logging.WithComponent(logger, "stash"))
	if err != nil {
		return fmt.Errorf("failed to create stash client: %w", err)
	}
	catalogSvc.SetPerformerSource(stashClient)

	if err := catalogSvc.SeedSettings(ctx); err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}

	runner := catalog.NewRunner(catalogSvc, repo, database, filepath.Join(cfg.DataDir(), "backups"), logging.WithComponent(logger, "runner"))
	runner.SetPollInterval(cfg.JobPollInterval())
	go runner.Start(ctx)

	sessions := session.NewRegistry[*editor.Session]("edit", cfg.SessionTTL(), logger)
	walls := session.NewRegistry[*wall.Wall]("wall", cfg.SessionTTL(), logger)
	go sessions.Run(ctx)
	go walls.Run(ctx)

	hub := events.NewHub(logging.WithComponent(logger, "events"))
	go hub.Run(ctx)

	mediaSvc := media.NewService(catalogSvc, &http.Client{}, cfg.CacheDir(), logging.WithComponent(logger, "media"))

	apiServer := api.NewServer(api.ServerConfig{
		Host:           cfg.Host(),
		Port:           cfg.Port(),
		Version:        config.Version,
		CatalogService: catalogSvc,
		Stash:          stashClient,
		Media:          mediaSvc,
		Events:         hub,
		Sessions:       sessions,
		Walls:          walls,
		Editor: editor.SessionConfig{
			RefetchDelay:      cfg.RefetchDelay(),
			RequirePrimaryTag: cfg.RequirePrimaryTag(),
		},
		Runner:         runner,
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         logger,
		StartTime:      startTime,
	})

	if showBanner {
		endpoint, _ := catalogSvc.Endpoint(ctx)
		printBanner(os.Stdout, bannerInfo{
			Version:   config.Version,
			Address:   apiServer.Addr(),
			Stash:     endpoint.ServerURL,
			DataDir:   cfg.DataDir(),
			DBDriver:  cfg.DBDriver(),
			Origins:   cfg.AllowedOrigins(),
			CacheSize: dirSize(cfg.CacheDir()),
		})
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func dirSize(dir string) int64 {
	var total int64
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
