package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/application"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/config"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/events"
	httptransport "github.com/shoreagents/shoreagents-asset-dog-sub005/internal/http"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/metrics"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Action: func(ctx context.Context, c *cli.Command) error {
			logger, err := newLogger(c)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			policy, err := config.LoadPolicy(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := store.Close(); cerr != nil {
					logger.Error("failed to close store", "error", cerr)
				}
			}()

			recorder := metrics.NewRecorder(true)
			hub := events.NewHub(logger)
			go hub.Run(ctx)

			now := time.Now
			authService := application.NewAuthServiceWithLogger(store, nil, policy, []byte(cfg.TokenSecret), cfg.TokenTTL, now, logger)
			lookupService := application.NewLookupServiceWithLogger(store, now, logger)
			lifecycleService := application.NewLifecycleServiceWithOptions(store, nil, now, application.LifecycleOptions{
				Logger:          logger,
				Publisher:       hub,
				Recorder:        recorder,
				ConflictRetries: retriesOption(cfg.ConflictRetries),
			})

			router := httptransport.NewRouter(httptransport.RouterConfig{
				Auth:          httptransport.NewAuthHandler(authService, store, logger),
				Assets:        httptransport.NewAssetHandler(lookupService, lifecycleService, logger),
				Transitions:   httptransport.NewTransitionHandler(lifecycleService, logger),
				Authenticator: authService,
				Events:        http.HandlerFunc(hub.ServeWS),
				Metrics:       recorder.Handler(),
				Observer:      recorder,
				Logger:        logger,
			})

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("failed to shutdown server", "error", err)
				}
			}()

			logger.Info("asset API listening", "addr", server.Addr, "driver", cfg.DBDriver, "roles", policy.String())
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}
}

// retriesOption maps the configured retry count onto LifecycleOptions, where
// zero selects the default and a negative value disables retries.
func retriesOption(configured int) int {
	if configured == 0 {
		return -1
	}
	return configured
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations and exit",
		Action: func(ctx context.Context, c *cli.Command) error {
			logger, err := newLogger(c)
			if err != nil {
				return err
			}
			cfg, err := config.LoadDatabase()
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()
			logger.InfoContext(ctx, "schema is up to date", "driver", cfg.DBDriver)
			return nil
		},
	}
}
