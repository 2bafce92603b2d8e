// Command dashboard serves the admin page listing the latest alerts.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/maanas1234/Celestia-Hackathon/config"
	"github.com/maanas1234/Celestia-Hackathon/dashboard"
	"github.com/maanas1234/Celestia-Hackathon/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}

	app := &cli.App{
		Name:  "dashboard",
		Usage: "admin dashboard for women safety alerts",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "HTTP port (DASHBOARD_PORT)"},
			&cli.StringFlag{Name: "backend-url", Usage: "alert backend base URL (BACKEND_URL)"},
			&cli.IntFlag{Name: "limit", Usage: "alerts shown per page (DASHBOARD_LIMIT)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (LOG_LEVEL)"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.LoadDashboardConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("backend-url") {
		cfg.BackendURL = c.String("backend-url")
	}
	if c.IsSet("limit") && c.Int("limit") > 0 {
		cfg.AlertLimit = c.Int("limit")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	logger, err := logging.NewLogger(logging.Options{Directory: cfg.LogDirectory, Name: "dashboard", Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	sessions, err := dashboard.NewSessionManager(cfg.SessionTTL)
	if err != nil {
		return err
	}
	srv, err := dashboard.NewServer(cfg, dashboard.NewUserStore(), sessions, dashboard.NewBackendClient(cfg.BackendURL, cfg.FetchTimeout), logger)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ErrorLog:          logging.StdLogger(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("dashboard: Starting server on port %d (backend %s)", cfg.Port, cfg.BackendURL)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
