// Command alertd is the alert backend: it accepts alerts from capture
// clients, keeps the alert log and serves the latest alerts and their images.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/maanas1234/Celestia-Hackathon/config"
	"github.com/maanas1234/Celestia-Hackathon/database"
	"github.com/maanas1234/Celestia-Hackathon/handlers"
	"github.com/maanas1234/Celestia-Hackathon/logging"
	"github.com/maanas1234/Celestia-Hackathon/media"
	"github.com/maanas1234/Celestia-Hackathon/metrics"
	"github.com/maanas1234/Celestia-Hackathon/realtime"
	"github.com/maanas1234/Celestia-Hackathon/repository"
	"github.com/maanas1234/Celestia-Hackathon/workers"
)

const (
	flagPort         = "port"
	flagStore        = "store"
	flagImageStore   = "image-store"
	flagDatabasePath = "database-path"
	flagMongoURI     = "mongo-uri"
	flagImageDir     = "image-dir"
	flagLogLevel     = "log-level"
	flagLogDir       = "log-dir"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}

	app := &cli.App{
		Name:  "alertd",
		Usage: "receive, store and serve women safety alerts",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: flagPort, Usage: "HTTP port (PORT)"},
			&cli.StringFlag{Name: flagStore, Usage: "alert log backend: gorm, mongo or memory (STORE_BACKEND)"},
			&cli.StringFlag{Name: flagImageStore, Usage: "image store: local, cloudinary or minio (IMAGE_STORE)"},
			&cli.StringFlag{Name: flagDatabasePath, Usage: "sqlite file for the gorm backend (DATABASE_PATH)"},
			&cli.StringFlag{Name: flagMongoURI, Usage: "MongoDB connection string (MONGO_URI)"},
			&cli.StringFlag{Name: flagImageDir, Usage: "directory for locally stored alert images (ALERT_IMAGE_DIR)"},
			&cli.StringFlag{Name: flagLogLevel, Usage: "debug, info, warn or error (LOG_LEVEL)"},
			&cli.StringFlag{Name: flagLogDir, Usage: "directory for rotated log files, empty disables (LOG_DIR)"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func loadConfig(c *cli.Context) (config.ServerConfig, error) {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return cfg, fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.IsSet(flagPort) {
		cfg.Port = c.Int(flagPort)
	}
	if c.IsSet(flagStore) {
		cfg.StoreBackend = strings.ToLower(c.String(flagStore))
	}
	if c.IsSet(flagImageStore) {
		cfg.ImageStore = strings.ToLower(c.String(flagImageStore))
	}
	if c.IsSet(flagDatabasePath) {
		cfg.DatabasePath = c.String(flagDatabasePath)
	}
	if c.IsSet(flagMongoURI) {
		cfg.MongoURI = c.String(flagMongoURI)
	}
	if c.IsSet(flagImageDir) {
		dir, err := filepath.Abs(c.String(flagImageDir))
		if err != nil {
			return cfg, fmt.Errorf("invalid --%s: %w", flagImageDir, err)
		}
		cfg.AlertImageDir = dir
	}
	if c.IsSet(flagLogLevel) {
		cfg.LogLevel = c.String(flagLogLevel)
	}
	if c.IsSet(flagLogDir) {
		cfg.LogDirectory = c.String(flagLogDir)
	}
	return cfg, cfg.Validate()
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.Options{Directory: cfg.LogDirectory, Name: "alertd", Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warnf("alertd: closing %s store: %v", repo.Name(), err)
		}
	}()

	store, err := openImageStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(logger)
	backendMetrics := metrics.NewBackend()
	rt := &handlers.Router{
		Alerts: &handlers.AlertHandler{
			Repo:      repo,
			Processor: media.NewProcessor(store, cfg.MaxImageWidth, logger),
			Hub:       hub,
			Metrics:   backendMetrics,
			Cfg:       cfg,
			Log:       logger,
		},
		Images:             &handlers.ImageServer{Store: store, Log: logger},
		Health:             &handlers.HealthHandler{Repo: repo, Store: store, Log: logger},
		Hub:                hub,
		Metrics:            backendMetrics,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Log:                logger,
	}
	retention := &workers.RetentionWorker{
		Repo:     repo,
		Store:    store,
		Policy:   repository.RetentionPolicy{MaxAlerts: cfg.RetentionMaxAlerts, MaxAge: cfg.RetentionMaxAge},
		Interval: cfg.RetentionInterval,
		Metrics:  backendMetrics,
		Log:      logger,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           rt.Handler(),
		ErrorLog:          logging.StdLogger(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Infof("alertd: alert log: %s (durable=%t)", repo.Name(), repo.Durable())
	logger.Infof("alertd: image store: %s", store.Name())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return retention.Run(gctx)
	})
	g.Go(func() error {
		logger.Infof("alertd: Starting server on port %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Infof("alertd: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openRepository opens the configured alert log. An unreachable MongoDB falls
// back to the in-memory log so ingest keeps working, flagged as not durable.
func openRepository(ctx context.Context, cfg config.ServerConfig, logger *zap.SugaredLogger) (repository.AlertRepository, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendGorm:
		if dir := filepath.Dir(cfg.DatabasePath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
		db, err := database.InitGormDB(cfg.DatabasePath, logging.StdLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := database.AutoMigrateModels(db); err != nil {
			return nil, err
		}
		logger.Infof("alertd: Using database: %s", cfg.DatabasePath)
		return repository.NewGormAlertRepository(db), nil

	case config.StoreBackendMongo:
		if cfg.MongoURI == "" {
			logger.Warnf("alertd: MONGO_URI is not set, alerts are kept in memory only")
			return repository.NewMemoryAlertRepository(cfg.MemoryMaxAlerts), nil
		}
		repo, err := repository.NewMongoAlertRepository(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, cfg.MongoConnectTimeout)
		if err != nil {
			logger.Warnf("alertd: MongoDB unavailable (%v), alerts are kept in memory only", err)
			return repository.NewMemoryAlertRepository(cfg.MemoryMaxAlerts), nil
		}
		return repo, nil

	default:
		logger.Warnf("alertd: alerts are kept in memory only (at most %d)", cfg.MemoryMaxAlerts)
		return repository.NewMemoryAlertRepository(cfg.MemoryMaxAlerts), nil
	}
}

// openImageStore opens the configured image store. A remote store that cannot
// be set up falls back to the local directory.
func openImageStore(ctx context.Context, cfg config.ServerConfig, logger *zap.SugaredLogger) (media.Store, error) {
	switch cfg.ImageStore {
	case config.ImageStoreCloudinary:
		if cfg.CloudinaryURL == "" {
			logger.Warnf("alertd: CLOUDINARY_URL is not set, storing images locally")
			break
		}
		store, err := media.NewCloudinaryStore(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		if err != nil {
			logger.Warnf("alertd: Cloudinary unavailable (%v), storing images locally", err)
			break
		}
		return store, nil

	case config.ImageStoreMinio:
		store, err := media.NewMinioStore(ctx, media.MinioOptions{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.MinioAccessKey,
			SecretKey:     cfg.MinioSecretKey,
			Bucket:        cfg.MinioBucket,
			Region:        cfg.MinioRegion,
			UseSSL:        cfg.MinioUseSSL,
			PublicURL:     cfg.MinioPublicURL,
			PublicBaseURL: cfg.PublicBaseURL,
		})
		if err != nil {
			logger.Warnf("alertd: MinIO unavailable (%v), storing images locally", err)
			break
		}
		return store, nil
	}

	logger.Infof("alertd: Storing alert images in: %s", cfg.AlertImageDir)
	return media.NewLocalStorage(cfg.AlertImageDir, cfg.PublicBaseURL, logger)
}
