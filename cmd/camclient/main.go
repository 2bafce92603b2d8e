// Command camclient watches a camera, classifies the faces it sees and sends
// alerts to the backend when the alert rule matches.
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

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/maanas1234/Celestia-Hackathon/alertclient"
	"github.com/maanas1234/Celestia-Hackathon/capture"
	"github.com/maanas1234/Celestia-Hackathon/config"
	"github.com/maanas1234/Celestia-Hackathon/logging"
	"github.com/maanas1234/Celestia-Hackathon/metrics"
	"github.com/maanas1234/Celestia-Hackathon/rules"
	"github.com/maanas1234/Celestia-Hackathon/workers"
)

const (
	flagBackendURL  = "backend-url"
	flagCamera      = "camera"
	flagHeadless    = "headless"
	flagCascade     = "cascade"
	flagModel       = "model"
	flagFrameSkip   = "frame-skip"
	flagMetricsAddr = "metrics-addr"
	flagLogLevel    = "log-level"
	flagLogDir      = "log-dir"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}

	app := &cli.App{
		Name:  "camclient",
		Usage: "detect unsafe scenes on a camera and report them to alertd",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagBackendURL, Usage: "alert backend base URL (BACKEND_URL)"},
			&cli.StringFlag{Name: flagCamera, Usage: "camera index, device path or stream URL (CAMERA_DEVICE)"},
			&cli.BoolFlag{Name: flagHeadless, Usage: "run without a preview window (HEADLESS)"},
			&cli.StringFlag{Name: flagCascade, Usage: "Haar cascade XML for face detection (CASCADE_PATH)"},
			&cli.StringFlag{Name: flagModel, Usage: "ONNX gender classifier (MODEL_PATH)"},
			&cli.IntFlag{Name: flagFrameSkip, Usage: "run detection on every Nth frame (FRAME_SKIP)"},
			&cli.StringFlag{Name: flagMetricsAddr, Usage: "serve Prometheus metrics on this address, empty disables (METRICS_ADDR)"},
			&cli.StringFlag{Name: flagLogLevel, Usage: "debug, info, warn or error (LOG_LEVEL)"},
			&cli.StringFlag{Name: flagLogDir, Usage: "directory for rotated log files, empty disables (LOG_DIR)"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func loadConfig(c *cli.Context) (config.ClientConfig, error) {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		return cfg, fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.IsSet(flagBackendURL) {
		cfg.BackendURL = c.String(flagBackendURL)
	}
	if c.IsSet(flagCamera) {
		cfg.CameraDevice = c.String(flagCamera)
	}
	if c.IsSet(flagHeadless) {
		cfg.Headless = c.Bool(flagHeadless)
	}
	if c.IsSet(flagCascade) {
		cfg.CascadePath = c.String(flagCascade)
	}
	if c.IsSet(flagModel) {
		cfg.GenderModelPath = c.String(flagModel)
	}
	if c.IsSet(flagFrameSkip) {
		if n := c.Int(flagFrameSkip); n > 0 {
			cfg.FrameSkip = n
		}
	}
	if c.IsSet(flagMetricsAddr) {
		cfg.MetricsAddr = c.String(flagMetricsAddr)
	}
	if c.IsSet(flagLogLevel) {
		cfg.LogLevel = c.String(flagLogLevel)
	}
	if c.IsSet(flagLogDir) {
		cfg.LogDirectory = c.String(flagLogDir)
	}
	return cfg, nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.Options{Directory: cfg.LogDirectory, Name: "camclient", Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	faces, err := capture.NewFaceDetector(cfg.CascadePath)
	if err != nil {
		return err
	}
	defer faces.Close()

	classifier := capture.NewGenderClassifier(cfg.GenderModelPath, logger)
	defer classifier.Close()

	clientMetrics := metrics.NewClient()
	if cfg.MetricsAddr != "" {
		metricsSrv := serveMetrics(cfg.MetricsAddr, clientMetrics, logger.Infof, logger.Errorf)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	sender := alertclient.NewClient(cfg.BackendURL, cfg.UploadTimeout)
	pool := workers.NewUploadPool(sender, cfg.UploadQueueSize, cfg.UploadWorkers, cfg.UploadTimeout, clientMetrics, logger)
	defer pool.Stop()

	rule := rules.Rule{
		MinMen:          cfg.AlertMinMen,
		NightHour:       cfg.AlertNightHour,
		MultipleMenText: cfg.AlertMultipleMenText,
		NightText:       cfg.AlertNightText,
	}.WithDefaults()
	logger.Infof("camclient: Sending alerts to %s (min men %d, night from %02d:00, cooldown %s)",
		cfg.BackendURL, rule.MinMen, rule.NightHour, cfg.AlertMinInterval)

	loop := &capture.Loop{
		Cfg:        cfg,
		Faces:      faces,
		Classifier: classifier,
		Dispatcher: alertclient.NewDispatcher(rule, cfg.AlertMinInterval, pool, clientMetrics, logger),
		Metrics:    clientMetrics,
		Log:        logger,
	}
	return loop.Run(ctx)
}

func serveMetrics(addr string, m *metrics.Client, infof, errorf func(string, ...interface{})) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		infof("camclient: Serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorf("camclient: metrics server: %v", err)
		}
	}()
	return srv
}
