package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	StoreBackendGorm   = "gorm"
	StoreBackendMongo  = "mongo"
	StoreBackendMemory = "memory"

	ImageStoreLocal      = "local"
	ImageStoreCloudinary = "cloudinary"
	ImageStoreMinio      = "minio"
)

const (
	defaultServerPort         = 8000
	defaultDashboardPort      = 8501
	defaultLatestLimit        = 20
	defaultMaxLatestLimit     = 200
	defaultMemoryMaxAlerts    = 500
	defaultMaxImageWidth      = 1280
	defaultMaxUploadBytes     = 10 << 20
	defaultRetentionMaxAlerts = 1000
	defaultRetentionMaxAge    = 30 * 24 * time.Hour
	defaultRetentionInterval  = 10 * time.Minute

	defaultMaxWidth         = 400
	defaultFrameSkip        = 3
	defaultUploadWorkers    = 2
	defaultUploadQueueSize  = 8
	defaultUploadTimeout    = 4 * time.Second
	defaultAlertMinInterval = 0 // every matching frame is sent
	defaultAlertMinMen      = 2
	defaultAlertNightHour   = 20
)

// ServerConfig configures the alert backend (alertd).
type ServerConfig struct {
	Port int
	// PublicBaseURL prefixes image URLs handed out for locally stored images.
	// Empty keeps them relative ("/image/<name>").
	PublicBaseURL string

	// alert log
	StoreBackend        string
	DatabasePath        string
	MongoURI            string
	MongoDatabase       string
	MongoCollection     string
	MongoConnectTimeout time.Duration
	MemoryMaxAlerts     int

	// alert images
	ImageStore       string
	AlertImageDir    string
	MaxImageWidth    int
	MaxUploadBytes   int64
	CloudinaryURL    string
	CloudinaryFolder string
	MinioEndpoint    string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioBucket      string
	MinioRegion      string
	MinioUseSSL      bool
	MinioPublicURL   string

	// read API
	DefaultLatestLimit int
	MaxLatestLimit     int

	CORSAllowedOrigins []string

	// retention, zero disables a bound
	RetentionMaxAlerts int
	RetentionMaxAge    time.Duration
	RetentionInterval  time.Duration

	LogDirectory string
	LogLevel     string
}

// ClientConfig configures the capture/inference client (camclient).
type ClientConfig struct {
	BackendURL string

	CameraDevice    string
	MaxWidth        int
	FrameSkip       int
	CascadePath     string
	GenderModelPath string
	WindowName      string
	QuitKey         string
	Headless        bool

	UploadWorkers    int
	UploadQueueSize  int
	UploadTimeout    time.Duration
	AlertMinInterval time.Duration

	AlertMinMen          int
	AlertNightHour       int
	AlertMultipleMenText string
	AlertNightText       string

	MetricsAddr  string
	LogDirectory string
	LogLevel     string
}

// DashboardConfig configures the admin dashboard.
type DashboardConfig struct {
	Port            int
	BackendURL      string
	AlertLimit      int
	FetchTimeout    time.Duration
	RefreshInterval time.Duration
	SessionTTL      time.Duration
	LogDirectory    string
	LogLevel        string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

// getEnvCountOrDefault accepts zero, which callers treat as "disabled".
func getEnvCountOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvDurationOrDefault(envVar string, defaultVal time.Duration) time.Duration {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(valStr)
	if err != nil || val < 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %s. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvBoolOrDefault(envVar string, defaultVal bool) bool {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s'. Using default %t. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvListOrDefault(envVar string, defaultVal []string) []string {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

// LoadServerConfig reads the backend configuration from the environment.
// Callers apply their overrides and then run Validate.
func LoadServerConfig() (ServerConfig, error) {
	imageDir := getEnvOrDefault("ALERT_IMAGE_DIR", "alerts")
	absImageDir, err := filepath.Abs(imageDir)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("failed to get absolute path for alert image directory '%s': %w", imageDir, err)
	}

	cfg := ServerConfig{
		Port:                getEnvIntOrDefault("PORT", defaultServerPort),
		PublicBaseURL:       strings.TrimRight(getEnvOrDefault("PUBLIC_BASE_URL", ""), "/"),
		StoreBackend:        strings.ToLower(getEnvOrDefault("STORE_BACKEND", StoreBackendGorm)),
		DatabasePath:        getEnvOrDefault("DATABASE_PATH", "alerts.db"),
		MongoURI:            getEnvOrDefault("MONGO_URI", ""),
		MongoDatabase:       getEnvOrDefault("MONGO_DB", "women_safety"),
		MongoCollection:     getEnvOrDefault("MONGO_COLLECTION", "alerts"),
		MongoConnectTimeout: getEnvDurationOrDefault("MONGO_CONNECT_TIMEOUT", 5*time.Second),
		MemoryMaxAlerts:     getEnvIntOrDefault("MEMORY_MAX_ALERTS", defaultMemoryMaxAlerts),
		ImageStore:          strings.ToLower(getEnvOrDefault("IMAGE_STORE", ImageStoreLocal)),
		AlertImageDir:       absImageDir,
		MaxImageWidth:       getEnvIntOrDefault("MAX_IMAGE_WIDTH", defaultMaxImageWidth),
		MaxUploadBytes:      int64(getEnvIntOrDefault("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)),
		CloudinaryURL:       getEnvOrDefault("CLOUDINARY_URL", ""),
		CloudinaryFolder:    getEnvOrDefault("CLOUDINARY_FOLDER", "women_safety_alerts"),
		MinioEndpoint:       getEnvOrDefault("MINIO_ENDPOINT", ""),
		MinioAccessKey:      getEnvOrDefault("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:      getEnvOrDefault("MINIO_SECRET_KEY", ""),
		MinioBucket:         getEnvOrDefault("MINIO_BUCKET", "alerts"),
		MinioRegion:         getEnvOrDefault("MINIO_REGION", "us-east-1"),
		MinioUseSSL:         getEnvBoolOrDefault("MINIO_USE_SSL", false),
		MinioPublicURL:      strings.TrimRight(getEnvOrDefault("MINIO_PUBLIC_URL", ""), "/"),
		DefaultLatestLimit:  getEnvIntOrDefault("DEFAULT_LATEST_LIMIT", defaultLatestLimit),
		MaxLatestLimit:      getEnvIntOrDefault("MAX_LATEST_LIMIT", defaultMaxLatestLimit),
		CORSAllowedOrigins:  getEnvListOrDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RetentionMaxAlerts:  getEnvCountOrDefault("RETENTION_MAX_ALERTS", defaultRetentionMaxAlerts),
		RetentionMaxAge:     getEnvDurationOrDefault("RETENTION_MAX_AGE", defaultRetentionMaxAge),
		RetentionInterval:   getEnvDurationOrDefault("RETENTION_INTERVAL", defaultRetentionInterval),
		LogDirectory:        getEnvOrDefault("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
	}
	return cfg, nil
}

// Validate checks the combinations the loader cannot catch per variable.
func (c ServerConfig) Validate() error {
	switch c.StoreBackend {
	case StoreBackendGorm, StoreBackendMongo, StoreBackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND '%s' (want %s, %s or %s)", c.StoreBackend, StoreBackendGorm, StoreBackendMongo, StoreBackendMemory)
	}
	switch c.ImageStore {
	case ImageStoreLocal, ImageStoreCloudinary, ImageStoreMinio:
	default:
		return fmt.Errorf("unknown IMAGE_STORE '%s' (want %s, %s or %s)", c.ImageStore, ImageStoreLocal, ImageStoreCloudinary, ImageStoreMinio)
	}
	if c.ImageStore == ImageStoreMinio && c.MinioEndpoint == "" {
		return fmt.Errorf("IMAGE_STORE=%s requires MINIO_ENDPOINT", ImageStoreMinio)
	}
	if c.DefaultLatestLimit > c.MaxLatestLimit {
		return fmt.Errorf("DEFAULT_LATEST_LIMIT (%d) exceeds MAX_LATEST_LIMIT (%d)", c.DefaultLatestLimit, c.MaxLatestLimit)
	}
	return nil
}

// LoadClientConfig reads the capture client configuration from the environment.
func LoadClientConfig() (ClientConfig, error) {
	cfg := ClientConfig{
		BackendURL:           strings.TrimRight(getEnvOrDefault("BACKEND_URL", "http://127.0.0.1:8000"), "/"),
		CameraDevice:         getEnvOrDefault("CAMERA_DEVICE", "0"),
		MaxWidth:             getEnvIntOrDefault("MAX_WIDTH", defaultMaxWidth),
		FrameSkip:            getEnvIntOrDefault("FRAME_SKIP", defaultFrameSkip),
		CascadePath:          getEnvOrDefault("CASCADE_PATH", "./models/haarcascade_frontalface_default.xml"),
		GenderModelPath:      getEnvOrDefault("MODEL_PATH", "./models/model.onnx"),
		WindowName:           getEnvOrDefault("WINDOW_NAME", "Women Safety Monitoring"),
		QuitKey:              getEnvOrDefault("QUIT_KEY", "q"),
		Headless:             getEnvBoolOrDefault("HEADLESS", false),
		UploadWorkers:        getEnvIntOrDefault("UPLOAD_WORKERS", defaultUploadWorkers),
		UploadQueueSize:      getEnvIntOrDefault("UPLOAD_QUEUE_SIZE", defaultUploadQueueSize),
		UploadTimeout:        getEnvDurationOrDefault("UPLOAD_TIMEOUT", defaultUploadTimeout),
		AlertMinInterval:     getEnvDurationOrDefault("ALERT_MIN_INTERVAL", defaultAlertMinInterval),
		AlertMinMen:          getEnvIntOrDefault("ALERT_MIN_MEN", defaultAlertMinMen),
		AlertNightHour:       getEnvCountOrDefault("ALERT_NIGHT_HOUR", defaultAlertNightHour),
		AlertMultipleMenText: getEnvOrDefault("ALERT_MULTIPLE_MEN_TEXT", ""),
		AlertNightText:       getEnvOrDefault("ALERT_NIGHT_TEXT", ""),
		MetricsAddr:          getEnvOrDefault("METRICS_ADDR", ""),
		LogDirectory:         getEnvOrDefault("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if cfg.AlertNightHour > 24 {
		return ClientConfig{}, fmt.Errorf("ALERT_NIGHT_HOUR must be within 0-24, got %d", cfg.AlertNightHour)
	}
	if len(cfg.QuitKey) != 1 {
		return ClientConfig{}, fmt.Errorf("QUIT_KEY must be a single character, got '%s'", cfg.QuitKey)
	}
	return cfg, nil
}

// LoadDashboardConfig reads the dashboard configuration from the environment.
func LoadDashboardConfig() (DashboardConfig, error) {
	cfg := DashboardConfig{
		Port:            getEnvIntOrDefault("DASHBOARD_PORT", defaultDashboardPort),
		BackendURL:      strings.TrimRight(getEnvOrDefault("BACKEND_URL", "http://127.0.0.1:8000"), "/"),
		AlertLimit:      getEnvIntOrDefault("DASHBOARD_LIMIT", defaultLatestLimit),
		FetchTimeout:    getEnvDurationOrDefault("DASHBOARD_FETCH_TIMEOUT", 3*time.Second),
		RefreshInterval: getEnvDurationOrDefault("DASHBOARD_REFRESH", 30*time.Second),
		SessionTTL:      getEnvDurationOrDefault("DASHBOARD_SESSION_TTL", 12*time.Hour),
		LogDirectory:    getEnvOrDefault("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
	}
	if cfg.BackendURL == "" {
		return DashboardConfig{}, fmt.Errorf("BACKEND_URL cannot be empty")
	}
	return cfg, nil
}
