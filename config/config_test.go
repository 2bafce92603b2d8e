package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfig_Defaults(t *testing.T) {
	t.Setenv("ALERT_IMAGE_DIR", t.TempDir())

	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, StoreBackendGorm, cfg.StoreBackend)
	assert.Equal(t, ImageStoreLocal, cfg.ImageStore)
	assert.Equal(t, 20, cfg.DefaultLatestLimit)
	assert.Equal(t, 200, cfg.MaxLatestLimit)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 1000, cfg.RetentionMaxAlerts)
	assert.Equal(t, 30*24*time.Hour, cfg.RetentionMaxAge)
}

func TestLoadServerConfig_Overrides(t *testing.T) {
	t.Setenv("ALERT_IMAGE_DIR", t.TempDir())
	t.Setenv("PORT", "9100")
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("PUBLIC_BASE_URL", "http://cam.local:9100/")
	t.Setenv("RETENTION_MAX_ALERTS", "0")
	t.Setenv("RETENTION_MAX_AGE", "48h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, StoreBackendMemory, cfg.StoreBackend)
	assert.Equal(t, "http://cam.local:9100", cfg.PublicBaseURL)
	assert.Equal(t, 0, cfg.RetentionMaxAlerts)
	assert.Equal(t, 48*time.Hour, cfg.RetentionMaxAge)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
}

func TestLoadServerConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ALERT_IMAGE_DIR", t.TempDir())
	t.Setenv("PORT", "-4")
	t.Setenv("RETENTION_INTERVAL", "soon")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 10*time.Minute, cfg.RetentionInterval)
}

func TestLoadServerConfig_RejectsUnknownBackends(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"store", map[string]string{"STORE_BACKEND": "postgres"}},
		{"image store", map[string]string{"IMAGE_STORE": "s3"}},
		{"minio without endpoint", map[string]string{"IMAGE_STORE": "minio"}},
		{"limits", map[string]string{"DEFAULT_LATEST_LIMIT": "50", "MAX_LATEST_LIMIT": "10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ALERT_IMAGE_DIR", t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadServerConfig()
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestServerConfig_OverrideFixesInvalidEnv(t *testing.T) {
	t.Setenv("ALERT_IMAGE_DIR", t.TempDir())
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("IMAGE_STORE", "s3")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	require.Error(t, cfg.Validate())

	cfg.StoreBackend = StoreBackendMemory
	cfg.ImageStore = ImageStoreLocal
	assert.NoError(t, cfg.Validate())
}

func TestLoadClientConfig(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend:8000/")
	t.Setenv("FRAME_SKIP", "5")
	t.Setenv("ALERT_NIGHT_HOUR", "21")
	t.Setenv("HEADLESS", "true")

	cfg, err := LoadClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://backend:8000", cfg.BackendURL)
	assert.Equal(t, 5, cfg.FrameSkip)
	assert.Equal(t, 21, cfg.AlertNightHour)
	assert.Equal(t, 2, cfg.AlertMinMen)
	assert.Equal(t, 2, cfg.UploadWorkers)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 400, cfg.MaxWidth)
	assert.Equal(t, time.Duration(0), cfg.AlertMinInterval)
}

func TestLoadClientConfig_Invalid(t *testing.T) {
	t.Run("night hour", func(t *testing.T) {
		t.Setenv("ALERT_NIGHT_HOUR", "25")
		_, err := LoadClientConfig()
		assert.Error(t, err)
	})
	t.Run("quit key", func(t *testing.T) {
		t.Setenv("QUIT_KEY", "esc")
		_, err := LoadClientConfig()
		assert.Error(t, err)
	})
}

func TestLoadDashboardConfig(t *testing.T) {
	t.Setenv("DASHBOARD_LIMIT", "5")
	t.Setenv("DASHBOARD_REFRESH", "0s")

	cfg, err := LoadDashboardConfig()
	require.NoError(t, err)
	assert.Equal(t, 8501, cfg.Port)
	assert.Equal(t, 5, cfg.AlertLimit)
	assert.Equal(t, time.Duration(0), cfg.RefreshInterval)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
}
