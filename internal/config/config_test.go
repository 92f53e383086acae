package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DeviceHackRF, cfg.Device.Kind)
	assert.Equal(t, CachePostgres, cfg.Cache.Driver)
	assert.Equal(t, 10*time.Second, cfg.Sampling.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Sampling.Pacing)
	assert.Equal(t, 20, cfg.Plan.Count)
	assert.Equal(t, 6000.0, cfg.Plan.MaxMHz)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Empty(t, cfg.AWS.S3Bucket)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DEVICE", "Simulator")
	t.Setenv("CACHE_DRIVER", "sqlite")
	t.Setenv("CAPTURE_PACING", "0s")
	t.Setenv("PLAN_COUNT", "8")
	t.Setenv("ALLOWED_ORIGINS", " http://a , ,http://b")

	cfg, err := load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DeviceSimulator, cfg.Device.Kind)
	assert.Equal(t, CacheSQLite, cfg.Cache.Driver)
	assert.Zero(t, cfg.Sampling.Pacing)
	assert.Equal(t, 8, cfg.Plan.Count)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.AllowedOrigins)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ENVIRONMENT", "booth")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.booth"),
		[]byte("PORT=9090\nHACKRF_SERIAL=0000000000000000a06063c8234e925f\n"), 0o644))

	cfg, err := load(viper.New(), dir)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "0000000000000000a06063c8234e925f", cfg.Device.Serial)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown device", "DEVICE", "rtlsdr"},
		{"unknown cache driver", "CACHE_DRIVER", "redis"},
		{"zero samples per frequency", "SAMPLES_PER_FREQUENCY", "0"},
		{"zero plan count", "PLAN_COUNT", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := load(viper.New(), t.TempDir())
			assert.Error(t, err)
		})
	}
}
