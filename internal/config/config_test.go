package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "./data/images", cfg.AssetDir)
	assert.Equal(t, 1000, cfg.MinReportBytes)
	assert.Equal(t, 1.0, cfg.MinRectExtent)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.False(t, cfg.RenderLabels)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MIN_REPORT_BYTES", "2048")
	t.Setenv("DETECTOR_URL", "http://detector:8000")
	t.Setenv("HTTP_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 2048, cfg.MinReportBytes)
	assert.Equal(t, "http://detector:8000", cfg.DetectorURL)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
}

func TestLoad_InvalidInt(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := Load()
	assert.Error(t, err)
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: " http://localhost:5173, ,https://app.example.com "}
	assert.Equal(t, []string{"http://localhost:5173", "https://app.example.com"}, cfg.Origins())
	assert.Equal(t, []string{"localhost:5173", "app.example.com"}, cfg.OriginPatterns())
}
