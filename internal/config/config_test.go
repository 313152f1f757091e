package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadCORSHeaders(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg := Load()
	assert.Equal(t, "Origin, Content-Type, Accept, Authorization, x-report-source", cfg.CORS.AllowHeaders)

	t.Setenv("CORS_ALLOW_HEADERS", "Origin, Content-Type")
	cfg = Load()
	assert.Equal(t, "Origin, Content-Type", cfg.CORS.AllowHeaders)
}

func TestGetDurationBareSeconds(t *testing.T) {
	t.Setenv("ANALYSIS_TIMEOUT_TEST", "45")
	assert.Equal(t, 45*time.Second, getDuration("ANALYSIS_TIMEOUT_TEST", time.Second))

	t.Setenv("ANALYSIS_TIMEOUT_TEST", "2m")
	assert.Equal(t, 2*time.Minute, getDuration("ANALYSIS_TIMEOUT_TEST", time.Second))

	assert.Equal(t, 3*time.Second, getDuration("UNSET_DURATION_TEST", 3*time.Second))
}
