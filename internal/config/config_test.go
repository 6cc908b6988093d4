package config

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("FRONTEND_URL", "https://shop.example.com/")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "farmersupply", cfg.DBName)
	assert.Equal(t, "https://shop.example.com", cfg.FrontendURL)
	assert.Equal(t, "https://api.chapa.co/v1", cfg.ChapaBaseURL)
	assert.Equal(t, 15*time.Second, cfg.ChapaTimeout)
	assert.Equal(t, 15*time.Minute, cfg.CartCacheTTL)
}

func TestParseRejectsBadDuration(t *testing.T) {
	t.Setenv("CHAPA_TIMEOUT", "soon")

	_, err := Parse()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{ChapaTimeout: time.Second}
	assert.EqualError(t, cfg.Validate(true), "JWT_SECRET is required")

	cfg.JWTSecret = "secret"
	assert.NoError(t, cfg.Validate(true))
	assert.EqualError(t, cfg.Validate(false), "MONGO_URI is required")

	cfg.MongoURI = "mongodb://localhost:27017"
	assert.NoError(t, cfg.Validate(false))
}

func TestConfigureLoggingFallsBackToInfo(t *testing.T) {
	ConfigureLogging(Config{LogFormat: "json", LogLevel: "loud"})
	assert.Equal(t, log.InfoLevel, log.GetLevel())

	ConfigureLogging(Config{LogLevel: "debug"})
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}
