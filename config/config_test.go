package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allVars = []string{
	"DATABASE_URL", "JWT_SECRET_KEY", "SERVER_PORT", "LOG_LEVEL", "CORS_ALLOWED_ORIGINS",
	"RATING_K_FACTOR", "RATING_START", "SCHEDULER_INTERVAL", "NATS_URL", "NATS_SUBJECT_PREFIX",
	"R2_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY", "R2_BUCKET_NAME", "R2_PUBLIC_BASE_URL",
}

func setEnv(t *testing.T, values map[string]string) {
	t.Helper()
	for _, name := range allVars {
		t.Setenv(name, "")
	}
	t.Setenv("DATABASE_URL", "postgres://localhost/esports?sslmode=disable")
	t.Setenv("JWT_SECRET_KEY", "secret")
	for k, v := range values {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, nil)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 32.0, cfg.RatingKFactor)
	assert.Equal(t, 1000.0, cfg.RatingStart)
	assert.Equal(t, 30*time.Second, cfg.SchedulerInterval)
	assert.Empty(t, cfg.NATSURL)
	assert.Equal(t, "esports", cfg.NATSSubjectPrefix)
	assert.False(t, cfg.R2Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, map[string]string{
		"SERVER_PORT":          "9090",
		"LOG_LEVEL":            "DEBUG",
		"CORS_ALLOWED_ORIGINS": "https://a.example.com, https://b.example.com,",
		"RATING_K_FACTOR":      "24",
		"RATING_START":         "1500",
		"SCHEDULER_INTERVAL":   "2m",
		"NATS_URL":             "nats://localhost:4222",
		"R2_ACCOUNT_ID":        "acc",
		"R2_ACCESS_KEY_ID":     "key",
		"R2_SECRET_ACCESS_KEY": "secret",
		"R2_BUCKET_NAME":       "banners",
		"R2_PUBLIC_BASE_URL":   "https://cdn.example.com",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 24.0, cfg.RatingKFactor)
	assert.Equal(t, 1500.0, cfg.RatingStart)
	assert.Equal(t, 2*time.Minute, cfg.SchedulerInterval)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.True(t, cfg.R2Enabled())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   string
	}{
		{"missing database url", map[string]string{"DATABASE_URL": ""}, "DATABASE_URL"},
		{"missing jwt secret", map[string]string{"JWT_SECRET_KEY": ""}, "JWT_SECRET_KEY"},
		{"port not a number", map[string]string{"SERVER_PORT": "http"}, "SERVER_PORT"},
		{"port out of range", map[string]string{"SERVER_PORT": "70000"}, "SERVER_PORT"},
		{"unknown log level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"zero k-factor", map[string]string{"RATING_K_FACTOR": "0"}, "RATING_K_FACTOR"},
		{"negative start rating", map[string]string{"RATING_START": "-1"}, "RATING_START"},
		{"bad interval", map[string]string{"SCHEDULER_INTERVAL": "soon"}, "SCHEDULER_INTERVAL"},
		{"partial r2", map[string]string{"R2_ACCOUNT_ID": "acc", "R2_BUCKET_NAME": "b"}, "R2_ACCESS_KEY_ID, R2_PUBLIC_BASE_URL, R2_SECRET_ACCESS_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.values)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
