package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int
	LogLevel     slog.Level

	CORSAllowedOrigins []string

	RatingKFactor float64
	RatingStart   float64

	SchedulerInterval time.Duration

	// Пустой NATSURL отключает публикацию событий.
	NATSURL           string
	NATSSubjectPrefix string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// R2Enabled reports whether banner storage is configured.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	kFactor, err := strconv.ParseFloat(getEnv("RATING_K_FACTOR", "32"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATING_K_FACTOR environment variable: %w", err)
	}
	if kFactor <= 0 {
		return nil, fmt.Errorf("RATING_K_FACTOR must be positive, got %v", kFactor)
	}

	start, err := strconv.ParseFloat(getEnv("RATING_START", "1000"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATING_START environment variable: %w", err)
	}
	if start < 0 {
		return nil, fmt.Errorf("RATING_START cannot be negative, got %v", start)
	}

	interval, err := time.ParseDuration(getEnv("SCHEDULER_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_INTERVAL environment variable: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("SCHEDULER_INTERVAL must be positive, got %s", interval)
	}

	cfg := &Config{
		DatabaseURL:        dbURL,
		JWTSecretKey:       jwtKey,
		ServerPort:         port,
		LogLevel:           level,
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		RatingKFactor:      kFactor,
		RatingStart:        start,
		SchedulerInterval:  interval,
		NATSURL:            os.Getenv("NATS_URL"),
		NATSSubjectPrefix:  getEnv("NATS_SUBJECT_PREFIX", "esports"),
		R2AccountID:        os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:      os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:  os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:       os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:    os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	if err := cfg.validateR2(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateR2: либо все R2_* переменные заданы, либо ни одной.
func (c *Config) validateR2() error {
	values := map[string]string{
		"R2_ACCOUNT_ID":        c.R2AccountID,
		"R2_ACCESS_KEY_ID":     c.R2AccessKeyID,
		"R2_SECRET_ACCESS_KEY": c.R2SecretAccessKey,
		"R2_BUCKET_NAME":       c.R2BucketName,
		"R2_PUBLIC_BASE_URL":   c.R2PublicBaseURL,
	}
	var missing []string
	set := 0
	for name, v := range values {
		if v == "" {
			missing = append(missing, name)
		} else {
			set++
		}
	}
	if set == 0 || len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("incomplete Cloudflare R2 configuration, missing: %s", strings.Join(missing, ", "))
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: expected debug, info, warn or error", s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
