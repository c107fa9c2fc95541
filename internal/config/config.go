package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"court-booking-service"`
	Port        string `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage. An empty DATABASE_URL runs everything in memory.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	// Academy wall clock used for "today" and past-slot checks.
	AcademyTimezone string `envconfig:"ACADEMY_TIMEZONE" default:"Local"`

	// Auth
	JWTSecret    string   `envconfig:"JWT_HMAC_SECRET"`
	StaticTokens []string `envconfig:"STATIC_TOKENS"`

	// Catalog cache
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"5m"`

	// Booking events
	RabbitURL       string `envconfig:"RABBIT_URL"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Google Calendar export
	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `envconfig:"GOOGLE_REDIRECT_URL" default:"http://localhost:8080/oauth2callback"`
}

// Load reads .env files when present and then the process environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug("no .env file loaded, using process environment", "error", err)
	}
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.AcademyTimezone)
	if err != nil {
		return nil, fmt.Errorf("ACADEMY_TIMEZONE: %w", err)
	}
	return loc, nil
}

func (c Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}
