package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// OpenWeather configuration.
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	OpenWeatherTimeout time.Duration

	// Elevation lookup configuration.
	ElevationEnabled  bool
	ElevationBaseURL  string
	ElevationTimeout  time.Duration
	ElevationCacheTTL time.Duration
	ElevationDefaultM float64

	FloodDataPath    string
	CycloneDataPath  string
	FloodModelPath   string
	CycloneModelPath string
	FeatureRulesFile string

	DBPath                 string
	SecretKey              string
	SessionTTL             time.Duration
	AdminEmail             string
	RecentPredictionsLimit int

	// Empty KafkaBrokers disables report publishing.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is read first; it never
// overrides variables already present in the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	owTimeout, err := parseDuration("OPENWEATHER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	elevTimeout, err := parseDuration("ELEVATION_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	elevCacheTTL, err := parseDuration("ELEVATION_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}
	sessionTTL, err := parseDuration("SESSION_TTL", "24h")
	if err != nil {
		return nil, err
	}

	elevDefault, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("ELEVATION_DEFAULT_M", "0"), 64)
	if err != nil {
		return nil, errors.New("invalid ELEVATION_DEFAULT_M")
	}

	recentLimit, err := strconv.Atoi(sharedcfg.EnvOrDefault("RECENT_PREDICTIONS_LIMIT", "10"))
	if err != nil || recentLimit <= 0 {
		return nil, errors.New("invalid RECENT_PREDICTIONS_LIMIT")
	}

	elevEnabled := true
	if v := os.Getenv("ELEVATION_ENABLED"); v != "" {
		elevEnabled, err = strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid ELEVATION_ENABLED")
		}
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL: sharedcfg.EnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org"),
		OpenWeatherTimeout: owTimeout,

		ElevationEnabled:  elevEnabled,
		ElevationBaseURL:  sharedcfg.EnvOrDefault("ELEVATION_BASE_URL", "https://api.open-elevation.com"),
		ElevationTimeout:  elevTimeout,
		ElevationCacheTTL: elevCacheTTL,
		ElevationDefaultM: elevDefault,

		FloodDataPath:    sharedcfg.EnvOrDefault("FLOOD_DATA_PATH", "data/flood_risk_dataset_india.csv"),
		CycloneDataPath:  sharedcfg.EnvOrDefault("CYCLONE_DATA_PATH", "data/Cyclone_Risk_Data.csv"),
		FloodModelPath:   sharedcfg.EnvOrDefault("FLOOD_MODEL_PATH", "models/flood_model.json"),
		CycloneModelPath: sharedcfg.EnvOrDefault("CYCLONE_MODEL_PATH", "models/cyclone_model.json"),
		FeatureRulesFile: os.Getenv("FEATURE_RULES_FILE"),

		DBPath:                 sharedcfg.EnvOrDefault("DB_PATH", "users.db"),
		SecretKey:              os.Getenv("SECRET_KEY"),
		SessionTTL:             sessionTTL,
		AdminEmail:             sharedcfg.EnvOrDefault("ADMIN_EMAIL", "admin@example.com"),
		RecentPredictionsLimit: recentLimit,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "risk-assessments"),
	}

	if cfg.OpenWeatherAPIKey == "" {
		return nil, errors.New("OPENWEATHER_API_KEY is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("SECRET_KEY is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// PublishingEnabled reports whether completed assessments go to Kafka.
func (c *Config) PublishingEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
