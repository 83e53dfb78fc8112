package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Store selection: "memory" for the single-actor in-memory store,
	// "sqlite" for the durable mirror.
	StoreDriver string `mapstructure:"store_driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`

	// Weather lookup configuration.
	WeatherEnabled   bool          `mapstructure:"weather_enabled"`
	WeatherBaseURL   string        `mapstructure:"weather_base_url"`
	WeatherTimeout   time.Duration `mapstructure:"weather_timeout"`
	WeatherCacheSize int           `mapstructure:"weather_cache_size"`

	// Reverse geocoding configuration.
	GeocodeEnabled bool          `mapstructure:"geocode_enabled"`
	GeocodeBaseURL string        `mapstructure:"geocode_base_url"`
	GeocodeTimeout time.Duration `mapstructure:"geocode_timeout"`

	// Event feed configuration (optional Kafka side channel).
	KafkaEnabled bool     `mapstructure:"kafka_enabled"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`

	// Fallback coordinate substituted when location acquisition fails.
	FallbackLat float64 `mapstructure:"fallback_lat"`
	FallbackLng float64 `mapstructure:"fallback_lng"`
}

// Load reads configuration from CIVIC_-prefixed environment variables,
// applying defaults where unset.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("civic")
	v.AutomaticEnv()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("shutdown_timeout", "10s")

	v.SetDefault("store_driver", "memory")
	v.SetDefault("sqlite_path", "./civic-reports.db")

	v.SetDefault("weather_enabled", true)
	v.SetDefault("weather_base_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("weather_timeout", "5s")
	v.SetDefault("weather_cache_size", 1000)

	v.SetDefault("geocode_enabled", true)
	v.SetDefault("geocode_base_url", "https://nominatim.openstreetmap.org/reverse")
	v.SetDefault("geocode_timeout", "5s")

	v.SetDefault("kafka_enabled", false)
	v.SetDefault("kafka_brokers", "localhost:9092")
	v.SetDefault("kafka_topic", "civic-report-events")

	// Same demo coordinate the map view centers on when no live position
	// is available.
	v.SetDefault("fallback_lat", 20.5937)
	v.SetDefault("fallback_lng", 78.9629)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// AutomaticEnv delivers list values as a single string.
	cfg.KafkaBrokers = splitBrokers(v.GetString("kafka_brokers"))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("CIVIC_HTTP_ADDR is required")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("invalid CIVIC_SHUTDOWN_TIMEOUT")
	}
	if c.StoreDriver != "memory" && c.StoreDriver != "sqlite" {
		return fmt.Errorf("unknown CIVIC_STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreDriver == "sqlite" && c.SQLitePath == "" {
		return errors.New("CIVIC_SQLITE_PATH is required when store driver is sqlite")
	}
	if c.WeatherEnabled {
		if c.WeatherBaseURL == "" {
			return errors.New("CIVIC_WEATHER_BASE_URL is required when weather is enabled")
		}
		if c.WeatherTimeout <= 0 {
			return errors.New("invalid CIVIC_WEATHER_TIMEOUT")
		}
		if c.WeatherCacheSize <= 0 {
			return errors.New("invalid CIVIC_WEATHER_CACHE_SIZE")
		}
	}
	if c.GeocodeEnabled {
		if c.GeocodeBaseURL == "" {
			return errors.New("CIVIC_GEOCODE_BASE_URL is required when geocoding is enabled")
		}
		if c.GeocodeTimeout <= 0 {
			return errors.New("invalid CIVIC_GEOCODE_TIMEOUT")
		}
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("CIVIC_KAFKA_BROKERS is required when the event feed is enabled")
		}
		if c.KafkaTopic == "" {
			return errors.New("CIVIC_KAFKA_TOPIC is required when the event feed is enabled")
		}
	}
	return nil
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
