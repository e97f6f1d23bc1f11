package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config aggregates all configuration settings for the application.
type Config struct {
	// Environment indicates the running environment (e.g., "development", "production").
	Environment string `mapstructure:"environment"`
	// LogLevel sets the global logging verbosity.
	LogLevel string `mapstructure:"log_level"`
	// Server holds configuration for the HTTP server.
	Server ServerConfig `mapstructure:"server"`
	// Database holds configuration for the database connection.
	Database DatabaseConfig `mapstructure:"database"`
	// Redis holds configuration for the Redis connection.
	Redis RedisConfig `mapstructure:"redis"`
	// Telemetry holds configuration for OpenTelemetry integration.
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	// Cache holds configuration for seasonal pattern caching.
	Cache CacheConfig `mapstructure:"cache"`
	// Analytics holds configuration for the analytics engine.
	Analytics AnalyticsConfig `mapstructure:"analytics"`
}

// ServerConfig defines the HTTP server settings.
type ServerConfig struct {
	// Port is the TCP port the server listens on.
	Port int `mapstructure:"port"`
	// AllowedOrigins is a list of CORS allowed origins.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig defines the PostgreSQL database connection settings.
type DatabaseConfig struct {
	// Host is the database server hostname or IP.
	Host string `mapstructure:"host"`
	// Port is the database server port.
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password.
	Password string `mapstructure:"password"`
	// DBName is the name of the database to connect to.
	DBName string `mapstructure:"dbname"`
	// SSLMode defines the SSL connection mode.
	SSLMode string `mapstructure:"sslmode"`
	// DatabaseURL is a connection string that can override individual fields.
	DatabaseURL string `mapstructure:"database_url"`
	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int `mapstructure:"max_open_conns"`
}

// RedisConfig defines the Redis connection settings.
type RedisConfig struct {
	// Host is the Redis server hostname.
	Host string `mapstructure:"host"`
	// Port is the Redis server port.
	Port int `mapstructure:"port"`
	// Password is the Redis authentication password.
	Password string `mapstructure:"password"`
	// DB is the Redis database index to use.
	DB int `mapstructure:"db"`
}

// TelemetryConfig defines settings for OpenTelemetry tracing.
type TelemetryConfig struct {
	// Enabled controls whether telemetry is active.
	Enabled bool `mapstructure:"enabled"`
	// OTLPEndpoint is the OTLP HTTP collector endpoint. Empty means spans go
	// to stdout.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	// ServiceName is the name of the service for tracing.
	ServiceName string `mapstructure:"service_name"`
	// ServiceVersion is the version of the service.
	ServiceVersion string `mapstructure:"service_version"`
}

// CacheConfig defines settings for the seasonal pattern cache.
type CacheConfig struct {
	// PatternTTL is the time-to-live string for cached seasonal patterns.
	PatternTTL string `mapstructure:"pattern_ttl"`
}

// AnalyticsConfig defines the tunable constants of the analytics engine.
// Defaults follow the values documented alongside each field; none of them is
// a hard-coded "correct" threshold.
type AnalyticsConfig struct {
	// MinForecastBuckets is the minimum number of observed buckets required
	// before forecasting is attempted. Default 30.
	MinForecastBuckets int `mapstructure:"min_forecast_buckets"`
	// MaxHorizon is the maximum forecast horizon in buckets. Default 365.
	MaxHorizon int `mapstructure:"max_horizon"`
	// SeasonalityThreshold is the minimum autocorrelation strength required
	// to report a seasonal pattern. Default 0.3.
	SeasonalityThreshold float64 `mapstructure:"seasonality_threshold"`
	// IntervalZ is the z-value used for forecast confidence intervals.
	// Default 1.28 (roughly an 80% interval).
	IntervalZ float64 `mapstructure:"interval_z"`
	// GridMin, GridMax and GridStep bound the smoothing parameter grid
	// searched when fitting exponential smoothing models.
	GridMin  float64 `mapstructure:"grid_min"`
	GridMax  float64 `mapstructure:"grid_max"`
	GridStep float64 `mapstructure:"grid_step"`
	// MinPricePoints is the minimum number of distinct price points with
	// non-zero quantity required for elasticity estimation. Default 5.
	MinPricePoints int `mapstructure:"min_price_points"`
	// PriceClampPercent bounds the suggested price relative to the current
	// price. Default 0.20 (plus or minus twenty percent).
	PriceClampPercent float64 `mapstructure:"price_clamp_percent"`
	// CurrentPriceWindow is the number of most recent observations averaged
	// to determine the current price. Zero means the single latest
	// observation is used.
	CurrentPriceWindow int `mapstructure:"current_price_window"`
	// StrongGrowthThreshold and the companions below are the trend
	// classification boundaries on growth rate.
	StrongGrowthThreshold   float64 `mapstructure:"strong_growth_threshold"`
	ModerateGrowthThreshold float64 `mapstructure:"moderate_growth_threshold"`
	DecliningThreshold      float64 `mapstructure:"declining_threshold"`
	// TrendSmoothingPeriod is the SMA window applied to bucket quantities
	// before acceleration is computed. Default 3.
	TrendSmoothingPeriod int `mapstructure:"trend_smoothing_period"`
	// RankingSize is the number of entries in each side of a trend ranking.
	// Default 5.
	RankingSize int `mapstructure:"ranking_size"`
	// MaxWorkers caps the worker pool for batch analysis. Zero lets the
	// resource optimizer decide.
	MaxWorkers int `mapstructure:"max_workers"`
}

// Load reads the configuration from the config file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bind standard DATABASE_URL
	_ = viper.BindEnv("database.database_url", "DATABASE_URL")
	_ = viper.BindEnv("telemetry.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults initializes the default configuration values in Viper.
func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "change-me-in-production")
	viper.SetDefault("database.dbname", "retailpulse")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_open_conns", 25)

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Telemetry
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.otlp_endpoint", "")
	viper.SetDefault("telemetry.service_name", "retailpulse")
	viper.SetDefault("telemetry.service_version", "1.0.0")

	// Cache
	viper.SetDefault("cache.pattern_ttl", "1h")

	// Analytics
	viper.SetDefault("analytics.min_forecast_buckets", 30)
	viper.SetDefault("analytics.max_horizon", 365)
	viper.SetDefault("analytics.seasonality_threshold", 0.3)
	viper.SetDefault("analytics.interval_z", 1.28)
	viper.SetDefault("analytics.grid_min", 0.05)
	viper.SetDefault("analytics.grid_max", 0.95)
	viper.SetDefault("analytics.grid_step", 0.05)
	viper.SetDefault("analytics.min_price_points", 5)
	viper.SetDefault("analytics.price_clamp_percent", 0.20)
	viper.SetDefault("analytics.current_price_window", 0)
	viper.SetDefault("analytics.strong_growth_threshold", 0.20)
	viper.SetDefault("analytics.moderate_growth_threshold", 0.05)
	viper.SetDefault("analytics.declining_threshold", -0.05)
	viper.SetDefault("analytics.trend_smoothing_period", 3)
	viper.SetDefault("analytics.ranking_size", 5)
	viper.SetDefault("analytics.max_workers", 0)
}

// validateConfig validates operational settings that would otherwise fail at
// request time.
func validateConfig(config *Config) error {
	a := config.Analytics
	if a.MinForecastBuckets < 2 {
		return fmt.Errorf("analytics.min_forecast_buckets must be at least 2, got %d", a.MinForecastBuckets)
	}
	if a.GridStep <= 0 || a.GridMin <= 0 || a.GridMax >= 1 || a.GridMin > a.GridMax {
		return fmt.Errorf("analytics grid bounds must satisfy 0 < min <= max < 1 with positive step")
	}
	if a.SeasonalityThreshold < 0 || a.SeasonalityThreshold > 1 {
		return fmt.Errorf("analytics.seasonality_threshold must be in [0,1], got %v", a.SeasonalityThreshold)
	}
	if a.PriceClampPercent <= 0 || a.PriceClampPercent >= 1 {
		return fmt.Errorf("analytics.price_clamp_percent must be in (0,1), got %v", a.PriceClampPercent)
	}
	if a.DecliningThreshold >= 0 || a.ModerateGrowthThreshold <= 0 || a.StrongGrowthThreshold <= a.ModerateGrowthThreshold {
		return fmt.Errorf("analytics trend thresholds must satisfy declining < 0 < moderate < strong")
	}
	return nil
}
