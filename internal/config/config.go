package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. EV_DASHBOARD_SERVER_PORT
const EnvPrefix = "EV_DASHBOARD"

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Congestion CongestionConfig `mapstructure:"congestion"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	Gzip         bool          `mapstructure:"gzip"`
}

// DatabaseConfig holds relational store configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// CacheConfig holds TTLs of the read-through caches
type CacheConfig struct {
	SubsidyTTL    time.Duration `mapstructure:"subsidy_ttl"`
	FAQTTL        time.Duration `mapstructure:"faq_ttl"`
	CongestionTTL time.Duration `mapstructure:"congestion_ttl"`
}

// CongestionConfig holds the charging-load source settings
type CongestionConfig struct {
	// Source is a local .csv/.xlsx path or an s3://bucket/key URI
	Source         string `mapstructure:"source"`
	Sheet          string `mapstructure:"sheet"`
	Timezone       string `mapstructure:"timezone"`
	DateColumn     string `mapstructure:"date_column"`
	CategoryColumn string `mapstructure:"category_column"`
	HourSuffix     string `mapstructure:"hour_suffix"`
	S3Region       string `mapstructure:"s3_region"`
	S3Endpoint     string `mapstructure:"s3_endpoint"`
}

// MQTTConfig holds the optional congestion publisher configuration
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

// LoadConfig loads .env, then the file named by EV_DASHBOARD_CONFIG
// (or ./config.yaml when present), then environment overrides.
func LoadConfig() (*Config, error) {
	return LoadConfigFile("")
}

// LoadConfigFile is LoadConfig with an explicit file path taking
// precedence over EV_DASHBOARD_CONFIG
func LoadConfigFile(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return Load(path)
}

// Load reads configuration from an optional file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
// Every key needs a default for AutomaticEnv to pick up its override.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.gzip", true)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "ev")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "ev_dashboard")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	v.SetDefault("logging.level", "info")

	v.SetDefault("cache.subsidy_ttl", "1h")
	v.SetDefault("cache.faq_ttl", "10m")
	v.SetDefault("cache.congestion_ttl", "1h")

	v.SetDefault("congestion.source", "./data/ev_charging_load.csv")
	v.SetDefault("congestion.sheet", "")
	v.SetDefault("congestion.timezone", "Asia/Seoul")
	v.SetDefault("congestion.date_column", "일자")
	v.SetDefault("congestion.category_column", "충전방식")
	v.SetDefault("congestion.hour_suffix", "시")
	v.SetDefault("congestion.s3_region", "ap-northeast-2")
	v.SetDefault("congestion.s3_endpoint", "")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "ev-dashboard")
	v.SetDefault("mqtt.topic_prefix", "ev_dashboard/congestion")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535"))
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			errs = append(errs, fmt.Errorf("database.host is required for postgres"))
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be one of: postgres, sqlite"))
	}
	if c.Database.Database == "" {
		errs = append(errs, fmt.Errorf("database.database is required"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errs = append(errs, fmt.Errorf("logging.level must be one of: debug, info, warn, error"))
	}

	if c.Cache.SubsidyTTL <= 0 || c.Cache.FAQTTL <= 0 || c.Cache.CongestionTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache TTLs must be positive"))
	}

	if c.Congestion.Source == "" {
		errs = append(errs, fmt.Errorf("congestion.source is required"))
	}
	if _, err := time.LoadLocation(c.Congestion.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("congestion.timezone is invalid: %w", err))
	}
	if c.Congestion.DateColumn == "" || c.Congestion.CategoryColumn == "" || c.Congestion.HourSuffix == "" {
		errs = append(errs, fmt.Errorf("congestion date_column, category_column and hour_suffix are required"))
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, fmt.Errorf("mqtt.broker is required when mqtt is enabled"))
	}

	return errors.Join(errs...)
}

// Location returns the timezone used for the wall-clock congestion hour
func (c *CongestionConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
