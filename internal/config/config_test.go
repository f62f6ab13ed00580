package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Cache.SubsidyTTL)
	assert.Equal(t, 10*time.Minute, cfg.Cache.FAQTTL)
	assert.Equal(t, "일자", cfg.Congestion.DateColumn)
	assert.Equal(t, "충전방식", cfg.Congestion.CategoryColumn)
	assert.Equal(t, "시", cfg.Congestion.HourSuffix)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: sqlite
  database: ./data/ev.db
cache:
  faq_ttl: 5m
congestion:
  source: s3://ev-data/load.xlsx
  sheet: Sheet1
`)
	t.Setenv("EV_DASHBOARD_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "./data/ev.db", cfg.Database.Database)
	assert.Equal(t, 5*time.Minute, cfg.Cache.FAQTTL)
	assert.Equal(t, "s3://ev-data/load.xlsx", cfg.Congestion.Source)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres without host", func(c *Config) { c.Database.Host = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"zero ttl", func(c *Config) { c.Cache.CongestionTTL = 0 }},
		{"empty source", func(c *Config) { c.Congestion.Source = "" }},
		{"bad timezone", func(c *Config) { c.Congestion.Timezone = "Mars/Olympus" }},
		{"missing hour suffix", func(c *Config) { c.Congestion.HourSuffix = "" }},
		{"mqtt without broker", func(c *Config) { c.MQTT.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCongestionConfig_Location(t *testing.T) {
	c := CongestionConfig{Timezone: "Asia/Seoul"}
	assert.Equal(t, "Asia/Seoul", c.Location().String())

	c.Timezone = "nowhere"
	assert.Equal(t, time.UTC, c.Location())
}

func TestLoadConfigFile_ExplicitPathWins(t *testing.T) {
	envPath := writeConfig(t, "server:\n  port: 7000\n")
	flagPath := writeConfig(t, "server:\n  port: 7001\n")
	t.Setenv(EnvPrefix+"_CONFIG", envPath)

	cfg, err := LoadConfigFile(flagPath)
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port)

	cfg, err = LoadConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}
