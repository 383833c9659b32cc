package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "migrations", cfg.Database.MigrationsPath)
	assert.Equal(t, 60*time.Second, cfg.Cache.CatalogTTL)
	assert.Equal(t, "en", cfg.Search.DefaultLanguage)
	assert.Contains(t, cfg.Search.Languages, "hi")
	assert.Equal(t, 200, cfg.Search.MaxQueryLength)
	assert.Equal(t, 10, cfg.Suggestions.DefaultLimit)
	assert.Equal(t, 50, cfg.Suggestions.MaxLimit)
	assert.Zero(t, cfg.Suggestions.RetentionDays)
	assert.Zero(t, cfg.Analytics.RetentionDays)
	assert.Equal(t, 1024, cfg.Recorder.QueueSize)
	assert.Equal(t, 5*time.Second, cfg.Recorder.TaskTimeout)
	assert.Empty(t, cfg.Maintenance.Schedule)
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
database:
  driver: SQLite
  url: /tmp/search.db
search:
  languages: [EN, " hi "]
analytics:
  retention_days: 90
maintenance:
  schedule: "@daily"
recorder:
  task_timeout: 250ms
`)))

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, []string{"en", "hi"}, cfg.Search.Languages)
	assert.Equal(t, 90, cfg.Analytics.RetentionDays)
	assert.Equal(t, "@daily", cfg.Maintenance.Schedule)
	assert.Equal(t, 250*time.Millisecond, cfg.Recorder.TaskTimeout)
}

func TestFromViper_Environment(t *testing.T) {
	t.Setenv("SEARCH_LANGUAGES", "en, ta")
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("DATABASE_URL", "")

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, []string{"en", "ta"}, cfg.Search.Languages)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := FromViper(viper.New())
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"missing url", func(c *Config) { c.Database.URL = "" }},
		{"no languages", func(c *Config) { c.Search.Languages = nil }},
		{"negative retention", func(c *Config) { c.Analytics.RetentionDays = -1 }},
		{"negative retries", func(c *Config) { c.Recorder.MaxRetries = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := valid()
	cfg.Database.Driver = "memory"
	cfg.Database.URL = ""
	assert.NoError(t, cfg.Validate())
}
