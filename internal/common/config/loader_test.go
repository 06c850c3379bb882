package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
app:
  name: toppick-workers
  environment: test
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: catalog
    user: catalog
    password: ${TEST_PG_PASSWORD}
  redis:
    address: localhost:6379
catalog:
  backend: postgres
  cache_enabled: true
workers:
  select-top-pick:
    enabled: true
    max_jobs_active: 2
  announce-top-pick:
    enabled: false
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	t.Setenv("TEST_PG_PASSWORD", "s3cret")

	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "localhost:26500", cfg.Camunda.BrokerAddress)
	assert.Equal(t, 10, cfg.Camunda.MaxJobsActive)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)

	assert.Equal(t, BackendPostgres, cfg.Catalog.Backend)
	assert.Equal(t, "products", cfg.Catalog.Index)
	assert.Equal(t, DefaultCandidateLimit, cfg.Catalog.CandidateLimit)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.CacheTTL())
	assert.True(t, cfg.Catalog.CacheEnabled)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr())
}

func TestLoadFromFile_EnvOverride(t *testing.T) {
	t.Setenv("CATALOG_BACKEND", "elasticsearch")
	t.Setenv("DATABASE_ELASTICSEARCH_URL", "http://es:9200")
	t.Setenv("SERVER_PORT", "9191")

	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, BackendElasticsearch, cfg.Catalog.Backend)
	assert.Equal(t, []string{"http://es:9200"}, cfg.Database.Elasticsearch.GetAddresses())
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestLoadFromFile_Workers(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	w := GetWorkerConfig(cfg, "select-top-pick")
	assert.True(t, w.Enabled)
	assert.Equal(t, 2, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)

	assert.False(t, IsWorkerEnabled(cfg, "announce-top-pick"))
	assert.True(t, IsWorkerEnabled(cfg, "fetch-top-pick-candidates"))
	assert.Equal(t, 5, GetWorkerConfig(cfg, "fetch-top-pick-candidates").MaxJobsActive)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{
			Camunda: CamundaConfig{BrokerAddress: "localhost:26500"},
			Database: DatabaseConfig{
				Postgres: PostgresConfig{Host: "db", Database: "catalog", User: "u"},
			},
		}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "missing broker",
			mutate:  func(c *Config) { c.Camunda.BrokerAddress = "" },
			wantErr: "camunda.broker_address",
		},
		{
			name:    "missing postgres host",
			mutate:  func(c *Config) { c.Database.Postgres.Host = "" },
			wantErr: "database.postgres.host",
		},
		{
			name: "elasticsearch without addresses",
			mutate: func(c *Config) {
				c.Catalog.Backend = BackendElasticsearch
			},
			wantErr: "database.elasticsearch",
		},
		{
			name: "elasticsearch ignores postgres",
			mutate: func(c *Config) {
				c.Catalog.Backend = BackendElasticsearch
				c.Database.Postgres = PostgresConfig{}
				c.Database.Elasticsearch.Addresses = []string{"http://es:9200"}
			},
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Catalog.Backend = "mongo" },
			wantErr: "catalog.backend",
		},
		{
			name:    "cache without redis",
			mutate:  func(c *Config) { c.Catalog.CacheEnabled = true },
			wantErr: "database.redis.address",
		},
		{
			name:    "announcements without topic",
			mutate:  func(c *Config) { c.Announcements.Enabled = true },
			wantErr: "announcements.topic_arn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

func TestPostgresDSN(t *testing.T) {
	pg := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "catalog", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=catalog sslmode=disable", pg.GetDSN())
}
