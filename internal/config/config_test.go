package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.True(t, cfg.GuestFavorites)
}

func TestLoad_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr = ":9090"
remote_backend = "postgres"
local_backend = "redis"
notifier = "kafka"
kafka_brokers = ["k1:9092", "k2:9092"]
remote_timeout = "3s"
guest_favorites = false

[postgres]
host = "db"
db_name = "shop"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, RemotePostgres, cfg.RemoteBackend)
	assert.Equal(t, LocalRedis, cfg.LocalBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3*time.Second, cfg.RemoteTimeout)
	assert.False(t, cfg.GuestFavorites)
	assert.Equal(t, "db", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "shop", cfg.Postgres.DBName)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.toml")
	require.NoError(t, os.WriteFile(path, []byte(`remote_backend = "postgres"`), 0o600))
	t.Setenv("STOREFRONT_REMOTE_BACKEND", "mongo")
	t.Setenv("STOREFRONT_KAFKA_BROKERS", "a:1,b:2")
	t.Setenv("STOREFRONT_REMOTE_TIMEOUT", "250ms")
	t.Setenv("STOREFRONT_GUEST_FAVORITES", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, RemoteMongo, cfg.RemoteBackend)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.KafkaBrokers)
	assert.Equal(t, 250*time.Millisecond, cfg.RemoteTimeout)
	assert.False(t, cfg.GuestFavorites)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "unknown remote", env: map[string]string{"STOREFRONT_REMOTE_BACKEND": "dynamo"}},
		{name: "unknown local", env: map[string]string{"STOREFRONT_LOCAL_BACKEND": "etcd"}},
		{name: "unknown notifier", env: map[string]string{"STOREFRONT_NOTIFIER": "nats"}},
		{name: "bad duration", env: map[string]string{"STOREFRONT_REMOTE_TIMEOUT": "soon"}},
		{name: "bad bool", env: map[string]string{"STOREFRONT_GUEST_FAVORITES": "maybe"}},
		{name: "bad toml", file: "remote_backend = "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = filepath.Join(t.TempDir(), "storefront.toml")
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0o600))
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
