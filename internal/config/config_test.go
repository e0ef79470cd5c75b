package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, "mysql:\n  host: db\n  port: 3306\n"))
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Server.HTTPPort)
		assert.Equal(t, "debug", cfg.Server.Mode)
		assert.Equal(t, uint16(1), cfg.Server.NodeId)
		assert.Equal(t, 5*time.Second, cfg.MySQL.TxTimeout)
		assert.Equal(t, "chat:", cfg.Redis.KeyPrefix)
		assert.Equal(t, "redis", cfg.Notify.Driver)
		assert.Equal(t, 4, cfg.Notify.Workers)
		assert.Equal(t, "/metrics", cfg.Metrics.Path)
		assert.Same(t, cfg, GlobalConfig)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `
server:
  http_port: 9000
mysql:
  tx_timeout: 250ms
notify:
  driver: nats
  nats_url: nats://broker:4222
`))
		require.NoError(t, err)

		assert.Equal(t, 9000, cfg.Server.HTTPPort)
		assert.Equal(t, 250*time.Millisecond, cfg.MySQL.TxTimeout)
		assert.Equal(t, "nats", cfg.Notify.Driver)
		assert.Equal(t, "nats://broker:4222", cfg.Notify.NatsURL)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("dsn", func(t *testing.T) {
		c := MySQLConfig{User: "u", Password: "p", Host: "h", Port: 1, Database: "d", Charset: "utf8mb4"}
		assert.Equal(t, "u:p@tcp(h:1)/d?charset=utf8mb4&parseTime=True&loc=Local", c.DSN())
	})
}
