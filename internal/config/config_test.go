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

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("Reads values from the file", func(t *testing.T) {
		// Given: a config file with every section
		path := writeConfig(t, `
log-level: debug
http-port: "8080"
socket-port: "8081"
storage: memory
game-ttl: 1h
redis:
  host: redis.local
  port: "6380"
bot:
  delay: 250ms
  difficulty: medium
`)

		// When: loading it
		conf, err := Load(path)
		require.NoError(t, err)

		// Then: the values are taken from the file
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "8080", conf.HTTPPort)
		assert.Equal(t, "8081", conf.SocketPort)
		assert.Equal(t, StorageMemory, conf.Storage)
		assert.Equal(t, time.Hour, conf.GameTTL)
		assert.Equal(t, "redis.local:6380", conf.Redis.GetRedisAddr())
		assert.Equal(t, 250*time.Millisecond, conf.Bot.Delay)
		assert.Equal(t, "medium", conf.Bot.Difficulty)
	})

	t.Run("Applies defaults", func(t *testing.T) {
		// Given: an almost empty config file
		path := writeConfig(t, "log-level: info\n")

		// When: loading it
		conf, err := Load(path)
		require.NoError(t, err)

		// Then: the defaults are used
		assert.Equal(t, "9090", conf.HTTPPort)
		assert.Equal(t, StorageRedis, conf.Storage)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
		assert.Equal(t, 500*time.Millisecond, conf.Bot.Delay)
		assert.Equal(t, "hard", conf.Bot.Difficulty)
	})

	t.Run("Fails on a missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))

		assert.Error(t, err)
	})

	t.Run("MustLoad panics on a missing file", func(t *testing.T) {
		assert.Panics(t, func() {
			MustLoad(filepath.Join(t.TempDir(), "missing.yml"))
		})
	})
}
