package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, 10*time.Minute, cfg.DirectoryCacheTTL)
	assert.Equal(t, 8, cfg.InsertConcurrency)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.NotNil(t, cfg.Location())
	assert.False(t, cfg.Production())
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("TIMEZONE", "Asia/Manila")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, "Asia/Manila", cfg.Location().String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "backend", key: "STORE_BACKEND", val: "mongo"},
		{name: "timezone", key: "TIMEZONE", val: "Mars/Olympus"},
		{name: "concurrency", key: "BATCH_INSERT_CONCURRENCY", val: "0"},
		{name: "duration", key: "DIRECTORY_CACHE_TTL", val: "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}
