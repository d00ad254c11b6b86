package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper() {
	viper.Reset()
}

func TestLoad(t *testing.T) {
	t.Run("默认配置", func(t *testing.T) {
		resetViper()
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Empty(t, cfg.Database.DSN)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "text-embedding-004", cfg.Gemini.EmbeddingModel)
		assert.Equal(t, 30*time.Second, cfg.Gemini.Timeout)
		assert.Equal(t, 100, cfg.Search.DefaultLimit)
		assert.InDelta(t, 0.5, cfg.Search.SemanticThreshold, 1e-9)
		assert.InDelta(t, 0.85, cfg.Search.DuplicateThreshold, 1e-9)
		assert.Equal(t, 5, cfg.Search.DuplicateLimit)
		assert.Equal(t, 24*time.Hour, cfg.Usage.Retention)
	})

	t.Run("环境变量覆盖默认值", func(t *testing.T) {
		resetViper()
		t.Setenv("FLOODWATCH_SERVER_PORT", "9090")
		t.Setenv("FLOODWATCH_LOG_LEVEL", "debug")
		t.Setenv("FLOODWATCH_GEMINI_API_KEY", "test-key")
		t.Setenv("FLOODWATCH_SEARCH_DEFAULT_LIMIT", "50")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "test-key", cfg.Gemini.APIKey)
		assert.Equal(t, 50, cfg.Search.DefaultLimit)
	})

	t.Run("逗号分隔的来源列表", func(t *testing.T) {
		resetViper()
		t.Setenv("FLOODWATCH_CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	})

	t.Run("非法相似度阈值返回错误", func(t *testing.T) {
		resetViper()
		t.Setenv("FLOODWATCH_SEARCH_SEMANTIC_THRESHOLD", "1.5")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("非法时长回退默认值", func(t *testing.T) {
		resetViper()
		t.Setenv("FLOODWATCH_GEMINI_TIMEOUT", "not-a-duration")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, cfg.Gemini.Timeout)
	})

	t.Run("非正数条数回退默认值", func(t *testing.T) {
		resetViper()
		t.Setenv("FLOODWATCH_SEARCH_DUPLICATE_LIMIT", "0")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Search.DuplicateLimit)
	})
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseList("a, b"))
	assert.Empty(t, parseList("  ,  "))
	assert.Equal(t, []string{"*"}, parseList("*"))
}
