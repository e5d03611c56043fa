package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_PORT", "MAX_ROUNDS", "WS_OUTBOX_SIZE", "FAIL_ON_SILENT_ROUND", "OPENAI_API_KEY", "GOGO_MODE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 10, cfg.MaxRounds)
	assert.Equal(t, 6, cfg.MaxParticipants)
	assert.Equal(t, 256, cfg.OutboxSize)
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
	assert.False(t, cfg.FailOnSilentRound)
	assert.Empty(t, cfg.ProviderKeys["openai"])
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("MODEL_TIMEOUT_MS", "1500")
	t.Setenv("FAIL_ON_SILENT_ROUND", "true")
	t.Setenv("WS_INBOUND_RATE", "2.5")
	t.Setenv("MAX_ROUNDS", "not-a-number")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("XAI_BASE_URL", "http://localhost:9999/v1")

	cfg := Load()
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, 1500*time.Millisecond, cfg.ModelTimeout)
	assert.True(t, cfg.FailOnSilentRound)
	assert.InDelta(t, 2.5, cfg.InboundRate, 1e-9)
	assert.Equal(t, 10, cfg.MaxRounds)
	assert.Equal(t, "sk-ant", cfg.ProviderKeys["anthropic"])
	assert.Equal(t, "http://localhost:9999/v1", cfg.ProviderBaseURLs["xai"])
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, []string{"openai", "anthropic", "google", "deepseek", "xai"}, c.ProviderIDs())

	m, ok := c.Lookup("anthropic", "claude-3-opus-20240229")
	require.True(t, ok)
	assert.Equal(t, "Claude 3 Opus", m.Name)
	assert.Equal(t, "Anthropic", m.ProviderName)

	_, ok = c.Lookup("openai", "claude-3-opus-20240229")
	assert.False(t, ok)
	assert.Len(t, c.Models(), 13)

	d, ok := c.DefaultModel("deepseek")
	require.True(t, ok)
	assert.Equal(t, "deepseek-chat", d.ID)
	_, ok = c.DefaultModel("unknown")
	assert.False(t, ok)
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers:\n  - id: openai\n    name: OpenAI\n    models:\n      - id: gpt-4o\n"), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	models := c.Models()
	require.Len(t, models, 1)
	assert.Equal(t, "gpt-4o", models[0].Name)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("providers:\n  - id: a\n  - id: a\n"))
	assert.Error(t, err)
}
