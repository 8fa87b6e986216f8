package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Database.MaxRetries)
	assert.Equal(t, 2000, cfg.Database.RetryStepMs)
	assert.Equal(t, 5, cfg.Database.ReconnectDelaySec)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 3, cfg.LLM.Retries)
	assert.Equal(t, 40, cfg.LLM.TopK)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 0.0001)
	assert.Equal(t, 1500, cfg.LLM.MaxOutputTokens)
	assert.True(t, cfg.Assistant.Rules.Refusal)
	assert.True(t, cfg.Assistant.Rules.AppendLink)
	assert.Equal(t, 10, cfg.RateLimit.ChatPerMinute)
	assert.Empty(t, cfg.Server.ProxyHeader)
	assert.Empty(t, cfg.LLM.BaseURL)
}

func TestLoadFile_ProxySettings(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "server:\n  proxyHeader: X-Forwarded-For\n  trustedProxies:\n    - 10.0.0.1\n"))
	require.NoError(t, err)

	assert.Equal(t, "X-Forwarded-For", cfg.Server.ProxyHeader)
	assert.Equal(t, []string{"10.0.0.1"}, cfg.Server.TrustedProxies)
}

func TestLoadFile_EnvOverride(t *testing.T) {
	t.Setenv("PORTFOLIO_LLM_APIKEY", "secret-key")
	t.Setenv("PORTFOLIO_DATABASE_MAXRETRIES", "5")

	cfg, err := LoadFile(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "secret-key", cfg.LLM.APIKey)
	assert.Equal(t, 5, cfg.Database.MaxRetries)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFile_RuleToggle(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "assistant:\n  rules:\n    missingKnowledge: false\n"))
	require.NoError(t, err)

	assert.False(t, cfg.Assistant.Rules.MissingKnowledge)
	assert.True(t, cfg.Assistant.Rules.Refusal)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "database:\n  driver: oracle\n"},
		{"zero timeout", "database:\n  queryTimeoutMs: 0\n"},
		{"zero retries", "database:\n  maxRetries: 0\n"},
		{"unknown provider", "llm:\n  provider: parrot\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
