package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kmtrend/pagerelay/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
webhook:
  verify_token: handshake-secret
pages:
  "1234567890": page-token-a
  "0987654321": page-token-b
messenger:
  timeout: 5s
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "handshake-secret", cfg.Webhook.VerifyToken)
	require.Equal(t, "page-token-a", cfg.Pages["1234567890"])
	require.Len(t, cfg.Pages, 2)
	require.Equal(t, 5*time.Second, cfg.Messenger.Timeout)

	// Defaults fill in everything else.
	require.Equal(t, config.DefaultLogLevel, cfg.Log.Level)
	require.Equal(t, config.DefaultServerAddr, cfg.Server.Addr)
	require.Equal(t, config.DefaultMessengerBaseURL, cfg.Messenger.BaseURL)
	require.Equal(t, config.DefaultReplyTemplate, cfg.Reply.Template)

	maintenance, ok := cfg.Scheduler.Tasks["sql_maintenance"]
	require.True(t, ok)
	require.True(t, maintenance.Enabled)
	require.Equal(t, config.DefaultMaintenanceSchedule, maintenance.Schedule)
}

func TestLoadConfig_MissingVerifyToken(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
`)

	_, err := config.LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_InvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
webhook:
  verify_token: handshake-secret
log:
  level: loud
`)

	_, err := config.LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("RELAY_WEBHOOK_VERIFY_TOKEN", "env-secret")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "env-secret", cfg.Webhook.VerifyToken)
}
