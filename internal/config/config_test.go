package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 6, cfg.Browser.SlotCount)
	assert.Equal(t, 3, cfg.Challenge.MaxCycles)
	assert.Equal(t, 60*time.Second, cfg.Challenge.TimeBudget)
	assert.NotEmpty(t, cfg.Challenge.ImageSelectors)
	assert.NotEmpty(t, cfg.Consent.AcceptPhrases)
}

func TestLoadConfigFromYAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("JOBLEADS_TEST_KEY", "secret-key")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
browser:
  slot_count: 4
challenge:
  provider: claude
  api_key: ${JOBLEADS_TEST_KEY}
  max_cycles: 2
  image_selectors:
    - "#captcha"
enrichment:
  target_base_url: https://jobs.example.org/detail/
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Browser.SlotCount)
	assert.Equal(t, "claude", cfg.Challenge.Provider)
	assert.Equal(t, "secret-key", cfg.Challenge.APIKey)
	assert.Equal(t, []string{"#captcha"}, cfg.Challenge.ImageSelectors)
	assert.Equal(t, "https://jobs.example.org/detail/", cfg.Enrichment.TargetBaseURL)
	// untouched sections keep their defaults
	assert.Equal(t, 60*time.Second, cfg.Challenge.TimeBudget)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7001")
	t.Setenv("BROWSER_SLOT_COUNT", "2")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Browser.SlotCount)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Browser.SlotCount = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Challenge.Provider = "anticaptcha"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Challenge.MinLength = 9
	cfg.Challenge.MaxLength = 4
	assert.Error(t, cfg.Validate())
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("JL_A", "alpha")
	assert.Equal(t, "alpha-alpha-${JL_MISSING}", expandEnvVars("${JL_A}-$JL_A-${JL_MISSING}"))
}
