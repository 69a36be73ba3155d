package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobleads/internal/config"
	"jobleads/internal/logging"
	"jobleads/internal/store"
)

func TestBuildWithDefaults(t *testing.T) {
	cfg := config.Default()

	a, err := Build(cfg, logging.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, "2captcha", a.Solver.Name())
	assert.IsType(t, store.NopSink{}, a.Sink)
	assert.False(t, a.Session.Healthy())
	assert.NoError(t, a.Close())
}

func TestBuildRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Challenge.Provider = "ocr"

	_, err := Build(cfg, logging.NewNopLogger())
	assert.Error(t, err)
}
