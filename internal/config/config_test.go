package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("ADMIN_USER_IDS", "1,42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.ReversalPolicy)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.IsAdmin(42))
	assert.False(t, cfg.IsAdmin(7))
}

func TestLoadRejectsUnknownReversalPolicy(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("REVERSAL_POLICY", "foo")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REVERSAL_POLICY")
}
