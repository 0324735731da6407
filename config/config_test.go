package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwallet-labs/mpc-core/config"
	"github.com/dwallet-labs/mpc-core/protocol"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, uint64(64), cfg.MaxActiveUserSessions)
	assert.Equal(t, uint64(0), cfg.DelayFor(protocol.Sign))
}

func TestDelayForFallsBackToDefault(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultDelay = 3
	cfg.Delays["Sign"] = 1
	assert.EqualValues(t, 1, cfg.DelayFor(protocol.Sign))
	assert.EqualValues(t, 3, cfg.DelayFor(protocol.Presign))
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "max_active_user_sessions: 8\ndelays:\n  Sign: 2\nevent_reorder_buffer: 32\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.EqualValues(t, 8, cfg.MaxActiveUserSessions)
	assert.EqualValues(t, 2, cfg.DelayFor(protocol.Sign))
	assert.Equal(t, 32, cfg.EventReorderBuffer)
}

func TestLoadRejectsNonPositiveBuffer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("event_reorder_buffer: 0\n"), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)
}
