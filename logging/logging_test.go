package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "riskgate.log")
	log, sync, err := New(Options{Level: "info", OutputPaths: []string{path}})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("tick", "state", "IDLE", "position", 3)
	require.NoError(t, sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"tick"`)
	assert.Contains(t, out, `"state":"IDLE"`)
	assert.Contains(t, out, `"position":3`)
	assert.NotContains(t, out, "hidden")
}

func TestNewRejectsBadLevel(t *testing.T) {
	t.Parallel()

	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { Nop().Info("nothing", "k", 1) })
}
