package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBuiltInRule(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "missing"), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	assert.False(t, e.NextState(true, 1))
	assert.True(t, e.NextState(true, 2))
	assert.True(t, e.NextState(true, 3))
	assert.False(t, e.NextState(true, 4))
	assert.True(t, e.NextState(false, 3))
	assert.False(t, e.NextState(false, 2))
}

func TestScriptOverridesRule(t *testing.T) {
	dir := t.TempDir()
	// HighLife: B36/S23
	script := `
function next_state(alive, n)
  if alive then return n == 2 or n == 3 end
  return n == 3 or n == 6
end
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "highlife.lua"), []byte(script), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	e, err := NewEngine(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()
	assert.True(t, e.NextState(false, 6))
	assert.False(t, e.NextState(true, 6))
}

func TestScriptErrorKeepsState(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.lua"), []byte(`function next_state() error("boom") end`), 0o644))

	e, err := NewEngine(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()
	assert.True(t, e.NextState(true, 0))
	assert.False(t, e.NextState(false, 3))
}

func TestSyntaxErrorFailsLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.lua"), []byte(`function (`), 0o644))
	_, err := NewEngine(dir, zaptest.NewLogger(t))
	assert.Error(t, err)
}
