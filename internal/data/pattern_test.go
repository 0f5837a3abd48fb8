package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blinker = `
name: blinker
width: 5
height: 5
alive:
  - {x: 1, y: 2}
  - {x: 2, y: 2}
  - {x: 3, y: 2}
`

func TestLoadPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blinker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(blinker), 0o644))

	p, err := LoadPattern(path)
	require.NoError(t, err)
	assert.Equal(t, "blinker", p.Name)
	assert.Equal(t, int32(5), p.Width)
	assert.Equal(t, 3, p.Count())
	assert.Equal(t, Point{X: 2, Y: 2}, p.Alive[1])
}

func TestParsePatternRejects(t *testing.T) {
	cases := map[string]string{
		"empty grid": "name: x\nwidth: 0\nheight: 3\n",
		"outside":    "name: x\nwidth: 2\nheight: 2\nalive: [{x: 2, y: 0}]\n",
		"duplicate":  "name: x\nwidth: 2\nheight: 2\nalive: [{x: 1, y: 1}, {x: 1, y: 1}]\n",
		"bad yaml":   "name: [\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePattern([]byte(doc))
			assert.Error(t, err)
		})
	}
}
