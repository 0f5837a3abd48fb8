package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Point is a live cell in a pattern file.
type Point struct {
	X int32 `yaml:"x"`
	Y int32 `yaml:"y"`
}

// Pattern is a starting grid for the life simulation.
type Pattern struct {
	Name   string  `yaml:"name"`
	Width  int32   `yaml:"width"`
	Height int32   `yaml:"height"`
	Alive  []Point `yaml:"alive"`
}

// LoadPattern loads a pattern YAML file.
func LoadPattern(path string) (*Pattern, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern: %w", err)
	}
	return ParsePattern(raw)
}

// ParsePattern decodes and checks a pattern document.
func ParsePattern(raw []byte) (*Pattern, error) {
	var p Pattern
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse pattern: %w", err)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("pattern %q: grid %dx%d is empty", p.Name, p.Width, p.Height)
	}
	seen := make(map[Point]bool, len(p.Alive))
	for _, pt := range p.Alive {
		if pt.X < 0 || pt.Y < 0 || pt.X >= p.Width || pt.Y >= p.Height {
			return nil, fmt.Errorf("pattern %q: cell (%d,%d) outside %dx%d grid", p.Name, pt.X, pt.Y, p.Width, p.Height)
		}
		if seen[pt] {
			return nil, fmt.Errorf("pattern %q: cell (%d,%d) listed twice", p.Name, pt.X, pt.Y)
		}
		seen[pt] = true
	}
	return &p, nil
}

// Count returns the number of live cells in the pattern.
func (p *Pattern) Count() int {
	return len(p.Alive)
}
