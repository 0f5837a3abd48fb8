package component

import "fmt"

// Position is a grid coordinate.
type Position struct {
	X int32
	Y int32
}

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Neighbours returns the eight surrounding positions that lie inside a
// width x height grid.
func (p Position) Neighbours(width, height int32) []Position {
	out := make([]Position, 0, 8)
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n := Position{X: p.X + dx, Y: p.Y + dy}
			if n.X < 0 || n.Y < 0 || n.X >= width || n.Y >= height {
				continue
			}
			out = append(out, n)
		}
	}
	return out
}

// Cell places an entity on the life grid. The position index is keyed by
// Cell.Pos.
type Cell struct {
	Pos Position
}

// Life is a cell's state.
type Life uint8

const (
	Dead Life = iota
	Alive
)

func (l Life) String() string {
	if l == Alive {
		return "alive"
	}
	return "dead"
}
