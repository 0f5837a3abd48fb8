package component

// Shape tags a token; tokens are looked up by shape.
type Shape uint8

const (
	Square Shape = iota
	Star
	Circle
	Moon
)

var shapeNames = [...]string{"square", "star", "circle", "moon"}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return "unknown"
}

// Score is a token's point value.
type Score struct {
	Val int
}
