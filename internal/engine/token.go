package engine

import "fmt"

// Shape is the outline of a scoring token. Its base value comes from ShapeValues.
type Shape int

const (
	ShapeCircle   Shape = 1
	ShapeSquare   Shape = 2
	ShapeTriangle Shape = 3
	ShapeStar     Shape = 4
)

var shapeNames = map[Shape]string{
	ShapeCircle:   "circle",
	ShapeSquare:   "square",
	ShapeTriangle: "triangle",
	ShapeStar:     "star",
}

func (s Shape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return "unknown"
}

// Valid reports whether s is one of the four shapes.
func (s Shape) Valid() bool {
	_, ok := shapeNames[s]
	return ok
}

func (s Shape) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal shape %d: %w", int(s), ErrUnknownShape)
	}
	return []byte(s.String()), nil
}

func (s *Shape) UnmarshalText(b []byte) error {
	for k, n := range shapeNames {
		if n == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("shape %q: %w", b, ErrUnknownShape)
}

// AllShapes returns the shapes in table order.
func AllShapes() []Shape {
	return []Shape{ShapeCircle, ShapeSquare, ShapeTriangle, ShapeStar}
}

// Color is the tint of a scoring token. Its multiplier comes from ColorMultipliers.
type Color int

const (
	ColorRed    Color = 1
	ColorBlue   Color = 2
	ColorGreen  Color = 3
	ColorYellow Color = 4
)

var colorNames = map[Color]string{
	ColorRed:    "red",
	ColorBlue:   "blue",
	ColorGreen:  "green",
	ColorYellow: "yellow",
}

func (c Color) String() string {
	if n, ok := colorNames[c]; ok {
		return n
	}
	return "unknown"
}

// Valid reports whether c is one of the four colors.
func (c Color) Valid() bool {
	_, ok := colorNames[c]
	return ok
}

func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("marshal color %d: %w", int(c), ErrUnknownColor)
	}
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	for k, n := range colorNames {
		if n == string(b) {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("color %q: %w", b, ErrUnknownColor)
}

// AllColors returns the colors in table order.
func AllColors() []Color {
	return []Color{ColorRed, ColorBlue, ColorGreen, ColorYellow}
}

// Token is a scoring marker placed on a player's own grid.
type Token struct {
	Shape Shape `json:"shape"`
	Color Color `json:"color"`
}

func (t Token) String() string {
	return t.Color.String() + " " + t.Shape.String()
}

// Valid reports whether both the shape and the color are known.
func (t Token) Valid() bool {
	return t.Shape.Valid() && t.Color.Valid()
}
