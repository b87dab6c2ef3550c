package types

// Point is a position in viewport or page coordinates depending on context.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle in page coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// RectBetween builds the rectangle spanned by two corner points in any
// orientation. Width and height are always non-negative.
func RectBetween(a, b Point) Rect {
	x, w := a.X, b.X-a.X
	if w < 0 {
		x, w = b.X, -w
	}
	y, h := a.Y, b.Y-a.Y
	if h < 0 {
		y, h = b.Y, -h
	}
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// Contains reports whether r fully contains other.
func (r Rect) Contains(other Rect) bool {
	return other.X >= r.X &&
		other.Y >= r.Y &&
		other.X+other.Width <= r.X+r.Width &&
		other.Y+other.Height <= r.Y+r.Height
}

// Intersects reports whether r and other overlap by any positive area.
func (r Rect) Intersects(other Rect) bool {
	return r.X < other.X+other.Width &&
		r.X+r.Width > other.X &&
		r.Y < other.Y+other.Height &&
		r.Y+r.Height > other.Y
}

// IsZero reports whether the rectangle is the zero value.
func (r Rect) IsZero() bool {
	return r == Rect{}
}

// Bounds describes an element's rendered box, including presentation
// details the overlay needs to mirror the element's appearance.
type Bounds struct {
	X            float64
	Y            float64
	Width        float64
	Height       float64
	BorderRadius string
	Transform    string
}

// Rect returns the positional part of the bounds.
func (b Bounds) Rect() Rect {
	return Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}
