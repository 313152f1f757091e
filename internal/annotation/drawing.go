package annotation

import (
	"errors"
	"fmt"
	"strings"
)

// Gap (px) between a drawing's right edge and its attached note.
const attachedNoteGap = 30

// ErrPathTooShort a click without movement is not a drawing.
var ErrPathTooShort = errors.New("drawing path needs at least 2 points")

// PathBounds axis-aligned bounds of a freehand path
type PathBounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Width returns the horizontal extent.
func (b PathBounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent.
func (b PathBounds) Height() float64 { return b.MaxY - b.MinY }

// Center returns the midpoint of the bounds.
func (b PathBounds) Center() PathPoint {
	return PathPoint{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// ValidatePath rejects degenerate paths.
func ValidatePath(path []PathPoint) error {
	if len(path) < 2 {
		return ErrPathTooShort
	}
	return nil
}

// BoundsOf computes the bounds of a path.
func BoundsOf(path []PathPoint) PathBounds {
	if len(path) == 0 {
		return PathBounds{}
	}
	b := PathBounds{MinX: path[0].X, MinY: path[0].Y, MaxX: path[0].X, MaxY: path[0].Y}
	for _, p := range path[1:] {
		if p.X < b.MinX {
			b.MinX = p.X
		}
		if p.X > b.MaxX {
			b.MaxX = p.X
		}
		if p.Y < b.MinY {
			b.MinY = p.Y
		}
		if p.Y > b.MaxY {
			b.MaxY = p.Y
		}
	}
	return b
}

// NormalizePath shifts a path so its first point is the origin. Paths are
// stored relative to the drawing anchor.
func NormalizePath(path []PathPoint) []PathPoint {
	if len(path) == 0 {
		return nil
	}
	first := path[0]
	out := make([]PathPoint, len(path))
	for i, p := range path {
		out[i] = PathPoint{X: p.X - first.X, Y: p.Y - first.Y}
	}
	return out
}

// AttachedNoteOffset position of a drawing's note relative to the drawing
// anchor: just right of the path, vertically centered on it.
func AttachedNoteOffset(path []PathPoint) (dx, dy float64) {
	b := BoundsOf(path)
	return b.MaxX + attachedNoteGap, b.Center().Y
}

// PathToSVG serializes a path as an SVG path data string.
func PathToSVG(path []PathPoint) string {
	if len(path) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "M %g %g", path[0].X, path[0].Y)
	for _, p := range path[1:] {
		fmt.Fprintf(&sb, " L %g %g", p.X, p.Y)
	}
	return sb.String()
}
