package annotation

import (
	"math"
	"time"
)

// Context partitions annotations between the two host views.
type Context string

const (
	ContextTimeline Context = "timeline"
	ContextAnalysis Context = "analysis"
)

// Valid reports whether the context is one of the known views.
func (c Context) Valid() bool {
	return c == ContextTimeline || c == ContextAnalysis
}

// ColorID named sticky note color
type ColorID string

const (
	ColorYellow ColorID = "yellow"
	ColorPink   ColorID = "pink"
	ColorBlue   ColorID = "blue"
	ColorGreen  ColorID = "green"
	ColorPurple ColorID = "purple"
	ColorOrange ColorID = "orange"
)

// ColorStyle rendering values for a palette entry
type ColorStyle struct {
	Light  string `json:"light"`
	Dark   string `json:"dark"`
	Border string `json:"border"`
	Text   string `json:"text"`
}

// Palette sticky note color palette
var Palette = map[ColorID]ColorStyle{
	ColorYellow: {Light: "#FEF9C3", Dark: "#FDE047", Border: "#FACC15", Text: "#713F12"},
	ColorPink:   {Light: "#FCE7F3", Dark: "#F9A8D4", Border: "#F472B6", Text: "#831843"},
	ColorBlue:   {Light: "#DBEAFE", Dark: "#93C5FD", Border: "#60A5FA", Text: "#1E3A8A"},
	ColorGreen:  {Light: "#DCFCE7", Dark: "#86EFAC", Border: "#4ADE80", Text: "#14532D"},
	ColorPurple: {Light: "#F3E8FF", Dark: "#D8B4FE", Border: "#C084FC", Text: "#581C87"},
	ColorOrange: {Light: "#FFEDD5", Dark: "#FDBA74", Border: "#FB923C", Text: "#7C2D12"},
}

// DefaultColor fallback color for new notes
const DefaultColor = ColorYellow

// ValidColor reports whether the id exists in the palette.
func ValidColor(id ColorID) bool {
	_, ok := Palette[id]
	return ok
}

// ArrowTarget arrow endpoint as container percentages
type ArrowTarget struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ArrowState optional pointer from a note to a spot on the timeline
type ArrowState struct {
	Enabled bool        `json:"enabled"`
	Target  ArrowTarget `json:"target"`
}

// StickyNote user-authored note pinned to the timeline or an analysis section
type StickyNote struct {
	ID          string      `json:"id"`
	Context     Context     `json:"context"`
	Position    Position    `json:"position"`
	Content     string      `json:"content"`
	Color       ColorID     `json:"color"`
	ZIndex      int         `json:"zIndex"`
	IsMinimized bool        `json:"isMinimized"`
	Arrow       *ArrowState `json:"arrow,omitempty"`
	DrawingID   string      `json:"drawingId,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// StrokeStyle pen settings for a drawing
type StrokeStyle struct {
	Color   string  `json:"color"`
	Width   float64 `json:"width"`
	Opacity float64 `json:"opacity"`
}

// DefaultStroke pen settings used when the client sends none
var DefaultStroke = StrokeStyle{Color: "#EF4444", Width: 3, Opacity: 1}

// StrokeWidths selectable pen widths
var StrokeWidths = []float64{2, 3, 4, 6, 8}

// NearestStrokeWidth snaps an arbitrary width to the closest selectable one.
// Non-positive widths fall back to the default pen.
func NearestStrokeWidth(w float64) float64 {
	if w <= 0 {
		return DefaultStroke.Width
	}
	nearest := StrokeWidths[0]
	for _, sw := range StrokeWidths[1:] {
		if math.Abs(sw-w) < math.Abs(nearest-w) {
			nearest = sw
		}
	}
	return nearest
}

// PathPoint point of a freehand path, relative to the drawing anchor
type PathPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DrawingAnnotation freehand path anchored to the timeline with an attached note
type DrawingAnnotation struct {
	ID        string      `json:"id"`
	Context   Context     `json:"context"`
	Position  Position    `json:"position"`
	Path      []PathPoint `json:"path"`
	Stroke    StrokeStyle `json:"stroke"`
	NoteID    string      `json:"noteId"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Base z-index for notes; stacking order grows with collection size.
const baseZIndex = 1000
