package annotation

import (
	"encoding/json"
	"time"
)

// Relative position bounds keeping notes reachable inside a section.
const (
	minRelative = 5.0
	maxRelative = 95.0
)

// Arrow targets may sit closer to the container edge than notes.
const (
	minArrow = 2.0
	maxArrow = 98.0
)

// TimelinePosition date-anchored position; vertical offset in px from the
// center of the scrollable content
type TimelinePosition struct {
	AnchorDate     time.Time `json:"anchorDate"`
	VerticalOffset float64   `json:"verticalOffset"`
}

// SectionPosition position inside a named layout region, as percentages
type SectionPosition struct {
	Section   string  `json:"section"`
	ElementID string  `json:"elementId,omitempty"`
	RelativeX float64 `json:"relativeX"`
	RelativeY float64 `json:"relativeY"`
}

// Position one of TimelinePosition or SectionPosition
type Position struct {
	Timeline *TimelinePosition `json:"-"`
	Section  *SectionPosition  `json:"-"`
}

// TimelinePos wraps a timeline position.
func TimelinePos(anchorDate time.Time, verticalOffset float64) Position {
	return Position{Timeline: &TimelinePosition{AnchorDate: anchorDate, VerticalOffset: verticalOffset}}
}

// SectionPos wraps a section position.
func SectionPos(section, elementID string, relX, relY float64) Position {
	return Position{Section: &SectionPosition{Section: section, ElementID: elementID, RelativeX: relX, RelativeY: relY}}
}

// IsZero reports whether neither variant is set.
func (p Position) IsZero() bool {
	return p.Timeline == nil && p.Section == nil
}

// MarshalJSON flattens whichever variant is set.
func (p Position) MarshalJSON() ([]byte, error) {
	switch {
	case p.Timeline != nil:
		return json.Marshal(p.Timeline)
	case p.Section != nil:
		return json.Marshal(p.Section)
	}
	return []byte("null"), nil
}

// UnmarshalJSON discriminates the variant by the presence of anchorDate.
func (p *Position) UnmarshalJSON(data []byte) error {
	p.Timeline = nil
	p.Section = nil

	if string(data) == "null" {
		return nil
	}

	var probe struct {
		AnchorDate *json.RawMessage `json:"anchorDate"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if probe.AnchorDate != nil {
		var tp TimelinePosition
		if err := json.Unmarshal(data, &tp); err != nil {
			return err
		}
		p.Timeline = &tp
		return nil
	}

	var sp SectionPosition
	if err := json.Unmarshal(data, &sp); err != nil {
		return err
	}
	p.Section = &sp
	return nil
}

// Point client (viewport) pixel coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Metrics container geometry at conversion time
type Metrics struct {
	Left         float64 `json:"left"`
	Top          float64 `json:"top"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	ScrollTop    float64 `json:"scrollTop"`
	ScrollHeight float64 `json:"scrollHeight"`
}

// Mapper converts between semantic anchors and pixel coordinates for a
// visible timeline date range.
type Mapper struct {
	Start time.Time
	End   time.Time
}

// NewMapper creates a Mapper over the visible date range.
func NewMapper(start, end time.Time) *Mapper {
	return &Mapper{Start: start, End: end}
}

// DatePercent horizontal percentage of a date within the range, clamped 0..100.
func (m *Mapper) DatePercent(t time.Time) float64 {
	total := m.End.Sub(m.Start)
	if total <= 0 {
		return 0
	}
	pct := float64(t.Sub(m.Start)) / float64(total) * 100
	return clamp(pct, 0, 100)
}

// DateAt inverse of DatePercent.
func (m *Mapper) DateAt(percent float64) time.Time {
	total := m.End.Sub(m.Start)
	percent = clamp(percent, 0, 100)
	return m.Start.Add(time.Duration(float64(total) * percent / 100))
}

// ToPixels resolves an anchor to client pixel coordinates.
//
// Timeline anchors interpolate the date across the container width and offset
// from the vertical center of the content (not the viewport). Section anchors
// resolve through the registry; an unregistered section falls back to
// whole-container percentages so the note stays visible.
func (m *Mapper) ToPixels(pos Position, mt Metrics, reg *Registry) Point {
	switch {
	case pos.Timeline != nil:
		tp := pos.Timeline
		x := mt.Left + mt.Width*m.DatePercent(tp.AnchorDate)/100
		y := mt.Top + mt.ScrollHeight/2 + tp.VerticalOffset - mt.ScrollTop
		return Point{X: x, Y: y}

	case pos.Section != nil:
		sp := pos.Section
		if reg != nil {
			if rect, ok := reg.Lookup(sp.Section, sp.ElementID); ok {
				return Point{
					X: rect.Left + rect.Width*sp.RelativeX/100,
					Y: rect.Top + rect.Height*sp.RelativeY/100,
				}
			}
		}
		// Section not registered: treat percentages as container-relative.
		return Point{
			X: mt.Left + mt.Width*sp.RelativeX/100,
			Y: mt.Top + mt.Height*sp.RelativeY/100,
		}
	}
	return Point{X: mt.Left, Y: mt.Top}
}

// FromPixels converts client pixel coordinates back to an anchor for the
// given context.
func (m *Mapper) FromPixels(x, y float64, mt Metrics, ctx Context, reg *Registry) Position {
	if ctx == ContextAnalysis {
		return m.sectionFromPixels(x, y, mt, reg)
	}
	return m.timelineFromPixels(x, y, mt)
}

func (m *Mapper) timelineFromPixels(x, y float64, mt Metrics) Position {
	pct := 0.0
	if mt.Width > 0 {
		pct = clamp((x-mt.Left)/mt.Width*100, 0, 100)
	}
	contentY := y - mt.Top + mt.ScrollTop
	offset := contentY - mt.ScrollHeight/2
	return TimelinePos(m.DateAt(pct), offset)
}

func (m *Mapper) sectionFromPixels(x, y float64, mt Metrics, reg *Registry) Position {
	if reg != nil {
		if entry, ok := reg.HitTest(x, y); ok {
			relX := clamp((x-entry.Rect.Left)/nonZero(entry.Rect.Width)*100, minRelative, maxRelative)
			relY := clamp((y-entry.Rect.Top)/nonZero(entry.Rect.Height)*100, minRelative, maxRelative)
			return SectionPos(entry.Section, entry.ElementID, relX, relY)
		}
	}
	// No section under the pointer: keep the note addressable against the
	// whole container.
	relX := clamp((x-mt.Left)/nonZero(mt.Width)*100, minRelative, maxRelative)
	relY := clamp((y-mt.Top)/nonZero(mt.Height)*100, minRelative, maxRelative)
	return SectionPos(SectionGeneral, "", relX, relY)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
