package annotation

import (
	"errors"
	"math"
	"sync"
	"time"
)

// DragThreshold cumulative pointer travel (px) before a press becomes a drag.
const DragThreshold = 5.0

// Clicks arriving just after a committed drag are leftovers of the same
// gesture and must not toggle the note underneath.
const clickSuppressWindow = 100 * time.Millisecond

var (
	ErrDragActive = errors.New("another drag session is active")
	ErrNoDrag     = errors.New("no active drag session")
)

// DragPhase lifecycle of a drag gesture
type DragPhase int

const (
	PhaseIdle DragPhase = iota
	PhasePending
	PhaseDragging
	PhaseCommitted
)

// String returns the phase name.
func (p DragPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseDragging:
		return "dragging"
	case PhaseCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// DragResult outcome of releasing the pointer
type DragResult struct {
	TargetID string
	// Moved is false when the gesture never crossed the threshold; the
	// release is a click and the annotation must not move.
	Moved bool
	X     float64
	Y     float64
}

// dragSession one press-move-release gesture
type dragSession struct {
	targetID string
	origin   Point
	last     Point
	phase    DragPhase
}

// DragController shared interaction mode for one board.
//
// At most one session is active at a time; whoever holds the controller can
// ask whether a drag is in flight instead of consulting global state.
type DragController struct {
	mu            sync.Mutex
	active        *dragSession
	suppressUntil time.Time
	now           func() time.Time
}

// NewDragController creates a DragController.
func NewDragController() *DragController {
	return &DragController{now: time.Now}
}

// Begin starts a pending session for the annotation under the pointer.
func (c *DragController) Begin(targetID string, x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return ErrDragActive
	}
	c.active = &dragSession{
		targetID: targetID,
		origin:   Point{X: x, Y: y},
		last:     Point{X: x, Y: y},
		phase:    PhasePending,
	}
	return nil
}

// Move feeds a pointer move into the active session. The session stays
// pending until travel from the origin reaches the threshold.
func (c *DragController) Move(x, y float64) (DragPhase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return PhaseIdle, ErrNoDrag
	}
	s := c.active
	s.last = Point{X: x, Y: y}

	if s.phase == PhasePending {
		dx := x - s.origin.X
		dy := y - s.origin.Y
		if math.Hypot(dx, dy) >= DragThreshold {
			s.phase = PhaseDragging
		}
	}
	return s.phase, nil
}

// Release ends the active session. A session that never crossed the
// threshold resolves as a click; a dragging session commits at the release
// point and arms the click-suppression window.
func (c *DragController) Release(x, y float64) (DragResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releaseLocked(x, y)
}

// ReleaseAtLast ends the active session at its last known pointer position.
// Used when the pointer is lost rather than released (window blur, dropped
// connection); the gesture still resolves to a click or a commit, never an
// abort.
func (c *DragController) ReleaseAtLast() (DragResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return DragResult{}, ErrNoDrag
	}
	return c.releaseLocked(c.active.last.X, c.active.last.Y)
}

func (c *DragController) releaseLocked(x, y float64) (DragResult, error) {
	if c.active == nil {
		return DragResult{}, ErrNoDrag
	}
	s := c.active
	c.active = nil

	result := DragResult{TargetID: s.targetID, X: x, Y: y}
	if s.phase == PhaseDragging {
		s.phase = PhaseCommitted
		result.Moved = true
		c.suppressUntil = c.now().Add(clickSuppressWindow)
	}
	return result, nil
}

// Cancel discards the active session without committing.
func (c *DragController) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = nil
}

// Dragging reports whether a session has crossed the threshold.
func (c *DragController) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil && c.active.phase == PhaseDragging
}

// Phase returns the phase of the active session, or PhaseIdle.
func (c *DragController) Phase() DragPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return PhaseIdle
	}
	return c.active.phase
}

// Target returns the annotation id of the active session.
func (c *DragController) Target() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return "", false
	}
	return c.active.targetID, true
}

// ClickSuppressed reports whether clicks should be ignored because a drag
// committed within the suppression window.
func (c *DragController) ClickSuppressed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Before(c.suppressUntil)
}
