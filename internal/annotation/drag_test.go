package annotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDragBelowThresholdIsClick(t *testing.T) {
	c := NewDragController()
	require.NoError(t, c.Begin("note-1", 100, 100))

	phase, err := c.Move(102, 103) // ~3.6px travel
	require.NoError(t, err)
	assert.Equal(t, PhasePending, phase)
	assert.False(t, c.Dragging())

	result, err := c.Release(102, 103)
	require.NoError(t, err)
	assert.False(t, result.Moved)
	assert.Equal(t, "note-1", result.TargetID)
	assert.False(t, c.ClickSuppressed())
}

func TestDragCrossesThreshold(t *testing.T) {
	c := NewDragController()
	require.NoError(t, c.Begin("note-1", 100, 100))

	phase, err := c.Move(103, 104) // 5px exactly
	require.NoError(t, err)
	assert.Equal(t, PhaseDragging, phase)
	assert.True(t, c.Dragging())

	result, err := c.Release(240, 180)
	require.NoError(t, err)
	assert.True(t, result.Moved)
	assert.Equal(t, 240.0, result.X)
	assert.Equal(t, 180.0, result.Y)
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestDragStaysDraggingAfterReturningToOrigin(t *testing.T) {
	c := NewDragController()
	require.NoError(t, c.Begin("note-1", 100, 100))

	_, err := c.Move(200, 200)
	require.NoError(t, err)

	// Once past the threshold the gesture stays a drag.
	phase, err := c.Move(100, 100)
	require.NoError(t, err)
	assert.Equal(t, PhaseDragging, phase)
}

func TestDragSingleActiveSession(t *testing.T) {
	c := NewDragController()
	require.NoError(t, c.Begin("note-1", 0, 0))
	assert.ErrorIs(t, c.Begin("note-2", 10, 10), ErrDragActive)

	c.Cancel()
	assert.NoError(t, c.Begin("note-2", 10, 10))
}

func TestReleaseAtLastCommitsDrag(t *testing.T) {
	c := NewDragController()
	require.NoError(t, c.Begin("note-1", 100, 100))

	_, err := c.Move(160, 160)
	require.NoError(t, err)

	// The pointer was lost, not released; the drag still commits at the
	// last reported position and the controller frees up.
	result, err := c.ReleaseAtLast()
	require.NoError(t, err)
	assert.True(t, result.Moved)
	assert.Equal(t, 160.0, result.X)
	assert.Equal(t, 160.0, result.Y)

	assert.NoError(t, c.Begin("note-2", 0, 0))
}

func TestReleaseAtLastPendingIsClick(t *testing.T) {
	c := NewDragController()
	require.NoError(t, c.Begin("note-1", 100, 100))

	_, err := c.Move(102, 101)
	require.NoError(t, err)

	result, err := c.ReleaseAtLast()
	require.NoError(t, err)
	assert.False(t, result.Moved)
	assert.Equal(t, "note-1", result.TargetID)
	assert.False(t, c.ClickSuppressed())
}

func TestReleaseAtLastWithoutSession(t *testing.T) {
	c := NewDragController()
	_, err := c.ReleaseAtLast()
	assert.ErrorIs(t, err, ErrNoDrag)
}

func TestDragMoveWithoutSession(t *testing.T) {
	c := NewDragController()
	_, err := c.Move(1, 1)
	assert.ErrorIs(t, err, ErrNoDrag)
	_, err = c.Release(1, 1)
	assert.ErrorIs(t, err, ErrNoDrag)
}

func TestClickSuppressionWindow(t *testing.T) {
	now := time.Now()
	c := NewDragController()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Begin("note-1", 0, 0))
	_, err := c.Move(50, 50)
	require.NoError(t, err)
	_, err = c.Release(50, 50)
	require.NoError(t, err)

	assert.True(t, c.ClickSuppressed())

	now = now.Add(99 * time.Millisecond)
	assert.True(t, c.ClickSuppressed())

	now = now.Add(2 * time.Millisecond)
	assert.False(t, c.ClickSuppressed())
}

func TestDragPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "pending", PhasePending.String())
	assert.Equal(t, "dragging", PhaseDragging.String())
	assert.Equal(t, "committed", PhaseCommitted.String())
}
