package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cgt-timeline-backend/internal/annotation"
	"cgt-timeline-backend/internal/board"
)

func newLiveBoard(t *testing.T) (*BoardWSHandler, *board.Board) {
	t.Helper()
	boards := board.NewManager(0)
	t.Cleanup(boards.Close)

	b := boards.GetOrCreate("abc123")
	b.SetRange(
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	)
	b.SetMetrics(annotation.Metrics{Width: 1000, Height: 600})
	return NewBoardWSHandler(boards), b
}

func TestAbandonedDragCommitsAtLastPosition(t *testing.T) {
	h, b := newLiveBoard(t)

	note, err := b.Store.AddNote(annotation.NoteDraft{
		Context:  annotation.ContextTimeline,
		Position: annotation.TimelinePos(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), -40),
		Content:  "pending sale question",
	})
	require.NoError(t, err)

	require.NoError(t, b.Drag.Begin(note.ID, 100, 100))
	_, err = b.Drag.Move(160, 160)
	require.NoError(t, err)

	// The owning connection dropped; the drag must resolve at the last
	// reported position instead of pinning the board forever.
	h.finishAbandonedDrag(b)

	assert.Equal(t, annotation.PhaseIdle, b.Drag.Phase())
	assert.NoError(t, b.Drag.Begin(note.ID, 0, 0))
	b.Drag.Cancel()

	moved, err := b.Store.Note(note.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.Position.Timeline)
	want := b.Mapper().FromPixels(160, 160, b.Metrics(), note.Context, b.Registry)
	assert.WithinDuration(t, want.Timeline.AnchorDate, moved.Position.Timeline.AnchorDate, time.Second)
	assert.InDelta(t, want.Timeline.VerticalOffset, moved.Position.Timeline.VerticalOffset, 0.001)
}

func TestAbandonedPressExpandsMinimizedNote(t *testing.T) {
	h, b := newLiveBoard(t)

	note, err := b.Store.AddNote(annotation.NoteDraft{
		Context:     annotation.ContextTimeline,
		Position:    annotation.TimelinePos(time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), 20),
		Content:     "collapsed reminder",
		IsMinimized: true,
	})
	require.NoError(t, err)

	require.NoError(t, b.Drag.Begin(note.ID, 100, 100))
	_, err = b.Drag.Move(102, 101) // jitter below the drag threshold
	require.NoError(t, err)

	h.finishAbandonedDrag(b)

	clicked, err := b.Store.Note(note.ID)
	require.NoError(t, err)
	assert.False(t, clicked.IsMinimized)
	require.NotNil(t, clicked.Position.Timeline)
	assert.Equal(t, note.Position.Timeline.AnchorDate, clicked.Position.Timeline.AnchorDate)
	assert.Equal(t, note.Position.Timeline.VerticalOffset, clicked.Position.Timeline.VerticalOffset)
}

func TestClickExpandsMinimizedNoteInPlace(t *testing.T) {
	h, b := newLiveBoard(t)

	note, err := b.Store.AddNote(annotation.NoteDraft{
		Context:     annotation.ContextTimeline,
		Position:    annotation.TimelinePos(time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC), -10),
		Content:     "minimized note",
		IsMinimized: true,
	})
	require.NoError(t, err)

	// 3px of jitter keeps the gesture a click.
	require.NoError(t, b.Drag.Begin(note.ID, 200, 200))
	_, err = b.Drag.Move(202, 201)
	require.NoError(t, err)
	result, err := b.Drag.Release(202, 201)
	require.NoError(t, err)
	require.False(t, result.Moved)

	h.expandIfMinimized(b, result.TargetID)

	expanded, err := b.Store.Note(note.ID)
	require.NoError(t, err)
	assert.False(t, expanded.IsMinimized)
	require.NotNil(t, expanded.Position.Timeline)
	assert.Equal(t, note.Position.Timeline.AnchorDate, expanded.Position.Timeline.AnchorDate)

	// Expanding an already-expanded note is a no-op.
	before, err := b.Store.Note(note.ID)
	require.NoError(t, err)
	h.expandIfMinimized(b, note.ID)
	after, err := b.Store.Note(note.ID)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}
