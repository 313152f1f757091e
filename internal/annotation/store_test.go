package annotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timelineDraft() NoteDraft {
	return NoteDraft{
		Context:  ContextTimeline,
		Position: TimelinePos(time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), 0),
		Content:  "check contract date",
		Color:    ColorYellow,
	}
}

func TestAddNoteStacking(t *testing.T) {
	s := NewStore()

	first, err := s.AddNote(timelineDraft())
	require.NoError(t, err)
	assert.Equal(t, 1000, first.ZIndex)

	second, err := s.AddNote(timelineDraft())
	require.NoError(t, err)
	assert.Equal(t, 1001, second.ZIndex)

	// Contexts stack independently.
	draft := timelineDraft()
	draft.Context = ContextAnalysis
	draft.Position = SectionPos(SectionSummary, "", 50, 50)
	analysisNote, err := s.AddNote(draft)
	require.NoError(t, err)
	assert.Equal(t, 1000, analysisNote.ZIndex)
}

func TestAddNoteValidation(t *testing.T) {
	s := NewStore()

	_, err := s.AddNote(NoteDraft{Context: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidContext)

	draft := timelineDraft()
	draft.Color = "chartreuse"
	note, err := s.AddNote(draft)
	require.NoError(t, err)
	assert.Equal(t, DefaultColor, note.Color)
}

func TestUpdateNotePartialPatch(t *testing.T) {
	s := NewStore()
	note, err := s.AddNote(timelineDraft())
	require.NoError(t, err)

	content := "revised"
	updated, err := s.UpdateNote(note.ID, NotePatch{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "revised", updated.Content)
	assert.Equal(t, note.Color, updated.Color)
	assert.Equal(t, note.IsMinimized, updated.IsMinimized)

	_, err = s.UpdateNote("missing", NotePatch{})
	assert.ErrorIs(t, err, ErrNoteNotFound)
}

func TestMoveNoteClampsSectionCoordinates(t *testing.T) {
	s := NewStore()
	draft := timelineDraft()
	draft.Context = ContextAnalysis
	draft.Position = SectionPos(SectionSummary, "", 50, 50)
	note, err := s.AddNote(draft)
	require.NoError(t, err)

	moved, err := s.MoveNote(note.ID, SectionPos(SectionSummary, "", -20, 130))
	require.NoError(t, err)
	require.NotNil(t, moved.Position.Section)
	assert.Equal(t, minRelative, moved.Position.Section.RelativeX)
	assert.Equal(t, maxRelative, moved.Position.Section.RelativeY)
}

func TestBringToFront(t *testing.T) {
	s := NewStore()
	first, err := s.AddNote(timelineDraft())
	require.NoError(t, err)
	second, err := s.AddNote(timelineDraft())
	require.NoError(t, err)

	raised, err := s.BringToFront(first.ID)
	require.NoError(t, err)
	assert.Greater(t, raised.ZIndex, second.ZIndex)
}

func TestToggleArrowSynthesizesTarget(t *testing.T) {
	s := NewStore()
	note, err := s.AddNote(timelineDraft())
	require.NoError(t, err)

	toggled, err := s.ToggleArrow(note.ID)
	require.NoError(t, err)
	require.NotNil(t, toggled.Arrow)
	assert.True(t, toggled.Arrow.Enabled)
	assert.Equal(t, ArrowTarget{X: 50, Y: 50}, toggled.Arrow.Target)

	toggled, err = s.ToggleArrow(note.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Arrow.Enabled)
	// Target survives disabling so re-enabling restores it.
	assert.Equal(t, ArrowTarget{X: 50, Y: 50}, toggled.Arrow.Target)
}

func TestUpdateArrowTargetClamped(t *testing.T) {
	s := NewStore()
	note, err := s.AddNote(timelineDraft())
	require.NoError(t, err)

	_, err = s.UpdateArrowTarget(note.ID, ArrowTarget{X: 10, Y: 10})
	assert.ErrorIs(t, err, ErrArrowDisabled)

	_, err = s.ToggleArrow(note.ID)
	require.NoError(t, err)

	updated, err := s.UpdateArrowTarget(note.ID, ArrowTarget{X: -5, Y: 120})
	require.NoError(t, err)
	assert.Equal(t, ArrowTarget{X: minArrow, Y: maxArrow}, updated.Arrow.Target)
}

func TestAddDrawingRejectsShortPath(t *testing.T) {
	s := NewStore()
	_, _, err := s.AddDrawing(DrawingDraft{
		Context:  ContextTimeline,
		Position: TimelinePos(time.Now(), 0),
		Path:     []PathPoint{{X: 1, Y: 1}},
	})
	assert.ErrorIs(t, err, ErrPathTooShort)
}

func TestAddDrawingCreatesAttachedNote(t *testing.T) {
	s := NewStore()
	drawing, note, err := s.AddDrawing(DrawingDraft{
		Context:  ContextTimeline,
		Position: TimelinePos(time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC), 10),
		Path:     []PathPoint{{X: 100, Y: 100}, {X: 150, Y: 130}, {X: 120, Y: 160}},
	})
	require.NoError(t, err)

	assert.Equal(t, note.ID, drawing.NoteID)
	assert.Equal(t, drawing.ID, note.DrawingID)
	assert.Equal(t, DefaultStroke, drawing.Stroke)

	// Path stored relative to its first point.
	assert.Equal(t, PathPoint{X: 0, Y: 0}, drawing.Path[0])
	assert.Equal(t, PathPoint{X: 50, Y: 30}, drawing.Path[1])
}

func TestAddDrawingSnapsStrokeWidth(t *testing.T) {
	s := NewStore()
	drawing, _, err := s.AddDrawing(DrawingDraft{
		Context:  ContextTimeline,
		Position: TimelinePos(time.Now(), 0),
		Path:     []PathPoint{{X: 0, Y: 0}, {X: 10, Y: 10}},
		Stroke:   &StrokeStyle{Color: "#22C55E", Width: 5.4, Opacity: 0.8},
	})
	require.NoError(t, err)

	assert.Equal(t, 6.0, drawing.Stroke.Width)
	assert.Equal(t, "#22C55E", drawing.Stroke.Color)
}

func TestNearestStrokeWidth(t *testing.T) {
	assert.Equal(t, 2.0, NearestStrokeWidth(1))
	assert.Equal(t, 3.0, NearestStrokeWidth(3))
	assert.Equal(t, 4.0, NearestStrokeWidth(4.9))
	assert.Equal(t, 8.0, NearestStrokeWidth(20))
	assert.Equal(t, DefaultStroke.Width, NearestStrokeWidth(0))
	assert.Equal(t, DefaultStroke.Width, NearestStrokeWidth(-2))
}

func TestDeleteDrawingCascades(t *testing.T) {
	s := NewStore()
	drawing, note, err := s.AddDrawing(DrawingDraft{
		Context:  ContextTimeline,
		Position: TimelinePos(time.Now(), 0),
		Path:     []PathPoint{{X: 0, Y: 0}, {X: 10, Y: 10}},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteDrawing(drawing.ID))
	_, err = s.Note(note.ID)
	assert.ErrorIs(t, err, ErrNoteNotFound)
	assert.Empty(t, s.Drawings(ContextTimeline))
}

func TestDeleteNoteCascadesToDrawing(t *testing.T) {
	s := NewStore()
	drawing, note, err := s.AddDrawing(DrawingDraft{
		Context:  ContextTimeline,
		Position: TimelinePos(time.Now(), 0),
		Path:     []PathPoint{{X: 0, Y: 0}, {X: 10, Y: 10}},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteNote(note.ID))
	_, err = s.Drawing(drawing.ID)
	assert.ErrorIs(t, err, ErrDrawingNotFound)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := NewStore()
	_, err := s.AddNote(timelineDraft())
	require.NoError(t, err)
	_, _, err = s.AddDrawing(DrawingDraft{
		Context:  ContextTimeline,
		Position: TimelinePos(time.Now(), 0),
		Path:     []PathPoint{{X: 0, Y: 0}, {X: 5, Y: 5}},
	})
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Len(t, snap.Notes, 2)
	assert.Len(t, snap.Drawings, 1)

	restored := NewStore()
	restored.Restore(snap)
	assert.Len(t, restored.Notes(ContextTimeline), 2)
	assert.Len(t, restored.Drawings(ContextTimeline), 1)
}

func TestPathGeometry(t *testing.T) {
	path := []PathPoint{{X: 0, Y: 0}, {X: 40, Y: -20}, {X: 25, Y: 30}}

	b := BoundsOf(path)
	assert.Equal(t, PathBounds{MinX: 0, MinY: -20, MaxX: 40, MaxY: 30}, b)
	assert.Equal(t, 40.0, b.Width())
	assert.Equal(t, 50.0, b.Height())

	dx, dy := AttachedNoteOffset(path)
	assert.Equal(t, 70.0, dx)
	assert.Equal(t, 5.0, dy)

	assert.Equal(t, "M 0 0 L 40 -20 L 25 30", PathToSVG(path))
}
