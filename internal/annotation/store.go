package annotation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoteNotFound    = errors.New("sticky note not found")
	ErrDrawingNotFound = errors.New("drawing annotation not found")
	ErrInvalidContext  = errors.New("invalid annotation context")
	ErrArrowDisabled   = errors.New("note has no active arrow")
)

// NoteDraft input for creating a sticky note
type NoteDraft struct {
	Context     Context  `json:"context"`
	Position    Position `json:"position"`
	Content     string   `json:"content"`
	Color       ColorID  `json:"color"`
	IsMinimized bool     `json:"isMinimized"`
}

// NotePatch partial update; nil fields are left untouched
type NotePatch struct {
	Content     *string  `json:"content,omitempty"`
	Color       *ColorID `json:"color,omitempty"`
	IsMinimized *bool    `json:"isMinimized,omitempty"`
}

// DrawingDraft input for creating a drawing with its attached note
type DrawingDraft struct {
	Context  Context      `json:"context"`
	Position Position     `json:"position"`
	Path     []PathPoint  `json:"path"`
	Stroke   *StrokeStyle `json:"stroke,omitempty"`
	// NotePosition places the attached note; when zero the note shares the
	// drawing anchor.
	NotePosition Position `json:"notePosition,omitempty"`
}

// StoreSnapshot serializable store contents
type StoreSnapshot struct {
	Notes    []StickyNote        `json:"stickyNotes"`
	Drawings []DrawingAnnotation `json:"drawingAnnotations"`
}

// Store holds all annotations for one board, partitioned by context.
// All methods are safe for concurrent use; returned values are copies.
type Store struct {
	mu       sync.Mutex
	notes    []*StickyNote
	drawings []*DrawingAnnotation

	now   func() time.Time
	newID func() string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// AddNote creates a sticky note. New notes stack above existing ones in the
// same context.
func (s *Store) AddNote(draft NoteDraft) (StickyNote, error) {
	if !draft.Context.Valid() {
		return StickyNote{}, ErrInvalidContext
	}
	if !ValidColor(draft.Color) {
		draft.Color = DefaultColor
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	note := &StickyNote{
		ID:          s.newID(),
		Context:     draft.Context,
		Position:    clampPosition(draft.Position),
		Content:     draft.Content,
		Color:       draft.Color,
		ZIndex:      baseZIndex + s.countNotesLocked(draft.Context),
		IsMinimized: draft.IsMinimized,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.notes = append(s.notes, note)
	return *note, nil
}

// Note returns a note by id.
func (s *Store) Note(id string) (StickyNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note := s.findNoteLocked(id)
	if note == nil {
		return StickyNote{}, ErrNoteNotFound
	}
	return *note, nil
}

// Notes returns all notes in a context, in insertion order.
func (s *Store) Notes(ctx Context) []StickyNote {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]StickyNote, 0, len(s.notes))
	for _, note := range s.notes {
		if note.Context == ctx {
			out = append(out, *note)
		}
	}
	return out
}

// UpdateNote applies a partial patch to a note.
func (s *Store) UpdateNote(id string, patch NotePatch) (StickyNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note := s.findNoteLocked(id)
	if note == nil {
		return StickyNote{}, ErrNoteNotFound
	}
	if patch.Content != nil {
		note.Content = *patch.Content
	}
	if patch.Color != nil && ValidColor(*patch.Color) {
		note.Color = *patch.Color
	}
	if patch.IsMinimized != nil {
		note.IsMinimized = *patch.IsMinimized
	}
	note.UpdatedAt = s.now()
	return *note, nil
}

// MoveNote re-anchors a note. Section-relative coordinates are clamped so
// the note stays reachable.
func (s *Store) MoveNote(id string, pos Position) (StickyNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note := s.findNoteLocked(id)
	if note == nil {
		return StickyNote{}, ErrNoteNotFound
	}
	note.Position = clampPosition(pos)
	note.UpdatedAt = s.now()
	return *note, nil
}

// BringToFront raises a note above every other note in its context.
func (s *Store) BringToFront(id string) (StickyNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note := s.findNoteLocked(id)
	if note == nil {
		return StickyNote{}, ErrNoteNotFound
	}
	top := baseZIndex
	for _, other := range s.notes {
		if other.Context == note.Context && other.ZIndex > top {
			top = other.ZIndex
		}
	}
	note.ZIndex = top + 1
	note.UpdatedAt = s.now()
	return *note, nil
}

// DeleteNote removes a note. Deleting the note attached to a drawing removes
// the drawing as well.
func (s *Store) DeleteNote(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	note := s.findNoteLocked(id)
	if note == nil {
		return ErrNoteNotFound
	}
	if note.DrawingID != "" {
		s.removeDrawingLocked(note.DrawingID)
	}
	s.removeNoteLocked(id)
	return nil
}

// ToggleArrow flips a note's arrow. Enabling without a prior target
// synthesizes one at the container center.
func (s *Store) ToggleArrow(id string) (StickyNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note := s.findNoteLocked(id)
	if note == nil {
		return StickyNote{}, ErrNoteNotFound
	}
	if note.Arrow == nil {
		note.Arrow = &ArrowState{Enabled: true, Target: ArrowTarget{X: 50, Y: 50}}
	} else {
		note.Arrow.Enabled = !note.Arrow.Enabled
	}
	note.UpdatedAt = s.now()
	return *note, nil
}

// UpdateArrowTarget moves the arrow endpoint, clamped near the container
// edges.
func (s *Store) UpdateArrowTarget(id string, target ArrowTarget) (StickyNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note := s.findNoteLocked(id)
	if note == nil {
		return StickyNote{}, ErrNoteNotFound
	}
	if note.Arrow == nil || !note.Arrow.Enabled {
		return StickyNote{}, ErrArrowDisabled
	}
	note.Arrow.Target = ArrowTarget{
		X: clamp(target.X, minArrow, maxArrow),
		Y: clamp(target.Y, minArrow, maxArrow),
	}
	note.UpdatedAt = s.now()
	return *note, nil
}

// AddDrawing creates a drawing and its attached note in one step. The path
// is stored relative to its first point.
func (s *Store) AddDrawing(draft DrawingDraft) (DrawingAnnotation, StickyNote, error) {
	if !draft.Context.Valid() {
		return DrawingAnnotation{}, StickyNote{}, ErrInvalidContext
	}
	if err := ValidatePath(draft.Path); err != nil {
		return DrawingAnnotation{}, StickyNote{}, err
	}

	stroke := DefaultStroke
	if draft.Stroke != nil {
		stroke = *draft.Stroke
		stroke.Width = NearestStrokeWidth(stroke.Width)
	}
	notePos := draft.NotePosition
	if notePos.IsZero() {
		notePos = draft.Position
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	drawing := &DrawingAnnotation{
		ID:        s.newID(),
		Context:   draft.Context,
		Position:  draft.Position,
		Path:      NormalizePath(draft.Path),
		Stroke:    stroke,
		CreatedAt: now,
	}
	note := &StickyNote{
		ID:        s.newID(),
		Context:   draft.Context,
		Position:  clampPosition(notePos),
		Color:     DefaultColor,
		ZIndex:    baseZIndex + s.countNotesLocked(draft.Context),
		DrawingID: drawing.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	drawing.NoteID = note.ID

	s.drawings = append(s.drawings, drawing)
	s.notes = append(s.notes, note)
	return *drawing, *note, nil
}

// Drawing returns a drawing by id.
func (s *Store) Drawing(id string) (DrawingAnnotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.drawings {
		if d.ID == id {
			return *d, nil
		}
	}
	return DrawingAnnotation{}, ErrDrawingNotFound
}

// Drawings returns all drawings in a context, in insertion order.
func (s *Store) Drawings(ctx Context) []DrawingAnnotation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]DrawingAnnotation, 0, len(s.drawings))
	for _, d := range s.drawings {
		if d.Context == ctx {
			out = append(out, *d)
		}
	}
	return out
}

// DeleteDrawing removes a drawing and its attached note.
func (s *Store) DeleteDrawing(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var drawing *DrawingAnnotation
	for _, d := range s.drawings {
		if d.ID == id {
			drawing = d
			break
		}
	}
	if drawing == nil {
		return ErrDrawingNotFound
	}
	if drawing.NoteID != "" {
		s.removeNoteLocked(drawing.NoteID)
	}
	s.removeDrawingLocked(id)
	return nil
}

// Snapshot copies the store contents for persistence.
func (s *Store) Snapshot() StoreSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StoreSnapshot{
		Notes:    make([]StickyNote, len(s.notes)),
		Drawings: make([]DrawingAnnotation, len(s.drawings)),
	}
	for i, n := range s.notes {
		snap.Notes[i] = *n
	}
	for i, d := range s.drawings {
		snap.Drawings[i] = *d
	}
	return snap
}

// Restore replaces the store contents from a snapshot.
func (s *Store) Restore(snap StoreSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notes = make([]*StickyNote, len(snap.Notes))
	for i := range snap.Notes {
		note := snap.Notes[i]
		s.notes[i] = &note
	}
	s.drawings = make([]*DrawingAnnotation, len(snap.Drawings))
	for i := range snap.Drawings {
		drawing := snap.Drawings[i]
		s.drawings[i] = &drawing
	}
}

func (s *Store) countNotesLocked(ctx Context) int {
	n := 0
	for _, note := range s.notes {
		if note.Context == ctx {
			n++
		}
	}
	return n
}

func (s *Store) findNoteLocked(id string) *StickyNote {
	for _, note := range s.notes {
		if note.ID == id {
			return note
		}
	}
	return nil
}

func (s *Store) removeNoteLocked(id string) {
	for i, note := range s.notes {
		if note.ID == id {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			return
		}
	}
}

func (s *Store) removeDrawingLocked(id string) {
	for i, d := range s.drawings {
		if d.ID == id {
			s.drawings = append(s.drawings[:i], s.drawings[i+1:]...)
			return
		}
	}
}

// clampPosition bounds section-relative coordinates; timeline anchors pass
// through unchanged.
func clampPosition(pos Position) Position {
	if pos.Section == nil {
		return pos
	}
	sp := *pos.Section
	sp.RelativeX = clamp(sp.RelativeX, minRelative, maxRelative)
	sp.RelativeY = clamp(sp.RelativeY, minRelative, maxRelative)
	return Position{Section: &sp}
}
