package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"cgt-timeline-backend/internal/analysis"
	"cgt-timeline-backend/internal/annotation"
	"cgt-timeline-backend/internal/board"
	"cgt-timeline-backend/internal/cache"
	"cgt-timeline-backend/internal/verification"
)

// BoardHandler per-timeline board state: annotations, section geometry and
// the verification flow.
type BoardHandler struct {
	boards *board.Manager
	redis  *cache.RedisClient
	client *analysis.Client
}

// NewBoardHandler creates a BoardHandler.
func NewBoardHandler(boards *board.Manager, redis *cache.RedisClient, client *analysis.Client) *BoardHandler {
	return &BoardHandler{boards: boards, redis: redis, client: client}
}

func (h *BoardHandler) board(c *fiber.Ctx) (*board.Board, error) {
	shareID := c.Params("shareId")
	if shareID == "" {
		return nil, errors.New("shareId is required")
	}
	b := h.boards.GetOrCreate(shareID)
	b.Touch()
	return b, nil
}

// RangeRequest visible timeline date range
type RangeRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SetRange records the visible date range used for anchor conversion.
func (h *BoardHandler) SetRange(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	var req RangeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, errors.New("invalid range payload"))
	}
	if !req.End.After(req.Start) {
		return badRequest(c, errors.New("end must be after start"))
	}

	b.SetRange(req.Start, req.End)
	return c.JSON(fiber.Map{"success": true})
}

// SetMetrics records the client's container geometry.
func (h *BoardHandler) SetMetrics(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	var mt annotation.Metrics
	if err := c.BodyParser(&mt); err != nil {
		return badRequest(c, errors.New("invalid metrics payload"))
	}

	b.SetMetrics(mt)
	return c.JSON(fiber.Map{"success": true})
}

// State returns the board's full annotation state and alerts.
func (h *BoardHandler) State(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	return c.JSON(fiber.Map{
		"annotations": b.Store.Snapshot(),
		"alerts":      b.Flow.Alerts(),
		"sections":    b.Registry.Snapshot(),
	})
}

// --- sticky notes ---

// CreateNote adds a sticky note.
func (h *BoardHandler) CreateNote(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	var draft annotation.NoteDraft
	if err := c.BodyParser(&draft); err != nil {
		return badRequest(c, errors.New("invalid note payload"))
	}

	note, err := b.Store.AddNote(draft)
	if err != nil {
		return badRequest(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(note)
}

// ListNotes returns notes, optionally filtered by context.
func (h *BoardHandler) ListNotes(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}
	return c.JSON(b.Store.Notes(annotation.Context(c.Query("context"))))
}

// UpdateNote applies a partial update to a note.
func (h *BoardHandler) UpdateNote(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	var patch annotation.NotePatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, errors.New("invalid patch payload"))
	}

	note, err := b.Store.UpdateNote(c.Params("id"), patch)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(note)
}

// MoveNote repositions a note.
func (h *BoardHandler) MoveNote(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	var req struct {
		Position annotation.Position `json:"position"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, errors.New("invalid position payload"))
	}

	note, err := b.Store.MoveNote(c.Params("id"), req.Position)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(note)
}

// BringNoteToFront raises a note above its context siblings.
func (h *BoardHandler) BringNoteToFront(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	note, err := b.Store.BringToFront(c.Params("id"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(note)
}

// DeleteNote removes a note and its linked drawing.
func (h *BoardHandler) DeleteNote(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	if err := b.Store.DeleteNote(c.Params("id")); err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// ToggleArrow flips a note's arrow on or off.
func (h *BoardHandler) ToggleArrow(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	note, err := b.Store.ToggleArrow(c.Params("id"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(note)
}

// UpdateArrowTarget repositions a note's arrow endpoint.
func (h *BoardHandler) UpdateArrowTarget(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	var target annotation.ArrowTarget
	if err := c.BodyParser(&target); err != nil {
		return badRequest(c, errors.New("invalid arrow target payload"))
	}

	note, err := b.Store.UpdateArrowTarget(c.Params("id"), target)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(note)
}

// --- drawings ---

// CreateDrawing adds a freehand drawing with its attached note. When the
// client leaves the note position empty it is derived from the drawing's
// bounds: to the right of the stroke, vertically centered.
func (h *BoardHandler) CreateDrawing(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	var draft annotation.DrawingDraft
	if err := c.BodyParser(&draft); err != nil {
		return badRequest(c, errors.New("invalid drawing payload"))
	}

	if draft.NotePosition.IsZero() && len(draft.Path) >= 2 {
		draft.NotePosition = h.attachedNotePosition(b, draft)
	}

	drawing, note, err := b.Store.AddDrawing(draft)
	if err != nil {
		return badRequest(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"drawing": drawing,
		"note":    note,
	})
}

// attachedNotePosition projects the drawing anchor into pixel space, applies
// the attached-note offset, and converts back to an anchored position.
func (h *BoardHandler) attachedNotePosition(b *board.Board, draft annotation.DrawingDraft) annotation.Position {
	mt := b.Metrics()
	if mt.Width == 0 {
		return draft.Position
	}

	mapper := b.Mapper()
	anchor := mapper.ToPixels(draft.Position, mt, b.Registry)
	dx, dy := annotation.AttachedNoteOffset(annotation.NormalizePath(draft.Path))
	return mapper.FromPixels(anchor.X+dx, anchor.Y+dy, mt, draft.Context, b.Registry)
}

// ListDrawings returns drawings, optionally filtered by context.
func (h *BoardHandler) ListDrawings(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}
	return c.JSON(b.Store.Drawings(annotation.Context(c.Query("context"))))
}

// DeleteDrawing removes a drawing and its attached note.
func (h *BoardHandler) DeleteDrawing(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	if err := b.Store.DeleteDrawing(c.Params("id")); err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// --- sections ---

// SectionRequest section registration payload
type SectionRequest struct {
	Section   string          `json:"section"`
	ElementID string          `json:"elementId"`
	Rect      annotation.Rect `json:"rect"`
}

// RegisterSection registers or re-registers a section rectangle.
func (h *BoardHandler) RegisterSection(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	var req SectionRequest
	if err := c.BodyParser(&req); err != nil || req.Section == "" {
		return badRequest(c, errors.New("invalid section payload"))
	}

	b.Registry.Register(req.Section, req.ElementID, req.Rect)
	return c.JSON(fiber.Map{"success": true})
}

// UpdateSection updates an already-registered section rectangle.
func (h *BoardHandler) UpdateSection(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	var req SectionRequest
	if err := c.BodyParser(&req); err != nil || req.Section == "" {
		return badRequest(c, errors.New("invalid section payload"))
	}

	if !b.Registry.Update(req.Section, req.ElementID, req.Rect) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "section not registered",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// DeregisterSection removes a section rectangle.
func (h *BoardHandler) DeregisterSection(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	var req SectionRequest
	if err := c.BodyParser(&req); err != nil || req.Section == "" {
		return badRequest(c, errors.New("invalid section payload"))
	}

	b.Registry.Deregister(req.Section, req.ElementID)
	return c.JSON(fiber.Map{"success": true})
}

// --- verification alerts ---

// SetAlerts extracts verification alerts from a raw analysis response and
// installs them on the board's flow.
func (h *BoardHandler) SetAlerts(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	var req struct {
		Response  json.RawMessage `json:"response"`
		Addresses []string        `json:"addresses"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, errors.New("invalid alerts payload"))
	}
	if len(req.Response) == 0 {
		return badRequest(c, errors.New("response is required"))
	}

	resp, err := verification.Normalize(req.Response)
	if err != nil {
		return badRequest(c, err)
	}

	alerts := verification.ExtractAlerts(resp, req.Addresses)
	b.Flow.SetProperties(req.Addresses)
	b.Flow.SetAlerts(alerts)

	log.Printf("📥 [Board %s] Installed %d verification alert(s)", b.ID, len(alerts))
	return c.JSON(fiber.Map{"alerts": alerts})
}

// ListAlerts returns the board's verification alerts.
func (h *BoardHandler) ListAlerts(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	current, hasCurrent := b.Flow.Current()
	out := fiber.Map{
		"alerts":      b.Flow.Alerts(),
		"allResolved": b.Flow.AllResolved(),
	}
	if hasCurrent {
		out["current"] = current
	}
	return c.JSON(out)
}

// ResolveAlert records the user's answer for one alert.
func (h *BoardHandler) ResolveAlert(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	var req struct {
		Response string `json:"response"`
	}
	if err := c.BodyParser(&req); err != nil || req.Response == "" {
		return badRequest(c, errors.New("response is required"))
	}

	alert, err := b.Flow.Resolve(c.Params("id"), req.Response)
	if err != nil {
		return flowError(c, err)
	}
	return c.JSON(fiber.Map{
		"alert":       alert,
		"allResolved": b.Flow.AllResolved(),
	})
}

// ReopenAlert clears an alert's resolution.
func (h *BoardHandler) ReopenAlert(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	alert, err := b.Flow.Reopen(c.Params("id"))
	if err != nil {
		return flowError(c, err)
	}
	return c.JSON(fiber.Map{"alert": alert})
}

// Proceed resubmits the shared timeline with the collected verification
// responses. Requires every alert resolved.
func (h *BoardHandler) Proceed(c *fiber.Ctx) error {
	b, err := h.board(c)
	if err != nil {
		return badRequest(c, err)
	}

	snapshot, err := h.redis.GetTimeline(c.Context(), b.ID)
	if err != nil {
		if errors.Is(err, cache.ErrShareNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "shared timeline not found or expired",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load timeline",
		})
	}

	submitter := &flowSubmitter{
		client: h.client,
		base: analysis.Request{
			Properties: snapshot.Properties,
			Events:     snapshot.Events,
			Notes:      snapshot.Notes,
		},
	}

	resp, err := b.Flow.Proceed(c.Context(), submitter)
	if err != nil {
		return flowError(c, err)
	}

	if resp.NeedsClarification() {
		return c.JSON(fiber.Map{
			"success": true,
			"data": buildClarificationData(resp,
				verification.TransformQuestions(resp.RawQuestions())),
			"alerts": b.Flow.Alerts(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    json.RawMessage(resp.Raw),
	})
}

// flowSubmitter resubmits the board's timeline through the analysis client.
type flowSubmitter struct {
	client *analysis.Client
	base   analysis.Request
}

func (s *flowSubmitter) Resubmit(ctx context.Context, responses []verification.VerificationResponse) (*verification.Response, error) {
	req := s.base
	req.VerificationResponses = responses
	result, err := s.client.Calculate(ctx, req)
	if err != nil {
		return nil, err
	}
	return result.Response, nil
}

// --- error mapping ---

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, annotation.ErrNoteNotFound),
		errors.Is(err, annotation.ErrDrawingNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		return badRequest(c, err)
	}
}

func flowError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, verification.ErrAlertNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, verification.ErrUnresolvedAlerts),
		errors.Is(err, verification.ErrNoAlerts):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, verification.ErrResubmitInFlight):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
