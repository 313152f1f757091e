package handler

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"cgt-timeline-backend/internal/annotation"
	"cgt-timeline-backend/internal/board"
)

// BoardWSHandler live board WebSocket handler. Pointer events drive the
// board's drag controller server-side so every viewer sees the same committed
// positions.
type BoardWSHandler struct {
	boards  *board.Manager
	clients map[string]map[*websocket.Conn]bool // shareID -> connections
	mu      sync.RWMutex
}

// BoardWSMessage board WebSocket message
type BoardWSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PointerPayload pointer event payload
type PointerPayload struct {
	NoteID string  `json:"noteId,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// NewBoardWSHandler creates a BoardWSHandler.
func NewBoardWSHandler(boards *board.Manager) *BoardWSHandler {
	return &BoardWSHandler{
		boards:  boards,
		clients: make(map[string]map[*websocket.Conn]bool),
	}
}

// HandleWebSocket handles one board connection.
func (h *BoardWSHandler) HandleWebSocket(c *websocket.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("🚨 Board WebSocket panic recovered: %v", r)
		}
	}()

	shareID, ok := c.Locals("shareId").(string)
	if !ok || shareID == "" {
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","message":"invalid board id"}`))
		c.Close()
		return
	}

	b := h.boards.GetOrCreate(shareID)

	// Advancing the verification flow pans every viewer to the next alert.
	b.Flow.SetPanFunc(func(target time.Time) {
		h.broadcastAll(shareID, h.message("pan_to", map[string]string{
			"date": target.UTC().Format(time.RFC3339),
		}))
	})

	h.mu.Lock()
	if h.clients[shareID] == nil {
		h.clients[shareID] = make(map[*websocket.Conn]bool)
	}
	h.clients[shareID][c] = true
	h.mu.Unlock()

	log.Printf("🔌 [Board %s] WebSocket connected", shareID)

	// A connection that started a drag owns it until its own pointer_up.
	// Should the connection drop mid-gesture, the session must still resolve
	// or every later Begin on this board fails with ErrDragActive.
	ownsDrag := false

	defer func() {
		h.mu.Lock()
		delete(h.clients[shareID], c)
		if len(h.clients[shareID]) == 0 {
			delete(h.clients, shareID)
		}
		h.mu.Unlock()
		c.Close()
		if ownsDrag {
			h.finishAbandonedDrag(b)
		}
		log.Printf("🔌 [Board %s] WebSocket disconnected", shareID)
	}()

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			break
		}

		var msg BoardWSMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			continue
		}
		b.Touch()

		switch msg.Type {
		case "ping":
			h.send(c, BoardWSMessage{Type: "pong"})
		case "pointer_down":
			if h.handlePointerDown(c, b, msg.Payload) {
				ownsDrag = true
			}
		case "pointer_move":
			h.handlePointerMove(c, b, msg.Payload)
		case "pointer_up":
			h.handlePointerUp(c, b, msg.Payload)
			ownsDrag = false
		case "sync":
			// Opaque state broadcast from one client to its peers.
			h.broadcast(shareID, c, BoardWSMessage{Type: "sync", Payload: msg.Payload})
		}
	}
}

func (h *BoardWSHandler) handlePointerDown(c *websocket.Conn, b *board.Board, payload json.RawMessage) bool {
	var p PointerPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.NoteID == "" {
		return false
	}
	if err := b.Drag.Begin(p.NoteID, p.X, p.Y); err != nil {
		h.sendError(c, err.Error())
		return false
	}
	return true
}

func (h *BoardWSHandler) handlePointerMove(c *websocket.Conn, b *board.Board, payload json.RawMessage) {
	var p PointerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	phase, err := b.Drag.Move(p.X, p.Y)
	if err != nil {
		return
	}
	if phase == annotation.PhaseDragging {
		// Live preview for the other viewers; nothing is committed yet.
		h.broadcast(b.ID, c, h.message("drag_preview", p))
	}
}

func (h *BoardWSHandler) handlePointerUp(c *websocket.Conn, b *board.Board, payload json.RawMessage) {
	var p PointerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	result, err := b.Drag.Release(p.X, p.Y)
	if err != nil {
		return
	}

	if !result.Moved {
		// A press that never crossed the threshold is a click on the note;
		// clicking a minimized note expands it.
		h.send(c, h.message("note_clicked", map[string]string{"noteId": result.TargetID}))
		h.expandIfMinimized(b, result.TargetID)
		return
	}

	if err := h.commitMove(b, result); err != nil {
		h.sendError(c, err.Error())
	}
}

// finishAbandonedDrag resolves a session whose owner disconnected. The
// gesture commits at the last pointer position the connection reported, the
// same outcome a pointer_up at that position would have produced.
func (h *BoardWSHandler) finishAbandonedDrag(b *board.Board) {
	result, err := b.Drag.ReleaseAtLast()
	if err != nil {
		return
	}
	if !result.Moved {
		h.expandIfMinimized(b, result.TargetID)
		return
	}
	if err := h.commitMove(b, result); err != nil {
		log.Printf("⚠️ [Board %s] Abandoned drag commit failed: %v", b.ID, err)
	}
}

// commitMove persists a committed drag and announces the new position.
func (h *BoardWSHandler) commitMove(b *board.Board, result annotation.DragResult) error {
	note, err := b.Store.Note(result.TargetID)
	if err != nil {
		return err
	}

	pos := b.Mapper().FromPixels(result.X, result.Y, b.Metrics(), note.Context, b.Registry)
	moved, err := b.Store.MoveNote(result.TargetID, pos)
	if err != nil {
		return err
	}

	h.broadcastAll(b.ID, h.message("note_moved", moved))
	return nil
}

// expandIfMinimized restores a minimized note in place when it is clicked.
func (h *BoardWSHandler) expandIfMinimized(b *board.Board, noteID string) {
	note, err := b.Store.Note(noteID)
	if err != nil || !note.IsMinimized {
		return
	}

	expanded := false
	updated, err := b.Store.UpdateNote(noteID, annotation.NotePatch{IsMinimized: &expanded})
	if err != nil {
		return
	}
	h.broadcastAll(b.ID, h.message("note_updated", updated))
}

func (h *BoardWSHandler) message(msgType string, payload interface{}) BoardWSMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("⚠️ [Board] Failed to marshal %s payload: %v", msgType, err)
		return BoardWSMessage{Type: msgType}
	}
	return BoardWSMessage{Type: msgType, Payload: data}
}

func (h *BoardWSHandler) send(c *websocket.Conn, msg BoardWSMessage) {
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := c.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
		log.Printf("📤 [Board] Send failed: %v", err)
	}
}

func (h *BoardWSHandler) sendError(c *websocket.Conn, message string) {
	h.send(c, h.message("error", map[string]string{"message": message}))
}

// broadcast sends to every connection on the board except the sender.
func (h *BoardWSHandler) broadcast(shareID string, sender *websocket.Conn, msg BoardWSMessage) {
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients[shareID] {
		if conn == sender {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
			log.Printf("📤 [Board %s] Broadcast failed: %v", shareID, err)
		}
	}
}

// broadcastAll sends to every connection on the board, sender included.
func (h *BoardWSHandler) broadcastAll(shareID string, msg BoardWSMessage) {
	h.broadcast(shareID, nil, msg)
}

// ConnectedBoards returns the number of boards with live connections.
func (h *BoardWSHandler) ConnectedBoards() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
