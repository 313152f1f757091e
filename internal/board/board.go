package board

import (
	"sync"
	"time"

	"cgt-timeline-backend/internal/annotation"
	"cgt-timeline-backend/internal/verification"
)

// Board live working state for one timeline (thread-safe). Each board owns
// its annotation store, section registry, drag controller and verification
// flow; durable state lives in the share snapshot.
type Board struct {
	ID string

	Store    *annotation.Store
	Registry *annotation.Registry
	Drag     *annotation.DragController
	Flow     *verification.Flow

	mu         sync.RWMutex
	rangeStart time.Time
	rangeEnd   time.Time
	metrics    annotation.Metrics
	lastActive time.Time
}

// New creates a Board.
func New(id string) *Board {
	return &Board{
		ID:         id,
		Store:      annotation.NewStore(),
		Registry:   annotation.NewRegistry(),
		Drag:       annotation.NewDragController(),
		Flow:       verification.NewFlow(),
		lastActive: time.Now(),
	}
}

// Touch marks the board as recently used.
func (b *Board) Touch() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastActive = time.Now()
}

// LastActive returns the last activity time.
func (b *Board) LastActive() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastActive
}

// SetRange sets the visible timeline date range used for anchor conversion.
func (b *Board) SetRange(start, end time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rangeStart = start
	b.rangeEnd = end
}

// SetMetrics records the client's latest container geometry.
func (b *Board) SetMetrics(m annotation.Metrics) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = m
}

// Metrics returns the last reported container geometry.
func (b *Board) Metrics() annotation.Metrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metrics
}

// Mapper returns a coordinate mapper for the current range.
func (b *Board) Mapper() *annotation.Mapper {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return annotation.NewMapper(b.rangeStart, b.rangeEnd)
}
