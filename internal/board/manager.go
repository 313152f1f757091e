package board

import (
	"log"
	"sync"
	"time"
)

// Manager holds live boards keyed by share id and evicts idle ones.
type Manager struct {
	mu      sync.Mutex
	boards  map[string]*Board
	idleTTL time.Duration
	stop    chan struct{}
	once    sync.Once
}

// NewManager creates a Manager and starts its eviction loop.
func NewManager(idleTTL time.Duration) *Manager {
	m := &Manager{
		boards:  make(map[string]*Board),
		idleTTL: idleTTL,
		stop:    make(chan struct{}),
	}
	if idleTTL > 0 {
		go m.evictLoop()
	}
	return m
}

// Get returns a board if it exists.
func (m *Manager) Get(id string) (*Board, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	return b, ok
}

// GetOrCreate returns the board for an id, creating it on first use.
func (m *Manager) GetOrCreate(id string) *Board {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.boards[id]; ok {
		return b
	}
	b := New(id)
	m.boards[id] = b
	log.Printf("📋 [Board] Created board %s (total: %d)", id, len(m.boards))
	return b
}

// Remove drops a board.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.boards, id)
}

// Count returns the number of live boards.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.boards)
}

// Close stops the eviction loop.
func (m *Manager) Close() {
	m.once.Do(func() { close(m.stop) })
}

func (m *Manager) evictLoop() {
	interval := m.idleTTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, b := range m.boards {
		if b.LastActive().Before(cutoff) {
			delete(m.boards, id)
			log.Printf("🧹 [Board] Evicted idle board %s", id)
		}
	}
}
