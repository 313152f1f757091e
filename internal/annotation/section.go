package annotation

import (
	"sync"
)

// Canonical section names used by the analysis view.
const (
	SectionSummary         = "summary"
	SectionPropertyCard    = "property-card"
	SectionCalculation     = "calculation-breakdown"
	SectionDetailedReport  = "detailed-report"
	SectionRecommendations = "recommendations"
	SectionWhatIf          = "what-if"
	SectionRules           = "rules"
	SectionGeneral         = "general"
)

// Rect bounding box in client pixel coordinates
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether the point lies inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Left+r.Width && y >= r.Top && y <= r.Top+r.Height
}

// SectionEntry registered layout region
type SectionEntry struct {
	Section   string `json:"section"`
	ElementID string `json:"elementId,omitempty"`
	Rect      Rect   `json:"rect"`

	seq uint64
}

// Key registry key: section or section:elementId.
func (e SectionEntry) Key() string {
	return sectionKey(e.Section, e.ElementID)
}

func sectionKey(section, elementID string) string {
	if elementID == "" {
		return section
	}
	return section + ":" + elementID
}

// Registry live map of named layout regions to bounding rects.
//
// Regions register themselves when they mount and push fresh rects on layout
// changes; nothing here polls or inspects a DOM.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*SectionEntry
	nextSeq uint64
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*SectionEntry)}
}

// Register adds a region, or refreshes its rect if already present.
// Re-registration moves the region above earlier ones for hit-testing.
func (r *Registry) Register(section, elementID string, rect Rect) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextSeq++
	r.entries[sectionKey(section, elementID)] = &SectionEntry{
		Section:   section,
		ElementID: elementID,
		Rect:      rect,
		seq:       r.nextSeq,
	}
}

// Update refreshes the rect of a registered region without changing its
// stacking order. Returns false if the region is unknown.
func (r *Registry) Update(section, elementID string, rect Rect) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[sectionKey(section, elementID)]
	if !ok {
		return false
	}
	entry.Rect = rect
	return true
}

// Deregister removes a region.
func (r *Registry) Deregister(section, elementID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, sectionKey(section, elementID))
}

// Lookup returns the rect for a region.
func (r *Registry) Lookup(section, elementID string) (Rect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.entries[sectionKey(section, elementID)]; ok {
		return entry.Rect, true
	}
	// A note anchored to a specific element survives that element unmounting
	// by falling back to its parent section.
	if elementID != "" {
		if entry, ok := r.entries[section]; ok {
			return entry.Rect, true
		}
	}
	return Rect{}, false
}

// HitTest returns the region under the point. Element-level regions sit above
// their parent section; ties go to the most recently registered.
func (r *Registry) HitTest(x, y float64) (SectionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *SectionEntry
	for _, entry := range r.entries {
		if !entry.Rect.Contains(x, y) {
			continue
		}
		if best == nil || hitAbove(entry, best) {
			best = entry
		}
	}
	if best == nil {
		return SectionEntry{}, false
	}
	return *best, true
}

func hitAbove(a, b *SectionEntry) bool {
	aElem := a.ElementID != ""
	bElem := b.ElementID != ""
	if aElem != bElem {
		return aElem
	}
	return a.seq > b.seq
}

// Snapshot returns all registered regions.
func (r *Registry) Snapshot() []SectionEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SectionEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, *entry)
	}
	return out
}

// Len returns the number of registered regions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
