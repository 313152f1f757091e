package timeline

import (
	"encoding/json"
	"errors"
	"time"

	"cgt-timeline-backend/internal/annotation"
)

// SnapshotVersion current shareable snapshot schema version.
const SnapshotVersion = 1

var (
	ErrNoProperties = errors.New("timeline has no properties")
	ErrNoEvents     = errors.New("timeline has no events")
)

// Property a property tracked on the CGT timeline
type Property struct {
	ID            string     `json:"id"`
	Address       string     `json:"address"`
	Nickname      string     `json:"nickname,omitempty"`
	Color         string     `json:"color,omitempty"`
	PurchaseDate  *time.Time `json:"purchaseDate,omitempty"`
	PurchasePrice float64    `json:"purchasePrice,omitempty"`
	SaleDate      *time.Time `json:"saleDate,omitempty"`
	SalePrice     float64    `json:"salePrice,omitempty"`
}

// Event an ownership or occupancy event on a property
type Event struct {
	ID         string     `json:"id"`
	PropertyID string     `json:"propertyId"`
	Type       string     `json:"type"` // purchase, sale, move_in, move_out, rent_start, rent_end, ...
	Date       time.Time  `json:"date"`
	EndDate    *time.Time `json:"endDate,omitempty"`
	Label      string     `json:"label,omitempty"`
}

// Note free-text note attached to a property period (pre-dates sticky notes)
type Note struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"propertyId,omitempty"`
	Date       time.Time `json:"date"`
	Text       string    `json:"text"`
}

// SavedAnalysis a completed analysis embedded in a shared snapshot so the
// recipient sees the same report and its annotations
type SavedAnalysis struct {
	Response    json.RawMessage          `json:"response"`
	AnalyzedAt  time.Time                `json:"analyzedAt"`
	LLMProvider string                   `json:"llmProvider,omitempty"`
	Annotations annotation.StoreSnapshot `json:"annotations"`
}

// Snapshot full shareable timeline state
type Snapshot struct {
	Version     int        `json:"version"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Properties  []Property `json:"properties"`
	Events      []Event    `json:"events"`
	Notes       []Note     `json:"notes,omitempty"`

	Annotations   annotation.StoreSnapshot `json:"annotations"`
	SavedAnalysis *SavedAnalysis           `json:"savedAnalysis,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the minimum a snapshot needs to be shareable.
func (s *Snapshot) Validate() error {
	if len(s.Properties) == 0 {
		return ErrNoProperties
	}
	if len(s.Events) == 0 {
		return ErrNoEvents
	}
	return nil
}

// Range returns the date span covered by the timeline, derived from events
// and property purchase/sale dates.
func (s *Snapshot) Range() (start, end time.Time) {
	extend := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if start.IsZero() || t.Before(start) {
			start = t
		}
		if end.IsZero() || t.After(end) {
			end = t
		}
	}

	for _, e := range s.Events {
		extend(e.Date)
		if e.EndDate != nil {
			extend(*e.EndDate)
		}
	}
	for _, p := range s.Properties {
		if p.PurchaseDate != nil {
			extend(*p.PurchaseDate)
		}
		if p.SaleDate != nil {
			extend(*p.SaleDate)
		}
	}
	return start, end
}
