package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	rect := Rect{Left: 10, Top: 20, Width: 300, Height: 150}
	reg.Register(SectionSummary, "", rect)

	got, ok := reg.Lookup(SectionSummary, "")
	require.True(t, ok)
	assert.Equal(t, rect, got)

	_, ok = reg.Lookup(SectionRules, "")
	assert.False(t, ok)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryElementFallsBackToSection(t *testing.T) {
	reg := NewRegistry()
	sectionRect := Rect{Left: 0, Top: 0, Width: 500, Height: 400}
	reg.Register(SectionPropertyCard, "", sectionRect)

	// Element never registered: the parent section rect still anchors it.
	got, ok := reg.Lookup(SectionPropertyCard, "prop-42")
	require.True(t, ok)
	assert.Equal(t, sectionRect, got)

	elemRect := Rect{Left: 50, Top: 60, Width: 200, Height: 100}
	reg.Register(SectionPropertyCard, "prop-42", elemRect)
	got, ok = reg.Lookup(SectionPropertyCard, "prop-42")
	require.True(t, ok)
	assert.Equal(t, elemRect, got)
}

func TestRegistryUpdate(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.Update(SectionSummary, "", Rect{}))

	reg.Register(SectionSummary, "", Rect{Width: 100, Height: 100})
	moved := Rect{Left: 5, Top: 5, Width: 120, Height: 90}
	assert.True(t, reg.Update(SectionSummary, "", moved))

	got, _ := reg.Lookup(SectionSummary, "")
	assert.Equal(t, moved, got)
}

func TestRegistryHitTestPrefersElements(t *testing.T) {
	reg := NewRegistry()
	reg.Register(SectionPropertyCard, "", Rect{Left: 0, Top: 0, Width: 500, Height: 500})
	reg.Register(SectionPropertyCard, "prop-1", Rect{Left: 100, Top: 100, Width: 100, Height: 100})

	entry, ok := reg.HitTest(150, 150)
	require.True(t, ok)
	assert.Equal(t, "prop-1", entry.ElementID)

	entry, ok = reg.HitTest(400, 400)
	require.True(t, ok)
	assert.Empty(t, entry.ElementID)

	_, ok = reg.HitTest(900, 900)
	assert.False(t, ok)
}

func TestRegistryHitTestLatestWins(t *testing.T) {
	reg := NewRegistry()
	reg.Register(SectionSummary, "", Rect{Left: 0, Top: 0, Width: 300, Height: 300})
	reg.Register(SectionRecommendations, "", Rect{Left: 0, Top: 0, Width: 300, Height: 300})

	entry, ok := reg.HitTest(10, 10)
	require.True(t, ok)
	assert.Equal(t, SectionRecommendations, entry.Section)

	// Re-registering brings a section back on top.
	reg.Register(SectionSummary, "", Rect{Left: 0, Top: 0, Width: 300, Height: 300})
	entry, ok = reg.HitTest(10, 10)
	require.True(t, ok)
	assert.Equal(t, SectionSummary, entry.Section)
}

func TestRegistryDeregister(t *testing.T) {
	reg := NewRegistry()
	reg.Register(SectionWhatIf, "", Rect{Width: 100, Height: 100})
	reg.Deregister(SectionWhatIf, "")

	_, ok := reg.Lookup(SectionWhatIf, "")
	assert.False(t, ok)
	assert.Empty(t, reg.Snapshot())
}
