package timeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		snapshot Snapshot
		wantErr  error
	}{
		{
			name:    "no properties",
			wantErr: ErrNoProperties,
		},
		{
			name: "no events",
			snapshot: Snapshot{
				Properties: []Property{{ID: "p1", Address: "1 Main St"}},
			},
			wantErr: ErrNoEvents,
		},
		{
			name: "valid",
			snapshot: Snapshot{
				Properties: []Property{{ID: "p1", Address: "1 Main St"}},
				Events:     []Event{{ID: "e1", PropertyID: "p1", Type: "purchase", Date: date(2020, 1, 1)}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snapshot.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRangeSpansEventsAndPropertyDates(t *testing.T) {
	purchase := date(2018, 3, 1)
	sale := date(2024, 6, 1)
	s := Snapshot{
		Properties: []Property{{
			ID:           "p1",
			Address:      "1 Main St",
			PurchaseDate: &purchase,
			SaleDate:     &sale,
		}},
		Events: []Event{
			{ID: "e1", PropertyID: "p1", Type: "move_in", Date: date(2019, 1, 1)},
			{ID: "e2", PropertyID: "p1", Type: "move_out", Date: date(2021, 1, 1)},
		},
	}

	start, end := s.Range()
	assert.Equal(t, purchase, start)
	assert.Equal(t, sale, end)
}

func TestRangeUsesEventEndDates(t *testing.T) {
	rentEnd := date(2025, 1, 1)
	s := Snapshot{
		Events: []Event{
			{ID: "e1", Type: "rent_start", Date: date(2022, 1, 1), EndDate: &rentEnd},
		},
	}

	start, end := s.Range()
	assert.Equal(t, date(2022, 1, 1), start)
	assert.Equal(t, rentEnd, end)
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	purchase := date(2020, 1, 1)
	s := Snapshot{
		Version: SnapshotVersion,
		Title:   "Investment portfolio",
		Properties: []Property{{
			ID:            "p1",
			Address:       "1 Main St",
			PurchaseDate:  &purchase,
			PurchasePrice: 650000,
		}},
		Events: []Event{{ID: "e1", PropertyID: "p1", Type: "purchase", Date: purchase}},
	}

	data, err := json.Marshal(&s)
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, s.Title, decoded.Title)
	require.Len(t, decoded.Properties, 1)
	assert.Equal(t, 650000.0, decoded.Properties[0].PurchasePrice)
}
