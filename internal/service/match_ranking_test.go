package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cable-orchestrator/internal/models"
)

func TestRequiredCurrent(t *testing.T) {
	tests := []struct {
		name   string
		result *models.SizingResult
		want   float64
	}{
		{name: "unsized", result: nil, want: 0},
		{name: "derated wins", result: &models.SizingResult{FLC: 100, DeratedCurrent: models.Float(125)}, want: 125},
		{name: "zero derated is kept", result: &models.SizingResult{FLC: 100, DeratedCurrent: models.Float(0)}, want: 0},
		{name: "falls back to flc", result: &models.SizingResult{FLC: 100}, want: 100},
		{name: "nothing computed", result: &models.SizingResult{}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiredCurrent(models.BulkRow{Result: tt.result}))
		})
	}
}

func TestBuildMatchRows(t *testing.T) {
	rows := []models.BulkRow{
		{CableNumber: "F1", Voltage: 415, Result: &models.SizingResult{DeratedCurrent: models.Float(88)}},
		{CableNumber: "F2", Voltage: 11000},
	}

	got := BuildMatchRows(rows)

	assert.Equal(t, []models.MatchRow{
		{Index: 0, CableNumber: "F1", Voltage: 415, RequiredCurrent: 88},
		{Index: 1, CableNumber: "F2", Voltage: 11000, RequiredCurrent: 0},
	}, got)
}

func TestResolveMatches(t *testing.T) {
	idx := func(i int) *int { return &i }
	suggestions := func(parts ...string) []models.MatchSuggestion {
		out := make([]models.MatchSuggestion, len(parts))
		for i, p := range parts {
			out[i] = models.MatchSuggestion{Score: float64(len(parts) - i), Entry: models.CatalogEntry{PartNo: p}}
		}
		return out
	}

	resp := &models.MatchResponse{Matches: []models.MatchResponseRow{
		{RowIndex: idx(2), CableNumber: "F3", Suggestions: suggestions("A", "B", "C", "D")},
		{RowIndex: nil, CableNumber: "F2", Suggestions: suggestions("E")},
		{RowIndex: idx(5), CableNumber: "ghost", Suggestions: suggestions("F")},
		{RowIndex: idx(-1), Suggestions: suggestions("G")},
		{RowIndex: idx(0), CableNumber: "F1"},
	}}

	got := ResolveMatches(resp, 3, 3)

	require.Len(t, got, 3)
	assert.Equal(t, 2, got[0].RowIndex)
	assert.Len(t, got[0].Suggestions, 3)
	assert.Equal(t, "A", got[0].Best().PartNo)
	assert.Equal(t, 1, got[1].RowIndex, "missing row_index falls back to position")
	assert.Equal(t, 0, got[2].RowIndex)
	assert.NotNil(t, got[2].Suggestions)
	assert.Nil(t, got[2].Best())

	assert.Len(t, resp.Matches[0].Suggestions, 4, "response is not modified")
	assert.Nil(t, ResolveMatches(nil, 3, 3))
}
