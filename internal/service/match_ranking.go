package service

import "cable-orchestrator/internal/models"

// RequiredCurrent is the current a catalog entry has to carry for row: the
// derated current once the row is sized, else its full-load current, else 0.
// A derated current of 0 is used as is; only a missing one falls back.
func RequiredCurrent(row models.BulkRow) float64 {
	r := row.Result
	if r == nil {
		return 0
	}
	if r.DeratedCurrent != nil {
		return *r.DeratedCurrent
	}
	return r.FLC
}

// BuildMatchRows turns worksheet rows into match request rows, keeping their
// order. Rows with no required current are kept; the ranking service
// decides what is suitable.
func BuildMatchRows(rows []models.BulkRow) []models.MatchRow {
	out := make([]models.MatchRow, len(rows))
	for i, r := range rows {
		out[i] = models.MatchRow{
			Index:           i,
			CableNumber:     r.CableNumber,
			Voltage:         r.Voltage,
			RequiredCurrent: RequiredCurrent(r),
		}
	}
	return out
}

func matchRequestRows(rows []models.MatchRow) []models.MatchRequestRow {
	out := make([]models.MatchRequestRow, len(rows))
	for i, r := range rows {
		out[i] = models.MatchRequestRow{
			CableNumber:    r.CableNumber,
			Voltage:        r.Voltage,
			DeratedCurrent: r.RequiredCurrent,
		}
	}
	return out
}

// ResolveMatches re-associates a match response with the request rows. Each
// entry is placed by its row_index; only an entry without row_index falls
// back to its position in the response. Entries addressing a row outside
// [0, rowCount) are dropped. Suggestion lists keep the service's order and
// are cut to topN.
func ResolveMatches(resp *models.MatchResponse, rowCount, topN int) []models.RowMatchResult {
	if resp == nil {
		return nil
	}
	out := make([]models.RowMatchResult, 0, len(resp.Matches))
	for pos, m := range resp.Matches {
		idx := pos
		if m.RowIndex != nil {
			idx = *m.RowIndex
		}
		if idx < 0 || idx >= rowCount {
			continue
		}
		suggestions := m.Suggestions
		if topN > 0 && len(suggestions) > topN {
			suggestions = suggestions[:topN]
		}
		out = append(out, models.RowMatchResult{
			RowIndex:    idx,
			CableNumber: m.CableNumber,
			Suggestions: append([]models.MatchSuggestion{}, suggestions...),
		})
	}
	return out
}
