package models

// CatalogEntry is one vendor part as returned by the catalog service.
// Entries are never mutated after decoding. (vendor, part_no) identifies
// an entry for display only; duplicates are legal.
type CatalogEntry struct {
	CSAmm2             float64  `json:"csa_mm2"`
	Conductor          string   `json:"conductor"`
	Cores              int      `json:"cores"`
	Armour             string   `json:"armour"`
	ROhmPerKm          float64  `json:"r_ohm_per_km"`
	XOhmPerKm          float64  `json:"x_ohm_per_km"`
	ODmm               float64  `json:"od_mm"`
	WeightKgPerKm      float64  `json:"weight_kg_per_km"`
	Vendor             string   `json:"vendor"`
	PartNo             string   `json:"part_no"`
	RatedCurrentAir    *float64 `json:"rated_current_air,omitempty"`
	RatedCurrentTrench *float64 `json:"rated_current_trench,omitempty"`
	RatedCurrentDuct   *float64 `json:"rated_current_duct,omitempty"`
}

// UploadInfo is the reply of both spreadsheet upload endpoints.
type UploadInfo struct {
	Token   string                   `json:"token"`
	Headers []string                 `json:"headers"`
	Sample  []map[string]interface{} `json:"sample"`
}

// MapCatalogResponse is the reply of the catalog mapping endpoint.
type MapCatalogResponse struct {
	Token   string         `json:"token,omitempty"`
	Count   int            `json:"count"`
	Preview []CatalogEntry `json:"preview,omitempty"`
}

// MatchRequestRow is one row of the catalog match request.
type MatchRequestRow struct {
	CableNumber    string  `json:"cable_number"`
	Voltage        float64 `json:"voltage"`
	DeratedCurrent float64 `json:"derated_current"`
}

// MatchRequest is the body of the catalog match endpoint.
type MatchRequest struct {
	Token string            `json:"token"`
	Rows  []MatchRequestRow `json:"rows"`
	TopN  int               `json:"top_n"`
}

// MatchSuggestion is one ranked candidate. Only the ordering of scores is
// meaningful; the scale belongs to the ranking service.
type MatchSuggestion struct {
	Score float64      `json:"score"`
	Entry CatalogEntry `json:"entry"`
}

// MatchResponseRow is a per-row result as decoded from the wire. RowIndex is
// a pointer so a missing index can be told apart from index 0.
type MatchResponseRow struct {
	RowIndex    *int              `json:"row_index"`
	CableNumber string            `json:"cable_number"`
	Suggestions []MatchSuggestion `json:"suggestions"`
}

// MatchResponse is the reply of the catalog match endpoint.
type MatchResponse struct {
	Matches []MatchResponseRow `json:"matches"`
}

// RowMatchResult is the suggestion list for one worksheet row. RowIndex is
// the position of the row in the match request, not its identifier.
type RowMatchResult struct {
	RowIndex    int               `json:"row_index"`
	CableNumber string            `json:"cable_number"`
	Suggestions []MatchSuggestion `json:"suggestions"`
}

// Best returns the top-ranked entry, or nil when the list is empty.
func (r RowMatchResult) Best() *CatalogEntry {
	if len(r.Suggestions) == 0 {
		return nil
	}
	e := r.Suggestions[0].Entry
	return &e
}

// MatchRow is a worksheet row reduced to what the ranking service needs.
type MatchRow struct {
	Index           int     `json:"index"`
	CableNumber     string  `json:"cable_number"`
	Voltage         float64 `json:"voltage"`
	RequiredCurrent float64 `json:"required_current"`
}
