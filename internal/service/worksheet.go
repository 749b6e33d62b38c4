package service

import (
	"context"
	"fmt"
	"math"
	"sync"

	"cable-orchestrator/internal/metrics"
	"cable-orchestrator/internal/models"

	"go.uber.org/zap"
)

// DefaultGroupingThreshold is the grouping threshold a new worksheet starts with.
const DefaultGroupingThreshold = 0.85

// Sizer is the external sizing service.
type Sizer interface {
	BulkSize(ctx context.Context, rows []models.SizingInput) ([]models.SizingResult, error)
	Size(ctx context.Context, row models.SizingInput) (*models.SizingResult, error)
}

// Worksheet is the in-memory table of bulk sizing rows. All methods are safe
// for concurrent use; every mutation is applied under the worksheet lock so
// no partially updated row is ever visible. Network calls run on a snapshot
// without holding the lock.
type Worksheet struct {
	mu       sync.Mutex
	rows     []models.BulkRow
	nextID   uint64
	grouping float64

	sizer  Sizer
	logger *zap.Logger
}

// NewWorksheet returns an empty worksheet.
func NewWorksheet(sizer Sizer, logger *zap.Logger) *Worksheet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worksheet{
		grouping: DefaultGroupingThreshold,
		sizer:    sizer,
		logger:   logger,
	}
}

// newID must be called with mu held. Identifiers are never reused.
func (w *Worksheet) newID() string {
	w.nextID++
	return fmt.Sprintf("row-%d", w.nextID)
}

// AddRow appends a row with the documented defaults and returns a copy. The
// cable number follows the row counter, so it is not repeated after a delete.
func (w *Worksheet) AddRow() models.BulkRow {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.newID()
	row := models.BulkRow{
		ID:          id,
		CableNumber: fmt.Sprintf("CBL-%d", w.nextID),
		Voltage:     415,
		PF:          0.85,
		Eff:         0.95,
		Length:      50,
		MVPerAM:     0.44,
		Derating1:   1,
		Derating2:   0.9,
		SCCurrent:   8000,
		SCTime:      1,
		KConst:      115,
	}
	w.rows = append(w.rows, row)
	return row.Clone()
}

// DeleteRow removes the row with the given id. It reports whether a row was
// removed; an unknown id is a no-op.
func (w *Worksheet) DeleteRow(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexOf(id)
	if i < 0 {
		return false
	}
	w.rows = append(w.rows[:i], w.rows[i+1:]...)
	return true
}

// UpdateField sets one field of one row. Numeric fields coerce the value to a
// number; an empty value clears the optional resistance/reactance inputs. It
// reports whether the row exists. Unknown fields and values that are not
// numbers leave the row unchanged and return a ValidationError.
func (w *Worksheet) UpdateField(id, field string, value interface{}) (bool, error) {
	setter, ok := rowFields[field]
	if !ok {
		return false, invalid(field, "unknown field")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexOf(id)
	if i < 0 {
		return false, nil
	}
	updated := w.rows[i].Clone()
	if err := setter(&updated, value); err != nil {
		return true, err
	}
	w.rows[i] = updated
	return true, nil
}

// Rows returns a deep copy of all rows in worksheet order.
func (w *Worksheet) Rows() []models.BulkRow {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot()
}

// Row returns a copy of the row with the given id.
func (w *Worksheet) Row(id string) (models.BulkRow, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexOf(id)
	if i < 0 {
		return models.BulkRow{}, false
	}
	return w.rows[i].Clone(), true
}

// Len returns the number of rows.
func (w *Worksheet) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rows)
}

// GroupingThreshold returns the threshold sent with every sizing batch.
func (w *Worksheet) GroupingThreshold() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.grouping
}

// SetGroupingThreshold changes the shared grouping threshold. It must lie in [0, 1].
func (w *Worksheet) SetGroupingThreshold(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return invalid("grouping_threshold", "must be between 0 and 1, got %v", v)
	}
	w.mu.Lock()
	w.grouping = v
	w.mu.Unlock()
	return nil
}

// Restore replaces the worksheet content, e.g. from a saved snapshot. Rows
// without an id, or with a duplicate id, get a fresh one.
func (w *Worksheet) Restore(rows []models.BulkRow, grouping float64) error {
	if err := w.SetGroupingThreshold(grouping); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[string]bool, len(rows))
	restored := make([]models.BulkRow, 0, len(rows))
	for _, r := range rows {
		var n uint64
		if _, err := fmt.Sscanf(r.ID, "row-%d", &n); err == nil && n > w.nextID {
			w.nextID = n
		}
		restored = append(restored, r.Clone())
	}
	for i := range restored {
		if restored[i].ID == "" || seen[restored[i].ID] {
			restored[i].ID = w.newID()
		}
		seen[restored[i].ID] = true
	}
	w.rows = restored
	return nil
}

// Recompute sizes every row in one batch call and replaces each row's result
// wholesale. The request is built from a snapshot and the response is
// aligned with it by position. On any failure no row is changed and a
// RecomputeError is returned. Rows deleted while the call was in flight are
// skipped; rows added meanwhile keep their previous (absent) result.
func (w *Worksheet) Recompute(ctx context.Context) error {
	w.mu.Lock()
	snap := w.snapshot()
	grouping := w.grouping
	w.mu.Unlock()

	if len(snap) == 0 {
		return nil
	}

	inputs := make([]models.SizingInput, len(snap))
	for i, r := range snap {
		inputs[i] = SizingInputFor(r, grouping)
	}

	results, err := w.sizer.BulkSize(ctx, inputs)
	if err == nil && len(results) != len(inputs) {
		err = fmt.Errorf("sizing service returned %d results for %d rows", len(results), len(inputs))
	}
	if err != nil {
		metrics.RecomputeTotal.WithLabelValues("error").Inc()
		w.logger.Warn("bulk sizing failed, keeping previous results",
			zap.Int("rows", len(inputs)),
			zap.Error(err),
		)
		return &RecomputeError{Rows: len(inputs), Err: err}
	}

	w.mu.Lock()
	for i, r := range snap {
		j := w.indexOf(r.ID)
		if j < 0 {
			continue
		}
		res := results[i]
		w.rows[j].Result = res.Clone()
	}
	w.mu.Unlock()

	metrics.RecomputeTotal.WithLabelValues("ok").Inc()
	w.logger.Info("bulk sizing complete", zap.Int("rows", len(inputs)), zap.Float64("grouping_threshold", grouping))
	return nil
}

// SizeOne sizes a single row through the single-row endpoint and replaces
// its result. It reports whether the row exists.
func (w *Worksheet) SizeOne(ctx context.Context, id string) (bool, error) {
	w.mu.Lock()
	i := w.indexOf(id)
	if i < 0 {
		w.mu.Unlock()
		return false, nil
	}
	input := SizingInputFor(w.rows[i], w.grouping)
	w.mu.Unlock()

	res, err := w.sizer.Size(ctx, input)
	if err == nil && res == nil {
		err = fmt.Errorf("sizing service returned no result")
	}
	if err != nil {
		return true, &RecomputeError{Rows: 1, Err: err}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if j := w.indexOf(id); j >= 0 {
		w.rows[j].Result = res.Clone()
	}
	return true, nil
}

// ApplyMatches attaches the top suggestion of every non-empty result to the
// row at its RowIndex, then runs exactly one Recompute so the catalog
// resistance and reactance take effect. Results with no suggestions or an
// out-of-range index are ignored. The number of rows changed is returned; a
// failed recompute leaves the attachments in place and returns its error.
func (w *Worksheet) ApplyMatches(ctx context.Context, results []models.RowMatchResult) (int, error) {
	return w.applyMatches(ctx, results, func(i int) int {
		if i < 0 || i >= len(w.rows) {
			return -1
		}
		return i
	})
}

// ApplyMatchesTo is ApplyMatches for results computed against an earlier
// snapshot: RowIndex addresses rowIDs, and each id is looked up in the
// current worksheet. Rows deleted since the snapshot are skipped.
func (w *Worksheet) ApplyMatchesTo(ctx context.Context, rowIDs []string, results []models.RowMatchResult) (int, error) {
	return w.applyMatches(ctx, results, func(i int) int {
		if i < 0 || i >= len(rowIDs) {
			return -1
		}
		return w.indexOf(rowIDs[i])
	})
}

// resolve runs with mu held and maps a RowIndex to a position in rows, or -1.
func (w *Worksheet) applyMatches(ctx context.Context, results []models.RowMatchResult, resolve func(int) int) (int, error) {
	applied := 0

	w.mu.Lock()
	for _, m := range results {
		best := m.Best()
		if best == nil {
			continue
		}
		j := resolve(m.RowIndex)
		if j < 0 {
			continue
		}
		row := w.rows[j].Clone()
		row.Catalog = models.AttachmentFromEntry(*best)
		row.ROhmPerKm = models.Float(best.ROhmPerKm)
		row.XOhmPerKm = models.Float(best.XOhmPerKm)
		w.rows[j] = row
		applied++
	}
	w.mu.Unlock()

	metrics.MatchesApplied.Add(float64(applied))
	w.logger.Info("catalog matches applied", zap.Int("results", len(results)), zap.Int("applied", applied))

	return applied, w.Recompute(ctx)
}

// snapshot must be called with mu held.
func (w *Worksheet) snapshot() []models.BulkRow {
	out := make([]models.BulkRow, len(w.rows))
	for i, r := range w.rows {
		out[i] = r.Clone()
	}
	return out
}

// indexOf must be called with mu held.
func (w *Worksheet) indexOf(id string) int {
	for i := range w.rows {
		if w.rows[i].ID == id {
			return i
		}
	}
	return -1
}

// SizingInputFor builds the sizing request row for r.
func SizingInputFor(r models.BulkRow, grouping float64) models.SizingInput {
	in := models.SizingInput{
		CableNumber:       r.CableNumber,
		LoadKW:            r.LoadKW,
		LoadKVA:           r.LoadKVA,
		Current:           r.Current,
		Voltage:           r.Voltage,
		PF:                r.PF,
		Eff:               r.Eff,
		Length:            r.Length,
		MVPerAM:           r.MVPerAM,
		ROhmPerKm:         r.ROhmPerKm,
		XOhmPerKm:         r.XOhmPerKm,
		DeratingFactors:   []float64{r.Derating1, r.Derating2},
		CSAOptions:        append([]float64(nil), models.DefaultCSAOptions...),
		SCCurrent:         r.SCCurrent,
		SCTime:            r.SCTime,
		KConst:            r.KConst,
		GroupingThreshold: grouping,
	}
	if r.Catalog != nil {
		in.CatalogRatedCurrentAir = r.Catalog.RatedCurrentAir
		in.CatalogRatedCurrentTrench = r.Catalog.RatedCurrentTrench
		in.CatalogRatedCurrentDuct = r.Catalog.RatedCurrentDuct
	}
	return in
}
