package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"cable-orchestrator/internal/metrics"
	"cable-orchestrator/internal/models"
)

type fieldSetter func(row *models.BulkRow, value interface{}) error

func stringField(get func(*models.BulkRow) *string) fieldSetter {
	return func(row *models.BulkRow, value interface{}) error {
		if s, ok := value.(string); ok {
			*get(row) = s
			return nil
		}
		*get(row) = stringValue(value)
		return nil
	}
}

func numberField(name string, get func(*models.BulkRow) *float64) fieldSetter {
	return func(row *models.BulkRow, value interface{}) error {
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			*get(row) = 0
			return nil
		}
		n, ok := toNumber(value)
		if !ok {
			return invalid(name, "not a number: %v", value)
		}
		*get(row) = n
		return nil
	}
}

func optionalNumberField(name string, get func(*models.BulkRow) **float64) fieldSetter {
	return func(row *models.BulkRow, value interface{}) error {
		if value == nil {
			*get(row) = nil
			return nil
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			*get(row) = nil
			return nil
		}
		n, ok := toNumber(value)
		if !ok {
			return invalid(name, "not a number: %v", value)
		}
		*get(row) = models.Float(n)
		return nil
	}
}

// rowFields lists every user-editable row field.
var rowFields = map[string]fieldSetter{
	"cable_number":   stringField(func(r *models.BulkRow) *string { return &r.CableNumber }),
	"from_equipment": stringField(func(r *models.BulkRow) *string { return &r.FromEquipment }),
	"to_equipment":   stringField(func(r *models.BulkRow) *string { return &r.ToEquipment }),
	"load_kw":        numberField("load_kw", func(r *models.BulkRow) *float64 { return &r.LoadKW }),
	"load_kva":       numberField("load_kva", func(r *models.BulkRow) *float64 { return &r.LoadKVA }),
	"current":        numberField("current", func(r *models.BulkRow) *float64 { return &r.Current }),
	"voltage":        numberField("voltage", func(r *models.BulkRow) *float64 { return &r.Voltage }),
	"pf":             numberField("pf", func(r *models.BulkRow) *float64 { return &r.PF }),
	"eff":            numberField("eff", func(r *models.BulkRow) *float64 { return &r.Eff }),
	"length":         numberField("length", func(r *models.BulkRow) *float64 { return &r.Length }),
	"mv_per_a_m":     numberField("mv_per_a_m", func(r *models.BulkRow) *float64 { return &r.MVPerAM }),
	"r_ohm_per_km":   optionalNumberField("r_ohm_per_km", func(r *models.BulkRow) **float64 { return &r.ROhmPerKm }),
	"x_ohm_per_km":   optionalNumberField("x_ohm_per_km", func(r *models.BulkRow) **float64 { return &r.XOhmPerKm }),
	"derating1":      numberField("derating1", func(r *models.BulkRow) *float64 { return &r.Derating1 }),
	"derating2":      numberField("derating2", func(r *models.BulkRow) *float64 { return &r.Derating2 }),
	"sc_current":     numberField("sc_current", func(r *models.BulkRow) *float64 { return &r.SCCurrent }),
	"sc_time":        numberField("sc_time", func(r *models.BulkRow) *float64 { return &r.SCTime }),
	"k_const":        numberField("k_const", func(r *models.BulkRow) *float64 { return &r.KConst }),
}

// importDefaults are the values used when an import record lacks a numeric
// field or carries something that is not a number.
var importDefaults = map[string]float64{
	"load_kw":    0,
	"load_kva":   0,
	"current":    0,
	"voltage":    415,
	"pf":         1,
	"eff":        1,
	"length":     0,
	"mv_per_a_m": 0.44,
	"derating1":  1,
	"derating2":  1,
	"sc_current": 0,
	"sc_time":    1,
	"k_const":    115,
}

// ImportReport lists the rows created by ImportRows and every value that was
// replaced by its default.
type ImportReport struct {
	Rows   []models.BulkRow    `json:"rows"`
	Issues []ImportRecordError `json:"issues,omitempty"`
}

// ImportRows appends one row per record. Each field is defaulted on its own:
// a missing, empty or non-numeric value falls back to the import default and
// is noted in the report. A bad record never affects the others.
func (w *Worksheet) ImportRows(records []map[string]interface{}) ImportReport {
	var report ImportReport
	built := make([]models.BulkRow, 0, len(records))
	for i, rec := range records {
		row, issues := rowFromRecord(i, rec)
		built = append(built, row)
		report.Issues = append(report.Issues, issues...)
	}

	w.mu.Lock()
	for i := range built {
		built[i].ID = w.newID()
		w.rows = append(w.rows, built[i])
	}
	w.mu.Unlock()

	for _, issue := range report.Issues {
		metrics.ImportIssues.WithLabelValues(issue.Field).Inc()
	}
	report.Rows = make([]models.BulkRow, len(built))
	for i := range built {
		report.Rows[i] = built[i].Clone()
	}
	return report
}

func rowFromRecord(i int, rec map[string]interface{}) (models.BulkRow, []ImportRecordError) {
	var issues []ImportRecordError

	num := func(field string) float64 {
		def := importDefaults[field]
		v, present := rec[field]
		if !present || v == nil {
			return def
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return def
		}
		n, ok := toNumber(v)
		if !ok {
			issues = append(issues, ImportRecordError{Record: i, Field: field, Value: v, Default: def})
			return def
		}
		return n
	}
	optional := func(field string) *float64 {
		v, present := rec[field]
		if !present || v == nil {
			return nil
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return nil
		}
		n, ok := toNumber(v)
		if !ok {
			issues = append(issues, ImportRecordError{Record: i, Field: field, Value: v})
			return nil
		}
		return models.Float(n)
	}
	str := func(field string) string {
		v, present := rec[field]
		if !present || v == nil {
			return ""
		}
		return stringValue(v)
	}

	row := models.BulkRow{
		CableNumber:   str("cable_number"),
		FromEquipment: str("from_equipment"),
		ToEquipment:   str("to_equipment"),
		LoadKW:        num("load_kw"),
		LoadKVA:       num("load_kva"),
		Current:       num("current"),
		Voltage:       num("voltage"),
		PF:            num("pf"),
		Eff:           num("eff"),
		Length:        num("length"),
		MVPerAM:       num("mv_per_a_m"),
		ROhmPerKm:     optional("r_ohm_per_km"),
		XOhmPerKm:     optional("x_ohm_per_km"),
		Derating1:     num("derating1"),
		Derating2:     num("derating2"),
		SCCurrent:     num("sc_current"),
		SCTime:        num("sc_time"),
		KConst:        num("k_const"),
	}
	if row.CableNumber == "" {
		row.CableNumber = fmt.Sprintf("CBL-IMP-%d", i+1)
	}
	return row, issues
}

// toNumber converts JSON-ish values to a finite float64.
func toNumber(v interface{}) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int32:
		n = float64(t)
	case int64:
		n = float64(t)
	case uint:
		n = float64(t)
	case uint64:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
