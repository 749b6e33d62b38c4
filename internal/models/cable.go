package models

// DefaultCSAOptions is the candidate cross-section list offered to the
// sizing service for every row, in mm².
var DefaultCSAOptions = []float64{25, 35, 50, 70, 95, 120, 150, 185, 240}

// ComplianceCheck is one named pass/fail check reported by the sizing service.
type ComplianceCheck struct {
	Type string `json:"type"`
	OK   bool   `json:"ok"`
	Msg  string `json:"msg,omitempty"`
}

// SizingResult is the outcome of one sizing computation. A row either has a
// complete result or none at all.
type SizingResult struct {
	CableNumber    string            `json:"cable_number"`
	FLC            float64           `json:"flc"`
	DeratedCurrent *float64          `json:"derated_current,omitempty"`
	SelectedCSA    float64           `json:"selected_csa"`
	VdropPercent   float64           `json:"vdrop_percent"`
	VdropOK        bool              `json:"vdrop_ok"`
	SCRequiredArea float64           `json:"sc_required_area"`
	SCOK           bool              `json:"sc_ok"`
	Compliance     []ComplianceCheck `json:"compliance,omitempty"`
}

// Clone returns a deep copy so callers never share a result with a row.
func (r *SizingResult) Clone() *SizingResult {
	if r == nil {
		return nil
	}
	out := *r
	out.DeratedCurrent = copyFloat(r.DeratedCurrent)
	if r.Compliance != nil {
		out.Compliance = append([]ComplianceCheck(nil), r.Compliance...)
	}
	return &out
}

// SizingInput is one row of the sizing request.
type SizingInput struct {
	CableNumber               string    `json:"cable_number"`
	LoadKW                    float64   `json:"load_kw"`
	LoadKVA                   float64   `json:"load_kva"`
	Current                   float64   `json:"current"`
	Voltage                   float64   `json:"voltage"`
	PF                        float64   `json:"pf"`
	Eff                       float64   `json:"eff"`
	Length                    float64   `json:"length"`
	MVPerAM                   float64   `json:"mv_per_a_m"`
	ROhmPerKm                 *float64  `json:"r_ohm_per_km,omitempty"`
	XOhmPerKm                 *float64  `json:"x_ohm_per_km,omitempty"`
	DeratingFactors           []float64 `json:"derating_factors"`
	CSAOptions                []float64 `json:"csa_options"`
	SCCurrent                 float64   `json:"sc_current"`
	SCTime                    float64   `json:"sc_time"`
	KConst                    float64   `json:"k_const"`
	CatalogRatedCurrentAir    *float64  `json:"catalog_rated_current_air,omitempty"`
	CatalogRatedCurrentTrench *float64  `json:"catalog_rated_current_trench,omitempty"`
	CatalogRatedCurrentDuct   *float64  `json:"catalog_rated_current_duct,omitempty"`
	GroupingThreshold         float64   `json:"grouping_threshold"`
}

// CatalogAttachment holds the catalog fields copied onto a row by an
// accepted match.
type CatalogAttachment struct {
	Vendor             string   `json:"catalog_vendor,omitempty"`
	PartNo             string   `json:"catalog_part_no,omitempty"`
	ODmm               float64  `json:"catalog_od_mm,omitempty"`
	WeightKgPerKm      float64  `json:"catalog_weight_kg_per_km,omitempty"`
	CSAmm2             float64  `json:"catalog_csa_mm2,omitempty"`
	RatedCurrentAir    *float64 `json:"catalog_rated_current_air,omitempty"`
	RatedCurrentTrench *float64 `json:"catalog_rated_current_trench,omitempty"`
	RatedCurrentDuct   *float64 `json:"catalog_rated_current_duct,omitempty"`
}

// AttachmentFromEntry copies the attachable fields of a catalog entry.
func AttachmentFromEntry(e CatalogEntry) *CatalogAttachment {
	return &CatalogAttachment{
		Vendor:             e.Vendor,
		PartNo:             e.PartNo,
		ODmm:               e.ODmm,
		WeightKgPerKm:      e.WeightKgPerKm,
		CSAmm2:             e.CSAmm2,
		RatedCurrentAir:    copyFloat(e.RatedCurrentAir),
		RatedCurrentTrench: copyFloat(e.RatedCurrentTrench),
		RatedCurrentDuct:   copyFloat(e.RatedCurrentDuct),
	}
}

// Present reports whether the attachment identifies a catalog part. A CSA
// without a part number does not.
func (a *CatalogAttachment) Present() bool {
	return a != nil && a.PartNo != ""
}

// BulkRow is one feeder in the bulk sizing worksheet.
type BulkRow struct {
	ID            string             `json:"id"`
	CableNumber   string             `json:"cable_number"`
	FromEquipment string             `json:"from_equipment"`
	ToEquipment   string             `json:"to_equipment"`
	LoadKW        float64            `json:"load_kw"`
	LoadKVA       float64            `json:"load_kva"`
	Current       float64            `json:"current"`
	Voltage       float64            `json:"voltage"`
	PF            float64            `json:"pf"`
	Eff           float64            `json:"eff"`
	Length        float64            `json:"length"`
	MVPerAM       float64            `json:"mv_per_a_m"`
	ROhmPerKm     *float64           `json:"r_ohm_per_km,omitempty"`
	XOhmPerKm     *float64           `json:"x_ohm_per_km,omitempty"`
	Derating1     float64            `json:"derating1"`
	Derating2     float64            `json:"derating2"`
	SCCurrent     float64            `json:"sc_current"`
	SCTime        float64            `json:"sc_time"`
	KConst        float64            `json:"k_const"`
	Result        *SizingResult      `json:"result,omitempty"`
	Catalog       *CatalogAttachment `json:"catalog,omitempty"`
}

// Clone returns a deep copy of the row.
func (r BulkRow) Clone() BulkRow {
	out := r
	out.ROhmPerKm = copyFloat(r.ROhmPerKm)
	out.XOhmPerKm = copyFloat(r.XOhmPerKm)
	out.Result = r.Result.Clone()
	if r.Catalog != nil {
		c := *r.Catalog
		c.RatedCurrentAir = copyFloat(r.Catalog.RatedCurrentAir)
		c.RatedCurrentTrench = copyFloat(r.Catalog.RatedCurrentTrench)
		c.RatedCurrentDuct = copyFloat(r.Catalog.RatedCurrentDuct)
		out.Catalog = &c
	}
	return out
}

// SelectedCSA returns the CSA chosen by the last sizing pass, or 0.
func (r BulkRow) SelectedCSA() float64 {
	if r.Result == nil {
		return 0
	}
	return r.Result.SelectedCSA
}

// BOQLine is one group of the bill of quantities.
type BOQLine struct {
	CSAmm2       float64 `json:"csa_mm2"`
	Count        int     `json:"count"`
	TotalLengthM float64 `json:"total_length_m"`
}

// ExportLink is returned by every export endpoint.
type ExportLink struct {
	DownloadURL string `json:"downloadUrl"`
	Filename    string `json:"filename"`
}

// ExportRow is the row payload sent to the export renderer.
type ExportRow struct {
	CableNumber   string             `json:"cable_number"`
	FromEquipment string             `json:"from_equipment"`
	ToEquipment   string             `json:"to_equipment"`
	Voltage       float64            `json:"voltage"`
	LoadKW        float64            `json:"load_kw"`
	Length        float64            `json:"length"`
	Result        *SizingResult      `json:"result,omitempty"`
	Catalog       *CatalogAttachment `json:"catalog,omitempty"`
	Status        string             `json:"status,omitempty"`
}

// BOQExportRequest is the body of the BOQ export endpoint.
type BOQExportRequest struct {
	Rows    []ExportRow `json:"rows"`
	BOQ     []BOQLine   `json:"boq"`
	Project string      `json:"project"`
}

// SizingReportRequest is the body of the sizing report endpoint.
type SizingReportRequest struct {
	Rows    []ExportRow `json:"rows"`
	Columns []string    `json:"columns"`
	Project string      `json:"project"`
}

// ExcelExportRequest is the body of the worksheet Excel export endpoint.
type ExcelExportRequest struct {
	Rows []ExportRow `json:"rows"`
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
