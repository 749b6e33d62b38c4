package service

import "cable-orchestrator/internal/models"

// Status is the derived display state of a worksheet row. It is computed by
// DeriveStatus from row fields and never stored. The concrete types are
// Unsized, Verified, NeedsReview and Mismatch.
type Status interface {
	Label() string
	status()
}

// Unsized rows have no sizing result; no catalog comparison is attempted.
type Unsized struct{}

// Matched describes the catalog part attached to a row.
type Matched struct {
	Vendor string  `json:"vendor,omitempty"`
	PartNo string  `json:"part_no,omitempty"`
	CSAmm2 float64 `json:"csa_mm2,omitempty"`
}

// Verified rows carry a catalog part and pass every compliance check.
type Verified struct {
	Matched
}

// NeedsReview rows carry a catalog part but fail at least one check. Failed
// lists the failing checks: "vdrop", "sc" and compliance entry types.
type NeedsReview struct {
	Matched
	Failed []string `json:"failed"`
}

// Mismatch rows are sized but carry no catalog part number, so the sizing
// result has nothing to be checked against.
type Mismatch struct{}

func (Unsized) Label() string     { return "unsized" }
func (Verified) Label() string    { return "VERIFIED" }
func (NeedsReview) Label() string { return "NEEDS_REVIEW" }
func (Mismatch) Label() string    { return "MISMATCH" }

func (Unsized) status()     {}
func (Verified) status()    {}
func (NeedsReview) status() {}
func (Mismatch) status()    {}

// DeriveStatus applies the status rules in order:
//
//  1. no result                                   -> Unsized
//  2. no catalog part number                      -> Mismatch
//  3. catalog part, vdrop ok, sc ok, all checks ok -> Verified
//  4. catalog part, any check failing             -> NeedsReview
//
// The result's own selected CSA does not count as a match; only an attached
// catalog part does.
func DeriveStatus(row models.BulkRow) Status {
	r := row.Result
	if r == nil {
		return Unsized{}
	}
	if !row.Catalog.Present() {
		return Mismatch{}
	}

	m := Matched{Vendor: row.Catalog.Vendor, PartNo: row.Catalog.PartNo, CSAmm2: row.Catalog.CSAmm2}
	var failed []string
	if !r.VdropOK {
		failed = append(failed, "vdrop")
	}
	if !r.SCOK {
		failed = append(failed, "sc")
	}
	for _, c := range r.Compliance {
		if !c.OK {
			failed = append(failed, c.Type)
		}
	}
	if len(failed) == 0 {
		return Verified{Matched: m}
	}
	return NeedsReview{Matched: m, Failed: failed}
}

// GroupingCheck returns the "grouping" compliance entry of a result, if any.
func GroupingCheck(r *models.SizingResult) (models.ComplianceCheck, bool) {
	if r == nil {
		return models.ComplianceCheck{}, false
	}
	for _, c := range r.Compliance {
		if c.Type == "grouping" {
			return c, true
		}
	}
	return models.ComplianceCheck{}, false
}
