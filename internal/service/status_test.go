package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cable-orchestrator/internal/models"
)

func sizedRow(vdropOK, scOK bool) models.BulkRow {
	return models.BulkRow{
		ID: "row-1",
		Result: &models.SizingResult{
			FLC:         120,
			SelectedCSA: 70,
			VdropOK:     vdropOK,
			SCOK:        scOK,
		},
		Catalog: models.AttachmentFromEntry(models.CatalogEntry{Vendor: "Polycab", PartNo: "PC-70-4C", CSAmm2: 70}),
	}
}

func TestDeriveStatus_Scenario(t *testing.T) {
	row := sizedRow(true, true)
	assert.Equal(t, "VERIFIED", DeriveStatus(row).Label())

	row.Result.SCOK = false
	st := DeriveStatus(row)
	assert.Equal(t, "NEEDS_REVIEW", st.Label())
	assert.Equal(t, []string{"sc"}, st.(NeedsReview).Failed)

	row = sizedRow(true, true)
	row.Catalog.PartNo = ""
	assert.Equal(t, 70.0, row.Result.SelectedCSA)
	assert.Equal(t, 70.0, row.Catalog.CSAmm2)
	assert.Equal(t, "MISMATCH", DeriveStatus(row).Label())
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name string
		row  func() models.BulkRow
		want Status
	}{
		{
			name: "no result",
			row:  func() models.BulkRow { return models.BulkRow{ID: "row-1"} },
			want: Unsized{},
		},
		{
			name: "sized without catalog part",
			row: func() models.BulkRow {
				r := sizedRow(true, true)
				r.Catalog = nil
				return r
			},
			want: Mismatch{},
		},
		{
			name: "empty attachment counts as absent",
			row: func() models.BulkRow {
				r := sizedRow(true, true)
				r.Catalog = &models.CatalogAttachment{}
				return r
			},
			want: Mismatch{},
		},
		{
			name: "catalog CSA without part number",
			row: func() models.BulkRow {
				r := sizedRow(true, true)
				r.Catalog = &models.CatalogAttachment{Vendor: "Polycab", CSAmm2: 70}
				return r
			},
			want: Mismatch{},
		},
		{
			name: "failing compliance check",
			row: func() models.BulkRow {
				r := sizedRow(false, true)
				r.Result.Compliance = []models.ComplianceCheck{
					{Type: "grouping", OK: false, Msg: "grouping factor below threshold"},
					{Type: "ampacity", OK: true},
				}
				return r
			},
			want: NeedsReview{
				Matched: Matched{Vendor: "Polycab", PartNo: "PC-70-4C", CSAmm2: 70},
				Failed:  []string{"vdrop", "grouping"},
			},
		},
		{
			name: "all checks pass",
			row: func() models.BulkRow {
				r := sizedRow(true, true)
				r.Result.Compliance = []models.ComplianceCheck{{Type: "grouping", OK: true}}
				return r
			},
			want: Verified{Matched: Matched{Vendor: "Polycab", PartNo: "PC-70-4C", CSAmm2: 70}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.row()))
		})
	}
}

func TestGroupingCheck(t *testing.T) {
	_, ok := GroupingCheck(nil)
	assert.False(t, ok)

	r := &models.SizingResult{Compliance: []models.ComplianceCheck{
		{Type: "ampacity", OK: true},
		{Type: "grouping", OK: false, Msg: "0.72 < 0.85"},
	}}
	c, ok := GroupingCheck(r)
	assert.True(t, ok)
	assert.Equal(t, "0.72 < 0.85", c.Msg)
}
