package models

// FieldMapping maps a schema field name to the raw header chosen for it.
// A missing key means the field is unmapped. Values need not be unique.
type FieldMapping map[string]string

// Schema identifies which target field list a mapping is built against.
type Schema string

const (
	SchemaCatalog Schema = "catalog"
	SchemaSizing  Schema = "sizing"
)

// CatalogFields is the target schema of a vendor catalog import.
var CatalogFields = []string{
	"csa_mm2",
	"conductor",
	"cores",
	"armour",
	"r_ohm_per_km",
	"x_ohm_per_km",
	"od_mm",
	"weight_kg_per_km",
	"vendor",
	"part_no",
}

// SizingImportFields is the target schema of a sizing worksheet import.
var SizingImportFields = []string{
	"cable_number",
	"from_equipment",
	"to_equipment",
	"load_kw",
	"load_kva",
	"current",
	"voltage",
	"pf",
	"eff",
	"length",
	"mv_per_a_m",
	"derating1",
	"derating2",
	"sc_current",
	"sc_time",
	"k_const",
}

// Fields returns the field list of the schema, or nil if unknown.
func (s Schema) Fields() []string {
	switch s {
	case SchemaCatalog:
		return CatalogFields
	case SchemaSizing:
		return SizingImportFields
	}
	return nil
}

// Valid reports whether s names a known schema.
func (s Schema) Valid() bool {
	return s.Fields() != nil
}

// Clone returns an independent copy. A nil mapping clones to an empty one.
func (m FieldMapping) Clone() FieldMapping {
	out := make(FieldMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Has reports whether field is mapped to a non-empty header.
func (m FieldMapping) Has(field string) bool {
	h, ok := m[field]
	return ok && h != ""
}
