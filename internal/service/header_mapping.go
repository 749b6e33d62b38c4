package service

import (
	"strings"
	"unicode"

	"cable-orchestrator/internal/models"
)

// SuggestMapping proposes a header for every field of the target schema that
// existing does not already map. Headers are scanned in order and the first
// one that matches wins:
//
//   - the lower-cased header equals the field, or
//   - the lower-cased header contains the field, or
//   - the lower-cased header contains the field with '_' replaced by ' '.
//
// Only when no header matches literally does the word rule apply: every word
// of the header is a word of the field ("R (ohm/km)" has the words r, ohm,
// km, all of which appear in r_ohm_per_km). A one-word header such as "Load"
// therefore loses to "Load kW" for load_kw. There is no scoring. Entries of existing are never overwritten, so running
// the suggester on its own output returns the same mapping. Fields with no
// matching header stay unmapped. The inputs are not modified.
func SuggestMapping(headers []string, existing models.FieldMapping, fields []string) models.FieldMapping {
	out := existing.Clone()

	lowered := make([]string, len(headers))
	words := make([][]string, len(headers))
	for i, h := range headers {
		lowered[i] = strings.ToLower(h)
		words[i] = headerWords(lowered[i])
	}

	for _, field := range fields {
		if _, ok := out[field]; ok {
			continue
		}
		f := strings.ToLower(field)
		spaced := strings.ReplaceAll(f, "_", " ")
		fieldWords := strings.Split(f, "_")
		if i := literalMatch(lowered, f, spaced); i >= 0 {
			out[field] = headers[i]
			continue
		}
		for i := range lowered {
			if wordsWithin(words[i], fieldWords) {
				out[field] = headers[i]
				break
			}
		}
	}
	return out
}

func literalMatch(lowered []string, field, spaced string) int {
	for i, h := range lowered {
		if h == field || strings.Contains(h, field) || strings.Contains(h, spaced) {
			return i
		}
	}
	return -1
}

// UnmappedFields lists the schema fields m has no header for, in schema order.
func UnmappedFields(m models.FieldMapping, fields []string) []string {
	var missing []string
	for _, f := range fields {
		if !m.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

func headerWords(h string) []string {
	return strings.FieldsFunc(h, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// wordsWithin reports whether every header word is one of the field words.
// A header without words never matches.
func wordsWithin(header, field []string) bool {
	if len(header) == 0 {
		return false
	}
	for _, w := range header {
		found := false
		for _, fw := range field {
			if w == fw {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
