// Package pipeline implements term-to-code resolution and per-record
// extraction assembly.
package pipeline

import (
	"github.com/simrs/icdflow/internal/icd10"
)

// Resolver converts an ordered sequence of free-text entity strings into a
// deduplicated set of ICD-10 codes. Construct one per mapping table; the
// table is immutable, so a single Resolver is safe for concurrent use.
type Resolver struct {
	table *icd10.Table
}

// NewResolver creates a resolver over the given mapping table.
func NewResolver(table *icd10.Table) *Resolver {
	return &Resolver{table: table}
}

// Resolve scans every entity against every table entry in table order and
// collects each matching code once, in order of first occurrence. A single
// entity may contribute multiple codes: mentions are free text and can
// reference combined conditions. Nil or empty input yields an empty result,
// and unmapped terms contribute nothing; extraction is inherently lossy.
func (r *Resolver) Resolve(entities []string) []string {
	codes := make([]string, 0, len(entities))
	seen := make(map[string]struct{}, len(entities))

	for _, entity := range entities {
		for _, code := range r.table.Matches(entity) {
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}

	return codes
}
