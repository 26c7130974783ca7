// Package icd10 provides the canonical-term to ICD-10 code mapping table.
// The table is built once at startup and is immutable afterwards, so it is
// safe for concurrent readers without locking.
package icd10

import (
	"fmt"
	"strings"
)

// Entry associates a canonical diagnosis term with an ICD-10 code.
type Entry struct {
	Term string
	Code string
}

// Table is an insertion-ordered, read-only mapping from canonical terms to
// ICD-10 codes. Lookup is substring-containment based: short, generic terms
// can match inside unrelated words ("stroke" in "heatstroke"), which the
// coding workflow accepts in exchange for tolerating appended qualifiers.
type Table struct {
	entries []Entry
}

// NewTable validates and builds a table. Entry order is preserved; it is the
// resolution order for all lookups. A malformed entry is a configuration
// error and aborts construction.
func NewTable(entries []Entry) (*Table, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("mapping table is empty")
	}

	out := make([]Entry, 0, len(entries))
	for i, e := range entries {
		term := strings.ToLower(strings.TrimSpace(e.Term))
		if term == "" {
			return nil, fmt.Errorf("entry %d: canonical term is empty", i)
		}
		if !ValidCode(e.Code) {
			return nil, fmt.Errorf("entry %d (%q): invalid ICD-10 code %q", i, term, e.Code)
		}
		out = append(out, Entry{Term: term, Code: e.Code})
	}

	return &Table{entries: out}, nil
}

// Lookup returns the code of the first entry, in insertion order, whose
// canonical term is contained in the lowercased input term.
func (t *Table) Lookup(term string) (string, bool) {
	lower := strings.ToLower(term)
	for _, e := range t.entries {
		if strings.Contains(lower, e.Term) {
			return e.Code, true
		}
	}
	return "", false
}

// Matches returns every code whose canonical term is contained in the
// lowercased input term, in insertion order, without deduplication.
// Deduplication across entities belongs to the resolver.
func (t *Table) Matches(term string) []string {
	lower := strings.ToLower(term)
	var codes []string
	for _, e := range t.entries {
		if strings.Contains(lower, e.Term) {
			codes = append(codes, e.Code)
		}
	}
	return codes
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns a copy of the table entries in resolution order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ValidCode reports whether s is a well-formed ICD-10 code: an alphanumeric
// stem with at most one dot-separated alphanumeric suffix ("I10", "J18.9").
func ValidCode(s string) bool {
	if s == "" {
		return false
	}
	stem, suffix, hasDot := strings.Cut(s, ".")
	if !alphanumeric(stem) {
		return false
	}
	if hasDot && !alphanumeric(suffix) {
		return false
	}
	return true
}

func alphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		default:
			return false
		}
	}
	return true
}
