// Package ner provides the client boundary to the external clinical
// entity-extraction service.
package ner

// RowResult is the per-record outcome of an extraction call: either an
// ordered sequence of detected entity strings or a failure reason. The two
// cases are mutually exclusive; construct values with Entities or Failure so
// callers handle absence explicitly instead of relying on nil checks.
type RowResult struct {
	entities []string
	failure  string
	failed   bool
}

// Entities builds a successful row result. A nil or empty slice is a valid
// success: the model found nothing in the narrative.
func Entities(entities []string) RowResult {
	return RowResult{entities: entities}
}

// Failure builds a failed row result with a reason.
func Failure(reason string) RowResult {
	if reason == "" {
		reason = "unspecified extractor failure"
	}
	return RowResult{failure: reason, failed: true}
}

// OK reports whether the row extracted successfully.
func (r RowResult) OK() bool { return !r.failed }

// Entities returns the detected entity strings in extraction order.
// Empty on failed rows.
func (r RowResult) Entities() []string {
	if r.failed {
		return nil
	}
	return r.entities
}

// FailureReason returns the failure reason, empty for successful rows.
func (r RowResult) FailureReason() string { return r.failure }
