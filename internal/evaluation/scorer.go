// Package evaluation scores extraction quality against ground-truth
// diagnosis strings.
package evaluation

import (
	"math"
	"strings"

	"github.com/simrs/icdflow/internal/domain/record"
)

// Metrics is the aggregate evaluation outcome for one batch. It is derived
// and read-only: Evaluate recomputes it from scratch on every call.
type Metrics struct {
	Accuracy           float64 `json:"accuracy"`
	TotalRecords       int     `json:"total_records"`
	CorrectlyMatched   int     `json:"correctly_matched_records"`
	IncorrectlyMatched int     `json:"incorrectly_matched_records"`
}

// Matched reports the record-level binary outcome: true iff at least one
// detected entity, lowercased, appears as a substring of the lowercased
// ground truth. This any-of rule answers "did the pipeline find something
// clinically relevant", which is what a human-reviewed coding-assist
// workflow needs; it is deliberately not per-entity precision/recall.
// Absent ground truth or no entities is unmatched, never an error.
func Matched(entities []string, groundTruth string) bool {
	if groundTruth == "" {
		return false
	}
	truth := strings.ToLower(groundTruth)
	for _, entity := range entities {
		if entity == "" {
			continue
		}
		if strings.Contains(truth, strings.ToLower(entity)) {
			return true
		}
	}
	return false
}

// Evaluate computes aggregate metrics over a batch of results and fills each
// result's Matched flag in place for downstream reporting. An empty batch
// yields accuracy 0.0 and zero counts. The reduction is pure over its inputs,
// so repeated calls return identical metrics.
func Evaluate(results []record.ExtractionResult) Metrics {
	m := Metrics{TotalRecords: len(results)}
	if len(results) == 0 {
		return m
	}

	for i := range results {
		matched := Matched(results[i].EntitiesDetected, results[i].GroundTruth)
		results[i].Matched = matched
		if matched {
			m.CorrectlyMatched++
		}
	}
	m.IncorrectlyMatched = m.TotalRecords - m.CorrectlyMatched
	m.Accuracy = round2(float64(m.CorrectlyMatched) / float64(m.TotalRecords) * 100)

	return m
}

// round2 rounds to 2 decimal places (66.666… → 66.67).
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
