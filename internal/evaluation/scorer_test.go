package evaluation

import (
	"reflect"
	"testing"

	"github.com/simrs/icdflow/internal/domain/record"
)

func TestMatchedAnyOf(t *testing.T) {
	// One hit out of several entities is enough for a full record match.
	groundTruth := "Community-acquired pneumonia, Hypertension stage 2"

	if !Matched([]string{"pneumonia"}, groundTruth) {
		t.Error("single matching entity should match the record")
	}
	if !Matched([]string{"appendicitis", "pneumonia", "rash"}, groundTruth) {
		t.Error("any-of semantics: one hit among misses should match")
	}
	if Matched([]string{"appendicitis"}, groundTruth) {
		t.Error("no entity in ground truth should not match")
	}
}

func TestMatchedCaseInsensitive(t *testing.T) {
	if !Matched([]string{"PNEUMONIA"}, "community-acquired Pneumonia") {
		t.Error("matching must be case-insensitive")
	}
}

func TestMatchedAbsentGroundTruth(t *testing.T) {
	if Matched([]string{"fever"}, "") {
		t.Error("absent ground truth must be unmatched, not an error")
	}
	if Matched(nil, "fever") {
		t.Error("no entities must be unmatched")
	}
	if Matched([]string{""}, "some truth") {
		t.Error("empty entity strings must not count as matches")
	}
}

func TestEvaluateEmptyBatch(t *testing.T) {
	m := Evaluate(nil)
	if m.Accuracy != 0.0 || m.TotalRecords != 0 || m.CorrectlyMatched != 0 || m.IncorrectlyMatched != 0 {
		t.Errorf("Evaluate(nil) = %+v, want zero metrics", m)
	}
}

func TestEvaluateAggregates(t *testing.T) {
	results := []record.ExtractionResult{
		{
			PatientID:        "p1",
			EntitiesDetected: []string{"pneumonia"},
			GroundTruth:      "Community-acquired pneumonia, Hypertension stage 2",
		},
		{
			PatientID:        "p2",
			EntitiesDetected: []string{"epistaxis"},
			GroundTruth:      "Essential (primary) hypertension, Epistaxis",
		},
		{
			PatientID:        "p3",
			EntitiesDetected: []string{"fever"},
			GroundTruth:      "", // data gap: unmatched, not an error
		},
	}

	m := Evaluate(results)
	if m.TotalRecords != 3 {
		t.Errorf("TotalRecords = %d, want 3", m.TotalRecords)
	}
	if m.CorrectlyMatched != 2 {
		t.Errorf("CorrectlyMatched = %d, want 2", m.CorrectlyMatched)
	}
	if m.IncorrectlyMatched != 1 {
		t.Errorf("IncorrectlyMatched = %d, want 1", m.IncorrectlyMatched)
	}
	if m.Accuracy != 66.67 {
		t.Errorf("Accuracy = %v, want 66.67", m.Accuracy)
	}

	if !results[0].Matched || !results[1].Matched || results[2].Matched {
		t.Errorf("per-record match flags wrong: %v %v %v",
			results[0].Matched, results[1].Matched, results[2].Matched)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	results := []record.ExtractionResult{
		{EntitiesDetected: []string{"fever"}, GroundTruth: "Fever of unknown origin"},
		{EntitiesDetected: []string{"cough"}, GroundTruth: "Asthma"},
	}

	first := Evaluate(results)
	second := Evaluate(results)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Evaluate not idempotent: %+v vs %+v", first, second)
	}
}

func TestEvaluateFullAccuracy(t *testing.T) {
	results := []record.ExtractionResult{
		{EntitiesDetected: []string{"fever"}, GroundTruth: "fever"},
	}
	if m := Evaluate(results); m.Accuracy != 100.0 {
		t.Errorf("Accuracy = %v, want 100.0", m.Accuracy)
	}
}
