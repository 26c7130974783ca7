package record

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	valid := PatientRecord{
		PatientID: "153284",
		VisitID:   "2025/01/01/000004",
		Narrative: "Chief Complaint: nosebleed since 10 PM last night.",
	}

	b := NewBatch([]PatientRecord{valid})
	if err := b.Validate(); err != nil {
		t.Fatalf("valid batch rejected: %v", err)
	}

	empty := NewBatch(nil)
	if err := empty.Validate(); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("empty batch: got %v, want ErrEmptyBatch", err)
	}

	noPatient := valid
	noPatient.PatientID = ""
	if err := NewBatch([]PatientRecord{valid, noPatient}).Validate(); err == nil {
		t.Error("missing patient_id should fail validation")
	}

	noVisit := valid
	noVisit.VisitID = ""
	if err := NewBatch([]PatientRecord{noVisit}).Validate(); err == nil {
		t.Error("missing visit_id should fail validation")
	}
}

func TestValidateToleratesDataGaps(t *testing.T) {
	// Missing narrative and ground truth are per-record gaps, not schema errors.
	b := NewBatch([]PatientRecord{{PatientID: "p1", VisitID: "v1"}})
	if err := b.Validate(); err != nil {
		t.Errorf("record with data gaps should validate, got %v", err)
	}
}

func TestNarrativesPreservesOrder(t *testing.T) {
	b := NewBatch([]PatientRecord{
		{PatientID: "p1", VisitID: "v1", Narrative: "first"},
		{PatientID: "p2", VisitID: "v2", Narrative: "second"},
		{PatientID: "p3", VisitID: "v3"},
	})

	got := b.Narratives()
	want := []string{"first", "second", ""}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Narratives()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewBatchAssignsID(t *testing.T) {
	a := NewBatch(nil)
	b := NewBatch(nil)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("batch IDs should be unique and non-empty: %q, %q", a.ID, b.ID)
	}
}
