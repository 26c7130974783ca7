package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/simrs/icdflow/internal/domain/record"
	"github.com/simrs/icdflow/internal/icd10"
	"github.com/simrs/icdflow/internal/ner"
	"github.com/simrs/icdflow/pkg/workerpool"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	orch, err := NewOrchestrator(
		NewResolver(icd10.Builtin()),
		workerpool.Config{Workers: 4, QueueSize: 64, GracefulShutdownTimeout: time.Second},
		nil,
	)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	orch.Start()
	t.Cleanup(func() { orch.Stop() })
	return orch
}

func TestProcessCarriesFieldsThrough(t *testing.T) {
	orch := newTestOrchestrator(t)

	rec := record.PatientRecord{
		PatientID:        "153284",
		PatientName:      "H. KURSANI Tn",
		Sex:              "L",
		Age:              71,
		VisitID:          "2025/01/01/000004",
		RegistrationDate: "2025-01-01",
		Physician:        "dr. Resti Riyandina Mujiarto",
		Narrative:        "Assessment: Hypertensive emergency with epistaxis.",
		GroundTruth:      "Essential (primary) hypertension, Epistaxis",
	}

	res := orch.Process(rec, []string{"Essential hypertension", "Epistaxis"})

	if res.PatientID != rec.PatientID || res.VisitID != rec.VisitID ||
		res.PatientName != rec.PatientName || res.Physician != rec.Physician ||
		res.Age != rec.Age || res.GroundTruth != rec.GroundTruth {
		t.Errorf("identifying fields not carried through: %+v", res)
	}
	if len(res.EntitiesDetected) != 2 || res.EntitiesDetected[0] != "Essential hypertension" {
		t.Errorf("entities not stored in order: %v", res.EntitiesDetected)
	}
	if len(res.ICD10Codes) != 2 || res.ICD10Codes[0] != "I10" || res.ICD10Codes[1] != "R04.0" {
		t.Errorf("codes = %v, want [I10 R04.0]", res.ICD10Codes)
	}
	if res.Matched {
		t.Error("orchestrator must not pre-fill the match flag")
	}
}

func TestProcessNoEntities(t *testing.T) {
	orch := newTestOrchestrator(t)

	res := orch.Process(record.PatientRecord{PatientID: "p1", VisitID: "v1"}, nil)
	if len(res.EntitiesDetected) != 0 {
		t.Errorf("EntitiesDetected = %v, want empty", res.EntitiesDetected)
	}
	if len(res.ICD10Codes) != 0 {
		t.Errorf("ICD10Codes = %v, want empty", res.ICD10Codes)
	}
}

func TestProcessBatchOrderPreserved(t *testing.T) {
	orch := newTestOrchestrator(t)

	var records []record.PatientRecord
	var rows []ner.RowResult
	for i := 0; i < 50; i++ {
		records = append(records, record.PatientRecord{
			PatientID: "p" + string(rune('A'+i%26)),
			VisitID:   "v",
			Narrative: "narrative",
		})
		if i%2 == 0 {
			rows = append(rows, ner.Entities([]string{"fever"}))
		} else {
			rows = append(rows, ner.Entities([]string{"epistaxis"}))
		}
	}
	batch := record.NewBatch(records)

	results, err := orch.ProcessBatch(context.Background(), batch, rows)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(results) != len(records) {
		t.Fatalf("got %d results, want %d", len(results), len(records))
	}

	for i, res := range results {
		if res.PatientID != records[i].PatientID {
			t.Fatalf("result %d out of order: %s vs %s", i, res.PatientID, records[i].PatientID)
		}
		wantCode := "R50.9"
		if i%2 == 1 {
			wantCode = "R04.0"
		}
		if len(res.ICD10Codes) != 1 || res.ICD10Codes[0] != wantCode {
			t.Errorf("result %d codes = %v, want [%s]", i, res.ICD10Codes, wantCode)
		}
	}
}

func TestProcessBatchRowCountMismatch(t *testing.T) {
	orch := newTestOrchestrator(t)

	batch := record.NewBatch([]record.PatientRecord{
		{PatientID: "p1", VisitID: "v1"},
		{PatientID: "p2", VisitID: "v2"},
	})

	_, err := orch.ProcessBatch(context.Background(), batch, []ner.RowResult{ner.Entities(nil)})
	if err == nil {
		t.Fatal("row count mismatch must fail the batch")
	}
}

func TestProcessBatchDegradesFailedRows(t *testing.T) {
	orch := newTestOrchestrator(t)

	batch := record.NewBatch([]record.PatientRecord{
		{PatientID: "p1", VisitID: "v1", Narrative: "ok"},
		{PatientID: "p2", VisitID: "v2", Narrative: "bad"},
	})
	rows := []ner.RowResult{
		ner.Entities([]string{"fever"}),
		ner.Failure("tokenizer error"),
	}

	results, err := orch.ProcessBatch(context.Background(), batch, rows)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(results[0].ICD10Codes) != 1 {
		t.Errorf("healthy row lost codes: %v", results[0].ICD10Codes)
	}
	if len(results[1].EntitiesDetected) != 0 || len(results[1].ICD10Codes) != 0 {
		t.Errorf("failed row should degrade to empty, got %+v", results[1])
	}
}
