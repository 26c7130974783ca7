// Package record defines the patient record batch and extraction result types.
package record

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PatientRecord is one row of the input batch: identifying fields, the
// narrative to extract from, and the clinician-recorded ground truth used for
// scoring. Records are immutable inputs; the pipeline never mutates them.
type PatientRecord struct {
	PatientID        string `json:"patient_id"`
	PatientName      string `json:"patient_name"`
	Sex              string `json:"sex"`
	Age              int    `json:"age"`
	VisitID          string `json:"visit_id"`
	RegistrationDate string `json:"registration_date"`
	Physician        string `json:"physician"`
	Narrative        string `json:"narrative"`
	GroundTruth      string `json:"ground_truth"`
}

// ExtractionResult is the per-record pipeline output: identifying fields
// carried through unchanged, the detected entities in extraction order, the
// deduplicated resolved codes, and the match flag filled by evaluation.
type ExtractionResult struct {
	PatientID        string   `json:"patient_id"`
	PatientName      string   `json:"patient_name"`
	Sex              string   `json:"sex"`
	Age              int      `json:"age"`
	VisitID          string   `json:"visit_id"`
	RegistrationDate string   `json:"registration_date"`
	Physician        string   `json:"physician"`
	Narrative        string   `json:"narrative"`
	EntitiesDetected []string `json:"entities_detected"`
	ICD10Codes       []string `json:"icd10_codes"`
	GroundTruth      string   `json:"ground_truth"`
	Matched          bool     `json:"matched"`
}

// Batch is a set of patient records processed as one unit.
type Batch struct {
	ID      string          `json:"id"`
	Records []PatientRecord `json:"records"`
}

// NewBatch assigns a fresh batch ID.
func NewBatch(records []PatientRecord) *Batch {
	return &Batch{
		ID:      uuid.New().String(),
		Records: records,
	}
}

// ErrEmptyBatch indicates a batch with no records.
var ErrEmptyBatch = errors.New("batch contains no records")

// Validate fails fast on schema errors before any extraction work begins.
// Required identifying fields must be present on every record; a missing
// narrative or ground truth is a per-record data gap, not a schema error,
// and passes validation.
func (b *Batch) Validate() error {
	if len(b.Records) == 0 {
		return ErrEmptyBatch
	}
	for i, r := range b.Records {
		if r.PatientID == "" {
			return fmt.Errorf("record %d: patient_id is required", i)
		}
		if r.VisitID == "" {
			return fmt.Errorf("record %d: visit_id is required", i)
		}
	}
	return nil
}

// Narratives returns the narrative column in record order, the shape the
// external extractor consumes.
func (b *Batch) Narratives() []string {
	out := make([]string, len(b.Records))
	for i, r := range b.Records {
		out[i] = r.Narrative
	}
	return out
}
