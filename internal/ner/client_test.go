package ner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultClientConfig()
	cfg.BaseURL = server.URL

	client, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestExtractBatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/extract" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req extractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Texts) != 2 {
			t.Errorf("got %d texts, want 2", len(req.Texts))
		}
		json.NewEncoder(w).Encode(extractResponse{Rows: []extractRow{
			{Entities: []string{"Essential hypertension", "Epistaxis"}},
			{Entities: nil},
		}})
	})

	rows, err := client.ExtractBatch(context.Background(), []string{"narrative one", "narrative two"})
	if err != nil {
		t.Fatalf("ExtractBatch: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if !rows[0].OK() || len(rows[0].Entities()) != 2 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if !rows[1].OK() || len(rows[1].Entities()) != 0 {
		t.Error("row 1 should be a successful empty row")
	}
}

func TestExtractBatchRowFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(extractResponse{Rows: []extractRow{
			{Error: "tokenization failed"},
		}})
	})

	rows, err := client.ExtractBatch(context.Background(), []string{"bad row"})
	if err != nil {
		t.Fatalf("ExtractBatch: %v", err)
	}
	if rows[0].OK() {
		t.Fatal("row should have failed")
	}
	if rows[0].FailureReason() != "tokenization failed" {
		t.Errorf("reason = %q", rows[0].FailureReason())
	}
	if rows[0].Entities() != nil {
		t.Error("failed row must expose no entities")
	}
}

func TestExtractBatchRowCountMismatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(extractResponse{Rows: []extractRow{
			{Entities: []string{"fever"}},
		}})
	})

	if _, err := client.ExtractBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("row count mismatch must fail the batch")
	}
}

func TestExtractBatchServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	})

	if _, err := client.ExtractBatch(context.Background(), []string{"a"}); err == nil {
		t.Fatal("server error must fail the batch")
	}
}

func TestExtractBatchEmptyInput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no call expected for empty input")
	})

	rows, err := client.ExtractBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("ExtractBatch: %v", err)
	}
	if rows != nil {
		t.Errorf("rows = %v, want nil", rows)
	}
}

func TestRowResultConstructors(t *testing.T) {
	ok := Entities([]string{"fever"})
	if !ok.OK() || ok.FailureReason() != "" {
		t.Errorf("Entities constructor: %+v", ok)
	}

	failed := Failure("")
	if failed.OK() || failed.FailureReason() == "" {
		t.Errorf("Failure constructor should default a reason: %+v", failed)
	}
}
