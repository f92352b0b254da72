package report

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"dealwatch/models"
)

func TestRenderCSV_StageTable(t *testing.T) {
	records := []models.ChangeRecord{
		{
			DealID:   "D1",
			DealName: "Acme Warehousing",
			Before:   "RFI Sent",
			After:    "Commercial Shared",
			ChangeAt: time.Date(2024, 5, 11, 8, 30, 0, 0, time.UTC),
			Owner:    "Jane Doe",
			Pipeline: "Freight Pipeline",
			Amount:   "125000",
		},
	}

	data, err := RenderCSV("dealstage", records)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}

	wantHeader := []string{"Deal ID", "Deal Name", "Before Stage", "After Stage", "Timestamp", "Owner", "Pipeline", "Amount"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Fatalf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}

	row := rows[1]
	if row[0] != "D1" || row[2] != "RFI Sent" || row[3] != "Commercial Shared" {
		t.Fatalf("unexpected row: %v", row)
	}
	if row[4] != "11-05-2024 08:30" {
		t.Fatalf("expected timestamp 11-05-2024 08:30, got %q", row[4])
	}
}

func TestRenderCSV_HeadersPerTable(t *testing.T) {
	wantCols := map[string][2]string{
		"deal_type":           {"Before Status", "After Status"},
		"expected_close_date": {"Before Close Date", "After Close Date"},
	}

	for key, cols := range wantCols {
		data, err := RenderCSV(key, nil)
		if err != nil {
			t.Fatalf("render %s failed: %v", key, err)
		}
		header := strings.TrimSpace(string(data))
		if !strings.Contains(header, cols[0]) || !strings.Contains(header, cols[1]) {
			t.Fatalf("%s header missing columns %v: %q", key, cols, header)
		}
	}
}

func TestRenderCSV_UnknownTable(t *testing.T) {
	if _, err := RenderCSV("nope", nil); err == nil {
		t.Fatal("expected error for unknown table")
	}
}

func TestRenderBundle_PreservesRowOrder(t *testing.T) {
	bundle := models.NewReportBundle()
	for _, id := range []string{"D1", "D2", "D3"} {
		bundle.Add("deal_type", models.ChangeRecord{
			DealID:   id,
			Before:   "Warm",
			After:    "Hot",
			ChangeAt: time.Date(2024, 5, 11, 8, 0, 0, 0, time.UTC),
		})
	}

	csvs, err := RenderBundle(bundle)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(csvs) != 3 {
		t.Fatalf("expected 3 tables, got %d", len(csvs))
	}

	rows, err := csv.NewReader(strings.NewReader(string(csvs["deal_type"]))).ReadAll()
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	for i, id := range []string{"D1", "D2", "D3"} {
		if rows[i+1][0] != id {
			t.Fatalf("row %d: expected %s, got %s", i+1, id, rows[i+1][0])
		}
	}

	// Empty tables still render a lone header row.
	stageRows, err := csv.NewReader(strings.NewReader(string(csvs["dealstage"]))).ReadAll()
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if len(stageRows) != 1 {
		t.Fatalf("expected header only for empty table, got %d rows", len(stageRows))
	}
}

func TestNewWindow(t *testing.T) {
	before := time.Now().UTC().Add(-24 * time.Hour)
	w := NewWindow(24 * time.Hour)
	after := time.Now().UTC().Add(-24 * time.Hour)

	if w.Cutoff.Before(before) || w.Cutoff.After(after) {
		t.Fatalf("cutoff %s outside expected range", w.Cutoff)
	}
}
