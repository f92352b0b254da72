package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"dealwatch/models"
)

const changeTimeLayout = "02-01-2006 15:04"

// tableColumns names the before/after columns per report table.
var tableColumns = map[string][2]string{
	"deal_type":           {"Before Status", "After Status"},
	"dealstage":           {"Before Stage", "After Stage"},
	"expected_close_date": {"Before Close Date", "After Close Date"},
}

// RenderCSV serializes one bundle table with a header row. Rows keep deal
// iteration order; no independent sorting happens here.
func RenderCSV(key string, records []models.ChangeRecord) ([]byte, error) {
	cols, ok := tableColumns[key]
	if !ok {
		return nil, fmt.Errorf("unknown report table %q", key)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Deal ID", "Deal Name", cols[0], cols[1], "Timestamp", "Owner", "Pipeline", "Amount"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, r := range records {
		row := []string{
			r.DealID,
			r.DealName,
			r.Before,
			r.After,
			r.ChangeAt.UTC().Format(changeTimeLayout),
			r.Owner,
			r.Pipeline,
			r.Amount,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderBundle serializes every table of the bundle, keyed as the
// attachment basenames expect.
func RenderBundle(bundle *models.ReportBundle) (map[string][]byte, error) {
	out := make(map[string][]byte, len(models.BundleKeys))
	for _, key := range models.BundleKeys {
		data, err := RenderCSV(key, bundle.Tables[key])
		if err != nil {
			return nil, err
		}
		out[key] = data
	}
	return out, nil
}

// Window describes one report's trailing time window.
type Window struct {
	Cutoff   time.Time
	Lookback time.Duration
}

// NewWindow anchors a lookback duration at the current UTC instant.
func NewWindow(lookback time.Duration) Window {
	return Window{
		Cutoff:   time.Now().UTC().Add(-lookback),
		Lookback: lookback,
	}
}
