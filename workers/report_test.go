package workers

import (
	"testing"

	"dealwatch/config"
)

func TestTrigger_CollapsesWhilePending(t *testing.T) {
	w := NewReportWorker(nil, &config.ReportConfig{ID: "daily", Label: "Daily", LookbackHours: 24})

	w.Trigger()
	w.Trigger()
	w.Trigger()

	if got := len(w.triggerCh); got != 1 {
		t.Fatalf("expected 1 pending trigger, got %d", got)
	}
}
