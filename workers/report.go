package workers

import (
	"context"
	"log"

	"dealwatch/config"
	"dealwatch/report"
)

// ReportWorker owns one configured report. Triggers arriving while a run
// is in flight collapse into at most one queued run, so a report never
// overlaps itself; distinct reports run independently.
type ReportWorker struct {
	pipeline  *report.Pipeline
	cfg       *config.ReportConfig
	triggerCh chan struct{}
}

func NewReportWorker(pipeline *report.Pipeline, cfg *config.ReportConfig) *ReportWorker {
	return &ReportWorker{
		pipeline:  pipeline,
		cfg:       cfg,
		triggerCh: make(chan struct{}, 1),
	}
}

// Trigger requests a run and returns immediately. Completion is observed
// only via the eventual email and the run audit trail.
func (w *ReportWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
		log.Printf("worker %s: run already pending, trigger dropped", w.cfg.ID)
	}
}

func (w *ReportWorker) Run(ctx context.Context) {
	for {
		select {
		case <-w.triggerCh:
			if err := w.pipeline.Run(ctx, w.cfg); err != nil {
				log.Printf("worker %s: run failed: %v", w.cfg.ID, err)
			}
		case <-ctx.Done():
			return
		}
	}
}
