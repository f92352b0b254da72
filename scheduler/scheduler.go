package scheduler

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"dealwatch/config"
)

// Triggerable is what the scheduler fires: a report worker's trigger.
type Triggerable interface {
	Trigger()
}

// Scheduler fires each report's cron expression at its worker. Reports
// without a cron expression are trigger-only.
type Scheduler struct {
	cron    *cron.Cron
	workers map[string]Triggerable
	reports map[string]*config.ReportConfig
}

func New(reports map[string]*config.ReportConfig, workers map[string]Triggerable) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		workers: workers,
		reports: reports,
	}
}

func (s *Scheduler) Start() error {
	scheduled := 0
	for id, rep := range s.reports {
		if rep.Cron == "" {
			continue
		}

		worker, ok := s.workers[id]
		if !ok {
			return fmt.Errorf("no worker for report %s", id)
		}

		if _, err := s.cron.AddFunc(rep.Cron, worker.Trigger); err != nil {
			return fmt.Errorf("invalid cron for report %s: %w", id, err)
		}
		log.Printf("Scheduled report %s: %s", id, rep.Cron)
		scheduled++
	}

	if scheduled == 0 {
		log.Println("No report schedules configured, reports run on HTTP trigger only")
		return nil
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
