package report

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"dealwatch/config"
	"dealwatch/hubspot"
	"dealwatch/lookup"
	"dealwatch/models"
	"dealwatch/storage"
)

// ReportSender delivers a finished report to its recipients, returning
// how many sends succeeded and failed.
type ReportSender interface {
	SendReport(ctx context.Context, csvs map[string][]byte, bundle *models.ReportBundle, totalDeals int, label string, recipients []string) (sent, failed int)
}

// Pipeline runs one report end to end: search deals, fetch histories,
// extract changes, build tables, mail, and record the run. Deals are
// processed sequentially with a fixed pause between them.
type Pipeline struct {
	client    *hubspot.Client
	tables    *lookup.Tables
	sender    ReportSender
	store     *storage.SQLiteStore
	archiver  *storage.Archiver
	dealDelay time.Duration
}

func NewPipeline(client *hubspot.Client, tables *lookup.Tables, sender ReportSender, store *storage.SQLiteStore, dealDelay time.Duration) *Pipeline {
	return &Pipeline{
		client:    client,
		tables:    tables,
		sender:    sender,
		store:     store,
		dealDelay: dealDelay,
	}
}

// SetArchiver enables copying the generated CSVs to object storage.
func (p *Pipeline) SetArchiver(a *storage.Archiver) {
	p.archiver = a
}

func (p *Pipeline) Run(ctx context.Context, rep *config.ReportConfig) error {
	window := NewWindow(rep.Lookback())

	run := &models.ReportRun{
		UID:       uuid.NewString(),
		ReportID:  rep.ID,
		Label:     rep.Label,
		StartedAt: time.Now().UTC(),
		Status:    models.RunStatusRunning,
	}

	runID, err := p.store.CreateRun(run)
	if err != nil {
		return err
	}
	run.ID = runID

	defer func() {
		now := time.Now().UTC()
		run.FinishedAt = &now
		if run.Status == models.RunStatusRunning {
			run.Status = models.RunStatusCompleted
		}
		if err := p.store.UpdateRun(run); err != nil {
			log.Printf("report: failed to finalize run %s: %v", run.UID, err)
		}
	}()

	p.log(run, models.LogLevelInfo, fmt.Sprintf("Starting %s report, cutoff %s", rep.Label, window.Cutoff.Format(time.RFC3339)))

	deals, totalDeals, err := p.client.SearchDeals(ctx, window.Cutoff)
	if err != nil {
		p.log(run, models.LogLevelError, fmt.Sprintf("Deal search aborted: %v", err))
		run.Status = models.RunStatusFailed
		return err
	}
	run.DealsScanned = totalDeals
	p.log(run, models.LogLevelInfo, fmt.Sprintf("Fetched %d deals", totalDeals))

	extractor := NewExtractor(p.tables, window.Cutoff)
	bundle := models.NewReportBundle()

	for i := range deals {
		deal := &deals[i]
		p.extractDeal(ctx, run, extractor, bundle, deal)

		if i < len(deals)-1 {
			select {
			case <-time.After(p.dealDelay):
			case <-ctx.Done():
				run.Status = models.RunStatusFailed
				return ctx.Err()
			}
		}
	}

	run.TypeChanges = bundle.Count("deal_type")
	run.StageChanges = bundle.Count("dealstage")
	run.CloseChanges = bundle.Count("expected_close_date")

	csvs, err := RenderBundle(bundle)
	if err != nil {
		p.log(run, models.LogLevelError, fmt.Sprintf("CSV rendering failed: %v", err))
		run.Status = models.RunStatusFailed
		return err
	}

	if len(rep.Recipients) == 0 {
		p.log(run, models.LogLevelWarn, "No recipients configured, skipping email delivery")
	}
	sent, failed := p.sender.SendReport(ctx, csvs, bundle, totalDeals, rep.Label, rep.Recipients)
	run.EmailsSent = sent
	run.EmailsFailed = failed
	if failed > 0 {
		p.log(run, models.LogLevelWarn, fmt.Sprintf("%d of %d emails failed", failed, sent+failed))
	}

	p.archive(ctx, run, csvs)

	p.log(run, models.LogLevelInfo, fmt.Sprintf("Completed: %d type, %d stage, %d close date changes across %d deals",
		run.TypeChanges, run.StageChanges, run.CloseChanges, totalDeals))
	return nil
}

// extractDeal fetches and diffs the three tracked histories of one deal.
// Fetch and parse failures are logged and counted, never fatal: the rest
// of the report still goes out.
func (p *Pipeline) extractDeal(ctx context.Context, run *models.ReportRun, extractor *Extractor, bundle *models.ReportBundle, deal *models.Deal) {
	for _, key := range models.BundleKeys {
		property := models.TrackedProperties[key]

		history, err := p.client.FetchPropertyHistory(ctx, deal.ID, property)
		if err != nil {
			p.log(run, models.LogLevelWarn, fmt.Sprintf("History fetch failed, treating as empty: %v", err))
			run.ErrorsCount++
			continue
		}

		records, err := extractor.Extract(deal, property, history)
		if err != nil {
			p.log(run, models.LogLevelError, fmt.Sprintf("Extraction failed: %v", err))
			run.ErrorsCount++
			continue
		}

		bundle.Add(key, records...)
	}
}

func (p *Pipeline) archive(ctx context.Context, run *models.ReportRun, csvs map[string][]byte) {
	if p.archiver == nil {
		return
	}
	for key, data := range csvs {
		if err := p.archiver.ArchiveTable(ctx, run.ReportID, run.UID, key, data); err != nil {
			p.log(run, models.LogLevelWarn, fmt.Sprintf("Archive failed for %s: %v", key, err))
			run.ErrorsCount++
		}
	}
}

func (p *Pipeline) log(run *models.ReportRun, level models.LogLevel, message string) {
	log.Printf("[%s] %s: %s", level, run.ReportID, message)
	if err := p.store.Log(&run.ID, level, message, run.ReportID); err != nil {
		log.Printf("report: failed to persist log line: %v", err)
	}
}
