package models

import "time"

// Tracked deal properties. PropertyDealType is HubSpot's internal name for
// the hot/warm/cold temperature field.
const (
	PropertyDealType  = "deal_type__hot__warm___cold_"
	PropertyDealStage = "dealstage"
	PropertyCloseDate = "expected_closure_date"
)

// BundleKeys are the report table names, in presentation order.
var BundleKeys = []string{"deal_type", "dealstage", "expected_close_date"}

// TrackedProperties maps each bundle key to the CRM property it tracks.
var TrackedProperties = map[string]string{
	"deal_type":           PropertyDealType,
	"dealstage":           PropertyDealStage,
	"expected_close_date": PropertyCloseDate,
}

type Deal struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OwnerID      string `json:"owner_id"`
	PipelineID   string `json:"pipeline_id"`
	Amount       string `json:"amount"`
	LastModified string `json:"last_modified"`
}

// PropertyHistoryEntry is one audited value of one deal property. The CRM
// reports timestamps either as ISO-8601 strings or epoch-millisecond
// strings; both are accepted downstream.
type PropertyHistoryEntry struct {
	Value     string `json:"value"`
	Timestamp string `json:"timestamp"`
}

// ChangeRecord is one detected transition within the report window.
// Before and After already carry human labels.
type ChangeRecord struct {
	DealID   string    `json:"deal_id"`
	DealName string    `json:"deal_name"`
	Property string    `json:"property"`
	Before   string    `json:"before"`
	After    string    `json:"after"`
	ChangeAt time.Time `json:"change_at"`
	Owner    string    `json:"owner"`
	Pipeline string    `json:"pipeline"`
	Amount   string    `json:"amount"`
}

// ReportBundle holds the three change tables handed to the notifier,
// keyed by bundle key.
type ReportBundle struct {
	Tables map[string][]ChangeRecord
}

func NewReportBundle() *ReportBundle {
	tables := make(map[string][]ChangeRecord, len(BundleKeys))
	for _, key := range BundleKeys {
		tables[key] = nil
	}
	return &ReportBundle{Tables: tables}
}

func (b *ReportBundle) Add(key string, records ...ChangeRecord) {
	b.Tables[key] = append(b.Tables[key], records...)
}

func (b *ReportBundle) Count(key string) int {
	return len(b.Tables[key])
}

func (b *ReportBundle) TotalChanges() int {
	total := 0
	for _, records := range b.Tables {
		total += len(records)
	}
	return total
}
