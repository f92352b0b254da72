package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"dealwatch/lookup"
	"dealwatch/models"
)

const closeDateLayout = "02-01-2006"

// ParseTimestamp accepts the two timestamp shapes the CRM emits:
// ISO-8601 (with Z or offset) and epoch-millisecond strings. ISO-8601 is
// tried first.
func ParseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

// Extractor walks property histories and emits change records for
// transitions inside the report window.
type Extractor struct {
	tables *lookup.Tables
	cutoff time.Time
}

// NewExtractor builds an extractor for one report run. Changes timestamped
// at or after cutoff are included; strictly before are not.
func NewExtractor(tables *lookup.Tables, cutoff time.Time) *Extractor {
	return &Extractor{tables: tables, cutoff: cutoff}
}

type datedEntry struct {
	models.PropertyHistoryEntry
	at time.Time
}

// Extract diffs chronologically adjacent history entries for one deal
// property. Only adjacent pairs are compared; entries sharing a timestamp
// keep their arrival order (the API defines no secondary ordering).
func (e *Extractor) Extract(deal *models.Deal, property string, history []models.PropertyHistoryEntry) ([]models.ChangeRecord, error) {
	if len(history) < 2 {
		return nil, nil
	}

	entries := make([]datedEntry, 0, len(history))
	for _, h := range history {
		at, err := ParseTimestamp(h.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("deal %s property %s: %w", deal.ID, property, err)
		}
		entries = append(entries, datedEntry{PropertyHistoryEntry: h, at: at})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].at.Before(entries[j].at)
	})

	ownerName := e.tables.OwnerName(deal.OwnerID)
	pipelineName := e.tables.PipelineName(deal.PipelineID)

	var records []models.ChangeRecord
	for i := 1; i < len(entries); i++ {
		prev, curr := entries[i-1], entries[i]
		if prev.Value == curr.Value || curr.at.Before(e.cutoff) {
			continue
		}

		records = append(records, models.ChangeRecord{
			DealID:   deal.ID,
			DealName: deal.Name,
			Property: property,
			Before:   e.renderValue(property, deal.PipelineID, prev.Value),
			After:    e.renderValue(property, deal.PipelineID, curr.Value),
			ChangeAt: curr.at,
			Owner:    ownerName,
			Pipeline: pipelineName,
			Amount:   deal.Amount,
		})
	}

	return records, nil
}

func (e *Extractor) renderValue(property, pipelineID, value string) string {
	switch property {
	case models.PropertyDealType:
		return mapTemperature(value)
	case models.PropertyDealStage:
		return e.tables.StageLabel(pipelineID, value)
	case models.PropertyCloseDate:
		return formatCloseDate(value)
	}
	return value
}

func mapTemperature(value string) string {
	switch strings.ToLower(value) {
	case "true":
		return "Hot"
	case "false":
		return "Warm"
	}
	return value
}

// formatCloseDate renders an epoch-millisecond close date as DD-MM-YYYY.
// Non-numeric values pass through raw; empty stays empty.
func formatCloseDate(value string) string {
	if value == "" {
		return ""
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return value
	}
	return time.UnixMilli(ms).UTC().Format(closeDateLayout)
}
