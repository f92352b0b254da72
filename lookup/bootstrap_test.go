package lookup

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"dealwatch/config"
	"dealwatch/httputil"
	"dealwatch/hubspot"
)

func TestBootstrap(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crm/v3/owners":
			fmt.Fprint(w, `{"results": [
				{"id": "1", "firstName": "Jane", "lastName": "Doe"},
				{"id": "2", "firstName": "Solo", "lastName": ""}
			]}`)
		case "/crm/v3/pipelines/deals":
			fmt.Fprint(w, `{"results": [
				{"id": "P1", "label": "Freight Pipeline", "stages": [
					{"id": "s1", "label": "RFI Sent"},
					{"id": "s2", "label": "Closed Lost"}
				]}
			]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	hsCfg := &config.HubSpotConfig{
		Token:          "t",
		BaseURL:        ts.URL,
		HistoryTimeout: 5 * time.Second,
	}
	client := hubspot.NewClient(hsCfg, httputil.NewClients(hsCfg.Token, hsCfg.HistoryTimeout))

	dir := t.TempDir()
	lkCfg := &config.LookupConfig{
		OwnerMapPath:    filepath.Join(dir, "owner_map.json"),
		StageMapPath:    filepath.Join(dir, "deal_stage_map.json"),
		PipelineMapPath: filepath.Join(dir, "pipeline_map.json"),
	}

	if err := Bootstrap(context.Background(), client, lkCfg); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}

	tables, err := Load(lkCfg)
	if err != nil {
		t.Fatalf("load after bootstrap failed: %v", err)
	}

	if got := tables.OwnerName("1"); got != "Jane Doe" {
		t.Fatalf("unexpected owner name %q", got)
	}
	if got := tables.OwnerName("2"); got != "Solo" {
		t.Fatalf("expected trimmed single name, got %q", got)
	}
	if got := tables.PipelineName("P1"); got != "Freight Pipeline" {
		t.Fatalf("unexpected pipeline name %q", got)
	}
	if got := tables.StageLabel("P1", "s2"); got != "Closed Lost" {
		t.Fatalf("unexpected stage label %q", got)
	}
}

func TestBootstrap_MetadataError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer ts.Close()

	hsCfg := &config.HubSpotConfig{
		Token:          "t",
		BaseURL:        ts.URL,
		HistoryTimeout: 5 * time.Second,
	}
	client := hubspot.NewClient(hsCfg, httputil.NewClients(hsCfg.Token, hsCfg.HistoryTimeout))

	dir := t.TempDir()
	lkCfg := &config.LookupConfig{
		OwnerMapPath:    filepath.Join(dir, "owner_map.json"),
		StageMapPath:    filepath.Join(dir, "deal_stage_map.json"),
		PipelineMapPath: filepath.Join(dir, "pipeline_map.json"),
	}

	if err := Bootstrap(context.Background(), client, lkCfg); err == nil {
		t.Fatal("expected bootstrap to surface the API error")
	}
}
