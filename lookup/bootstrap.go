package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"dealwatch/config"
	"dealwatch/hubspot"
)

// Bootstrap queries the CRM metadata endpoints once and persists the
// three mapping files the pipeline loads at startup. Run via the
// -build-lookups flag; failures here are reported, never swallowed.
func Bootstrap(ctx context.Context, client *hubspot.Client, cfg *config.LookupConfig) error {
	owners, err := client.FetchOwners(ctx)
	if err != nil {
		return fmt.Errorf("fetch owners: %w", err)
	}

	ownerMap := make(map[string]string, len(owners))
	for _, o := range owners {
		ownerMap[o.ID] = strings.TrimSpace(o.FirstName + " " + o.LastName)
	}

	pipelines, err := client.FetchPipelines(ctx)
	if err != nil {
		return fmt.Errorf("fetch pipelines: %w", err)
	}

	pipelineMap := make(map[string]string, len(pipelines))
	stageMap := make(map[string]map[string]string, len(pipelines))
	for _, p := range pipelines {
		pipelineMap[p.ID] = p.Label
		stages := make(map[string]string, len(p.Stages))
		for _, s := range p.Stages {
			stages[s.ID] = s.Label
		}
		stageMap[p.ID] = stages
	}

	if err := writeJSON(cfg.OwnerMapPath, ownerMap); err != nil {
		return fmt.Errorf("write owner map: %w", err)
	}
	if err := writeJSON(cfg.PipelineMapPath, pipelineMap); err != nil {
		return fmt.Errorf("write pipeline map: %w", err)
	}
	if err := writeJSON(cfg.StageMapPath, stageMap); err != nil {
		return fmt.Errorf("write deal stage map: %w", err)
	}

	log.Printf("Lookup tables built: %d owners, %d pipelines", len(ownerMap), len(pipelineMap))
	return nil
}

func writeJSON(path string, data interface{}) error {
	out, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}
