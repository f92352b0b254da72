package lookup

import (
	"encoding/json"
	"fmt"
	"os"

	"dealwatch/config"
)

// Tables maps CRM-internal ids to human labels. Built once at startup and
// treated as read-only for the life of the process. All lookups are
// total: an unmapped id resolves to itself.
type Tables struct {
	owners    map[string]string
	pipelines map[string]string
	stages    map[string]map[string]string
}

func NewTables(owners, pipelines map[string]string, stages map[string]map[string]string) *Tables {
	if owners == nil {
		owners = map[string]string{}
	}
	if pipelines == nil {
		pipelines = map[string]string{}
	}
	if stages == nil {
		stages = map[string]map[string]string{}
	}
	return &Tables{owners: owners, pipelines: pipelines, stages: stages}
}

// Load reads the three persisted mapping files. A missing pipeline map is
// tolerated (older deployments shipped without one); the owner and stage
// maps are required.
func Load(cfg *config.LookupConfig) (*Tables, error) {
	var owners map[string]string
	if err := readJSON(cfg.OwnerMapPath, &owners); err != nil {
		return nil, fmt.Errorf("owner map: %w", err)
	}

	var stages map[string]map[string]string
	if err := readJSON(cfg.StageMapPath, &stages); err != nil {
		return nil, fmt.Errorf("deal stage map: %w", err)
	}

	var pipelines map[string]string
	if err := readJSON(cfg.PipelineMapPath, &pipelines); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("pipeline map: %w", err)
		}
		pipelines = map[string]string{}
	}

	return NewTables(owners, pipelines, stages), nil
}

func (t *Tables) OwnerName(id string) string {
	if name, ok := t.owners[id]; ok {
		return name
	}
	return id
}

func (t *Tables) PipelineName(id string) string {
	if name, ok := t.pipelines[id]; ok {
		return name
	}
	return id
}

// StageLabel resolves a stage id within its pipeline. Unknown pipelines
// and unknown stages both fall back to the raw stage id.
func (t *Tables) StageLabel(pipelineID, stageID string) string {
	if stages, ok := t.stages[pipelineID]; ok {
		if label, ok := stages[stageID]; ok {
			return label
		}
	}
	return stageID
}

func readJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
