package documents

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/baiirun/leadflow/internal/model"
	"github.com/baiirun/leadflow/internal/repository"
)

// RequirementSource lists the requirements declared for a (process, stage)
// pair. A processID equal to model.DefaultBucket selects the default bucket
// and the stageID is ignored.
type RequirementSource interface {
	ListRequirements(ctx context.Context, processID, stageID string) ([]model.DocumentRequirement, error)
}

// SubmissionSource lists the documents a lead has uploaded.
type SubmissionSource interface {
	ListSubmissions(ctx context.Context, leadID string) ([]model.SubmittedDocument, error)
}

// PlacementSource looks up where a lead currently sits.
type PlacementSource interface {
	GetPlacement(ctx context.Context, leadID string) (*model.LeadPlacement, error)
}

// StoreSource reads requirements from the record store.
type StoreSource struct {
	repo repository.RequirementRepository
}

// NewStoreSource wraps a requirement repository.
func NewStoreSource(repo repository.RequirementRepository) *StoreSource {
	return &StoreSource{repo: repo}
}

func (s *StoreSource) ListRequirements(ctx context.Context, processID, stageID string) ([]model.DocumentRequirement, error) {
	if processID == model.DefaultBucket {
		return s.repo.ListDefaultRequirements(ctx)
	}
	return s.repo.ListRequirements(ctx, processID, stageID)
}

// catalogFile is the on-disk layout of a requirement catalog:
//
//	default:
//	  - name: Photo ID
//	    required: true
//	processes:
//	  pr-1a2b3c4d5e6f:
//	    st-0a1b2c3d4e5f:
//	      - name: Signed Contract
//	        file_types: [pdf]
type catalogFile struct {
	Default   []model.DocumentRequirement                       `yaml:"default"`
	Processes map[string]map[string][]model.DocumentRequirement `yaml:"processes"`
}

// CatalogSource serves requirements from a static YAML catalog.
type CatalogSource struct {
	defaults []model.DocumentRequirement
	buckets  map[string]map[string][]model.DocumentRequirement
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*CatalogSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog YAML. Entries without an id get one derived
// from their bucket and position.
func ParseCatalog(data []byte) (*CatalogSource, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &CatalogSource{
		defaults: fill(file.Default, model.DefaultBucket, ""),
		buckets:  make(map[string]map[string][]model.DocumentRequirement, len(file.Processes)),
	}
	for processID, stages := range file.Processes {
		byStage := make(map[string][]model.DocumentRequirement, len(stages))
		for stageID, reqs := range stages {
			byStage[stageID] = fill(reqs, processID, stageID)
		}
		c.buckets[processID] = byStage
	}
	return c, nil
}

func fill(reqs []model.DocumentRequirement, processID, stageID string) []model.DocumentRequirement {
	out := make([]model.DocumentRequirement, 0, len(reqs))
	for i, r := range reqs {
		if r.Name == "" {
			continue
		}
		r.ProcessID = processID
		r.StageID = stageID
		if r.ID == "" {
			if stageID == "" {
				r.ID = fmt.Sprintf("%s/%d", processID, i+1)
			} else {
				r.ID = fmt.Sprintf("%s/%s/%d", processID, stageID, i+1)
			}
		}
		out = append(out, r)
	}
	return out
}

func (c *CatalogSource) ListRequirements(_ context.Context, processID, stageID string) ([]model.DocumentRequirement, error) {
	if processID == model.DefaultBucket {
		return clone(c.defaults), nil
	}
	return clone(c.buckets[processID][stageID]), nil
}

func clone(reqs []model.DocumentRequirement) []model.DocumentRequirement {
	out := make([]model.DocumentRequirement, len(reqs))
	copy(out, reqs)
	return out
}
