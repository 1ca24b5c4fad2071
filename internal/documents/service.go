package documents

import (
	"context"
	"strings"

	"github.com/baiirun/leadflow/internal/clock"
	"github.com/baiirun/leadflow/internal/model"
	"github.com/baiirun/leadflow/internal/repository"
)

// Service manages requirements and submissions in the record store.
type Service struct {
	store repository.Records
	clock clock.Clock
}

// NewService creates a document service. A nil clock uses the system clock.
func NewService(store repository.Records, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{store: store, clock: clk}
}

// RequirementInput declares a new requirement. ProcessID may be
// model.DefaultBucket, in which case StageID is ignored.
type RequirementInput struct {
	ProcessID   string
	StageID     string
	Name        string
	Description string
	Required    bool
	FileTypes   []string
	MaxSizeInMB int
}

// RequirementPatch is a partial update; nil fields are left unchanged.
type RequirementPatch struct {
	Name        *string
	Description *string
	Required    *bool
	FileTypes   []string
	MaxSizeInMB *int
}

// SubmissionInput describes an uploaded document.
type SubmissionInput struct {
	Name     string
	FileURL  string
	FileType string
	Notes    string
}

// ListRequirements returns the stored requirements of a bucket.
func (s *Service) ListRequirements(ctx context.Context, processID, stageID string) ([]model.DocumentRequirement, error) {
	return NewStoreSource(s.store).ListRequirements(ctx, processID, stageID)
}

// CreateRequirement stores a requirement after checking its bucket exists and
// no sibling already uses the name.
func (s *Service) CreateRequirement(ctx context.Context, input RequirementInput) (*model.DocumentRequirement, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, model.Invalid("requirement name is required")
	}
	if input.MaxSizeInMB < 0 {
		return nil, model.Invalid("max size must not be negative")
	}

	processID, stageID, err := s.checkBucket(ctx, input.ProcessID, input.StageID)
	if err != nil {
		return nil, err
	}
	if err := s.checkNameFree(ctx, processID, stageID, name, ""); err != nil {
		return nil, err
	}

	req := &model.DocumentRequirement{
		ID:          model.GenerateID(model.PrefixRequirement),
		ProcessID:   processID,
		StageID:     stageID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Required:    input.Required,
		FileTypes:   normalizeFileTypes(input.FileTypes),
		MaxSizeInMB: input.MaxSizeInMB,
	}
	if err := s.store.InsertRequirement(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateRequirement applies a patch to a requirement.
func (s *Service) UpdateRequirement(ctx context.Context, id string, patch RequirementPatch) (*model.DocumentRequirement, error) {
	req, err := s.store.GetRequirement(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, model.Invalid("requirement name is required")
		}
		if !strings.EqualFold(name, req.Name) {
			if err := s.checkNameFree(ctx, req.ProcessID, req.StageID, name, req.ID); err != nil {
				return nil, err
			}
		}
		req.Name = name
	}
	if patch.Description != nil {
		req.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Required != nil {
		req.Required = *patch.Required
	}
	if patch.FileTypes != nil {
		req.FileTypes = normalizeFileTypes(patch.FileTypes)
	}
	if patch.MaxSizeInMB != nil {
		if *patch.MaxSizeInMB < 0 {
			return nil, model.Invalid("max size must not be negative")
		}
		req.MaxSizeInMB = *patch.MaxSizeInMB
	}

	if err := s.store.UpdateRequirement(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// DeleteRequirement removes a requirement.
func (s *Service) DeleteRequirement(ctx context.Context, id string) error {
	return s.store.DeleteRequirement(ctx, id)
}

// Submit records an uploaded document as pending review.
func (s *Service) Submit(ctx context.Context, leadID string, input SubmissionInput) (*model.SubmittedDocument, error) {
	leadID = strings.TrimSpace(leadID)
	if leadID == "" {
		return nil, model.Invalid("lead id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, model.Invalid("document name is required")
	}

	doc := &model.SubmittedDocument{
		ID:         model.GenerateID(model.PrefixDocument),
		LeadID:     leadID,
		Name:       name,
		Status:     model.DocPending,
		UploadedAt: s.clock.Now(),
		FileURL:    strings.TrimSpace(input.FileURL),
		FileType:   strings.ToLower(strings.TrimSpace(input.FileType)),
		Notes:      input.Notes,
	}
	if err := s.store.InsertSubmission(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Review approves or rejects a submitted document.
func (s *Service) Review(ctx context.Context, id string, status model.DocumentStatus, notes string) (*model.SubmittedDocument, error) {
	if status != model.DocApproved && status != model.DocRejected {
		return nil, model.Invalid("review status must be %q or %q, got %q", model.DocApproved, model.DocRejected, status)
	}
	if err := s.store.UpdateSubmissionStatus(ctx, id, status, notes); err != nil {
		return nil, err
	}
	return s.store.GetSubmission(ctx, id)
}

// ListSubmissions returns every document a lead uploaded.
func (s *Service) ListSubmissions(ctx context.Context, leadID string) ([]model.SubmittedDocument, error) {
	return s.store.ListSubmissions(ctx, leadID)
}

// checkBucket validates a (process, stage) pair and normalizes the default bucket.
func (s *Service) checkBucket(ctx context.Context, processID, stageID string) (string, string, error) {
	processID = strings.TrimSpace(processID)
	stageID = strings.TrimSpace(stageID)

	switch processID {
	case "":
		return "", "", model.Invalid("process id is required")
	case model.DefaultBucket:
		return processID, "", nil
	}

	if _, err := s.store.GetProcess(ctx, processID); err != nil {
		return "", "", err
	}
	if stageID == "" {
		return "", "", model.Invalid("stage id is required outside the default bucket")
	}
	stage, err := s.store.GetStage(ctx, stageID)
	if err != nil {
		return "", "", err
	}
	if stage.ProcessID != processID {
		return "", "", model.Invalid("stage %s does not belong to process %s", stageID, processID)
	}
	return processID, stageID, nil
}

func (s *Service) checkNameFree(ctx context.Context, processID, stageID, name, exceptID string) error {
	siblings, err := s.ListRequirements(ctx, processID, stageID)
	if err != nil {
		return err
	}
	for _, r := range siblings {
		if r.ID != exceptID && strings.EqualFold(r.Name, name) {
			return model.Invalid("requirement %q already exists in this stage", r.Name)
		}
	}
	return nil
}

func normalizeFileTypes(types []string) model.StringSet {
	seen := make(map[string]bool, len(types))
	out := make(model.StringSet, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "."))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
