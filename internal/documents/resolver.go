// Package documents resolves the documents a lead must supply against what it
// has submitted, and manages requirements and submissions.
//
// Submissions match requirements by case-insensitive exact name. Renaming a
// requirement orphans earlier submissions; they are dropped from the resolved
// view, never reported.
package documents

import (
	"context"
	"errors"
	"strings"

	"github.com/baiirun/leadflow/internal/model"
)

// Resolver merges requirements with a lead's submissions.
type Resolver struct {
	requirements RequirementSource
	submissions  SubmissionSource
	placements   PlacementSource
}

// NewResolver creates a resolver. placements may be nil if ResolveForLead is
// never called.
func NewResolver(requirements RequirementSource, submissions SubmissionSource, placements PlacementSource) *Resolver {
	return &Resolver{requirements: requirements, submissions: submissions, placements: placements}
}

// Resolve returns one entry per requirement of (processID, stageID), carrying
// the lead's matching submission if there is one.
func (r *Resolver) Resolve(ctx context.Context, leadID, processID, stageID string) ([]model.ResolvedDocument, error) {
	reqs, err := r.requirements.ListRequirements(ctx, processID, stageID)
	if err != nil {
		return nil, err
	}
	subs, err := r.submissions.ListSubmissions(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return Merge(reqs, subs), nil
}

// ResolveForLead resolves against the lead's current placement, or the
// default bucket when the lead has not been placed.
func (r *Resolver) ResolveForLead(ctx context.Context, leadID string) ([]model.ResolvedDocument, error) {
	processID, stageID := model.DefaultBucket, ""
	if r.placements != nil {
		p, err := r.placements.GetPlacement(ctx, leadID)
		switch {
		case err == nil:
			processID, stageID = p.ProcessID, p.StageID
		case !errors.Is(err, model.ErrNotFound):
			return nil, err
		}
	}
	return r.Resolve(ctx, leadID, processID, stageID)
}

// Merge anchors the result on requirements. Submissions whose name matches no
// requirement are dropped. When several submissions share a name the most
// recently uploaded wins.
func Merge(reqs []model.DocumentRequirement, subs []model.SubmittedDocument) []model.ResolvedDocument {
	byName := make(map[string]model.SubmittedDocument, len(subs))
	for _, s := range subs {
		key := strings.ToLower(s.Name)
		if prev, ok := byName[key]; ok && prev.UploadedAt.After(s.UploadedAt) {
			continue
		}
		byName[key] = s
	}

	out := make([]model.ResolvedDocument, 0, len(reqs))
	for _, req := range reqs {
		doc := model.ResolvedDocument{
			RequirementID: req.ID,
			Name:          req.Name,
			Description:   req.Description,
			Required:      req.Required,
			FileTypes:     append([]string{}, req.FileTypes...),
			MaxSizeInMB:   req.MaxSizeInMB,
			Status:        model.DocNotSubmitted,
		}
		if sub, ok := byName[strings.ToLower(req.Name)]; ok {
			uploaded := sub.UploadedAt
			doc.Status = sub.Status
			doc.DocumentID = sub.ID
			doc.UploadedAt = &uploaded
			doc.FileURL = sub.FileURL
			doc.FileType = sub.FileType
			doc.Notes = sub.Notes
		}
		out = append(out, doc)
	}
	return out
}

// Summarize counts a resolved list.
func Summarize(docs []model.ResolvedDocument) model.DocumentSummary {
	sum := model.DocumentSummary{Total: len(docs), MissingRequired: []string{}}
	for _, d := range docs {
		if d.Required {
			sum.Required++
		}
		switch d.Status {
		case model.DocNotSubmitted:
			if d.Required {
				sum.MissingRequired = append(sum.MissingRequired, d.Name)
			}
			continue
		case model.DocApproved:
			sum.Approved++
		case model.DocRejected:
			sum.Rejected++
		}
		sum.Submitted++
	}
	return sum
}
