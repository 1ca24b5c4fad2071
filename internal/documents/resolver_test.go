package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/baiirun/leadflow/internal/model"
)

type fakeRequirements map[string][]model.DocumentRequirement

func (f fakeRequirements) ListRequirements(_ context.Context, processID, stageID string) ([]model.DocumentRequirement, error) {
	if processID == model.DefaultBucket {
		return f[model.DefaultBucket], nil
	}
	return f[processID+"/"+stageID], nil
}

type fakeSubmissions struct {
	docs []model.SubmittedDocument
	err  error
}

func (f fakeSubmissions) ListSubmissions(context.Context, string) ([]model.SubmittedDocument, error) {
	return f.docs, f.err
}

type fakePlacements map[string]model.LeadPlacement

func (f fakePlacements) GetPlacement(_ context.Context, leadID string) (*model.LeadPlacement, error) {
	p, ok := f[leadID]
	if !ok {
		return nil, model.NotFound("lead placement", leadID)
	}
	return &p, nil
}

func TestMerge_CaseInsensitiveAndAnchored(t *testing.T) {
	uploaded := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	reqs := []model.DocumentRequirement{
		{ID: "rq-1", Name: "ID Proof"},
		{ID: "rq-2", Name: "Address Proof"},
	}
	subs := []model.SubmittedDocument{
		{ID: "dc-1", Name: "id proof", Status: model.DocApproved, UploadedAt: uploaded, FileURL: "s3://id.pdf", FileType: "pdf"},
		{ID: "dc-2", Name: "Passport", Status: model.DocPending, UploadedAt: uploaded},
	}

	got := Merge(reqs, subs)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}

	if got[0].Name != "ID Proof" || got[0].Status != model.DocApproved {
		t.Errorf("entry 0 = %s/%s, want ID Proof/approved", got[0].Name, got[0].Status)
	}
	if got[0].DocumentID != "dc-1" || got[0].FileURL != "s3://id.pdf" || got[0].FileType != "pdf" {
		t.Errorf("entry 0 did not inherit submission metadata: %+v", got[0])
	}
	if got[0].UploadedAt == nil || !got[0].UploadedAt.Equal(uploaded) {
		t.Errorf("uploadedAt = %v, want %v", got[0].UploadedAt, uploaded)
	}

	if got[1].Name != "Address Proof" || got[1].Status != model.DocNotSubmitted {
		t.Errorf("entry 1 = %s/%s, want Address Proof/not_submitted", got[1].Name, got[1].Status)
	}
	if got[1].UploadedAt != nil || got[1].FileURL != "" || got[1].DocumentID != "" {
		t.Errorf("unsubmitted entry carries file metadata: %+v", got[1])
	}

	for _, d := range got {
		if d.Name == "Passport" {
			t.Error("orphan submission leaked into the resolved view")
		}
	}
}

func TestMerge_LatestUploadWins(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	reqs := []model.DocumentRequirement{{ID: "rq-1", Name: "Bank Statement"}}

	tests := []struct {
		name string
		subs []model.SubmittedDocument
		want model.DocumentStatus
	}{
		{
			name: "newer last",
			subs: []model.SubmittedDocument{
				{Name: "bank statement", Status: model.DocRejected, UploadedAt: base},
				{Name: "BANK STATEMENT", Status: model.DocPending, UploadedAt: base.Add(time.Hour)},
			},
			want: model.DocPending,
		},
		{
			name: "newer first",
			subs: []model.SubmittedDocument{
				{Name: "Bank Statement", Status: model.DocApproved, UploadedAt: base.Add(time.Hour)},
				{Name: "bank statement", Status: model.DocRejected, UploadedAt: base},
			},
			want: model.DocApproved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(reqs, tt.subs)
			if got[0].Status != tt.want {
				t.Errorf("status = %q, want %q", got[0].Status, tt.want)
			}
		})
	}
}

func TestMerge_NoNearMatches(t *testing.T) {
	reqs := []model.DocumentRequirement{{Name: "ID Proof"}}
	subs := []model.SubmittedDocument{{Name: "ID Proof ", Status: model.DocApproved}, {Name: "IDProof", Status: model.DocApproved}}

	got := Merge(reqs, subs)
	if got[0].Status != model.DocNotSubmitted {
		t.Errorf("status = %q, want %q", got[0].Status, model.DocNotSubmitted)
	}
}

func TestMerge_Empty(t *testing.T) {
	if got := Merge(nil, []model.SubmittedDocument{{Name: "x"}}); len(got) != 0 {
		t.Errorf("expected no entries, got %d", len(got))
	}
}

func TestSummarize(t *testing.T) {
	docs := []model.ResolvedDocument{
		{Name: "A", Required: true, Status: model.DocApproved},
		{Name: "B", Required: true, Status: model.DocNotSubmitted},
		{Name: "C", Required: false, Status: model.DocRejected},
		{Name: "D", Required: false, Status: model.DocPending},
		{Name: "E", Required: false, Status: model.DocNotSubmitted},
	}

	sum := Summarize(docs)
	if sum.Total != 5 || sum.Required != 2 || sum.Submitted != 3 || sum.Approved != 1 || sum.Rejected != 1 {
		t.Errorf("unexpected summary: %+v", sum)
	}
	if len(sum.MissingRequired) != 1 || sum.MissingRequired[0] != "B" {
		t.Errorf("missingRequired = %v, want [B]", sum.MissingRequired)
	}
}

func TestResolve_DefaultBucket(t *testing.T) {
	reqs := fakeRequirements{
		model.DefaultBucket: {{ID: "rq-d", Name: "Photo ID"}},
		"pr-1/st-1":         {{ID: "rq-s", Name: "Contract"}},
	}
	r := NewResolver(reqs, fakeSubmissions{}, nil)

	got, err := r.Resolve(context.Background(), "lead-1", model.DefaultBucket, "st-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 1 || got[0].RequirementID != "rq-d" {
		t.Errorf("expected default bucket only, got %+v", got)
	}

	got, err = r.Resolve(context.Background(), "lead-1", "pr-1", "st-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 1 || got[0].RequirementID != "rq-s" {
		t.Errorf("expected stage bucket, got %+v", got)
	}
}

func TestResolve_SubmissionError(t *testing.T) {
	boom := model.StoreFailure("list submissions", errors.New("connection reset"))
	r := NewResolver(fakeRequirements{}, fakeSubmissions{err: boom}, nil)

	_, err := r.Resolve(context.Background(), "lead-1", "pr-1", "st-1")
	if !errors.Is(err, model.ErrTransientStore) {
		t.Errorf("expected ErrTransientStore, got %v", err)
	}
}

func TestResolveForLead(t *testing.T) {
	reqs := fakeRequirements{
		model.DefaultBucket: {{ID: "rq-d", Name: "Photo ID"}},
		"pr-1/st-2":         {{ID: "rq-s", Name: "Contract"}},
	}
	placements := fakePlacements{"lead-placed": {LeadID: "lead-placed", ProcessID: "pr-1", StageID: "st-2"}}
	r := NewResolver(reqs, fakeSubmissions{}, placements)

	got, err := r.ResolveForLead(context.Background(), "lead-placed")
	if err != nil {
		t.Fatalf("resolve placed: %v", err)
	}
	if len(got) != 1 || got[0].RequirementID != "rq-s" {
		t.Errorf("placed lead resolved to %+v", got)
	}

	got, err = r.ResolveForLead(context.Background(), "lead-loose")
	if err != nil {
		t.Fatalf("resolve unplaced: %v", err)
	}
	if len(got) != 1 || got[0].RequirementID != "rq-d" {
		t.Errorf("unplaced lead resolved to %+v", got)
	}
}

func TestParseCatalog(t *testing.T) {
	data := []byte(`
default:
  - name: Photo ID
    required: true
    file_types: [pdf, jpg]
    max_size_mb: 5
  - description: entry without a name is skipped
processes:
  pr-1:
    st-1:
      - id: rq-contract
        name: Signed Contract
      - name: Bank Statement
`)

	c, err := ParseCatalog(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	defaults, _ := c.ListRequirements(context.Background(), model.DefaultBucket, "")
	if len(defaults) != 1 {
		t.Fatalf("expected 1 default requirement, got %d", len(defaults))
	}
	d := defaults[0]
	if d.Name != "Photo ID" || !d.Required || d.MaxSizeInMB != 5 || len(d.FileTypes) != 2 {
		t.Errorf("unexpected default requirement: %+v", d)
	}
	if d.ProcessID != model.DefaultBucket || d.ID == "" {
		t.Errorf("default requirement not tagged: %+v", d)
	}

	stage, _ := c.ListRequirements(context.Background(), "pr-1", "st-1")
	if len(stage) != 2 {
		t.Fatalf("expected 2 stage requirements, got %d", len(stage))
	}
	if stage[0].ID != "rq-contract" {
		t.Errorf("explicit id = %q, want %q", stage[0].ID, "rq-contract")
	}
	if stage[1].ID != "pr-1/st-1/2" {
		t.Errorf("derived id = %q, want %q", stage[1].ID, "pr-1/st-1/2")
	}

	missing, _ := c.ListRequirements(context.Background(), "pr-9", "st-9")
	if len(missing) != 0 {
		t.Errorf("expected no requirements for unknown bucket, got %d", len(missing))
	}
}

func TestParseCatalog_Invalid(t *testing.T) {
	if _, err := ParseCatalog([]byte("default: [unclosed")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
