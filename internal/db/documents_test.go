package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/baiirun/leadflow/internal/model"
)

func TestRequirements_ByBucket(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	reqs := []model.DocumentRequirement{
		{ID: "rq-1", ProcessID: "pr-1", StageID: "st-1", Name: "ID Proof", Required: true, FileTypes: model.StringSet{"pdf", "jpg"}, MaxSizeInMB: 5},
		{ID: "rq-2", ProcessID: "pr-1", StageID: "st-2", Name: "Contract"},
		{ID: "rq-3", ProcessID: model.DefaultBucket, Name: "Address Proof"},
	}
	for i := range reqs {
		if err := db.InsertRequirement(ctx, &reqs[i]); err != nil {
			t.Fatalf("failed to insert requirement: %v", err)
		}
	}

	got, err := db.ListRequirements(ctx, "pr-1", "st-1")
	if err != nil {
		t.Fatalf("failed to list requirements: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(got))
	}
	if got[0].Name != "ID Proof" || !got[0].Required || got[0].MaxSizeInMB != 5 {
		t.Errorf("unexpected requirement: %+v", got[0])
	}
	if len(got[0].FileTypes) != 2 || got[0].FileTypes[1] != "jpg" {
		t.Errorf("file types = %v", got[0].FileTypes)
	}

	defaults, err := db.ListDefaultRequirements(ctx)
	if err != nil {
		t.Fatalf("failed to list defaults: %v", err)
	}
	if len(defaults) != 1 || defaults[0].ID != "rq-3" {
		t.Errorf("unexpected defaults: %+v", defaults)
	}
}

func TestRequirement_UpdateDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	r := &model.DocumentRequirement{ID: "rq-1", ProcessID: "pr-1", StageID: "st-1", Name: "ID Proof"}
	if err := db.InsertRequirement(ctx, r); err != nil {
		t.Fatalf("insert: %v", err)
	}

	r.Name = "Photo ID"
	r.Required = true
	if err := db.UpdateRequirement(ctx, r); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := db.GetRequirement(ctx, "rq-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Photo ID" || !got.Required {
		t.Errorf("unexpected requirement after update: %+v", got)
	}

	if err := db.DeleteRequirement(ctx, "rq-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := db.DeleteRequirement(ctx, "rq-1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmissions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	docs := []model.SubmittedDocument{
		{ID: "dc-2", LeadID: "lead-1", Name: "ID Proof", Status: model.DocPending, UploadedAt: base.Add(time.Hour)},
		{ID: "dc-1", LeadID: "lead-1", Name: "Passport", Status: model.DocPending, UploadedAt: base},
		{ID: "dc-3", LeadID: "lead-2", Name: "ID Proof", Status: model.DocPending, UploadedAt: base},
	}
	for i := range docs {
		if err := db.InsertSubmission(ctx, &docs[i]); err != nil {
			t.Fatalf("insert submission: %v", err)
		}
	}

	got, err := db.ListSubmissions(ctx, "lead-1")
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(got))
	}
	if got[0].ID != "dc-1" {
		t.Errorf("expected oldest first, got %s", got[0].ID)
	}
	if !got[1].UploadedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("uploadedAt = %v, want %v", got[1].UploadedAt, base.Add(time.Hour))
	}

	if err := db.UpdateSubmissionStatus(ctx, "dc-2", model.DocApproved, "looks good"); err != nil {
		t.Fatalf("review: %v", err)
	}
	reviewed, err := db.GetSubmission(ctx, "dc-2")
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if reviewed.Status != model.DocApproved || reviewed.Notes != "looks good" {
		t.Errorf("unexpected submission after review: %+v", reviewed)
	}

	if err := db.UpdateSubmissionStatus(ctx, "dc-x", model.DocApproved, ""); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
