package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/baiirun/leadflow/internal/model"
)

const requirementColumns = `id, process_id, stage_id, name, description, required, file_types, max_size_mb`

const submissionColumns = `id, lead_id, name, status, uploaded_at, file_url, file_type, notes`

// ListRequirements returns the requirements declared for a (process, stage) pair.
func (db *DB) ListRequirements(ctx context.Context, processID, stageID string) ([]model.DocumentRequirement, error) {
	var reqs []model.DocumentRequirement
	err := db.selectAll(ctx, &reqs,
		`SELECT `+requirementColumns+` FROM document_requirements
		WHERE process_id = ? AND stage_id = ? ORDER BY name ASC`,
		processID, stageID)
	if err != nil {
		return nil, model.StoreFailure("list requirements", err)
	}
	return reqs, nil
}

// ListDefaultRequirements returns every requirement in the default bucket.
func (db *DB) ListDefaultRequirements(ctx context.Context) ([]model.DocumentRequirement, error) {
	var reqs []model.DocumentRequirement
	err := db.selectAll(ctx, &reqs,
		`SELECT `+requirementColumns+` FROM document_requirements
		WHERE process_id = ? ORDER BY name ASC`,
		model.DefaultBucket)
	if err != nil {
		return nil, model.StoreFailure("list requirements", err)
	}
	return reqs, nil
}

// GetRequirement retrieves a requirement by ID.
func (db *DB) GetRequirement(ctx context.Context, id string) (*model.DocumentRequirement, error) {
	var r model.DocumentRequirement
	err := db.get(ctx, &r, `SELECT `+requirementColumns+` FROM document_requirements WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("requirement", id)
	}
	if err != nil {
		return nil, model.StoreFailure("get requirement", err)
	}
	return &r, nil
}

// InsertRequirement stores a new requirement.
func (db *DB) InsertRequirement(ctx context.Context, r *model.DocumentRequirement) error {
	_, err := db.exec(ctx, `
		INSERT INTO document_requirements (id, process_id, stage_id, name, description, required, file_types, max_size_mb)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ProcessID, r.StageID, r.Name, r.Description, r.Required, r.FileTypes, r.MaxSizeInMB)
	if err != nil {
		return model.StoreFailure("create requirement", err)
	}
	return nil
}

// UpdateRequirement rewrites a requirement's declared fields.
func (db *DB) UpdateRequirement(ctx context.Context, r *model.DocumentRequirement) error {
	rows, err := db.exec(ctx, `
		UPDATE document_requirements
		SET name = ?, description = ?, required = ?, file_types = ?, max_size_mb = ?
		WHERE id = ?`,
		r.Name, r.Description, r.Required, r.FileTypes, r.MaxSizeInMB, r.ID)
	if err != nil {
		return model.StoreFailure("update requirement", err)
	}
	if rows == 0 {
		return model.NotFound("requirement", r.ID)
	}
	return nil
}

// DeleteRequirement removes a requirement. Submissions are left untouched.
func (db *DB) DeleteRequirement(ctx context.Context, id string) error {
	rows, err := db.exec(ctx, `DELETE FROM document_requirements WHERE id = ?`, id)
	if err != nil {
		return model.StoreFailure("delete requirement", err)
	}
	if rows == 0 {
		return model.NotFound("requirement", id)
	}
	return nil
}

// ListSubmissions returns every document a lead uploaded, oldest first.
func (db *DB) ListSubmissions(ctx context.Context, leadID string) ([]model.SubmittedDocument, error) {
	var docs []model.SubmittedDocument
	err := db.selectAll(ctx, &docs,
		`SELECT `+submissionColumns+` FROM submitted_documents WHERE lead_id = ? ORDER BY uploaded_at ASC`,
		leadID)
	if err != nil {
		return nil, model.StoreFailure("list submissions", err)
	}
	return docs, nil
}

// GetSubmission retrieves a submitted document by ID.
func (db *DB) GetSubmission(ctx context.Context, id string) (*model.SubmittedDocument, error) {
	var d model.SubmittedDocument
	err := db.get(ctx, &d, `SELECT `+submissionColumns+` FROM submitted_documents WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("document", id)
	}
	if err != nil {
		return nil, model.StoreFailure("get document", err)
	}
	return &d, nil
}

// InsertSubmission stores an uploaded document.
func (db *DB) InsertSubmission(ctx context.Context, d *model.SubmittedDocument) error {
	_, err := db.exec(ctx, `
		INSERT INTO submitted_documents (id, lead_id, name, status, uploaded_at, file_url, file_type, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.LeadID, d.Name, d.Status, d.UploadedAt, d.FileURL, d.FileType, d.Notes)
	if err != nil {
		return model.StoreFailure("submit document", err)
	}
	return nil
}

// UpdateSubmissionStatus records a review decision.
func (db *DB) UpdateSubmissionStatus(ctx context.Context, id string, status model.DocumentStatus, notes string) error {
	rows, err := db.exec(ctx,
		`UPDATE submitted_documents SET status = ?, notes = ? WHERE id = ?`, status, notes, id)
	if err != nil {
		return model.StoreFailure("review document", err)
	}
	if rows == 0 {
		return model.NotFound("document", id)
	}
	return nil
}
