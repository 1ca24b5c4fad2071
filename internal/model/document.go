package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultBucket is the process id that tags requirements applying to leads
// outside any specific process/stage.
const DefaultBucket = "default"

// DocumentStatus is the review state of a submitted document.
type DocumentStatus string

const (
	DocNotSubmitted DocumentStatus = "not_submitted"
	DocPending      DocumentStatus = "pending"
	DocApproved     DocumentStatus = "approved"
	DocRejected     DocumentStatus = "rejected"
)

func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocNotSubmitted, DocPending, DocApproved, DocRejected:
		return true
	}
	return false
}

// StringSet is persisted as a JSON array.
type StringSet []string

// Value implements driver.Valuer.
func (s StringSet) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *StringSet) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringSet", src)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to unmarshal string set: %w", err)
	}
	*s = out
	return nil
}

// DocumentRequirement declares an artifact a lead must supply while in a
// (process, stage) pair. ProcessID may be the default bucket sentinel.
type DocumentRequirement struct {
	ID          string    `db:"id" json:"id"`
	ProcessID   string    `db:"process_id" json:"processId" yaml:"-"`
	StageID     string    `db:"stage_id" json:"stageId" yaml:"-"`
	Name        string    `db:"name" json:"name" yaml:"name"`
	Description string    `db:"description" json:"description" yaml:"description"`
	Required    bool      `db:"required" json:"required" yaml:"required"`
	FileTypes   StringSet `db:"file_types" json:"fileTypes" yaml:"file_types"`
	MaxSizeInMB int       `db:"max_size_mb" json:"maxSizeInMB" yaml:"max_size_mb"`
}

// SubmittedDocument is a file a lead uploaded against a requirement name.
type SubmittedDocument struct {
	ID         string         `db:"id" json:"id"`
	LeadID     string         `db:"lead_id" json:"leadId"`
	Name       string         `db:"name" json:"name"`
	Status     DocumentStatus `db:"status" json:"status"`
	UploadedAt time.Time      `db:"uploaded_at" json:"uploadedAt"`
	FileURL    string         `db:"file_url" json:"fileUrl"`
	FileType   string         `db:"file_type" json:"fileType"`
	Notes      string         `db:"notes" json:"notes"`
}

// ResolvedDocument is a requirement merged with its matching submission, if any.
type ResolvedDocument struct {
	RequirementID string         `json:"requirementId"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Required      bool           `json:"required"`
	FileTypes     []string       `json:"fileTypes"`
	MaxSizeInMB   int            `json:"maxSizeInMB"`
	Status        DocumentStatus `json:"status"`
	DocumentID    string         `json:"documentId,omitempty"`
	UploadedAt    *time.Time     `json:"uploadedAt,omitempty"`
	FileURL       string         `json:"fileUrl,omitempty"`
	FileType      string         `json:"fileType,omitempty"`
	Notes         string         `json:"notes,omitempty"`
}

// DocumentSummary aggregates a resolved document list.
type DocumentSummary struct {
	Total           int      `json:"total"`
	Required        int      `json:"required"`
	Submitted       int      `json:"submitted"`
	Approved        int      `json:"approved"`
	Rejected        int      `json:"rejected"`
	MissingRequired []string `json:"missingRequired"`
}
