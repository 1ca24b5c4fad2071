package model

import "time"

// DefaultProcessName is the pipeline created on first boot.
const DefaultProcessName = "Lead Process"

// DefaultStage describes one stage of the bootstrap pipeline.
type DefaultStage struct {
	Name  string
	Color string
}

// DefaultStages are created in this order under DefaultProcessName.
var DefaultStages = []DefaultStage{
	{Name: "Lead Received", Color: "#3B82F6"},
	{Name: "Lead Follow Up", Color: "#F59E0B"},
	{Name: "Lead Converted", Color: "#10B981"},
	{Name: "Lead Dropped", Color: "#EF4444"},
}

// Process is an ordered pipeline a lead moves through.
type Process struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	Order       int       `db:"position" json:"order"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Stage is one ordered step owned by a Process. Order is unique per process.
type Stage struct {
	ID          string    `db:"id" json:"id"`
	ProcessID   string    `db:"process_id" json:"processId"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Color       string    `db:"color" json:"color"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	Order       int       `db:"position" json:"order"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// LeadPlacement records the process and stage a lead currently sits in.
type LeadPlacement struct {
	LeadID    string    `db:"lead_id" json:"leadId"`
	ProcessID string    `db:"process_id" json:"processId"`
	StageID   string    `db:"stage_id" json:"stageId"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
