package models

import (
	"time"
)

// ExecutionMode classifies whether a job-creation request carries a signing
// capability. Selected once per request, never revisited mid-workflow.
type ExecutionMode string

const (
	ModeLive      ExecutionMode = "live"
	ModeSimulated ExecutionMode = "simulated"
)

// PlanRequest is the caller-supplied DCA plan. Numeric fields that carry
// asset amounts travel as decimal strings to avoid float precision loss.
type PlanRequest struct {
	PlanID          string `json:"planId"`
	UserAddress     string `json:"userAddress"`
	FromToken       string `json:"fromToken"`
	ToToken         string `json:"toToken"`
	Amount          string `json:"amount"`
	IntervalMinutes int    `json:"intervalMinutes"`
	DurationWeeks   int    `json:"durationWeeks"`
	Slippage        string `json:"slippage"`
	CreatedAt       string `json:"createdAt"`
}

// ContentRef is a content-addressed reference to a published document.
// Simulated refs are synthesized locally and do not resolve.
type ContentRef struct {
	CID string `json:"cid"`
	URL string `json:"url"`
}

// Metadata describes a generated DCA script so it can be audited without
// re-parsing the script body.
type Metadata struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	PlanID          string `json:"planId"`
	Author          string `json:"author"`
	FromToken       string `json:"fromToken"`
	ToToken         string `json:"toToken"`
	Amount          string `json:"amount"`
	IntervalMinutes int    `json:"intervalMinutes"`
	DurationWeeks   int    `json:"durationWeeks"`
	Slippage        string `json:"slippage"`
	CreatedAt       string `json:"createdAt"`
	Version         string `json:"version"`
}

// Artifact is the generated pair of documents published per plan.
// MetadataJSON is the canonical encoding of Metadata; byte-identical inputs
// must yield byte-identical artifacts.
type Artifact struct {
	Script       string
	Metadata     Metadata
	MetadataJSON []byte
}

// Automation is the persisted record of a completed job-creation run.
type Automation struct {
	ID           string        `json:"id"`
	PlanID       string        `json:"plan_id"`
	JobID        string        `json:"job_id"`
	Mode         ExecutionMode `json:"mode"`
	OwnerAddress string        `json:"owner_address"`
	ScriptCID    string        `json:"script_cid"`
	ScriptURL    string        `json:"script_url"`
	MetadataCID  string        `json:"metadata_cid"`
	MetadataURL  string        `json:"metadata_url"`
	Executions   int           `json:"executions"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// AuditLog is a simple audit event row keyed by plan.
type AuditLog struct {
	PlanID   string    `json:"plan_id"`
	Event    string    `json:"event"`
	Detail   string    `json:"detail"`
	Recorded time.Time `json:"recorded_at"`
}
