// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CaseStatus is the lifecycle state of a synthesized case.
type CaseStatus string

const (
	CaseProposed CaseStatus = "proposed"
	CaseApproved CaseStatus = "approved"
	CaseUnknown  CaseStatus = "unknown"
)

// Confidence grades how certain the case builder is about a case.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Case is a synthesized environmental matter built from one or more documents.
type Case struct {
	ID              int64  `json:"id"`
	PrimaryCategory string `json:"primary_category"`
	Headline        string `json:"headline"`

	// SummaryMD is the markdown debrief, one bullet per line.
	SummaryMD        string     `json:"summary_md"`
	Status           CaseStatus `json:"status"`
	Confidence       Confidence `json:"confidence"`
	ConfidenceReason string     `json:"confidence_reason,omitempty"`

	// JSON-encoded extracts: municipality list, entity map, location map.
	MunicipalitiesJSON string `json:"municipalities_json,omitempty"`
	EntitiesJSON       string `json:"entities_json,omitempty"`
	LocationsJSON      string `json:"locations_json,omitempty"`

	FirstSeenAt time.Time `json:"first_seen_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CaseEvent is an append-only timeline entry attached to a case. EventType
// is either "timeline" (a dated narrative point) or "evidence_added".
type CaseEvent struct {
	ID          int64      `json:"id"`
	CaseID      int64      `json:"case_id"`
	EventType   string     `json:"event_type"`
	EventTime   *time.Time `json:"event_time,omitempty"`
	PayloadJSON string     `json:"payload_json,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Evidence ties a case to a specific document with a verbatim quote.
// Snippets are stored exactly as extracted; they are the audit trail.
type Evidence struct {
	ID         int64     `json:"id"`
	CaseID     int64     `json:"case_id"`
	FileID     *int64    `json:"file_id,omitempty"`
	DocumentID *int64    `json:"document_id,omitempty"`
	Page       *int      `json:"page,omitempty"`
	Snippet    string    `json:"snippet"`
	SourceURL  string    `json:"source_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// LLMUsage is one row in the append-only ledger of model calls.
type LLMUsage struct {
	ID               int64     `json:"id"`
	DocumentID       *int64    `json:"document_id,omitempty"`
	Model            string    `json:"model"`
	Stage            string    `json:"stage"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	EstimatedCostEUR float64   `json:"estimated_cost_eur"`
	CreatedAt        time.Time `json:"created_at"`
}

// Verdict is the structured triage response returned by the model.
type Verdict struct {
	// Dominated reports whether the document is dominated by environmentally
	// relevant content rather than merely mentioning it.
	Dominated       bool     `json:"dominated"`
	Categories      []string `json:"categories"`
	RelevanceScore  float64  `json:"relevance_score"`
	SignalReason    string   `json:"signal_reason"`
	NoiseIndicators []string `json:"noise_indicators"`
}

// TimelineItem is one dated event in a case draft.
type TimelineItem struct {
	Date  string `json:"date"`
	Event string `json:"event"`
}

// EvidenceItem is one quoted excerpt in a case draft. Snippet must be an
// exact quote from the source document.
type EvidenceItem struct {
	Page     int    `json:"page"`
	Snippet  string `json:"snippet"`
	KeyPoint string `json:"key_point"`
}

// CaseDraft is the structured case description returned by the model.
// Entities carries applicant, permit_number, location, area_hectares,
// volume_m3, and nearest_protected as loosely typed values.
type CaseDraft struct {
	Headline         string         `json:"headline"`
	Debrief          []string       `json:"debrief"`
	ActionType       string         `json:"action_type"`
	Deadline         string         `json:"deadline"`
	Status           string         `json:"status"`
	Timeline         []TimelineItem `json:"timeline"`
	Evidence         []EvidenceItem `json:"evidence"`
	Entities         map[string]any `json:"entities"`
	Confidence       string         `json:"confidence"`
	ConfidenceReason string         `json:"confidence_reason"`
}

// EntityString returns the named entity as a string, or "" when absent or
// not string-valued.
func (d CaseDraft) EntityString(key string) string {
	if d.Entities == nil {
		return ""
	}
	if v, ok := d.Entities[key].(string); ok {
		return v
	}
	return ""
}
