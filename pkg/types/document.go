// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DocumentStatus tracks a document through the pipeline.
type DocumentStatus string

const (
	DocumentNew       DocumentStatus = "new"
	DocumentFetched   DocumentStatus = "fetched"
	DocumentProcessed DocumentStatus = "processed"
	DocumentError     DocumentStatus = "error"
)

// TextStatus tracks text extraction for a single file.
type TextStatus string

const (
	TextPending   TextStatus = "pending"
	TextExtracted TextStatus = "extracted"
	TextOCRQueued TextStatus = "ocr_queued"
	TextOCRDone   TextStatus = "ocr_done"
	TextFailed    TextStatus = "failed"
)

// DocType is the normalized document category a connector assigns.
type DocType string

const (
	DocMinutes      DocType = "minutes"
	DocAgenda       DocType = "agenda"
	DocDecision     DocType = "decision"
	DocAnnouncement DocType = "announcement"
	DocZoning       DocType = "zoning"
)

// PathConfig is the typed per-source configuration stored in
// sources.config_json. Paths maps a recognized document-type key
// (meetings, agendas, officer_decisions, announcements, zoning) to the
// listing path for that type. Unknown keys are dropped at parse time.
type PathConfig struct {
	// Municipality overrides the source municipality name in discovered refs.
	Municipality string `json:"municipality,omitempty" yaml:"municipality,omitempty"`

	// Paths maps document-type keys to listing paths relative to the base URL.
	Paths map[string]string `json:"paths,omitempty" yaml:"paths,omitempty"`

	// PDFPattern is an optional regex override for recognizing file links
	// (municipal website platform only; default matches ".pdf").
	PDFPattern string `json:"pdf_pattern,omitempty" yaml:"pdf_pattern,omitempty"`
}

// PathKeys enumerates the recognized document-type path keys in the order
// connectors visit them.
var PathKeys = []string{"meetings", "agendas", "officer_decisions", "announcements", "zoning"}

// Source is a configured origin: one municipality on one publishing platform.
type Source struct {
	ID           int64      `json:"id" yaml:"id"`
	Municipality string     `json:"municipality" yaml:"municipality"`
	Platform     string     `json:"platform" yaml:"platform"`
	BaseURL      string     `json:"base_url" yaml:"base_url"`
	Enabled      bool       `json:"enabled" yaml:"enabled"`
	Config       PathConfig `json:"config,omitempty" yaml:"config,omitempty"`

	// Health counters maintained by discovery.
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty" yaml:"last_success_at,omitempty"`
	LastError           string     `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures" yaml:"consecutive_failures"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// DocumentRef is a transient discovery result before persistence.
type DocumentRef struct {
	Municipality string
	Platform     string

	// Body is the governing committee or board name (e.g. "Ympäristölautakunta").
	Body string

	MeetingDate *time.Time
	PublishedAt *time.Time
	DocType     DocType
	Title       string
	SourceURL   string
	FileURLs    []string

	// ExternalID is the stable identifier; leave empty to derive it from the
	// source URL via StableID.
	ExternalID string
}

// StableID returns the ref's external identifier, deriving it from the
// source URL when none was set. The derivation is deterministic so
// re-discovery of an unchanged listing is idempotent.
func (r DocumentRef) StableID() string {
	if r.ExternalID != "" {
		return r.ExternalID
	}
	sum := sha256.Sum256([]byte(r.SourceURL))
	return hex.EncodeToString(sum[:])[:16]
}

// Document is the persisted form of a DocumentRef plus processing state.
// (source_id, external_id) is unique.
type Document struct {
	ID          int64          `json:"id"`
	SourceID    int64          `json:"source_id"`
	ExternalID  string         `json:"external_id"`
	DocType     DocType        `json:"doc_type"`
	Title       string         `json:"title"`
	Body        string         `json:"body,omitempty"`
	MeetingDate *time.Time     `json:"meeting_date,omitempty"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	SourceURL   string         `json:"source_url"`
	Status      DocumentStatus `json:"status"`
	ContentHash string         `json:"content_hash,omitempty"`

	// Triage outputs, set once the document has been scored.
	TriageScore      *float64 `json:"triage_score,omitempty"`
	TriageCategories []string `json:"triage_categories,omitempty"`
	TriageReason     string   `json:"triage_reason,omitempty"`

	DiscoveredAt time.Time `json:"discovered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// File is one downloadable artifact belonging to a document.
type File struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"document_id"`
	URL        string `json:"url"`
	FileType   string `json:"file_type"`
	MIME       string `json:"mime,omitempty"`
	Bytes      int64  `json:"bytes,omitempty"`

	// StoragePath is relative to the configured storage root; set only after
	// a successful, content-validated download.
	StoragePath string     `json:"storage_path,omitempty"`
	TextStatus  TextStatus `json:"text_status"`
	TextContent string     `json:"text_content,omitempty"`
	FetchedAt   *time.Time `json:"fetched_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
