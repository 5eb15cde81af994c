// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package casebuild turns high-scoring documents into actionable cases,
// merging follow-up documents into existing cases by permit number.
package casebuild

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kaamos-labs/watchdog/internal/llm"
	"github.com/kaamos-labs/watchdog/internal/store"
	"github.com/kaamos-labs/watchdog/pkg/types"
)

const (
	// minScore keeps the expensive model off documents that triage did not
	// rank as clear signals.
	minScore = 0.6

	// draftMaxTokens caps the model response; drafts carry evidence quotes
	// and need room.
	draftMaxTokens = 1500
)

// Result holds the outcome of one case building batch.
type Result struct {
	Created int
	Merged  int
	Failed  int
}

// Total returns the number of documents processed.
func (r Result) Total() int { return r.Created + r.Merged + r.Failed }

// Builder constructs cases from triaged documents.
type Builder struct {
	store   *store.Store
	backend llm.Backend
	cfg     types.LLMConfig
	out     io.Writer
	log     *zap.Logger
}

// NewBuilder wires a case builder using the given model backend.
func NewBuilder(s *store.Store, backend llm.Backend, cfg types.LLMConfig, out io.Writer, log *zap.Logger) *Builder {
	return &Builder{store: s, backend: backend, cfg: cfg, out: out, log: log.Named("casebuild")}
}

// Run builds a case for every signal document not yet cited as evidence.
// Failures leave the document untouched, so the next run retries it.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	docs, err := b.store.ListCaseCandidates(ctx, minScore)
	if err != nil {
		return nil, err
	}

	munis, err := b.municipalities(ctx)
	if err != nil {
		return nil, err
	}

	type item struct {
		doc        types.Document
		text       string
		categories []string
	}
	var items []item
	for _, doc := range docs {
		text, err := b.store.DocumentText(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		if text == "" {
			continue
		}
		categories := doc.TriageCategories
		if len(categories) == 0 {
			categories = []string{"unknown"}
		}
		items = append(items, item{doc: doc, text: text, categories: categories})
	}

	result := &Result{}
	if len(items) == 0 {
		fmt.Fprintln(b.out, "No documents ready for case building.")
		return result, nil
	}

	fmt.Fprintf(b.out, "Building cases from %d documents...\n", len(items))
	b.log.Info("case building started", zap.Int("documents", len(items)))

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		created, headline, err := b.buildOne(ctx, it.doc, munis[it.doc.SourceID], it.text, it.categories)
		if err != nil {
			result.Failed++
			fmt.Fprintf(b.out, "failed:  %s (%v)\n", shortText(it.doc.Title, 50), err)
			continue
		}
		if created {
			result.Created++
			fmt.Fprintf(b.out, "created: %s\n", shortText(headline, 50))
		} else {
			result.Merged++
			fmt.Fprintf(b.out, "merged:  %s\n", shortText(headline, 50))
		}
	}

	fmt.Fprintf(b.out, "\nCase building summary: %d created, %d merged, %d failed (total: %d)\n",
		result.Created, result.Merged, result.Failed, result.Total())
	b.log.Info("case building complete",
		zap.Int("created", result.Created),
		zap.Int("merged", result.Merged),
		zap.Int("failed", result.Failed))
	return result, nil
}

// buildOne drafts a case for one document and either merges it into an
// existing case matched by permit number or creates a new one. Returns
// whether a case was created and the headline of the case touched.
func (b *Builder) buildOne(ctx context.Context, doc types.Document, municipality, text string, categories []string) (bool, string, error) {
	clean, flagged := llm.SanitizeUntrusted(text)
	if len(flagged) > 0 {
		b.log.Warn("injection phrases in document text",
			zap.Int64("document_id", doc.ID),
			zap.Strings("phrases", flagged))
	}
	clean = llm.Truncate(clean, b.cfg.CaseMaxTokens*3)

	resp, err := b.backend.Complete(ctx, llm.CompletionRequest{
		Model:     b.cfg.CaseModel,
		System:    systemPrompt,
		User:      userMessage(doc, municipality, categories, flagged, clean),
		MaxTokens: draftMaxTokens,
	})
	if err != nil {
		return false, "", err
	}

	docID := doc.ID
	usage := types.LLMUsage{
		DocumentID:       &docID,
		Model:            b.cfg.CaseModel,
		Stage:            "case_builder",
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		EstimatedCostEUR: llm.EstimateCost(b.cfg.CaseModel, resp.PromptTokens, resp.CompletionTokens),
	}
	if err := b.store.RecordUsage(ctx, usage); err != nil {
		return false, "", err
	}

	var draft types.CaseDraft
	if err := json.Unmarshal([]byte(resp.Content), &draft); err != nil {
		return false, "", fmt.Errorf("parsing case draft: %w", err)
	}

	if permit := draft.EntityString("permit_number"); permit != "" {
		existing, err := b.store.FindCaseByEntity(ctx, permit)
		if err != nil {
			return false, "", err
		}
		if existing != nil {
			if err := b.merge(ctx, existing.ID, doc, draft); err != nil {
				return false, "", err
			}
			return false, existing.Headline, nil
		}
	}

	headline, err := b.create(ctx, doc, municipality, categories, draft)
	if err != nil {
		return false, "", err
	}
	return true, headline, nil
}

// merge attaches the draft's evidence to an existing case and records the
// update on its event log.
func (b *Builder) merge(ctx context.Context, caseID int64, doc types.Document, draft types.CaseDraft) error {
	docID := doc.ID
	for _, item := range draft.Evidence {
		ev := types.Evidence{
			CaseID:     caseID,
			DocumentID: &docID,
			Page:       pagePtr(item.Page),
			Snippet:    item.Snippet,
			SourceURL:  doc.SourceURL,
		}
		if err := b.store.AppendEvidence(ctx, ev); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(map[string]any{"document_id": doc.ID})
	if err != nil {
		return fmt.Errorf("marshaling event payload: %w", err)
	}
	now := time.Now().UTC()
	event := types.CaseEvent{
		CaseID:      caseID,
		EventType:   "evidence_added",
		EventTime:   &now,
		PayloadJSON: string(payload),
	}
	if err := b.store.AppendCaseEvent(ctx, event); err != nil {
		return err
	}
	return b.store.TouchCase(ctx, caseID)
}

// create persists a new case with its evidence and timeline.
func (b *Builder) create(ctx context.Context, doc types.Document, municipality string, categories []string, draft types.CaseDraft) (string, error) {
	status := types.CaseStatus(draft.Status)
	switch status {
	case types.CaseProposed, types.CaseApproved, types.CaseUnknown:
	default:
		status = types.CaseUnknown
	}
	confidence := types.Confidence(draft.Confidence)
	switch confidence {
	case types.ConfidenceHigh, types.ConfidenceMedium, types.ConfidenceLow:
	default:
		confidence = types.ConfidenceMedium
	}

	headline := draft.Headline
	if headline == "" {
		headline = doc.Title
	}
	if runes := []rune(headline); len(runes) > 300 {
		headline = string(runes[:300])
	}

	bullets := make([]string, 0, len(draft.Debrief))
	for _, point := range draft.Debrief {
		bullets = append(bullets, "- "+point)
	}

	entities := draft.Entities
	if entities == nil {
		entities = map[string]any{}
	}
	entitiesJSON, err := json.Marshal(entities)
	if err != nil {
		return "", fmt.Errorf("marshaling entities: %w", err)
	}
	munisJSON, err := json.Marshal([]string{municipality})
	if err != nil {
		return "", fmt.Errorf("marshaling municipalities: %w", err)
	}
	locsJSON, err := json.Marshal(map[string]string{"location": draft.EntityString("location")})
	if err != nil {
		return "", fmt.Errorf("marshaling locations: %w", err)
	}

	caseID, err := b.store.InsertCase(ctx, types.Case{
		PrimaryCategory:    categories[0],
		Headline:           headline,
		SummaryMD:          strings.Join(bullets, "\n"),
		Status:             status,
		Confidence:         confidence,
		ConfidenceReason:   draft.ConfidenceReason,
		MunicipalitiesJSON: string(munisJSON),
		EntitiesJSON:       string(entitiesJSON),
		LocationsJSON:      string(locsJSON),
	})
	if err != nil {
		return "", err
	}

	docID := doc.ID
	for _, item := range draft.Evidence {
		ev := types.Evidence{
			CaseID:     caseID,
			DocumentID: &docID,
			Page:       pagePtr(item.Page),
			Snippet:    item.Snippet,
			SourceURL:  doc.SourceURL,
		}
		if err := b.store.AppendEvidence(ctx, ev); err != nil {
			return "", err
		}
	}

	for _, item := range draft.Timeline {
		payload, err := json.Marshal(map[string]string{"description": item.Event})
		if err != nil {
			return "", fmt.Errorf("marshaling timeline payload: %w", err)
		}
		event := types.CaseEvent{
			CaseID:      caseID,
			EventType:   "timeline",
			EventTime:   parseEventDate(item.Date),
			PayloadJSON: string(payload),
		}
		if err := b.store.AppendCaseEvent(ctx, event); err != nil {
			return "", err
		}
	}

	return headline, nil
}

// userMessage assembles the metadata header, triage categories, and the
// wrapped document text.
func userMessage(doc types.Document, municipality string, categories, flagged []string, clean string) string {
	body := doc.Body
	if body == "" {
		body = "Unknown"
	}
	if municipality == "" {
		municipality = "Unknown"
	}
	date := "unknown"
	if doc.MeetingDate != nil {
		date = doc.MeetingDate.Format("2006-01-02")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Municipality: %s\n", municipality)
	fmt.Fprintf(&b, "Body: %s\n", body)
	fmt.Fprintf(&b, "Title: %s\n", doc.Title)
	fmt.Fprintf(&b, "Date: %s\n", date)
	fmt.Fprintf(&b, "Categories: %s\n", strings.Join(categories, ", "))
	if len(flagged) > 0 {
		fmt.Fprintf(&b, "Injection-flags: %s\n", strings.Join(flagged, "; "))
	}
	b.WriteString("---\n")
	b.WriteString(llm.WrapUntrusted(clean))
	return b.String()
}

func (b *Builder) municipalities(ctx context.Context) (map[int64]string, error) {
	sources, err := b.store.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	munis := make(map[int64]string, len(sources))
	for _, src := range sources {
		munis[src.ID] = src.Municipality
	}
	return munis, nil
}

// parseEventDate reads an ISO date, returning nil for anything else.
func parseEventDate(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func pagePtr(page int) *int {
	if page <= 0 {
		return nil
	}
	return &page
}

func shortText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
