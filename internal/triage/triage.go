// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package triage scores fetched documents for environmental relevance with
// a small model pass and records the verdicts.
package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/kaamos-labs/watchdog/internal/llm"
	"github.com/kaamos-labs/watchdog/internal/store"
	"github.com/kaamos-labs/watchdog/pkg/types"
)

const (
	// signalThreshold marks a document as case material when the model also
	// reports it dominated by environmental content.
	signalThreshold = 0.6

	// maybeThreshold separates borderline documents from noise in the batch
	// report.
	maybeThreshold = 0.4

	// verdictMaxTokens caps the model response; verdicts are small.
	verdictMaxTokens = 500
)

// Result holds the outcome of one triage batch.
type Result struct {
	Signals int
	Maybe   int
	Noise   int
	Failed  int
}

// Total returns the number of documents triaged.
func (r Result) Total() int { return r.Signals + r.Maybe + r.Noise + r.Failed }

// Triager classifies fetched documents that have extracted text.
type Triager struct {
	store   *store.Store
	backend llm.Backend
	cfg     types.LLMConfig
	out     io.Writer
	log     *zap.Logger
}

// NewTriager wires a triager using the given model backend.
func NewTriager(s *store.Store, backend llm.Backend, cfg types.LLMConfig, out io.Writer, log *zap.Logger) *Triager {
	return &Triager{store: s, backend: backend, cfg: cfg, out: out, log: log.Named("triage")}
}

// Run scores every fetched document with text. A model or parse failure
// marks the document errored and the batch continues; documents without
// extracted text are left fetched for a later pass.
func (t *Triager) Run(ctx context.Context) (*Result, error) {
	docs, err := t.store.ListDocumentsByStatus(ctx, types.DocumentFetched)
	if err != nil {
		return nil, err
	}

	munis, err := t.municipalities(ctx)
	if err != nil {
		return nil, err
	}

	type item struct {
		doc  types.Document
		text string
	}
	var items []item
	for _, doc := range docs {
		text, err := t.store.DocumentText(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		if text == "" {
			continue
		}
		items = append(items, item{doc: doc, text: text})
	}

	result := &Result{}
	if len(items) == 0 {
		fmt.Fprintln(t.out, "No documents ready for triage.")
		return result, nil
	}

	fmt.Fprintf(t.out, "Triaging %d documents...\n", len(items))
	t.log.Info("triage started", zap.Int("documents", len(items)))

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		verdict, err := t.triageOne(ctx, it.doc, munis[it.doc.SourceID], it.text)
		if err != nil {
			result.Failed++
			fmt.Fprintf(t.out, "failed:  %s (%v)\n", shortTitle(it.doc.Title), err)
			if err := t.store.SetDocumentStatus(ctx, it.doc.ID, types.DocumentError); err != nil {
				return result, err
			}
			continue
		}
		if err := t.store.SetTriageResult(ctx, it.doc.ID, *verdict, types.DocumentProcessed); err != nil {
			return result, err
		}

		switch {
		case verdict.Dominated && verdict.RelevanceScore >= signalThreshold:
			result.Signals++
			fmt.Fprintf(t.out, "signal:  %s (%.2f)\n", shortTitle(it.doc.Title), verdict.RelevanceScore)
		case verdict.RelevanceScore >= maybeThreshold:
			result.Maybe++
			fmt.Fprintf(t.out, "maybe:   %s (%.2f, %s)\n",
				shortTitle(it.doc.Title), verdict.RelevanceScore, shortText(verdict.SignalReason, 60))
		default:
			result.Noise++
			fmt.Fprintf(t.out, "noise:   %s (%.2f)\n", shortTitle(it.doc.Title), verdict.RelevanceScore)
		}
	}

	fmt.Fprintf(t.out, "\nTriage summary: %d signals, %d maybe, %d noise, %d failed (total: %d)\n",
		result.Signals, result.Maybe, result.Noise, result.Failed, result.Total())
	t.log.Info("triage complete",
		zap.Int("signals", result.Signals),
		zap.Int("maybe", result.Maybe),
		zap.Int("noise", result.Noise),
		zap.Int("failed", result.Failed))
	return result, nil
}

// triageOne sends one document through the model. Usage is ledgered as soon
// as the response arrives, before verdict parsing, so spend tracking
// survives malformed output.
func (t *Triager) triageOne(ctx context.Context, doc types.Document, municipality, text string) (*types.Verdict, error) {
	clean, flagged := llm.SanitizeUntrusted(text)
	if len(flagged) > 0 {
		t.log.Warn("injection phrases in document text",
			zap.Int64("document_id", doc.ID),
			zap.Strings("phrases", flagged))
	}
	clean = llm.Truncate(clean, t.cfg.TriageMaxTokens*3)

	resp, err := t.backend.Complete(ctx, llm.CompletionRequest{
		Model:     t.cfg.TriageModel,
		System:    systemPrompt,
		User:      userMessage(doc, municipality, flagged, clean),
		MaxTokens: verdictMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	docID := doc.ID
	usage := types.LLMUsage{
		DocumentID:       &docID,
		Model:            t.cfg.TriageModel,
		Stage:            "triage",
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		EstimatedCostEUR: llm.EstimateCost(t.cfg.TriageModel, resp.PromptTokens, resp.CompletionTokens),
	}
	if err := t.store.RecordUsage(ctx, usage); err != nil {
		return nil, err
	}

	var verdict types.Verdict
	if err := json.Unmarshal([]byte(resp.Content), &verdict); err != nil {
		return nil, fmt.Errorf("parsing verdict: %w", err)
	}
	return &verdict, nil
}

// userMessage assembles the metadata header and the wrapped document text.
func userMessage(doc types.Document, municipality string, flagged []string, clean string) string {
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
	if len(flagged) > 0 {
		fmt.Fprintf(&b, "Injection-flags: %s\n", strings.Join(flagged, "; "))
	}
	b.WriteString("---\n")
	b.WriteString(llm.WrapUntrusted(clean))
	return b.String()
}

func (t *Triager) municipalities(ctx context.Context) (map[int64]string, error) {
	sources, err := t.store.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	munis := make(map[int64]string, len(sources))
	for _, src := range sources {
		munis[src.ID] = src.Municipality
	}
	return munis, nil
}

func shortTitle(title string) string { return shortText(title, 50) }

func shortText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
