// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover runs the platform connectors for every enabled source
// concurrently and persists newly found documents.
package discover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kaamos-labs/watchdog/internal/connector"
	"github.com/kaamos-labs/watchdog/internal/store"
	"github.com/kaamos-labs/watchdog/pkg/types"
)

// Summary holds the outcome of one discovery run.
type Summary struct {
	Sources      int
	NewDocuments int
	Failed       int
	Skipped      int
}

// Orchestrator fans discovery out across all enabled sources and writes
// results back through the store.
type Orchestrator struct {
	store   *store.Store
	fetcher connector.Fetcher
	out     io.Writer
	log     *zap.Logger
}

// NewOrchestrator wires an orchestrator. Progress lines go to out; stage
// events to log.
func NewOrchestrator(s *store.Store, f connector.Fetcher, out io.Writer, log *zap.Logger) *Orchestrator {
	return &Orchestrator{store: s, fetcher: f, out: out, log: log.Named("discover")}
}

// Run discovers documents for every enabled source, one goroutine per
// source, then persists results sequentially in source order. A source with
// an unsupported platform is skipped without touching its health; any other
// failure bumps its failure counter. Per-source failures never abort the
// run.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	sources, err := o.store.ListEnabledSources(ctx)
	if err != nil {
		return nil, err
	}
	summary := &Summary{Sources: len(sources)}
	if len(sources) == 0 {
		fmt.Fprintln(o.out, "No enabled sources.")
		return summary, nil
	}

	o.log.Info("discovery started", zap.Int("sources", len(sources)))

	type result struct {
		idx    int
		source types.Source
		refs   []types.DocumentRef
		err    error
	}

	ch := make(chan result, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(idx int, src types.Source) {
			defer wg.Done()
			conn, err := connector.New(src, o.fetcher)
			if err != nil {
				ch <- result{idx: idx, source: src, err: err}
				return
			}
			refs, err := conn.Discover(ctx)
			ch <- result{idx: idx, source: src, refs: refs, err: err}
		}(i, src)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()

	// Drain the channel before any DB write so all writes stay on this
	// goroutine, then restore listing order for stable output.
	results := make([]result, 0, len(sources))
	for r := range ch {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].idx < results[j].idx })

	for _, r := range results {
		switch {
		case errors.Is(r.err, connector.ErrUnsupportedPlatform):
			summary.Skipped++
			fmt.Fprintf(o.out, "skipped: %s (unsupported platform %q)\n", r.source.Municipality, r.source.Platform)

		case r.err != nil:
			summary.Failed++
			fmt.Fprintf(o.out, "failed:  %s (%v)\n", r.source.Municipality, r.err)
			if err := o.store.MarkSourceFailure(ctx, r.source.ID, r.err.Error()); err != nil {
				return summary, err
			}

		default:
			added, err := o.store.InsertDiscovered(ctx, r.source.ID, r.refs)
			if err != nil {
				return summary, err
			}
			if err := o.store.MarkSourceSuccess(ctx, r.source.ID); err != nil {
				return summary, err
			}
			summary.NewDocuments += added
			fmt.Fprintf(o.out, "ok:      %s (%d found, %d new)\n", r.source.Municipality, len(r.refs), added)
		}
	}

	fmt.Fprintf(o.out, "\nDiscovery summary: %d sources, %d new documents, %d failed, %d skipped\n",
		summary.Sources, summary.NewDocuments, summary.Failed, summary.Skipped)
	o.log.Info("discovery complete",
		zap.Int("new_documents", summary.NewDocuments),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}
