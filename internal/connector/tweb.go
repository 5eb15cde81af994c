// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"net/url"
	"strings"

	"github.com/kaamos-labs/watchdog/pkg/types"
)

// twebLinkPatterns mark anchors inside listing tables worth following.
var twebLinkPatterns = []string{"fileshow", "docid", "kokous", "meeting", "htmtxt"}

// twebDefaultPaths are conventional TWeb/KTweb listing locations, tried in
// order when the source has no configured paths.
var twebDefaultPaths = []pathEntry{
	{path: "/ktwebscr/pk_tek_tweb.htm", key: "meetings"},
	{path: "/ktwebbin/dbisa.dll/ktwebscr/pk_tek_tweb.htm", key: "meetings"},
	{path: "/ktwebscr/epj_tek_tweb.htm", key: "agendas"},
	{path: "/ktwebbin/dbisa.dll/ktwebscr/epj_tek_tweb.htm", key: "agendas"},
	{path: "/tweb/", key: "meetings"},
	{path: "/ktwebbin/", key: "meetings"},
	{path: "/pk_tek.htm", key: "meetings"},
}

// tWeb discovers documents on TWeb/KTweb/Triplancloud sites (Keminmaa,
// Kolari, Pello, Sodankylä and others). Listings are tables whose rows
// carry the meeting metadata; a fileshow link is the document itself.
type tWeb struct {
	src     types.Source
	fetcher Fetcher
}

func newTWeb(src types.Source, f Fetcher) (Connector, error) {
	return &tWeb{src: src, fetcher: f}, nil
}

func (t *tWeb) PlatformName() string { return PlatformTWeb }

func (t *tWeb) Discover(ctx context.Context) ([]types.DocumentRef, error) {
	if paths := configuredPaths(t.src); len(paths) > 0 {
		var refs []types.DocumentRef
		for _, pe := range paths {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			listing, err := joinURL(t.src.BaseURL, pe.path)
			if err != nil {
				continue
			}
			resp, err := t.fetcher.Fetch(ctx, listing)
			if err != nil {
				continue
			}
			found, err := t.parseListing(ctx, resp.Body, listing, docTypeForPath(pe.key))
			if err != nil {
				continue
			}
			refs = append(refs, found...)
		}
		return refs, nil
	}

	for _, pe := range twebDefaultPaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		listing, err := joinURL(t.src.BaseURL, pe.path)
		if err != nil {
			continue
		}
		resp, err := t.fetcher.Fetch(ctx, listing)
		if err != nil {
			continue
		}
		refs, err := t.parseListing(ctx, resp.Body, listing, docTypeForPath(pe.key))
		if err == nil && len(refs) > 0 {
			return refs, nil
		}
	}
	return nil, nil
}

func (t *tWeb) parseListing(ctx context.Context, body []byte, pageURL string, docType types.DocType) ([]types.DocumentRef, error) {
	p, err := parsePage(body)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	muni := municipalityName(t.src)
	var refs []types.DocumentRef
	seen := make(map[string]bool)

	for _, row := range p.rows {
		if rowCells(row) < 2 {
			continue
		}
		rowText := nodeText(row)
		for _, a := range rowAnchors(row) {
			if !containsAny(a.href, twebLinkPatterns) {
				continue
			}
			full := resolveURL(base, a.href)
			if full == "" {
				continue
			}

			// A fileshow or .pdf link is the document itself; anything else
			// is a page that may carry the file links.
			var fileURLs []string
			if containsAny(a.href, []string{"fileshow", ".pdf"}) {
				fileURLs = []string{full}
			} else {
				fileURLs = t.pdfLinks(ctx, full)
			}

			title := a.text
			if title == "" {
				title = truncateRunes(rowText, 100)
			}
			refs = append(refs, types.DocumentRef{
				Municipality: muni,
				Platform:     PlatformTWeb,
				Body:         extractBody(rowText, twebBodies),
				MeetingDate:  firstDate(rowText, twebDatePatterns),
				DocType:      docType,
				Title:        title,
				SourceURL:    full,
				FileURLs:     fileURLs,
			})
			seen[full] = true
		}
	}

	// Standalone fileshow links outside tables, deduplicated against the
	// table rows above.
	for _, a := range p.anchors {
		lower := strings.ToLower(a.href)
		if !strings.Contains(lower, "fileshow") || !strings.Contains(lower, "docid") {
			continue
		}
		full := resolveURL(base, a.href)
		if full == "" || seen[full] {
			continue
		}
		title := a.text
		if title == "" {
			title = "Document"
		}
		refs = append(refs, types.DocumentRef{
			Municipality: muni,
			Platform:     PlatformTWeb,
			Body:         extractBody(a.text, twebBodies),
			MeetingDate:  firstDate(a.text, twebDatePatterns),
			DocType:      docType,
			Title:        title,
			SourceURL:    full,
			FileURLs:     []string{full},
		})
		seen[full] = true
	}

	return refs, nil
}

// pdfLinks fetches a meeting page and collects its file anchors.
func (t *tWeb) pdfLinks(ctx context.Context, pageURL string) []string {
	resp, err := t.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil
	}
	p, err := parsePage(resp.Body)
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	var out []string
	for _, a := range p.anchors {
		if containsAny(a.href, []string{"fileshow", ".pdf"}) {
			if u := resolveURL(base, a.href); u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}
