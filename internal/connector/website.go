// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/kaamos-labs/watchdog/pkg/types"
)

// defaultPDFPattern recognizes plain PDF links on pages without a
// configured pattern override.
var defaultPDFPattern = regexp.MustCompile(`(?i)\.pdf`)

// website discovers documents on plain municipal websites that publish
// PDFs directly (Utsjoki, Lapin ELY-keskus). It scans configured listing
// pages for links matching the PDF pattern; the surrounding block supplies
// the committee name and date.
type website struct {
	src        types.Source
	fetcher    Fetcher
	pdfPattern *regexp.Regexp
}

func newWebsite(src types.Source, f Fetcher) (Connector, error) {
	pattern := defaultPDFPattern
	if src.Config.PDFPattern != "" {
		var err error
		pattern, err = regexp.Compile("(?i)" + src.Config.PDFPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pdf_pattern for source %d: %w", src.ID, err)
		}
	}
	return &website{src: src, fetcher: f, pdfPattern: pattern}, nil
}

func (w *website) PlatformName() string { return PlatformWebsite }

func (w *website) Discover(ctx context.Context) ([]types.DocumentRef, error) {
	paths := configuredPaths(w.src)
	if len(paths) == 0 {
		// Without configuration, scan the front page and infer document
		// types from the surrounding text.
		paths = []pathEntry{{path: "/"}}
	}

	var refs []types.DocumentRef
	for _, pe := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		listing, err := joinURL(w.src.BaseURL, pe.path)
		if err != nil {
			continue
		}
		resp, err := w.fetcher.Fetch(ctx, listing)
		if err != nil {
			continue
		}
		found, err := w.parsePage(resp.Body, listing, pe.key)
		if err != nil {
			continue
		}
		refs = append(refs, found...)
	}
	return refs, nil
}

func (w *website) parsePage(body []byte, pageURL, pathKey string) ([]types.DocumentRef, error) {
	p, err := parsePage(body)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	muni := municipalityName(w.src)
	var refs []types.DocumentRef
	for _, a := range p.anchors {
		if !w.pdfPattern.MatchString(a.href) {
			continue
		}
		full := resolveURL(base, a.href)
		if full == "" {
			continue
		}

		blockText := surroundingText(a.node)
		if blockText == "" {
			blockText = a.text
		}

		title := a.text
		if title == "" {
			title = truncateRunes(blockText, 100)
		}
		refs = append(refs, types.DocumentRef{
			Municipality: muni,
			Platform:     PlatformWebsite,
			Body:         extractBody(blockText, websiteBodies),
			MeetingDate:  extractDate(blockText),
			DocType:      w.docType(pathKey, blockText),
			Title:        title,
			SourceURL:    full,
			FileURLs:     []string{full},
		})
	}
	return refs, nil
}

// docType resolves the document type: a recognized path key wins,
// otherwise the surrounding text decides.
func (w *website) docType(pathKey, blockText string) types.DocType {
	if pathKey != "" {
		return docTypeForPath(pathKey)
	}
	switch {
	case containsAny(blockText, []string{"esityslista"}):
		return types.DocAgenda
	case containsAny(blockText, []string{"pöytäkirja"}):
		return types.DocMinutes
	case containsAny(blockText, []string{"päätös", "viranhaltija"}):
		return types.DocDecision
	case containsAny(blockText, []string{"kuulutus"}):
		return types.DocAnnouncement
	default:
		return types.DocMinutes
	}
}
