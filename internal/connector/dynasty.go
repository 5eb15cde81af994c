// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/kaamos-labs/watchdog/internal/httputil"
	"github.com/kaamos-labs/watchdog/pkg/types"
)

// dynastyLinkPatterns mark anchors that lead to meeting or decision pages.
var dynastyLinkPatterns = []string{
	"docid=", "kokession", "meeting", "official", "htmtxt", "download",
}

// dynastyFramePatterns select the content frame on frameset pages.
var dynastyFramePatterns = []string{"kokous", "meeting", "official", "announcement"}

// dynastyRSSPaths are conventional feed locations, tried first when the
// source has no configured paths.
var dynastyRSSPaths = []string{
	"/cgi/DREQUEST.PHP?page=rss/meetingrss",
	"/d10/kokous/TELIASES.HTM",
	"/rss",
}

// dynastyListingPaths are conventional HTML listing locations.
var dynastyListingPaths = []pathEntry{
	{path: "/cgi/DREQUEST.PHP?page=meeting_frames", key: "meetings"},
	{path: "/cgi/DREQUEST.PHP?page=meeting_handlers&id=", key: "meetings"},
	{path: "/kokous/", key: "meetings"},
	{path: "/esityslista/", key: "agendas"},
}

// dynasty discovers documents on Dynasty (Innofactor) sites, used by most
// Lapland municipalities. Configured paths may point at either RSS feeds
// or HTML listings; the response is sniffed to decide which parser runs.
type dynasty struct {
	src     types.Source
	fetcher Fetcher
}

func newDynasty(src types.Source, f Fetcher) (Connector, error) {
	return &dynasty{src: src, fetcher: f}, nil
}

func (d *dynasty) PlatformName() string { return PlatformDynasty }

func (d *dynasty) Discover(ctx context.Context) ([]types.DocumentRef, error) {
	if paths := configuredPaths(d.src); len(paths) > 0 {
		var refs []types.DocumentRef
		for _, pe := range paths {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			listing, err := joinURL(d.src.BaseURL, pe.path)
			if err != nil {
				continue
			}
			resp, err := d.fetcher.Fetch(ctx, listing)
			if err != nil {
				continue
			}
			docType := docTypeForPath(pe.key)
			var found []types.DocumentRef
			if looksLikeRSS(resp) {
				found = d.parseRSS(resp.Body, docType)
			} else {
				found, err = d.parseListing(ctx, resp.Body, listing, docType)
				if err != nil {
					continue
				}
			}
			refs = append(refs, found...)
		}
		return refs, nil
	}

	// No configured paths: conventional feeds first, then listings.
	for _, path := range dynastyRSSPaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		feedURL, err := joinURL(d.src.BaseURL, path)
		if err != nil {
			continue
		}
		resp, err := d.fetcher.Fetch(ctx, feedURL)
		if err != nil || !looksLikeRSS(resp) {
			continue
		}
		if refs := d.parseRSS(resp.Body, types.DocMinutes); len(refs) > 0 {
			return refs, nil
		}
	}
	for _, pe := range dynastyListingPaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		listing, err := joinURL(d.src.BaseURL, pe.path)
		if err != nil {
			continue
		}
		resp, err := d.fetcher.Fetch(ctx, listing)
		if err != nil {
			continue
		}
		if !strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "html") {
			continue
		}
		refs, err := d.parseListing(ctx, resp.Body, listing, docTypeForPath(pe.key))
		if err == nil && len(refs) > 0 {
			return refs, nil
		}
	}
	return nil, nil
}

// looksLikeRSS sniffs whether a response carries a feed rather than HTML.
func looksLikeRSS(resp *httputil.Response) bool {
	if strings.Contains(resp.Header.Get("Content-Type"), "xml") {
		return true
	}
	head := resp.Body
	if len(head) > 500 {
		head = head[:500]
	}
	return strings.Contains(string(head), "<rss")
}

func (d *dynasty) parseRSS(body []byte, docType types.DocType) []types.DocumentRef {
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil
	}

	muni := municipalityName(d.src)
	var refs []types.DocumentRef
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		var published *time.Time
		if item.PublishedParsed != nil {
			t := item.PublishedParsed.UTC()
			published = &t
		}
		meeting := extractDate(item.Title)
		if meeting == nil {
			meeting = published
		}
		refs = append(refs, types.DocumentRef{
			Municipality: muni,
			Platform:     PlatformDynasty,
			Body:         extractBody(item.Title, dynastyBodies),
			MeetingDate:  meeting,
			PublishedAt:  published,
			DocType:      docType,
			Title:        item.Title,
			SourceURL:    item.Link,
			// File URLs are found later when the meeting page is fetched.
		})
	}
	return refs
}

func (d *dynasty) parseListing(ctx context.Context, body []byte, pageURL string, docType types.DocType) ([]types.DocumentRef, error) {
	p, err := parsePage(body)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	// Dynasty often serves framesets; the document list lives in the
	// content frame.
	for _, src := range p.frames {
		if !containsAny(src, dynastyFramePatterns) {
			continue
		}
		frameURL := resolveURL(base, src)
		if frameURL == "" {
			continue
		}
		resp, err := d.fetcher.Fetch(ctx, frameURL)
		if err != nil {
			continue
		}
		if inner, err := parsePage(resp.Body); err == nil {
			if innerBase, err := url.Parse(frameURL); err == nil {
				p, base, pageURL = inner, innerBase, frameURL
				break
			}
		}
	}

	muni := municipalityName(d.src)
	var refs []types.DocumentRef
	for _, a := range p.anchors {
		if !containsAny(a.href, dynastyLinkPatterns) {
			continue
		}
		full := resolveURL(base, a.href)
		if full == "" || full == pageURL || strings.HasPrefix(a.href, "#") {
			continue
		}

		title := a.text
		if title == "" {
			title = "Document"
		}
		refs = append(refs, types.DocumentRef{
			Municipality: muni,
			Platform:     PlatformDynasty,
			Body:         extractBody(a.text, dynastyBodies),
			MeetingDate:  extractDate(a.text),
			DocType:      docType,
			Title:        title,
			SourceURL:    full,
			FileURLs:     d.pdfLinks(ctx, full),
		})
	}
	return refs, nil
}

// pdfLinks fetches a meeting page and collects its file anchors.
func (d *dynasty) pdfLinks(ctx context.Context, pageURL string) []string {
	resp, err := d.fetcher.Fetch(ctx, pageURL)
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
		if containsAny(a.href, []string{".pdf", "download", "fileshow"}) {
			if u := resolveURL(base, a.href); u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}
