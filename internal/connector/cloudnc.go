// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/kaamos-labs/watchdog/pkg/types"
)

// cloudncKeywords mark anchors worth following on a CloudNC listing page.
var cloudncKeywords = []string{
	"kokous", "meeting", "download", "poytakirja", "esityslista",
	"päätös", "kuulutus", "kaava", "asiakirja",
}

// cloudncFileLink matches hrefs that point at downloadable files.
var cloudncFileLink = regexp.MustCompile(`(?i)\.pdf|download`)

// cloudncDefaultPaths are tried in order when the source has no configured
// paths; the first one yielding refs wins.
var cloudncDefaultPaths = []pathEntry{
	{path: "/fi-FI/Toimielimet", key: "meetings"},
	{path: "/fi-FI", key: "meetings"},
}

// cloudNC discovers documents on CloudNC-hosted municipal sites
// (Enontekiö, Muonio, Rovaniemi). Configured paths are scanned as HTML
// listings; without them the /meetingrss feed is tried first.
type cloudNC struct {
	src     types.Source
	fetcher Fetcher
}

func newCloudNC(src types.Source, f Fetcher) (Connector, error) {
	return &cloudNC{src: src, fetcher: f}, nil
}

func (c *cloudNC) PlatformName() string { return PlatformCloudNC }

func (c *cloudNC) Discover(ctx context.Context) ([]types.DocumentRef, error) {
	if paths := configuredPaths(c.src); len(paths) > 0 {
		var refs []types.DocumentRef
		for _, pe := range paths {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			listing, err := joinURL(c.src.BaseURL, pe.path)
			if err != nil {
				continue
			}
			resp, err := c.fetcher.Fetch(ctx, listing)
			if err != nil {
				continue
			}
			found, err := c.parseListing(ctx, resp.Body, listing, docTypeForPath(pe.key))
			if err != nil {
				continue
			}
			refs = append(refs, found...)
		}
		return refs, nil
	}

	// No configured paths: try the RSS feed, then conventional listings.
	if refs := c.fromRSS(ctx); len(refs) > 0 {
		return refs, nil
	}
	for _, pe := range cloudncDefaultPaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		listing, err := joinURL(c.src.BaseURL, pe.path)
		if err != nil {
			continue
		}
		resp, err := c.fetcher.Fetch(ctx, listing)
		if err != nil {
			continue
		}
		refs, err := c.parseListing(ctx, resp.Body, listing, docTypeForPath(pe.key))
		if err == nil && len(refs) > 0 {
			return refs, nil
		}
	}
	return nil, nil
}

func (c *cloudNC) fromRSS(ctx context.Context) []types.DocumentRef {
	feedURL, err := joinURL(c.src.BaseURL, "/meetingrss")
	if err != nil {
		return nil
	}
	resp, err := c.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil
	}
	feed, err := gofeed.NewParser().ParseString(string(resp.Body))
	if err != nil {
		return nil
	}

	muni := municipalityName(c.src)
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

		var fileURLs []string
		for _, enc := range item.Enclosures {
			if strings.HasPrefix(enc.Type, "application/pdf") && enc.URL != "" {
				fileURLs = append(fileURLs, enc.URL)
			}
		}

		refs = append(refs, types.DocumentRef{
			Municipality: muni,
			Platform:     PlatformCloudNC,
			Body:         extractBody(item.Title, cloudncBodies),
			MeetingDate:  meeting,
			PublishedAt:  published,
			DocType:      types.DocMinutes,
			Title:        item.Title,
			SourceURL:    item.Link,
			FileURLs:     fileURLs,
		})
	}
	return refs
}

func (c *cloudNC) parseListing(ctx context.Context, body []byte, pageURL string, docType types.DocType) ([]types.DocumentRef, error) {
	p, err := parsePage(body)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	muni := municipalityName(c.src)
	var refs []types.DocumentRef
	for _, a := range p.anchors {
		if !containsAny(a.href, cloudncKeywords) && !containsAny(a.text, cloudncKeywords) {
			continue
		}
		full := resolveURL(base, a.href)
		// Skip navigation links back to the listing itself.
		if full == "" || full == pageURL || strings.Contains(a.href, "#") {
			continue
		}

		fileURLs := c.fileLinks(ctx, a.href, full)
		if len(fileURLs) == 0 && !containsAny(a.href, []string{"docid", "document", "file"}) {
			continue
		}

		title := a.text
		if title == "" {
			title = "Document"
		}
		refs = append(refs, types.DocumentRef{
			Municipality: muni,
			Platform:     PlatformCloudNC,
			Body:         extractBody(a.text, cloudncBodies),
			MeetingDate:  extractDate(a.text),
			DocType:      docType,
			Title:        title,
			SourceURL:    full,
			FileURLs:     fileURLs,
		})
	}
	return refs, nil
}

// fileLinks finds downloadable files behind a listing link. A link that is
// itself a PDF is its own file; otherwise the linked page is fetched and
// scanned for file anchors.
func (c *cloudNC) fileLinks(ctx context.Context, href, full string) []string {
	if strings.Contains(strings.ToLower(href), ".pdf") {
		return []string{full}
	}
	resp, err := c.fetcher.Fetch(ctx, full)
	if err != nil {
		return nil
	}
	sub, err := parsePage(resp.Body)
	if err != nil {
		return nil
	}
	subBase, err := url.Parse(full)
	if err != nil {
		return nil
	}
	var out []string
	for _, a := range sub.anchors {
		if cloudncFileLink.MatchString(a.href) {
			if u := resolveURL(subBase, a.href); u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}
