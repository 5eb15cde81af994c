// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"bytes"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/kaamos-labs/watchdog/pkg/types"
)

// bodyEntry maps a lowercase text fragment to a canonical committee name.
// Tables are ordered slices: the first matching fragment wins, so broader
// fragments must come after the specific ones that contain them.
type bodyEntry struct {
	match     string
	canonical string
}

var cloudncBodies = []bodyEntry{
	{"kaupunginvaltuusto", "Kaupunginvaltuusto"},
	{"kunnanvaltuusto", "Kunnanvaltuusto"},
	{"valtuusto", "Valtuusto"},
	{"kaupunginhallitus", "Kaupunginhallitus"},
	{"kunnanhallitus", "Kunnanhallitus"},
	{"hallitus", "Hallitus"},
	{"ympäristölautakunta", "Ympäristölautakunta"},
	{"ympäristö", "Ympäristölautakunta"},
	{"tekninen lautakunta", "Tekninen lautakunta"},
	{"tekninen", "Tekninen lautakunta"},
	{"kaavoituslautakunta", "Kaavoituslautakunta"},
	{"rakennuslautakunta", "Rakennuslautakunta"},
	{"rakennus", "Rakennuslautakunta"},
	{"tarkastuslautakunta", "Tarkastuslautakunta"},
	{"hyvinvointilautakunta", "Hyvinvointilautakunta"},
}

var dynastyBodies = []bodyEntry{
	{"valtuusto", "Valtuusto"},
	{"hallitus", "Hallitus"},
	{"ympäristö", "Ympäristölautakunta"},
	{"tekninen", "Tekninen lautakunta"},
	{"kaavoitus", "Kaavoituslautakunta"},
	{"rakennus", "Rakennuslautakunta"},
	{"lupa", "Lupalautakunta"},
	{"hyvinvointi", "Hyvinvointilautakunta"},
	{"sivistys", "Sivistyslautakunta"},
	{"tarkastus", "Tarkastuslautakunta"},
	{"maakuntahallitus", "Maakuntahallitus"},
	{"maakuntavaltuusto", "Maakuntavaltuusto"},
}

var twebBodies = []bodyEntry{
	{"valtuusto", "Valtuusto"},
	{"hallitus", "Hallitus"},
	{"ympäristö", "Ympäristölautakunta"},
	{"tekninen", "Tekninen lautakunta"},
	{"kaavoitus", "Kaavoituslautakunta"},
	{"rakennus", "Rakennuslautakunta"},
	{"lupa", "Lupalautakunta"},
	{"hyvinvointi", "Hyvinvointilautakunta"},
	{"sivistys", "Sivistyslautakunta"},
	{"tarkastus", "Tarkastuslautakunta"},
	{"aluehallitus", "Aluehallitus"},
	{"aluevaltuusto", "Aluevaltuusto"},
}

var websiteBodies = []bodyEntry{
	{"valtuusto", "Kunnanvaltuusto"},
	{"hallitus", "Kunnanhallitus"},
	{"ympäristö", "Ympäristölautakunta"},
	{"tekninen", "Tekninen lautakunta"},
	{"rakennus", "Rakennuslautakunta"},
	{"hyvinvointi", "Hyvinvointilautakunta"},
	{"sivistys", "Sivistyslautakunta"},
	{"tarkastus", "Tarkastuslautakunta"},
	{"keskusvaali", "Keskusvaalilautakunta"},
	{"lupalautakunta", "Lupalautakunta"},
	{"elinvoima", "Elinvoimalautakunta"},
}

// unknownBody is returned when no committee name is recognized.
const unknownBody = "Tuntematon"

// extractBody finds a committee name in text using the platform's ordered
// vocabulary table.
func extractBody(text string, table []bodyEntry) string {
	lower := strings.ToLower(text)
	for _, e := range table {
		if strings.Contains(lower, e.match) {
			return e.canonical
		}
	}
	return unknownBody
}

// Date patterns, tried in order. A four-digit first group is read as a
// year (ISO form), otherwise the groups are day.month.year.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`),
	regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`),
}

// twebDatePatterns additionally accepts D/M/YYYY, which appears on some
// TWeb listings.
var twebDatePatterns = append(datePatterns[:2:2],
	regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`),
)

// extractDate finds the first valid date in text.
func extractDate(text string) *time.Time {
	return firstDate(text, datePatterns)
}

func firstDate(text string, patterns []*regexp.Regexp) *time.Time {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		var year, month, day int
		if len(m[1]) == 4 {
			year, _ = strconv.Atoi(m[1])
			month, _ = strconv.Atoi(m[2])
			day, _ = strconv.Atoi(m[3])
		} else {
			day, _ = strconv.Atoi(m[1])
			month, _ = strconv.Atoi(m[2])
			year, _ = strconv.Atoi(m[3])
		}
		if t, ok := calendarDate(year, month, day); ok {
			return &t
		}
	}
	return nil
}

// calendarDate builds a UTC date, rejecting values time.Date would
// silently normalize (e.g. 31.2.2025).
func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// docTypeForPath maps a configured path key to the normalized document type.
func docTypeForPath(key string) types.DocType {
	switch key {
	case "meetings":
		return types.DocMinutes
	case "agendas":
		return types.DocAgenda
	case "officer_decisions":
		return types.DocDecision
	case "announcements":
		return types.DocAnnouncement
	case "zoning":
		return types.DocZoning
	default:
		return types.DocMinutes
	}
}

// pathEntry pairs a listing path with its document-type key.
type pathEntry struct {
	path string
	key  string
}

// configuredPaths returns the source's listing paths in the canonical key
// order, skipping empty values.
func configuredPaths(src types.Source) []pathEntry {
	var out []pathEntry
	for _, key := range types.PathKeys {
		if p := src.Config.Paths[key]; p != "" {
			out = append(out, pathEntry{path: p, key: key})
		}
	}
	return out
}

// municipalityName resolves the municipality for discovered refs: the
// config override wins over the source row's own name.
func municipalityName(src types.Source) string {
	if src.Config.Municipality != "" {
		return src.Config.Municipality
	}
	if src.Municipality != "" {
		return src.Municipality
	}
	return "Unknown"
}

// anchor is a hyperlink found in a parsed page.
type anchor struct {
	href string
	text string
	node *html.Node
}

// parsePage parses an HTML document and collects its anchors, frame
// sources, and table rows in document order.
func parsePage(body []byte) (*page, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	p := &page{root: root}
	p.walk(root)
	return p, nil
}

type page struct {
	root    *html.Node
	anchors []anchor
	frames  []string
	rows    []*html.Node
}

func (p *page) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "a":
			if href := attrVal(n, "href"); href != "" {
				p.anchors = append(p.anchors, anchor{href: href, text: nodeText(n), node: n})
			}
		case "frame", "iframe":
			if src := attrVal(n, "src"); src != "" {
				p.frames = append(p.frames, src)
			}
		case "tr":
			p.rows = append(p.rows, n)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

// rowCells counts the td/th cells directly inside a table row.
func rowCells(row *html.Node) int {
	count := 0
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th") {
			count++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(row)
	return count
}

// rowAnchors collects the anchors inside a table row.
func rowAnchors(row *html.Node) []anchor {
	var out []anchor
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := attrVal(n, "href"); href != "" {
				out = append(out, anchor{href: href, text: nodeText(n), node: n})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(row)
	return out
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// nodeText flattens the text content of a node, collapsing whitespace.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// contextNodes are the ancestor elements whose text serves as metadata
// context for a bare file link.
var contextNodes = map[string]bool{
	"li": true, "p": true, "div": true, "td": true, "article": true, "section": true,
}

// surroundingText returns the text of the nearest context ancestor of n,
// or the empty string when there is none.
func surroundingText(n *html.Node) string {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && contextNodes[p.Data] {
			return nodeText(p)
		}
	}
	return ""
}

// resolveURL resolves href against base the way a browser would. Returns
// the empty string for unparseable input.
func resolveURL(base *url.URL, href string) string {
	ref, err := base.Parse(href)
	if err != nil {
		return ""
	}
	return ref.String()
}

// joinURL resolves a listing path against the source base URL.
func joinURL(baseURL, path string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	ref, err := base.Parse(path)
	if err != nil {
		return "", err
	}
	return ref.String(), nil
}

// containsAny reports whether the lowercase form of s contains any of the
// fragments.
func containsAny(s string, fragments []string) bool {
	lower := strings.ToLower(s)
	for _, f := range fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// truncateRunes caps s at n runes without splitting a multibyte character.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
