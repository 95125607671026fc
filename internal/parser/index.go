package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/crawler"
)

// IndexParser extracts event links from the overview page.
//
// It matches links of the form {basePath}/{event-id}/, e.g.
// /members-login/general-assembly/2025-rhodes/.
type IndexParser struct {
	baseURL  string
	basePath string
	pattern  *regexp.Regexp
	logger   *zap.Logger
}

// NewIndexParser builds an IndexParser scoped to basePath. Relative event
// links are resolved against baseURL.
func NewIndexParser(baseURL, basePath string, logger *zap.Logger) *IndexParser {
	return &IndexParser{
		baseURL:  baseURL,
		basePath: basePath,
		pattern:  regexp.MustCompile(regexp.QuoteMeta(basePath) + `/([^/]+)/?$`),
		logger:   logger,
	}
}

// Parse returns the ordered, deduplicated entry list. Duplicate ids keep
// their first occurrence. Zero entries is a terminal parse failure for the
// whole run.
func (p *IndexParser) Parse(html string) ([]crawler.IndexEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &crawler.ParseError{URL: p.basePath, Message: err.Error()}
	}

	seen := make(map[string]struct{})
	var entries []crawler.IndexEntry
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		m := p.pattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		eventID := m[1]
		if eventID == "" {
			return
		}
		if _, dup := seen[eventID]; dup {
			return
		}
		seen[eventID] = struct{}{}

		title := strings.TrimSpace(link.Text())
		if title == "" {
			title = eventID
		}
		if strings.HasPrefix(href, "/") {
			href = p.baseURL + href
		}
		entries = append(entries, crawler.IndexEntry{
			ID:    eventID,
			Title: title,
			URL:   href,
		})
	})

	p.logger.Info("parsed event index", zap.Int("events", len(entries)))
	if len(entries) == 0 {
		return nil, &crawler.ParseError{URL: p.basePath, Message: "no event links found on index page"}
	}
	return entries, nil
}
