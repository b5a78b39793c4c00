package collector

import (
	"html"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"IntelBrief/internal/dedup"
	"IntelBrief/internal/domain"
)

var ugcPolicy = sync.OnceValue(func() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowURLSchemes("http", "https")
	policy.RequireParseableURLs(true)
	return policy
})

const blockElements = "p, br, li, div, tr, blockquote, h1, h2, h3, h4, h5, h6"

// normalize turns a fetched entry into a canonical item. Entries without a
// URL carry no identity and are dropped.
func normalize(spec domain.SourceSpec, entry domain.RawEntry) (domain.CollectedItem, bool) {
	link := strings.TrimSpace(entry.URL)
	if link == "" {
		return domain.CollectedItem{}, false
	}

	tags := make([]string, 0, len(entry.Tags))
	for _, tag := range entry.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	item := domain.CollectedItem{
		SourceURL:   link,
		Title:       htmlToText(entry.Title),
		Body:        htmlToText(entry.Body),
		SourceKind:  spec.Kind,
		Source:      spec.Target,
		Author:      strings.TrimSpace(entry.Author),
		Tags:        tags,
		Fingerprint: dedup.Fingerprint(link),
		Metadata:    entry.Metadata,
	}
	if !entry.PublishedAt.IsZero() {
		item.PublishedAt = entry.PublishedAt.UTC()
	}
	return item, true
}

// htmlToText sanitises an HTML fragment and flattens it to a single line of
// text. Link targets are kept inline as "text (url)" so later URL scans see them.
func htmlToText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.ContainsAny(raw, "<&") {
		return collapseSpace(raw)
	}

	clean := ugcPolicy().Sanitize(raw)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(clean))
	if err != nil {
		return collapseSpace(bluemonday.StrictPolicy().Sanitize(raw))
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.TrimSpace(a.Text()) == href {
			return
		}
		a.AfterHtml(" (" + html.EscapeString(href) + ")")
	})
	doc.Find(blockElements).AfterHtml(" ")

	return collapseSpace(doc.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
