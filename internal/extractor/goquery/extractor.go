// Package goqueryextractor implements crawler.AnchorExtractor with goquery.
package goqueryextractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/career-crawler/internal/crawler"
)

// Extractor pulls every <a href> from an HTML document.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// ExtractAnchors implements crawler.AnchorExtractor. Anchor text is the
// element's visible text with whitespace collapsed.
func (e *Extractor) ExtractAnchors(body []byte) ([]crawler.Anchor, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", crawler.ErrParse, err)
	}

	var anchors []crawler.Anchor
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		anchors = append(anchors, crawler.Anchor{
			Href: href,
			Text: strings.Join(strings.Fields(s.Text()), " "),
		})
	})
	return anchors, nil
}
