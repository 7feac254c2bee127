// Package extract turns rendered portal HTML into records and detail
// documents. It never touches the browser; callers hand it page HTML.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/tendercrawl/config"
	"github.com/use-agent/tendercrawl/models"
	"golang.org/x/net/html"
)

// Layout is the compiled description of the portal markup.
type Layout struct {
	// Selectors keeps the source strings; the browser waits on them.
	Selectors config.SelectorConfig

	listRows     cascadia.Selector
	pageLinks    cascadia.Selector
	detailTables cascadia.Selector
}

// NewLayout compiles every selector up front so a typo surfaces as a
// configuration error before the browser is launched. The detail container
// is only waited on by the browser, so it is checked but not kept.
func NewLayout(sel config.SelectorConfig) (*Layout, error) {
	l := &Layout{Selectors: sel}

	compile := []struct {
		name string
		src  string
		dst  *cascadia.Selector
	}{
		{"list rows", sel.ListRows, &l.listRows},
		{"page links", sel.PageLinks, &l.pageLinks},
		{"detail container", sel.DetailContainer, nil},
		{"detail tables", sel.DetailTables, &l.detailTables},
	}
	for _, c := range compile {
		compiled, err := cascadia.Compile(c.src)
		if err != nil {
			return nil, models.NewCrawlError(
				models.ErrCodeConfig,
				fmt.Sprintf("invalid %s selector %q", c.name, c.src),
				err,
			)
		}
		if c.dst != nil {
			*c.dst = compiled
		}
	}
	if strings.TrimSpace(sel.NextLabel) == "" {
		return nil, models.NewCrawlError(models.ErrCodeConfig, "next page label is empty", nil)
	}
	return l, nil
}

// parseDocument parses rawHTML with the x/net/html parser, which also
// inserts the implied <tbody> the row selectors rely on.
func parseDocument(rawHTML string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeExtraction, "failed to parse HTML", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// cellText returns the visible text of s with runs of whitespace collapsed.
func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
