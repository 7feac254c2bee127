package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/tendercrawl/models"
)

// Column positions in the listing table, 1-based like the portal's own
// markup. The portal carries no semantic labels, so extraction is purely
// positional.
const (
	colOrganization = 2
	colCase         = 3
	colType         = 5
	colAnnounceDate = 7
	colDeadline     = 8
	colBudget       = 9
)

// ErrRowNoCells marks a listing row without any <td>, e.g. a header row.
var ErrRowNoCells = errors.New("row has no data cells")

// RowResult is the outcome of extracting one listing row.
type RowResult struct {
	Index  int
	Record models.Record
	Err    error
}

// ListPage is one parsed listing page.
type ListPage struct {
	Rows []RowResult

	// Next is the absolute URL of the next page, or "" on the last page.
	Next string
}

// Records returns the successfully extracted records in row order.
func (p *ListPage) Records() []models.Record {
	out := make([]models.Record, 0, len(p.Rows))
	for _, r := range p.Rows {
		if r.Err == nil {
			out = append(out, r.Record)
		}
	}
	return out
}

// Failed returns the rows that could not be extracted.
func (p *ListPage) Failed() []RowResult {
	var out []RowResult
	for _, r := range p.Rows {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// ParseListing extracts every row of the result table plus the next-page
// link. A page without rows is not an error.
func (l *Layout) ParseListing(rawHTML, pageURL string) (*ListPage, error) {
	doc, err := parseDocument(rawHTML)
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(pageURL)

	page := &ListPage{}
	doc.FindMatcher(l.listRows).Each(func(i int, row *goquery.Selection) {
		rec, err := parseRow(row, base)
		page.Rows = append(page.Rows, RowResult{Index: i, Record: rec, Err: err})
	})
	page.Next = l.nextLink(doc, base)
	return page, nil
}

func parseRow(row *goquery.Selection, base *url.URL) (models.Record, error) {
	cells := row.ChildrenFiltered("td")
	if cells.Length() == 0 {
		return models.Record{}, ErrRowNoCells
	}
	col := func(n int) *goquery.Selection { return cells.Eq(n - 1) }

	caseCell := col(colCase)
	anchor := caseCell.ChildrenFiltered("a").First()

	link := ""
	if href, ok := anchor.Attr("href"); ok && strings.TrimSpace(href) != "" {
		resolved, err := resolve(base, href)
		if err != nil {
			return models.Record{}, fmt.Errorf("detail link %q: %w", href, err)
		}
		link = resolved
	}

	return models.Record{
		CaseNumber:   caseNumber(caseCell),
		Organization: cellText(col(colOrganization)),
		Title:        cellText(anchor.ChildrenFiltered("span").First()),
		Type:         cellText(col(colType)),
		AnnounceDate: cellText(col(colAnnounceDate)),
		Deadline:     cellText(col(colDeadline)),
		Budget:       cellText(col(colBudget).ChildrenFiltered("span").First()),
		DetailLink:   link,
	}, nil
}

// caseNumber is the case cell's own text, without the title link it also
// contains. Cells holding only the link fall back to the full text.
func caseNumber(cell *goquery.Selection) string {
	own := cell.Clone()
	own.Find("a").Remove()
	if txt := cellText(own); txt != "" {
		return txt
	}
	return cellText(cell)
}

// nextLink finds the pagination control whose label contains NextLabel.
func (l *Layout) nextLink(doc *goquery.Document, base *url.URL) string {
	label := strings.TrimSpace(l.Selectors.NextLabel)
	next := doc.FindMatcher(l.pageLinks).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(cellText(s), label)
	}).First()

	href, ok := next.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	resolved, err := resolve(base, href)
	if err != nil {
		return ""
	}
	return resolved
}

func resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if base == nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}
