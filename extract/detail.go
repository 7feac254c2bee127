package extract

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/tendercrawl/models"
)

// TableResult is the outcome of parsing one detail table.
type TableResult struct {
	Index int
	Name  string
	Pairs map[string]string

	// Discarded counts rows dropped for having fewer than two cells or an
	// empty label.
	Discarded int
}

// DetailPage is one parsed detail page.
type DetailPage struct {
	Tables []TableResult
}

// Document keeps only the tables that yielded at least one pair. A caption
// already in use gets a numeric suffix, starting at the table index and
// counting up until the key is free, so no table is lost.
func (p *DetailPage) Document() models.DetailDocument {
	doc := make(models.DetailDocument)
	for _, t := range p.Tables {
		if len(t.Pairs) == 0 {
			continue
		}
		name := t.Name
		for n := t.Index; ; n++ {
			if _, taken := doc[name]; !taken {
				break
			}
			name = fmt.Sprintf("%s_%d", t.Name, n)
		}
		doc[name] = t.Pairs
	}
	return doc
}

// ParseDetail extracts the two-column tables inside the content container.
func (l *Layout) ParseDetail(rawHTML string) (*DetailPage, error) {
	doc, err := parseDocument(rawHTML)
	if err != nil {
		return nil, err
	}

	page := &DetailPage{}
	doc.FindMatcher(l.detailTables).Each(func(i int, table *goquery.Selection) {
		page.Tables = append(page.Tables, parseTable(i, table))
	})
	return page, nil
}

func parseTable(index int, table *goquery.Selection) TableResult {
	res := TableResult{
		Index: index,
		Name:  cellText(table.ChildrenFiltered("caption").First()),
		Pairs: make(map[string]string),
	}
	if res.Name == "" {
		res.Name = fmt.Sprintf("unnamed_table_%d", index)
	}

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() < 2 {
			res.Discarded++
			return
		}
		label := cellText(cols.Eq(0))
		if label == "" {
			res.Discarded++
			return
		}
		res.Pairs[label] = cellText(cols.Eq(1))
	})
	return res
}
