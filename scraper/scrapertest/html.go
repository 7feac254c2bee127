package scrapertest

import (
	"fmt"
	"html"
	"strings"
)

// Row is one listing row. The title lives inside the detail anchor, so a
// row with an empty Link renders no title.
type Row struct {
	Org, Case, Title, Type, Announce, Deadline, Budget string
	Link                                               string
}

// Listing renders a portal listing page. next, when non-empty, becomes the
// href of the "下一頁" pager link.
func Listing(next string, rows ...Row) string {
	var b strings.Builder
	b.WriteString(`<html><body><table id="tpam"><tbody>`)
	for i, r := range rows {
		var title string
		if r.Link != "" {
			title = fmt.Sprintf(`<a href="%s"><span>%s</span></a>`, html.EscapeString(r.Link), html.EscapeString(r.Title))
		}
		fmt.Fprintf(&b,
			`<tr><td>%d</td><td>%s</td><td>%s %s</td><td>01</td><td>%s</td><td>-</td><td>%s</td><td>%s</td><td><span>%s</span></td></tr>`,
			i+1, html.EscapeString(r.Org), html.EscapeString(r.Case), title,
			html.EscapeString(r.Type), html.EscapeString(r.Announce),
			html.EscapeString(r.Deadline), html.EscapeString(r.Budget))
	}
	b.WriteString(`</tbody></table><span id="pagelinks"><a href="?page=1">1</a>`)
	if next != "" {
		fmt.Fprintf(&b, `<a href="%s">下一頁</a>`, html.EscapeString(next))
	}
	b.WriteString(`</span></body></html>`)
	return b.String()
}

// Detail renders a detail page with one captioned table of label/value
// pairs, given as alternating strings.
func Detail(caption string, pairs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="printRange"><table>`)
	if caption != "" {
		fmt.Fprintf(&b, `<caption>%s</caption>`, html.EscapeString(caption))
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td></tr>`,
			html.EscapeString(pairs[i]), html.EscapeString(pairs[i+1]))
	}
	b.WriteString(`</table></div></body></html>`)
	return b.String()
}

// Blank is a page with a body and nothing else.
const Blank = `<html><body><p>loading</p></body></html>`
