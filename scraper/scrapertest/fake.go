// Package scrapertest provides an in-memory scraper.Page for tests.
package scrapertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/tendercrawl/scraper"
	"github.com/use-agent/tendercrawl/session"
)

// ErrNoRoute is returned by Navigate for URLs the fake does not know.
var ErrNoRoute = errors.New("scrapertest: no route")

// PNG is the fake screenshot payload.
var PNG = []byte("\x89PNG fake")

// FakePage serves scripted HTML per URL. Each Navigate or Reload of a URL
// consumes the next response in its sequence; the last one sticks.
type FakePage struct {
	mu sync.Mutex

	routes    map[string][]string
	served    map[string]int
	redirects map[string]string
	failures  map[string]error

	current string
	html    string
	cookies []session.Cookie

	// WaitErr, when set, is returned by every WaitFor call.
	WaitErr error

	// Navigations lists every URL passed to Navigate, in order.
	Navigations []string
	Reloads     int
	Clears      int
	Scrolls     int
}

// New returns an empty FakePage.
func New() *FakePage {
	return &FakePage{
		routes:    make(map[string][]string),
		served:    make(map[string]int),
		redirects: make(map[string]string),
		failures:  make(map[string]error),
	}
}

// Serve scripts the responses returned for url.
func (p *FakePage) Serve(url string, responses ...string) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes[url] = responses
	p.served[url] = 0
	return p
}

// Redirect makes navigation to from land on to.
func (p *FakePage) Redirect(from, to string) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redirects[from] = to
	return p
}

// Fail makes navigation to url return err.
func (p *FakePage) Fail(url string, err error) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[url] = err
	return p
}

// Visits counts navigations to url.
func (p *FakePage) Visits(url string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, u := range p.Navigations {
		if u == url {
			n++
		}
	}
	return n
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Navigations = append(p.Navigations, url)
	if err := p.failures[url]; err != nil {
		return err
	}
	if to, ok := p.redirects[url]; ok {
		url = to
	}
	if _, ok := p.routes[url]; !ok {
		return fmt.Errorf("%w: %s", ErrNoRoute, url)
	}
	p.current = url
	p.html = p.next(url)
	return nil
}

func (p *FakePage) next(url string) string {
	seq := p.routes[url]
	if len(seq) == 0 {
		return "<html><body></body></html>"
	}
	i := p.served[url]
	if i >= len(seq) {
		i = len(seq) - 1
	}
	p.served[url]++
	return seq[i]
}

// WaitFor reports the element immediately when present and otherwise
// returns context.DeadlineExceeded without sleeping.
func (p *FakePage) WaitFor(ctx context.Context, selector string, _ scraper.Condition) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	html, waitErr := p.html, p.WaitErr
	p.mu.Unlock()
	if waitErr != nil {
		return "", waitErr
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", context.DeadlineExceeded
	}
	return goquery.OuterHtml(sel)
}

func (p *FakePage) Reload(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Reloads++
	if p.current != "" {
		p.html = p.next(p.current)
	}
	return ctx.Err()
}

func (p *FakePage) HTML(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *FakePage) URL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

func (p *FakePage) Cookies(context.Context) ([]session.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]session.Cookie(nil), p.cookies...), nil
}

func (p *FakePage) SetCookie(_ context.Context, c session.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookies = append(p.cookies, c)
	return nil
}

func (p *FakePage) ClearCookies(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Clears++
	p.cookies = nil
	return nil
}

func (p *FakePage) ScrollToBottom(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Scrolls++
	return nil
}

func (p *FakePage) Screenshot(context.Context) ([]byte, error) {
	return PNG, nil
}

var _ scraper.Page = (*FakePage)(nil)
