package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/tendercrawl/session"
	"github.com/ysmood/gson"
)

// rodPage implements Page on top of a Rod tab.
type rodPage struct {
	page    *rod.Page
	timeout time.Duration // per-navigation deadline
	logger  *slog.Logger
}

// domSettler is the part of *rod.Page used to let a new document settle.
type domSettler interface {
	WaitLoad() error
	WaitDOMStable(d time.Duration, diff float64) error
}

// settle waits for the load event and then for the DOM to stop changing.
// Failures are logged and the current DOM is used as is.
func settle(s domSettler, logger *slog.Logger) {
	if err := s.WaitLoad(); err != nil {
		logger.Debug("load event not observed, proceeding with current DOM", "error", err)
		return
	}
	if err := s.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		logger.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return categorizeError(err, "navigation failed")
	}
	settle(pg, p.logger)
	return nil
}

func (p *rodPage) WaitFor(ctx context.Context, selector string, cond Condition) (string, error) {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return "", err
	}
	switch cond {
	case Visible:
		if err := el.WaitVisible(); err != nil {
			return "", err
		}
	case Clickable:
		if _, err := el.WaitInteractable(); err != nil {
			return "", err
		}
	}
	return el.HTML()
}

func (p *rodPage) Reload(ctx context.Context) error {
	pg := p.page.Context(ctx)
	if err := pg.Reload(); err != nil {
		return categorizeError(err, "reload failed")
	}
	settle(pg, p.logger)
	return nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		// Fall back to the document's own view of its location.
		if href := evalStringOrEmpty(p.page.Context(ctx), `() => window.location.href`); href != "" {
			return href, nil
		}
		return "", err
	}
	return info.URL, nil
}

func (p *rodPage) Cookies(ctx context.Context) ([]session.Cookie, error) {
	raw, err := p.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, err
	}
	out := make([]session.Cookie, 0, len(raw))
	for _, c := range raw {
		out = append(out, session.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return out, nil
}

func (p *rodPage) SetCookie(ctx context.Context, c session.Cookie) error {
	path := c.Path
	if path == "" {
		path = "/"
	}
	param := &proto.NetworkCookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     path,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
		SameSite: proto.NetworkCookieSameSite(c.SameSite),
	}
	if c.Expires > 0 {
		param.Expires = proto.TimeSinceEpoch(c.Expires)
	}
	return p.page.Context(ctx).SetCookies([]*proto.NetworkCookieParam{param})
}

func (p *rodPage) ClearCookies(ctx context.Context) error {
	return proto.NetworkClearBrowserCookies{}.Call(p.page.Context(ctx))
}

func (p *rodPage) ScrollToBottom(ctx context.Context) error {
	_, err := p.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (p *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(true, nil)
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
