/*
Package session persists browser cookies per target domain so a crawl can
resume an authenticated session across runs.
*/
package session

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Cookie is one persisted browser cookie.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  float64 // seconds since epoch; 0 for session cookies
	HTTPOnly bool
	Secure   bool
	SameSite string
}

// State is the cookie set saved for one normalized domain.
type State struct {
	Domain  string
	Cookies []Cookie
}

// Store reads and writes one cookie file per domain under Dir.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a Store rooted at dir. The directory is created lazily
// on the first Save.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// DomainKey normalizes a target URL to its session key: the network
// location with the scheme and a leading "www." removed. Inputs without a
// scheme are treated as a bare host.
func DomainKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	host := ""
	if err == nil {
		host = u.Host
	}
	if host == "" {
		host = strings.SplitN(strings.TrimPrefix(rawURL, "//"), "/", 2)[0]
	}
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// Path returns the cookie file for a domain key.
func (s *Store) Path(domain string) string {
	// ":" is not portable in file names (host:port keys).
	name := strings.ReplaceAll(domain, ":", "_") + "_cookies.gob"
	return filepath.Join(s.dir, name)
}

// Load returns the saved state for domain. ok is false, with a nil error,
// when nothing has been saved yet.
func (s *Store) Load(domain string) (state State, ok bool, err error) {
	path := s.Path(domain)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("no saved session, one will be created after login",
				"domain", domain, "path", path)
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("session: read %s: %w", path, err)
	}

	var cookies []Cookie
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&cookies); err != nil {
		return State{}, false, fmt.Errorf("session: decode %s: %w", path, err)
	}

	s.logger.Info("session loaded", "domain", domain, "cookies", len(cookies))
	return State{Domain: domain, Cookies: cookies}, true, nil
}

// Save appends newCookies to whatever is already stored for domain and
// writes the union back.
//
// Cookies are not de-duplicated: repeated saves of the same cookie grow the
// file. The identity of a cookie (name+domain+path or otherwise) has never
// been pinned down, so the behaviour is kept as-is.
func (s *Store) Save(domain string, newCookies []Cookie) (State, error) {
	existing, _, err := s.Load(domain)
	if err != nil {
		return State{}, err
	}

	merged := make([]Cookie, 0, len(existing.Cookies)+len(newCookies))
	merged = append(merged, existing.Cookies...)
	merged = append(merged, newCookies...)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return State{}, fmt.Errorf("session: create dir %s: %w", s.dir, err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(merged); err != nil {
		return State{}, fmt.Errorf("session: encode: %w", err)
	}

	path := s.Path(domain)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return State{}, fmt.Errorf("session: write %s: %w", path, err)
	}

	s.logger.Info("session saved", "domain", domain, "path", path,
		"added", len(newCookies), "total", len(merged))
	return State{Domain: domain, Cookies: merged}, nil
}
