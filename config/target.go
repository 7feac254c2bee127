package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Target file errors. They are distinct so the caller can report which of
// the three failure modes occurred.
var (
	ErrConfigNotFound   = errors.New("config file not found")
	ErrConfigMalformed  = errors.New("config file is not valid UTF-8 JSON")
	ErrConfigMissingKey = errors.New("config file is missing a required key")
)

// Target describes the listing page to crawl.
type Target struct {
	BaseURL string

	// Params keeps the query parameters in file order.
	Params *orderedmap.OrderedMap[string, string]
}

type targetFile struct {
	BaseURL     *string                              `json:"base_url"`
	QueryParams *orderedmap.OrderedMap[string, any] `json:"query_params"`
}

// LoadTarget reads the JSON target file at path.
func LoadTarget(path string) (*Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseTarget(data)
}

// ParseTarget decodes a target file body.
func ParseTarget(data []byte) (*Target, error) {
	if !utf8.Valid(data) {
		return nil, ErrConfigMalformed
	}

	var raw targetFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigMalformed, err)
	}
	if raw.BaseURL == nil || strings.TrimSpace(*raw.BaseURL) == "" {
		return nil, fmt.Errorf("%w: base_url", ErrConfigMissingKey)
	}
	if raw.QueryParams == nil {
		return nil, fmt.Errorf("%w: query_params", ErrConfigMissingKey)
	}

	params := orderedmap.New[string, string]()
	for pair := raw.QueryParams.Oldest(); pair != nil; pair = pair.Next() {
		params.Set(pair.Key, formatParam(pair.Value))
	}

	return &Target{
		BaseURL: strings.TrimSpace(*raw.BaseURL),
		Params:  params,
	}, nil
}

// URL returns the base URL with the query string appended in parameter
// order. Keys and values are query-escaped. An empty parameter set returns
// the base URL unchanged.
func (t *Target) URL() string {
	if t.Params == nil || t.Params.Len() == 0 {
		return t.BaseURL
	}
	parts := make([]string, 0, t.Params.Len())
	for pair := t.Params.Oldest(); pair != nil; pair = pair.Next() {
		parts = append(parts, url.QueryEscape(pair.Key)+"="+url.QueryEscape(pair.Value))
	}
	return t.BaseURL + "?" + strings.Join(parts, "&")
}

// formatParam renders a JSON scalar the way it would appear in a query string.
func formatParam(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
