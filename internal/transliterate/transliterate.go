// Package transliterate turns romanized Hindi words into Devanagari
// suggestions through Google Input Tools.
package transliterate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://inputtools.google.com/request"
	inputTool      = "hi-t-i0-und"
	maxSuggestions = 5
)

// Cache stores suggestion lists per word.
type Cache interface {
	Get(ctx context.Context, word string) ([]string, bool)
	Set(ctx context.Context, word string, suggestions []string)
}

type Client struct {
	baseURL string
	client  *http.Client
	cache   Cache
	logger  *zap.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) requestURL(text string) string {
	q := url.Values{}
	q.Set("itc", inputTool)
	q.Set("num", fmt.Sprint(maxSuggestions))
	q.Set("text", text)
	return c.baseURL + "?" + q.Encode()
}

// Raw fetches the upstream reply for text and returns the body untouched.
func (c *Client) Raw(ctx context.Context, text string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(text), nil)
	if err != nil {
		return nil, fmt.Errorf("transliterate: build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transliterate: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transliterate: read body: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("transliterate: upstream returned non-JSON body (status %d)", resp.StatusCode)
	}
	return body, nil
}

// Suggest returns up to five Devanagari spellings for word. Upstream failures
// and unexpected replies yield an empty list.
func (c *Client) Suggest(ctx context.Context, word string) []string {
	word = strings.TrimSpace(word)
	if word == "" {
		return []string{}
	}
	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, word); ok {
			return cached
		}
	}

	body, err := c.Raw(ctx, word)
	if err != nil {
		c.logger.Debug("transliteration lookup failed", zap.String("word", word), zap.Error(err))
		return []string{}
	}
	suggestions := ParseSuggestions(body)
	if c.cache != nil && len(suggestions) > 0 {
		c.cache.Set(ctx, word, suggestions)
	}
	return suggestions
}

// ParseSuggestions reads ["SUCCESS", [[word, [s1, s2, ...], ...]]].
func ParseSuggestions(body []byte) []string {
	var top []json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil || len(top) < 2 {
		return []string{}
	}
	var status string
	if err := json.Unmarshal(top[0], &status); err != nil || status != "SUCCESS" {
		return []string{}
	}
	var groups [][]json.RawMessage
	if err := json.Unmarshal(top[1], &groups); err != nil || len(groups) == 0 || len(groups[0]) < 2 {
		return []string{}
	}
	var suggestions []string
	if err := json.Unmarshal(groups[0][1], &suggestions); err != nil || suggestions == nil {
		return []string{}
	}
	return suggestions
}
