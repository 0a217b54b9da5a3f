// Package fetch retrieves web pages and extracts content for the
// GET_URL directive. Three modes are supported: readable text, the list
// of outbound links, or the raw body.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// Extraction modes accepted by Fetch.
const (
	ModeOutput = "output" // readable page text
	ModeLinks  = "links"  // absolute outbound links, one per line
	ModeRaw    = "raw"    // unprocessed body
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxBody   = 2 << 20 // 2 MiB
	defaultUserAgent = "memoir-go/1.0"
)

// HTTPFetcher fetches pages over HTTP(S).
type HTTPFetcher struct {
	client    *http.Client
	maxBody   int64
	userAgent string
	log       zerolog.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient replaces the HTTP client, for custom transports or tests.
func WithClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithMaxBodySize caps how many body bytes are read.
func WithMaxBodySize(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// WithUserAgent sets the request User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithLogger sets the fetcher's logger. The default discards logs.
func WithLogger(log zerolog.Logger) Option {
	return func(f *HTTPFetcher) {
		f.log = log
	}
}

// New creates a fetcher with a 30s timeout and a 2 MiB body cap.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		maxBody:   defaultMaxBody,
		userAgent: defaultUserAgent,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves rawURL and extracts content per mode. Unknown modes
// fall back to ModeOutput.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, mode string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %s", rawURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return "", fmt.Errorf("read body of %s: %w", rawURL, err)
	}
	f.log.Debug().Str("url", rawURL).Str("mode", mode).Int("bytes", len(body)).Msg("fetched page")

	switch mode {
	case ModeRaw:
		return string(body), nil
	case ModeLinks:
		return extractLinks(rawURL, body)
	default:
		return extractText(body)
	}
}

// extractText pulls readable text out of HTML: scripts, styles and
// noscript blocks are dropped, then whitespace is collapsed.
func extractText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// extractLinks collects unique http(s) links resolved against the page
// URL, in document order, one per line.
func extractLinks(pageURL string, body []byte) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse base url %s: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var links []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""
		s := abs.String()
		if !seen[s] {
			seen[s] = true
			links = append(links, s)
		}
	})
	return strings.Join(links, "\n"), nil
}
