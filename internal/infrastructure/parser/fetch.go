package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding"

	"PharmaWatch/internal/domain"
	"PharmaWatch/internal/ports"
)

const defaultUserAgent = "PharmaWatch/1.0"

// PageFetcher issues GET requests for HTML pages and text exports.
type PageFetcher struct {
	client    *http.Client
	userAgent string
}

var (
	_ ports.DocumentFetcher = (*PageFetcher)(nil)
	_ ports.TextFetcher     = (*PageFetcher)(nil)
)

// NewPageFetcher wires an HTTP client; a nil client gets a 30s timeout.
func NewPageFetcher(client *http.Client, userAgent string) *PageFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &PageFetcher{client: client, userAgent: userAgent}
}

// FetchDocument downloads pageURL and parses it as UTF-8 HTML.
func (p *PageFetcher) FetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := p.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse document %s: %w", domain.ErrTransport, pageURL, err)
	}
	return doc, nil
}

// FetchText downloads url and decodes the body from enc. A nil enc reads the body as is.
func (p *PageFetcher) FetchText(ctx context.Context, url string, enc encoding.Encoding) (string, error) {
	resp, err := p.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if enc != nil {
		body = enc.NewDecoder().Reader(resp.Body)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("%w: read body %s: %w", domain.ErrTransport, url, err)
	}
	return string(raw), nil
}

func (p *PageFetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", domain.ErrTransport, err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request %s: %w", domain.ErrTransport, url, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", domain.ErrTransport, url, resp.Status)
	}
	return resp, nil
}
