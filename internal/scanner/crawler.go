package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"PharmaWatch/internal/domain"
	"PharmaWatch/internal/fetcher"
	"PharmaWatch/internal/metrics"
	"PharmaWatch/internal/ports"
)

const defaultMaxPages = 200

// Crawler walks a source's index, skips cached letters, fetches the rest with
// bounded concurrency and merges the results into the letter store.
type Crawler struct {
	source Source
	pages  ports.DocumentFetcher
	store  ports.LetterStore
	limit  int
	logger *slog.Logger
}

// NewCrawler wires a source to a page fetcher and the letter store.
func NewCrawler(source Source, pages ports.DocumentFetcher, store ports.LetterStore, limit int, logger *slog.Logger) *Crawler {
	if limit <= 0 {
		limit = fetcher.DefaultLimit
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Crawler{
		source: source,
		pages:  pages,
		store:  store,
		limit:  limit,
		logger: logger.With("source", source.Name()),
	}
}

// Name identifies the crawled source.
func (c *Crawler) Name() string {
	return c.source.Name()
}

// Crawl runs one Listing, Filter, Detail-Fetch and Merge pass.
// A listing-level failure aborts before anything is merged.
func (c *Crawler) Crawl(ctx context.Context) (domain.CrawlStats, error) {
	var stats domain.CrawlStats

	candidates, pages, err := c.list(ctx)
	stats.Pages = pages
	if err != nil {
		return stats, err
	}
	stats.Candidates = len(candidates)

	unseen := c.store.FilterUnseen(candidates)
	stats.Unseen = len(unseen)
	c.logger.Info("listing finished", "pages", pages, "candidates", len(candidates), "unseen", len(unseen))

	results := fetcher.Run(ctx, unseen, c.limit, c.fetchDetail)
	for i, res := range results {
		if res.Err != nil {
			stats.Dropped++
			metrics.RecordDropped(c.source.Name(), dropReason(res.Err))
			c.logger.Warn("letter dropped", "url", unseen[i].URL, "error", res.Err)
			continue
		}
		if res.Value.DateFallback {
			c.logger.Warn("publication date taken from last-updated block", "url", unseen[i].URL, "date_source", "last_updated")
		}
		c.store.PutLetter(res.Value.Letter)
		stats.Inserted++
	}

	c.store.MarkLettersLoaded()
	return stats, nil
}

func (c *Crawler) list(ctx context.Context) ([]domain.Candidate, int, error) {
	maxPages := c.source.MaxPages()
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	var (
		candidates []domain.Candidate
		seen       = map[string]struct{}{}
		pages      int
	)

	for page := 1; page <= maxPages; page++ {
		doc, err := c.pages.FetchDocument(ctx, c.source.PageURL(page))
		if err != nil {
			return nil, pages, fmt.Errorf("listing page %d: %w", page, err)
		}
		pages++

		listing := c.source.ExtractListing(doc)
		if !listing.Found || listing.Rows == 0 {
			c.logger.Debug("listing exhausted", "page", page, "found", listing.Found)
			break
		}

		added := 0
		for _, cand := range listing.Candidates {
			if _, ok := seen[cand.URL]; ok {
				continue
			}
			seen[cand.URL] = struct{}{}
			candidates = append(candidates, cand)
			added++
		}
		c.logger.Debug("listing page", "page", page, "rows", listing.Rows, "new", added)

		if added == 0 && c.source.StopWhenNoNew() {
			break
		}
		if page == maxPages {
			c.logger.Warn("listing stopped at page limit", "max_pages", maxPages)
		}
	}

	return candidates, pages, nil
}

func (c *Crawler) fetchDetail(ctx context.Context, cand domain.Candidate) (Detail, error) {
	doc, err := c.pages.FetchDocument(ctx, cand.URL)
	if err != nil {
		return Detail{}, err
	}
	return c.source.ExtractDetail(cand, doc)
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrElementMissing):
		return "missing_element"
	case errors.Is(err, domain.ErrParse):
		return "parse"
	case errors.Is(err, domain.ErrTransport):
		return "transport"
	default:
		return "other"
	}
}

var _ ports.LetterCrawler = (*Crawler)(nil)
