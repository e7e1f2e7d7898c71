package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"

	"PharmaWatch/internal/domain"
	"PharmaWatch/internal/metrics"
	"PharmaWatch/internal/ports"
)

const shortageSourceName = "shortages"

// LookupEncoding resolves a WHATWG encoding label; empty means Windows-1252.
func LookupEncoding(label string) (encoding.Encoding, error) {
	if strings.TrimSpace(label) == "" {
		return charmap.Windows1252, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	return enc, nil
}

// ShortageFeed downloads the shortage CSV export and replaces the cached report set.
type ShortageFeed struct {
	url     string
	enc     encoding.Encoding
	fetcher ports.TextFetcher
	store   ports.ShortageStore
	logger  *slog.Logger
}

var _ ports.ShortageRefresher = (*ShortageFeed)(nil)

// NewShortageFeed wires the export URL and its character encoding; a nil enc means Windows-1252.
func NewShortageFeed(url string, enc encoding.Encoding, fetcher ports.TextFetcher, store ports.ShortageStore, logger *slog.Logger) *ShortageFeed {
	if enc == nil {
		enc = charmap.Windows1252
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ShortageFeed{url: url, enc: enc, fetcher: fetcher, store: store, logger: logger}
}

// Refresh fetches and parses the whole feed. The store is only touched when
// the document was fetched and its header understood.
func (f *ShortageFeed) Refresh(ctx context.Context) (domain.FeedStats, error) {
	var stats domain.FeedStats

	body, err := f.fetcher.FetchText(ctx, f.url, f.enc)
	if err != nil {
		return stats, fmt.Errorf("fetch shortage feed: %w", err)
	}

	reports, err := ParseShortageCSV(strings.NewReader(body), func(rowErr RowError) {
		stats.Dropped++
		metrics.RecordDropped(shortageSourceName, dropKind(rowErr.Err))
		f.logger.Warn("skip shortage row", "line", rowErr.Line, "error", rowErr.Err)
	})
	if err != nil {
		return stats, fmt.Errorf("parse shortage feed: %w", err)
	}

	f.store.ReplaceShortages(reports)
	stats.Parsed = len(reports)
	f.logger.Info("shortage feed refreshed", "reports", stats.Parsed, "dropped", stats.Dropped, "retractions", retractions(reports))
	return stats, nil
}

func dropKind(err error) string {
	var fieldErr *FieldError
	if !errors.As(err, &fieldErr) {
		return "row"
	}
	switch {
	case errors.Is(err, ErrUnknownValue):
		return "unknown_value"
	case errors.Is(err, ErrMissingValue):
		return "missing_value"
	default:
		return "invalid_field"
	}
}

// retractions counts retraction notices; they are kept as ordinary rows.
func retractions(reports []domain.ShortageReport) int {
	n := 0
	for _, r := range reports {
		if r.NoticeKind == domain.NoticeRetraction {
			n++
		}
	}
	return n
}
