package ports

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding"

	"PharmaWatch/internal/domain"
)

// DocumentFetcher retrieves and parses an HTML page.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// TextFetcher retrieves a textual body and decodes it from the given encoding into UTF-8.
type TextFetcher interface {
	FetchText(ctx context.Context, url string, enc encoding.Encoding) (string, error)
}

// ShortageStore is the writer side of the shortage-report collection.
type ShortageStore interface {
	ReplaceShortages(reports []domain.ShortageReport)
}

// LetterStore is the writer side of the safety-letter collection.
type LetterStore interface {
	FilterUnseen(candidates []domain.Candidate) []domain.Candidate
	PutLetter(letter domain.SafetyLetter)
	MarkLettersLoaded()
}

// SnapshotReader is the read-only view used by the query layer.
type SnapshotReader interface {
	Shortages() ([]domain.ShortageReport, bool)
	Letters() ([]domain.SafetyLetter, bool)
	Ready() (shortages, letters bool)
	Counts() (shortages, letters int)
}

// LetterCrawler runs one full crawl of a letter archive into the store.
type LetterCrawler interface {
	Name() string
	Crawl(ctx context.Context) (domain.CrawlStats, error)
}

// ShortageRefresher replaces the cached shortage reports from their feed.
type ShortageRefresher interface {
	Refresh(ctx context.Context) (domain.FeedStats, error)
}

// Clock abstracts wall time and sleeping so scheduling can be tested without waiting.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Scheduler controls when refresh cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(ctx context.Context) error) error
	Stop(ctx context.Context) error
	Status() string
}
