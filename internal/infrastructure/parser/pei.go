package parser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"PharmaWatch/internal/domain"
	"PharmaWatch/internal/scanner"
)

// PEIScannerName is the registry key of the search-style source.
const PEIScannerName = "pei"

const peiUpdatedMarker = "Aktualisiert:"

var peiLinkDateExpr = regexp.MustCompile(`\((\d{2}\.\d{2}\.\d{4})\)`)

// PEISource reads the PEI safety-information search. Listing pages only
// reveal links; title, date and download link come from the detail page.
type PEISource struct {
	site   scanner.Site
	logger *slog.Logger
}

var _ scanner.Source = (*PEISource)(nil)

// NewPEISource builds the source for a configured site.
func NewPEISource(site scanner.Site) scanner.Source {
	logger := site.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PEISource{site: site, logger: logger}
}

// Name identifies the site.
func (p *PEISource) Name() string {
	return p.site.Name
}

// PageURL renders the search URL for a 1-based page.
func (p *PEISource) PageURL(page int) string {
	return buildPageURL(p.site.PageURL, page)
}

// MaxPages caps the listing walk.
func (p *PEISource) MaxPages() int {
	return p.site.MaxPages
}

// StopWhenNoNew is false; the search ends when a page has no result links.
func (p *PEISource) StopWhenNoNew() bool {
	return false
}

// ExtractListing keeps result links whose title names a safety or information letter.
func (p *PEISource) ExtractListing(doc *goquery.Document) scanner.Listing {
	links := doc.Find(".searchresult > .teaser a")
	listing := scanner.Listing{Found: links.Length() > 0, Rows: links.Length()}

	links.Each(func(_ int, link *goquery.Selection) {
		title := strings.TrimSpace(link.Text())
		if !isPEILetterTitle(title) {
			return
		}
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		detailURL, err := resolveURL(p.site.BaseURL, href)
		if err != nil {
			p.logger.Warn("skip search result", "href", href, "error", err)
			return
		}
		listing.Candidates = append(listing.Candidates, domain.Candidate{
			URL: detailURL,
			Letter: domain.SafetyLetter{
				Source:    domain.SourcePEI,
				Title:     title,
				DetailURL: detailURL,
			},
		})
	})

	return listing
}

func isPEILetterTitle(title string) bool {
	return domain.IsSafetyLetterTitle(title) || strings.Contains(strings.ToLower(title), "informationsbrief")
}

// ExtractDetail reads title, abstract, download link and publication date.
// The date prefers the one embedded in the download link text and falls back
// to the page's last-updated block.
func (p *PEISource) ExtractDetail(cand domain.Candidate, doc *goquery.Document) (scanner.Detail, error) {
	content := doc.Find(".content")

	title := collapseSpace(content.ChildrenFiltered("h1").First().Text())
	if title == "" {
		return scanner.Detail{}, fmt.Errorf("%w: title", domain.ErrElementMissing)
	}

	download := content.Find("a").First()
	href, ok := download.Attr("href")
	if !ok {
		return scanner.Detail{}, fmt.Errorf("%w: download link", domain.ErrElementMissing)
	}
	downloadURL, err := resolveURL(p.site.BaseURL, href)
	if err != nil {
		return scanner.Detail{}, fmt.Errorf("%w: %w", domain.ErrParse, err)
	}

	published, fallback, err := peiPublicationDate(doc, download.Text())
	if err != nil {
		return scanner.Detail{}, err
	}

	var short *string
	if abstract := content.ChildrenFiltered(".abstract").ChildrenFiltered("p").First(); abstract.Length() > 0 {
		short = optionalText(abstract.Text())
	}

	return scanner.Detail{
		Letter: domain.SafetyLetter{
			Kind:             domain.ClassifyLetter(title),
			Source:           domain.SourcePEI,
			Published:        published,
			Title:            title,
			DetailURL:        cand.URL,
			DownloadURL:      downloadURL,
			ShortDescription: short,
		},
		DateFallback: fallback,
	}, nil
}

func peiPublicationDate(doc *goquery.Document, linkText string) (domain.Date, bool, error) {
	if m := peiLinkDateExpr.FindStringSubmatch(linkText); m != nil {
		d, err := domain.ParseSourceDate(m[1])
		if err != nil {
			return domain.Date{}, false, fmt.Errorf("%w: %w", domain.ErrParse, err)
		}
		return d, false, nil
	}

	block := doc.Find(".c-date__created > p").First()
	if block.Length() == 0 {
		return domain.Date{}, false, fmt.Errorf("%w: publication date", domain.ErrElementMissing)
	}

	raw := block.Text()
	if idx := strings.LastIndex(raw, peiUpdatedMarker); idx >= 0 {
		raw = raw[idx+len(peiUpdatedMarker):]
	}
	d, err := domain.ParseSourceDate(raw)
	if err != nil {
		return domain.Date{}, false, fmt.Errorf("%w: %w", domain.ErrParse, err)
	}
	return d, true, nil
}
