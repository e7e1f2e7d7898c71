package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"PharmaWatch/internal/domain"
	"PharmaWatch/internal/scanner"
)

// BfArMScannerName is the registry key of the table-style listing source.
const BfArMScannerName = "bfarm"

const (
	bfarmDownloadSuffix  = "?__blob=publicationFile"
	bfarmSubstanceMarker = "Wirkstoff:"
)

// BfArMSource reads the paginated letter table of the BfArM archive.
// The listing carries nearly every field; detail pages only add the long description.
type BfArMSource struct {
	site   scanner.Site
	logger *slog.Logger
}

var _ scanner.Source = (*BfArMSource)(nil)

// NewBfArMSource builds the source for a configured site.
func NewBfArMSource(site scanner.Site) scanner.Source {
	logger := site.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BfArMSource{site: site, logger: logger}
}

// Name identifies the site.
func (b *BfArMSource) Name() string {
	return b.site.Name
}

// PageURL renders the listing URL for a 1-based page.
func (b *BfArMSource) PageURL(page int) string {
	return buildPageURL(b.site.PageURL, page)
}

// MaxPages caps the listing walk.
func (b *BfArMSource) MaxPages() int {
	return b.site.MaxPages
}

// StopWhenNoNew is true: the table has no reliable last-page marker.
func (b *BfArMSource) StopWhenNoNew() bool {
	return true
}

// ExtractListing parses the first table; each two-column row becomes a candidate.
func (b *BfArMSource) ExtractListing(doc *goquery.Document) scanner.Listing {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return scanner.Listing{}
	}

	rows := table.Find("tr")
	listing := scanner.Listing{Found: true, Rows: rows.Length()}

	rows.Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		cand, err := b.parseRow(cells)
		if err != nil {
			b.logger.Warn("skip listing row", "row", i, "error", err)
			return
		}
		listing.Candidates = append(listing.Candidates, cand)
	})

	return listing
}

func (b *BfArMSource) parseRow(cells *goquery.Selection) (domain.Candidate, error) {
	if cells.Length() != 2 {
		return domain.Candidate{}, fmt.Errorf("%w: expected 2 columns, got %d", domain.ErrParse, cells.Length())
	}

	published, err := domain.ParseSourceDate(cells.Eq(0).Text())
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("%w: %w", domain.ErrParse, err)
	}

	data := cells.Eq(1)
	link := data.Find("a").First()
	if link.Length() == 0 {
		return domain.Candidate{}, fmt.Errorf("%w: letter link", domain.ErrElementMissing)
	}
	href, ok := link.Attr("href")
	if !ok {
		return domain.Candidate{}, fmt.Errorf("%w: letter link href", domain.ErrElementMissing)
	}

	canonical, _, _ := strings.Cut(href, ".html")
	detailURL, err := resolveURL(b.site.BaseURL, canonical)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("%w: %w", domain.ErrParse, err)
	}

	inner, err := link.Html()
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("%w: link markup: %w", domain.ErrParse, err)
	}
	title := plainText(inner)

	teaser := data.Find("p.teasertext-wrapper").First()
	if teaser.Length() == 0 {
		return domain.Candidate{}, fmt.Errorf("%w: teaser paragraph", domain.ErrElementMissing)
	}
	short, substances := splitTeaser(teaser)

	return domain.Candidate{
		URL: detailURL,
		Letter: domain.SafetyLetter{
			Kind:             domain.ClassifyLetter(title),
			Source:           domain.SourceBfArM,
			Published:        published,
			Title:            title,
			ActiveSubstances: substances,
			DetailURL:        detailURL,
			DownloadURL:      detailURL + bfarmDownloadSuffix,
			ShortDescription: optionalText(short),
		},
	}, nil
}

// splitTeaser separates the free-text teaser from the embedded substance span.
func splitTeaser(teaser *goquery.Selection) (string, []string) {
	var (
		description strings.Builder
		substances  = []string{}
	)

	teaser.Contents().Each(func(_ int, node *goquery.Selection) {
		switch {
		case isTextNode(node):
			description.WriteString(node.Text())
		case goquery.NodeName(node) == "span" && node.HasClass("wirkstoff-wrapper"):
			substances = parseSubstances(node.Text())
		default:
			description.WriteString(node.Text())
		}
	})

	return collapseSpace(description.String()), substances
}

func parseSubstances(raw string) []string {
	if idx := strings.LastIndex(raw, bfarmSubstanceMarker); idx >= 0 {
		raw = raw[idx+len(bfarmSubstanceMarker):]
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '/' })

	substances := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			substances = append(substances, p)
		}
	}
	return substances
}

// ExtractDetail adds the long description; its absence is not an error.
func (b *BfArMSource) ExtractDetail(cand domain.Candidate, doc *goquery.Document) (scanner.Detail, error) {
	letter := cand.Letter
	letter.DetailURL = cand.URL
	if letter.Title == "" {
		return scanner.Detail{}, fmt.Errorf("%w: title", domain.ErrElementMissing)
	}

	if p := doc.Find(".content > p").First(); p.Length() > 0 {
		letter.LongDescription = optionalText(p.Text())
	}
	return scanner.Detail{Letter: letter}, nil
}
