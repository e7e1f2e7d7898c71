package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PharmaWatch/internal/domain"
	"PharmaWatch/internal/infrastructure/storage"
	"PharmaWatch/internal/scanner"
)

const peiSearchPage = `
<div class="searchresult">
  <div class="teaser"><a href="SharedDocs/rhb-impfstoff.html">Rote-Hand-Brief zu Impfstoff X</a></div>
  <div class="teaser"><a href="SharedDocs/presse.html">Pressemitteilung zum Jahresbericht</a></div>
  <div class="teaser"><a href="SharedDocs/info-blut.html">Informationsbrief Blutprodukte</a></div>
</div>`

const peiDetailWithLinkDate = `
<div class="content">
  <h1> Rote-Hand-Brief zu Impfstoff X </h1>
  <div class="abstract"><p>Kurzbeschreibung <strong>wichtig</strong></p></div>
  <a href="/SharedDocs/Downloads/rhb-x.pdf">Rote-Hand-Brief (14.05.2025)</a>
</div>
<div class="c-date__created"><p>Aktualisiert: 01.06.2025</p></div>`

const peiDetailWithUpdatedDate = `
<div class="content">
  <h1>Informationsbrief Blutprodukte</h1>
  <a href="/SharedDocs/Downloads/info-blut.pdf">Download</a>
</div>
<div class="c-date__created"><p>Aktualisiert: 02.04.2025</p></div>`

func TestPEIExtractListing(t *testing.T) {
	t.Parallel()

	src := NewPEISource(scanner.Site{BaseURL: "https://www.pei.de/"})
	listing := src.ExtractListing(newDoc(t, peiSearchPage))

	assert.True(t, listing.Found)
	assert.Equal(t, 3, listing.Rows)
	require.Len(t, listing.Candidates, 2)
	assert.Equal(t, "https://www.pei.de/SharedDocs/rhb-impfstoff.html", listing.Candidates[0].URL)
	assert.Equal(t, "https://www.pei.de/SharedDocs/info-blut.html", listing.Candidates[1].URL)

	empty := src.ExtractListing(newDoc(t, `<div class="searchresult"></div>`))
	assert.False(t, empty.Found)
	assert.Zero(t, empty.Rows)
}

func TestPEIExtractDetailLinkDate(t *testing.T) {
	t.Parallel()

	src := NewPEISource(scanner.Site{BaseURL: "https://www.pei.de/"})
	cand := domain.Candidate{URL: "https://www.pei.de/SharedDocs/rhb-impfstoff.html"}

	detail, err := src.ExtractDetail(cand, newDoc(t, peiDetailWithLinkDate))
	require.NoError(t, err)
	assert.False(t, detail.DateFallback)

	l := detail.Letter
	assert.Equal(t, "Rote-Hand-Brief zu Impfstoff X", l.Title)
	assert.Equal(t, domain.LetterSafety, l.Kind)
	assert.Equal(t, domain.SourcePEI, l.Source)
	assert.Equal(t, domain.NewDate(2025, time.May, 14), l.Published)
	assert.Equal(t, cand.URL, l.DetailURL)
	assert.Equal(t, "https://www.pei.de/SharedDocs/Downloads/rhb-x.pdf", l.DownloadURL)
	require.NotNil(t, l.ShortDescription)
	assert.Equal(t, "Kurzbeschreibung wichtig", *l.ShortDescription)
	assert.Nil(t, l.ActiveSubstances)
	assert.Nil(t, l.LongDescription)
}

func TestPEIExtractDetailFallbackDate(t *testing.T) {
	t.Parallel()

	src := NewPEISource(scanner.Site{BaseURL: "https://www.pei.de/"})
	detail, err := src.ExtractDetail(domain.Candidate{URL: "https://www.pei.de/b"}, newDoc(t, peiDetailWithUpdatedDate))
	require.NoError(t, err)
	assert.True(t, detail.DateFallback)
	assert.Equal(t, domain.NewDate(2025, time.April, 2), detail.Letter.Published)
	assert.Equal(t, domain.LetterInformation, detail.Letter.Kind)
	assert.Nil(t, detail.Letter.ShortDescription)
}

func TestPEIExtractDetailMissingElements(t *testing.T) {
	t.Parallel()

	src := NewPEISource(scanner.Site{BaseURL: "https://www.pei.de/"})
	cand := domain.Candidate{URL: "https://www.pei.de/c"}

	cases := map[string]string{
		"no title":    `<div class="content"><a href="/x.pdf">Download (01.01.2025)</a></div>`,
		"no download": `<div class="content"><h1>Rote-Hand-Brief</h1></div>`,
		"no date":     `<div class="content"><h1>Rote-Hand-Brief</h1><a href="/x.pdf">Download</a></div>`,
	}
	for name, html := range cases {
		_, err := src.ExtractDetail(cand, newDoc(t, html))
		assert.ErrorIs(t, err, domain.ErrElementMissing, name)
	}

	_, err := src.ExtractDetail(cand, newDoc(t, `<div class="content"><h1>Rote-Hand-Brief</h1><a href="/x.pdf">Download (31.02.2025)</a></div>`))
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestPEICrawlEndToEnd(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/suche", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			_, _ = w.Write([]byte(peiSearchPage))
			return
		}
		_, _ = w.Write([]byte(`<div class="searchresult"></div>`))
	})
	mux.HandleFunc("/SharedDocs/rhb-impfstoff.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(peiDetailWithLinkDate))
	})
	mux.HandleFunc("/SharedDocs/info-blut.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(peiDetailWithUpdatedDate))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	src := NewPEISource(scanner.Site{
		Name:    "pei",
		PageURL: server.URL + "/suche?page=" + PagePlaceholder,
		BaseURL: server.URL + "/",
	})
	store := storage.NewMemoryStore()
	store.PutLetter(domain.SafetyLetter{DetailURL: server.URL + "/SharedDocs/info-blut.html", Title: "cached"})

	stats, err := scanner.NewCrawler(src, NewPageFetcher(server.Client(), ""), store, 5, nil).Crawl(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pages)
	assert.Equal(t, 2, stats.Candidates)
	assert.Equal(t, 1, stats.Unseen)
	assert.Equal(t, 1, stats.Inserted)

	_, letters := store.Counts()
	assert.Equal(t, 2, letters)
	assert.True(t, store.HasLetter(server.URL+"/SharedDocs/rhb-impfstoff.html"))
}
