package scanner

import (
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"PharmaWatch/internal/domain"
)

// Site carries the per-source settings provided by config.
type Site struct {
	Name     string
	PageURL  string
	BaseURL  string
	MaxPages int
	Logger   *slog.Logger
}

// Listing is what one index page contributed.
// Found is false when the listing container is absent; Rows counts the raw
// entries seen before filtering, Candidates the usable ones.
type Listing struct {
	Found      bool
	Rows       int
	Candidates []domain.Candidate
}

// Detail is a fully populated letter extracted from a detail page.
// DateFallback is set when the publication date came from weaker evidence.
type Detail struct {
	Letter       domain.SafetyLetter
	DateFallback bool
}

// Source captures the markup-specific half of one letter archive (BfArM, PEI, etc.).
type Source interface {
	Name() string
	PageURL(page int) string
	MaxPages() int
	// StopWhenNoNew ends listing once a page adds no candidate not seen earlier in the walk.
	StopWhenNoNew() bool
	ExtractListing(doc *goquery.Document) Listing
	ExtractDetail(candidate domain.Candidate, doc *goquery.Document) (Detail, error)
}

// Factory builds a Source for a configured site.
type Factory func(site Site) Source

// Registry keeps a mapping from scanner names to source factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds or replaces a source factory.
func (r *Registry) Register(name string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[name] = factory
}

// Resolve builds the source registered under name for the given site.
func (r *Registry) Resolve(name string, site Site) (Source, error) {
	if factory, ok := r.factories[name]; ok {
		return factory(site), nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}
