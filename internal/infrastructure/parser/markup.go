package parser

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// PagePlaceholder is replaced by the page number in listing URL templates.
const PagePlaceholder = "{page}"

var strictPolicy = bluemonday.StrictPolicy()

func buildPageURL(template string, page int) string {
	return strings.ReplaceAll(template, PagePlaceholder, strconv.Itoa(page))
}

// resolveURL makes href absolute against base.
func resolveURL(base, href string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %s: %w", base, err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("invalid href %s: %w", href, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}

// plainText strips every tag from an HTML fragment and normalises whitespace.
func plainText(fragment string) string {
	return collapseSpace(html.UnescapeString(strictPolicy.Sanitize(fragment)))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func isTextNode(s *goquery.Selection) bool {
	return goquery.NodeName(s) == "#text"
}
