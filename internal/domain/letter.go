package domain

import "strings"

// LetterKind distinguishes formal safety letters from information letters.
type LetterKind string

const (
	LetterSafety      LetterKind = "RoteHandBrief"
	LetterInformation LetterKind = "Informationsbrief"
)

// LetterSource names the regulator a letter was published by.
type LetterSource string

const (
	SourceBfArM LetterSource = "BfArM"
	SourcePEI   LetterSource = "PEI"
)

var safetyLetterKeywords = []string{"rote-hand-brief", "rote hand brief", "rote-hand brief"}

// IsSafetyLetterTitle reports whether a title names a formal safety letter.
func IsSafetyLetterTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range safetyLetterKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ClassifyLetter derives the letter kind from its title.
func ClassifyLetter(title string) LetterKind {
	if IsSafetyLetterTitle(title) {
		return LetterSafety
	}
	return LetterInformation
}

// SafetyLetter is one regulator safety communication, keyed by DetailURL.
type SafetyLetter struct {
	Kind             LetterKind   `json:"letter_type"`
	Source           LetterSource `json:"source"`
	Published        Date         `json:"date"`
	Title            string       `json:"title"`
	ActiveSubstances []string     `json:"wirkstoffe"`
	DetailURL        string       `json:"link_to_html"`
	DownloadURL      string       `json:"link_to_pdf"`
	ShortDescription *string      `json:"short_description"`
	LongDescription  *string      `json:"long_description"`
}

// Key returns the identity key used by the letter cache.
func (l SafetyLetter) Key() string {
	return l.DetailURL
}

// Candidate is a letter discovered on a listing page before detail enrichment.
// Letter holds whatever the listing already revealed; DetailURL is always set.
type Candidate struct {
	URL    string
	Letter SafetyLetter
}
