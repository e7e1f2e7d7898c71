package storage

import (
	"slices"
	"sync"

	"PharmaWatch/internal/domain"
	"PharmaWatch/internal/metrics"
	"PharmaWatch/internal/ports"
)

// MemoryStore is the process-wide cache of shortage reports and safety letters.
// A single RWMutex guards both collections and their readiness flags.
type MemoryStore struct {
	mu sync.RWMutex

	shortages      []domain.ShortageReport
	shortagesReady bool

	letters      map[string]domain.SafetyLetter
	lettersReady bool
}

var (
	_ ports.ShortageStore  = (*MemoryStore)(nil)
	_ ports.LetterStore    = (*MemoryStore)(nil)
	_ ports.SnapshotReader = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store with both collections not yet loaded.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{letters: map[string]domain.SafetyLetter{}}
}

// ReplaceShortages swaps in a fully assembled report set and marks it ready.
func (s *MemoryStore) ReplaceShortages(reports []domain.ShortageReport) {
	staged := slices.Clone(reports)
	if staged == nil {
		staged = []domain.ShortageReport{}
	}

	s.mu.Lock()
	s.shortages = staged
	s.shortagesReady = true
	s.mu.Unlock()

	metrics.SetCollectionSize("shortages", len(staged))
}

// Shortages returns a copy of the current report set and whether it has been loaded.
func (s *MemoryStore) Shortages() ([]domain.ShortageReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.shortagesReady {
		return nil, false
	}
	return slices.Clone(s.shortages), true
}

// HasLetter reports whether a letter with the given key is cached.
func (s *MemoryStore) HasLetter(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.letters[key]
	return ok
}

// FilterUnseen returns the candidates whose URL is not yet cached, preserving order.
func (s *MemoryStore) FilterUnseen(candidates []domain.Candidate) []domain.Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unseen := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := s.letters[c.URL]; ok {
			continue
		}
		unseen = append(unseen, c)
	}
	return unseen
}

// PutLetter inserts a letter under its key, overwriting any previous entry.
func (s *MemoryStore) PutLetter(letter domain.SafetyLetter) {
	s.mu.Lock()
	s.letters[letter.Key()] = letter
	size := len(s.letters)
	s.mu.Unlock()

	metrics.SetCollectionSize("letters", size)
}

// MarkLettersLoaded flags the letter collection as populated by a completed crawl.
func (s *MemoryStore) MarkLettersLoaded() {
	s.mu.Lock()
	s.lettersReady = true
	s.mu.Unlock()
}

// Letters returns the cached letters in no particular order and whether they have been loaded.
func (s *MemoryStore) Letters() ([]domain.SafetyLetter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.lettersReady {
		return nil, false
	}
	out := make([]domain.SafetyLetter, 0, len(s.letters))
	for _, l := range s.letters {
		out = append(out, l)
	}
	return out, true
}

// Ready reports the readiness flag of each collection.
func (s *MemoryStore) Ready() (shortages, letters bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.shortagesReady, s.lettersReady
}

// Counts returns the sizes of both collections.
func (s *MemoryStore) Counts() (shortages, letters int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.shortages), len(s.letters)
}
