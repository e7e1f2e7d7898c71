package storage

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PharmaWatch/internal/domain"
)

func TestShortagesReadiness(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	got, ready := s.Shortages()
	assert.False(t, ready)
	assert.Nil(t, got)

	s.ReplaceShortages(nil)
	got, ready = s.Shortages()
	assert.True(t, ready)
	assert.Empty(t, got)

	s.ReplaceShortages([]domain.ShortageReport{{ProductID: 1}, {ProductID: 2}})
	got, ready = s.Shortages()
	require.True(t, ready)
	require.Len(t, got, 2)

	s.ReplaceShortages([]domain.ShortageReport{{ProductID: 3}})
	got, _ = s.Shortages()
	require.Len(t, got, 1)
	assert.Equal(t, uint64(3), got[0].ProductID)
}

func TestShortagesReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	input := []domain.ShortageReport{{ProductID: 1}}
	s.ReplaceShortages(input)
	input[0].ProductID = 99

	got, _ := s.Shortages()
	got[0].ProductID = 42

	again, _ := s.Shortages()
	assert.Equal(t, uint64(1), again[0].ProductID)
}

func TestLettersFilterAndPut(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	s.PutLetter(domain.SafetyLetter{DetailURL: "https://a", Title: "A"})

	unseen := s.FilterUnseen([]domain.Candidate{{URL: "https://a"}, {URL: "https://b"}, {URL: "https://c"}})
	require.Len(t, unseen, 2)
	assert.Equal(t, "https://b", unseen[0].URL)
	assert.Equal(t, "https://c", unseen[1].URL)

	assert.True(t, s.HasLetter("https://a"))
	assert.False(t, s.HasLetter("https://b"))

	_, ready := s.Letters()
	assert.False(t, ready)

	s.PutLetter(domain.SafetyLetter{DetailURL: "https://a", Title: "A2"})
	s.MarkLettersLoaded()
	letters, ready := s.Letters()
	require.True(t, ready)
	require.Len(t, letters, 1)
	assert.Equal(t, "A2", letters[0].Title)

	shortagesReady, lettersReady := s.Ready()
	assert.False(t, shortagesReady)
	assert.True(t, lettersReady)

	shortages, count := s.Counts()
	assert.Equal(t, 0, shortages)
	assert.Equal(t, 1, count)
}

func TestConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	sets := [][]domain.ShortageReport{
		make([]domain.ShortageReport, 3),
		make([]domain.ShortageReport, 7),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.ReplaceShortages(sets[i%2])
			s.PutLetter(domain.SafetyLetter{DetailURL: fmt.Sprintf("https://l/%d", i)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			got, ready := s.Shortages()
			if ready {
				assert.Contains(t, []int{3, 7}, len(got))
			}
		}
	}()
	wg.Wait()

	_, letters := s.Counts()
	assert.Equal(t, 200, letters)
}
