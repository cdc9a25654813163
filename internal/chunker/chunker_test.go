package chunker

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentence(n int, page int, section string) Sentence {
	// n characters ending in a period.
	return Sentence{Text: strings.Repeat("a", n-1) + ".", Page: page, Section: section}
}

func TestChunkSingleSentence(t *testing.T) {
	chunks, err := Split([]Sentence{{Text: "Single sentence.", Page: 1, Section: "Abstract"}},
		Options{MaxChars: 1000, OverlapChars: 50})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "Single sentence.", chunks[0].Text)
	assert.Equal(t, 1, chunks[0].PageStart)
	assert.Equal(t, 1, chunks[0].PageEnd)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, "Abstract", chunks[0].Section)
}

func TestChunkEmpty(t *testing.T) {
	chunks, err := Split(nil, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkSectionBoundary(t *testing.T) {
	sentences := []Sentence{
		{Text: "Intro one.", Page: 1, Section: "Introduction"},
		{Text: "Intro two.", Page: 1, Section: "Introduction"},
		{Text: "Method one.", Page: 2, Section: "Methods"},
		{Text: "Method two.", Page: 3, Section: "Methods"},
	}

	chunks, err := Split(sentences, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "Intro one. Intro two.", chunks[0].Text)
	assert.Equal(t, "Introduction", chunks[0].Section)
	assert.Equal(t, "Method one. Method two.", chunks[1].Text)
	assert.Equal(t, "Methods", chunks[1].Section)
	assert.Equal(t, 2, chunks[1].PageStart)
	assert.Equal(t, 3, chunks[1].PageEnd)
}

func TestChunkOverlapSeedsNextChunk(t *testing.T) {
	s1 := sentence(40, 1, "Results")
	s2 := Sentence{Text: strings.Repeat("b", 39) + ".", Page: 1, Section: "Results"}
	s3 := Sentence{Text: strings.Repeat("c", 39) + ".", Page: 2, Section: "Results"}

	chunks, err := Split([]Sentence{s1, s2, s3}, Options{MaxChars: 100, OverlapChars: 50})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, s1.Text+" "+s2.Text, chunks[0].Text)
	assert.Equal(t, s2.Text+" "+s3.Text, chunks[1].Text, "second chunk should start with the overlap sentence")
	assert.Equal(t, 1, chunks[1].PageStart)
	assert.Equal(t, 2, chunks[1].PageEnd)
}

func TestChunkOverlapDroppedAtSectionChange(t *testing.T) {
	sentences := []Sentence{
		sentence(60, 1, "Methods"),
		sentence(60, 1, "Methods"),
		{Text: "Results start here.", Page: 2, Section: "Results"},
	}

	chunks, err := Split(sentences, Options{MaxChars: 100, OverlapChars: 80})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Results start here.", chunks[2].Text)
	assert.Equal(t, "Results", chunks[2].Section)
}

func TestChunkOversizedSentence(t *testing.T) {
	long := sentence(250, 4, "Discussion")
	sentences := []Sentence{
		{Text: "Short lead.", Page: 4, Section: "Discussion"},
		long,
		{Text: "Short tail.", Page: 5, Section: "Discussion"},
	}

	chunks, err := Split(sentences, Options{MaxChars: 100, OverlapChars: 20})
	require.NoError(t, err)

	var found bool
	for _, c := range chunks {
		if strings.Contains(c.Text, long.Text) {
			found = true
		}
	}
	assert.True(t, found, "oversized sentence must be emitted intact")
	assert.Equal(t, "Short lead.", chunks[0].Text)
}

func TestChunkMissingSectionDefaults(t *testing.T) {
	chunks, err := Split([]Sentence{{Text: "Preamble.", Page: 1}}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, UnknownSection, chunks[0].Section)
}

func TestChunkInvalidOptions(t *testing.T) {
	tests := []Options{
		{MaxChars: 0, OverlapChars: 10},
		{MaxChars: 100, OverlapChars: 0},
		{MaxChars: 100, OverlapChars: 100},
		{MaxChars: -5, OverlapChars: -10},
	}
	for _, opts := range tests {
		t.Run(fmt.Sprintf("%d/%d", opts.MaxChars, opts.OverlapChars), func(t *testing.T) {
			_, err := Split([]Sentence{{Text: "x", Page: 1}}, opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestChunkInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sections := []string{"Abstract", "Introduction", "Methods", "Results", "Conclusion"}

	for trial := 0; trial < 50; trial++ {
		var sentences []Sentence
		page, sec := 1, 0
		// origin maps sentence text to its section; texts are unique.
		origin := map[string]string{}
		for i := 0; i < 20+rng.Intn(80); i++ {
			if rng.Intn(10) == 0 {
				sec = (sec + 1) % len(sections)
			}
			if rng.Intn(6) == 0 {
				page++
			}
			text := fmt.Sprintf("S%d-%d %s.", trial, i, strings.Repeat("w", rng.Intn(300)))
			origin[text] = sections[sec]
			sentences = append(sentences, Sentence{Text: text, Page: page, Section: sections[sec]})
		}

		chunks, err := Split(sentences, Options{MaxChars: 400, OverlapChars: 120})
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		for i, c := range chunks {
			assert.Equal(t, i, c.ChunkIndex, "chunk indexes must be dense")
			assert.LessOrEqual(t, c.PageStart, c.PageEnd)
			for _, part := range strings.SplitAfter(c.Text, ". ") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				sec, ok := origin[part]
				require.True(t, ok, "unexpected fragment %q", part)
				assert.Equal(t, c.Section, sec, "chunk %d mixes sections", i)
			}
		}
	}
}
