// Package chunker groups extracted sentences into bounded, overlapping
// chunks that never cross a section boundary.
package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// UnknownSection labels text that precedes any recognised heading.
const UnknownSection = "Unknown"

// ErrInvalidOptions is returned when chunk size limits are inconsistent.
var ErrInvalidOptions = errors.New("chunker: invalid options")

// Sentence is one sentence of a document, tagged with where it came from.
type Sentence struct {
	Text    string `json:"text"`
	Page    int    `json:"page"`
	Section string `json:"section"`
}

// Chunk is a span of consecutive sentences from a single section.
type Chunk struct {
	Text       string `json:"text"`
	Section    string `json:"section"`
	PageStart  int    `json:"page_start"`
	PageEnd    int    `json:"page_end"`
	ChunkIndex int    `json:"chunk_index"`
}

// Options bounds chunk sizes in characters. MaxChars is a preferred size,
// not a hard limit: a single sentence longer than MaxChars becomes its own
// chunk.
type Options struct {
	MaxChars     int
	OverlapChars int
}

// DefaultOptions returns the standard 1000/150 character limits.
func DefaultOptions() Options {
	return Options{MaxChars: 1000, OverlapChars: 150}
}

// Validate reports whether both limits are positive and the overlap is
// smaller than the chunk size.
func (o Options) Validate() error {
	if o.MaxChars <= 0 || o.OverlapChars <= 0 {
		return fmt.Errorf("%w: max_chars and overlap_chars must be positive (got %d, %d)",
			ErrInvalidOptions, o.MaxChars, o.OverlapChars)
	}
	if o.OverlapChars >= o.MaxChars {
		return fmt.Errorf("%w: overlap_chars (%d) must be less than max_chars (%d)",
			ErrInvalidOptions, o.OverlapChars, o.MaxChars)
	}
	return nil
}

// Split groups sentences into chunks in document order. Chunk indexes are
// dense and start at zero.
func Split(sentences []Sentence, opts Options) ([]Chunk, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	b := &builder{opts: opts}
	for _, s := range sentences {
		if s.Section == "" {
			s.Section = UnknownSection
		}

		if len(b.buf) > 0 && s.Section != b.buf[0].Section {
			b.flush()
			// The overlap seed belongs to the previous section.
			b.reset()
		}
		if len(b.buf) > 0 && b.size+len(s.Text)+1 > opts.MaxChars {
			if b.flush() {
				b.keepOverlap()
			} else {
				// Only overlap is buffered and it leaves no room for s.
				b.reset()
			}
		}
		b.add(s)
	}
	b.flush()

	return b.chunks, nil
}

type builder struct {
	opts   Options
	buf    []Sentence
	size   int
	chunks []Chunk
	// seeded counts the leading sentences of buf carried over as overlap.
	// A buffer holding only overlap is never emitted on its own.
	seeded int
}

func (b *builder) add(s Sentence) {
	b.buf = append(b.buf, s)
	b.size += len(s.Text) + 1
}

func (b *builder) reset() {
	b.buf = nil
	b.size = 0
	b.seeded = 0
}

func (b *builder) flush() bool {
	if len(b.buf) == 0 || len(b.buf) == b.seeded {
		return false
	}

	texts := make([]string, len(b.buf))
	for i, s := range b.buf {
		texts[i] = s.Text
	}

	b.chunks = append(b.chunks, Chunk{
		Text:       strings.Join(texts, " "),
		Section:    b.buf[0].Section,
		PageStart:  b.buf[0].Page,
		PageEnd:    b.buf[len(b.buf)-1].Page,
		ChunkIndex: len(b.chunks),
	})
	return true
}

// keepOverlap retains the longest run of trailing sentences whose combined
// length fits within OverlapChars as the seed of the next chunk.
func (b *builder) keepOverlap() {
	tail := 0
	start := len(b.buf)
	for i := len(b.buf) - 1; i >= 0; i-- {
		n := len(b.buf[i].Text) + 1
		if tail+n > b.opts.OverlapChars {
			break
		}
		tail += n
		start = i
	}

	seed := make([]Sentence, len(b.buf)-start)
	copy(seed, b.buf[start:])
	b.buf = seed
	b.size = tail
	b.seeded = len(seed)
}
