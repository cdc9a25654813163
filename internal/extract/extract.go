// Package extract turns research paper PDFs into metadata plus an ordered
// list of section-tagged sentences.
package extract

import (
	"path/filepath"
	"strings"

	"github.com/ziadkadry99/paper-rag/internal/chunker"
)

// Document is the result of extracting one paper.
type Document struct {
	Filename  string             `json:"filename"`
	Metadata  Metadata           `json:"metadata"`
	Sentences []chunker.Sentence `json:"sentences"`
}

// Extract reads the PDF at path and returns its metadata and sentences.
func Extract(path string) (*Document, error) {
	pages, info, err := readPDF(path)
	if err != nil {
		return nil, err
	}
	return FromPages(filepath.Base(path), pages, info), nil
}

// FromPages builds a Document from already-extracted page texts, one
// string per page with lines separated by newlines. Title and authors in
// info are kept when they look plausible; the rest is guessed from the
// first page.
func FromPages(filename string, pages []string, info Metadata) *Document {
	info.Pages = len(pages)
	first := ""
	if len(pages) > 0 {
		first = pages[0]
	}

	doc := &Document{
		Filename: filename,
		Metadata: guessMetadata(info, first),
	}

	section := chunker.UnknownSection
	for i, text := range pages {
		page := i + 1
		var para []string

		// Sentences never span pages, so every sentence has one page number.
		emit := func() {
			if len(para) == 0 {
				return
			}
			for _, s := range SplitSentences(joinLines(para)) {
				doc.Sentences = append(doc.Sentences, chunker.Sentence{Text: s, Page: page, Section: section})
			}
			para = para[:0]
		}

		for _, ln := range strings.Split(text, "\n") {
			ln = strings.TrimSpace(ln)
			if ln == "" {
				continue
			}
			if name, ok := DetectHeading(ln); ok {
				emit()
				section = name
				continue
			}
			para = append(para, ln)
		}
		emit()
	}

	return doc
}

// joinLines rejoins wrapped lines, undoing end-of-line hyphenation.
func joinLines(lines []string) string {
	var b strings.Builder
	for i, ln := range lines {
		if i > 0 && !hyphenated(lines[i-1]) {
			b.WriteByte(' ')
		}
		if i < len(lines)-1 && hyphenated(ln) {
			ln = ln[:len(ln)-1]
		}
		b.WriteString(ln)
	}
	return b.String()
}

func hyphenated(line string) bool {
	return len(line) > 1 && strings.HasSuffix(line, "-")
}
