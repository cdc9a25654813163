package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

// readPDF returns the text of every page (rows joined by newlines) along
// with the title and author from the document Info dictionary. The pdf
// package panics on some malformed files; that is reported as an error.
func readPDF(path string) (pages []string, info Metadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("parsing pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	if dict := r.Trailer().Key("Info"); !dict.IsNull() {
		info.Title = strings.TrimSpace(dict.Key("Title").Text())
		info.Authors = strings.TrimSpace(dict.Key("Author").Text())
	}

	n := r.NumPage()
	if n == 0 {
		return nil, info, fmt.Errorf("pdf %s has no pages", path)
	}

	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := pageText(p)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Int("page", i).Msg("page text unavailable")
		}
		pages = append(pages, text)
	}
	return pages, info, nil
}

// pageText prefers row-based extraction so line breaks survive, which
// heading detection depends on. It falls back to the plain text stream.
func pageText(p pdf.Page) (string, error) {
	rows, err := p.GetTextByRow()
	if err == nil && len(rows) > 0 {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position > rows[j].Position })
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, rowText(row.Content))
		}
		return strings.Join(lines, "\n"), nil
	}

	text, plainErr := p.GetPlainText(nil)
	if plainErr != nil {
		if err == nil {
			err = plainErr
		}
		return "", fmt.Errorf("extracting page text: %w", err)
	}
	return text, nil
}

// rowText concatenates the glyph runs of a row, inserting a space where
// the horizontal gap between runs is wider than a fraction of the font size.
func rowText(runs pdf.TextHorizontal) string {
	var b strings.Builder
	for i, t := range runs {
		if i > 0 {
			prev := runs[i-1]
			if gap := t.X - (prev.X + prev.W); gap > prev.FontSize*0.15 {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
	}
	return strings.TrimSpace(b.String())
}
