package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// Metadata is the bibliographic information recovered from a paper.
type Metadata struct {
	Title   string `json:"title,omitempty"`
	Authors string `json:"authors,omitempty"`
	Year    string `json:"year,omitempty"`
	Pages   int    `json:"pages"`
}

var (
	yearPattern      = regexp.MustCompile(`(19|20)\d{2}`)
	pageLabelPattern = regexp.MustCompile(`(?i)^page\s*\d+$`)
	figurePattern    = regexp.MustCompile(`(?i)^(figure|fig\.|table)\s*\d+`)
)

const (
	minTitleLen   = 5
	maxTitleLen   = 300
	maxAuthorRows = 5
)

// IsValidTitle rejects lines that cannot be a paper title: very short or
// very long text, text without words, page labels and figure or table
// captions.
func IsValidTitle(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < minTitleLen || len(s) > maxTitleLen {
		return false
	}

	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < 3 {
		return false
	}

	if pageLabelPattern.MatchString(s) || figurePattern.MatchString(s) {
		return false
	}
	return true
}

// guessMetadata fills title, authors and year from the first page text.
// Values already present in meta (e.g. from the PDF Info dictionary) win.
func guessMetadata(meta Metadata, firstPage string) Metadata {
	var lines []string
	for _, ln := range strings.Split(firstPage, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}

	titleIdx := -1
	if !IsValidTitle(meta.Title) {
		meta.Title = ""
		for i, ln := range lines {
			if _, heading := DetectHeading(ln); heading {
				break
			}
			if IsValidTitle(ln) {
				meta.Title = ln
				titleIdx = i
				break
			}
		}
	}

	if meta.Authors == "" && titleIdx >= 0 {
		var authors []string
		for _, ln := range lines[titleIdx+1:] {
			if _, heading := DetectHeading(ln); heading || len(authors) == maxAuthorRows {
				break
			}
			authors = append(authors, ln)
		}
		meta.Authors = strings.Join(authors, ", ")
	}

	if meta.Year == "" {
		meta.Year = yearPattern.FindString(firstPage)
	}
	return meta
}
