package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// sectionPattern maps a heading regexp to the canonical section name.
type sectionPattern struct {
	Name    string
	Pattern *regexp.Regexp
}

var sectionPatterns = []sectionPattern{
	{"Abstract", regexp.MustCompile(`(?i)^\s*(\d+(\.\d+)*[.)]?\s*)?(abstract|summary)\b[\s:]*`)},
	{"Introduction", regexp.MustCompile(`(?i)^\s*(\d+(\.\d+)*[.)]?\s*)?(introduction|background)\b[\s:]*`)},
	{"Methods", regexp.MustCompile(`(?i)^\s*(\d+(\.\d+)*[.)]?\s*)?((research\s+)?method(ology|s)?|materials?\s*(and|&)\s*methods?)\b[\s:]*`)},
	{"Results", regexp.MustCompile(`(?i)^\s*(\d+(\.\d+)*[.)]?\s*)?(results?|findings|experiments?|evaluation)\b[\s:]*`)},
	{"Discussion", regexp.MustCompile(`(?i)^\s*(\d+(\.\d+)*[.)]?\s*)?(discussion|analysis)\b[\s:]*`)},
	{"Conclusion", regexp.MustCompile(`(?i)^\s*(\d+(\.\d+)*[.)]?\s*)?(conclusions?|concluding\s+remarks|future\s+(work|directions?))\b[\s:]*`)},
	{"References", regexp.MustCompile(`(?i)^\s*(\d+(\.\d+)*[.)]?\s*)?(references|bibliography|citations?|works?\s+cited)\b[\s:]*`)},
}

const (
	maxHeadingLen = 100
	// Lines with more trailing words than this are body text that merely
	// starts with a section keyword ("Results show that ...").
	maxHeadingTailWords = 6
)

// DetectHeading reports whether line is a section heading and, if so,
// which canonical section it opens.
func DetectHeading(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || len(line) >= maxHeadingLen {
		return "", false
	}

	for _, sp := range sectionPatterns {
		loc := sp.Pattern.FindStringIndex(line)
		if loc == nil {
			continue
		}
		if len(strings.Fields(line[loc[1]:])) > maxHeadingTailWords {
			continue
		}
		return sp.Name, true
	}
	return "", false
}

// SplitSentences splits text after '.', '!' or '?' when the terminator is
// followed by whitespace and then an upper-case letter, '(' or '['.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0

	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
		default:
			continue
		}

		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) {
			continue
		}
		if next := runes[j]; unicode.IsUpper(next) || next == '(' || next == '[' {
			if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
				out = append(out, s)
			}
			start = j
			i = j - 1
		}
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}
