package answer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ziadkadry99/paper-rag/internal/retrieval"
)

var sourceRe = regexp.MustCompile(`(?i)\(\s*source\s+(\d+)\s*\)`)

// ExtractCitations returns one citation per distinct valid "(Source N)"
// marker in text, in order of first occurrence.
func ExtractCitations(text string, contexts []retrieval.Context) []Citation {
	out := []Citation{}
	seen := map[int]bool{}
	for _, m := range sourceRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(contexts) || seen[n] {
			continue
		}
		seen[n] = true
		c := contexts[n-1]
		out = append(out, Citation{
			PaperTitle:     c.PaperTitle,
			PaperFilename:  c.PaperFilename,
			PaperID:        c.PaperID,
			SourceIndex:    n,
			Section:        c.Section,
			Page:           c.Pages(),
			RelevanceScore: c.Score,
		})
	}
	return out
}

// ConfidenceOptions are the adjustments applied on top of retrieval scores.
type ConfidenceOptions struct {
	CitationBonus      float64
	UncertaintyPenalty float64
	UncertaintyPhrases []string
}

// Confidence scores an answer in [0,1]. The base is the average of the
// first three similarity scores weighted 1, 1/2 and 1/3, normalized by
// the weights actually used rather than a constant 3, so two strong
// contexts still score high. Re-ranked contexts contribute their
// OriginalScore. A "(Source N)" marker adds CitationBonus and an
// uncertainty phrase subtracts UncertaintyPenalty. No contexts means zero.
func Confidence(text string, contexts []retrieval.Context, opts ConfidenceOptions) float64 {
	if len(contexts) == 0 {
		return 0
	}

	var sum, weights float64
	for i := 0; i < len(contexts) && i < 3; i++ {
		w := 1 / float64(i+1)
		sum += w * similarity(contexts[i])
		weights += w
	}
	conf := sum / weights

	if sourceRe.MatchString(text) {
		conf += opts.CitationBonus
	}
	lower := strings.ToLower(text)
	for _, p := range opts.UncertaintyPhrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			conf -= opts.UncertaintyPenalty
			break
		}
	}

	switch {
	case conf < 0:
		return 0
	case conf > 1:
		return 1
	}
	return conf
}

func similarity(c retrieval.Context) float64 {
	if c.OriginalScore != nil {
		return *c.OriginalScore
	}
	return c.Score
}

// IsTrivial reports whether a question should be answered without
// retrieval: it is shorter than minLen runes once trimmed, or it is one of
// the greetings ignoring case and trailing punctuation.
func IsTrivial(question string, minLen int, greetings []string) bool {
	q := strings.TrimSpace(question)
	if q == "" || len([]rune(q)) < minLen {
		return true
	}
	norm := strings.ToLower(strings.TrimRight(q, "!?.,;: "))
	for _, g := range greetings {
		if norm == strings.ToLower(strings.TrimSpace(g)) {
			return true
		}
	}
	return false
}
