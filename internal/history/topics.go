package history

import (
	"sort"
	"strings"
	"unicode"
)

var stopwords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`the a an and or of to in on for with from is are was were be been
		being this that those these what which who why how into across between by as using use
		method methods methodology results discussion conclusion abstract paper model models
		algorithm algorithms study studies research`) {
		stopwords[w] = true
	}
}

// CountTopics returns the limit most frequent keywords across questions.
// Words shorter than three characters and stopwords are ignored; ties
// keep first-seen order.
func CountTopics(questions []string, limit int) []Topic {
	counts := map[string]int{}
	var order []string

	for _, q := range questions {
		words := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
			return !(r >= 'a' && r <= 'z' || unicode.IsDigit(r))
		})
		for _, w := range words {
			if len(w) < 3 || stopwords[w] {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}

	out := make([]Topic, 0, len(order))
	for _, w := range order {
		out = append(out, Topic{Topic: w, Count: counts[w]})
	}
	return out
}
