package retrieval

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/paper-rag/internal/config"
	"github.com/ziadkadry99/paper-rag/internal/papers"
)

// PaperCatalog lists the papers a question can be scoped to.
type PaperCatalog interface {
	ListRefs(ctx context.Context) ([]papers.Ref, error)
}

// ScopeDetector narrows retrieval to specific papers when a question names
// them or clearly belongs to their topic.
type ScopeDetector struct {
	catalog PaperCatalog
	cfg     config.ScopeConfig
}

// NewScopeDetector creates a detector over catalog.
func NewScopeDetector(catalog PaperCatalog, cfg config.ScopeConfig) *ScopeDetector {
	return &ScopeDetector{catalog: catalog, cfg: cfg}
}

// A single quote only opens a phrase at a word boundary, so apostrophes
// in "what's" or "don't" are not mistaken for quotes.
var quotedRe = regexp.MustCompile(`"([^"]+)"|(?:^|\W)'([^']+)'`)

// ExtractQuotedTitles returns phrases wrapped in single or double quotes,
// in the order they appear.
func ExtractQuotedTitles(question string) []string {
	var out []string
	for _, m := range quotedRe.FindAllStringSubmatch(question, -1) {
		phrase := m[1]
		if phrase == "" {
			phrase = m[2]
		}
		if phrase = strings.TrimSpace(phrase); phrase != "" {
			out = append(out, phrase)
		}
	}
	return out
}

// Keywords returns the terms of every cluster that fires on question.
func (d *ScopeDetector) Keywords(question string) []string {
	q := strings.ToLower(question)
	seen := map[string]bool{}
	var out []string
	for _, cluster := range d.cfg.Clusters {
		fired := false
		for _, t := range cluster.Terms {
			if strings.Contains(q, strings.ToLower(t)) {
				fired = true
				break
			}
		}
		if !fired {
			continue
		}
		for _, t := range cluster.Terms {
			t = strings.ToLower(t)
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// Detect returns the paper ids the question should be restricted to, or
// nil to search the whole corpus. Catalog errors fail open.
func (d *ScopeDetector) Detect(ctx context.Context, question string) []int64 {
	quoted := ExtractQuotedTitles(question)
	keywords := d.Keywords(question)
	if len(quoted) == 0 && len(keywords) == 0 {
		return nil
	}

	refs, err := d.catalog.ListRefs(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("scope detection skipped: paper catalog unavailable")
		return nil
	}

	var strong, medium []int64
	strongSeen := map[int64]bool{}
	mediumSeen := map[int64]bool{}

	for _, ref := range refs {
		hay := strings.ToLower(ref.Title + " " + ref.Filename)

		for _, phrase := range quoted {
			if len(phrase) > d.cfg.MinQuotedLen && strings.Contains(hay, strings.ToLower(phrase)) {
				if !strongSeen[ref.ID] {
					strongSeen[ref.ID] = true
					strong = append(strong, ref.ID)
				}
				break
			}
		}

		hits := 0
		for _, kw := range keywords {
			if strings.Contains(hay, kw) {
				hits++
			}
		}
		if hits >= d.cfg.MinKeywordHits && !mediumSeen[ref.ID] {
			mediumSeen[ref.ID] = true
			medium = append(medium, ref.ID)
		}
	}

	if len(strong) > 0 {
		log.Debug().Ints64("paper_ids", strong).Msg("scope: quoted title match")
		return strong
	}
	if len(medium) < d.cfg.MinMediumMatches {
		return nil
	}
	log.Debug().Ints64("paper_ids", medium).Strs("keywords", keywords).Msg("scope: keyword match")
	return medium
}
