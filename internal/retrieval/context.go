// Package retrieval turns a question into ranked passages: scope detection,
// filtered vector search and a keyword boost layer.
package retrieval

import "fmt"

// Context is a retrieved chunk joined with its paper's metadata.
// OriginalScore is set once a re-ranker has replaced Score.
type Context struct {
	Text          string   `json:"text"`
	Section       string   `json:"section"`
	PageStart     int      `json:"page_start"`
	PageEnd       int      `json:"page_end"`
	PaperID       int64    `json:"paper_id"`
	PaperTitle    string   `json:"paper_title"`
	PaperFilename string   `json:"paper_filename"`
	Score         float64  `json:"score"`
	OriginalScore *float64 `json:"original_score,omitempty"`
}

// Pages renders the page range as "start-end".
func (c Context) Pages() string {
	return fmt.Sprintf("%d-%d", c.PageStart, c.PageEnd)
}
