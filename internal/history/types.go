package history

import (
	"errors"
	"time"
)

var (
	// ErrInvalidRating is returned for ratings outside 1..5.
	ErrInvalidRating = errors.New("history: rating must be between 1 and 5")
	// ErrNotFound is returned when rating a query id that does not exist.
	ErrNotFound = errors.New("history: query not found")
)

// Entry is what the answer pipeline records after a query.
type Entry struct {
	Question       string
	ResponseTimeMs int64
	Confidence     float64
	PaperIDs       []int64
}

// Query is a recorded question.
type Query struct {
	ID             int64     `json:"id"`
	Question       string    `json:"question"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	Confidence     float64   `json:"confidence"`
	Rating         *int      `json:"rating,omitempty"`
	PaperIDs       []int64   `json:"paper_ids"`
	CreatedAt      time.Time `json:"created_at"`
}

// Topic is a frequent question keyword.
type Topic struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Summary aggregates the whole query history.
type Summary struct {
	TotalQueries      int     `json:"total_queries"`
	AvgConfidence     float64 `json:"avg_confidence"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
	RatedQueries      int     `json:"rated_queries"`
	AvgRating         float64 `json:"avg_rating"`
}

const (
	// DefaultRecentLimit is the page size of ListRecent.
	DefaultRecentLimit = 20
	// DefaultTopicLimit is the number of topics PopularTopics returns.
	DefaultTopicLimit = 10
	// topicWindow is how many recent questions PopularTopics scans.
	topicWindow = 200
)
