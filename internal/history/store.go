package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ziadkadry99/paper-rag/internal/db"
)

// Store persists the query log.
type Store struct {
	db *db.DB
}

// NewStore creates a new history store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Append records a query and the papers its answer drew from.
func (s *Store) Append(ctx context.Context, e Entry) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning history insert: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO queries (question, response_time_ms, confidence, created_at) VALUES (?, ?, ?, ?)`,
		e.Question, e.ResponseTimeMs, e.Confidence, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting query: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading query id: %w", err)
	}

	for _, pid := range e.PaperIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO query_papers (query_id, paper_id) VALUES (?, ?)`, id, pid,
		); err != nil {
			return 0, fmt.Errorf("inserting query paper: %w", err)
		}
	}
	return id, tx.Commit()
}

// ListRecent returns the newest queries first. limit <= 0 means
// DefaultRecentLimit.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Query, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, response_time_ms, confidence, rating, created_at
		 FROM queries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing queries: %w", err)
	}

	var out []Query
	for rows.Next() {
		var q Query
		var latency sql.NullInt64
		var confidence sql.NullFloat64
		var rating sql.NullInt64
		if err := rows.Scan(&q.ID, &q.Question, &latency, &confidence, &rating, &q.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning query: %w", err)
		}
		q.ResponseTimeMs = latency.Int64
		q.Confidence = confidence.Float64
		if rating.Valid {
			r := int(rating.Int64)
			q.Rating = &r
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Paper ids are loaded after the first cursor is closed; the in-memory
	// database has a single connection.
	for i := range out {
		ids, err := s.paperIDs(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].PaperIDs = ids
	}
	return out, nil
}

func (s *Store) paperIDs(ctx context.Context, queryID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paper_id FROM query_papers WHERE query_id = ? ORDER BY paper_id`, queryID)
	if err != nil {
		return nil, fmt.Errorf("listing query papers: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning query paper: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PopularTopics counts keywords over the most recent questions.
func (s *Store) PopularTopics(ctx context.Context, limit int) ([]Topic, error) {
	if limit <= 0 {
		limit = DefaultTopicLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT question FROM queries ORDER BY id DESC LIMIT ?`, topicWindow)
	if err != nil {
		return nil, fmt.Errorf("listing questions: %w", err)
	}
	defer rows.Close()

	var questions []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return CountTopics(questions, limit), nil
}

// Rate stores a 1..5 user rating for a query.
func (s *Store) Rate(ctx context.Context, id int64, rating int) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	res, err := s.db.ExecContext(ctx, `UPDATE queries SET rating = ? WHERE id = ?`, rating, id)
	if err != nil {
		return fmt.Errorf("rating query: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// Summary aggregates all recorded queries.
func (s *Store) Summary(ctx context.Context) (*Summary, error) {
	var sum Summary
	var avgConf, avgLatency, avgRating sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(confidence), AVG(response_time_ms), COUNT(rating), AVG(rating) FROM queries`,
	).Scan(&sum.TotalQueries, &avgConf, &avgLatency, &sum.RatedQueries, &avgRating)
	if err != nil {
		return nil, fmt.Errorf("summarizing history: %w", err)
	}
	sum.AvgConfidence = avgConf.Float64
	sum.AvgResponseTimeMs = avgLatency.Float64
	sum.AvgRating = avgRating.Float64
	return &sum, nil
}
