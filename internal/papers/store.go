package papers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/paper-rag/internal/db"
)

// Store manages persistence of papers and their chunk records.
type Store struct {
	db *db.DB
}

// NewStore creates a new paper store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const paperColumns = `p.id, p.title, p.authors, p.year, p.filename, p.pages, p.created_at,
	(SELECT COUNT(*) FROM chunks c WHERE c.paper_id = p.id)`

type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(row scanner) (*Paper, error) {
	var p Paper
	var title, authors, year sql.NullString
	if err := row.Scan(&p.ID, &title, &authors, &year, &p.Filename, &p.Pages, &p.CreatedAt, &p.ChunkCount); err != nil {
		return nil, err
	}
	p.Title = title.String
	p.Authors = authors.String
	p.Year = year.String
	return &p, nil
}

// Create inserts a paper and returns it with its assigned id. A filename
// that is already registered yields ErrDuplicate.
func (s *Store) Create(ctx context.Context, p Paper) (*Paper, error) {
	exists, err := s.ExistsByFilename(ctx, p.Filename)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, p.Filename)
	}

	p.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (title, authors, year, filename, pages, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.Title, p.Authors, p.Year, p.Filename, p.Pages, p.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, p.Filename)
		}
		return nil, fmt.Errorf("inserting paper: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading paper id: %w", err)
	}
	p.ID = id
	p.ChunkCount = 0
	return &p, nil
}

// Get returns the paper with the given id, or nil if there is none.
func (s *Store) Get(ctx context.Context, id int64) (*Paper, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers p WHERE p.id = ?`, id)
	p, err := scanPaper(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting paper: %w", err)
	}
	return p, nil
}

// GetMany fetches several papers in one query. Ids without a row are
// absent from the result.
func (s *Store) GetMany(ctx context.Context, ids []int64) (map[int64]*Paper, error) {
	out := make(map[int64]*Paper, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paperColumns+` FROM papers p WHERE p.id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("getting papers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// List returns all papers, newest first.
func (s *Store) List(ctx context.Context) ([]Paper, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+paperColumns+` FROM papers p ORDER BY p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()

	var out []Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Count returns the number of papers.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM papers`).Scan(&n)
	return n, err
}

// ListRefs returns id, title and filename of every paper.
func (s *Store) ListRefs(ctx context.Context) ([]Ref, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, filename FROM papers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing paper refs: %w", err)
	}
	defer rows.Close()

	var out []Ref
	for rows.Next() {
		var r Ref
		var title sql.NullString
		if err := rows.Scan(&r.ID, &title, &r.Filename); err != nil {
			return nil, fmt.Errorf("scanning paper ref: %w", err)
		}
		r.Title = title.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// ExistsByFilename reports whether a paper with this filename is registered.
func (s *Store) ExistsByFilename(ctx context.Context, filename string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM papers WHERE filename = ?`, filename).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking filename: %w", err)
	}
	return n > 0, nil
}

// GetByFilename returns the paper registered under filename, or nil.
func (s *Store) GetByFilename(ctx context.Context, filename string) (*Paper, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers p WHERE p.filename = ?`, filename)
	p, err := scanPaper(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting paper by filename: %w", err)
	}
	return p, nil
}

// Delete removes a paper and its chunk rows.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE paper_id = ?`, id); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM papers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting paper: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return tx.Commit()
}

// AddChunks records the chunks of a paper in one transaction.
func (s *Store) AddChunks(ctx context.Context, paperID int64, chunks []ChunkRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning chunk insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, paper_id, chunk_index, section, page_start, page_end, char_len) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, paperID, c.ChunkIndex, c.Section, c.PageStart, c.PageEnd, c.CharLen); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", c.ChunkIndex, err)
		}
	}
	return tx.Commit()
}

// Stats returns chunk statistics for a paper, or nil if the paper does
// not exist.
func (s *Store) Stats(ctx context.Context, paperID int64) (*Stats, error) {
	p, err := s.Get(ctx, paperID)
	if err != nil || p == nil {
		return nil, err
	}

	st := &Stats{PaperID: paperID, Sections: map[string]int{}}
	var avg sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(char_len) FROM chunks WHERE paper_id = ?`, paperID,
	).Scan(&st.TotalChunks, &avg)
	if err != nil {
		return nil, fmt.Errorf("chunk stats: %w", err)
	}
	st.AvgChunkLength = avg.Float64

	rows, err := s.db.QueryContext(ctx,
		`SELECT section, COUNT(*) FROM chunks WHERE paper_id = ? GROUP BY section`, paperID)
	if err != nil {
		return nil, fmt.Errorf("section stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var section string
		var n int
		if err := rows.Scan(&section, &n); err != nil {
			return nil, fmt.Errorf("scanning section stats: %w", err)
		}
		st.Sections[section] = n
	}
	return st, rows.Err()
}
