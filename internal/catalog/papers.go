package catalog

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

// InsertPaper inserts a paper snapshot. Returns the ID on success, 0 if a
// paper with the same arXiv id already exists.
func (db *DB) InsertPaper(arxivID, title string, authors []string, summary string, publishedAt time.Time) (int64, error) {
	authorsJSON, err := json.Marshal(authors)
	if err != nil {
		return 0, err
	}

	result, err := db.conn.Exec(
		`INSERT INTO papers (arxiv_id, title, authors, summary, published_at)
		VALUES (?, ?, ?, ?, ?)`,
		arxivID, title, string(authorsJSON), summary, publishedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		// Duplicate arxiv_id constraint
		return 0, nil //nolint: nilerr
	}
	return result.LastInsertId()
}

// GetPaper returns a single paper by ID, or nil if absent.
func (db *DB) GetPaper(paperID int64) (*Paper, error) {
	row := db.conn.QueryRow(
		`SELECT id, arxiv_id, title, authors, summary, published_at, created_at
		FROM papers WHERE id = ?`, paperID,
	)
	p, err := scanPaper(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPaperByArxivID returns a single paper by its arXiv id, or nil.
func (db *DB) GetPaperByArxivID(arxivID string) (*Paper, error) {
	row := db.conn.QueryRow(
		`SELECT id, arxiv_id, title, authors, summary, published_at, created_at
		FROM papers WHERE arxiv_id = ?`, arxivID,
	)
	p, err := scanPaper(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SearchPapers returns papers whose title or summary contains the query,
// newest first, plus the total match count for pagination.
func (db *DB) SearchPapers(query string, offset, limit int) ([]Paper, int, error) {
	pattern := "%" + strings.ToLower(query) + "%"

	var total int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM papers
		WHERE lower(title) LIKE ? OR lower(summary) LIKE ?`,
		pattern, pattern,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := db.conn.Query(
		`SELECT id, arxiv_id, title, authors, summary, published_at, created_at
		FROM papers
		WHERE lower(title) LIKE ? OR lower(summary) LIKE ?
		ORDER BY published_at DESC
		LIMIT ? OFFSET ?`,
		pattern, pattern, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	papers, err := scanPapers(rows)
	if err != nil {
		return nil, 0, err
	}
	return papers, total, nil
}

// Summary returns aggregate counts for the dashboard.
func (db *DB) Summary() (*Summary, error) {
	s := &Summary{}

	if err := db.conn.QueryRow("SELECT COUNT(*) FROM papers").Scan(&s.TotalPapers); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM keywords").Scan(&s.TotalKeywords); err != nil {
		return nil, err
	}

	var latest sql.NullString
	if err := db.conn.QueryRow("SELECT MAX(published_at) FROM papers").Scan(&latest); err != nil {
		return nil, err
	}
	if latest.Valid {
		t, err := time.Parse(time.RFC3339, latest.String)
		if err == nil {
			s.LatestPaperDate = &t
		}
	}

	now := time.Now().UTC()
	windows := []struct {
		since time.Time
		dst   *int
	}{
		{now.Add(-24 * time.Hour), &s.RecentPapers24h},
		{now.AddDate(0, 0, -7), &s.RecentPapers7d},
		{now.AddDate(0, 0, -30), &s.RecentPapers30d},
	}
	for _, w := range windows {
		err := db.conn.QueryRow(
			"SELECT COUNT(*) FROM papers WHERE published_at >= ?",
			w.since.Format(time.RFC3339),
		).Scan(w.dst)
		if err != nil {
			return nil, err
		}
	}

	return s, nil
}

func scanPaper(row *sql.Row) (*Paper, error) {
	var p Paper
	var authorsJSON sql.NullString
	var published string

	err := row.Scan(&p.ID, &p.ArxivID, &p.Title, &authorsJSON, &p.Summary, &published, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	finishPaper(&p, authorsJSON, published)
	return &p, nil
}

func scanPapers(rows *sql.Rows) ([]Paper, error) {
	var papers []Paper
	for rows.Next() {
		var p Paper
		var authorsJSON sql.NullString
		var published string

		err := rows.Scan(&p.ID, &p.ArxivID, &p.Title, &authorsJSON, &p.Summary, &published, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		finishPaper(&p, authorsJSON, published)
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

func finishPaper(p *Paper, authorsJSON sql.NullString, published string) {
	if authorsJSON.Valid && authorsJSON.String != "" {
		_ = json.Unmarshal([]byte(authorsJSON.String), &p.Authors)
	}
	if t, err := time.Parse(time.RFC3339, published); err == nil {
		p.PublishedAt = t
	}
}
