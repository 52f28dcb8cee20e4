package search

import (
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs a ranked FTS query over the product's epics with ts_headline
// snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := p.db.Query(`
		SELECT e.id, e.name,
			ts_headline('english', coalesce(e.description, ''), plainto_tsquery('english', $2), 'MaxFragments=1,MaxWords=30') AS snippet,
			COALESCE(e.theme_id, ''), COALESCE(e.track, ''),
			COUNT(*) OVER () AS total
		FROM epics e
		WHERE e.product_id = $1 AND e.fts @@ plainto_tsquery('english', $2)
		ORDER BY ts_rank(e.fts, plainto_tsquery('english', $2)) DESC, e.name ASC
		LIMIT $3 OFFSET $4
	`, q.ProductID, q.Text, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("epic fts query: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	total := 0
	for rows.Next() {
		var item Result
		if err := rows.Scan(&item.EpicID, &item.Name, &item.Snippet, &item.ThemeID, &item.Track, &total); err != nil {
			return nil, 0, fmt.Errorf("scan epic fts row: %w", err)
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate epic fts rows: %w", err)
	}
	return results, total, nil
}
