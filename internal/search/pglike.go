package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pasinduf/blog-platform/internal/util"
)

// PgLike implements Searcher with a case-insensitive title match in
// PostgreSQL, used when Meilisearch is absent or unhealthy.
type PgLike struct {
	db *sql.DB
}

func NewPgLike(db *sql.DB) *PgLike {
	return &PgLike{db: db}
}

// Healthy always returns true. If Postgres is down the whole app is down.
func (p *PgLike) Healthy() bool {
	return true
}

// Search matches published blog titles with ILIKE.
func (p *PgLike) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return []Result{}, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + q.Text + "%"
	ctx := context.Background()

	var total int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM blogs WHERE status='PUBLISHED' AND title ILIKE $1
	`, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("pglike count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT b.id, b.title, b.content, u.first_name || ' ' || u.last_name
		FROM blogs b JOIN users u ON u.id = b.author_id
		WHERE b.status='PUBLISHED' AND b.title ILIKE $1
		ORDER BY b.created_at DESC
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("pglike query: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		var r Result
		var blogContent string
		if err := rows.Scan(&r.ID, &r.Title, &blogContent, &r.AuthorName); err != nil {
			return nil, 0, fmt.Errorf("pglike scan: %w", err)
		}
		r.Excerpt = util.Excerpt(blogContent, 150)
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadPublishedRecords returns every published blog as an index record,
// used for full reindexing into Meilisearch.
func (p *PgLike) LoadPublishedRecords(ctx context.Context) ([]BlogRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT b.id, b.title, b.content, u.first_name || ' ' || u.last_name
		FROM blogs b JOIN users u ON u.id = b.author_id
		WHERE b.status='PUBLISHED'
	`)
	if err != nil {
		return nil, fmt.Errorf("load published blogs: %w", err)
	}
	defer rows.Close()

	records := make([]BlogRecord, 0)
	for rows.Next() {
		var record BlogRecord
		var blogContent string
		if err := rows.Scan(&record.ID, &record.Title, &blogContent, &record.AuthorName); err != nil {
			return nil, fmt.Errorf("scan blog record: %w", err)
		}
		record.Excerpt = util.Excerpt(blogContent, 150)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blog records: %w", err)
	}
	return records, nil
}
