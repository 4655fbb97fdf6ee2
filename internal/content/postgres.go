package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresRepository is a Postgres-backed implementation of Repository and
// FollowRepository over database/sql with the lib/pq driver.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repository over an existing connection pool.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// contentColumns is the select list shared by all content queries.
const contentColumns = `id, author_id, body, status, likes, comments, has_media, lat, lng, created_at`

// GetByID retrieves a content item by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*ContentSummary, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE id = $1`, id)

	c, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get content by id: %w", err)
	}
	return c, nil
}

// ListByAuthors returns active content by the given authors since the cutoff.
func (r *PostgresRepository) ListByAuthors(ctx context.Context, authorIDs []string, since time.Time) ([]ContentSummary, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contentColumns+` FROM contents
		 WHERE status = $1 AND author_id = ANY($2) AND created_at >= $3
		 ORDER BY created_at DESC, id ASC`,
		StatusActive, pq.Array(authorIDs), since)
	if err != nil {
		return nil, fmt.Errorf("list content by authors: %w", err)
	}
	defer rows.Close()

	return collectContents(rows)
}

// ListRecentActive returns active content created at or after since.
func (r *PostgresRepository) ListRecentActive(ctx context.Context, since time.Time) ([]ContentSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contentColumns+` FROM contents
		 WHERE status = $1 AND created_at >= $2
		 ORDER BY created_at DESC, id ASC`,
		StatusActive, since)
	if err != nil {
		return nil, fmt.Errorf("list recent active content: %w", err)
	}
	defer rows.Close()

	return collectContents(rows)
}

// ListActive returns all active content ordered created_at DESC.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]ContentSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contentColumns+` FROM contents
		 WHERE status = $1
		 ORDER BY created_at DESC, id ASC`,
		StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active content: %w", err)
	}
	defer rows.Close()

	return collectContents(rows)
}

// GetFollowedIDs returns the ids of users the given user follows.
func (r *PostgresRepository) GetFollowedIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT followed_id FROM follows WHERE follower_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("get followed ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan followed id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanContent scans one content row, reassembling the optional location
// from nullable lat/lng columns.
func scanContent(row rowScanner) (*ContentSummary, error) {
	var (
		c        ContentSummary
		lat, lng sql.NullFloat64
	)
	if err := row.Scan(&c.ID, &c.AuthorID, &c.Body, &c.Status, &c.Likes,
		&c.Comments, &c.HasMedia, &lat, &lng, &c.CreatedAt); err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		c.Location = &GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
	}
	return &c, nil
}

// collectContents drains rows into a slice.
func collectContents(rows *sql.Rows) ([]ContentSummary, error) {
	var results []ContentSummary
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content row: %w", err)
		}
		results = append(results, *c)
	}
	return results, rows.Err()
}
