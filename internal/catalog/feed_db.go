package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const queryTimeout = 3 * time.Second

// PostgresFeed reads the catalog from a catalog_items table. Tags are a
// JSONB array.
type PostgresFeed struct {
	db *sql.DB
}

func NewPostgresFeed(db *sql.DB) *PostgresFeed {
	return &PostgresFeed{db: db}
}

func (f *PostgresFeed) Source() string { return "postgres:catalog_items" }

func (f *PostgresFeed) Fetch(ctx context.Context) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := f.db.QueryContext(ctx, `
		SELECT id, title, slug, description, price, category, tags,
		       rating, review_count, image, level, is_free, published_at, lesson_count
		FROM catalog_items
		ORDER BY position ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Item, 0, 64)
	for rows.Next() {
		var (
			it        Item
			id        string
			tags      []byte
			image     sql.NullString
			published sql.NullTime
		)
		if err := rows.Scan(&id, &it.Title, &it.Slug, &it.Description, &it.Price, &it.Category, &tags,
			&it.Rating, &it.ReviewCount, &image, &it.Level, &it.IsFree, &published, &it.LessonCount); err != nil {
			return nil, err
		}

		it.ID = ItemID(id)
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &it.Tags); err != nil {
				return nil, fmt.Errorf("item %s tags: %w", id, err)
			}
		}
		if image.Valid && image.String != "" {
			it.Images = []string{image.String}
		}
		if published.Valid {
			it.PublishedAt = published.Time
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
