// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tag

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehtisham-afzal/21st/internal/platform/database/schema"
	"github.com/ehtisham-afzal/21st/internal/platform/dberr"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed tag store.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// summarySelect counts the public demos of every tag. Callers append a WHERE
// on t and the grouping tail.
func summarySelect() string {
	return fmt.Sprintf(`
		SELECT t.%s, t.%s, t.%s, COUNT(c.%s)::int
		FROM %s t
		LEFT JOIN %s dt ON dt.%s = t.%s
		LEFT JOIN %s d ON d.%s = dt.%s
		LEFT JOIN %s c ON c.%s = d.%s AND c.%s
	`,
		schema.GalleryTag.ID, schema.GalleryTag.Name, schema.GalleryTag.Slug, schema.GalleryComponent.ID,
		schema.GalleryTag.Table,
		schema.GalleryDemoTag.Table, schema.GalleryDemoTag.TagID, schema.GalleryTag.ID,
		schema.GalleryDemo.Table, schema.GalleryDemo.ID, schema.GalleryDemoTag.DemoID,
		schema.GalleryComponent.Table, schema.GalleryComponent.ID, schema.GalleryDemo.ComponentID, schema.GalleryComponent.IsPublic,
	)
}

func (repository *PostgresRepository) List(context context.Context, query Query) ([]*Summary, error) {
	statement := summarySelect() + fmt.Sprintf(`
		WHERE (cardinality($1::text[]) = 0 OR t.%s = ANY($1))
		GROUP BY t.%s
		HAVING $2 OR COUNT(c.%s) > 0
		ORDER BY 4 DESC, t.%s ASC
		LIMIT $3
	`,
		schema.GalleryTag.Slug,
		schema.GalleryTag.ID,
		schema.GalleryComponent.ID,
		schema.GalleryTag.Name,
	)

	slugs := query.Slugs
	if slugs == nil {
		slugs = []string{}
	}

	rows, err := repository.pool.Query(context, statement, slugs, query.IncludeEmpty, query.Limit)
	if err != nil {
		return nil, dberr.Wrap(err, "list_tags")
	}
	defer rows.Close()

	summaries := make([]*Summary, 0)
	for rows.Next() {
		summary := &Summary{}
		if err := rows.Scan(&summary.ID, &summary.Name, &summary.Slug, &summary.DemoCount); err != nil {
			return nil, dberr.Wrap(err, "scan_tag")
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "list_tags")
	}
	return summaries, nil
}

func (repository *PostgresRepository) FindBySlug(context context.Context, slug string) (*Summary, error) {
	statement := summarySelect() + fmt.Sprintf(`
		WHERE t.%s = $1
		GROUP BY t.%s
	`, schema.GalleryTag.Slug, schema.GalleryTag.ID)

	summary := &Summary{}
	err := repository.pool.QueryRow(context, statement, slug).Scan(&summary.ID, &summary.Name, &summary.Slug, &summary.DemoCount)
	if err != nil {
		return nil, dberr.WrapNotFound(err, "get_tag_by_slug", "Tag")
	}
	return summary, nil
}
