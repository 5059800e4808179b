// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package component

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehtisham-afzal/21st/internal/platform/apperr"
	"github.com/ehtisham-afzal/21st/internal/platform/constants"
	"github.com/ehtisham-afzal/21st/internal/platform/database/schema"
	"github.com/ehtisham-afzal/21st/internal/platform/dberr"
	"github.com/ehtisham-afzal/21st/internal/preview/resolver"
	"github.com/ehtisham-afzal/21st/pkg/slice"
)

// # PostgreSQL Repository

// postgresRepository implements [Repository] using pgx.
type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed catalogue store.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

// # Query Fragments

// qualify prefixes every column with a table alias.
func qualify(alias string, columns []string) string {
	return strings.Join(slice.Map(columns, func(column string) string {
		return alias + "." + column
	}), ", ")
}

func ownerColumns(alias string) string {
	return qualify(alias, []string{
		schema.UserAccount.ID, schema.UserAccount.Username, schema.UserAccount.Name,
		schema.UserAccount.ImageURL, schema.UserAccount.Role,
	})
}

// tagsAggregate renders the demo's tags as a JSON array for demo alias d.
func tagsAggregate() string {
	return fmt.Sprintf(`COALESCE((
			SELECT json_agg(json_build_object('id', t.%s, 'name', t.%s, 'slug', t.%s) ORDER BY t.%s)
			FROM %s t
			JOIN %s dt ON t.%s = dt.%s
			WHERE dt.%s = d.%s
		), '[]')`,
		schema.GalleryTag.ID, schema.GalleryTag.Name, schema.GalleryTag.Slug, schema.GalleryTag.Name,
		schema.GalleryTag.Table,
		schema.GalleryDemoTag.Table, schema.GalleryTag.ID, schema.GalleryDemoTag.TagID,
		schema.GalleryDemoTag.DemoID, schema.GalleryDemo.ID,
	)
}

// viewsJoin joins the analytics rollup for component alias c.
func viewsJoin() string {
	return fmt.Sprintf(`LEFT JOIN %s a ON a.%s = c.%s AND a.%s = '%s'`,
		schema.GalleryAnalyticsSummary.Table,
		schema.GalleryAnalyticsSummary.ComponentID, schema.GalleryComponent.ID,
		schema.GalleryAnalyticsSummary.ActivityType, ActivityView,
	)
}

func componentTargets(component *Component) []any {
	return []any{
		&component.ID, &component.UserID, &component.Name, &component.Registry,
		&component.ComponentSlug, &component.ComponentNames, &component.Description,
		&component.License, &component.WebsiteURL, &component.CodeURL,
		&component.TailwindConfigURL, &component.GlobalCSSURL, &component.Dependencies,
		&component.DemoDependencies, &component.DirectRegistryDependencies,
		&component.IsPublic, &component.LikesCount, &component.DownloadsCount,
		&component.CreatedAt, &component.UpdatedAt,
	}
}

func demoTargets(demo *Demo) []any {
	return []any{
		&demo.ID, &demo.ComponentID, &demo.UserID, &demo.Name, &demo.DemoSlug,
		&demo.DemoCodeURL, &demo.DemoDependencies, &demo.DemoDirectRegistryDependencies,
		&demo.PreviewURL, &demo.VideoURL, &demo.CompiledCSS, &demo.CreatedAt, &demo.UpdatedAt,
	}
}

func ownerTargets(owner *Owner) []any {
	return []any{&owner.ID, &owner.Username, &owner.Name, &owner.ImageURL, &owner.Role}
}

// # Component Lookups

func (repository *postgresRepository) FindBySlug(context context.Context, username, slug string) (*Component, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM %s c
		JOIN %s u ON u.%s = c.%s
		WHERE u.%s = $1 AND c.%s = $2 AND c.%s
		ORDER BY (c.%s = $3) DESC, c.%s ASC
		LIMIT 1
	`,
		qualify("c", schema.GalleryComponent.Columns()), ownerColumns("u"),
		schema.GalleryComponent.Table,
		schema.UserAccount.Table, schema.UserAccount.ID, schema.GalleryComponent.UserID,
		schema.UserAccount.Username, schema.GalleryComponent.ComponentSlug, schema.GalleryComponent.IsPublic,
		schema.GalleryComponent.Registry, schema.GalleryComponent.CreatedAt,
	)

	component := &Component{Owner: &Owner{}}
	targets := append(componentTargets(component), ownerTargets(component.Owner)...)
	if err := repository.pool.QueryRow(context, query, username, slug, constants.DefaultRegistry).Scan(targets...); err != nil {
		return nil, dberr.WrapNotFound(err, "find_component_by_slug", "Component")
	}
	return component, nil
}

func (repository *postgresRepository) FindByID(context context.Context, id string) (*Component, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM %s c
		JOIN %s u ON u.%s = c.%s
		WHERE c.%s = $1
	`,
		qualify("c", schema.GalleryComponent.Columns()), ownerColumns("u"),
		schema.GalleryComponent.Table,
		schema.UserAccount.Table, schema.UserAccount.ID, schema.GalleryComponent.UserID,
		schema.GalleryComponent.ID,
	)

	component := &Component{Owner: &Owner{}}
	targets := append(componentTargets(component), ownerTargets(component.Owner)...)
	if err := repository.pool.QueryRow(context, query, id).Scan(targets...); err != nil {
		return nil, dberr.WrapNotFound(err, "find_component_by_id", "Component")
	}
	return component, nil
}

/*
FindRegistryComponents returns the published components matching a
dependency reference.

Description: The default demo's dependencies are joined in so the resolver
can follow demo-only registry dependencies. An empty registry matches every
registry the owner used for the slug.
*/
func (repository *postgresRepository) FindRegistryComponents(context context.Context, username, registry, slug string) ([]resolver.Record, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(fmt.Sprintf(`
		SELECT u.%s, c.%s, c.%s, c.%s, c.%s, c.%s,
			COALESCE(d.%s, '{}'::jsonb), COALESCE(d.%s, '{}'::text[])
		FROM %s c
		JOIN %s u ON u.%s = c.%s
		LEFT JOIN %s d ON d.%s = c.%s AND d.%s = '%s'
		WHERE u.%s = $1 AND c.%s = $2
	`,
		schema.UserAccount.Username, schema.GalleryComponent.Registry, schema.GalleryComponent.ComponentSlug,
		schema.GalleryComponent.CodeURL, schema.GalleryComponent.Dependencies, schema.GalleryComponent.DirectRegistryDependencies,
		schema.GalleryDemo.DemoDependencies, schema.GalleryDemo.DemoDirectRegistryDependencies,
		schema.GalleryComponent.Table,
		schema.UserAccount.Table, schema.UserAccount.ID, schema.GalleryComponent.UserID,
		schema.GalleryDemo.Table, schema.GalleryDemo.ComponentID, schema.GalleryComponent.ID,
		schema.GalleryDemo.DemoSlug, constants.DefaultDemoSlug,
		schema.UserAccount.Username, schema.GalleryComponent.ComponentSlug,
	))

	args := []any{username, slug}
	if registry != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND c.%s = $3", schema.GalleryComponent.Registry))
		args = append(args, registry)
	}
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY c.%s", schema.GalleryComponent.Registry))

	rows, err := repository.pool.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, dberr.Wrap(err, "find_registry_components")
	}
	defer rows.Close()

	records := make([]resolver.Record, 0, 1)
	for rows.Next() {
		var record resolver.Record
		if err := rows.Scan(
			&record.Username, &record.Registry, &record.Slug, &record.CodeURL,
			&record.NPMDependencies, &record.RegistryDependencies,
			&record.DemoNPMDependencies, &record.DemoRegistryDependencies,
		); err != nil {
			return nil, dberr.Wrap(err, "scan_registry_component")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "iterate_registry_components")
	}
	return records, nil
}

// # Demos

func (repository *postgresRepository) ListDemos(context context.Context, componentID string) ([]*Demo, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM %s d
		WHERE d.%s = $1
		ORDER BY (d.%s = '%s') DESC, d.%s ASC
	`,
		qualify("d", schema.GalleryDemo.Columns()), tagsAggregate(),
		schema.GalleryDemo.Table,
		schema.GalleryDemo.ComponentID,
		schema.GalleryDemo.DemoSlug, constants.DefaultDemoSlug, schema.GalleryDemo.CreatedAt,
	)

	rows, err := repository.pool.Query(context, query, componentID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_demos")
	}
	defer rows.Close()

	demos := make([]*Demo, 0)
	for rows.Next() {
		demo := &Demo{}
		var tagsJSON []byte
		if err := rows.Scan(append(demoTargets(demo), &tagsJSON)...); err != nil {
			return nil, dberr.Wrap(err, "scan_demo")
		}
		if err := json.Unmarshal(tagsJSON, &demo.Tags); err != nil {
			return nil, apperr.Internal(fmt.Errorf("unmarshal demo tags: %w", err))
		}
		demos = append(demos, demo)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "iterate_demos")
	}
	return demos, nil
}

func (repository *postgresRepository) FindDemo(context context.Context, componentID, demoSlug string) (*Demo, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM %s d
		WHERE d.%s = $1 AND d.%s = $2
	`,
		qualify("d", schema.GalleryDemo.Columns()), tagsAggregate(),
		schema.GalleryDemo.Table,
		schema.GalleryDemo.ComponentID, schema.GalleryDemo.DemoSlug,
	)

	demo := &Demo{}
	var tagsJSON []byte
	if err := repository.pool.QueryRow(context, query, componentID, demoSlug).Scan(append(demoTargets(demo), &tagsJSON)...); err != nil {
		return nil, dberr.WrapNotFound(err, "find_demo", "Demo")
	}
	if err := json.Unmarshal(tagsJSON, &demo.Tags); err != nil {
		return nil, apperr.Internal(fmt.Errorf("unmarshal demo tags: %w", err))
	}
	return demo, nil
}

/*
ListDemoCards returns a page of public demo cards.

Description: The total is computed with COUNT(*) OVER() in the same round
trip. A non-empty query matches the demo's full-text vector; with the
recommended sort, matches are ranked by relevance first.
*/
func (repository *postgresRepository) ListDemoCards(context context.Context, filter Filter, limit, offset int) ([]*Card, int, error) {
	var queryBuilder strings.Builder
	var args []any
	argID := 1

	queryBuilder.WriteString(fmt.Sprintf(`
		SELECT %s, %s, %s, %s,
			COALESCE(a.%s, 0) AS views,
			COUNT(*) OVER() AS total_count
		FROM %s d
		JOIN %s c ON c.%s = d.%s
		JOIN %s u ON u.%s = c.%s
		%s
		WHERE c.%s
	`,
		qualify("d", schema.GalleryDemo.Columns()), tagsAggregate(),
		qualify("c", schema.GalleryComponent.Columns()), ownerColumns("u"),
		schema.GalleryAnalyticsSummary.Count,
		schema.GalleryDemo.Table,
		schema.GalleryComponent.Table, schema.GalleryComponent.ID, schema.GalleryDemo.ComponentID,
		schema.UserAccount.Table, schema.UserAccount.ID, schema.GalleryComponent.UserID,
		viewsJoin(),
		schema.GalleryComponent.IsPublic,
	))

	// Quick filters
	switch filter.QuickFilter {
	case QuickFilterLastReleased:
		queryBuilder.WriteString(fmt.Sprintf(" AND d.%s >= $%d", schema.GalleryDemo.CreatedAt, argID))
		args = append(args, time.Now().Add(-LastReleasedWindow))
		argID++
	case QuickFilterMostDownloaded:
		queryBuilder.WriteString(fmt.Sprintf(" AND c.%s > 0", schema.GalleryComponent.DownloadsCount))
	}

	// Full-text search
	queryArg := 0
	if filter.Query != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND d.%s @@ websearch_to_tsquery('simple', $%d)", schema.GalleryDemo.FTS, argID))
		args = append(args, filter.Query)
		queryArg = argID
		argID++
	}

	// Sorting
	order := fmt.Sprintf("views DESC, c.%s DESC", schema.GalleryComponent.LikesCount)
	switch {
	case filter.QuickFilter == QuickFilterMostDownloaded || filter.Sort == SortDownloads:
		order = fmt.Sprintf("c.%s DESC", schema.GalleryComponent.DownloadsCount)
	case filter.Sort == SortDate:
		order = fmt.Sprintf("d.%s DESC", schema.GalleryDemo.CreatedAt)
	case filter.Sort == SortLikes:
		order = fmt.Sprintf("c.%s DESC", schema.GalleryComponent.LikesCount)
	case queryArg > 0:
		order = fmt.Sprintf("ts_rank(d.%s, websearch_to_tsquery('simple', $%d)) DESC, %s", schema.GalleryDemo.FTS, queryArg, order)
	}
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s, d.%s DESC", order, schema.GalleryDemo.ID))

	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, limit, offset)

	rows, err := repository.pool.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_demo_cards")
	}
	defer rows.Close()

	cards := make([]*Card, 0, limit)
	total := 0
	for rows.Next() {
		demo := &Demo{Component: &Component{Owner: &Owner{}}}
		var tagsJSON []byte
		var views int64

		targets := append(demoTargets(demo), &tagsJSON)
		targets = append(targets, componentTargets(demo.Component)...)
		targets = append(targets, ownerTargets(demo.Component.Owner)...)
		targets = append(targets, &views, &total)

		if err := rows.Scan(targets...); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_demo_card")
		}
		if err := json.Unmarshal(tagsJSON, &demo.Tags); err != nil {
			return nil, 0, apperr.Internal(fmt.Errorf("unmarshal demo tags: %w", err))
		}
		cards = append(cards, DemoCard(demo, views))
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "iterate_demo_cards")
	}
	return cards, total, nil
}

func (repository *postgresRepository) ListUserComponents(context context.Context, username string, limit, offset int) ([]*Card, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s,
			COALESCE(a.%s, 0) AS views,
			COUNT(*) OVER() AS total_count
		FROM %s c
		JOIN %s u ON u.%s = c.%s
		%s
		WHERE u.%s = $1 AND c.%s
		ORDER BY c.%s DESC, c.%s DESC
		LIMIT $2 OFFSET $3
	`,
		qualify("c", schema.GalleryComponent.Columns()), ownerColumns("u"),
		schema.GalleryAnalyticsSummary.Count,
		schema.GalleryComponent.Table,
		schema.UserAccount.Table, schema.UserAccount.ID, schema.GalleryComponent.UserID,
		viewsJoin(),
		schema.UserAccount.Username, schema.GalleryComponent.IsPublic,
		schema.GalleryComponent.CreatedAt, schema.GalleryComponent.ID,
	)

	rows, err := repository.pool.Query(context, query, username, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_user_components")
	}
	defer rows.Close()

	cards := make([]*Card, 0, limit)
	total := 0
	for rows.Next() {
		component := &Component{Owner: &Owner{}}
		var views int64

		targets := append(componentTargets(component), ownerTargets(component.Owner)...)
		targets = append(targets, &views, &total)
		if err := rows.Scan(targets...); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_component_card")
		}
		cards = append(cards, ComponentCard(component, views))
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "iterate_component_cards")
	}
	return cards, total, nil
}

// # Analytics

/*
RecordActivity appends an analytics row and, for copy activities, bumps the
component's download counter in the same transaction.
*/
func (repository *postgresRepository) RecordActivity(context context.Context, componentID string, activity ActivityType) error {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "begin_record_activity")
	}
	defer transaction.Rollback(context)

	insert := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, $2)`,
		schema.GalleryAnalytics.Table, schema.GalleryAnalytics.ComponentID, schema.GalleryAnalytics.ActivityType)
	if _, err := transaction.Exec(context, insert, componentID, string(activity)); err != nil {
		return dberr.Wrap(err, "insert_activity")
	}

	if activity.CountsDownload() {
		update := fmt.Sprintf(`UPDATE %s SET %s = %s + 1 WHERE %s = $1`,
			schema.GalleryComponent.Table, schema.GalleryComponent.DownloadsCount,
			schema.GalleryComponent.DownloadsCount, schema.GalleryComponent.ID)
		if _, err := transaction.Exec(context, update, componentID); err != nil {
			return dberr.Wrap(err, "increment_downloads")
		}
	}

	if err := transaction.Commit(context); err != nil {
		return dberr.Wrap(err, "commit_record_activity")
	}
	return nil
}

func (repository *postgresRepository) CountActivity(context context.Context, componentID string) (map[ActivityType]int64, error) {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM %s WHERE %s = $1 GROUP BY %s`,
		schema.GalleryAnalytics.ActivityType, schema.GalleryAnalytics.Table,
		schema.GalleryAnalytics.ComponentID, schema.GalleryAnalytics.ActivityType)

	rows, err := repository.pool.Query(context, query, componentID)
	if err != nil {
		return nil, dberr.Wrap(err, "count_activity")
	}
	defer rows.Close()

	counts := make(map[ActivityType]int64, len(ActivityTypes))
	for rows.Next() {
		var activity string
		var count int64
		if err := rows.Scan(&activity, &count); err != nil {
			return nil, dberr.Wrap(err, "scan_activity_count")
		}
		counts[ActivityType(activity)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "iterate_activity_counts")
	}
	return counts, nil
}

// RefreshAnalytics recomputes the rollup behind card view counts.
func (repository *postgresRepository) RefreshAnalytics(context context.Context) error {
	query := fmt.Sprintf(`REFRESH MATERIALIZED VIEW CONCURRENTLY %s`, schema.GalleryAnalyticsSummary.Table)
	if _, err := repository.pool.Exec(context, query); err != nil {
		return dberr.Wrap(err, "refresh_analytics")
	}
	return nil
}

// # Publishing

func (repository *postgresRepository) FindOwner(context context.Context, username string) (*Owner, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s u WHERE u.%s = $1`,
		ownerColumns("u"), schema.UserAccount.Table, schema.UserAccount.Username)

	owner := &Owner{}
	if err := repository.pool.QueryRow(context, query, username).Scan(ownerTargets(owner)...); err != nil {
		return nil, dberr.WrapNotFound(err, "find_owner", "User")
	}
	return owner, nil
}

func (repository *postgresRepository) CreateComponent(context context.Context, component *Component) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			%s, %s, %s, %s, %s, %s, %s, %s, %s,
			%s, %s, %s, %s, %s, %s, %s
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING %s, %s
	`,
		schema.GalleryComponent.Table,
		schema.GalleryComponent.ID, schema.GalleryComponent.UserID, schema.GalleryComponent.Name,
		schema.GalleryComponent.Registry, schema.GalleryComponent.ComponentSlug, schema.GalleryComponent.ComponentNames,
		schema.GalleryComponent.Description, schema.GalleryComponent.License, schema.GalleryComponent.WebsiteURL,
		schema.GalleryComponent.CodeURL, schema.GalleryComponent.TailwindConfigURL, schema.GalleryComponent.GlobalCSSURL,
		schema.GalleryComponent.Dependencies, schema.GalleryComponent.DemoDependencies,
		schema.GalleryComponent.DirectRegistryDependencies, schema.GalleryComponent.IsPublic,
		schema.GalleryComponent.CreatedAt, schema.GalleryComponent.UpdatedAt,
	)

	err := repository.pool.QueryRow(context, query,
		component.ID, component.UserID, component.Name,
		component.Registry, component.ComponentSlug, component.ComponentNames,
		component.Description, component.License, component.WebsiteURL,
		component.CodeURL, component.TailwindConfigURL, component.GlobalCSSURL,
		component.Dependencies, component.DemoDependencies,
		component.DirectRegistryDependencies, component.IsPublic,
	).Scan(&component.CreatedAt, &component.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "insert_component")
	}
	return nil
}

func (repository *postgresRepository) CreateDemo(context context.Context, demo *Demo) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s, %s
	`,
		schema.GalleryDemo.Table,
		schema.GalleryDemo.ID, schema.GalleryDemo.ComponentID, schema.GalleryDemo.UserID,
		schema.GalleryDemo.Name, schema.GalleryDemo.DemoSlug, schema.GalleryDemo.DemoDependencies,
		schema.GalleryDemo.DemoDirectRegistryDependencies, schema.GalleryDemo.CompiledCSS,
		schema.GalleryDemo.CreatedAt, schema.GalleryDemo.UpdatedAt,
	)

	err := repository.pool.QueryRow(context, query,
		demo.ID, demo.ComponentID, demo.UserID,
		demo.Name, demo.DemoSlug, demo.DemoDependencies,
		demo.DemoDirectRegistryDependencies, demo.CompiledCSS,
	).Scan(&demo.CreatedAt, &demo.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "insert_demo")
	}
	return nil
}

func (repository *postgresRepository) UpdateDemoAssets(context context.Context, demoID string, assets DemoAssets) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, %s = $4, %s = now() WHERE %s = $1`,
		schema.GalleryDemo.Table,
		schema.GalleryDemo.DemoCodeURL, schema.GalleryDemo.PreviewURL, schema.GalleryDemo.VideoURL,
		schema.GalleryDemo.UpdatedAt, schema.GalleryDemo.ID,
	)

	tag, err := repository.pool.Exec(context, query, demoID, assets.DemoCodeURL, assets.PreviewURL, assets.VideoURL)
	if err != nil {
		return dberr.Wrap(err, "update_demo_assets")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Demo")
	}
	return nil
}

/*
AttachTags upserts each tag by slug and links it to the demo.

Description: Runs in one transaction so a demo never ends up with a partial
tag set.
*/
func (repository *postgresRepository) AttachTags(context context.Context, demoID string, tags []Tag) error {
	if len(tags) == 0 {
		return nil
	}

	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "begin_attach_tags")
	}
	defer transaction.Rollback(context)

	upsert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s) VALUES ($1, $2)
		ON CONFLICT (%s) DO UPDATE SET %s = excluded.%s
		RETURNING %s
	`,
		schema.GalleryTag.Table, schema.GalleryTag.Name, schema.GalleryTag.Slug,
		schema.GalleryTag.Slug, schema.GalleryTag.Slug, schema.GalleryTag.Slug,
		schema.GalleryTag.ID,
	)
	link := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		schema.GalleryDemoTag.Table, schema.GalleryDemoTag.DemoID, schema.GalleryDemoTag.TagID)

	for _, tag := range tags {
		var tagID int
		if err := transaction.QueryRow(context, upsert, tag.Name, tag.Slug).Scan(&tagID); err != nil {
			return dberr.Wrap(err, "upsert_tag")
		}
		if _, err := transaction.Exec(context, link, demoID, tagID); err != nil {
			return dberr.Wrap(err, "link_demo_tag")
		}
	}

	if err := transaction.Commit(context); err != nil {
		return dberr.Wrap(err, "commit_attach_tags")
	}
	return nil
}
