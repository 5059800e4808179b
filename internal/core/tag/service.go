// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tag

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/ehtisham-afzal/21st/internal/platform/cache"
	"github.com/ehtisham-afzal/21st/internal/platform/validate"
)

// Service answers tag queries through the query cache.
type Service struct {
	repo  Repository
	cache *cache.Store
}

// NewService constructs a new tag [Service].
func NewService(repo Repository, store *cache.Store) *Service {
	return &Service{repo: repo, cache: store}
}

// List returns the tags matching query. Slugs are validated and
// de-duplicated; the limit is clamped to [MaxLimit].
func (service *Service) List(ctx context.Context, query Query) ([]*Summary, error) {
	validator := new(validate.Validator)
	for _, slug := range query.Slugs {
		validator.Slug("slugs", slug)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	query.Slugs = uniqueSorted(query.Slugs)
	if query.Limit < 1 {
		query.Limit = DefaultLimit
	}
	query.Limit = min(query.Limit, MaxLimit)

	key := cache.NewKey("tag.list", strings.Join(query.Slugs, ","), strconv.FormatBool(query.IncludeEmpty), strconv.Itoa(query.Limit))
	return cache.GetOrLoad(ctx, service.cache, key, func(ctx context.Context) ([]*Summary, error) {
		return service.repo.List(ctx, query)
	})
}

// Get returns one tag.
func (service *Service) Get(context context.Context, slug string) (*Summary, error) {
	if err := new(validate.Validator).Slug("slug", slug).Err(); err != nil {
		return nil, err
	}
	return service.repo.FindBySlug(context, slug)
}

func uniqueSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	unique := make([]string, 0, len(values))
	for _, value := range values {
		if !seen[value] {
			seen[value] = true
			unique = append(unique, value)
		}
	}
	sort.Strings(unique)
	return unique
}
