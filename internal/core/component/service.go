// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package component

import (
	"context"
	"log/slog"
	"time"

	"github.com/ehtisham-afzal/21st/internal/platform/constants"
	"github.com/ehtisham-afzal/21st/internal/platform/validate"
	"github.com/ehtisham-afzal/21st/pkg/pagination"
)

// # Catalogue Service

// Service implements the catalogue read paths and analytics.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new catalogue [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

/*
GetDetail returns a component page: the component, its owner and its demos.

Parameters:
  - context: context.Context
  - username: string
  - slug: string

Returns:
  - *Detail: Component with demos, default demo first
  - error: apperr.NotFound if the component is missing or private
*/
func (service *Service) GetDetail(context context.Context, username, slug string) (*Detail, error) {
	component, err := service.repo.FindBySlug(context, username, slug)
	if err != nil {
		return nil, err
	}

	demos, err := service.repo.ListDemos(context, component.ID)
	if err != nil {
		return nil, err
	}

	return &Detail{Component: component, Demos: demos}, nil
}

/*
GetDemo returns a component together with one of its demos.

Parameters:
  - context: context.Context
  - username: string
  - slug: string
  - demoSlug: string (empty selects the default demo)

Returns:
  - *Component
  - *Demo
  - error: apperr.NotFound if either is missing
*/
func (service *Service) GetDemo(context context.Context, username, slug, demoSlug string) (*Component, *Demo, error) {
	if demoSlug == "" {
		demoSlug = constants.DefaultDemoSlug
	}

	component, err := service.repo.FindBySlug(context, username, slug)
	if err != nil {
		return nil, nil, err
	}

	demo, err := service.repo.FindDemo(context, component.ID, demoSlug)
	if err != nil {
		return nil, nil, err
	}
	return component, demo, nil
}

// BrowseDemos returns a page of demo cards.
func (service *Service) BrowseDemos(context context.Context, filter Filter, page pagination.Params) ([]*Card, int, error) {
	err := new(validate.Validator).
		MaxLen("q", filter.Query, 200).
		Err()
	if err != nil {
		return nil, 0, err
	}

	return service.repo.ListDemoCards(context, filter, page.Limit, page.Offset())
}

// ListUserComponents returns a page of one owner's component cards.
func (service *Service) ListUserComponents(context context.Context, username string, page pagination.Params) ([]*Card, int, error) {
	if _, err := service.repo.FindOwner(context, username); err != nil {
		return nil, 0, err
	}
	return service.repo.ListUserComponents(context, username, page.Limit, page.Offset())
}

// # Analytics

/*
RecordActivity records an interaction with a published component.

Parameters:
  - context: context.Context
  - username: string
  - slug: string
  - activity: ActivityType

Returns:
  - error: Validation or not-found failures
*/
func (service *Service) RecordActivity(context context.Context, username, slug string, activity ActivityType) error {
	err := new(validate.Validator).
		OneOf("activity_type", string(activity), ActivityTypes...).
		Err()
	if err != nil {
		return err
	}

	component, err := service.repo.FindBySlug(context, username, slug)
	if err != nil {
		return err
	}

	if err := service.repo.RecordActivity(context, component.ID, activity); err != nil {
		return err
	}

	service.logger.Debug("component_activity_recorded",
		slog.String("component_id", component.ID),
		slog.String("activity_type", string(activity)),
	)
	return nil
}

// Analytics returns the counts per activity type, zero-filled.
func (service *Service) Analytics(context context.Context, username, slug string) (map[ActivityType]int64, error) {
	component, err := service.repo.FindBySlug(context, username, slug)
	if err != nil {
		return nil, err
	}

	counts, err := service.repo.CountActivity(context, component.ID)
	if err != nil {
		return nil, err
	}
	for _, activity := range ActivityTypes {
		if _, ok := counts[ActivityType(activity)]; !ok {
			counts[ActivityType(activity)] = 0
		}
	}
	return counts, nil
}

/*
RunAnalyticsRefresh refreshes the card view counts every interval until the
context is cancelled.
*/
func (service *Service) RunAnalyticsRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := service.repo.RefreshAnalytics(ctx); err != nil && ctx.Err() == nil {
				service.logger.Warn("analytics_refresh_failed", slog.Any("error", err))
			}
		}
	}
}
