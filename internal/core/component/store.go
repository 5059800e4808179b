// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package component

import (
	"context"

	"github.com/ehtisham-afzal/21st/internal/preview/resolver"
)

// # Catalogue Data Access

// Repository defines the data access contract for the gallery catalogue.
type Repository interface {
	resolver.Catalogue

	/*
		FindBySlug returns the component an owner published under slug.

		Description: When the owner published the slug in several registries,
		the default registry wins, then the oldest.

		Parameters:
		  - context: context.Context
		  - username: string
		  - slug: string

		Returns:
		  - *Component: Hydrated with its owner
		  - error: apperr.NotFound if missing or private
	*/
	FindBySlug(context context.Context, username, slug string) (*Component, error)

	// FindByID returns a component with its owner.
	FindByID(context context.Context, id string) (*Component, error)

	/*
		ListDemos returns every demo of a component, default first.

		Parameters:
		  - context: context.Context
		  - componentID: string (UUID)

		Returns:
		  - []*Demo: Demos with tags
		  - error: Retrieval failures
	*/
	ListDemos(context context.Context, componentID string) ([]*Demo, error)

	// FindDemo returns one demo of a component.
	FindDemo(context context.Context, componentID, demoSlug string) (*Demo, error)

	/*
		ListDemoCards returns a page of demo cards.

		Parameters:
		  - context: context.Context
		  - filter: Filter (quick filter, sort, full-text query)
		  - limit: int
		  - offset: int

		Returns:
		  - []*Card: Cards of kind demo
		  - int: Total matching demos
		  - error: Retrieval failures
	*/
	ListDemoCards(context context.Context, filter Filter, limit, offset int) ([]*Card, int, error)

	// ListUserComponents returns a page of one owner's component cards.
	ListUserComponents(context context.Context, username string, limit, offset int) ([]*Card, int, error)

	// # Analytics

	// RecordActivity appends an analytics event.
	RecordActivity(context context.Context, componentID string, activity ActivityType) error

	// CountActivity returns the rolled-up counts per activity type.
	CountActivity(context context.Context, componentID string) (map[ActivityType]int64, error)

	// RefreshAnalytics recomputes the rollup behind card view counts.
	RefreshAnalytics(context context.Context) error

	// # Publishing

	// FindOwner returns the publisher profile for a username.
	FindOwner(context context.Context, username string) (*Owner, error)

	// CreateComponent inserts a component row.
	CreateComponent(context context.Context, component *Component) error

	// CreateDemo inserts a demo row without its assets.
	CreateDemo(context context.Context, demo *Demo) error

	/*
		UpdateDemoAssets records the uploaded demo assets.

		Parameters:
		  - context: context.Context
		  - demoID: string (UUID)
		  - assets: DemoAssets (code, preview image and video URLs)

		Returns:
		  - error: apperr.NotFound when the demo row is gone
	*/
	UpdateDemoAssets(context context.Context, demoID string, assets DemoAssets) error

	// AttachTags upserts tags by slug and links them to a demo.
	AttachTags(context context.Context, demoID string, tags []Tag) error
}

// DemoAssets are the storage URLs written after a demo's uploads.
type DemoAssets struct {
	DemoCodeURL string
	PreviewURL  *string
	VideoURL    *string
}
