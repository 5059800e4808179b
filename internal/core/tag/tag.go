// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package tag lists the tags attached to published demos.

Tags are created by the publish flow; this package only reads them, for the
tag filter of the gallery.
*/
package tag

import (
	"context"

	"github.com/ehtisham-afzal/21st/internal/core/component"
)

const (
	// DefaultLimit caps a tag listing when the caller does not.
	DefaultLimit = 100

	// MaxLimit is the largest listing served.
	MaxLimit = 500
)

// Summary is a tag with the number of public demos carrying it.
type Summary struct {
	component.Tag
	DemoCount int `json:"demo_count"`
}

// Query narrows a tag listing.
type Query struct {
	// Slugs restricts the listing to these tags. Empty lists every tag.
	Slugs []string

	// IncludeEmpty keeps tags no public demo carries.
	IncludeEmpty bool

	Limit int
}

// Repository reads tags.
type Repository interface {
	// List returns tags ordered by demo count, then name.
	List(context context.Context, query Query) ([]*Summary, error)

	// FindBySlug returns one tag. apperr.NotFound when missing.
	FindBySlug(context context.Context, slug string) (*Summary, error)
}
