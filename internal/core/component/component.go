// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package component is the published gallery catalogue.

It owns components, their demos and tags, the browse listings and the
per-component analytics. The same store answers the dependency resolver when
it looks up published registry components.
*/
package component

import (
	"time"
)

// # Entities

// Owner is the public profile of a publisher.
type Owner struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Name     *string `json:"name"`
	ImageURL *string `json:"image_url"`
	Role     string  `json:"-"`
}

// Component is a published UI component. (UserID, Registry, ComponentSlug) is unique.
type Component struct {
	ID             string   `json:"id"`
	UserID         string   `json:"user_id"`
	Name           string   `json:"name"`
	Registry       string   `json:"registry"`
	ComponentSlug  string   `json:"component_slug"`
	ComponentNames []string `json:"component_names"`
	Description    *string  `json:"description"`
	License        string   `json:"license"`
	WebsiteURL     *string  `json:"website_url"`

	// Source locations in object storage
	CodeURL           string  `json:"code_url"`
	TailwindConfigURL *string `json:"tailwind_config_url"`
	GlobalCSSURL      *string `json:"global_css_url"`

	Dependencies               map[string]string `json:"dependencies"`
	DemoDependencies           map[string]string `json:"demo_dependencies"`
	DirectRegistryDependencies []string          `json:"direct_registry_dependencies"`

	IsPublic       bool      `json:"is_public"`
	LikesCount     int       `json:"likes_count"`
	DownloadsCount int       `json:"downloads_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Owner is populated by joined queries.
	Owner *Owner `json:"user,omitempty"`
}

// Demo is one usage example of a component. The first demo is always "default".
type Demo struct {
	ID          string `json:"id"`
	ComponentID string `json:"component_id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	DemoSlug    string `json:"demo_slug"`
	DemoCodeURL string `json:"demo_code_url"`

	DemoDependencies               map[string]string `json:"demo_dependencies"`
	DemoDirectRegistryDependencies []string          `json:"demo_direct_registry_dependencies"`

	PreviewURL  *string `json:"preview_url"`
	VideoURL    *string `json:"video_url"`
	CompiledCSS *string `json:"compiled_css,omitempty"`

	Tags      []Tag     `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Component is populated on browse cards.
	Component *Component `json:"component,omitempty"`
}

// Tag labels demos for discovery.
type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Detail is the component page payload.
type Detail struct {
	Component *Component `json:"component"`
	Demos     []*Demo    `json:"demos"`
}

// # Cards

// CardKind tells which entity a card renders.
type CardKind string

const (
	CardComponent CardKind = "component"
	CardDemo      CardKind = "demo"
)

/*
Card is one tile of a gallery listing.

The kind is fixed when the card is built by the query that produced it;
exactly one of Component or Demo is set.
*/
type Card struct {
	Kind      CardKind   `json:"kind"`
	Component *Component `json:"component,omitempty"`
	Demo      *Demo      `json:"demo,omitempty"`
	ViewCount int64      `json:"view_count"`
}

// ComponentCard wraps a component listing entry.
func ComponentCard(component *Component, views int64) *Card {
	return &Card{Kind: CardComponent, Component: component, ViewCount: views}
}

// DemoCard wraps a demo listing entry.
func DemoCard(demo *Demo, views int64) *Card {
	return &Card{Kind: CardDemo, Demo: demo, ViewCount: views}
}

// # Browse Filters

// QuickFilter narrows the demo listing.
type QuickFilter string

const (
	QuickFilterAll            QuickFilter = "all"
	QuickFilterLastReleased   QuickFilter = "last_released"
	QuickFilterMostDownloaded QuickFilter = "most_downloaded"
)

// Sort orders the demo listing.
type Sort string

const (
	SortRecommended Sort = "recommended"
	SortDate        Sort = "date"
	SortDownloads   Sort = "downloads"
	SortLikes       Sort = "likes"
)

// LastReleasedWindow bounds the last_released quick filter.
const LastReleasedWindow = 7 * 24 * time.Hour

// Filter selects demo cards.
type Filter struct {
	QuickFilter QuickFilter
	Sort        Sort
	Query       string
}

// ParseQuickFilter falls back to all for unknown values.
func ParseQuickFilter(value string) QuickFilter {
	switch QuickFilter(value) {
	case QuickFilterLastReleased, QuickFilterMostDownloaded:
		return QuickFilter(value)
	default:
		return QuickFilterAll
	}
}

// ParseSort falls back to recommended for unknown values.
func ParseSort(value string) Sort {
	switch Sort(value) {
	case SortDate, SortDownloads, SortLikes:
		return Sort(value)
	default:
		return SortRecommended
	}
}

// # Analytics

// ActivityType classifies a recorded interaction.
type ActivityType string

const (
	ActivityView               ActivityType = "component_view"
	ActivityCodeCopy           ActivityType = "component_code_copy"
	ActivityInstallCommandCopy ActivityType = "install_command_copy"
)

// ActivityTypes lists the accepted activity types.
var ActivityTypes = []string{
	string(ActivityView),
	string(ActivityCodeCopy),
	string(ActivityInstallCommandCopy),
}

// CountsDownload reports whether the activity increments the download counter.
func (a ActivityType) CountsDownload() bool {
	return a == ActivityCodeCopy || a == ActivityInstallCommandCopy
}
