// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination reads page/limit query parameters and builds the "meta"
// block of list responses. The gallery grid loads pages of cards as the user
// scrolls, so [Meta.HasMore] is what the frontend checks first.
package pagination

import (
	"net/http"

	"github.com/ehtisham-afzal/21st/pkg/convert"
)

const (
	DefaultPage = 1

	// DefaultLimit is four rows of the six-column card grid.
	DefaultLimit = 24
	MaxLimit     = 100
)

// Params is a 1-indexed page request.
type Params struct {
	Page  int
	Limit int
}

// Offset is the SQL OFFSET for the page.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Meta describes where a page sits in the full result set.
type Meta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

// NewMeta derives the page count from total and limit.
func NewMeta(page, limit, total int) Meta {
	meta := Meta{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		meta.TotalPages = (total + limit - 1) / limit
	}
	meta.HasMore = page < meta.TotalPages
	return meta
}

// FromRequest reads ?page= and ?limit=. A page below one becomes
// [DefaultPage]; a limit outside [1, MaxLimit] becomes [DefaultLimit].
func FromRequest(request *http.Request) Params {
	query := request.URL.Query()
	params := Params{
		Page:  convert.ToIntD(query.Get("page"), DefaultPage),
		Limit: convert.ToIntD(query.Get("limit"), DefaultLimit),
	}
	if params.Page < 1 {
		params.Page = DefaultPage
	}
	if params.Limit < 1 || params.Limit > MaxLimit {
		params.Limit = DefaultLimit
	}
	return params
}
