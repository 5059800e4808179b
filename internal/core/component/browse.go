// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package component

import (
	"net/http"
	"strings"

	requestutil "github.com/ehtisham-afzal/21st/internal/platform/request"
	"github.com/ehtisham-afzal/21st/pkg/pagination"
	"github.com/ehtisham-afzal/21st/pkg/statestore"
)

// # Browse State

// BrowseState is the gallery selection of one viewer.
type BrowseState struct {
	QuickFilter QuickFilter `json:"quick_filter"`
	Sort        Sort        `json:"sort"`
	Query       string      `json:"q"`
	Page        int         `json:"page"`
}

// DefaultBrowseState is the landing page selection.
func DefaultBrowseState() BrowseState {
	return BrowseState{
		QuickFilter: QuickFilterAll,
		Sort:        SortRecommended,
		Page:        pagination.DefaultPage,
	}
}

// BrowseFromRequest reads the selection from the query string.
func BrowseFromRequest(request *http.Request) BrowseState {
	state := DefaultBrowseState()
	state.QuickFilter = ParseQuickFilter(requestutil.Query(request, "quick_filter"))
	state.Sort = ParseSort(requestutil.Query(request, "sort"))
	state.Query = strings.TrimSpace(requestutil.Query(request, "q"))
	state.Page = pagination.FromRequest(request).Page
	return state
}

// Filter returns the repository filter for the selection.
func (state BrowseState) Filter() Filter {
	return Filter{QuickFilter: state.QuickFilter, Sort: state.Sort, Query: state.Query}
}

// Params returns the page to fetch.
func (state BrowseState) Params() pagination.Params {
	page := state.Page
	if page < 1 {
		page = pagination.DefaultPage
	}
	return pagination.Params{Page: page, Limit: pagination.DefaultLimit}
}

/*
Browse holds a viewer's selection in a [statestore.Store].

Every setter except SetPage returns to the first page, since a changed filter
invalidates the current offset.
*/
type Browse struct {
	store *statestore.Store[BrowseState]
}

// NewBrowse starts from the default selection.
func NewBrowse() *Browse {
	return &Browse{store: statestore.New(DefaultBrowseState())}
}

// State returns the current selection.
func (browse *Browse) State() BrowseState {
	return browse.store.Get()
}

// Subscribe registers a listener for selection changes.
func (browse *Browse) Subscribe(listener func(BrowseState)) (unsubscribe func()) {
	return browse.store.Subscribe(listener)
}

func (browse *Browse) SetQuickFilter(filter QuickFilter) {
	browse.store.Update(func(state BrowseState) BrowseState {
		state.QuickFilter = filter
		state.Page = pagination.DefaultPage
		return state
	})
}

func (browse *Browse) SetSort(sort Sort) {
	browse.store.Update(func(state BrowseState) BrowseState {
		state.Sort = sort
		state.Page = pagination.DefaultPage
		return state
	})
}

func (browse *Browse) SetQuery(query string) {
	browse.store.Update(func(state BrowseState) BrowseState {
		state.Query = strings.TrimSpace(query)
		state.Page = pagination.DefaultPage
		return state
	})
}

func (browse *Browse) SetPage(page int) {
	browse.store.Update(func(state BrowseState) BrowseState {
		if page < 1 {
			page = pagination.DefaultPage
		}
		state.Page = page
		return state
	})
}

// Apply replaces the whole selection, normalising unknown values.
func (browse *Browse) Apply(next BrowseState) {
	browse.store.Update(func(BrowseState) BrowseState {
		next.QuickFilter = ParseQuickFilter(string(next.QuickFilter))
		next.Sort = ParseSort(string(next.Sort))
		next.Query = strings.TrimSpace(next.Query)
		if next.Page < 1 {
			next.Page = pagination.DefaultPage
		}
		return next
	})
}
