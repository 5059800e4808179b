// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package component_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehtisham-afzal/21st/internal/core/component"
	"github.com/ehtisham-afzal/21st/internal/platform/apperr"
	"github.com/ehtisham-afzal/21st/pkg/pagination"
)

// # Fakes

// fakeRepository serves a single component. Methods the tests never reach
// fall through to the nil embedded interface.
type fakeRepository struct {
	component.Repository

	component  *component.Component
	demos      []*component.Demo
	activities []component.ActivityType
	counts     map[component.ActivityType]int64
	filters    []component.Filter
	offsets    []int
}

func (fake *fakeRepository) FindBySlug(_ context.Context, username, slug string) (*component.Component, error) {
	if fake.component == nil || fake.component.Owner.Username != username || fake.component.ComponentSlug != slug {
		return nil, apperr.NotFound("Component")
	}
	return fake.component, nil
}

func (fake *fakeRepository) ListDemos(_ context.Context, componentID string) ([]*component.Demo, error) {
	return fake.demos, nil
}

func (fake *fakeRepository) FindDemo(_ context.Context, componentID, demoSlug string) (*component.Demo, error) {
	for _, demo := range fake.demos {
		if demo.DemoSlug == demoSlug {
			return demo, nil
		}
	}
	return nil, apperr.NotFound("Demo")
}

func (fake *fakeRepository) ListDemoCards(_ context.Context, filter component.Filter, limit, offset int) ([]*component.Card, int, error) {
	fake.filters = append(fake.filters, filter)
	fake.offsets = append(fake.offsets, offset)
	cards := make([]*component.Card, 0, len(fake.demos))
	for _, demo := range fake.demos {
		cards = append(cards, component.DemoCard(demo, 3))
	}
	return cards, len(cards), nil
}

func (fake *fakeRepository) FindOwner(_ context.Context, username string) (*component.Owner, error) {
	if fake.component == nil || fake.component.Owner.Username != username {
		return nil, apperr.NotFound("User")
	}
	return fake.component.Owner, nil
}

func (fake *fakeRepository) RecordActivity(_ context.Context, componentID string, activity component.ActivityType) error {
	fake.activities = append(fake.activities, activity)
	return nil
}

func (fake *fakeRepository) CountActivity(_ context.Context, componentID string) (map[component.ActivityType]int64, error) {
	counts := map[component.ActivityType]int64{}
	for activity, count := range fake.counts {
		counts[activity] = count
	}
	return counts, nil
}

func newFixture() *fakeRepository {
	return &fakeRepository{
		component: &component.Component{
			ID:            "c-1",
			Name:          "Card",
			Registry:      "ui",
			ComponentSlug: "card",
			Owner:         &component.Owner{ID: "u-1", Username: "alice"},
		},
		demos: []*component.Demo{
			{ID: "d-1", ComponentID: "c-1", Name: "Default", DemoSlug: "default"},
			{ID: "d-2", ComponentID: "c-1", Name: "With Image", DemoSlug: "with-image"},
		},
		counts: map[component.ActivityType]int64{component.ActivityView: 7},
	}
}

func newService(repo component.Repository) *component.Service {
	return component.NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// # Service

/*
TestService_GetDetail verifies a page returns the component and its demos.
*/
func TestService_GetDetail(t *testing.T) {
	service := newService(newFixture())

	detail, err := service.GetDetail(context.Background(), "alice", "card")
	require.NoError(t, err)
	assert.Equal(t, "c-1", detail.Component.ID)
	assert.Len(t, detail.Demos, 2)

	_, err = service.GetDetail(context.Background(), "alice", "missing")
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

/*
TestService_GetDemo verifies an empty demo slug selects the default demo.
*/
func TestService_GetDemo(t *testing.T) {
	service := newService(newFixture())

	_, demo, err := service.GetDemo(context.Background(), "alice", "card", "")
	require.NoError(t, err)
	assert.Equal(t, "d-1", demo.ID)

	_, demo, err = service.GetDemo(context.Background(), "alice", "card", "with-image")
	require.NoError(t, err)
	assert.Equal(t, "d-2", demo.ID)
}

/*
TestService_RecordActivity covers validation and the recorded activity.
*/
func TestService_RecordActivity(t *testing.T) {
	tests := []struct {
		name     string
		activity component.ActivityType
		status   int
	}{
		{name: "view", activity: component.ActivityView},
		{name: "install copy", activity: component.ActivityInstallCommandCopy},
		{name: "unknown", activity: "component_like", status: http.StatusBadRequest},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			repo := newFixture()
			err := newService(repo).RecordActivity(context.Background(), "alice", "card", test.activity)

			if test.status != 0 {
				appErr := apperr.As(err)
				require.NotNil(t, appErr)
				assert.Equal(t, test.status, appErr.HTTPStatus)
				assert.Empty(t, repo.activities)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []component.ActivityType{test.activity}, repo.activities)
		})
	}
}

/*
TestService_Analytics verifies every activity type is reported.
*/
func TestService_Analytics(t *testing.T) {
	counts, err := newService(newFixture()).Analytics(context.Background(), "alice", "card")

	require.NoError(t, err)
	assert.Equal(t, int64(7), counts[component.ActivityView])
	assert.Contains(t, counts, component.ActivityCodeCopy)
	assert.Contains(t, counts, component.ActivityInstallCommandCopy)
}

/*
TestActivityType_CountsDownload verifies only copy activities count as downloads.
*/
func TestActivityType_CountsDownload(t *testing.T) {
	assert.False(t, component.ActivityView.CountsDownload())
	assert.True(t, component.ActivityCodeCopy.CountsDownload())
	assert.True(t, component.ActivityInstallCommandCopy.CountsDownload())
}

// # Cards

/*
TestCards verifies each constructor fixes the card kind.
*/
func TestCards(t *testing.T) {
	demoCard := component.DemoCard(&component.Demo{ID: "d"}, 2)
	assert.Equal(t, component.CardDemo, demoCard.Kind)
	assert.Nil(t, demoCard.Component)

	componentCard := component.ComponentCard(&component.Component{ID: "c"}, 1)
	assert.Equal(t, component.CardComponent, componentCard.Kind)
	assert.Nil(t, componentCard.Demo)

	encoded, err := json.Marshal(demoCard)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"kind":"demo"`)
	assert.NotContains(t, string(encoded), `"component":`)
}

// # Browse State

/*
TestBrowse verifies filter changes reset the page and notify subscribers.
*/
func TestBrowse(t *testing.T) {
	browse := component.NewBrowse()

	var seen []component.BrowseState
	unsubscribe := browse.Subscribe(func(state component.BrowseState) {
		seen = append(seen, state)
	})

	browse.SetPage(3)
	assert.Equal(t, 3, browse.State().Page)

	browse.SetSort(component.SortLikes)
	assert.Equal(t, 1, browse.State().Page)
	assert.Equal(t, component.SortLikes, browse.State().Sort)

	browse.SetQuery("  button ")
	assert.Equal(t, "button", browse.State().Query)

	unsubscribe()
	browse.SetQuickFilter(component.QuickFilterLastReleased)

	assert.Len(t, seen, 3)
	assert.Equal(t, component.QuickFilterLastReleased, browse.State().QuickFilter)

	browse.Apply(component.BrowseState{QuickFilter: "bogus", Sort: "nope", Page: -2})
	assert.Equal(t, component.DefaultBrowseState(), browse.State())
}

/*
TestBrowseFromRequest verifies unknown query values fall back to defaults.
*/
func TestBrowseFromRequest(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  component.BrowseState
	}{
		{
			name:  "defaults",
			query: "",
			want:  component.DefaultBrowseState(),
		},
		{
			name:  "explicit",
			query: "quick_filter=most_downloaded&sort=date&q=modal&page=2",
			want:  component.BrowseState{QuickFilter: component.QuickFilterMostDownloaded, Sort: component.SortDate, Query: "modal", Page: 2},
		},
		{
			name:  "unknown values",
			query: "quick_filter=trending&sort=random",
			want:  component.DefaultBrowseState(),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/demos?"+test.query, nil)
			assert.Equal(t, test.want, component.BrowseFromRequest(request))
		})
	}

	assert.Equal(t, pagination.DefaultLimit, component.DefaultBrowseState().Params().Limit)
}

// # HTTP

func newRouter(repo component.Repository) http.Handler {
	router := chi.NewRouter()
	component.NewHandler(newService(repo)).RegisterRoutes(router)
	return router
}

/*
TestHandler_BrowseDemos verifies the paginated envelope and the filter passed down.
*/
func TestHandler_BrowseDemos(t *testing.T) {
	repo := newFixture()
	recorder := httptest.NewRecorder()
	newRouter(repo).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/demos?sort=likes&page=2&limit=10", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Data []component.Card `json:"data"`
		Meta pagination.Meta  `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
	assert.Equal(t, component.CardDemo, body.Data[0].Kind)
	assert.Equal(t, 2, body.Meta.Page)

	require.Len(t, repo.filters, 1)
	assert.Equal(t, component.SortLikes, repo.filters[0].Sort)
	assert.Equal(t, []int{10}, repo.offsets)
}

/*
TestHandler_Activity covers the record and read endpoints.
*/
func TestHandler_Activity(t *testing.T) {
	repo := newFixture()
	router := newRouter(repo)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/components/alice/card/analytics",
		strings.NewReader(`{"activity_type":"component_code_copy"}`)))
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, []component.ActivityType{component.ActivityCodeCopy}, repo.activities)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/components/alice/card/analytics", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"component_view":7`)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/components/bob/card", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
