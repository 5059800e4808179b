// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package component

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/ehtisham-afzal/21st/internal/platform/request"
	"github.com/ehtisham-afzal/21st/internal/platform/respond"
	"github.com/ehtisham-afzal/21st/pkg/pagination"
)

// # Handler Implementation

// Handler implements the HTTP layer of the gallery catalogue.
type Handler struct {
	service *Service
}

// NewHandler constructs a new catalogue [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the catalogue endpoints on the versioned API router.
func (handler *Handler) RegisterRoutes(router chi.Router) {

	// ## Public Discovery Endpoints
	router.Get("/demos", handler.browseDemos)
	router.Get("/users/{username}/components", handler.listUserComponents)
	router.Get("/components/{username}/{slug}", handler.getComponent)

	// ## Analytics
	router.Get("/components/{username}/{slug}/analytics", handler.getAnalytics)
	router.Post("/components/{username}/{slug}/analytics", handler.recordActivity)
}

/*
GET /api/v1/demos.

Description: Lists demo cards for the gallery landing page.

Request:
  - quick_filter: string (all, last_released, most_downloaded)
  - sort: string (recommended, date, downloads, likes)
  - q: string (Full-text search over demo names)
  - page: int

Response:
  - 200: []Card: Paginated cards of kind demo
*/
func (handler *Handler) browseDemos(writer http.ResponseWriter, request *http.Request) {
	state := BrowseFromRequest(request)
	params := pagination.FromRequest(request)

	cards, total, err := handler.service.BrowseDemos(request.Context(), state.Filter(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, cards, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
GET /api/v1/users/{username}/components.

Response:
  - 200: []Card: Paginated cards of kind component
  - 404: ErrNotFound: Unknown user
*/
func (handler *Handler) listUserComponents(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	cards, total, err := handler.service.ListUserComponents(request.Context(), requestutil.Param(request, "username"), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, cards, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
GET /api/v1/components/{username}/{slug}.

Response:
  - 200: Detail: Component, owner and demos
  - 404: ErrNotFound: Component missing or private
*/
func (handler *Handler) getComponent(writer http.ResponseWriter, request *http.Request) {
	detail, err := handler.service.GetDetail(request.Context(),
		requestutil.Param(request, "username"),
		requestutil.Param(request, "slug"),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, detail)
}

func (handler *Handler) getAnalytics(writer http.ResponseWriter, request *http.Request) {
	counts, err := handler.service.Analytics(request.Context(),
		requestutil.Param(request, "username"),
		requestutil.Param(request, "slug"),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, counts)
}

/*
POST /api/v1/components/{username}/{slug}/analytics.

Request:
  - activity_type: string (component_view, component_code_copy, install_command_copy)

Response:
  - 204: No Content
  - 400: ErrValidation: Unknown activity type
  - 404: ErrNotFound: Component missing
*/
func (handler *Handler) recordActivity(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		ActivityType ActivityType `json:"activity_type"`
	}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := handler.service.RecordActivity(request.Context(),
		requestutil.Param(request, "username"),
		requestutil.Param(request, "slug"),
		input.ActivityType,
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
