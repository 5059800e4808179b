// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tag

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/ehtisham-afzal/21st/internal/platform/request"
	"github.com/ehtisham-afzal/21st/internal/platform/respond"
	"github.com/ehtisham-afzal/21st/pkg/convert"
	"github.com/ehtisham-afzal/21st/pkg/query"
)

// Handler implements the tag endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a new tag [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the tag endpoints on the versioned API router.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/tags", handler.listTags)
	router.Get("/tags/{slug}", handler.getTag)
}

/*
GET /api/v1/tags.

Request:
  - slugs: string (Comma separated tag slugs)
  - include_empty: bool (Keep tags without public demos)
  - limit: int

Response:
  - 200: []Summary
  - 400: ErrValidation: Malformed slug
*/
func (handler *Handler) listTags(writer http.ResponseWriter, request *http.Request) {
	tags, err := handler.service.List(request.Context(), Query{
		Slugs:        query.StringSlice(requestutil.Query(request, "slugs")),
		IncludeEmpty: convert.ToBool(requestutil.Query(request, "include_empty")),
		Limit:        convert.ToIntD(requestutil.Query(request, "limit"), DefaultLimit),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, tags)
}

// getTag handles GET /api/v1/tags/{slug}.
func (handler *Handler) getTag(writer http.ResponseWriter, request *http.Request) {
	tag, err := handler.service.Get(request.Context(), requestutil.Param(request, "slug"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, tag)
}
