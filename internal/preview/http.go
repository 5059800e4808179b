// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package preview

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/ehtisham-afzal/21st/internal/platform/request"
	"github.com/ehtisham-afzal/21st/internal/platform/respond"
	"github.com/ehtisham-afzal/21st/internal/preview/host"
	"github.com/ehtisham-afzal/21st/internal/preview/sandbox"
)

// # Handler Implementation

// Handler implements the request/response preview endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a new preview [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the preview endpoints on the versioned API router.
// The live endpoint is served by [LiveHandler] outside the request timeout.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/preview/parse", handler.parse)
	router.Post("/preview/bundle", handler.bundle)
	router.Get("/components/{username}/{slug}/preview", handler.published)
}

/*
POST /api/v1/preview/parse.

Description: Extracts component names and dependencies without resolving them.

Request:
  - host.Inputs (code, demo_code, username, component_slug, confirmations)

Response:
  - 200: parser.Result
  - 400: ErrValidation
*/
func (handler *Handler) parse(writer http.ResponseWriter, request *http.Request) {
	var inputs host.Inputs
	if err := requestutil.DecodeJSON(request, &inputs); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.Parse(inputs)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
POST /api/v1/preview/bundle.

Description: Runs the whole pipeline once and returns the sandbox bundle.

Request:
  - host.Inputs

Response:
  - 200: host.State (phase ready, with bundle)
  - 400: ErrValidation: Missing code or demo code
  - 404: ErrNotFound: A registry dependency does not exist
  - 422: ErrUnprocessable: Ambiguous dependencies need confirmation
  - 502: ErrBadGateway: CSS compilation failed
  - 504: ErrGatewayTimeout: CSS compilation timed out
*/
func (handler *Handler) bundle(writer http.ResponseWriter, request *http.Request) {
	var inputs host.Inputs
	if err := requestutil.DecodeJSON(request, &inputs); err != nil {
		respond.Error(writer, request, err)
		return
	}

	state, err := handler.service.Bundle(request.Context(), Authoring(inputs))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, state)
}

/*
GET /api/v1/components/{username}/{slug}/preview.

Request:
  - demo: string (Demo slug, defaults to "default")
  - theme: string (light, dark)

Response:
  - 200: host.State (phase ready, with bundle)
  - 404: ErrNotFound: Component, demo or source missing
*/
func (handler *Handler) published(writer http.ResponseWriter, request *http.Request) {
	state, err := handler.service.Published(request.Context(),
		requestutil.Param(request, "username"),
		requestutil.Param(request, "slug"),
		requestutil.Query(request, "demo"),
		sandbox.ParseTheme(requestutil.Query(request, "theme")),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, state)
}
