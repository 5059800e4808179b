// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package install

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/ehtisham-afzal/21st/internal/platform/request"
	"github.com/ehtisham-afzal/21st/internal/platform/respond"
)

// Handler implements the install endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a new install [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the install instructions on the versioned API router.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/components/{username}/{slug}/install", handler.instructions)
}

// RegisterRegistryRoutes mounts the registry items at the server root, where
// install URLs point.
func (handler *Handler) RegisterRegistryRoutes(router chi.Router) {
	router.Get("/r/{username}/{slug}", handler.item)
}

/*
GET /api/v1/components/{username}/{slug}/install.

Request:
  - runner: string (npm, yarn, pnpm, bun)

Response:
  - 200: Instructions
  - 404: ErrNotFound
*/
func (handler *Handler) instructions(writer http.ResponseWriter, request *http.Request) {
	instructions, err := handler.service.Instructions(request.Context(),
		requestutil.Param(request, "username"),
		requestutil.Param(request, "slug"),
		ParseRunner(requestutil.Query(request, "runner")),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, instructions)
}

// item answers the shadcn CLI with a bare registry item, not the API envelope.
func (handler *Handler) item(writer http.ResponseWriter, request *http.Request) {
	item, err := handler.service.Item(request.Context(),
		requestutil.Param(request, "username"),
		requestutil.Param(request, "slug"),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusOK, item)
}
