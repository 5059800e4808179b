// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ehtisham-afzal/21st/internal/platform/apperr"
	"github.com/ehtisham-afzal/21st/internal/platform/middleware"
	requestutil "github.com/ehtisham-afzal/21st/internal/platform/request"
	"github.com/ehtisham-afzal/21st/internal/platform/respond"
)

// Handler implements the publish endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a new publish [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the publish endpoint on the versioned API router.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.With(middleware.RequireAuth).Post("/publish", handler.publish)
}

// FailureEnvelope is the body of a publish that stopped after its first write.
type FailureEnvelope struct {
	respond.ErrorEnvelope
	Step        Step     `json:"step"`
	DemoIndex   *int     `json:"demo_index,omitempty"`
	ComponentID string   `json:"component_id,omitempty"`
	DemoIDs     []string `json:"demo_ids,omitempty"`
}

/*
POST /api/v1/publish.

Description: Publishes a component with its demos for the caller, or for
publish_as_username when the caller is an admin.

Request:
  - publish.Input

Response:
  - 201: Result
  - 400: ErrValidation: Missing fields, no demos, demo without code
  - 401: ErrUnauthorized
  - 403: ErrForbidden: publish_as_username without admin role
  - 409: ErrConflict: Slug already used in the registry
  - 422: ErrUnprocessable: Unconfirmed ambiguous dependencies
  - 5xx: FailureEnvelope: Stopped after a partial write
*/
func (handler *Handler) publish(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input Input
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.Publish(request.Context(), claims, input)
	if err != nil {
		var failure *Error
		if !errors.As(err, &failure) {
			respond.Error(writer, request, err)
			return
		}

		appErr := apperr.As(failure.Cause)
		if appErr == nil {
			appErr = apperr.BadGateway("Publishing failed", failure.Cause)
		}
		envelope := FailureEnvelope{
			ErrorEnvelope: respond.Envelope(appErr),
			Step:          failure.Step,
			ComponentID:   failure.ComponentID,
			DemoIDs:       failure.DemoIDs,
		}
		if failure.DemoIndex >= 0 {
			envelope.DemoIndex = &failure.DemoIndex
		}
		respond.Failure(writer, request, appErr, envelope)
		return
	}

	respond.Created(writer, result)
}
