// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package respond writes the JSON envelopes every gallery endpoint shares.

	{"data": ...}                          success
	{"data": [...], "meta": {...}}         paginated list
	{"error": "...", "code": "...", ...}   failure

The preview host and the publish form both branch on "code", never on the
message text.
*/
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ehtisham-afzal/21st/internal/platform/apperr"
	"github.com/ehtisham-afzal/21st/internal/platform/ctxutil"
	"github.com/ehtisham-afzal/21st/pkg/pagination"
)

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type PaginatedEnvelope struct {
	Data any             `json:"data"`
	Meta pagination.Meta `json:"meta"`
}

// ErrorEnvelope is also embedded by richer failure bodies such as the publish
// step report and live preview error frames.
type ErrorEnvelope struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// Envelope projects the client-safe part of err.
func Envelope(err *apperr.AppError) ErrorEnvelope {
	return ErrorEnvelope{Error: err.Message, Code: err.Code, Details: err.Details}
}

// # Success Responses

// JSON encodes payload as is. Encoding errors after the header is written are
// dropped; the client sees a truncated body.
func JSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(payload)
}

func OK(writer http.ResponseWriter, data any) {
	Status(writer, http.StatusOK, data)
}

func Created(writer http.ResponseWriter, data any) {
	Status(writer, http.StatusCreated, data)
}

// Status wraps data in the success envelope with an explicit code.
func Status(writer http.ResponseWriter, status int, data any) {
	JSON(writer, status, SuccessEnvelope{Data: data})
}

func Paginated(writer http.ResponseWriter, data any, meta pagination.Meta) {
	JSON(writer, http.StatusOK, PaginatedEnvelope{Data: data, Meta: meta})
}

func NoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}

// # Error Responses

/*
Error writes err as an error envelope.

Description: Errors that are not an [*apperr.AppError] become a generic 500.
Every 5xx is logged with its cause through the request logger.
*/
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	Failure(writer, request, Resolve(err), nil)
}

// Resolve returns the [*apperr.AppError] in err's chain, or wraps err as Internal.
func Resolve(err error) *apperr.AppError {
	if appErr := apperr.As(err); appErr != nil {
		return appErr
	}
	return apperr.Internal(err)
}

// Failure writes body, or the plain envelope of appErr when body is nil, with
// appErr's status, logging server side failures first.
func Failure(writer http.ResponseWriter, request *http.Request, appErr *apperr.AppError, body any) {
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "api_server_error",
			slog.String("code", appErr.Code),
			slog.String("request_id", ctxutil.GetRequestID(request.Context())),
			slog.Any("cause", appErr.Cause),
		)
	}
	if body == nil {
		body = Envelope(appErr)
	}
	JSON(writer, appErr.HTTPStatus, body)
}
