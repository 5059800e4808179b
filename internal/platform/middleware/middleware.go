// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package middleware holds the HTTP decorators shared by every gallery route.

Chain, outermost first:

  - RequestID: correlation id for logs and the X-Request-ID header.
  - StructuredLogger: per-request slog logger stored in the context.
  - Metrics: Prometheus counters labelled by chi route pattern.
  - PanicRecovery: converts panics into a 500 envelope.
  - CORS: origin allow-list from configuration.
  - Authenticate: optional bearer token, publisher claims in the context.
  - RateLimit: token buckets keyed by publisher or client address.

Route groups add RequireAuth and Throttle on top where they need them.
*/
package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/ehtisham-afzal/21st/internal/platform/constants"
)

// Middleware is the decorator shape every constructor in this package returns.
type Middleware = func(http.Handler) http.Handler

// RealIP returns the client address, preferring X-Real-IP and then the first
// X-Forwarded-For hop set by the edge proxy.
func RealIP(request *http.Request) string {
	if ip := strings.TrimSpace(request.Header.Get(constants.HeaderXRealIP)); ip != "" {
		return ip
	}
	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}

// abort writes the minimal error body used before the respond package is
// reachable, e.g. from the limiter or the panic handler.
func abort(writer http.ResponseWriter, status int, code, message string) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(map[string]string{
		constants.FieldCode:  code,
		constants.FieldError: message,
	})
}
