// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"log/slog"
	"net/http"
	"runtime"

	"github.com/ehtisham-afzal/21st/internal/platform/ctxutil"
)

const panicStackBytes = 4 << 10

// PanicRecovery turns a handler panic into a 500 and logs the stack with the
// request logger when one is in the context. http.ErrAbortHandler is rethrown.
func PanicRecovery(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				stack := make([]byte, panicStackBytes)
				stack = stack[:runtime.Stack(stack, false)]

				requestLogger := logger
				if scoped := ctxutil.GetLogger(request.Context()); scoped != slog.Default() {
					requestLogger = scoped
				}
				requestLogger.ErrorContext(request.Context(), "panic_recovered",
					slog.Any("error", recovered),
					slog.String("stack", string(stack)),
				)

				abort(writer, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred")
			}()

			next.ServeHTTP(writer, request)
		})
	}
}
