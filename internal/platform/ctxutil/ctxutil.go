// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil stores and reads the request scoped values the middleware
// chain attaches: correlation ids, the request logger and publisher claims.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/ehtisham-afzal/21st/internal/platform/ctxkey"
	"github.com/ehtisham-afzal/21st/internal/platform/sec"
)

// lookup returns the value under key, or the zero T.
func lookup[T any](ctx context.Context, key any) T {
	value, _ := ctx.Value(key).(T)
	return value
}

// # Correlation

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID returns "" outside an HTTP request.
func GetRequestID(ctx context.Context) string {
	return lookup[string](ctx, ctxkey.KeyRequestID)
}

// WithSessionID tags work done for one live preview connection.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeySessionID, id)
}

func GetSessionID(ctx context.Context) string {
	return lookup[string](ctx, ctxkey.KeySessionID)
}

// # Logging

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger falls back to [slog.Default] so callers never nil-check.
func GetLogger(ctx context.Context) *slog.Logger {
	if logger := lookup[*slog.Logger](ctx, ctxkey.KeyLogger); logger != nil {
		return logger
	}
	return slog.Default()
}

// # Publisher Identity

func WithAuthUser(ctx context.Context, claims *sec.AuthClaims) context.Context {
	return context.WithValue(ctx, ctxkey.KeyUser, claims)
}

// GetAuthUser returns nil for anonymous requests.
func GetAuthUser(ctx context.Context) *sec.AuthClaims {
	return lookup[*sec.AuthClaims](ctx, ctxkey.KeyUser)
}
