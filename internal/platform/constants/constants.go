// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Preview: Live session limits and storage layout.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "21st-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout covers the slowest synchronous preview bundle (resolve + compile).
	DefaultWriteTimeout = 45 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 40 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per caller.
	DefaultRateLimitRPS = 50.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 100

	// PipelineRateLimitRPS is the per-caller budget for bundling and publishing.
	PipelineRateLimitRPS = 2.0

	// PipelineRateLimitBurst lets an editor fire a few rebuilds back to back.
	PipelineRateLimitBurst = 10

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim expected in publisher tokens.
	AuthIssuer = "21st.dev"

	// HeaderAuthorization carries the bearer token.
	HeaderAuthorization = "Authorization"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldStatus  = "status"
	FieldChecks  = "checks"
)

// # Database Schemas

const (
	SchemaGallery = "gallery"
	SchemaUsers   = "users"
)

// # Object Storage Layout

const (
	// CodeBucket is the bucket holding component sources and demo media.
	CodeBucket = "components-code"

	// DefaultDemoSlug is reserved for the first demo of every component.
	DefaultDemoSlug = "default"

	// DefaultRegistry is the registry namespace used when none is given.
	DefaultRegistry = "ui"
)

// # Live Preview

const (
	// LiveSessionWriteTimeout bounds a single websocket frame write.
	LiveSessionWriteTimeout = 10 * time.Second

	// LiveSessionPingInterval keeps idle websocket connections alive.
	LiveSessionPingInterval = 30 * time.Second

	// LiveSessionMaxMessageBytes caps a single client update frame.
	LiveSessionMaxMessageBytes = 2 << 20

	// WatchDebounce coalesces bursts of filesystem events in watch mode.
	WatchDebounce = 150 * time.Millisecond
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixCache = "cache:"

	// CacheLoadTimeout bounds a shared cache load, which outlives the caller
	// that started it.
	CacheLoadTimeout = 30 * time.Second
)
