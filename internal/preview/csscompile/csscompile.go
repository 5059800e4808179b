// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package csscompile is the client of the remote Tailwind compilation service.

The service receives every source that may contain class names together with
the base and custom configuration, and answers with the compiled stylesheet.
Calls are bounded by a timeout and fail with a typed [Error] so callers can
tell a slow service from a broken one.
*/
package csscompile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ehtisham-afzal/21st/internal/platform/apperr"
	"github.com/ehtisham-afzal/21st/internal/platform/cache"
	"github.com/ehtisham-afzal/21st/internal/platform/metrics"
	"github.com/ehtisham-afzal/21st/internal/preview/sandbox"
)

const (
	compilePath = "/compile-css"
	tracerName  = "github.com/ehtisham-afzal/21st/internal/preview/csscompile"

	// maxResponseBytes caps the compiled stylesheet.
	maxResponseBytes = 8 << 20
)

// # Request

// Request is the body sent to the compilation service.
type Request struct {
	Code                 string   `json:"code"`
	DemoCode             string   `json:"demoCode"`
	BaseTailwindConfig   string   `json:"baseTailwindConfig"`
	BaseGlobalCSS        string   `json:"baseGlobalCss"`
	CustomTailwindConfig string   `json:"customTailwindConfig,omitempty"`
	CustomGlobalCSS      string   `json:"customGlobalCss,omitempty"`
	Dependencies         []string `json:"dependencies"`
}

// NewRequest fills the base configuration with the sandbox defaults.
func NewRequest(code, demoCode, customTailwindConfig, customGlobalCSS string, dependencies []string) Request {
	if dependencies == nil {
		dependencies = []string{}
	}
	return Request{
		Code:                 code,
		DemoCode:             demoCode,
		BaseTailwindConfig:   sandbox.DefaultTailwindConfig,
		BaseGlobalCSS:        sandbox.DefaultGlobalCSS,
		CustomTailwindConfig: customTailwindConfig,
		CustomGlobalCSS:      customGlobalCSS,
		Dependencies:         dependencies,
	}
}

type response struct {
	CSS *string `json:"css"`
}

// Compiler turns a request into a stylesheet.
type Compiler interface {
	Compile(ctx context.Context, request Request) (string, error)
}

// # Errors

// Kind classifies compilation failures.
type Kind string

const (
	KindTimeout   Kind = "timeout"
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindMalformed Kind = "malformed"
)

// Error is returned for every failed compilation.
type Error struct {
	Kind       Kind
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("csscompile: service responded %d", e.StatusCode)
	case KindTimeout:
		return "csscompile: service timed out"
	default:
		if e.Cause != nil {
			return fmt.Sprintf("csscompile: %s: %v", e.Kind, e.Cause)
		}
		return "csscompile: " + string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// ToAppError maps a compile failure onto the HTTP error taxonomy.
func ToAppError(err error) error {
	var compileErr *Error
	if !errors.As(err, &compileErr) {
		return err
	}
	if compileErr.Kind == KindTimeout {
		return apperr.GatewayTimeout("CSS compilation timed out", err)
	}
	return apperr.BadGateway("CSS compilation failed", err)
}

// # Client

// Client calls the compilation service over HTTP.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
	metrics  *metrics.Registry
	tracer   trace.Tracer
	logger   *slog.Logger
}

// New constructs a client for the service at baseURL.
func New(baseURL string, timeout time.Duration, registry *metrics.Registry, logger *slog.Logger) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(baseURL, "/") + compilePath,
		timeout:  timeout,
		http:     &http.Client{},
		metrics:  registry,
		tracer:   otel.Tracer(tracerName),
		logger:   logger,
	}
}

/*
Compile posts a request and returns the compiled CSS.

Parameters:
  - ctx: context.Context
  - request: Request

Returns:
  - string: The stylesheet
  - error: *Error, or the context error when the caller cancelled
*/
func (client *Client) Compile(ctx context.Context, request Request) (string, error) {
	ctx, span := client.tracer.Start(ctx, "csscompile.Compile", trace.WithAttributes(
		attribute.Int("csscompile.dependencies", len(request.Dependencies)),
	))
	defer span.End()

	start := time.Now()
	css, err := client.compile(ctx, request)
	client.metrics.CompileDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		result := metrics.ResultError
		var compileErr *Error
		if errors.As(err, &compileErr) && compileErr.Kind == KindTimeout {
			result = metrics.ResultTimeout
		}
		client.metrics.Compilations.WithLabelValues(result).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		client.logger.WarnContext(ctx, "css_compile_failed", slog.Any("error", err))
		return "", err
	}

	client.metrics.Compilations.WithLabelValues(metrics.ResultOK).Inc()
	span.SetAttributes(attribute.Int("csscompile.bytes", len(css)))
	return css, nil
}

func (client *Client) compile(parent context.Context, request Request) (string, error) {
	ctx, cancel := context.WithTimeout(parent, client.timeout)
	defer cancel()

	body, err := json.Marshal(request)
	if err != nil {
		return "", &Error{Kind: KindMalformed, Cause: err}
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, client.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindTransport, Cause: err}
	}
	httpRequest.Header.Set("Content-Type", "application/json")

	httpResponse, err := client.http.Do(httpRequest)
	if err != nil {
		return "", client.transportError(parent, err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 1024))
		client.logger.Debug("css_compile_rejected",
			slog.Int("status", httpResponse.StatusCode),
			slog.String("body", string(snippet)),
		)
		return "", &Error{Kind: KindStatus, StatusCode: httpResponse.StatusCode}
	}

	var decoded response
	if err := json.NewDecoder(io.LimitReader(httpResponse.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		if ctx.Err() != nil {
			return "", client.transportError(parent, err)
		}
		return "", &Error{Kind: KindMalformed, Cause: err}
	}
	if decoded.CSS == nil {
		return "", &Error{Kind: KindMalformed, Cause: errors.New("response has no css field")}
	}

	return *decoded.CSS, nil
}

func (client *Client) transportError(parent context.Context, err error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return parent.Err()
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, Cause: err}
	}
	return &Error{Kind: KindTransport, Cause: err}
}

// # Cache

// Cached memoises successful compilations by request content.
type Cached struct {
	next  Compiler
	store *cache.Store
}

// NewCached decorates next with the query cache.
func NewCached(next Compiler, store *cache.Store) *Cached {
	return &Cached{next: next, store: store}
}

func (cached *Cached) Compile(ctx context.Context, request Request) (string, error) {
	encoded, err := json.Marshal(request)
	if err != nil {
		return "", &Error{Kind: KindMalformed, Cause: err}
	}

	return cache.GetOrLoad(ctx, cached.store, cache.NewKey("csscompile", string(encoded)), func(ctx context.Context) (string, error) {
		return cached.next.Compile(ctx, request)
	})
}

// # State

// Status of a compilation as seen by the preview host.
type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// State distinguishes "not compiled yet" from an empty stylesheet.
type State struct {
	Status Status `json:"status"`
	CSS    string `json:"css,omitempty"`
	Kind   Kind   `json:"kind,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Pending is the state before a result is known.
func Pending() State {
	return State{Status: StatusPending}
}

// Ready wraps a compiled stylesheet.
func Ready(css string) State {
	return State{Status: StatusReady, CSS: css}
}

// Failed records a compile error.
func Failed(err error) State {
	state := State{Status: StatusFailed, Kind: KindTransport, Error: err.Error()}
	var compileErr *Error
	if errors.As(err, &compileErr) {
		state.Kind = compileErr.Kind
	}
	return state
}
