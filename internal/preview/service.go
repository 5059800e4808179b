// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package preview exposes the preview pipeline over HTTP and WebSocket.

Every entry point drives a [host.Session]: one-shot bundle requests run a
single generation to completion, published previews load their sources from
object storage first, and live connections keep a session open for the whole
editing session.
*/
package preview

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ehtisham-afzal/21st/internal/core/component"
	"github.com/ehtisham-afzal/21st/internal/platform/apperr"
	"github.com/ehtisham-afzal/21st/internal/platform/cache"
	"github.com/ehtisham-afzal/21st/internal/platform/constants"
	"github.com/ehtisham-afzal/21st/internal/platform/validate"
	"github.com/ehtisham-afzal/21st/internal/preview/csscompile"
	"github.com/ehtisham-afzal/21st/internal/preview/host"
	"github.com/ehtisham-afzal/21st/internal/preview/parser"
	"github.com/ehtisham-afzal/21st/internal/preview/resolver"
	"github.com/ehtisham-afzal/21st/internal/preview/sandbox"
	"github.com/ehtisham-afzal/21st/pkg/pointer"
)

// maxSourceBytes bounds a single editor buffer.
const maxSourceBytes = 512 << 10

// Catalogue looks up published demos.
type Catalogue interface {
	GetDemo(context context.Context, username, slug, demoSlug string) (*component.Component, *component.Demo, error)
}

// # Preview Service

// Service runs the preview pipeline for HTTP callers.
type Service struct {
	resolver  host.Resolver
	compiler  csscompile.Compiler
	catalogue Catalogue
	code      resolver.CodeFetcher
	logger    *slog.Logger
}

// NewService constructs a new preview [Service].
func NewService(resolve host.Resolver, compiler csscompile.Compiler, catalogue Catalogue, code resolver.CodeFetcher, logger *slog.Logger) *Service {
	return &Service{
		resolver:  resolve,
		compiler:  compiler,
		catalogue: catalogue,
		code:      code,
		logger:    logger,
	}
}

// NewSession opens a pipeline session bound to ctx.
func (service *Service) NewSession(ctx context.Context) *host.Session {
	return host.NewSession(ctx, service.resolver, service.compiler, service.logger)
}

// Parse runs the source parser alone.
func (service *Service) Parse(inputs host.Inputs) (*parser.Result, error) {
	inputs, err := Normalize(inputs)
	if err != nil {
		return nil, err
	}

	result := parser.Parse(inputs.ComponentCode, inputs.DemoCode, parser.Options{
		Username:        inputs.Username,
		ComponentSlug:   inputs.ComponentSlug,
		DefaultRegistry: inputs.Registry,
		Confirmed:       inputs.Confirmed,
		DemoConfirmed:   inputs.DemoConfirmed,
	})
	return &result, nil
}

/*
Bundle runs one generation of the pipeline to completion.

Parameters:
  - ctx: context.Context (bounds resolution and compilation)
  - inputs: host.Inputs

Returns:
  - host.State: A ready state carrying the bundle
  - error: 422 for unconfirmed or ambiguous dependencies, 404 for a missing
    dependency, 502/504 for compile failures
*/
func (service *Service) Bundle(ctx context.Context, inputs host.Inputs) (host.State, error) {
	inputs, err := Normalize(inputs)
	if err != nil {
		return host.State{}, err
	}

	session := service.NewSession(ctx)
	defer session.Close()

	session.Update(inputs)
	session.Wait()

	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return host.State{}, apperr.GatewayTimeout("Preview timed out", err)
		}
		return host.State{}, err
	}

	state := session.State()
	if err := StateError(state); err != nil {
		return state, err
	}
	return state, nil
}

/*
Published builds the preview of a published demo.

Description: Sources are downloaded concurrently. The stored registry
dependencies stand in for the author's confirmations, and a stored compiled
stylesheet is used instead of calling the compiler.

Parameters:
  - ctx: context.Context
  - username: string
  - slug: string
  - demoSlug: string (empty selects the default demo)
  - theme: sandbox.Theme

Returns:
  - host.State: A ready state carrying the bundle
  - error: Lookup, storage or pipeline failures
*/
func (service *Service) Published(ctx context.Context, username, slug, demoSlug string, theme sandbox.Theme) (host.State, error) {
	published, demo, err := service.catalogue.GetDemo(ctx, username, slug, demoSlug)
	if err != nil {
		return host.State{}, err
	}

	var code, demoCode, tailwindConfig, globalCSS string
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() (err error) {
		code, err = service.code.Fetch(groupCtx, published.CodeURL)
		return err
	})
	group.Go(func() (err error) {
		demoCode, err = service.code.Fetch(groupCtx, demo.DemoCodeURL)
		return err
	})
	if published.TailwindConfigURL != nil {
		group.Go(func() (err error) {
			tailwindConfig, err = service.code.Fetch(groupCtx, *published.TailwindConfigURL)
			return err
		})
	}
	if published.GlobalCSSURL != nil {
		group.Go(func() (err error) {
			globalCSS, err = service.code.Fetch(groupCtx, *published.GlobalCSSURL)
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return host.State{}, err
	}

	confirmed, err := parser.ParseReferences(published.DirectRegistryDependencies, parser.OriginComponent)
	if err != nil {
		return host.State{}, apperr.Internal(err)
	}
	demoConfirmed, err := parser.ParseReferences(demo.DemoDirectRegistryDependencies, parser.OriginDemo)
	if err != nil {
		return host.State{}, apperr.Internal(err)
	}

	owner := ""
	if published.Owner != nil {
		owner = published.Owner.Username
	}

	return service.Bundle(ctx, host.Inputs{
		Username:             owner,
		ComponentSlug:        published.ComponentSlug,
		Registry:             published.Registry,
		ComponentCode:        code,
		DemoCode:             demoCode,
		Theme:                theme,
		CustomTailwindConfig: tailwindConfig,
		CustomGlobalCSS:      globalCSS,
		Confirmed:            confirmed,
		DemoConfirmed:        demoConfirmed,
		CompiledCSS:          pointer.Val(demo.CompiledCSS),
	})
}

// # Inputs

// Authoring marks inputs as an author's preview, which also follows the demo
// dependencies of every registry component.
func Authoring(inputs host.Inputs) host.Inputs {
	inputs.WithDemoDependencies = true
	return inputs
}

// Normalize validates editor inputs and fills defaults.
func Normalize(inputs host.Inputs) (host.Inputs, error) {
	validator := new(validate.Validator).
		MaxLen("code", inputs.ComponentCode, maxSourceBytes).
		MaxLen("demo_code", inputs.DemoCode, maxSourceBytes).
		MaxLen("tailwind_config", inputs.CustomTailwindConfig, maxSourceBytes).
		MaxLen("global_css", inputs.CustomGlobalCSS, maxSourceBytes)
	if inputs.ComponentSlug != "" {
		validator.Slug("component_slug", inputs.ComponentSlug)
	}
	if inputs.Registry != "" {
		validator.Slug("registry", inputs.Registry)
	}
	if err := validator.Err(); err != nil {
		return inputs, err
	}

	if inputs.Registry == "" {
		inputs.Registry = constants.DefaultRegistry
	}
	inputs.Theme = sandbox.ParseTheme(string(inputs.Theme))
	return inputs, nil
}

// # Error Mapping

/*
StateError maps a non-ready state onto the HTTP error taxonomy.

Returns nil for a ready state.
*/
func StateError(state host.State) error {
	switch state.Phase {
	case host.PhaseReady:
		return nil

	case host.PhaseAwaitingConfirmation:
		details := make([]apperr.FieldError, 0, len(state.Unconfirmed))
		for _, ref := range state.Unconfirmed {
			field := "confirmed"
			if ref.Origin == parser.OriginDemo {
				field = "demo_confirmed"
			}
			details = append(details, apperr.FieldError{Field: field, Message: "Confirm the owner of " + ref.String()})
		}
		return apperr.Unprocessable("Ambiguous registry dependencies need confirmation", details...)

	case host.PhaseIncomplete:
		details := make([]apperr.FieldError, 0, len(state.Missing))
		for _, field := range state.Missing {
			details = append(details, apperr.FieldError{Field: field, Message: "This field is required"})
		}
		return apperr.ValidationError("Component and demo code are required", details...)

	case host.PhaseFailed:
		if state.Failure == nil {
			return apperr.Internal(errors.New("preview failed without a cause"))
		}
		if state.Failure.Kind == host.FailureCompile {
			if state.Failure.Err == nil {
				return apperr.BadGateway("CSS compilation failed", errors.New(state.Failure.Message))
			}
			return csscompile.ToAppError(state.Failure.Err)
		}
		return ResolutionError(state.Failure.Err)

	default:
		return apperr.GatewayTimeout("Preview did not settle", nil)
	}
}

// ResolutionError maps a resolver failure onto the HTTP error taxonomy.
func ResolutionError(err error) error {
	var notFound *resolver.NotFoundError
	if errors.As(err, &notFound) {
		return apperr.NotFound("Registry dependency " + notFound.Ref.String()).WithCause(err)
	}

	var ambiguous *resolver.AmbiguousError
	if errors.As(err, &ambiguous) {
		return apperr.Unprocessable(ambiguous.Error(), apperr.FieldError{
			Field:   "confirmed",
			Message: "Pin the registry of " + ambiguous.Ref.String(),
		})
	}

	if apperr.IsAppError(err) {
		return err
	}
	return apperr.Internal(err)
}

// # Cached Resolution

// CachedResolver memoises whole dependency trees by their dependency key.
type CachedResolver struct {
	next  host.Resolver
	store *cache.Store
}

// NewCachedResolver decorates next with the query cache.
func NewCachedResolver(next host.Resolver, store *cache.Store) *CachedResolver {
	return &CachedResolver{next: next, store: store}
}

func (cached *CachedResolver) Resolve(ctx context.Context, refs []parser.Reference, options resolver.Options) (*resolver.Tree, error) {
	key := cache.NewKey("resolver.tree", resolver.Key(refs, options))
	return cache.GetOrLoad(ctx, cached.store, key, func(ctx context.Context) (*resolver.Tree, error) {
		return cached.next.Resolve(ctx, refs, options)
	})
}
