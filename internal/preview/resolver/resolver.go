// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package resolver expands a component's direct registry references into the
transitive closure of component files and npm packages.

The walk is breadth first. Each frontier is processed in canonical key order,
so the tree for a given input is always the same. A component is fetched and
expanded at most once; cycles terminate. Resolution is all or nothing: a
single missing or ambiguous reference fails the whole request and no partial
tree is returned.
*/
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ehtisham-afzal/21st/internal/platform/metrics"
	"github.com/ehtisham-afzal/21st/internal/preview/parser"
	"github.com/ehtisham-afzal/21st/internal/preview/sandbox"
)

const tracerName = "github.com/ehtisham-afzal/21st/internal/preview/resolver"

// # Types

// Node is one fetched registry component. Ref is canonical: username,
// registry and slug are all set.
type Node struct {
	Ref                      parser.Reference   `json:"ref"`
	Code                     string             `json:"code"`
	NPMDependencies          map[string]string  `json:"npm_dependencies"`
	RegistryDependencies     []parser.Reference `json:"registry_dependencies"`
	DemoNPMDependencies      map[string]string  `json:"demo_npm_dependencies"`
	DemoRegistryDependencies []parser.Reference `json:"demo_registry_dependencies"`
}

// Source fetches registry components. Implementations return [*NotFoundError]
// for unknown references and [*AmbiguousError] when a reference without a
// registry matches several.
type Source interface {
	Fetch(ctx context.Context, ref parser.Reference) (*Node, error)
}

// Options tunes a resolution.
type Options struct {
	// WithDemoDependencies also follows each component's demo references and
	// merges its demo npm packages.
	WithDemoDependencies bool
}

// Tree is the resolved dependency closure.
type Tree struct {
	// Files maps virtual paths to component code.
	Files map[string]string `json:"files"`

	// NPMDependencies merged first-write-wins in visit order.
	NPMDependencies map[string]string `json:"npm_dependencies"`

	// Components lists canonical references in visit order.
	Components []parser.Reference `json:"components"`
}

func newTree() *Tree {
	return &Tree{
		Files:           map[string]string{},
		NPMDependencies: map[string]string{},
		Components:      []parser.Reference{},
	}
}

// Sources returns the file contents in path order.
func (tree *Tree) Sources() []string {
	paths := sandbox.Files(tree.Files).Paths()
	sources := make([]string, 0, len(paths))
	for _, filePath := range paths {
		sources = append(sources, tree.Files[filePath])
	}
	return sources
}

// # Errors

// NotFoundError reports a reference with no matching component.
type NotFoundError struct {
	Ref parser.Reference
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resolver: registry dependency %q not found", e.Ref.String())
}

// AmbiguousError reports a reference that cannot be pinned to one component,
// either because the owner is unknown or because several registries match.
type AmbiguousError struct {
	Ref        parser.Reference
	Registries []string
}

func (e *AmbiguousError) Error() string {
	if e.Ref.IsAmbiguous() {
		return fmt.Sprintf("resolver: registry dependency %q has no owner", e.Ref.String())
	}
	return fmt.Sprintf("resolver: registry dependency %q matches registries %s", e.Ref.String(), strings.Join(e.Registries, ", "))
}

// # Resolver

// Resolver walks the dependency graph through a [Source].
type Resolver struct {
	source  Source
	metrics *metrics.Registry
	tracer  trace.Tracer
	logger  *slog.Logger
}

// New constructs a resolver.
func New(source Source, registry *metrics.Registry, logger *slog.Logger) *Resolver {
	return &Resolver{
		source:  source,
		metrics: registry,
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
	}
}

/*
Resolve computes the dependency tree of a set of direct references.

Parameters:
  - context: context.Context
  - refs: []parser.Reference (direct references, must carry an owner)
  - options: Options

Returns:
  - *Tree: The closure, never partial
  - error: *NotFoundError, *AmbiguousError, source or context errors
*/
func (resolver *Resolver) Resolve(context context.Context, refs []parser.Reference, options Options) (*Tree, error) {
	context, span := resolver.tracer.Start(context, "resolver.Resolve", trace.WithAttributes(
		attribute.Int("resolver.direct_refs", len(refs)),
		attribute.Bool("resolver.with_demo", options.WithDemoDependencies),
	))
	defer span.End()

	start := time.Now()
	tree, err := resolver.walk(context, refs, options)
	resolver.metrics.ResolveDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		resolver.metrics.Resolutions.WithLabelValues(metrics.ResultError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		resolver.logger.WarnContext(context, "preview_resolution_failed",
			slog.Int("direct_refs", len(refs)),
			slog.Any("error", err),
		)
		return nil, err
	}

	resolver.metrics.Resolutions.WithLabelValues(metrics.ResultOK).Inc()
	resolver.metrics.ResolvedNodes.Observe(float64(len(tree.Components)))
	span.SetAttributes(attribute.Int("resolver.nodes", len(tree.Components)))
	return tree, nil
}

func (resolver *Resolver) walk(context context.Context, refs []parser.Reference, options Options) (*Tree, error) {
	tree := newTree()

	// queued is keyed by the reference as written; expanded by the canonical
	// reference returned from the source. registries lists, per owner and
	// slug, the registries already expanded so an unpinned spelling of a
	// pinned reference (or the reverse) is fetched once.
	queued := map[string]bool{}
	expanded := map[string]bool{}
	registries := map[string][]string{}

	frontier := enqueue(nil, refs, queued)
	for len(frontier) > 0 {
		sortByKey(frontier)

		var next []parser.Reference
		for _, ref := range frontier {
			if err := context.Err(); err != nil {
				return nil, err
			}
			if ref.IsAmbiguous() {
				return nil, &AmbiguousError{Ref: ref}
			}
			if covered(registries[ownerSlug(ref)], ref.Registry) {
				continue
			}

			node, err := resolver.source.Fetch(context, ref)
			if err != nil {
				return nil, err
			}

			canonical := node.Ref.Key()
			if expanded[canonical] {
				continue
			}
			expanded[canonical] = true
			registries[ownerSlug(node.Ref)] = append(registries[ownerSlug(node.Ref)], node.Ref.Registry)

			resolver.add(tree, node, options)

			next = enqueue(next, node.RegistryDependencies, queued)
			if options.WithDemoDependencies {
				next = enqueue(next, node.DemoRegistryDependencies, queued)
			}
		}
		frontier = next
	}

	return tree, nil
}

func (resolver *Resolver) add(tree *Tree, node *Node, options Options) {
	tree.Components = append(tree.Components, node.Ref)

	filePath := sandbox.ComponentPath(node.Ref.Registry, node.Ref.Slug)
	if _, claimed := tree.Files[filePath]; claimed {
		resolver.logger.Debug("preview_dependency_path_collision",
			slog.String("path", filePath),
			slog.String("component", node.Ref.String()),
		)
	} else {
		tree.Files[filePath] = node.Code
	}

	// The owner-qualified alias always points at this node's code.
	tree.Files[sandbox.OwnerPath(node.Ref.Registry, node.Ref.Username, node.Ref.Slug)] = node.Code

	mergeFirstWins(tree.NPMDependencies, node.NPMDependencies)
	if options.WithDemoDependencies {
		mergeFirstWins(tree.NPMDependencies, node.DemoNPMDependencies)
	}
}

// # Helpers

/*
Key returns the canonical identity of a resolution request.

Description: References are de-duplicated and sorted, so two requests with
the same set in a different order share a key.
*/
func Key(refs []parser.Reference, options Options) string {
	set := map[string]bool{}
	for _, ref := range refs {
		set[ref.Key()] = true
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	key := strings.Join(keys, ",")
	if options.WithDemoDependencies {
		key += "|demo"
	}
	return key
}

func enqueue(frontier, refs []parser.Reference, queued map[string]bool) []parser.Reference {
	for _, ref := range refs {
		key := ref.Key()
		if queued[key] {
			continue
		}
		queued[key] = true
		frontier = append(frontier, ref)
	}
	return frontier
}

func ownerSlug(ref parser.Reference) string {
	return ref.Username + "/" + ref.Slug
}

// covered reports whether registry, or any registry when it is empty, has
// already been expanded.
func covered(expanded []string, registry string) bool {
	if registry == "" {
		return len(expanded) > 0
	}
	return slices.Contains(expanded, registry)
}

func sortByKey(refs []parser.Reference) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].Key() < refs[j].Key() })
}

func mergeFirstWins(into, from map[string]string) {
	names := make([]string, 0, len(from))
	for name := range from {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, exists := into[name]; !exists {
			into[name] = from[name]
		}
	}
}
