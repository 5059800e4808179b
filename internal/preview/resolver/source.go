// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ehtisham-afzal/21st/internal/platform/apperr"
	"github.com/ehtisham-afzal/21st/internal/platform/cache"
	"github.com/ehtisham-afzal/21st/internal/preview/parser"
)

// # Catalogue Source

// Record is a published component as stored in the catalogue.
type Record struct {
	Username                 string
	Registry                 string
	Slug                     string
	CodeURL                  string
	NPMDependencies          map[string]string
	RegistryDependencies     []string
	DemoNPMDependencies      map[string]string
	DemoRegistryDependencies []string
}

// Catalogue finds published components by owner and slug. An empty registry
// matches every registry the owner published the slug in.
type Catalogue interface {
	FindRegistryComponents(ctx context.Context, username, registry, slug string) ([]Record, error)
}

// CodeFetcher loads component code from object storage.
type CodeFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// CatalogueSource resolves references against published components.
type CatalogueSource struct {
	catalogue Catalogue
	code      CodeFetcher
}

// NewCatalogueSource constructs a source over the database and object storage.
func NewCatalogueSource(catalogue Catalogue, code CodeFetcher) *CatalogueSource {
	return &CatalogueSource{catalogue: catalogue, code: code}
}

func (source *CatalogueSource) Fetch(context context.Context, ref parser.Reference) (*Node, error) {
	records, err := source.catalogue.FindRegistryComponents(context, ref.Username, ref.Registry, ref.Slug)
	if err != nil {
		return nil, err
	}

	switch len(records) {
	case 0:
		return nil, &NotFoundError{Ref: ref}
	case 1:
	default:
		registries := make([]string, 0, len(records))
		for _, record := range records {
			registries = append(registries, record.Registry)
		}
		sort.Strings(registries)
		return nil, &AmbiguousError{Ref: ref, Registries: registries}
	}
	record := records[0]

	code, err := source.code.Fetch(context, record.CodeURL)
	if err != nil {
		if appErr := apperr.As(err); appErr != nil && appErr.HTTPStatus == http.StatusNotFound {
			return nil, &NotFoundError{Ref: ref}
		}
		return nil, err
	}

	registryDependencies, err := parser.ParseReferences(record.RegistryDependencies, parser.OriginComponent)
	if err != nil {
		return nil, err
	}
	demoRegistryDependencies, err := parser.ParseReferences(record.DemoRegistryDependencies, parser.OriginDemo)
	if err != nil {
		return nil, err
	}

	return &Node{
		Ref:                      parser.Reference{Username: record.Username, Registry: record.Registry, Slug: record.Slug},
		Code:                     code,
		NPMDependencies:          record.NPMDependencies,
		RegistryDependencies:     registryDependencies,
		DemoNPMDependencies:      record.DemoNPMDependencies,
		DemoRegistryDependencies: demoRegistryDependencies,
	}, nil
}

// # Directory Source

/*
DirSource resolves references from a local directory laid out as
<root>/<username>/<registry>/<slug>.tsx, with an optional <slug>.demo.tsx
next to it. Dependencies are read from the import statements.

Imports of the "@/components/<registry>/<slug>" form inside a dependency are
taken to refer to a component of the same owner.
*/
type DirSource struct {
	root string
}

// NewDirSource returns a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: dir}
}

func (source *DirSource) Fetch(context context.Context, ref parser.Reference) (*Node, error) {
	if err := context.Err(); err != nil {
		return nil, err
	}

	registry := ref.Registry
	if registry == "" {
		matches, err := filepath.Glob(filepath.Join(source.root, ref.Username, "*", ref.Slug+".tsx"))
		if err != nil {
			return nil, fmt.Errorf("resolver: scan %s: %w", source.root, err)
		}
		switch len(matches) {
		case 0:
			return nil, &NotFoundError{Ref: ref}
		case 1:
			registry = filepath.Base(filepath.Dir(matches[0]))
		default:
			registries := make([]string, 0, len(matches))
			for _, match := range matches {
				registries = append(registries, filepath.Base(filepath.Dir(match)))
			}
			sort.Strings(registries)
			return nil, &AmbiguousError{Ref: ref, Registries: registries}
		}
	}

	base := filepath.Join(source.root, ref.Username, registry, ref.Slug)
	code, err := os.ReadFile(base + ".tsx")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Ref: ref}
		}
		return nil, fmt.Errorf("resolver: read %s: %w", base, err)
	}

	demoCode, err := os.ReadFile(base + ".demo.tsx")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("resolver: read demo %s: %w", base, err)
	}

	canonical := parser.Reference{Username: ref.Username, Registry: registry, Slug: ref.Slug}
	options := parser.Options{Username: ref.Username, ComponentSlug: ref.Slug}
	imports := parser.Imports(string(code), options)
	demoImports := parser.Imports(string(demoCode), options)

	return &Node{
		Ref:                      canonical,
		Code:                     string(code),
		NPMDependencies:          imports.NPM,
		RegistryDependencies:     withOwner(imports, ref.Username, parser.OriginComponent),
		DemoNPMDependencies:      demoImports.NPM,
		DemoRegistryDependencies: withOwner(demoImports, ref.Username, parser.OriginDemo),
	}, nil
}

func withOwner(imports parser.ImportSet, username string, origin parser.Origin) []parser.Reference {
	references := make([]parser.Reference, 0, len(imports.Direct)+len(imports.Ambiguous))
	for _, reference := range imports.Direct {
		reference.Origin = origin
		references = append(references, reference)
	}
	for _, reference := range imports.Ambiguous {
		reference.Username = username
		reference.Origin = origin
		references = append(references, reference)
	}
	return references
}

// # Cached Source

// CachedSource memoises another source in the query cache.
type CachedSource struct {
	next  Source
	store *cache.Store
}

// NewCachedSource decorates next with store.
func NewCachedSource(next Source, store *cache.Store) *CachedSource {
	return &CachedSource{next: next, store: store}
}

func (source *CachedSource) Fetch(ctx context.Context, ref parser.Reference) (*Node, error) {
	key := cache.NewKey("resolver.node", ref.Username, strings.ToLower(ref.Registry), ref.Slug)
	return cache.GetOrLoad(ctx, source.store, key, func(ctx context.Context) (*Node, error) {
		return source.next.Fetch(ctx, ref)
	})
}
