// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package install serves the shadcn-compatible install surface.

Every published component has an install URL under /r/. The shadcn CLI
downloads a registry item from it; the gallery shows the command that does so.
*/
package install

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/ehtisham-afzal/21st/internal/core/component"
	"github.com/ehtisham-afzal/21st/internal/platform/cache"
	"github.com/ehtisham-afzal/21st/internal/preview/parser"
	"github.com/ehtisham-afzal/21st/internal/preview/resolver"
)

// # Package Runners

// Runner is the package manager whose one-off executor runs the shadcn CLI.
type Runner string

const (
	RunnerNPM  Runner = "npm"
	RunnerYarn Runner = "yarn"
	RunnerPNPM Runner = "pnpm"
	RunnerBun  Runner = "bun"
)

// ParseRunner falls back to npm for unknown values.
func ParseRunner(value string) Runner {
	switch Runner(strings.ToLower(strings.TrimSpace(value))) {
	case RunnerYarn:
		return RunnerYarn
	case RunnerPNPM:
		return RunnerPNPM
	case RunnerBun:
		return RunnerBun
	default:
		return RunnerNPM
	}
}

// Executor returns the command prefix that runs a package without installing it.
func (runner Runner) Executor() string {
	switch runner {
	case RunnerPNPM:
		return "pnpm dlx"
	case RunnerBun:
		return "bunx --bun"
	default:
		return "npx"
	}
}

// Command renders the shell command that installs the component at url.
func Command(runner Runner, url string) string {
	return fmt.Sprintf(`%s shadcn@latest add "%s"`, runner.Executor(), url)
}

// URL is the install URL of a published component.
func URL(appURL, username, slug string) string {
	return strings.TrimRight(appURL, "/") + "/r/" + username + "/" + slug
}

// Instructions is the install payload shown next to a component.
type Instructions struct {
	URL     string `json:"url"`
	Runner  Runner `json:"runner"`
	Command string `json:"command"`
}

// # Registry Items

// Schema is the registry item schema URL understood by the shadcn CLI.
const Schema = "https://ui.shadcn.com/schema/registry-item.json"

// ItemTypeUI marks an item as a UI component.
const ItemTypeUI = "registry:ui"

// File is one source file of a registry item.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// Item is the registry item downloaded by the shadcn CLI.
type Item struct {
	Schema               string   `json:"$schema"`
	Name                 string   `json:"name"`
	Type                 string   `json:"type"`
	Description          string   `json:"description,omitempty"`
	Dependencies         []string `json:"dependencies"`
	RegistryDependencies []string `json:"registryDependencies"`
	Files                []File   `json:"files"`
}

/*
NewItem builds the registry item of a published component.

Description: npm dependencies become "name" or "name@version" entries, sorted.
Registry dependencies are rewritten to install URLs so the CLI can fetch
them recursively.

Parameters:
  - appURL: string (public origin of the gallery)
  - published: *component.Component
  - code: string (component source)

Returns:
  - Item
*/
func NewItem(appURL string, published *component.Component, code string) Item {
	item := Item{
		Schema:               Schema,
		Name:                 published.ComponentSlug,
		Type:                 ItemTypeUI,
		Dependencies:         []string{},
		RegistryDependencies: []string{},
		Files: []File{{
			Path:    path.Join("components", published.Registry, published.ComponentSlug+".tsx"),
			Content: code,
			Type:    ItemTypeUI,
		}},
	}
	if published.Description != nil {
		item.Description = *published.Description
	}

	names := make([]string, 0, len(published.Dependencies))
	for name := range published.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		version := published.Dependencies[name]
		if version == "" || version == "latest" {
			item.Dependencies = append(item.Dependencies, name)
			continue
		}
		item.Dependencies = append(item.Dependencies, name+"@"+version)
	}

	for _, identifier := range published.DirectRegistryDependencies {
		ref, err := parser.ParseReference(identifier)
		if err != nil {
			continue
		}
		item.RegistryDependencies = append(item.RegistryDependencies, URL(appURL, ref.Username, ref.Slug))
	}
	return item
}

// # Install Service

// Lookup finds published components.
type Lookup interface {
	GetDetail(context context.Context, username, slug string) (*component.Detail, error)
}

// Service answers install requests.
type Service struct {
	lookup Lookup
	code   resolver.CodeFetcher
	cache  *cache.Store
	appURL string
}

// NewService constructs a new install [Service].
func NewService(lookup Lookup, code resolver.CodeFetcher, store *cache.Store, appURL string) *Service {
	return &Service{lookup: lookup, code: code, cache: store, appURL: appURL}
}

// Instructions returns the install URL and command for a component.
func (service *Service) Instructions(context context.Context, username, slug string, runner Runner) (*Instructions, error) {
	detail, err := service.lookup.GetDetail(context, username, slug)
	if err != nil {
		return nil, err
	}

	if detail.Component.Owner != nil {
		username = detail.Component.Owner.Username
	}
	url := URL(service.appURL, username, detail.Component.ComponentSlug)
	return &Instructions{URL: url, Runner: runner, Command: Command(runner, url)}, nil
}

// Item returns the registry item of a component through the query cache.
func (service *Service) Item(ctx context.Context, username, slug string) (Item, error) {
	key := cache.NewKey("install.item", username, slug)
	return cache.GetOrLoad(ctx, service.cache, key, func(ctx context.Context) (Item, error) {
		detail, err := service.lookup.GetDetail(ctx, username, slug)
		if err != nil {
			return Item{}, err
		}

		code, err := service.code.Fetch(ctx, detail.Component.CodeURL)
		if err != nil {
			return Item{}, err
		}
		return NewItem(service.appURL, detail.Component, code), nil
	})
}
