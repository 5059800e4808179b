// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package resolver_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehtisham-afzal/21st/internal/platform/cache"
	"github.com/ehtisham-afzal/21st/internal/platform/metrics"
	"github.com/ehtisham-afzal/21st/internal/preview/parser"
	"github.com/ehtisham-afzal/21st/internal/preview/resolver"
	"github.com/ehtisham-afzal/21st/internal/preview/sandbox"
)

// fakeSource serves nodes from memory and counts fetches per canonical key.
type fakeSource struct {
	mu     sync.Mutex
	nodes  map[string]*resolver.Node
	counts map[string]int
}

func newFakeSource(nodes ...*resolver.Node) *fakeSource {
	source := &fakeSource{nodes: map[string]*resolver.Node{}, counts: map[string]int{}}
	for _, node := range nodes {
		source.nodes[node.Ref.Key()] = node
	}
	return source
}

func (source *fakeSource) Fetch(_ context.Context, ref parser.Reference) (*resolver.Node, error) {
	source.mu.Lock()
	defer source.mu.Unlock()

	if ref.Registry == "" {
		ref.Registry = "ui"
	}
	ref.Origin = ""
	node, ok := source.nodes[ref.Key()]
	if !ok {
		return nil, &resolver.NotFoundError{Ref: ref}
	}
	source.counts[ref.Key()]++
	return node, nil
}

func ref(username, slug string) parser.Reference {
	return parser.Reference{Username: username, Registry: "ui", Slug: slug}
}

func node(username, slug string, npm map[string]string, deps ...parser.Reference) *resolver.Node {
	return &resolver.Node{
		Ref:                  ref(username, slug),
		Code:                 "// " + username + "/" + slug,
		NPMDependencies:      npm,
		RegistryDependencies: deps,
	}
}

func newResolver(source resolver.Source) *resolver.Resolver {
	return resolver.New(source, metrics.NewNop(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

/*
TestResolve_TransitiveWithCycle verifies closure, cycle termination and single fetches.
*/
func TestResolve_TransitiveWithCycle(t *testing.T) {
	source := newFakeSource(
		node("alice", "card", nil, ref("alice", "button")),
		node("alice", "button", nil, ref("alice", "card"), ref("bob", "spinner")),
		node("bob", "spinner", nil),
	)

	tree, err := newResolver(source).Resolve(context.Background(), []parser.Reference{ref("alice", "card")}, resolver.Options{})
	require.NoError(t, err)

	assert.Equal(t, []parser.Reference{ref("alice", "card"), ref("alice", "button"), ref("bob", "spinner")}, tree.Components)
	assert.Equal(t, map[string]string{
		"/components/ui/card.tsx":    "// alice/card",
		"/components/ui/button.tsx":  "// alice/button",
		"/components/ui/spinner.tsx": "// bob/spinner",

		"/components/ui/alice/card.tsx":   "// alice/card",
		"/components/ui/alice/button.tsx": "// alice/button",
		"/components/ui/bob/spinner.tsx":  "// bob/spinner",
	}, tree.Files)

	for key, count := range source.counts {
		assert.Equal(t, 1, count, key)
	}
}

/*
TestResolve_MissingDependencyFailsWhole verifies no partial tree is returned.
*/
func TestResolve_MissingDependencyFailsWhole(t *testing.T) {
	source := newFakeSource(
		node("alice", "card", nil, ref("alice", "button"), ref("ghost", "missing")),
		node("alice", "button", nil),
	)

	tree, err := newResolver(source).Resolve(context.Background(), []parser.Reference{ref("alice", "card")}, resolver.Options{})

	assert.Nil(t, tree)
	var notFound *resolver.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.Ref.Username)
}

/*
TestResolve_FirstWriteWins covers npm manifest merging and path claims.
*/
func TestResolve_FirstWriteWins(t *testing.T) {
	source := newFakeSource(
		node("alice", "button", map[string]string{"framer-motion": "^10.0.0"}, ref("carol", "icon")),
		node("bob", "button", map[string]string{"framer-motion": "^11.0.0", "clsx": "^2.0.0"}),
		node("carol", "icon", map[string]string{"framer-motion": "^12.0.0"}),
	)

	tree, err := newResolver(source).Resolve(context.Background(),
		[]parser.Reference{ref("bob", "button"), ref("alice", "button")},
		resolver.Options{},
	)
	require.NoError(t, err)

	assert.Equal(t, "^10.0.0", tree.NPMDependencies["framer-motion"])
	assert.Equal(t, "^2.0.0", tree.NPMDependencies["clsx"])
	assert.Equal(t, "// alice/button", tree.Files["/components/ui/button.tsx"])
	assert.Len(t, tree.Components, 3)
}

/*
TestResolve_PinnedAndUnpinnedFetchOnce verifies both spellings of one component share a fetch.
*/
func TestResolve_PinnedAndUnpinnedFetchOnce(t *testing.T) {
	unpinned := parser.Reference{Username: "bob", Slug: "spinner"}

	tests := []struct {
		name string
		refs []parser.Reference
	}{
		{name: "unpinned first", refs: []parser.Reference{unpinned, ref("bob", "spinner")}},
		{name: "pinned first", refs: []parser.Reference{ref("bob", "spinner"), unpinned}},
		{name: "transitive", refs: []parser.Reference{ref("alice", "card"), unpinned}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newFakeSource(
				node("alice", "card", nil, ref("bob", "spinner"), unpinned),
				node("bob", "spinner", nil),
			)

			tree, err := newResolver(source).Resolve(context.Background(), tt.refs, resolver.Options{})
			require.NoError(t, err)

			assert.Equal(t, 1, source.counts["bob/ui/spinner"])
			assert.Equal(t, "// bob/spinner", tree.Files["/components/ui/spinner.tsx"])
		})
	}
}

/*
TestResolve_AliasImportsExistInSandbox verifies every alias import of a parsed
component and demo names a file of the assembled project.
*/
func TestResolve_AliasImportsExistInSandbox(t *testing.T) {
	specifiers := []string{
		"@/components/ui/bob/spinner",
		"@/components/ui/carol/icon",
		"@/components/ui/alice/card",
	}
	demo := ""
	for index, specifier := range specifiers {
		demo += fmt.Sprintf("import { Item%d } from %q\n", index, specifier)
	}
	demo += "export default function Demo() { return null }"

	source := newFakeSource(
		node("bob", "spinner", nil, ref("carol", "icon")),
		node("carol", "icon", nil),
	)
	parsed := parser.Parse("export function Card() {}", demo, parser.Options{
		Username:        "alice",
		ComponentSlug:   "card",
		DefaultRegistry: "ui",
	})
	direct := append(parsed.RegistryDependencies, parsed.DemoRegistryDependencies...)
	require.NotEmpty(t, direct)

	tree, err := newResolver(source).Resolve(context.Background(), direct, resolver.Options{WithDemoDependencies: true})
	require.NoError(t, err)

	files := sandbox.Assemble(sandbox.Input{
		ComponentCode: "export function Card() {}",
		DemoCode:      demo,
		ComponentSlug: "card",
		Registry:      "ui",
		Username:      "alice",
		Dependencies:  tree.Files,
	})

	for _, specifier := range specifiers {
		target := strings.TrimPrefix(specifier, "@") + ".tsx"
		assert.Contains(t, files, target, specifier)
	}
	assert.Equal(t, "// bob/spinner", files["/components/ui/bob/spinner.tsx"])
	assert.Equal(t, files["/components/ui/card.tsx"], files["/components/ui/alice/card.tsx"])
}

/*
TestResolve_DemoDependencies verifies demo references are only followed on request.
*/
func TestResolve_DemoDependencies(t *testing.T) {
	card := node("alice", "card", nil)
	card.DemoRegistryDependencies = []parser.Reference{ref("alice", "avatar")}
	card.DemoNPMDependencies = map[string]string{"date-fns": "^3.0.0"}
	source := newFakeSource(card, node("alice", "avatar", nil))
	refs := []parser.Reference{ref("alice", "card")}

	without, err := newResolver(source).Resolve(context.Background(), refs, resolver.Options{})
	require.NoError(t, err)
	assert.Len(t, without.Components, 1)
	assert.NotContains(t, without.NPMDependencies, "date-fns")

	with, err := newResolver(source).Resolve(context.Background(), refs, resolver.Options{WithDemoDependencies: true})
	require.NoError(t, err)
	assert.Len(t, with.Components, 2)
	assert.Equal(t, "^3.0.0", with.NPMDependencies["date-fns"])
}

/*
TestResolve_RejectsOwnerlessReference verifies unconfirmed references never reach the source.
*/
func TestResolve_RejectsOwnerlessReference(t *testing.T) {
	source := newFakeSource()

	_, err := newResolver(source).Resolve(context.Background(),
		[]parser.Reference{{Registry: "ui", Slug: "badge"}},
		resolver.Options{},
	)

	var ambiguous *resolver.AmbiguousError
	require.ErrorAs(t, err, &ambiguous)
	assert.Empty(t, source.counts)
}

/*
TestResolve_ContextCancelled verifies cancellation stops the walk.
*/
func TestResolve_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newResolver(newFakeSource(node("alice", "card", nil))).Resolve(ctx, []parser.Reference{ref("alice", "card")}, resolver.Options{})

	assert.ErrorIs(t, err, context.Canceled)
}

/*
TestKey verifies the request key ignores order and duplicates.
*/
func TestKey(t *testing.T) {
	a := resolver.Key([]parser.Reference{ref("bob", "x"), ref("alice", "y"), ref("bob", "x")}, resolver.Options{})
	b := resolver.Key([]parser.Reference{ref("alice", "y"), ref("bob", "x")}, resolver.Options{})
	c := resolver.Key([]parser.Reference{ref("alice", "y"), ref("bob", "x")}, resolver.Options{WithDemoDependencies: true})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

/*
TestDirSource reads components from a local directory tree.
*/
func TestDirSource(t *testing.T) {
	root := t.TempDir()
	write := func(relative, content string) {
		full := filepath.Join(root, relative)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	write("alice/ui/card.tsx", "import { Button } from \"@/components/ui/button\"\nimport { motion } from \"framer-motion\"\nexport function Card() {}")
	write("alice/ui/button.tsx", "export function Button() {}")
	write("alice/ui/badge.tsx", "export function Badge() {}")
	write("alice/magic/badge.tsx", "export function Badge() {}")

	source := resolver.NewDirSource(root)

	t.Run("resolves siblings of the same owner", func(t *testing.T) {
		tree, err := newResolver(source).Resolve(context.Background(),
			[]parser.Reference{{Username: "alice", Slug: "card"}},
			resolver.Options{},
		)
		require.NoError(t, err)

		assert.Contains(t, tree.Files, "/components/ui/card.tsx")
		assert.Contains(t, tree.Files, "/components/ui/button.tsx")
		assert.Equal(t, "latest", tree.NPMDependencies["framer-motion"])
	})

	t.Run("registry required when ambiguous", func(t *testing.T) {
		_, err := source.Fetch(context.Background(), parser.Reference{Username: "alice", Slug: "badge"})

		var ambiguous *resolver.AmbiguousError
		require.ErrorAs(t, err, &ambiguous)
		assert.Equal(t, []string{"magic", "ui"}, ambiguous.Registries)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := source.Fetch(context.Background(), ref("alice", "nope"))

		var notFound *resolver.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

/*
TestCachedSource verifies repeated fetches hit the cache.
*/
func TestCachedSource(t *testing.T) {
	source := newFakeSource(node("alice", "card", map[string]string{"clsx": "latest"}))
	store := cache.New(cache.NewMemoryBackend(), time.Minute, metrics.NewNop(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	cached := resolver.NewCachedSource(source, store)

	first, err := cached.Fetch(context.Background(), ref("alice", "card"))
	require.NoError(t, err)
	second, err := cached.Fetch(context.Background(), ref("alice", "card"))
	require.NoError(t, err)

	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, "latest", second.NPMDependencies["clsx"])
	assert.Equal(t, 1, source.counts[ref("alice", "card").Key()])
}
