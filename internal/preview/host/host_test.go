// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package host_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehtisham-afzal/21st/internal/platform/metrics"
	"github.com/ehtisham-afzal/21st/internal/preview/csscompile"
	"github.com/ehtisham-afzal/21st/internal/preview/host"
	"github.com/ehtisham-afzal/21st/internal/preview/parser"
	"github.com/ehtisham-afzal/21st/internal/preview/resolver"
)

// # Fakes

// fakeResolver returns one tree per dependency key. Keys listed in gates
// block until their channel is closed.
type fakeResolver struct {
	mu    sync.Mutex
	calls []string
	gates map[string]chan struct{}
	err   error
}

func (fake *fakeResolver) Resolve(ctx context.Context, refs []parser.Reference, options resolver.Options) (*resolver.Tree, error) {
	key := resolver.Key(refs, options)

	fake.mu.Lock()
	fake.calls = append(fake.calls, key)
	gate := fake.gates[key]
	fake.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fake.err != nil {
		return nil, fake.err
	}

	tree := &resolver.Tree{
		Files:           map[string]string{},
		NPMDependencies: map[string]string{},
		Components:      []parser.Reference{},
	}
	for _, ref := range refs {
		tree.Files["/components/ui/"+ref.Slug+".tsx"] = "// " + ref.Key()
		tree.Components = append(tree.Components, ref)
	}
	return tree, nil
}

func (fake *fakeResolver) Calls() []string {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return append([]string(nil), fake.calls...)
}

type fakeCompiler struct {
	mu       sync.Mutex
	requests []csscompile.Request
	err      error
}

func (fake *fakeCompiler) Compile(_ context.Context, request csscompile.Request) (string, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.requests = append(fake.requests, request)
	if fake.err != nil {
		return "", fake.err
	}
	return ".compiled-" + request.Code[:3] + "{}", nil
}

func (fake *fakeCompiler) Count() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return len(fake.requests)
}

func newSession(resolve host.Resolver, compile csscompile.Compiler) *host.Session {
	return host.NewSession(context.Background(), resolve, compile, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func inputs(code string) host.Inputs {
	return host.Inputs{
		Username:      "alice",
		ComponentSlug: "card",
		Registry:      "ui",
		ComponentCode: code,
		DemoCode:      "import { Card } from \"@/components/ui/card\"\nexport default function Default() { return <Card /> }",
	}
}

// # Tests

/*
TestSession_Ready walks a preview through loading into ready.
*/
func TestSession_Ready(t *testing.T) {
	resolve := &fakeResolver{}
	compile := &fakeCompiler{}
	session := newSession(resolve, compile)
	defer session.Close()

	var phases []host.Phase
	var mu sync.Mutex
	session.Subscribe(func(state host.State) {
		mu.Lock()
		phases = append(phases, state.Phase)
		mu.Unlock()
	})

	session.Update(inputs("abc import { Spinner } from \"bob/spinner\"\nexport function Card() {}"))
	session.Wait()

	state := session.State()
	require.Equal(t, host.PhaseReady, state.Phase)
	require.NotNil(t, state.Bundle)
	assert.Equal(t, ".compiled-abc{}", state.Bundle.Files["/globals.css"])
	assert.Contains(t, state.Bundle.Files, "/components/ui/spinner.tsx")
	assert.Contains(t, state.Bundle.Files, "/components/ui/card.tsx")
	assert.Equal(t, "^18.0.0", state.Bundle.Dependencies["react"])

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, host.PhaseLoading, phases[0])
	assert.Equal(t, host.PhaseReady, phases[len(phases)-1])
}

/*
TestSession_Gates verifies the gate order and that gated inputs never resolve.
*/
func TestSession_Gates(t *testing.T) {
	resolve := &fakeResolver{}
	session := newSession(resolve, &fakeCompiler{})
	defer session.Close()

	t.Run("unconfirmed ambiguous import", func(t *testing.T) {
		withAmbiguous := inputs("")
		withAmbiguous.ComponentCode = "import { Badge } from \"@/components/ui/badge\""

		session.Update(withAmbiguous)
		session.Wait()

		state := session.State()
		assert.Equal(t, host.PhaseAwaitingConfirmation, state.Phase)
		require.Len(t, state.Unconfirmed, 1)
		assert.Equal(t, "badge", state.Unconfirmed[0].Slug)
	})

	t.Run("missing demo", func(t *testing.T) {
		missingDemo := inputs("export function Card() {}")
		missingDemo.DemoCode = ""

		session.Update(missingDemo)
		session.Wait()

		state := session.State()
		assert.Equal(t, host.PhaseIncomplete, state.Phase)
		assert.Equal(t, []string{"demo_code"}, state.Missing)
	})

	t.Run("confirmation clears the gate", func(t *testing.T) {
		confirmed := inputs("abc import { Badge } from \"@/components/ui/badge\"")
		confirmed.Confirmed = []parser.Reference{{Username: "bob", Registry: "ui", Slug: "badge"}}

		session.Update(confirmed)
		session.Wait()

		assert.Equal(t, host.PhaseReady, session.State().Phase)
	})

	assert.Len(t, resolve.Calls(), 1)
}

/*
TestSession_SourceOnlyEditReusesTree verifies resolution is keyed by the dependency set.
*/
func TestSession_SourceOnlyEditReusesTree(t *testing.T) {
	resolve := &fakeResolver{}
	compile := &fakeCompiler{}
	session := newSession(resolve, compile)
	defer session.Close()

	session.Update(inputs("abc import { S } from \"bob/spinner\""))
	session.Wait()
	session.Update(inputs("xyz import { S } from \"bob/spinner\"\nconst edited = true"))
	session.Wait()

	assert.Len(t, resolve.Calls(), 1)
	assert.Equal(t, 2, compile.Count())
	assert.Equal(t, ".compiled-xyz{}", session.State().Bundle.Files["/globals.css"])
	assert.Equal(t, uint64(2), session.State().Generation)
}

/*
TestSession_StaleResolutionDropped verifies a slow superseded resolution never wins.
*/
func TestSession_StaleResolutionDropped(t *testing.T) {
	first := "abc import { A } from \"bob/alpha\""
	second := "def import { B } from \"bob/beta\""

	slowKey := resolver.Key([]parser.Reference{{Username: "bob", Registry: "ui", Slug: "alpha", Origin: parser.OriginComponent}}, resolver.Options{})
	release := make(chan struct{})
	resolve := &fakeResolver{gates: map[string]chan struct{}{slowKey: release}}
	session := newSession(resolve, &fakeCompiler{})
	defer session.Close()

	session.Update(inputs(first))
	session.Update(inputs(second))

	assert.Eventually(t, func() bool { return session.State().Phase == host.PhaseReady }, testTimeout, testTick)

	close(release)
	session.Wait()

	state := session.State()
	assert.Equal(t, host.PhaseReady, state.Phase)
	assert.Equal(t, uint64(2), state.Generation)
	assert.Contains(t, state.Bundle.Files, "/components/ui/beta.tsx")
	assert.NotContains(t, state.Bundle.Files, "/components/ui/alpha.tsx")
}

/*
TestSession_Failures covers the two failure kinds.
*/
func TestSession_Failures(t *testing.T) {
	t.Run("resolution", func(t *testing.T) {
		notFound := &resolver.NotFoundError{Ref: parser.Reference{Username: "bob", Slug: "ghost"}}
		session := newSession(&fakeResolver{err: notFound}, &fakeCompiler{})
		defer session.Close()

		session.Update(inputs("abc import { G } from \"bob/ghost\""))
		session.Wait()

		state := session.State()
		assert.Equal(t, host.PhaseFailed, state.Phase)
		require.NotNil(t, state.Failure)
		assert.Equal(t, host.FailureResolution, state.Failure.Kind)
		assert.ErrorAs(t, state.Failure.Err, &notFound)
	})

	t.Run("compile", func(t *testing.T) {
		compileErr := &csscompile.Error{Kind: csscompile.KindTimeout, Cause: errors.New("slow")}
		session := newSession(&fakeResolver{}, &fakeCompiler{err: compileErr})
		defer session.Close()

		session.Update(inputs("abc export function Card() {}"))
		session.Wait()

		state := session.State()
		assert.Equal(t, host.PhaseFailed, state.Phase)
		require.NotNil(t, state.Failure)
		assert.Equal(t, host.FailureCompile, state.Failure.Kind)

		var failure *csscompile.Error
		require.ErrorAs(t, state.Failure.Err, &failure)
		assert.Equal(t, csscompile.KindTimeout, failure.Kind)
	})
}

/*
TestSession_StoredCSSSkipsCompiler verifies precompiled css short-circuits the service.
*/
func TestSession_StoredCSSSkipsCompiler(t *testing.T) {
	compile := &fakeCompiler{}
	session := newSession(&fakeResolver{}, compile)
	defer session.Close()

	stored := inputs("abc export function Card() {}")
	stored.CompiledCSS = ".stored{}"
	session.Update(stored)
	session.Wait()

	state := session.State()
	assert.Equal(t, host.PhaseReady, state.Phase)
	assert.Equal(t, ".stored{}", state.Bundle.Files["/globals.css"])
	assert.Zero(t, compile.Count())
}

/*
TestSession_DemoDependencies verifies the demo dependency option reaches the resolver
and takes part in the resolution key.
*/
func TestSession_DemoDependencies(t *testing.T) {
	resolve := &fakeResolver{}
	session := newSession(resolve, &fakeCompiler{})
	defer session.Close()

	authoring := inputs("abc import { S } from \"bob/spinner\"")
	authoring.WithDemoDependencies = true
	session.Update(authoring)
	session.Wait()

	authoring.WithDemoDependencies = false
	session.Update(authoring)
	session.Wait()

	calls := resolve.Calls()
	require.Len(t, calls, 2)
	assert.True(t, strings.HasSuffix(calls[0], "|demo"), calls[0])
	assert.False(t, strings.HasSuffix(calls[1], "|demo"), calls[1])
}

/*
TestSession_Refresh verifies registry edits reach the bundle once the session
is refreshed, even though the dependency set is unchanged.
*/
func TestSession_Refresh(t *testing.T) {
	root := t.TempDir()
	spinner := filepath.Join(root, "bob", "ui", "spinner.tsx")
	require.NoError(t, os.MkdirAll(filepath.Dir(spinner), 0o755))
	require.NoError(t, os.WriteFile(spinner, []byte("// v1"), 0o644))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dependencyResolver := resolver.New(resolver.NewDirSource(root), metrics.NewNop(), logger)
	session := host.NewSession(context.Background(), dependencyResolver, &fakeCompiler{}, logger)
	defer session.Close()

	source := inputs("abc import { Spinner } from \"bob/spinner\"")
	session.Update(source)
	session.Wait()
	require.Equal(t, host.PhaseReady, session.State().Phase)
	assert.Equal(t, "// v1", session.State().Bundle.Files["/components/ui/spinner.tsx"])

	require.NoError(t, os.WriteFile(spinner, []byte("// v2"), 0o644))

	session.Update(source)
	session.Wait()
	assert.Equal(t, "// v1", session.State().Bundle.Files["/components/ui/spinner.tsx"])

	generation := session.Refresh(source)
	session.Wait()

	state := session.State()
	require.Equal(t, host.PhaseReady, state.Phase)
	assert.Equal(t, generation, state.Generation)
	assert.Equal(t, "// v2", state.Bundle.Files["/components/ui/spinner.tsx"])
	assert.Equal(t, "// v2", state.Bundle.Files["/components/ui/bob/spinner.tsx"])
}

/*
TestSession_RefreshDropsInFlightResolution verifies a resolution started before
a refresh never replaces the refreshed tree.
*/
func TestSession_RefreshDropsInFlightResolution(t *testing.T) {
	source := inputs("abc import { S } from \"bob/spinner\"")
	key := resolver.Key([]parser.Reference{{Username: "bob", Registry: "ui", Slug: "spinner", Origin: parser.OriginComponent}}, resolver.Options{})

	release := make(chan struct{})
	resolve := &fakeResolver{gates: map[string]chan struct{}{key: release}}
	session := newSession(resolve, &fakeCompiler{})
	defer session.Close()

	first := session.Update(source)
	second := session.Refresh(source)
	assert.Greater(t, second, first)

	close(release)
	session.Wait()

	assert.Len(t, resolve.Calls(), 2)
	state := session.State()
	assert.Equal(t, host.PhaseReady, state.Phase)
	assert.Equal(t, second, state.Generation)
}
