// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package host drives one live preview through the pipeline.

A [Session] receives successive [Inputs] (editor contents, confirmations) and
publishes a [State] after every change. Each Update starts a new generation:

 1. Unconfirmed ambiguous imports hold the preview in awaiting_confirmation.
 2. Missing component or demo code holds it in incomplete.
 3. Otherwise the dependency set is resolved and the CSS compiled; the preview
    is loading until both results for the current inputs are known.

Resolution is keyed by the dependency set, so edits that only touch source
text reuse the resolved tree. Results that arrive for a superseded key or
generation are dropped.
*/
package host

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ehtisham-afzal/21st/internal/preview/csscompile"
	"github.com/ehtisham-afzal/21st/internal/preview/parser"
	"github.com/ehtisham-afzal/21st/internal/preview/resolver"
	"github.com/ehtisham-afzal/21st/internal/preview/sandbox"
	"github.com/ehtisham-afzal/21st/pkg/statestore"
)

// # Types

// Phase of a preview.
type Phase string

const (
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseIncomplete           Phase = "incomplete"
	PhaseLoading              Phase = "loading"
	PhaseReady                Phase = "ready"
	PhaseFailed               Phase = "failed"
)

// FailureKind tells which stage failed.
type FailureKind string

const (
	FailureResolution FailureKind = "resolution"
	FailureCompile    FailureKind = "compile"
)

// Failure describes a failed preview.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

// Inputs are the editor contents of one preview.
type Inputs struct {
	Username      string        `json:"username"`
	ComponentSlug string        `json:"component_slug"`
	Registry      string        `json:"registry"`
	ComponentCode string        `json:"code"`
	DemoCode      string        `json:"demo_code"`
	Theme         sandbox.Theme `json:"theme"`

	CustomTailwindConfig string `json:"tailwind_config,omitempty"`
	CustomGlobalCSS      string `json:"global_css,omitempty"`

	// Confirmed references chosen by the author for ambiguous imports.
	Confirmed     []parser.Reference `json:"confirmed,omitempty"`
	DemoConfirmed []parser.Reference `json:"demo_confirmed,omitempty"`

	// CompiledCSS, when set, is used instead of calling the compiler.
	CompiledCSS string `json:"compiled_css,omitempty"`

	// WithDemoDependencies also resolves the demo dependencies of every
	// registry component in the tree. Authoring previews set it.
	WithDemoDependencies bool `json:"with_demo_dependencies,omitempty"`
}

// State is what subscribers observe.
type State struct {
	Generation  uint64             `json:"generation"`
	Phase       Phase              `json:"phase"`
	Parsed      *parser.Result     `json:"parsed,omitempty"`
	Unconfirmed []parser.Reference `json:"unconfirmed,omitempty"`
	Missing     []string           `json:"missing,omitempty"`
	Failure     *Failure           `json:"failure,omitempty"`
	Bundle      *sandbox.Bundle    `json:"bundle,omitempty"`
}

// Resolver expands direct references into a dependency tree.
type Resolver interface {
	Resolve(ctx context.Context, refs []parser.Reference, options resolver.Options) (*resolver.Tree, error)
}

// # Session

// Session owns the pipeline state of one preview. It is safe for concurrent
// use. Subscribers run while the session lock is held and must not call
// [Session.Update].
type Session struct {
	resolver Resolver
	compiler csscompile.Compiler
	logger   *slog.Logger
	store    *statestore.Store[State]

	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup

	mu         sync.Mutex
	generation uint64
	inputs     Inputs
	parsed     parser.Result
	gate       Phase
	missing    []string

	treeKey    string
	hasKey     bool
	resolution uint64
	tree       *resolver.Tree
	treeErr    error
	compiled   uint64
	css        csscompile.State
	compileErr error
}

/*
NewSession creates an idle session.

Parameters:
  - ctx: context.Context (cancelling it stops in-flight work)
  - resolver: Resolver
  - compiler: csscompile.Compiler
  - logger: *slog.Logger

Returns:
  - *Session
*/
func NewSession(ctx context.Context, resolver Resolver, compiler csscompile.Compiler, logger *slog.Logger) *Session {
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		resolver: resolver,
		compiler: compiler,
		logger:   logger,
		store:    statestore.New(State{Phase: PhaseIncomplete, Missing: []string{"code", "demo_code"}}),
		ctx:      ctx,
		cancel:   cancel,
		css:      csscompile.Pending(),
	}
}

// State returns the last published state.
func (session *Session) State() State {
	return session.store.Get()
}

// Subscribe registers a listener for state changes.
func (session *Session) Subscribe(listener func(State)) (unsubscribe func()) {
	return session.store.Subscribe(listener)
}

// Wait blocks until no resolution or compilation is in flight.
func (session *Session) Wait() {
	session.tasks.Wait()
}

// Close cancels in-flight work and waits for it to stop.
func (session *Session) Close() {
	session.cancel()
	session.tasks.Wait()
}

/*
Update starts a new generation with the given inputs.

Parameters:
  - inputs: Inputs

Returns:
  - uint64: The generation number
*/
func (session *Session) Update(inputs Inputs) uint64 {
	session.mu.Lock()
	defer session.mu.Unlock()

	return session.update(inputs)
}

/*
Refresh starts a new generation like Update, but resolves the dependency set
again even when it is unchanged. Callers use it after registry sources change.

Parameters:
  - inputs: Inputs

Returns:
  - uint64: The generation number
*/
func (session *Session) Refresh(inputs Inputs) uint64 {
	session.mu.Lock()
	defer session.mu.Unlock()

	session.hasKey = false
	return session.update(inputs)
}

// update runs one generation. Caller holds mu.
func (session *Session) update(inputs Inputs) uint64 {
	session.generation++
	session.inputs = inputs
	session.parsed = parser.Parse(inputs.ComponentCode, inputs.DemoCode, parser.Options{
		Username:        inputs.Username,
		ComponentSlug:   inputs.ComponentSlug,
		DefaultRegistry: inputs.Registry,
		Confirmed:       inputs.Confirmed,
		DemoConfirmed:   inputs.DemoConfirmed,
	})
	session.gate = ""
	session.missing = nil
	session.css = csscompile.Pending()
	session.compileErr = nil

	switch {
	case len(session.parsed.Unconfirmed) > 0:
		session.gate = PhaseAwaitingConfirmation
	case inputs.ComponentCode == "" || inputs.DemoCode == "":
		session.gate = PhaseIncomplete
		if inputs.ComponentCode == "" {
			session.missing = append(session.missing, "code")
		}
		if inputs.DemoCode == "" {
			session.missing = append(session.missing, "demo_code")
		}
	}

	if session.gate == "" {
		session.startResolution()
		if inputs.CompiledCSS != "" {
			session.css = csscompile.Ready(inputs.CompiledCSS)
			session.compiled = session.generation
		}
	}

	session.evaluate()
	return session.generation
}

// startResolution resolves the current dependency set unless the same set
// is already resolved or in flight.
func (session *Session) startResolution() {
	refs := directReferences(session.parsed, session.inputs)
	options := resolver.Options{WithDemoDependencies: session.inputs.WithDemoDependencies}
	key := resolver.Key(refs, options)
	if session.hasKey && key == session.treeKey {
		return
	}

	session.treeKey = key
	session.hasKey = true
	session.resolution++
	session.tree = nil
	session.treeErr = nil

	session.tasks.Add(1)
	go session.resolve(session.resolution, refs, options)
}

func (session *Session) resolve(resolution uint64, refs []parser.Reference, options resolver.Options) {
	defer session.tasks.Done()

	tree, err := session.resolver.Resolve(session.ctx, refs, options)

	session.mu.Lock()
	defer session.mu.Unlock()

	if resolution != session.resolution || session.ctx.Err() != nil {
		session.logger.Debug("preview_result_stale", slog.String("stage", "resolution"))
		return
	}
	session.tree, session.treeErr = tree, err
	session.evaluate()
}

func (session *Session) compile(generation uint64, request csscompile.Request) {
	defer session.tasks.Done()

	css, err := session.compiler.Compile(session.ctx, request)

	session.mu.Lock()
	defer session.mu.Unlock()

	if generation != session.generation || session.ctx.Err() != nil {
		session.logger.Debug("preview_result_stale",
			slog.String("stage", "compile"),
			slog.Uint64("generation", generation),
		)
		return
	}
	if err != nil {
		session.css = csscompile.Failed(err)
		session.compileErr = err
	} else {
		session.css = csscompile.Ready(css)
	}
	session.compiled = generation
	session.evaluate()
}

// evaluate publishes the state of the current generation, launching the
// compilation once the tree it depends on is known. Caller holds mu.
func (session *Session) evaluate() {
	parsed := session.parsed
	state := State{Generation: session.generation, Parsed: &parsed}

	switch {
	case session.gate == PhaseAwaitingConfirmation:
		state.Phase = PhaseAwaitingConfirmation
		state.Unconfirmed = parsed.Unconfirmed

	case session.gate == PhaseIncomplete:
		state.Phase = PhaseIncomplete
		state.Missing = session.missing

	case session.treeErr != nil:
		state.Phase = PhaseFailed
		state.Failure = &Failure{Kind: FailureResolution, Message: session.treeErr.Error(), Err: session.treeErr}

	case session.tree == nil:
		state.Phase = PhaseLoading

	case session.css.Status == csscompile.StatusPending:
		state.Phase = PhaseLoading
		if session.compiled != session.generation {
			session.compiled = session.generation
			session.tasks.Add(1)
			go session.compile(session.generation, session.compileRequest())
		}

	case session.css.Status == csscompile.StatusFailed:
		state.Phase = PhaseFailed
		state.Failure = &Failure{Kind: FailureCompile, Message: session.css.Error, Err: session.compileErr}

	default:
		bundle := session.bundle()
		state.Phase = PhaseReady
		state.Bundle = &bundle
	}

	session.store.Set(state)
}

func (session *Session) sandboxInput() sandbox.Input {
	input := sandbox.Input{
		ComponentCode:        session.inputs.ComponentCode,
		DemoCode:             session.inputs.DemoCode,
		ComponentSlug:        session.inputs.ComponentSlug,
		Registry:             session.inputs.Registry,
		Username:             session.inputs.Username,
		DemoComponentNames:   session.parsed.DemoComponentNames,
		Theme:                session.inputs.Theme,
		CSS:                  session.css.CSS,
		CustomTailwindConfig: session.inputs.CustomTailwindConfig,
		CustomGlobalCSS:      session.inputs.CustomGlobalCSS,
	}
	if session.tree != nil {
		input.Dependencies = session.tree.Files
	}
	return input
}

func (session *Session) compileRequest() csscompile.Request {
	input := session.sandboxInput()
	sources := append(session.tree.Sources(), sandbox.ShellCode(input)...)
	return csscompile.NewRequest(
		session.inputs.ComponentCode,
		session.inputs.DemoCode,
		session.inputs.CustomTailwindConfig,
		session.inputs.CustomGlobalCSS,
		sources,
	)
}

func (session *Session) bundle() sandbox.Bundle {
	manifest := sandbox.Manifest(
		session.parsed.NPMDependencies,
		session.parsed.DemoNPMDependencies,
		session.tree.NPMDependencies,
	)
	return sandbox.NewBundle(session.sandboxInput(), manifest)
}

// directReferences is the set resolved for a preview: references written in
// the sources plus the author's confirmations.
func directReferences(parsed parser.Result, inputs Inputs) []parser.Reference {
	seen := map[string]bool{}
	var refs []parser.Reference
	for _, list := range [][]parser.Reference{
		parsed.RegistryDependencies,
		parsed.DemoRegistryDependencies,
		inputs.Confirmed,
		inputs.DemoConfirmed,
	} {
		for _, ref := range list {
			if seen[ref.Key()] {
				continue
			}
			seen[ref.Key()] = true
			refs = append(refs, ref)
		}
	}
	return refs
}
