// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/ehtisham-afzal/21st/internal/platform/metrics"
	"github.com/ehtisham-afzal/21st/internal/preview"
	"github.com/ehtisham-afzal/21st/internal/preview/csscompile"
	"github.com/ehtisham-afzal/21st/internal/preview/host"
	"github.com/ehtisham-afzal/21st/internal/preview/parser"
	"github.com/ehtisham-afzal/21st/internal/preview/resolver"
)

// pipelineFlags configure dependency resolution for bundle and watch.
type pipelineFlags struct {
	registryDir string
	noInput     bool
}

func (flags *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flags.registryDir, "registry-dir", ".", "root of the local registry")
	cmd.Flags().BoolVar(&flags.noInput, "no-input", false, "never prompt; imports with several candidate owners stay unconfirmed")
}

// newService builds a preview service over the local registry.
func (state *app) newService(registryDir string) *preview.Service {
	dependencyResolver := resolver.New(resolver.NewDirSource(registryDir), metrics.NewNop(), state.logger)
	return preview.NewService(dependencyResolver, state.compiler(), nil, nil, state.logger)
}

func (state *app) compiler() csscompile.Compiler {
	if state.cfg.CSSCompileURL == "" {
		state.logger.Warn("css_compile_disabled", slog.String("hint", "set CSS_COMPILE_URL or pass --compiled-css"))
		return emptyCompiler{}
	}
	return csscompile.New(state.cfg.CSSCompileURL, state.cfg.CSSCompileTimeout, metrics.NewNop(), state.logger)
}

// emptyCompiler yields no stylesheet.
type emptyCompiler struct{}

func (emptyCompiler) Compile(context.Context, csscompile.Request) (string, error) {
	return "", nil
}

// # Confirmation

// chooser asks the user to pick one of options.
type chooser func(message string, options []string) (string, error)

const skipChoice = "(skip)"

func surveyChooser(message string, options []string) (string, error) {
	var answer string
	prompt := &survey.Select{
		Message: message,
		Options: append(append([]string{}, options...), skipChoice),
	}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return "", err
	}
	return answer, nil
}

/*
confirm resolves the owner of every unconfirmed import.

Description: Candidates are the owners under registryDir that publish the
slug in the referenced registry. A single candidate is taken without asking.

Parameters:
  - service: *preview.Service
  - inputs: host.Inputs
  - registryDir: string
  - choose: chooser (nil disables prompting)

Returns:
  - host.Inputs: With the chosen references appended to the confirmations
  - error: Parse or prompt failures
*/
func confirm(service *preview.Service, inputs host.Inputs, registryDir string, choose chooser) (host.Inputs, error) {
	parsed, err := service.Parse(inputs)
	if err != nil {
		return inputs, err
	}

	for _, pending := range parsed.Unconfirmed {
		candidates, err := candidatesFor(registryDir, pending)
		if err != nil {
			return inputs, err
		}

		var chosen parser.Reference
		switch {
		case len(candidates) == 0:
			continue
		case len(candidates) == 1:
			chosen = candidates[0]
		case choose == nil:
			continue
		default:
			options := parser.Strings(candidates)
			answer, err := choose(fmt.Sprintf("Which %q does the %s import?", pending.String(), pending.Origin), options)
			if err != nil {
				return inputs, err
			}
			index := slices.Index(options, answer)
			if index < 0 {
				continue
			}
			chosen = candidates[index]
		}

		chosen.Origin = pending.Origin
		if pending.Origin == parser.OriginDemo {
			inputs.DemoConfirmed = append(inputs.DemoConfirmed, chosen)
		} else {
			inputs.Confirmed = append(inputs.Confirmed, chosen)
		}
	}
	return inputs, nil
}

// candidatesFor lists owners publishing ref's slug, sorted by identifier.
func candidatesFor(registryDir string, ref parser.Reference) ([]parser.Reference, error) {
	registry := ref.Registry
	if registry == "" {
		registry = "*"
	}

	matches, err := filepath.Glob(filepath.Join(registryDir, "*", registry, ref.Slug+".tsx"))
	if err != nil {
		return nil, err
	}

	candidates := make([]parser.Reference, 0, len(matches))
	for _, match := range matches {
		registryPath := filepath.Dir(match)
		candidates = append(candidates, parser.Reference{
			Username: filepath.Base(filepath.Dir(registryPath)),
			Registry: filepath.Base(registryPath),
			Slug:     ref.Slug,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].String() < candidates[j].String()
	})
	return candidates, nil
}
