// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ehtisham-afzal/21st/internal/preview/host"
	"github.com/ehtisham-afzal/21st/internal/preview/parser"
	"github.com/ehtisham-afzal/21st/internal/preview/sandbox"
)

// sourceFlags locate the editor inputs on disk.
type sourceFlags struct {
	code           string
	demo           string
	tailwindConfig string
	globalCSS      string
	compiledCSS    string

	username string
	slug     string
	registry string
	theme    string

	confirm     []string
	demoConfirm []string
}

func (flags *sourceFlags) register(cmd *cobra.Command) {
	set := cmd.Flags()
	set.StringVar(&flags.code, "code", "", "component source file (required)")
	set.StringVar(&flags.demo, "demo", "", "demo source file")
	set.StringVar(&flags.tailwindConfig, "tailwind-config", "", "custom tailwind.config.js")
	set.StringVar(&flags.globalCSS, "global-css", "", "custom globals.css")
	set.StringVar(&flags.compiledCSS, "compiled-css", "", "precompiled stylesheet; skips the compiler")
	set.StringVarP(&flags.username, "username", "u", "", "owner of the component")
	set.StringVarP(&flags.slug, "slug", "s", "", "component slug")
	set.StringVarP(&flags.registry, "registry", "r", "", "registry of the component (default ui)")
	set.StringVar(&flags.theme, "theme", string(sandbox.ThemeLight), "preview theme: light or dark")
	set.StringSliceVar(&flags.confirm, "confirm", nil, "confirmed component dependency as username/registry/slug")
	set.StringSliceVar(&flags.demoConfirm, "demo-confirm", nil, "confirmed demo dependency as username/registry/slug")
	_ = cmd.MarkFlagRequired("code")
}

// paths lists the files whose contents feed the inputs.
func (flags *sourceFlags) paths() []string {
	var paths []string
	for _, path := range []string{flags.code, flags.demo, flags.tailwindConfig, flags.globalCSS, flags.compiledCSS} {
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

// load reads the files and builds the inputs of one preview generation.
func (flags *sourceFlags) load() (host.Inputs, error) {
	confirmed, err := parser.ParseReferences(flags.confirm, parser.OriginComponent)
	if err != nil {
		return host.Inputs{}, err
	}
	demoConfirmed, err := parser.ParseReferences(flags.demoConfirm, parser.OriginDemo)
	if err != nil {
		return host.Inputs{}, err
	}

	inputs := host.Inputs{
		Username:             flags.username,
		ComponentSlug:        flags.slug,
		Registry:             flags.registry,
		Theme:                sandbox.ParseTheme(flags.theme),
		Confirmed:            confirmed,
		DemoConfirmed:        demoConfirmed,
		WithDemoDependencies: true,
	}

	targets := []struct {
		path string
		into *string
	}{
		{flags.code, &inputs.ComponentCode},
		{flags.demo, &inputs.DemoCode},
		{flags.tailwindConfig, &inputs.CustomTailwindConfig},
		{flags.globalCSS, &inputs.CustomGlobalCSS},
		{flags.compiledCSS, &inputs.CompiledCSS},
	}
	for _, target := range targets {
		if target.path == "" {
			continue
		}
		content, err := os.ReadFile(target.path)
		if err != nil {
			return host.Inputs{}, fmt.Errorf("read %s: %w", target.path, err)
		}
		*target.into = string(content)
	}
	return inputs, nil
}
