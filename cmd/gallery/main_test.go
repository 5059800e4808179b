// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ehtisham-afzal/21st/internal/preview"
	"github.com/ehtisham-afzal/21st/internal/preview/host"
	"github.com/ehtisham-afzal/21st/internal/preview/parser"
	"github.com/ehtisham-afzal/21st/internal/preview/sandbox"
)

const cardCode = `import { Button } from "@/components/ui/button"
import { Badge } from "@/components/ui/badge"
import { cn } from "@/lib/utils"
import { motion } from "framer-motion"

export function Card() {
  return <div className={cn("card")}><Badge /><Button /></div>
}
`

const cardDemo = `import { Card } from "@/components/ui/card"

export default function Demo() {
  return <Card />
}
`

// writeTree creates files relative to root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func runGallery(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("APP_URL", "https://21st.dev")
	t.Setenv("CSS_COMPILE_URL", "")

	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

/*
TestParseCommand prints the parse result as YAML keyed like the JSON API.
*/
func TestParseCommand(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"card.tsx": cardCode})

	output, err := runGallery(t, "parse", "--code", filepath.Join(dir, "card.tsx"), "--slug", "card", "--format", "yaml")
	require.NoError(t, err)

	var result struct {
		ComponentNames  []string          `yaml:"component_names"`
		NPMDependencies map[string]string `yaml:"npm_dependencies"`
		Unconfirmed     []map[string]any  `yaml:"unconfirmed"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(output), &result))
	assert.Equal(t, []string{"Card"}, result.ComponentNames)
	assert.Contains(t, result.NPMDependencies, "framer-motion")
	assert.Len(t, result.Unconfirmed, 2)
}

/*
TestParseCommand_UnknownFormat rejects output formats other than json and yaml.
*/
func TestParseCommand_UnknownFormat(t *testing.T) {
	_, err := runGallery(t, "parse", "--code", "card.tsx", "--format", "toml")
	assert.ErrorContains(t, err, "unknown format")
}

/*
TestInstallCommand prints the runner specific command or the full instructions.
*/
func TestInstallCommand(t *testing.T) {
	output, err := runGallery(t, "install-command", "alice/card", "--runner", "bun")
	require.NoError(t, err)
	assert.Equal(t, "bunx --bun shadcn@latest add \"https://21st.dev/r/alice/card\"\n", output)

	output, err = runGallery(t, "install-command", "alice/card", "--format", "json")
	require.NoError(t, err)

	var instructions map[string]string
	require.NoError(t, json.Unmarshal([]byte(output), &instructions))
	assert.Equal(t, "https://21st.dev/r/alice/card", instructions["url"])
	assert.Equal(t, "npm", instructions["runner"])

	_, err = runGallery(t, "install-command", "not a reference")
	assert.Error(t, err)
}

/*
TestConfirm picks single candidates automatically and asks for the rest.
*/
func TestConfirm(t *testing.T) {
	registry := t.TempDir()
	writeTree(t, registry, map[string]string{
		"alice/ui/button.tsx": "export function Button() {}",
		"bob/ui/button.tsx":   "export function Button() {}",
		"carol/ui/badge.tsx":  "export function Badge() {}",
	})

	service := preview.NewService(nil, nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	inputs := host.Inputs{ComponentSlug: "card", ComponentCode: cardCode, DemoCode: cardDemo}

	var asked []string
	choose := func(_ string, options []string) (string, error) {
		asked = options
		return "bob/ui/button", nil
	}

	confirmed, err := confirm(service, inputs, registry, choose)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice/ui/button", "bob/ui/button"}, asked)
	assert.ElementsMatch(t, []parser.Reference{
		{Username: "bob", Registry: "ui", Slug: "button", Origin: parser.OriginComponent},
		{Username: "carol", Registry: "ui", Slug: "badge", Origin: parser.OriginComponent},
	}, confirmed.Confirmed)

	unattended, err := confirm(service, inputs, registry, nil)
	require.NoError(t, err)
	assert.Equal(t, []parser.Reference{
		{Username: "carol", Registry: "ui", Slug: "badge", Origin: parser.OriginComponent},
	}, unattended.Confirmed)
}

/*
TestBundleCommand resolves local dependencies and writes the bundle files.
*/
func TestBundleCommand(t *testing.T) {
	registry := t.TempDir()
	writeTree(t, registry, map[string]string{
		"carol/ui/badge.tsx": "export function Badge() { return <span /> }",
		"card.tsx":           "import { Badge } from \"@/components/ui/badge\"\nexport function Card() { return <Badge /> }\n",
		"card.demo.tsx":      cardDemo,
	})
	out := filepath.Join(t.TempDir(), "bundle")

	output, err := runGallery(t, "bundle",
		"--code", filepath.Join(registry, "card.tsx"),
		"--demo", filepath.Join(registry, "card.demo.tsx"),
		"--slug", "card",
		"--registry-dir", registry,
		"--no-input",
		"--out", out,
	)
	require.NoError(t, err)

	var bundle sandbox.Bundle
	require.NoError(t, json.Unmarshal([]byte(output), &bundle))
	require.NotEmpty(t, bundle.Files)

	for virtual, content := range bundle.Files {
		written, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(virtual)))
		require.NoError(t, err, virtual)
		assert.Equal(t, content, string(written))
	}
}

/*
TestWriteFiles refuses paths that leave the output directory.
*/
func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, writeFiles(dir, sandbox.Files{"/App.tsx": "app", "/components/ui/card.tsx": "card"}))
	content, err := os.ReadFile(filepath.Join(dir, "components", "ui", "card.tsx"))
	require.NoError(t, err)
	assert.Equal(t, "card", string(content))

	assert.Error(t, writeFiles(dir, sandbox.Files{"/../escape.tsx": "nope"}))
}

/*
TestSourceSet_Relevant filters watch events down to inputs and registry sources.
*/
func TestSourceSet_Relevant(t *testing.T) {
	dir := t.TempDir()
	sources := &sourceSet{
		files:  map[string]bool{filepath.Join(dir, "tailwind.config.js"): true},
		output: filepath.Join(dir, ".gallery"),
	}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{name: "input write", event: fsnotify.Event{Name: filepath.Join(dir, "tailwind.config.js"), Op: fsnotify.Write}, want: true},
		{name: "registry source", event: fsnotify.Event{Name: filepath.Join(dir, "bob", "ui", "button.tsx"), Op: fsnotify.Create}, want: true},
		{name: "removed source", event: fsnotify.Event{Name: filepath.Join(dir, "bob", "ui", "button.tsx"), Op: fsnotify.Remove}, want: true},
		{name: "chmod only", event: fsnotify.Event{Name: filepath.Join(dir, "bob", "ui", "button.tsx"), Op: fsnotify.Chmod}, want: false},
		{name: "unrelated file", event: fsnotify.Event{Name: filepath.Join(dir, "notes.md"), Op: fsnotify.Write}, want: false},
		{name: "written bundle", event: fsnotify.Event{Name: filepath.Join(dir, ".gallery", "components", "ui", "card.tsx"), Op: fsnotify.Write}, want: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, sources.relevant(test.event))
		})
	}
}

/*
TestSourceSet_RegistryEdit separates registry component edits from input edits.
*/
func TestSourceSet_RegistryEdit(t *testing.T) {
	dir := t.TempDir()
	registry := filepath.Join(dir, "registry")
	sources := &sourceSet{
		files: map[string]bool{
			filepath.Join(dir, "card.tsx"):                     true,
			filepath.Join(registry, "alice", "ui", "card.tsx"): true,
		},
		output:   filepath.Join(dir, ".gallery"),
		registry: registry,
	}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{name: "registry component", event: fsnotify.Event{Name: filepath.Join(registry, "bob", "ui", "spinner.tsx"), Op: fsnotify.Write}, want: true},
		{name: "registry component removed", event: fsnotify.Event{Name: filepath.Join(registry, "bob", "ui", "spinner.tsx"), Op: fsnotify.Remove}, want: true},
		{name: "input inside registry", event: fsnotify.Event{Name: filepath.Join(registry, "alice", "ui", "card.tsx"), Op: fsnotify.Write}, want: false},
		{name: "input outside registry", event: fsnotify.Event{Name: filepath.Join(dir, "card.tsx"), Op: fsnotify.Write}, want: false},
		{name: "source outside registry", event: fsnotify.Event{Name: filepath.Join(dir, "other", "spinner.tsx"), Op: fsnotify.Write}, want: false},
		{name: "chmod only", event: fsnotify.Event{Name: filepath.Join(registry, "bob", "ui", "spinner.tsx"), Op: fsnotify.Chmod}, want: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, sources.registryEdit(test.event))
		})
	}
}
