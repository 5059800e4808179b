// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package sandbox assembles the virtual project handed to the in-browser bundler.

The bundler runtime itself lives in the browser; this package only produces its
input: a file set with a fixed layout, an npm manifest, the template id and the
editor options. Every function is pure and returns byte-identical output for
identical input.

Layout:

	/index.tsx                            entry, renders every demo export
	/demo.tsx                             demo source, verbatim
	/components/<registry>/<slug>.tsx     component source, verbatim
	/components/<registry>/<user>/<slug>.tsx  owner-qualified alias of the same
	/tailwind.config.js                   custom config, or the default one
	/globals.css                          custom css + compiled css
	/lib/utils.ts                         cn() helper
	/tsconfig.json                        "@/*" path alias
*/
package sandbox

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/ehtisham-afzal/21st/internal/platform/constants"
)

// # Layout Constants

const (
	Template = "react-ts"

	PathEntry          = "/index.tsx"
	PathDemo           = "/demo.tsx"
	PathTailwindConfig = "/tailwind.config.js"
	PathGlobalCSS      = "/globals.css"
	PathUtils          = "/lib/utils.ts"
	PathTSConfig       = "/tsconfig.json"

	TailwindCDN = "https://cdn.tailwindcss.com"

	dependencyLabel = " (dependency)"
)

// ComponentPath is where a component with the given registry and slug lives
// in the virtual project. Registry dependencies use the same scheme.
func ComponentPath(registry, slug string) string {
	if registry == "" {
		registry = constants.DefaultRegistry
	}
	return "/components/" + registry + "/" + slug + ".tsx"
}

// OwnerPath is the target of the owner-qualified alias
// "@/components/<registry>/<username>/<slug>". It falls back to ComponentPath
// when the owner is unknown.
func OwnerPath(registry, username, slug string) string {
	if username == "" {
		return ComponentPath(registry, slug)
	}
	if registry == "" {
		registry = constants.DefaultRegistry
	}
	return "/components/" + registry + "/" + username + "/" + slug + ".tsx"
}

// canonicalPath maps an owner-qualified path back to its ComponentPath.
func canonicalPath(filePath string) (string, bool) {
	segments := strings.Split(strings.TrimPrefix(filePath, "/"), "/")
	if len(segments) != 4 || segments[0] != "components" {
		return "", false
	}
	return ComponentPath(segments[1], strings.TrimSuffix(segments[3], ".tsx")), true
}

// Theme selects the class applied to the preview root.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme falls back to light for unknown values.
func ParseTheme(value string) Theme {
	if Theme(value) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// # Types

// Input is everything the assembler needs for one preview.
type Input struct {
	ComponentCode      string
	DemoCode           string
	ComponentSlug      string
	Registry           string
	Username           string
	DemoComponentNames []string
	Theme              Theme

	// CSS is the compiled stylesheet for this generation of inputs.
	CSS string

	CustomTailwindConfig string
	CustomGlobalCSS      string

	// Dependencies maps virtual paths to resolved registry component code.
	Dependencies map[string]string
}

// Files maps virtual paths to file contents.
type Files map[string]string

// Paths returns the file paths in sorted order.
func (files Files) Paths() []string {
	paths := make([]string, 0, len(files))
	for filePath := range files {
		paths = append(paths, filePath)
	}
	sort.Strings(paths)
	return paths
}

// Options configures the sandbox editor.
type Options struct {
	ActiveFile   string            `json:"activeFile"`
	VisibleFiles []string          `json:"visibleFiles"`
	FileLabels   map[string]string `json:"fileLabels"`
}

// Bundle is the payload consumed by the sandbox runtime.
type Bundle struct {
	Template          string            `json:"template"`
	Entry             string            `json:"entry"`
	Files             Files             `json:"files"`
	Dependencies      map[string]string `json:"dependencies"`
	Options           Options           `json:"options"`
	ExternalResources []string          `json:"externalResources"`
}

// # Assembly

/*
Assemble builds the virtual file set.

Description: Root files are written first. Dependency files are added only
when their path is not already taken, so a dependency can never replace the
entry, the demo, the component or any other root file.

Parameters:
  - input: Input

Returns:
  - Files: The complete virtual project
*/
func Assemble(input Input) Files {
	files := Files{
		PathEntry:          Entry(input),
		PathDemo:           input.DemoCode,
		PathTailwindConfig: DefaultTailwindConfig,
		PathGlobalCSS:      GlobalCSS(input.CustomGlobalCSS, input.CSS),
		PathUtils:          utilsSource,
		PathTSConfig:       tsconfigSource,
	}
	files[ComponentPath(input.Registry, input.ComponentSlug)] = input.ComponentCode
	files[OwnerPath(input.Registry, input.Username, input.ComponentSlug)] = input.ComponentCode
	if input.CustomTailwindConfig != "" {
		files[PathTailwindConfig] = input.CustomTailwindConfig
	}

	for dependencyPath, code := range input.Dependencies {
		if _, taken := files[dependencyPath]; taken {
			continue
		}
		files[dependencyPath] = code
	}

	return files
}

// GlobalCSS composes the stylesheet: custom css first, then the compiled output.
func GlobalCSS(custom, compiled string) string {
	if custom == "" {
		return compiled
	}
	return custom + "\n" + compiled
}

// Entry renders the entry module for the given demo names and theme.
func Entry(input Input) string {
	names := input.DemoComponentNames
	if names == nil {
		names = []string{}
	}
	encoded, _ := json.Marshal(names)

	theme := input.Theme
	if theme == "" {
		theme = ThemeLight
	}
	return fmt.Sprintf(entryTemplate, encoded, theme)
}

// ShellCode returns the generated sources the CSS compiler must scan in
// addition to the component, demo and dependencies.
func ShellCode(input Input) []string {
	return []string{Entry(input), utilsSource}
}

// # Editor Layout

/*
Layout computes the editor options.

Description: The demo is active when present, otherwise the component. Visible
files are the demo, the component, custom tailwind config and global css when
provided, then dependencies in path order. Dependencies are labelled
"<file> (dependency)". An owner-qualified copy is hidden when the same code
is already shown at its plain path.

Parameters:
  - input: Input

Returns:
  - Options
*/
func Layout(input Input) Options {
	componentPath := ComponentPath(input.Registry, input.ComponentSlug)

	options := Options{
		ActiveFile:   componentPath,
		VisibleFiles: []string{},
		FileLabels:   map[string]string{},
	}

	if input.DemoCode != "" {
		options.ActiveFile = PathDemo
		options.VisibleFiles = append(options.VisibleFiles, PathDemo)
	}
	options.VisibleFiles = append(options.VisibleFiles, componentPath)

	if input.CustomTailwindConfig != "" {
		options.VisibleFiles = append(options.VisibleFiles, PathTailwindConfig)
	}
	if input.CustomGlobalCSS != "" {
		options.VisibleFiles = append(options.VisibleFiles, PathGlobalCSS)
	}

	for _, dependencyPath := range Files(input.Dependencies).Paths() {
		if dependencyPath == componentPath || isRootPath(dependencyPath) || mirrored(input, dependencyPath) {
			continue
		}
		options.VisibleFiles = append(options.VisibleFiles, dependencyPath)
		options.FileLabels[dependencyPath] = path.Base(dependencyPath) + dependencyLabel
	}

	return options
}

func mirrored(input Input, filePath string) bool {
	canonical, ok := canonicalPath(filePath)
	if !ok {
		return false
	}
	code := input.Dependencies[filePath]
	if canonical == ComponentPath(input.Registry, input.ComponentSlug) {
		return code == input.ComponentCode
	}
	shown, exists := input.Dependencies[canonical]
	return exists && shown == code
}

func isRootPath(filePath string) bool {
	switch filePath {
	case PathEntry, PathDemo, PathTailwindConfig, PathGlobalCSS, PathUtils, PathTSConfig:
		return true
	}
	return false
}

// # Manifest

// BaseDependencies are always installed in the sandbox.
func BaseDependencies() map[string]string {
	return map[string]string{
		"react":                  "^18.0.0",
		"react-dom":              "^18.0.0",
		"tailwind-merge":         "latest",
		"clsx":                   "latest",
		"@radix-ui/react-select": "^1.0.0",
		"lucide-react":           "latest",
	}
}

// Manifest overlays the given manifests on [BaseDependencies]. Later
// manifests win on conflicting package names.
func Manifest(manifests ...map[string]string) map[string]string {
	merged := BaseDependencies()
	for _, manifest := range manifests {
		for name, version := range manifest {
			merged[name] = version
		}
	}
	return merged
}

// NewBundle assembles files, layout and the final manifest into one payload.
func NewBundle(input Input, dependencies map[string]string) Bundle {
	return Bundle{
		Template:          Template,
		Entry:             PathEntry,
		Files:             Assemble(input),
		Dependencies:      dependencies,
		Options:           Layout(input),
		ExternalResources: []string{TailwindCDN},
	}
}
