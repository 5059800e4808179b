// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package parser extracts metadata from component and demo source text.

It reports exported component names, third-party npm packages and references
to other components in the gallery. Extraction is pattern based: it never
fails, and source that matches no pattern produces empty results. Every list
it returns is sorted so the same text always yields the same output.
*/
package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ehtisham-afzal/21st/internal/platform/constants"
)

// LatestVersion is used for npm packages imported without a version hint.
const LatestVersion = "latest"

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`(?m)^\s*//.*$`)

	// import X from "a"; import { a, b } from "a"; import "a"; export * from "a"
	importSpecifier = regexp.MustCompile(`(?m)(?:^|[;\s])(?:import|export)\s+(?:type\s+)?(?:[\w*{}\s,$]+?\s+from\s+)?["']([^"'\n]+)["']`)

	exportDeclaration = regexp.MustCompile(`(?m)(?:^|[;\s])export\s+(?:default\s+)?(?:async\s+)?(?:function\s*\*?|class|const|let|var)\s+([A-Za-z_$][\w$]*)`)
	exportList        = regexp.MustCompile(`(?m)(?:^|[;\s])export\s+(?:type\s+)?\{([^}]*)\}`)
	exportDefaultName = regexp.MustCompile(`(?m)(?:^|[;\s])export\s+default\s+([A-Za-z_$][\w$]*)\s*;?\s*$`)
	exportDefaultList = regexp.MustCompile(`(?m)(?:^|[;\s])export\s+default\s+\{([^}]*)\}`)

	slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	identifier  = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
)

// Aliases under "@/" that belong to the sandbox shell rather than the registry.
var shellAliases = map[string]bool{
	"lib":   true,
	"hooks": true,
	"utils": true,
}

// Unscoped npm packages commonly imported through a subpath ("next/link").
// A two-segment bare import rooted at one of these is never a registry reference.
var subpathPackages = map[string]bool{
	"react":          true,
	"react-dom":      true,
	"next":           true,
	"lodash":         true,
	"lodash-es":      true,
	"date-fns":       true,
	"framer-motion":  true,
	"motion":         true,
	"three":          true,
	"react-icons":    true,
	"swiper":         true,
	"prismjs":        true,
	"katex":          true,
	"highlight.js":   true,
	"rxjs":           true,
	"dayjs":          true,
	"d3":             true,
	"zod":            true,
	"swr":            true,
	"recharts":       true,
	"lucide-react":   true,
	"tailwindcss":    true,
	"embla-carousel": true,
	"cmdk":           true,
	"sonner":         true,
	"vaul":           true,
}

// # Options

// Options describes the component being parsed.
type Options struct {
	// Username and ComponentSlug identify the owner; references back to the
	// component itself are dropped.
	Username      string
	ComponentSlug string

	// Registry used for bare "username/slug" imports.
	DefaultRegistry string

	// Confirmed references already chosen by the author. Ambiguous imports
	// they satisfy are not reported as unconfirmed.
	Confirmed     []Reference
	DemoConfirmed []Reference
}

// Result is the metadata extracted from one component and its demo.
type Result struct {
	ComponentNames      []string          `json:"component_names"`
	DemoComponentNames  []string          `json:"demo_component_names"`
	NPMDependencies     map[string]string `json:"npm_dependencies"`
	DemoNPMDependencies map[string]string `json:"demo_npm_dependencies"`

	RegistryDependencies     []Reference `json:"registry_dependencies"`
	DemoRegistryDependencies []Reference `json:"demo_registry_dependencies"`

	// Ambiguous references found in either source, tagged by origin.
	AmbiguousDependencies []Reference `json:"ambiguous_dependencies"`

	// The subset of AmbiguousDependencies not covered by a confirmed reference.
	Unconfirmed []Reference `json:"unconfirmed"`
}

/*
Parse extracts all metadata from a component and its demo.

Parameters:
  - code: string (component source)
  - demoCode: string (demo source, may be empty)
  - options: Options

Returns:
  - Result: Never nil collections
*/
func Parse(code, demoCode string, options Options) Result {
	componentImports := Imports(code, options)
	demoImports := Imports(demoCode, options)

	ambiguous := append(tagOrigin(componentImports.Ambiguous, OriginComponent), tagOrigin(demoImports.Ambiguous, OriginDemo)...)
	sortReferences(ambiguous)

	return Result{
		ComponentNames:           ComponentNames(code),
		DemoComponentNames:       DemoComponentNames(demoCode),
		NPMDependencies:          componentImports.NPM,
		DemoNPMDependencies:      demoImports.NPM,
		RegistryDependencies:     tagOrigin(componentImports.Direct, OriginComponent),
		DemoRegistryDependencies: tagOrigin(demoImports.Direct, OriginDemo),
		AmbiguousDependencies:    ambiguous,
		Unconfirmed:              Unconfirmed(ambiguous, options.Confirmed, options.DemoConfirmed),
	}
}

// # Exports

// ComponentNames lists the identifiers a component exports, in order of
// appearance. A named default export counts.
func ComponentNames(source string) []string {
	return exportedNames(source, false)
}

// DemoComponentNames is [ComponentNames] plus the names collected in an
// exported default object ("export default { A, B }").
func DemoComponentNames(source string) []string {
	return exportedNames(source, true)
}

type position struct {
	offset int
	name   string
}

func exportedNames(source string, withDefaultObject bool) []string {
	source = stripComments(source)
	var found []position

	for _, pattern := range []*regexp.Regexp{exportDeclaration, exportDefaultName} {
		for _, match := range pattern.FindAllStringSubmatchIndex(source, -1) {
			found = append(found, position{offset: match[2], name: source[match[2]:match[3]]})
		}
	}

	lists := []*regexp.Regexp{exportList}
	if withDefaultObject {
		lists = append(lists, exportDefaultList)
	}
	for _, pattern := range lists {
		for _, match := range pattern.FindAllStringSubmatchIndex(source, -1) {
			for i, name := range listNames(source[match[2]:match[3]]) {
				found = append(found, position{offset: match[2] + i, name: name})
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].offset < found[j].offset })

	seen := map[string]bool{}
	names := make([]string, 0, len(found))
	for _, entry := range found {
		if seen[entry.name] {
			continue
		}
		seen[entry.name] = true
		names = append(names, entry.name)
	}
	return names
}

// listNames reads "A, B as C, type D" and returns the exported names.
func listNames(list string) []string {
	var names []string
	for _, entry := range strings.Split(list, ",") {
		fields := strings.Fields(entry)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "type" && len(fields) > 1 {
			fields = fields[1:]
		}

		// Object values ("A: B") export the key.
		name := strings.TrimSuffix(fields[0], ":")
		if len(fields) == 3 && fields[1] == "as" {
			name = fields[2]
		}
		if name == "default" || !identifier.MatchString(name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// # Imports

// ImportSet is the classification of one source file's import specifiers.
type ImportSet struct {
	NPM       map[string]string
	Direct    []Reference
	Ambiguous []Reference
}

/*
Imports classifies every static import of a source file.

Description: Relative paths and shell aliases are skipped. "@/components/<registry>/<slug>"
is ambiguous, "@/components/<registry>/<username>/<slug>" and bare "<username>/<slug>"
are direct registry references, anything else is an npm package.

Parameters:
  - source: string
  - options: Options

Returns:
  - ImportSet: De-duplicated, sorted references and an npm manifest
*/
func Imports(source string, options Options) ImportSet {
	set := ImportSet{NPM: map[string]string{}, Direct: []Reference{}, Ambiguous: []Reference{}}

	defaultRegistry := options.DefaultRegistry
	if defaultRegistry == "" {
		defaultRegistry = constants.DefaultRegistry
	}

	seen := map[string]bool{}
	add := func(list *[]Reference, reference Reference) {
		if isSelf(reference, options) || seen[reference.Key()] {
			return
		}
		seen[reference.Key()] = true
		*list = append(*list, reference)
	}

	for _, match := range importSpecifier.FindAllStringSubmatch(stripComments(source), -1) {
		specifier := strings.TrimSpace(match[1])

		switch {
		case specifier == "" || strings.HasPrefix(specifier, ".") || strings.Contains(specifier, "://"):
			continue

		case strings.HasPrefix(specifier, "@/"):
			reference, direct, ok := aliasReference(strings.TrimPrefix(specifier, "@/"))
			if !ok {
				continue
			}
			if direct {
				add(&set.Direct, reference)
			} else {
				add(&set.Ambiguous, reference)
			}

		default:
			if reference, ok := bareReference(specifier, defaultRegistry); ok {
				add(&set.Direct, reference)
				continue
			}
			if name, version, ok := npmPackage(specifier); ok {
				if _, exists := set.NPM[name]; !exists || set.NPM[name] == LatestVersion {
					set.NPM[name] = version
				}
			}
		}
	}

	sortReferences(set.Direct)
	sortReferences(set.Ambiguous)
	return set
}

// NPMDependencies returns the npm manifest implied by a source file's imports.
func NPMDependencies(source string) map[string]string {
	return Imports(source, Options{}).NPM
}

// RegistryDependencies returns the direct registry references of a source file.
func RegistryDependencies(source string, options Options) []Reference {
	return Imports(source, options).Direct
}

// AmbiguousDependencies returns the registry references that lack an owner.
func AmbiguousDependencies(source string, options Options) []Reference {
	return Imports(source, options).Ambiguous
}

// aliasReference reads the part of an "@/..." import after the alias prefix.
// "components/<registry>/<slug>" is ambiguous; "components/<registry>/<username>/<slug>"
// is direct and lands at sandbox.OwnerPath once resolved.
func aliasReference(path string) (Reference, bool, bool) {
	segments := strings.Split(path, "/")
	if len(segments) == 0 || shellAliases[segments[0]] || segments[0] != "components" {
		return Reference{}, false, false
	}
	segments = segments[1:]
	for _, segment := range segments {
		if !isSlug(segment) {
			return Reference{}, false, false
		}
	}

	switch len(segments) {
	case 2:
		return Reference{Registry: segments[0], Slug: segments[1]}, false, true
	case 3:
		return Reference{Registry: segments[0], Username: segments[1], Slug: segments[2]}, true, true
	default:
		return Reference{}, false, false
	}
}

// bareReference matches "<username>/<slug>" imports that cannot be npm packages.
func bareReference(specifier, registry string) (Reference, bool) {
	segments := strings.Split(specifier, "/")
	if len(segments) != 2 || strings.HasPrefix(specifier, "@") {
		return Reference{}, false
	}
	if !isSlug(segments[0]) || !isSlug(segments[1]) || subpathPackages[segments[0]] {
		return Reference{}, false
	}
	return Reference{Username: segments[0], Registry: registry, Slug: segments[1]}, true
}

// npmPackage extracts the package name and version hint from an import
// specifier: "@scope/name/sub" gives "@scope/name", "name/sub" gives "name".
// A valid semver range suffix ("name@^2.0.0") becomes the version.
func npmPackage(specifier string) (string, string, bool) {
	segments := strings.Split(specifier, "/")
	count := 1
	if strings.HasPrefix(specifier, "@") {
		count = 2
	}
	if len(segments) < count {
		return "", "", false
	}

	last := segments[count-1]
	version := LatestVersion
	if at := strings.LastIndex(last, "@"); at > 0 {
		if hint := last[at+1:]; validRange(hint) {
			version = hint
		}
		last = last[:at]
	}
	if last == "" || (count == 2 && segments[0] == "@") {
		return "", "", false
	}

	segments[count-1] = last
	return strings.Join(segments[:count], "/"), version, true
}

func validRange(hint string) bool {
	if hint == "" || hint == LatestVersion {
		return false
	}
	_, err := semver.NewConstraint(hint)
	return err == nil
}

// # Confirmation

/*
Unconfirmed returns the ambiguous references not covered by a confirmed one.

Description: A confirmed reference covers an ambiguous one when the slugs match
and its registry is unset or equal. Component confirmations cover component
references, demo confirmations cover demo references.
*/
func Unconfirmed(ambiguous, confirmed, demoConfirmed []Reference) []Reference {
	pending := []Reference{}
	for _, reference := range ambiguous {
		candidates := confirmed
		if reference.Origin == OriginDemo {
			candidates = demoConfirmed
		}
		if !covered(reference, candidates) {
			pending = append(pending, reference)
		}
	}
	return pending
}

func covered(reference Reference, confirmed []Reference) bool {
	for _, candidate := range confirmed {
		if candidate.Slug != reference.Slug {
			continue
		}
		if candidate.Registry == "" || candidate.Registry == reference.Registry {
			return true
		}
	}
	return false
}

// # Helpers

func isSelf(reference Reference, options Options) bool {
	if options.ComponentSlug == "" || reference.Slug != options.ComponentSlug {
		return false
	}
	return reference.Username == "" || options.Username == "" || reference.Username == options.Username
}

func isSlug(segment string) bool {
	return slugPattern.MatchString(segment)
}

func stripComments(source string) string {
	return lineComment.ReplaceAllString(blockComment.ReplaceAllString(source, ""), "")
}

func tagOrigin(references []Reference, origin Origin) []Reference {
	tagged := make([]Reference, 0, len(references))
	for _, reference := range references {
		reference.Origin = origin
		tagged = append(tagged, reference)
	}
	return tagged
}

func sortReferences(references []Reference) {
	sort.SliceStable(references, func(i, j int) bool {
		if references[i].Key() != references[j].Key() {
			return references[i].Key() < references[j].Key()
		}
		return references[i].Origin < references[j].Origin
	})
}
