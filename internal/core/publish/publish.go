// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package publish turns an editor submission into a published component.

A submission is validated in full before anything is written. The component
sources are then uploaded and the component row inserted; demos follow one at
a time, each finishing its insert, uploads, asset update and tags before the
next one starts. A failure stops the sequence and reports the step and the
rows already written. Nothing is rolled back.
*/
package publish

import (
	"fmt"
	"strings"

	"github.com/ehtisham-afzal/21st/internal/core/component"
	"github.com/ehtisham-afzal/21st/internal/platform/apperr"
	"github.com/ehtisham-afzal/21st/internal/platform/constants"
	"github.com/ehtisham-afzal/21st/internal/platform/storage"
	"github.com/ehtisham-afzal/21st/internal/platform/validate"
	"github.com/ehtisham-afzal/21st/internal/preview/parser"
	"github.com/ehtisham-afzal/21st/pkg/slug"
)

// # Submission

// Field names used in validation details.
const (
	FieldName              = "name"
	FieldComponentSlug     = "component_slug"
	FieldRegistry          = "registry"
	FieldLicense           = "license"
	FieldDescription       = "description"
	FieldWebsiteURL        = "website_url"
	FieldCode              = "code"
	FieldDemos             = "demos"
	FieldRegistryDeps      = "direct_registry_dependencies"
	FieldPublishAsUsername = "publish_as_username"
)

// Licenses accepted on publish.
var Licenses = []string{"mit", "apache-2.0", "bsd-3-clause", "gpl-3.0", "mpl-2.0", "unlicense"}

// Media is a binary asset sent inline, as base64 or a data URL.
type Media struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

// TagInput names a tag. An empty slug is derived from the name.
type TagInput struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// DemoInput is one demo of a submission.
type DemoInput struct {
	Name     string `json:"name"`
	DemoCode string `json:"demo_code"`

	// Confirmed owners of the demo's ambiguous imports, as "username/slug"
	// or "username/registry/slug".
	DemoDirectRegistryDependencies []string `json:"demo_direct_registry_dependencies"`

	PreviewImage *Media     `json:"preview_image,omitempty"`
	Video        *Media     `json:"video,omitempty"`
	CompiledCSS  *string    `json:"compiled_css,omitempty"`
	Tags         []TagInput `json:"tags"`
}

// Input is a full publish submission.
type Input struct {
	Name          string  `json:"name"`
	ComponentSlug string  `json:"component_slug"`
	Registry      string  `json:"registry"`
	Description   *string `json:"description"`
	License       string  `json:"license"`
	WebsiteURL    *string `json:"website_url"`
	IsPublic      *bool   `json:"is_public"`

	Code           string `json:"code"`
	TailwindConfig string `json:"tailwind_config,omitempty"`
	GlobalCSS      string `json:"global_css,omitempty"`

	// Confirmed owners of the component's ambiguous imports.
	DirectRegistryDependencies []string `json:"direct_registry_dependencies"`

	Demos []DemoInput `json:"demos"`

	// Admins may publish under another account.
	PublishAsUsername string `json:"publish_as_username,omitempty"`
}

// Result lists what a successful publish wrote.
type Result struct {
	Component *component.Component `json:"component"`
	Demos     []*component.Demo    `json:"demos"`
}

// # Steps & Errors

// Step names one stage of the publish sequence.
type Step string

const (
	StepValidate        Step = "validate"
	StepUploadComponent Step = "upload_component"
	StepInsertComponent Step = "insert_component"
	StepInsertDemo      Step = "insert_demo"
	StepUploadDemo      Step = "upload_demo"
	StepUpdateDemo      Step = "update_demo"
	StepAttachTags      Step = "attach_tags"
)

/*
Error reports where a publish stopped.

ComponentID and DemoIDs list the rows inserted before the failure; they stay
in the database. DemoIndex is -1 for component steps.
*/
type Error struct {
	Step        Step
	DemoIndex   int
	ComponentID string
	DemoIDs     []string
	Cause       error
}

func (e *Error) Error() string {
	if e.DemoIndex >= 0 {
		return fmt.Sprintf("publish: %s of demo %d failed: %v", e.Step, e.DemoIndex+1, e.Cause)
	}
	return fmt.Sprintf("publish: %s failed: %v", e.Step, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// # Validation

// plan is a validated submission with everything derived from the sources.
type plan struct {
	input  Input
	parsed []parser.Result
	slugs  []string
	tags   [][]component.Tag
	direct []string
	demo   [][]string
}

/*
Validate checks the whole submission without touching the network.

Returns:
  - error: apperr.ValidationError listing every failed field, or
    apperr.Unprocessable when an ambiguous import has no confirmed owner
*/
func Validate(input Input) error {
	_, err := prepare(input, "")
	return err
}

func prepare(input Input, username string) (*plan, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Registry == "" {
		input.Registry = constants.DefaultRegistry
	}

	validator := new(validate.Validator).
		Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, 100).
		Required(FieldComponentSlug, input.ComponentSlug).
		Required(FieldLicense, input.License).
		Required(FieldCode, input.Code).
		NotEmpty(FieldDemos, len(input.Demos), "At least one demo is required")
	if input.ComponentSlug != "" {
		validator.Slug(FieldComponentSlug, input.ComponentSlug)
	}
	validator.Slug(FieldRegistry, input.Registry)
	if input.License != "" {
		validator.OneOf(FieldLicense, input.License, Licenses...)
	}
	if input.Description != nil {
		validator.MaxLen(FieldDescription, *input.Description, 2000)
	}
	if input.WebsiteURL != nil {
		validator.URL(FieldWebsiteURL, *input.WebsiteURL)
	}

	confirmed, err := parser.ParseReferences(input.DirectRegistryDependencies, parser.OriginComponent)
	validator.Custom(FieldRegistryDeps, err != nil, "Dependencies must look like username/slug")

	demoConfirmed := make([][]parser.Reference, len(input.Demos))
	for index, demo := range input.Demos {
		prefix := fmt.Sprintf("demos[%d].", index)
		validator.Required(prefix+"demo_code", demo.DemoCode)
		if index > 0 {
			validator.Required(prefix+"name", demo.Name)
		}

		refs, err := parser.ParseReferences(demo.DemoDirectRegistryDependencies, parser.OriginDemo)
		validator.Custom(prefix+"demo_direct_registry_dependencies", err != nil, "Dependencies must look like username/slug")
		demoConfirmed[index] = refs

		if demo.PreviewImage.present() {
			_, err := mediaFile("preview_image", "image/png", demo.PreviewImage).Bytes()
			validator.Custom(prefix+"preview_image", err != nil, "Must be base64 encoded")
		}
		if demo.Video.present() {
			_, err := mediaFile("video", "video/mp4", demo.Video).Bytes()
			validator.Custom(prefix+"video", err != nil, "Must be base64 encoded")
		}
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	result := &plan{input: input}
	used := map[string]bool{}
	var unconfirmed []parser.Reference

	for index, demo := range input.Demos {
		parsed := parser.Parse(input.Code, demo.DemoCode, parser.Options{
			Username:        username,
			ComponentSlug:   input.ComponentSlug,
			DefaultRegistry: input.Registry,
			Confirmed:       confirmed,
			DemoConfirmed:   demoConfirmed[index],
		})
		result.parsed = append(result.parsed, parsed)
		unconfirmed = append(unconfirmed, parsed.Unconfirmed...)

		demoSlug := demoSlugFor(index, demo.Name, used)
		used[demoSlug] = true
		result.slugs = append(result.slugs, demoSlug)
		result.tags = append(result.tags, tagsFor(demo.Tags))
		result.demo = append(result.demo, merge(parser.Strings(parsed.DemoRegistryDependencies), demo.DemoDirectRegistryDependencies))
	}
	result.direct = merge(parser.Strings(result.parsed[0].RegistryDependencies), input.DirectRegistryDependencies)

	if len(unconfirmed) > 0 {
		details := make([]apperr.FieldError, 0, len(unconfirmed))
		seen := map[string]bool{}
		for _, ref := range unconfirmed {
			field := FieldRegistryDeps
			if ref.Origin == parser.OriginDemo {
				field = "demo_direct_registry_dependencies"
			}
			if seen[field+ref.String()] {
				continue
			}
			seen[field+ref.String()] = true
			details = append(details, apperr.FieldError{Field: field, Message: "Confirm the owner of " + ref.String()})
		}
		return nil, apperr.Unprocessable("Ambiguous registry dependencies need confirmation", details...)
	}
	return result, nil
}

// demoSlugFor names a demo. The first demo is always the default one.
func demoSlugFor(index int, name string, used map[string]bool) string {
	if index == 0 {
		return constants.DefaultDemoSlug
	}

	base := slug.From(name)
	if base == "" || base == constants.DefaultDemoSlug {
		base = fmt.Sprintf("demo-%d", index+1)
	}
	candidate := base
	for suffix := 2; used[candidate]; suffix++ {
		candidate = fmt.Sprintf("%s-%d", base, suffix)
	}
	return candidate
}

func tagsFor(inputs []TagInput) []component.Tag {
	tags := make([]component.Tag, 0, len(inputs))
	seen := map[string]bool{}
	for _, input := range inputs {
		tagSlug := input.Slug
		if tagSlug == "" {
			tagSlug = slug.From(input.Name)
		}
		if tagSlug == "" || seen[tagSlug] {
			continue
		}
		seen[tagSlug] = true

		name := strings.TrimSpace(input.Name)
		if name == "" {
			name = tagSlug
		}
		tags = append(tags, component.Tag{Name: name, Slug: tagSlug})
	}
	return tags
}

// merge concatenates identifier lists, keeping the first occurrence.
func merge(lists ...[]string) []string {
	merged := []string{}
	seen := map[string]bool{}
	for _, list := range lists {
		for _, identifier := range list {
			identifier = strings.TrimSpace(identifier)
			if identifier == "" || seen[identifier] {
				continue
			}
			seen[identifier] = true
			merged = append(merged, identifier)
		}
	}
	return merged
}

func (media *Media) present() bool {
	return media != nil && media.Data != ""
}

func mediaFile(name, fallbackType string, media *Media) storage.File {
	contentType := media.ContentType
	if contentType == "" {
		contentType = fallbackType
	}
	return storage.File{Name: name, ContentType: contentType, Base64: media.Data}
}
