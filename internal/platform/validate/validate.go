// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package validate collects field errors for publish, preview and catalogue
input and turns them into one VALIDATION_ERROR.

Services build a fresh [Validator] per call:

	err := new(validate.Validator).
		Required("name", input.Name).
		Slug("component_slug", input.ComponentSlug).
		Err()
*/
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/ehtisham-afzal/21st/internal/platform/apperr"
)

// slugPattern is lowercase alphanumerics separated by single hyphens.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ErrInvalidJSON is returned for bodies that do not decode.
var ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")

// Validator accumulates [apperr.FieldError] values. Not safe for concurrent use.
type Validator struct {
	failures []apperr.FieldError
}

func (v *Validator) fail(field, message string) *Validator {
	v.failures = append(v.failures, apperr.FieldError{Field: field, Message: message})
	return v
}

// Required rejects blank values.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) != "" {
		return v
	}
	return v.fail(field, "This field is required")
}

// MaxLen counts runes, not bytes.
func (v *Validator) MaxLen(field, value string, limit int) *Validator {
	if utf8.RuneCountInString(value) <= limit {
		return v
	}
	return v.fail(field, fmt.Sprintf("Maximum %d characters", limit))
}

// URL accepts an empty value or an absolute http(s) URL.
func (v *Validator) URL(field, value string) *Validator {
	if value == "" {
		return v
	}
	parsed, err := url.Parse(value)
	if err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != "" {
		return v
	}
	return v.fail(field, "Must be a valid http(s) URL")
}

// NotEmpty rejects a collection of the given length when it is zero.
func (v *Validator) NotEmpty(field string, length int, message string) *Validator {
	if length > 0 {
		return v
	}
	return v.fail(field, message)
}

// Slug accepts component, demo, tag and registry slugs.
func (v *Validator) Slug(field, value string) *Validator {
	if slugPattern.MatchString(value) {
		return v
	}
	return v.fail(field, "Must be a valid URL slug (lowercase letters, digits, hyphens only)")
}

// OneOf rejects values outside allowed.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	if slices.Contains(allowed, value) {
		return v
	}
	return v.fail(field, "Must be one of: "+strings.Join(allowed, ", "))
}

// Custom records message when failed is true:
//
//	v.Custom("demos[0].demo_code", demo.Code == "", "Demo code is required")
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if !failed {
		return v
	}
	return v.fail(field, message)
}

// HasErrors reports whether any rule failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.failures) > 0
}

// Err ends the chain: nil when every rule passed.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.failures...)
}

// RequiredError is a one-field VALIDATION_ERROR.
func RequiredError(field, message string) *apperr.AppError {
	return apperr.ValidationError("Validation failed", apperr.FieldError{Field: field, Message: message})
}
