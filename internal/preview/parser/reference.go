// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package parser

import (
	"fmt"
	"strings"
)

// Origin records which source a dependency was found in.
type Origin string

const (
	OriginComponent Origin = "component"
	OriginDemo      Origin = "demo"
)

// Reference points at a published component in the internal registry.
//
// A reference without a Username is ambiguous: it names a registry and slug
// but not the owner, and must be confirmed before it can be resolved. An empty
// Registry means "whichever registry the owner published the slug in".
type Reference struct {
	Username string `json:"username,omitempty"`
	Registry string `json:"registry,omitempty"`
	Slug     string `json:"slug"`
	Origin   Origin `json:"origin,omitempty"`
}

// IsAmbiguous reports whether the owner is unknown.
func (r Reference) IsAmbiguous() bool {
	return r.Username == ""
}

// String renders the identifier form stored in dependency lists:
// "username/slug", or "username/registry/slug" when the registry is pinned.
// Ambiguous references render as "registry/slug".
func (r Reference) String() string {
	switch {
	case r.IsAmbiguous():
		return r.Registry + "/" + r.Slug
	case r.Registry == "":
		return r.Username + "/" + r.Slug
	default:
		return r.Username + "/" + r.Registry + "/" + r.Slug
	}
}

// Key is the canonical identity used for de-duplication and visited sets.
func (r Reference) Key() string {
	return r.Username + "/" + r.Registry + "/" + r.Slug
}

// ParseReference parses "username/slug" or "username/registry/slug".
func ParseReference(identifier string) (Reference, error) {
	parts := strings.Split(strings.TrimSpace(identifier), "/")
	for _, part := range parts {
		if !isSlug(part) {
			return Reference{}, fmt.Errorf("parser: malformed registry dependency %q", identifier)
		}
	}

	switch len(parts) {
	case 2:
		return Reference{Username: parts[0], Slug: parts[1]}, nil
	case 3:
		return Reference{Username: parts[0], Registry: parts[1], Slug: parts[2]}, nil
	default:
		return Reference{}, fmt.Errorf("parser: malformed registry dependency %q", identifier)
	}
}

// ParseReferences parses a stored dependency list, tagging every entry with origin.
func ParseReferences(identifiers []string, origin Origin) ([]Reference, error) {
	references := make([]Reference, 0, len(identifiers))
	for _, identifier := range identifiers {
		reference, err := ParseReference(identifier)
		if err != nil {
			return nil, err
		}
		reference.Origin = origin
		references = append(references, reference)
	}
	return references, nil
}

// Strings renders references in their stored identifier form.
func Strings(references []Reference) []string {
	identifiers := make([]string, 0, len(references))
	for _, reference := range references {
		identifiers = append(identifiers, reference.String())
	}
	return identifiers
}
