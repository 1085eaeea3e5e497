// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pom

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/bureau-foundation/staging/lib/coord"
)

var (
	// ErrNotFound is returned when no repository holds a POM.
	ErrNotFound = errors.New("pom: not found in any repository")

	// ErrParentCycle is returned when a parent chain loops or exceeds
	// the depth limit.
	ErrParentCycle = errors.New("pom: parent chain loops or is too deep")
)

// ModelProvider builds the effective model of a POM artifact.
type ModelProvider interface {
	EffectiveModel(ctx context.Context, pom coord.Artifact, repositories []Repository) (*Model, error)
}

// DefaultMaxDepth bounds parent chains in InheritingProvider.
const DefaultMaxDepth = 32

// InheritingProvider resolves parents through the supplied
// repositories, in order, and merges each child over its parent.
type InheritingProvider struct {
	// MaxDepth bounds the parent chain. Zero means DefaultMaxDepth.
	MaxDepth int
}

// EffectiveModel implements ModelProvider.
func (p InheritingProvider) EffectiveModel(ctx context.Context, pom coord.Artifact, repositories []Repository) (*Model, error) {
	maxDepth := p.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	model, err := p.resolve(ctx, pom, repositories, map[string]bool{}, maxDepth)
	if err != nil {
		return nil, err
	}
	interpolate(model)
	return model, nil
}

func (p InheritingProvider) resolve(ctx context.Context, pom coord.Artifact, repositories []Repository, seen map[string]bool, remaining int) (*Model, error) {
	key := pom.String()
	if seen[key] || remaining == 0 {
		return nil, fmt.Errorf("%w: at %s", ErrParentCycle, key)
	}
	seen[key] = true

	model, err := load(ctx, pom, repositories)
	if err != nil {
		return nil, err
	}
	if model.Parent == nil || model.Parent.ArtifactID == "" {
		return model, nil
	}
	parentCoordinate := coord.Artifact{
		GroupID:    model.Parent.GroupID,
		ArtifactID: model.Parent.ArtifactID,
		Version:    model.Parent.Version,
		Extension:  "pom",
	}
	if err := parentCoordinate.Validate(); err != nil {
		return nil, fmt.Errorf("parent of %s: %w", key, err)
	}
	parent, err := p.resolve(ctx, parentCoordinate, repositories, seen, remaining-1)
	if err != nil {
		return nil, fmt.Errorf("parent of %s: %w", key, err)
	}
	inherit(model, parent)
	return model, nil
}

func load(ctx context.Context, pom coord.Artifact, repositories []Repository) (*Model, error) {
	for _, repository := range repositories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := repository.Open(ctx, pom)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", repository, err)
		}
		model, err := Parse(content)
		content.Close()
		if err != nil {
			return nil, fmt.Errorf("%s from %s: %w", pom, repository, err)
		}
		return model, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, pom)
}

// inherit fills child fields Maven inherits from parent. URLs are
// extended with the child's artifactId, as Maven does.
func inherit(child, parent *Model) {
	if child.GroupID == "" {
		child.GroupID = firstNonEmpty(child.Parent.GroupID, parent.GroupID)
	}
	if child.Version == "" {
		child.Version = firstNonEmpty(child.Parent.Version, parent.Version)
	}
	if child.Description == "" {
		child.Description = parent.Description
	}
	if child.URL == "" && parent.URL != "" {
		child.URL = appendPath(parent.URL, child.ArtifactID)
	}
	if len(child.Licenses) == 0 {
		child.Licenses = parent.Licenses
	}
	if len(child.Developers) == 0 {
		child.Developers = parent.Developers
	}
	if child.SCM == nil && parent.SCM != nil {
		scm := *parent.SCM
		scm.Connection = appendPath(scm.Connection, child.ArtifactID)
		scm.DeveloperConnection = appendPath(scm.DeveloperConnection, child.ArtifactID)
		scm.URL = appendPath(scm.URL, child.ArtifactID)
		child.SCM = &scm
	}
	merged := Properties{}
	for key, value := range parent.Properties {
		merged[key] = value
	}
	for key, value := range child.Properties {
		merged[key] = value
	}
	child.Properties = merged
}

func appendPath(base, segment string) string {
	if base == "" || segment == "" {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + segment
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

var reference = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolate replaces ${...} references in the checked fields.
// Unresolvable references are left as written.
func interpolate(model *Model) {
	values := map[string]string{
		"project.groupId":    model.GroupID,
		"project.artifactId": model.ArtifactID,
		"project.version":    model.Version,
		"project.name":       model.Name,
		"project.url":        model.URL,
	}
	if model.Parent != nil {
		values["project.parent.groupId"] = model.Parent.GroupID
		values["project.parent.artifactId"] = model.Parent.ArtifactID
		values["project.parent.version"] = model.Parent.Version
	}
	for key, value := range model.Properties {
		values[key] = value
	}
	for key, value := range values {
		if rest, ok := strings.CutPrefix(key, "project."); ok {
			values["pom."+rest] = value
		}
	}

	expand := func(text string) string {
		for range 8 {
			expanded := reference.ReplaceAllStringFunc(text, func(match string) string {
				if value, ok := values[match[2:len(match)-1]]; ok {
					return value
				}
				return match
			})
			if expanded == text {
				break
			}
			text = expanded
		}
		return text
	}

	for _, field := range []*string{&model.GroupID, &model.ArtifactID, &model.Version, &model.Name, &model.Description, &model.URL} {
		*field = expand(*field)
	}
	for i := range model.Licenses {
		model.Licenses[i].Name = expand(model.Licenses[i].Name)
		model.Licenses[i].URL = expand(model.Licenses[i].URL)
	}
	if model.SCM != nil {
		model.SCM.Connection = expand(model.SCM.Connection)
		model.SCM.DeveloperConnection = expand(model.SCM.DeveloperConnection)
		model.SCM.URL = expand(model.SCM.URL)
	}
}
