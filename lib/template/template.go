// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package template defines artifact store templates: named, immutable
// presets fixing a store's repository mode, redeploy policy, and
// checksum configuration.
//
// Six templates are built in ([Builtins]); deployments add their own
// through configuration. A [Catalog] holds the templates known to a
// process and is the only way names are resolved to templates.
package template

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnknownTemplate is returned when a template name is not in a catalog.
var ErrUnknownTemplate = errors.New("template: unknown template")

// ErrInvalidTemplate is returned for a template definition that cannot
// be used (bad name or prefix, unknown repository mode).
var ErrInvalidTemplate = errors.New("template: invalid template")

// namePattern is the filesystem-safe alphabet for template names,
// prefixes, and store names.
var namePattern = regexp.MustCompile(`^[a-z0-9._-]+$`)

// ValidName reports whether name may be used as a store name, template
// name, or prefix.
func ValidName(name string) bool {
	return namePattern.MatchString(name) && name != "." && name != ".."
}

// RepositoryMode is the release/snapshot nature of a store. Every
// artifact in a store must match it.
type RepositoryMode string

const (
	Release  RepositoryMode = "RELEASE"
	Snapshot RepositoryMode = "SNAPSHOT"
)

// ParseRepositoryMode accepts RELEASE or SNAPSHOT in any case.
func ParseRepositoryMode(text string) (RepositoryMode, error) {
	switch RepositoryMode(strings.ToUpper(strings.TrimSpace(text))) {
	case Release:
		return Release, nil
	case Snapshot:
		return Snapshot, nil
	default:
		return "", fmt.Errorf("%w: repository mode %q is neither RELEASE nor SNAPSHOT", ErrInvalidTemplate, text)
	}
}

// Accepts reports whether an artifact whose snapshot-ness is snapshot
// may be stored under this mode.
func (mode RepositoryMode) Accepts(snapshot bool) bool {
	return (mode == Snapshot) == snapshot
}

// DefaultOmitChecksumExtensions are suffixes of files that never get
// checksum sidecars: signatures and attestations.
var DefaultOmitChecksumExtensions = []string{".asc", ".sigstore", ".sigstore.json"}

// StrongChecksumAlgorithms is the algorithm set of the "-sca" templates.
var StrongChecksumAlgorithms = []string{"SHA-512", "SHA-256", "SHA-1", "MD5"}

// Spec is the definition a Template is built from.
type Spec struct {
	Name string

	// Prefix names stores created from the template. Empty means Name.
	Prefix string

	RepositoryMode RepositoryMode
	AllowRedeploy  bool

	// ChecksumAlgorithms overrides the fallback algorithm list when
	// non-nil.
	ChecksumAlgorithms []string

	// OmitChecksumExtensions overrides DefaultOmitChecksumExtensions
	// when non-nil.
	OmitChecksumExtensions []string
}

// Template is an immutable store preset. The zero value is not usable;
// build templates with New.
type Template struct {
	name                   string
	prefix                 string
	repositoryMode         RepositoryMode
	allowRedeploy          bool
	checksumAlgorithms     []string
	omitChecksumExtensions []string
}

// New validates spec and returns the template it describes.
func New(spec Spec) (Template, error) {
	if !ValidName(spec.Name) {
		return Template{}, fmt.Errorf("%w: name %q must match [a-z0-9._-]+", ErrInvalidTemplate, spec.Name)
	}
	prefix := spec.Prefix
	if prefix == "" {
		prefix = spec.Name
	}
	if !ValidName(prefix) {
		return Template{}, fmt.Errorf("%w: prefix %q must match [a-z0-9._-]+", ErrInvalidTemplate, prefix)
	}
	mode, err := ParseRepositoryMode(string(spec.RepositoryMode))
	if err != nil {
		return Template{}, err
	}
	return Template{
		name:                   spec.Name,
		prefix:                 prefix,
		repositoryMode:         mode,
		allowRedeploy:          spec.AllowRedeploy,
		checksumAlgorithms:     cloneOrNil(spec.ChecksumAlgorithms),
		omitChecksumExtensions: cloneOrNil(spec.OmitChecksumExtensions),
	}, nil
}

// MustNew is New for package-level built-ins; it panics on error.
func MustNew(spec Spec) Template {
	t, err := New(spec)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Template) Name() string                   { return t.name }
func (t Template) Prefix() string                 { return t.prefix }
func (t Template) RepositoryMode() RepositoryMode { return t.repositoryMode }
func (t Template) AllowRedeploy() bool            { return t.allowRedeploy }

// ChecksumAlgorithms returns the override list and whether one is set.
func (t Template) ChecksumAlgorithms() ([]string, bool) {
	return cloneOrNil(t.checksumAlgorithms), t.checksumAlgorithms != nil
}

// OmitChecksumExtensions returns the override list and whether one is set.
func (t Template) OmitChecksumExtensions() ([]string, bool) {
	return cloneOrNil(t.omitChecksumExtensions), t.omitChecksumExtensions != nil
}

// Spec returns the definition t was built from, with Prefix filled in.
func (t Template) Spec() Spec {
	return Spec{
		Name:                   t.name,
		Prefix:                 t.prefix,
		RepositoryMode:         t.repositoryMode,
		AllowRedeploy:          t.allowRedeploy,
		ChecksumAlgorithms:     cloneOrNil(t.checksumAlgorithms),
		OmitChecksumExtensions: cloneOrNil(t.omitChecksumExtensions),
	}
}

func (t Template) String() string {
	return fmt.Sprintf("%s(prefix=%s, mode=%s, redeploy=%t)", t.name, t.prefix, t.repositoryMode, t.allowRedeploy)
}

func cloneOrNil(values []string) []string {
	if values == nil {
		return nil
	}
	return append(make([]string, 0, len(values)), values...)
}
