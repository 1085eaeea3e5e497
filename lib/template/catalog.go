// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Built-in templates.
var (
	ReleaseTemplate = MustNew(Spec{Name: "release", RepositoryMode: Release})

	ReleaseSCATemplate = MustNew(Spec{
		Name:               "release-sca",
		RepositoryMode:     Release,
		ChecksumAlgorithms: StrongChecksumAlgorithms,
	})

	ReleaseRedeployTemplate = MustNew(Spec{
		Name:           "release-redeploy",
		RepositoryMode: Release,
		AllowRedeploy:  true,
	})

	ReleaseRedeploySCATemplate = MustNew(Spec{
		Name:               "release-redeploy-sca",
		RepositoryMode:     Release,
		AllowRedeploy:      true,
		ChecksumAlgorithms: StrongChecksumAlgorithms,
	})

	SnapshotTemplate = MustNew(Spec{Name: "snapshot", RepositoryMode: Snapshot})

	SnapshotSCATemplate = MustNew(Spec{
		Name:               "snapshot-sca",
		RepositoryMode:     Snapshot,
		ChecksumAlgorithms: StrongChecksumAlgorithms,
	})
)

// Builtins returns the six shipped templates.
func Builtins() []Template {
	return []Template{
		ReleaseTemplate,
		ReleaseSCATemplate,
		ReleaseRedeployTemplate,
		ReleaseRedeploySCATemplate,
		SnapshotTemplate,
		SnapshotSCATemplate,
	}
}

// Catalog is a name-keyed set of templates. It is safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewCatalog returns a catalog holding templates. Duplicate names fail.
func NewCatalog(templates ...Template) (*Catalog, error) {
	catalog := &Catalog{templates: make(map[string]Template, len(templates))}
	for _, t := range templates {
		if err := catalog.Add(t); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

// DefaultCatalog returns a catalog holding the built-in templates.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(Builtins()...)
	if err != nil {
		panic("template: built-in catalog: " + err.Error())
	}
	return catalog
}

// Add registers t. A template with the same name must not exist.
func (c *Catalog) Add(t Template) error {
	if t.name == "" {
		return fmt.Errorf("%w: zero-value template", ErrInvalidTemplate)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.templates[t.name]; exists {
		return fmt.Errorf("%w: duplicate template name %q", ErrInvalidTemplate, t.name)
	}
	c.templates[t.name] = t
	return nil
}

// Lookup returns the template registered under name.
func (c *Catalog) Lookup(name string) (Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[name]
	return t, ok
}

// Get is Lookup that reports a missing template as ErrUnknownTemplate.
func (c *Catalog) Get(name string) (Template, error) {
	t, ok := c.Lookup(name)
	if !ok {
		return Template{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownTemplate, name, strings.Join(c.Names(), ", "))
	}
	return t, nil
}

// Names returns all template names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.templates))
	for name := range c.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Templates returns all templates sorted by name.
func (c *Catalog) Templates() []Template {
	names := c.Names()
	templates := make([]Template, 0, len(names))
	for _, name := range names {
		t, _ := c.Lookup(name)
		templates = append(templates, t)
	}
	return templates
}
