// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bureau-foundation/staging/lib/coord"
	"github.com/bureau-foundation/staging/lib/stagestore"
)

// ErrUnknownValidator is returned by Registry.Select for a name that
// was never registered.
var ErrUnknownValidator = errors.New("validate: unknown validator")

// ErrDuplicateValidator is returned when two validators share a name.
var ErrDuplicateValidator = errors.New("validate: duplicate validator")

// Validator inspects a whole store.
type Validator interface {
	// Name is the stable identifier used for selection and as the
	// result node name, e.g. "checksum".
	Name() string

	// Description is a one-line human summary.
	Description() string

	// Validate records findings in collector. A returned error means
	// the store could not be read, not that it failed validation.
	Validate(ctx context.Context, store *stagestore.Store, collector *Collector) error
}

// ArtifactValidator inspects one artifact at a time. Wrap it with
// PerArtifact to get a Validator.
type ArtifactValidator interface {
	Name() string
	Description() string

	// Applies reports whether the artifact is in scope. Artifacts out
	// of scope get no result node.
	Applies(store *stagestore.Store, artifact coord.Artifact) bool

	ValidateArtifact(ctx context.Context, store *stagestore.Store, artifact coord.Artifact, collector *Collector) error
}

// PerArtifact adapts v to run once per committed artifact, with one
// child node per artifact coordinate.
func PerArtifact(v ArtifactValidator) Validator {
	return perArtifact{v}
}

type perArtifact struct {
	ArtifactValidator
}

func (p perArtifact) Validate(ctx context.Context, store *stagestore.Store, collector *Collector) error {
	artifacts, err := store.Artifacts()
	if err != nil {
		return err
	}
	for _, artifact := range artifacts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !p.Applies(store, artifact) {
			continue
		}
		if err := p.ValidateArtifact(ctx, store, artifact, collector.Child(artifact.String())); err != nil {
			return fmt.Errorf("%s: %w", artifact, err)
		}
	}
	return nil
}

// Composite runs validators in order against one store.
type Composite struct {
	Validators []Validator
}

// Validate returns a tree rooted at the store name with one child per
// validator. The first read error aborts the run.
func (c Composite) Validate(ctx context.Context, store *stagestore.Store) (*Result, error) {
	collector := NewCollector(store.Name())
	for _, validator := range c.Validators {
		if err := validator.Validate(ctx, store, collector.Child(validator.Name())); err != nil {
			return collector.Result(), fmt.Errorf("validator %s: %w", validator.Name(), err)
		}
	}
	return collector.Result(), nil
}

// Registry holds validators by name.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]Validator
	order      []string
}

// NewRegistry returns a registry holding validators, in order.
func NewRegistry(validators ...Validator) (*Registry, error) {
	registry := &Registry{validators: make(map[string]Validator)}
	for _, validator := range validators {
		if err := registry.Register(validator); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds v. Names must be unique.
func (r *Registry) Register(v Validator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.validators[v.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateValidator, v.Name())
	}
	r.validators[v.Name()] = v
	r.order = append(r.order, v.Name())
	return nil
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Validators returns every registered validator in registration order.
func (r *Registry) Validators() []Validator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Validator, len(r.order))
	for i, name := range r.order {
		result[i] = r.validators[name]
	}
	return result
}

// Select returns the named validators in registration order. An empty
// names list selects everything.
func (r *Registry) Select(names []string) ([]Validator, error) {
	if len(names) == 0 {
		return r.Validators(), nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	wanted := make(map[string]bool, len(names))
	var unknown []string
	for _, name := range names {
		if _, ok := r.validators[name]; !ok {
			unknown = append(unknown, name)
		}
		wanted[name] = true
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %v (known: %v)", ErrUnknownValidator, unknown, r.order)
	}
	var result []Validator
	for _, name := range r.order {
		if wanted[name] {
			result = append(result, r.validators[name])
		}
	}
	return result, nil
}
