// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrMismatch is returned when a signature does not verify.
	ErrMismatch = errors.New("signature: signature does not match content")

	// ErrDuplicateType is returned when two types claim one extension.
	ErrDuplicateType = errors.New("signature: duplicate signature type")
)

// Type verifies one detached signature format.
type Type interface {
	// Name is a human-readable name used in validation messages.
	Name() string

	// Extension is the sibling file suffix without the dot.
	Extension() string

	// Verify checks signature over content. It returns a description
	// of the signer on success and an error wrapping ErrMismatch when
	// the signature is well-formed but does not verify.
	Verify(content, signature io.Reader) (string, error)
}

// Registry maps extensions to signature types. It is safe for
// concurrent use.
type Registry struct {
	mu          sync.RWMutex
	byExtension map[string]Type
	ordered     []string
}

// NewRegistry returns a registry holding types.
func NewRegistry(types ...Type) (*Registry, error) {
	registry := &Registry{byExtension: make(map[string]Type)}
	for _, signatureType := range types {
		if err := registry.Register(signatureType); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds signatureType. Its extension must be unused.
func (r *Registry) Register(signatureType Type) error {
	extension := strings.ToLower(strings.TrimPrefix(signatureType.Extension(), "."))
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byExtension[extension]; exists {
		return fmt.Errorf("%w: extension %q", ErrDuplicateType, extension)
	}
	r.byExtension[extension] = signatureType
	r.ordered = append(r.ordered, extension)
	return nil
}

// Lookup returns the type registered for extension.
func (r *Registry) Lookup(extension string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	signatureType, ok := r.byExtension[strings.ToLower(strings.TrimPrefix(extension, "."))]
	return signatureType, ok
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]Type, 0, len(r.ordered))
	for _, extension := range r.ordered {
		types = append(types, r.byExtension[extension])
	}
	return types
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	extensions := slices.Clone(r.ordered)
	slices.Sort(extensions)
	return extensions
}

// IsSignature reports whether path ends in a registered extension.
func (r *Registry) IsSignature(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for extension := range r.byExtension {
		if strings.HasSuffix(path, "."+extension) {
			return true
		}
	}
	return false
}
