// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package checksum is the name-keyed registry of checksum algorithms a
// staging store can be configured with.
//
// Algorithm names are the ones persisted in a store's
// checksumAlgorithmFactories property ("SHA-1", "SHA-512", ...).
// Lookup is case-insensitive. Each algorithm also has the file
// extension its sidecar files carry ("sha1", "sha512", ...).
//
// The registry is built once from typed constructors and returns
// found/not-found rather than failing at lookup time; unknown names in a
// configuration surface as [ErrUnknownAlgorithm] from [Registry.Resolve].
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

// ErrUnknownAlgorithm is returned when a configured name has no
// registered algorithm.
var ErrUnknownAlgorithm = errors.New("checksum: unknown algorithm")

// Algorithm is one checksum algorithm.
type Algorithm struct {
	// Name is the persisted identifier, e.g. "SHA-256".
	Name string

	// Extension is the sidecar file suffix without the dot, e.g. "sha256".
	Extension string

	// New returns a fresh hasher.
	New func() hash.Hash
}

// Built-in algorithms.
var (
	SHA512 = Algorithm{Name: "SHA-512", Extension: "sha512", New: sha512.New}
	SHA256 = Algorithm{Name: "SHA-256", Extension: "sha256", New: sha256.New}
	SHA1   = Algorithm{Name: "SHA-1", Extension: "sha1", New: sha1.New}
	MD5    = Algorithm{Name: "MD5", Extension: "md5", New: md5.New}
	SHA3   = Algorithm{Name: "SHA3-256", Extension: "sha3-256", New: sha3.New256}
	BLAKE3 = Algorithm{Name: "BLAKE3", Extension: "blake3", New: func() hash.Hash { return blake3.New() }}
)

// Registry maps algorithm names to implementations.
type Registry struct {
	byName map[string]Algorithm
	names  []string
}

// NewRegistry builds a registry from algorithms. A later algorithm with
// the same (case-insensitive) name replaces an earlier one.
func NewRegistry(algorithms ...Algorithm) *Registry {
	registry := &Registry{byName: make(map[string]Algorithm, len(algorithms))}
	for _, algorithm := range algorithms {
		key := strings.ToUpper(algorithm.Name)
		if _, exists := registry.byName[key]; !exists {
			registry.names = append(registry.names, algorithm.Name)
		}
		registry.byName[key] = algorithm
	}
	return registry
}

// Default returns a registry holding every built-in algorithm.
func Default() *Registry {
	return NewRegistry(SHA512, SHA256, SHA1, MD5, SHA3, BLAKE3)
}

// Lookup returns the algorithm registered under name.
func (r *Registry) Lookup(name string) (Algorithm, bool) {
	algorithm, ok := r.byName[strings.ToUpper(strings.TrimSpace(name))]
	return algorithm, ok
}

// Resolve maps names to algorithms in order, failing on the first
// unknown name.
func (r *Registry) Resolve(names []string) ([]Algorithm, error) {
	algorithms := make([]Algorithm, 0, len(names))
	for _, name := range names {
		algorithm, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownAlgorithm, name, strings.Join(r.names, ", "))
		}
		algorithms = append(algorithms, algorithm)
	}
	return algorithms, nil
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// IsSidecar reports whether path ends in the extension of any
// registered algorithm, i.e. whether it is itself a checksum file.
func (r *Registry) IsSidecar(path string) bool {
	for _, algorithm := range r.byName {
		if strings.HasSuffix(path, "."+algorithm.Extension) {
			return true
		}
	}
	return false
}

// Names maps algorithms back to their persisted names.
func Names(algorithms []Algorithm) []string {
	names := make([]string, len(algorithms))
	for i, algorithm := range algorithms {
		names[i] = algorithm.Name
	}
	return names
}

// Compute reads r once and returns the lowercase hex digest for every
// algorithm, keyed by algorithm name.
func Compute(r io.Reader, algorithms []Algorithm) (map[string]string, error) {
	hashers := make([]hash.Hash, len(algorithms))
	writers := make([]io.Writer, len(algorithms))
	for i, algorithm := range algorithms {
		hashers[i] = algorithm.New()
		writers[i] = hashers[i]
	}
	if _, err := io.Copy(io.MultiWriter(writers...), r); err != nil {
		return nil, fmt.Errorf("computing checksums: %w", err)
	}
	digests := make(map[string]string, len(algorithms))
	for i, algorithm := range algorithms {
		digests[algorithm.Name] = hex.EncodeToString(hashers[i].Sum(nil))
	}
	return digests, nil
}

// ComputeFile is Compute over the content of path.
func ComputeFile(path string, algorithms []Algorithm) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Compute(file, algorithms)
}

// ParseSidecar extracts the digest from sidecar file content. Sidecars
// written by other tools sometimes carry "<digest>  <filename>"; only
// the first field is significant.
func ParseSidecar(content []byte) string {
	fields := strings.Fields(string(content))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
