// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"github.com/bureau-foundation/staging/lib/checksum"
	"github.com/bureau-foundation/staging/lib/coord"
	"github.com/bureau-foundation/staging/lib/signature"
	"github.com/bureau-foundation/staging/lib/stagestore"
)

// Checksum compares every artifact against its checksum sidecars.
type Checksum struct {
	// Algorithms to check. Nil means the store's own algorithms.
	Algorithms []checksum.Algorithm

	// Mandatory names the algorithms whose missing sidecar is an
	// error. Matching is case-insensitive.
	Mandatory []string

	// Sidecars recognizes checksum files so they are not themselves
	// checked. Nil means checksum.Default().
	Sidecars *checksum.Registry

	// Signatures recognizes signature files, which are skipped.
	Signatures *signature.Registry
}

// NewChecksum returns a per-artifact checksum validator.
func NewChecksum(c Checksum) Validator {
	if c.Sidecars == nil {
		c.Sidecars = checksum.Default()
	}
	return PerArtifact(c)
}

func (Checksum) Name() string { return "checksum" }

func (Checksum) Description() string {
	return "checksum sidecars are present and match artifact content"
}

func (c Checksum) Applies(store *stagestore.Store, artifact coord.Artifact) bool {
	path := coord.ArtifactPath(artifact)
	for _, suffix := range store.OmitChecksumExtensions() {
		if strings.HasSuffix(path, suffix) {
			return false
		}
	}
	if c.Sidecars != nil && c.Sidecars.IsSidecar(path) {
		return false
	}
	if c.Signatures != nil && c.Signatures.IsSignature(path) {
		return false
	}
	return true
}

func (c Checksum) ValidateArtifact(ctx context.Context, store *stagestore.Store, artifact coord.Artifact, collector *Collector) error {
	algorithms := c.Algorithms
	if algorithms == nil {
		algorithms = store.ChecksumAlgorithms()
	}
	content, err := store.ArtifactContent(artifact)
	if err != nil {
		return err
	}
	digests, err := checksum.Compute(content, algorithms)
	content.Close()
	if err != nil {
		return err
	}

	path := coord.ArtifactPath(artifact)
	for _, algorithm := range algorithms {
		sidecar, err := fs.ReadFile(store.FS(), stagestore.SidecarPath(path, algorithm))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if c.mandatory(algorithm) {
				collector.Error("MISSING: %s", algorithm.Name)
			}
		case err != nil:
			return err
		case checksum.ParseSidecar(sidecar) == digests[algorithm.Name]:
			collector.Info("OK: %s", algorithm.Name)
		default:
			collector.Error("MISMATCH: %s", algorithm.Name)
		}
	}
	return nil
}

func (c Checksum) mandatory(algorithm checksum.Algorithm) bool {
	for _, name := range c.Mandatory {
		if strings.EqualFold(name, algorithm.Name) {
			return true
		}
	}
	return false
}
