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

// Signature verifies every artifact against its detached signatures,
// one per registered signature type.
type Signature struct {
	Registry *signature.Registry

	// Mandatory lists signature extensions ("asc") whose absence is an
	// error. Absent optional signatures are not reported.
	Mandatory []string

	// Sidecars recognizes checksum files, which are skipped. Nil means
	// checksum.Default().
	Sidecars *checksum.Registry
}

// NewSignature returns a per-artifact signature validator.
func NewSignature(s Signature) Validator {
	if s.Sidecars == nil {
		s.Sidecars = checksum.Default()
	}
	return PerArtifact(s)
}

func (Signature) Name() string { return "signature" }

func (Signature) Description() string {
	return "detached signatures verify against the trusted keyring"
}

func (s Signature) Applies(_ *stagestore.Store, artifact coord.Artifact) bool {
	path := coord.ArtifactPath(artifact)
	if s.Registry == nil || s.Registry.IsSignature(path) {
		return false
	}
	return s.Sidecars == nil || !s.Sidecars.IsSidecar(path)
}

func (s Signature) ValidateArtifact(ctx context.Context, store *stagestore.Store, artifact coord.Artifact, collector *Collector) error {
	path := coord.ArtifactPath(artifact)
	for _, signatureType := range s.Registry.Types() {
		if err := ctx.Err(); err != nil {
			return err
		}
		signaturePath := path + "." + signatureType.Extension()
		signatureFile, err := store.FS().Open(signaturePath)
		if errors.Is(err, fs.ErrNotExist) {
			if s.mandatory(signatureType) {
				collector.Error("MISSING: %s", signatureType.Name())
			}
			continue
		}
		if err != nil {
			return err
		}
		content, err := store.ArtifactContent(artifact)
		if err != nil {
			signatureFile.Close()
			return err
		}
		signer, verifyErr := signatureType.Verify(content, signatureFile)
		content.Close()
		signatureFile.Close()
		switch {
		case verifyErr == nil:
			collector.Info("OK: %s (%s)", signatureType.Name(), signer)
		case !errors.Is(verifyErr, signature.ErrMismatch):
			collector.Error("MISMATCH: %s: %v", signatureType.Name(), verifyErr)
		default:
			collector.Error("MISMATCH: %s", signatureType.Name())
		}
	}
	return nil
}

func (s Signature) mandatory(signatureType signature.Type) bool {
	for _, extension := range s.Mandatory {
		if strings.EqualFold(strings.TrimPrefix(extension, "."), signatureType.Extension()) {
			return true
		}
	}
	return false
}
