// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stagemanager

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/staging/lib/stagestore"
)

// RedeployArtifactStore puts every artifact and metadata entry of
// source into target in one operation, reading content straight from
// source's files. Target's own policy applies: a WriteOnce target
// rejects artifacts it already holds, and a target in the other
// repository mode rejects the whole batch. Nothing spans both stores
// atomically; if Install fails part way, target keeps unindexed files
// and must be reconciled by hand.
func (m *Manager) RedeployArtifactStore(source, target *stagestore.Store) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	artifacts, err := source.Artifacts()
	if err != nil {
		return fmt.Errorf("reading %s: %w", source.Name(), err)
	}
	metadata, err := source.Metadata()
	if err != nil {
		return fmt.Errorf("reading %s: %w", source.Name(), err)
	}

	operation, err := target.Put(artifacts, metadata)
	if err != nil {
		return fmt.Errorf("redeploying %s into %s: %w", source.Name(), target.Name(), err)
	}
	if err := operation.Install(); err != nil {
		operation.Cancel()
		return errors.Join(
			fmt.Errorf("redeploying %s into %s: %w", source.Name(), target.Name(), err),
			operation.Close(),
		)
	}
	if err := operation.Close(); err != nil {
		return fmt.Errorf("redeploying %s into %s: %w", source.Name(), target.Name(), err)
	}
	m.logger.Info("store redeployed",
		"store", target.Name(),
		"source", source.Name(),
		"artifacts", len(artifacts),
		"metadata", len(metadata),
	)
	return nil
}

// MergeArtifactStore always fails with ErrMergeUnsupported. Merging
// would have to reconcile metadata from both stores, and no
// reconciliation rule is defined.
func (m *Manager) MergeArtifactStore(source, target *stagestore.Store) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return fmt.Errorf("merging %s into %s: %w", source.Name(), target.Name(), ErrMergeUnsupported)
}
