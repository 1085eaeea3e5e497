// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stagemanager

import "errors"

var (
	// ErrClosed is returned by every method of a closed Manager.
	ErrClosed = errors.New("stagemanager: manager is closed")

	// ErrStoreNotFound is returned when a named store does not exist
	// under the root.
	ErrStoreNotFound = errors.New("stagemanager: store not found")

	// ErrMergeUnsupported is returned by MergeArtifactStore.
	ErrMergeUnsupported = errors.New("stagemanager: merging stores is not supported")

	// ErrInvalidBundle is returned when a bundle is unreadable, has an
	// unknown format, or fails digest verification.
	ErrInvalidBundle = errors.New("stagemanager: invalid bundle")
)
