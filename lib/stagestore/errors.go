// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stagestore

import "errors"

var (
	// ErrClosed is returned by every method of a closed Store.
	ErrClosed = errors.New("stagestore: store is closed")

	// ErrReadOnly is returned for mutations of a store opened read-only.
	ErrReadOnly = errors.New("stagestore: store is read-only")

	// ErrMissingBackingFile is returned when a put entry has no file
	// or its file does not exist.
	ErrMissingBackingFile = errors.New("stagestore: entry has no backing file")

	// ErrRepositoryModeMismatch is returned when an artifact's
	// snapshot-ness differs from the store's repository mode.
	ErrRepositoryModeMismatch = errors.New("stagestore: artifact does not match repository mode")

	// ErrRedeployNotAllowed is returned when a put would overwrite an
	// existing artifact in a store that does not allow redeploy.
	ErrRedeployNotAllowed = errors.New("stagestore: redeploy not allowed")

	// ErrArtifactNotFound is returned when an artifact is not indexed.
	ErrArtifactNotFound = errors.New("stagestore: artifact not found")

	// ErrMetadataNotFound is returned when a metadata entry is not indexed.
	ErrMetadataNotFound = errors.New("stagestore: metadata not found")

	// ErrAttachmentExists is returned when writing an attachment whose
	// name is already taken.
	ErrAttachmentExists = errors.New("stagestore: attachment already exists")

	// ErrAttachmentNotFound is returned when reading or deleting an
	// attachment that does not exist.
	ErrAttachmentNotFound = errors.New("stagestore: attachment not found")

	// ErrInvalidName is returned for store or attachment names outside
	// the permitted alphabet.
	ErrInvalidName = errors.New("stagestore: invalid name")

	// ErrCorruptStore is returned when the properties or index files
	// cannot be parsed or disagree with the directory.
	ErrCorruptStore = errors.New("stagestore: corrupt store")

	// ErrOperationInProgress is returned when a second mutation is
	// started on a handle whose previous one is still open.
	ErrOperationInProgress = errors.New("stagestore: another operation is in progress")

	// ErrOperationClosed is returned when using a closed Operation or
	// Attachment handle.
	ErrOperationClosed = errors.New("stagestore: operation is closed")
)
