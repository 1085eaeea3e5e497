// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package stagemanager owns a store root: the directory whose
// subdirectories are staging stores. It allocates store names, creates,
// selects, drops and renumbers stores, republishes one store into
// another, and moves stores between machines as single-file bundles.
//
// Store names are "<template prefix>-<NNNNN>". Numbers are allocated
// under an exclusive lock on the store root as one more than the
// larger of the highest number on disk and the high-water mark kept in
// <root>/.sequence, so a number is never handed out twice even after
// the store holding it was dropped.
//
// A bundle (.ntb) is a zip archive of the store tree without its lock
// marker, plus a CBOR manifest named .bundle that records the source
// store and a BLAKE3 digest per file. Entries are zstd-compressed by
// default. When recipients are configured the whole archive is
// encrypted with age; import detects encryption by its header.
// Importing always allocates a fresh store name.
//
// The Manager is safe for concurrent use. Stores it returns are
// tracked and closed by [Manager.Close]; [Manager.DropArtifactStore]
// and [Manager.RenumberArtifactStores] close tracked handles of the
// stores they touch.
package stagemanager
