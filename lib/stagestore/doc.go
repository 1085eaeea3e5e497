// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package stagestore implements one artifact staging store: a directory
// holding artifacts in Maven2 layout, an append-only index of what has
// been committed, a properties file describing the store, and an area
// for named attachments.
//
// On-disk layout, rooted at the store directory:
//
//	.lock                        zero-byte lock marker (see lib/dirlock)
//	.meta/repository.properties  store properties, key=value
//	.meta/artifacts              index: coordinate=relative/path per line
//	.meta/metadata               index: coordinate=relative/path per line
//	.attachments/<name>          named blobs, independent of the index
//	org/foo/bar/1.0/bar-1.0.jar  artifact content (Maven2 layout)
//
// A [Store] holds a shared lock on its directory for its whole
// lifetime, so any number of handles (in this process or others) may
// read concurrently. Every mutation upgrades to an exclusive lock for
// its duration and downgrades afterwards:
//
//	operation, err := store.Put(artifacts, metadata)  // exclusive from here
//	if err != nil { ... }
//	defer operation.Close()                            // commit, back to shared
//	if err := operation.Install(); err != nil {
//	    operation.Cancel()
//	    return err
//	}
//
// The index rewrite inside [Operation.Close] is the single commit
// point. Content copied by a cancelled or crashed operation stays on
// disk but is never reported by [Store.Artifacts] or [Store.Metadata].
//
// A store's [WriteMode] gates mutation: ReadOnly rejects every put and
// attachment change, WriteOnce additionally rejects a put whose artifact
// paths already exist, WriteMany permits redeploy. Metadata entries are
// exempt from the overwrite check because repository metadata is
// rewritten on every deploy of an artifact.
//
// Stores are created and located by lib/stagemanager; this package only
// knows about a single directory.
package stagestore
