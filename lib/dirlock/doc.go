// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dirlock coordinates access to staging directories between
// handles in one process and between processes.
//
// A [Manager] maps each directory to one OS advisory lock taken with
// flock(2) on a zero-byte ".lock" marker inside the directory, plus an
// in-process reference count. The first [Manager.Lock] for a directory
// creates the marker (idempotently), opens it, and blocks until the
// kernel grants the requested [Mode]. Later shared requests for the
// same directory reuse that descriptor and push one more reference.
//
// Requests that can never succeed are rejected immediately instead of
// blocking: an exclusive request while any reference is outstanding
// (even one held by the caller), or a shared request while the
// directory is held exclusively. Both fail with a [*LockError] naming
// the directory and requested mode.
//
// [Manager.Unlock] pops one reference; the last one releases the OS
// lock and closes the descriptor. The mutex inside Manager guards only
// the bookkeeping table. A blocked flock call holds no mutex, so
// callers waiting on other directories are not affected.
//
// Lock acquisition has no timeout. A process that holds an exclusive
// lock forever blocks every other writer forever.
//
// One Manager should exist per process and be passed to every store
// and manager that touches the same directories; two Managers in one
// process do not share reference counts.
package dirlock
