// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for staging packages.
//
// [WriteFile] and [ReadFile] create and read fixture files, creating
// parent directories as needed. [Artifact] writes a backing file for a
// coordinate under a scratch directory and returns the coordinate with
// its File field set, which is the shape every put-style test needs.
//
// [RequireReceive] encapsulates the timeout safety valve pattern
// (select with time.After fallback) for tests that wait on goroutines
// blocked in flock.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
