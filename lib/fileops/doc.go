// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fileops provides the filesystem primitives every mutating
// staging operation is built on.
//
// [WriteFile] and [WriteFileFrom] write to a temporary file in the
// destination directory, fsync it, and rename it into place, then
// fsync the parent directory. Readers observe either the old content
// or the new content, never a partial write. [CopyFile] layers the
// same guarantee over a file-to-file copy.
//
// [CopyTree] and [DeleteTree] walk a directory recursively and accept
// a predicate over slash-separated relative paths, so callers can
// exclude lock markers or metadata directories without writing their
// own walkers.
//
// This package depends on no other Bureau packages.
package fileops
