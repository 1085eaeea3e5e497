// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package validate inspects a staging store before publication.
//
// A [Validator] writes info, warning and error messages into a
// [Collector]; a [Composite] runs several validators against one store
// and returns the resulting [Result] tree, one child per validator and,
// for per-artifact validators, one grandchild per artifact coordinate.
// A tree is valid when no node in it holds an error.
//
// Validation failures are data: Validate returns an error only when
// the store itself cannot be read.
//
// The checksum and signature validators classify every expected
// sibling file as OK, MISSING or MISMATCH:
//
//	OK: SHA-1
//	MISSING: MD5        (an error only when MD5 is mandatory)
//	MISMATCH: SHA-256   (always an error)
package validate
