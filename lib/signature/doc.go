// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package signature verifies detached signatures that sit next to
// staged artifacts. Each signature [Type] owns one file extension
// ("asc" for armored OpenPGP, "sig" for binary OpenPGP); a [Registry]
// maps extensions to types so new schemes plug in without touching
// the validator that walks the store.
//
// OpenPGP types verify against a [Keyring] loaded once from an
// armored or binary public keyring file.
package signature
