// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts store bundles with age. It wraps
// filippo.io/age for the operations the staging tools need: generate
// x25519 keypairs, stream-encrypt to one or more recipients, and
// stream-decrypt with identities loaded from an identity file.
//
// Decryption is transparent: [Open] sniffs the age header and passes
// plain input through, so a bundle reader never needs to know in
// advance whether the producer encrypted it.
package sealed
