// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by every binary
// format the staging tools write: the bundle manifest and the store
// root's sequence records.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same logical value always produces identical bytes and a manifest can
// be hashed or compared byte-for-byte.
//
//	data, err := codec.Marshal(manifest)
//	err = codec.Unmarshal(data, &manifest)
//
// Types serialized here carry `cbor` struct tags. Types that also
// appear in CLI --json output carry `json` tags instead; fxamacker/cbor
// reads `json` tags when `cbor` tags are absent. Never put both on one
// field.
package codec
