// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pom reads Maven POM files and builds the effective model the
// POM validators check.
//
// A [ModelProvider] turns a POM coordinate into an effective [Model]
// by searching an ordered list of [Repository] values. The validators
// pass the caller's repositories followed by the store itself
// ([StoreRepository]), so a parent POM staged alongside its children
// resolves without any remote access.
//
// [InheritingProvider] is the provider used by the command line. It
// walks the parent chain, applies the inheritance rules for the fields
// the validators look at, and interpolates ${project.*} and
// <properties> references. It does not evaluate profiles, imports or
// dependency management.
package pom
