// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package coord defines artifact and metadata coordinates and the
// Maven2 repository layout that maps them to relative paths.
//
// An [Artifact] is identified by groupId, artifactId, extension, an
// optional classifier, and version, written as
//
//	groupId:artifactId:extension[:classifier]:version
//
// A [Metadata] entry is identified by groupId, artifactId, version and
// type, written as groupId:artifactId:version:type. Metadata may live
// at group level (empty artifactId and version) or artifact level
// (empty version).
//
// [ArtifactPath] and [MetadataPath] implement the layout:
//
//	org/foo/bar/1.0-SNAPSHOT/bar-1.0-20260101.120000-3-sources.jar
//	org/foo/bar/maven-metadata.xml
//
// Directories use the base version, file names use the full version, so
// timestamped snapshots of one base version share a directory.
//
// Paths are always slash-separated and relative. Coordinates containing
// path separators or dot-segments are rejected by [Artifact.Validate]
// and [Metadata.Validate] so a coordinate can never address a file
// outside the repository it is laid out in.
package coord
