// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/bureau-foundation/staging/lib/coord"
)

var fixtureCounter atomic.Uint64

// WriteFile writes content to path, creating parent directories, and
// returns path.
func WriteFile(t testing.TB, path string, content []byte) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// ReadFile returns the content of path.
func ReadFile(t testing.TB, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return data
}

// Artifact parses coordinate, writes content to a fresh backing file
// under directory, and returns the artifact with File set.
//
//	jar := testutil.Artifact(t, scratch, "org.foo:bar:jar:1.0", []byte("jar bytes"))
func Artifact(t testing.TB, directory, coordinate string, content []byte) coord.Artifact {
	t.Helper()
	artifact, err := coord.ParseArtifact(coordinate)
	if err != nil {
		t.Fatalf("parsing coordinate %q: %v", coordinate, err)
	}
	name := filepath.Base(coord.ArtifactPath(artifact))
	path := filepath.Join(directory, "fixture-"+strconv.FormatUint(fixtureCounter.Add(1), 10), name)
	artifact.File = WriteFile(t, path, content)
	return artifact
}

// Metadata is Artifact for metadata coordinates.
func Metadata(t testing.TB, directory, coordinate string, content []byte) coord.Metadata {
	t.Helper()
	metadata, err := coord.ParseMetadata(coordinate)
	if err != nil {
		t.Fatalf("parsing metadata coordinate %q: %v", coordinate, err)
	}
	path := filepath.Join(directory, "fixture-"+strconv.FormatUint(fixtureCounter.Add(1), 10), metadata.Type)
	metadata.File = WriteFile(t, path, content)
	return metadata
}
