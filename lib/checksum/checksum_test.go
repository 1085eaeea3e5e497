// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package checksum

import (
	"errors"
	"strings"
	"testing"
)

func TestComputeKnownDigests(t *testing.T) {
	digests, err := Compute(strings.NewReader("hello"), []Algorithm{SHA1, MD5, SHA256})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	want := map[string]string{
		"SHA-1":   "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d",
		"MD5":     "5d41402abc4b2a76b9719d911017c592",
		"SHA-256": "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
	}
	for name, digest := range want {
		if digests[name] != digest {
			t.Errorf("%s = %s, want %s", name, digests[name], digest)
		}
	}
}

func TestComputeBLAKE3AndSHA3Lengths(t *testing.T) {
	digests, err := Compute(strings.NewReader("content"), []Algorithm{BLAKE3, SHA3, SHA512})
	if err != nil {
		t.Fatal(err)
	}
	if len(digests["BLAKE3"]) != 64 {
		t.Errorf("BLAKE3 digest length = %d, want 64", len(digests["BLAKE3"]))
	}
	if len(digests["SHA3-256"]) != 64 {
		t.Errorf("SHA3-256 digest length = %d, want 64", len(digests["SHA3-256"]))
	}
	if len(digests["SHA-512"]) != 128 {
		t.Errorf("SHA-512 digest length = %d, want 128", len(digests["SHA-512"]))
	}
}

func TestRegistryLookupAndResolve(t *testing.T) {
	registry := Default()

	algorithm, ok := registry.Lookup("sha-1")
	if !ok || algorithm.Extension != "sha1" {
		t.Fatalf("Lookup(sha-1) = %+v, %v", algorithm, ok)
	}

	resolved, err := registry.Resolve([]string{"SHA-512", "MD5"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := strings.Join(Names(resolved), ","); got != "SHA-512,MD5" {
		t.Errorf("resolved names = %s", got)
	}

	_, err = registry.Resolve([]string{"SHA-1", "CRC32"})
	if !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("Resolve error = %v, want ErrUnknownAlgorithm", err)
	}
	if !strings.Contains(err.Error(), "CRC32") {
		t.Errorf("error %q does not name the unknown algorithm", err)
	}
}

func TestRegistryIsSidecar(t *testing.T) {
	registry := NewRegistry(SHA1, MD5)
	if !registry.IsSidecar("org/foo/bar-1.0.jar.sha1") {
		t.Error("jar.sha1 should be a sidecar")
	}
	if registry.IsSidecar("org/foo/bar-1.0.jar") {
		t.Error("jar should not be a sidecar")
	}
	if registry.IsSidecar("org/foo/bar-1.0.jar.sha256") {
		t.Error("sha256 is not registered in this registry")
	}
}

func TestParseSidecar(t *testing.T) {
	tests := map[string]string{
		"ABCDEF\n":              "abcdef",
		"abc123  bar-1.0.jar\n": "abc123",
		"   ":                   "",
	}
	for input, want := range tests {
		if got := ParseSidecar([]byte(input)); got != want {
			t.Errorf("ParseSidecar(%q) = %q, want %q", input, got, want)
		}
	}
}
