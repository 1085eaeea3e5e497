// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"errors"
	"testing"
)

func TestBuiltins(t *testing.T) {
	tests := []struct {
		template  Template
		name      string
		mode      RepositoryMode
		redeploy  bool
		strongSCA bool
	}{
		{ReleaseTemplate, "release", Release, false, false},
		{ReleaseSCATemplate, "release-sca", Release, false, true},
		{ReleaseRedeployTemplate, "release-redeploy", Release, true, false},
		{ReleaseRedeploySCATemplate, "release-redeploy-sca", Release, true, true},
		{SnapshotTemplate, "snapshot", Snapshot, false, false},
		{SnapshotSCATemplate, "snapshot-sca", Snapshot, false, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.template.Name() != test.name || test.template.Prefix() != test.name {
				t.Errorf("name/prefix = %s/%s, want %s", test.template.Name(), test.template.Prefix(), test.name)
			}
			if test.template.RepositoryMode() != test.mode {
				t.Errorf("mode = %s, want %s", test.template.RepositoryMode(), test.mode)
			}
			if test.template.AllowRedeploy() != test.redeploy {
				t.Errorf("allowRedeploy = %t, want %t", test.template.AllowRedeploy(), test.redeploy)
			}
			algorithms, set := test.template.ChecksumAlgorithms()
			if set != test.strongSCA {
				t.Fatalf("checksum override set = %t, want %t", set, test.strongSCA)
			}
			if set && len(algorithms) != 4 {
				t.Errorf("strong algorithms = %v", algorithms)
			}
			if _, set := test.template.OmitChecksumExtensions(); set {
				t.Error("built-ins do not override omitted extensions")
			}
		})
	}
	if len(Builtins()) != 6 {
		t.Errorf("len(Builtins()) = %d, want 6", len(Builtins()))
	}
}

func TestTemplateImmutable(t *testing.T) {
	algorithms := []string{"SHA-1"}
	tmpl, err := New(Spec{Name: "custom", Prefix: "cst", RepositoryMode: Release, ChecksumAlgorithms: algorithms})
	if err != nil {
		t.Fatal(err)
	}
	algorithms[0] = "MD5"
	got, _ := tmpl.ChecksumAlgorithms()
	if got[0] != "SHA-1" {
		t.Errorf("template observed caller mutation: %v", got)
	}
	got[0] = "BLAKE3"
	again, _ := tmpl.ChecksumAlgorithms()
	if again[0] != "SHA-1" {
		t.Errorf("template observed accessor mutation: %v", again)
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	for _, spec := range []Spec{
		{Name: "Upper", RepositoryMode: Release},
		{Name: "ok", Prefix: "bad/prefix", RepositoryMode: Release},
		{Name: "ok", RepositoryMode: "NIGHTLY"},
		{Name: "", RepositoryMode: Release},
	} {
		if _, err := New(spec); !errors.Is(err, ErrInvalidTemplate) {
			t.Errorf("New(%+v) error = %v, want ErrInvalidTemplate", spec, err)
		}
	}
}

func TestRepositoryModeAccepts(t *testing.T) {
	if !Release.Accepts(false) || Release.Accepts(true) {
		t.Error("release must accept only non-snapshots")
	}
	if !Snapshot.Accepts(true) || Snapshot.Accepts(false) {
		t.Error("snapshot must accept only snapshots")
	}
	mode, err := ParseRepositoryMode("snapshot")
	if err != nil || mode != Snapshot {
		t.Errorf("ParseRepositoryMode(snapshot) = %s, %v", mode, err)
	}
}

func TestCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	if _, err := catalog.Get("release-sca"); err != nil {
		t.Fatalf("Get(release-sca): %v", err)
	}
	if _, err := catalog.Get("nightly"); !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("Get(nightly) error = %v, want ErrUnknownTemplate", err)
	}
	if err := catalog.Add(ReleaseTemplate); !errors.Is(err, ErrInvalidTemplate) {
		t.Errorf("duplicate Add error = %v, want ErrInvalidTemplate", err)
	}

	custom := MustNew(Spec{Name: "nightly", Prefix: "n", RepositoryMode: Snapshot})
	if err := catalog.Add(custom); err != nil {
		t.Fatal(err)
	}
	if got, ok := catalog.Lookup("nightly"); !ok || got.Prefix() != "n" {
		t.Errorf("Lookup(nightly) = %v, %v", got, ok)
	}
	if len(catalog.Templates()) != 7 {
		t.Errorf("catalog has %d templates, want 7", len(catalog.Templates()))
	}
}

func TestValidName(t *testing.T) {
	for name, want := range map[string]bool{
		"release-00001": true,
		"a.b_c-d":       true,
		"":              false,
		"..":            false,
		"Release":       false,
		"a/b":           false,
	} {
		if got := ValidName(name); got != want {
			t.Errorf("ValidName(%q) = %t, want %t", name, got, want)
		}
	}
}
