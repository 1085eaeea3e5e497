// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/bureau-foundation/staging/lib/testutil"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if !strings.HasSuffix(cfg.StoreRoot, filepath.Join(".cache", "bureau-staging", "stores")) {
		t.Errorf("expected store_root under .cache/bureau-staging, got %s", cfg.StoreRoot)
	}
	if !reflect.DeepEqual(cfg.ChecksumAlgorithms, []string{"SHA-1", "MD5"}) {
		t.Errorf("expected checksum_algorithms=[SHA-1 MD5], got %v", cfg.ChecksumAlgorithms)
	}
	if !cfg.Validation.MandatoryChecksums || !cfg.Validation.POM || !cfg.Validation.Archives {
		t.Errorf("expected checksum, POM and archive validation on by default, got %+v", cfg.Validation)
	}
	if cfg.Bundle.Compression != "zstd" {
		t.Errorf("expected compression=zstd, got %s", cfg.Bundle.Compression)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_RequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvVar, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when BUREAU_STAGING_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), EnvVar+" environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_YAML(t *testing.T) {
	configPath := testutil.WriteFile(t, filepath.Join(t.TempDir(), "staging.yaml"), []byte(`
store_root: ${STAGING_TEST_BASE:-/srv/staging}/stores
dry_run: true
checksum_algorithms: [SHA-256]
templates:
  - name: nightly
    prefix: nightly
    repository_mode: snapshot
    omit_checksums_for_extensions: [.asc]
validation:
  mandatory_checksums: false
  signature_keyring: ${BUREAU_STAGING_ROOT}/../keys.asc
  mandatory_signatures: [asc]
bundle:
  compression: lz4
  identities:
    - ${BUREAU_STAGING_ROOT}/../ci.key
    - /etc/bureau-staging/release.key
log_level: debug
`))
	t.Setenv(EnvVar, configPath)
	t.Setenv("STAGING_TEST_BASE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.StoreRoot != "/srv/staging/stores" {
		t.Errorf("expected default-expanded store_root, got %s", cfg.StoreRoot)
	}
	if cfg.Validation.SignatureKeyring != "/srv/staging/stores/../keys.asc" {
		t.Errorf("expected keyring relative to store root, got %s", cfg.Validation.SignatureKeyring)
	}
	wantIdentities := []string{"/srv/staging/stores/../ci.key", "/etc/bureau-staging/release.key"}
	if !reflect.DeepEqual(cfg.Bundle.Identities, wantIdentities) {
		t.Errorf("bundle identities = %v, want %v", cfg.Bundle.Identities, wantIdentities)
	}
	if !cfg.DryRun || cfg.Validation.MandatoryChecksums {
		t.Errorf("dry_run=%v mandatory_checksums=%v", cfg.DryRun, cfg.Validation.MandatoryChecksums)
	}
	if !reflect.DeepEqual(cfg.ChecksumAlgorithms, []string{"SHA-256"}) {
		t.Errorf("expected file list to replace default, got %v", cfg.ChecksumAlgorithms)
	}
	if !cfg.Validation.POM {
		t.Error("unset validation.pom lost its default")
	}
	want := []TemplateConfig{{
		Name:                       "nightly",
		Prefix:                     "nightly",
		RepositoryMode:             "snapshot",
		OmitChecksumsForExtensions: []string{".asc"},
	}}
	if !reflect.DeepEqual(cfg.Templates, want) {
		t.Errorf("templates = %+v, want %+v", cfg.Templates, want)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_JSONC(t *testing.T) {
	configPath := testutil.WriteFile(t, filepath.Join(t.TempDir(), "staging.jsonc"), []byte(`{
  // Shared CI staging area.
  "store_root": "/var/lib/staging",
  "bundle": {
    "compression": "deflate",
    "recipients": ["age1example"],
  },
}`))
	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.StoreRoot != "/var/lib/staging" || cfg.Bundle.Compression != "deflate" {
		t.Errorf("store_root=%s compression=%s", cfg.StoreRoot, cfg.Bundle.Compression)
	}
	if !reflect.DeepEqual(cfg.Bundle.Recipients, []string{"age1example"}) {
		t.Errorf("recipients = %v", cfg.Bundle.Recipients)
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	if _, err := Parse([]byte("store_rot: /tmp\n"), "staging.yaml"); err == nil {
		t.Fatal("expected error for misspelled key, got nil")
	}
}

func TestParse_EmptyFileIsDefault(t *testing.T) {
	cfg, err := Parse(nil, "staging.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("empty file produced %+v", cfg)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.StoreRoot = ""
	cfg.LogLevel = "loud"
	cfg.Bundle.Compression = "brotli"
	cfg.Templates = []TemplateConfig{
		{Name: "nightly", RepositoryMode: "SNAPSHOT"},
		{Name: "nightly", RepositoryMode: "weekly"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors, got nil")
	}
	for _, want := range []string{
		"store_root is required",
		"log_level must be one of",
		"bundle.compression must be one of",
		`templates[1].name "nightly" is repeated`,
		"templates[1].repository_mode must be RELEASE or SNAPSHOT",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("STAGING_TEST_SET", "from-env")
	vars := map[string]string{"ROOT": "/root/of/things"}

	tests := []struct {
		input string
		want  string
	}{
		{"${ROOT}/stores", "/root/of/things/stores"},
		{"${STAGING_TEST_SET}", "from-env"},
		{"${STAGING_TEST_UNSET:-fallback}", "fallback"},
		{"${STAGING_TEST_UNSET}", ""},
		{"/plain/path", "/plain/path"},
	}
	for _, test := range tests {
		if got := expandVars(test.input, vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestEnsurePaths(t *testing.T) {
	cfg := Default()
	cfg.StoreRoot = filepath.Join(t.TempDir(), "a", "b", "stores")
	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths: %v", err)
	}
	if info, err := os.Stat(cfg.StoreRoot); err != nil || !info.IsDir() {
		t.Fatalf("store root not created: %v", err)
	}
}
