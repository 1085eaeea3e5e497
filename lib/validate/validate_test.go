// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"

	"github.com/bureau-foundation/staging/lib/coord"
	"github.com/bureau-foundation/staging/lib/dirlock"
	"github.com/bureau-foundation/staging/lib/pom"
	"github.com/bureau-foundation/staging/lib/signature"
	"github.com/bureau-foundation/staging/lib/stagestore"
	"github.com/bureau-foundation/staging/lib/template"
	"github.com/bureau-foundation/staging/lib/testutil"
)

func newStore(t *testing.T) *stagestore.Store {
	t.Helper()
	basedir := filepath.Join(t.TempDir(), "release-00001")
	if err := os.Mkdir(basedir, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	store, err := stagestore.Create(basedir, stagestore.Meta{
		Name:                   "release-00001",
		TemplateName:           "release",
		TemplatePrefix:         "release",
		Created:                time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC),
		RepositoryMode:         template.Release,
		ChecksumAlgorithms:     []string{"SHA-1", "MD5"},
		OmitChecksumExtensions: template.DefaultOmitChecksumExtensions,
	}, stagestore.Options{Locks: dirlock.NewManager(), Catalog: template.DefaultCatalog()})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// stage commits artifacts with their checksum sidecars.
func stage(t *testing.T, store *stagestore.Store, artifacts ...coord.Artifact) {
	t.Helper()
	operation, err := store.Put(artifacts, nil)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := operation.Install(); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := operation.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func storedPath(store *stagestore.Store, artifact coord.Artifact) string {
	return filepath.Join(store.Basedir(), filepath.FromSlash(coord.ArtifactPath(artifact)))
}

func run(t *testing.T, store *stagestore.Store, validators ...Validator) *Result {
	t.Helper()
	result, err := Composite{Validators: validators}.Validate(context.Background(), store)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return result
}

func node(t *testing.T, result *Result, path ...string) *Result {
	t.Helper()
	current := result
	for _, name := range path {
		child, ok := current.Child(name)
		if !ok {
			t.Fatalf("no result node %q under %q", name, current.Name)
		}
		current = child
	}
	return current
}

func jarBytes(t *testing.T, withManifest bool) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	if withManifest {
		entry, err := writer.Create(manifestPath)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		entry.Write([]byte("Manifest-Version: 1.0\n"))
	}
	entry, err := writer.Create("org/example/Main.class")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	entry.Write(bytes.Repeat([]byte{0xca, 0xfe, 0xba, 0xbe}, 64))
	if err := writer.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}
	return buffer.Bytes()
}

func TestChecksumMissingMandatoryAlgorithm(t *testing.T) {
	store := newStore(t)
	jar := testutil.Artifact(t, t.TempDir(), "org.example:a:jar:1.0", []byte("hello"))
	stage(t, store, jar)
	if err := os.Remove(storedPath(store, jar) + ".md5"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	result := run(t, store, NewChecksum(Checksum{Mandatory: []string{"SHA-1", "MD5"}}))
	artifact := node(t, result, "checksum", "org.example:a:jar:1.0")
	if !reflect.DeepEqual(artifact.Infos, []string{"OK: SHA-1"}) {
		t.Errorf("infos = %q, want [OK: SHA-1]", artifact.Infos)
	}
	if !reflect.DeepEqual(artifact.Errors, []string{"MISSING: MD5"}) {
		t.Errorf("errors = %q, want [MISSING: MD5]", artifact.Errors)
	}
	if result.IsValid() {
		t.Error("result with a missing mandatory checksum is valid")
	}
}

func TestChecksumOptionalMissingIsSilent(t *testing.T) {
	store := newStore(t)
	jar := testutil.Artifact(t, t.TempDir(), "org.example:a:jar:1.0", []byte("hello"))
	stage(t, store, jar)
	os.Remove(storedPath(store, jar) + ".md5")

	result := run(t, store, NewChecksum(Checksum{Mandatory: []string{"sha-1"}}))
	artifact := node(t, result, "checksum", "org.example:a:jar:1.0")
	if len(artifact.Errors) != 0 || len(artifact.Warnings) != 0 {
		t.Errorf("errors = %q, warnings = %q, want neither", artifact.Errors, artifact.Warnings)
	}
	if !reflect.DeepEqual(artifact.Infos, []string{"OK: SHA-1"}) {
		t.Errorf("infos = %q, want [OK: SHA-1]", artifact.Infos)
	}
	if !result.IsValid() {
		t.Error("a missing optional checksum made the result invalid")
	}
}

func TestChecksumMismatch(t *testing.T) {
	store := newStore(t)
	jar := testutil.Artifact(t, t.TempDir(), "org.example:a:jar:1.0", []byte("hello"))
	stage(t, store, jar)
	testutil.WriteFile(t, storedPath(store, jar)+".sha1", []byte("0000000000000000000000000000000000000000\n"))

	result := run(t, store, NewChecksum(Checksum{}))
	artifact := node(t, result, "checksum", "org.example:a:jar:1.0")
	if !reflect.DeepEqual(artifact.Errors, []string{"MISMATCH: SHA-1"}) {
		t.Errorf("errors = %q, want [MISMATCH: SHA-1]", artifact.Errors)
	}
	if !reflect.DeepEqual(artifact.Infos, []string{"OK: MD5"}) {
		t.Errorf("infos = %q, want [OK: MD5]", artifact.Infos)
	}
}

func TestChecksumSkipsOmittedExtensions(t *testing.T) {
	store := newStore(t)
	scratch := t.TempDir()
	stage(t, store,
		testutil.Artifact(t, scratch, "org.example:a:jar:1.0", []byte("hello")),
		testutil.Artifact(t, scratch, "org.example:a:jar.asc:1.0", []byte("signature")),
	)
	result := run(t, store, NewChecksum(Checksum{}))
	checksums := node(t, result, "checksum")
	if len(checksums.Children) != 1 || checksums.Children[0].Name != "org.example:a:jar:1.0" {
		t.Errorf("checked %d artifacts, want only the jar", len(checksums.Children))
	}
}

func TestSignature(t *testing.T) {
	signer, err := openpgp.NewEntity("release-bot", "", "release-bot@example.org", nil)
	if err != nil {
		t.Fatalf("NewEntity: %v", err)
	}
	var public bytes.Buffer
	armorWriter, err := armor.Encode(&public, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("armor.Encode: %v", err)
	}
	if err := signer.Serialize(armorWriter); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	armorWriter.Close()
	keyring, err := signature.ParseKeyring(public.Bytes())
	if err != nil {
		t.Fatalf("ParseKeyring: %v", err)
	}

	content := []byte("signed jar bytes")
	var asc bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&asc, signer, bytes.NewReader(content), nil); err != nil {
		t.Fatalf("ArmoredDetachSign: %v", err)
	}
	store := newStore(t)
	scratch := t.TempDir()
	stage(t, store,
		testutil.Artifact(t, scratch, "org.example:a:jar:1.0", content),
		testutil.Artifact(t, scratch, "org.example:a:jar.asc:1.0", asc.Bytes()),
		testutil.Artifact(t, scratch, "org.example:b:jar:1.0", []byte("unsigned")),
		testutil.Artifact(t, scratch, "org.example:b:jar.asc:1.0", asc.Bytes()),
	)

	result := run(t, store, NewSignature(Signature{Registry: signature.OpenPGP(keyring)}))
	signed := node(t, result, "signature", "org.example:a:jar:1.0")
	if len(signed.Infos) != 1 || len(signed.Errors) != 0 {
		t.Errorf("signed jar: infos = %q, errors = %q", signed.Infos, signed.Errors)
	}
	forged := node(t, result, "signature", "org.example:b:jar:1.0")
	if len(forged.Errors) != 1 {
		t.Errorf("mismatched signature: errors = %q", forged.Errors)
	}
	if _, ok := node(t, result, "signature").Child("org.example:a:jar.asc:1.0"); ok {
		t.Error("signature files were themselves validated")
	}

	result = run(t, store, NewSignature(Signature{Registry: signature.OpenPGP(keyring), Mandatory: []string{".sig"}}))
	signed = node(t, result, "signature", "org.example:a:jar:1.0")
	if !reflect.DeepEqual(signed.Errors, []string{"MISSING: OpenPGP"}) {
		t.Errorf("mandatory .sig: errors = %q", signed.Errors)
	}
}

func TestArchive(t *testing.T) {
	store := newStore(t)
	scratch := t.TempDir()
	stage(t, store,
		testutil.Artifact(t, scratch, "org.example:good:jar:1.0", jarBytes(t, true)),
		testutil.Artifact(t, scratch, "org.example:bare:jar:1.0", jarBytes(t, false)),
		testutil.Artifact(t, scratch, "org.example:broken:jar:1.0", []byte("not a zip")),
		testutil.Artifact(t, scratch, "org.example:good:pom:1.0", []byte("<project/>")),
	)
	result := run(t, store, NewArchive())
	archives := node(t, result, "archive")
	if len(archives.Children) != 3 {
		t.Fatalf("archive validator inspected %d artifacts, want 3", len(archives.Children))
	}
	if good := node(t, archives, "org.example:good:jar:1.0"); !reflect.DeepEqual(good.Infos, []string{"OK: 2 entries"}) || len(good.Warnings) != 0 {
		t.Errorf("good jar: infos = %q, warnings = %q", good.Infos, good.Warnings)
	}
	if bare := node(t, archives, "org.example:bare:jar:1.0"); len(bare.Warnings) != 1 || len(bare.Errors) != 0 {
		t.Errorf("jar without manifest: warnings = %q, errors = %q", bare.Warnings, bare.Errors)
	}
	if broken := node(t, archives, "org.example:broken:jar:1.0"); len(broken.Errors) != 1 {
		t.Errorf("broken jar: errors = %q", broken.Errors)
	}
}

const completePOM = `<project>
  <groupId>org.example</groupId>
  <artifactId>lib</artifactId>
  <version>1.0</version>
  <name>lib</name>
  <description>An example library</description>
  <url>https://example.org/lib</url>
  <licenses><license><name>Apache-2.0</name></license></licenses>
  <developers><developer><id>dev</id></developer></developers>
  <scm><url>https://example.org/lib.git</url></scm>
</project>`

func TestPOMValidators(t *testing.T) {
	store := newStore(t)
	scratch := t.TempDir()
	stage(t, store,
		testutil.Artifact(t, scratch, "org.example:lib:pom:1.0", []byte(completePOM)),
		testutil.Artifact(t, scratch, "org.example:other:pom:1.0", []byte(`<project>
  <groupId>org.example</groupId>
  <artifactId>renamed</artifactId>
  <version>1.0</version>
  <name>other</name>
</project>`)),
	)
	provider := pom.InheritingProvider{}
	result := run(t, store,
		NewPOMCoordinates(POMCoordinates{Provider: provider}),
		NewPOMCompleteness(POMCompleteness{Provider: provider}),
	)

	if lib := node(t, result, "pom-coordinates", "org.example:lib:pom:1.0"); !reflect.DeepEqual(lib.Infos, []string{"OK: coordinates"}) {
		t.Errorf("lib coordinates: infos = %q, errors = %q", lib.Infos, lib.Errors)
	}
	if other := node(t, result, "pom-coordinates", "org.example:other:pom:1.0"); len(other.Errors) != 1 {
		t.Errorf("renamed artifactId: errors = %q", other.Errors)
	}
	if lib := node(t, result, "pom-completeness", "org.example:lib:pom:1.0"); len(lib.Errors) != 0 {
		t.Errorf("complete POM: errors = %q", lib.Errors)
	}
	other := node(t, result, "pom-completeness", "org.example:other:pom:1.0")
	want := []string{"MISSING: description", "MISSING: url", "MISSING: licenses", "MISSING: developers", "MISSING: scm"}
	if !reflect.DeepEqual(other.Errors, want) {
		t.Errorf("incomplete POM: errors = %q, want %q", other.Errors, want)
	}
}

func TestPOMUnresolvableParentIsFinding(t *testing.T) {
	store := newStore(t)
	stage(t, store, testutil.Artifact(t, t.TempDir(), "org.example:child:pom:1.0", []byte(`<project>
  <parent><groupId>org.example</groupId><artifactId>parent</artifactId><version>1.0</version></parent>
  <artifactId>child</artifactId>
</project>`)))
	result := run(t, store, NewPOMCoordinates(POMCoordinates{}))
	child := node(t, result, "pom-coordinates", "org.example:child:pom:1.0")
	if len(child.Errors) != 1 {
		t.Errorf("errors = %q, want one resolution error", child.Errors)
	}
}

func TestCompositeCancellation(t *testing.T) {
	store := newStore(t)
	stage(t, store, testutil.Artifact(t, t.TempDir(), "org.example:a:jar:1.0", []byte("hello")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Composite{Validators: []Validator{NewChecksum(Checksum{})}}.Validate(ctx, store)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Validate with canceled context: %v, want context.Canceled", err)
	}
}

func TestResultTree(t *testing.T) {
	collector := NewCollector("root")
	collector.Info("started")
	child := collector.Child("checksum")
	child.Child("org.example:a:jar:1.0").Warning("MISSING: MD5")
	if again := collector.Child("checksum"); again.Result() != child.Result() {
		t.Fatal("Child created a second node for the same name")
	}
	root := collector.Result()
	if !root.IsValid() {
		t.Fatal("tree with only warnings is invalid")
	}
	child.Child("org.example:b:jar:1.0").Error("MISMATCH: SHA-1")
	if root.IsValid() {
		t.Fatal("tree with a nested error is valid")
	}
	infos, warnings, errs := root.Counts()
	if infos != 1 || warnings != 1 || errs != 1 {
		t.Errorf("Counts() = %d, %d, %d, want 1, 1, 1", infos, warnings, errs)
	}
}

func TestRegistrySelect(t *testing.T) {
	registry, err := NewRegistry(NewChecksum(Checksum{}), NewArchive(), NewPOMCompleteness(POMCompleteness{}))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	selected, err := registry.Select([]string{"pom-completeness", "checksum"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(selected) != 2 || selected[0].Name() != "checksum" || selected[1].Name() != "pom-completeness" {
		t.Errorf("Select returned %d validators in the wrong order", len(selected))
	}
	if _, err := registry.Select([]string{"checksum", "nope"}); !errors.Is(err, ErrUnknownValidator) {
		t.Errorf("Select unknown: %v, want ErrUnknownValidator", err)
	}
	if err := registry.Register(NewArchive()); !errors.Is(err, ErrDuplicateValidator) {
		t.Errorf("Register duplicate: %v, want ErrDuplicateValidator", err)
	}
}
