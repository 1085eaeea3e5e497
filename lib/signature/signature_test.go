// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
)

func newSigner(t *testing.T, name string) *openpgp.Entity {
	t.Helper()
	entity, err := openpgp.NewEntity(name, "", name+"@example.org", nil)
	if err != nil {
		t.Fatalf("NewEntity: %v", err)
	}
	return entity
}

func armoredPublicKey(t *testing.T, entities ...*openpgp.Entity) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer, err := armor.Encode(&buffer, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("armor.Encode: %v", err)
	}
	for _, entity := range entities {
		if err := entity.Serialize(writer); err != nil {
			t.Fatalf("Serialize: %v", err)
		}
	}
	writer.Close()
	return buffer.Bytes()
}

func TestOpenPGPVerify(t *testing.T) {
	signer := newSigner(t, "release-bot")
	stranger := newSigner(t, "stranger")
	keyring, err := ParseKeyring(armoredPublicKey(t, signer))
	if err != nil {
		t.Fatalf("ParseKeyring: %v", err)
	}
	content := []byte("artifact bytes")

	var armored, binary, foreign bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&armored, signer, bytes.NewReader(content), nil); err != nil {
		t.Fatalf("ArmoredDetachSign: %v", err)
	}
	if err := openpgp.DetachSign(&binary, signer, bytes.NewReader(content), nil); err != nil {
		t.Fatalf("DetachSign: %v", err)
	}
	if err := openpgp.ArmoredDetachSign(&foreign, stranger, bytes.NewReader(content), nil); err != nil {
		t.Fatalf("ArmoredDetachSign: %v", err)
	}

	asc := ArmoredOpenPGP(keyring)
	sig := BinaryOpenPGP(keyring)

	who, err := asc.Verify(bytes.NewReader(content), bytes.NewReader(armored.Bytes()))
	if err != nil {
		t.Fatalf("armored Verify: %v", err)
	}
	if !strings.HasPrefix(who, "release-bot") {
		t.Errorf("signer = %q", who)
	}
	if _, err := sig.Verify(bytes.NewReader(content), bytes.NewReader(binary.Bytes())); err != nil {
		t.Errorf("binary Verify: %v", err)
	}

	_, err = asc.Verify(strings.NewReader("tampered bytes"), bytes.NewReader(armored.Bytes()))
	if !errors.Is(err, ErrMismatch) {
		t.Errorf("tampered content = %v, want ErrMismatch", err)
	}
	_, err = asc.Verify(bytes.NewReader(content), bytes.NewReader(foreign.Bytes()))
	if !errors.Is(err, ErrMismatch) {
		t.Errorf("unknown signer = %v, want ErrMismatch", err)
	}
	if _, err := asc.Verify(bytes.NewReader(content), strings.NewReader("garbage")); err == nil {
		t.Errorf("garbage signature verified")
	}
}

func TestLoadKeyring(t *testing.T) {
	signer := newSigner(t, "loader")
	directory := t.TempDir()

	armoredPath := filepath.Join(directory, "keys.asc")
	if err := os.WriteFile(armoredPath, armoredPublicKey(t, signer), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	keyring, err := LoadKeyring(armoredPath)
	if err != nil {
		t.Fatalf("LoadKeyring(armored): %v", err)
	}
	if keyring.Len() != 1 {
		t.Errorf("Len = %d, want 1", keyring.Len())
	}

	var binary bytes.Buffer
	if err := signer.Serialize(&binary); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	binaryPath := filepath.Join(directory, "keys.gpg")
	if err := os.WriteFile(binaryPath, binary.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadKeyring(binaryPath); err != nil {
		t.Errorf("LoadKeyring(binary): %v", err)
	}

	if _, err := LoadKeyring(filepath.Join(directory, "missing")); err == nil {
		t.Errorf("LoadKeyring(missing) succeeded")
	}
}

func TestRegistry(t *testing.T) {
	registry := OpenPGP(&Keyring{})
	if got := registry.Extensions(); len(got) != 2 || got[0] != "asc" || got[1] != "sig" {
		t.Errorf("Extensions = %v", got)
	}
	if signatureType, ok := registry.Lookup(".ASC"); !ok || signatureType.Extension() != "asc" {
		t.Errorf("Lookup(.ASC) = %v, %v", signatureType, ok)
	}
	if _, ok := registry.Lookup("sigstore"); ok {
		t.Errorf("Lookup(sigstore) found a type")
	}
	if !registry.IsSignature("org/foo/bar-1.0.jar.asc") || registry.IsSignature("org/foo/bar-1.0.jar") {
		t.Errorf("IsSignature misclassifies")
	}
	if err := registry.Register(BinaryOpenPGP(&Keyring{})); !errors.Is(err, ErrDuplicateType) {
		t.Errorf("duplicate Register = %v, want ErrDuplicateType", err)
	}
	if types := registry.Types(); types[0].Name() != "OpenPGP (armored)" || types[1].Name() != "OpenPGP" {
		t.Errorf("Types order wrong")
	}
}
