// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filippo.io/age"
)

func encrypt(t *testing.T, plaintext []byte, recipients ...string) []byte {
	t.Helper()
	var ciphertext bytes.Buffer
	writer, err := EncryptTo(&ciphertext, recipients)
	if err != nil {
		t.Fatalf("EncryptTo: %v", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return ciphertext.Bytes()
}

func identitiesFor(t *testing.T, keypair Keypair) []age.Identity {
	t.Helper()
	identities, err := age.ParseIdentities(strings.NewReader(keypair.PrivateKey + "\n"))
	if err != nil {
		t.Fatalf("ParseIdentities: %v", err)
	}
	return identities
}

func TestGenerateKeypair(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	if !strings.HasPrefix(keypair.PrivateKey, "AGE-SECRET-KEY-1") {
		t.Errorf("PrivateKey prefix wrong")
	}
	if !strings.HasPrefix(keypair.PublicKey, "age1") {
		t.Errorf("PublicKey = %q, want prefix age1", keypair.PublicKey)
	}
	if err := ParsePublicKey(keypair.PublicKey); err != nil {
		t.Errorf("ParsePublicKey: %v", err)
	}

	other, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	if other.PublicKey == keypair.PublicKey {
		t.Error("two generated keypairs share a public key")
	}
}

func TestEncryptOpenRoundTrip(t *testing.T) {
	first, _ := GenerateKeypair()
	second, _ := GenerateKeypair()
	plaintext := bytes.Repeat([]byte("bundle bytes "), 10000)

	ciphertext := encrypt(t, plaintext, first.PublicKey, second.PublicKey)
	if !IsEncrypted(ciphertext) {
		t.Fatalf("ciphertext does not start with the age header")
	}

	for _, keypair := range []Keypair{first, second} {
		reader, encrypted, err := Open(bytes.NewReader(ciphertext), identitiesFor(t, keypair))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if !encrypted {
			t.Errorf("Open reported plain input")
		}
		decrypted, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("ReadAll: %v", err)
		}
		if !bytes.Equal(decrypted, plaintext) {
			t.Errorf("decrypted %d bytes, want %d", len(decrypted), len(plaintext))
		}
	}
}

func TestOpenPassesPlainInputThrough(t *testing.T) {
	reader, encrypted, err := Open(strings.NewReader("PK\x03\x04 zip data"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if encrypted {
		t.Errorf("plain input reported as encrypted")
	}
	data, _ := io.ReadAll(reader)
	if string(data) != "PK\x03\x04 zip data" {
		t.Errorf("data = %q", data)
	}

	reader, _, err = Open(strings.NewReader("ab"), nil)
	if err != nil {
		t.Fatalf("Open(short): %v", err)
	}
	if data, _ := io.ReadAll(reader); string(data) != "ab" {
		t.Errorf("short data = %q", data)
	}
}

func TestOpenEncryptedWithoutIdentity(t *testing.T) {
	keypair, _ := GenerateKeypair()
	ciphertext := encrypt(t, []byte("secret"), keypair.PublicKey)
	if _, _, err := Open(bytes.NewReader(ciphertext), nil); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("Open = %v, want ErrNoIdentity", err)
	}

	wrong, _ := GenerateKeypair()
	if _, _, err := Open(bytes.NewReader(ciphertext), identitiesFor(t, wrong)); err == nil {
		t.Errorf("Open with the wrong identity succeeded")
	}
}

func TestEncryptToRejectsBadRecipients(t *testing.T) {
	if _, err := EncryptTo(io.Discard, nil); err == nil {
		t.Errorf("EncryptTo with no recipients succeeded")
	}
	if _, err := EncryptTo(io.Discard, []string{"not-a-key"}); err == nil {
		t.Errorf("EncryptTo with an invalid recipient succeeded")
	}
}

func TestLoadIdentities(t *testing.T) {
	keypair, _ := GenerateKeypair()
	path := filepath.Join(t.TempDir(), "identity.txt")
	content := "# created by keygen\n# public key: " + keypair.PublicKey + "\n" + keypair.PrivateKey + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	identities, err := LoadIdentities(path)
	if err != nil {
		t.Fatalf("LoadIdentities: %v", err)
	}
	if len(identities) != 1 {
		t.Fatalf("identities = %d, want 1", len(identities))
	}
	if _, err := LoadIdentities(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Errorf("LoadIdentities(missing) succeeded")
	}
}
