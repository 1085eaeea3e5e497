// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
)

// Header is the first line of every binary age file.
const Header = "age-encryption.org/v1\n"

// ErrNoIdentity is returned when decrypting an encrypted stream
// without any identity to try.
var ErrNoIdentity = errors.New("sealed: encrypted input but no identity supplied")

// Keypair holds an age x25519 keypair. PrivateKey must never be logged
// or passed on a command line; write it to a 0600 identity file.
type Keypair struct {
	// PrivateKey is the secret key in AGE-SECRET-KEY-1... format.
	PrivateKey string

	// PublicKey is the corresponding recipient in age1... format.
	PublicKey string
}

// GenerateKeypair generates a new age x25519 keypair.
func GenerateKeypair() (Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return Keypair{}, fmt.Errorf("generating age keypair: %w", err)
	}
	return Keypair{
		PrivateKey: identity.String(),
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// ParseRecipients parses age1... public keys.
func ParseRecipients(recipientKeys []string) ([]age.Recipient, error) {
	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}
	return recipients, nil
}

// LoadIdentities reads an age identity file: one AGE-SECRET-KEY-1...
// per line, with # comments.
func LoadIdentities(path string) ([]age.Identity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening identity file: %w", err)
	}
	defer file.Close()
	identities, err := age.ParseIdentities(file)
	if err != nil {
		return nil, fmt.Errorf("parsing identity file %s: %w", path, err)
	}
	return identities, nil
}

// EncryptTo returns a writer that encrypts everything written to it
// for the given recipients. Close must be called to flush the final
// chunk; it does not close w.
func EncryptTo(w io.Writer, recipientKeys []string) (io.WriteCloser, error) {
	if len(recipientKeys) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}
	recipients, err := ParseRecipients(recipientKeys)
	if err != nil {
		return nil, err
	}
	writer, err := age.Encrypt(w, recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	return writer, nil
}

// Open returns a reader over the plaintext of r. Input that does not
// start with the age header is passed through unchanged, so callers
// can accept encrypted and plain streams alike. The returned flag
// reports whether the input was encrypted.
func Open(r io.Reader, identities []age.Identity) (io.Reader, bool, error) {
	buffered := bufio.NewReader(r)
	peeked, err := buffered.Peek(len(Header))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, false, err
	}
	if !IsEncrypted(peeked) {
		return buffered, false, nil
	}
	if len(identities) == 0 {
		return nil, true, ErrNoIdentity
	}
	plaintext, err := age.Decrypt(buffered, identities...)
	if err != nil {
		return nil, true, fmt.Errorf("decrypting: %w", err)
	}
	return plaintext, true, nil
}

// IsEncrypted reports whether prefix starts with the age header.
func IsEncrypted(prefix []byte) bool {
	return bytes.HasPrefix(prefix, []byte(Header))
}

// ParsePublicKey validates an age public key string.
func ParsePublicKey(publicKey string) error {
	if _, err := age.ParseX25519Recipient(publicKey); err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}
