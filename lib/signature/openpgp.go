// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"golang.org/x/crypto/openpgp"
	pgperrors "golang.org/x/crypto/openpgp/errors"
)

// Keyring is a set of OpenPGP public keys trusted for verification.
type Keyring struct {
	entities openpgp.EntityList
}

// LoadKeyring reads an armored or binary OpenPGP public keyring.
func LoadKeyring(path string) (*Keyring, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keyring: %w", err)
	}
	keyring, err := ParseKeyring(data)
	if err != nil {
		return nil, fmt.Errorf("keyring %s: %w", path, err)
	}
	return keyring, nil
}

// ParseKeyring parses armored or binary keyring data.
func ParseKeyring(data []byte) (*Keyring, error) {
	var entities openpgp.EntityList
	var err error
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN")) {
		entities, err = openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	} else {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("parsing OpenPGP keyring: %w", err)
	}
	if len(entities) == 0 {
		return nil, errors.New("keyring holds no keys")
	}
	return &Keyring{entities: entities}, nil
}

// Len returns the number of keys.
func (k *Keyring) Len() int { return len(k.entities) }

type openPGP struct {
	keyring   *Keyring
	armored   bool
	extension string
}

// ArmoredOpenPGP verifies ASCII-armored detached signatures (.asc).
func ArmoredOpenPGP(keyring *Keyring) Type {
	return &openPGP{keyring: keyring, armored: true, extension: "asc"}
}

// BinaryOpenPGP verifies binary detached signatures (.sig).
func BinaryOpenPGP(keyring *Keyring) Type {
	return &openPGP{keyring: keyring, extension: "sig"}
}

// OpenPGP returns a registry with both OpenPGP types.
func OpenPGP(keyring *Keyring) *Registry {
	registry, _ := NewRegistry(ArmoredOpenPGP(keyring), BinaryOpenPGP(keyring))
	return registry
}

func (o *openPGP) Name() string {
	if o.armored {
		return "OpenPGP (armored)"
	}
	return "OpenPGP"
}

func (o *openPGP) Extension() string { return o.extension }

func (o *openPGP) Verify(content, signature io.Reader) (string, error) {
	var signer *openpgp.Entity
	var err error
	if o.armored {
		signer, err = openpgp.CheckArmoredDetachedSignature(o.keyring.entities, content, signature)
	} else {
		signer, err = openpgp.CheckDetachedSignature(o.keyring.entities, content, signature)
	}
	switch {
	case err == nil:
		return describe(signer), nil
	case errors.Is(err, pgperrors.ErrUnknownIssuer):
		return "", fmt.Errorf("%w: signed by a key not in the keyring", ErrMismatch)
	default:
		var signatureError pgperrors.SignatureError
		if errors.As(err, &signatureError) {
			return "", fmt.Errorf("%w: %v", ErrMismatch, err)
		}
		return "", fmt.Errorf("reading %s signature: %w", o.Name(), err)
	}
}

// describe names the signer by its first identity in sorted order.
func describe(entity *openpgp.Entity) string {
	keyID := strings.ToUpper(entity.PrimaryKey.KeyIdString())
	names := slices.Sorted(maps.Keys(entity.Identities))
	if len(names) == 0 {
		return keyID
	}
	return fmt.Sprintf("%s (%s)", names[0], keyID)
}
