// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stagemanager

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bureau-foundation/staging/lib/dirlock"
	"github.com/bureau-foundation/staging/lib/stagestore"
)

// Rename records one store moved by RenumberArtifactStores.
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RenumberArtifactStores compacts every prefix group to 00001..N in
// the order of the current numbers, rewriting each moved store's name
// property, and resets the high-water marks to N. Every tracked handle
// is closed first. Stores are moved one at a time; a failure leaves
// the stores already moved in their new place.
func (m *Manager) RenumberArtifactStores() ([]Rename, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	if err := m.closeTracked(func(*stagestore.Store) bool { return true }); err != nil {
		return nil, err
	}

	m.allocation.Lock()
	defer m.allocation.Unlock()
	if err := m.locks.Lock(m.root, dirlock.Exclusive); err != nil {
		return nil, fmt.Errorf("locking store root: %w", err)
	}
	renames, renumberErr := m.renumberLocked()
	unlockErr := m.locks.Unlock(m.root)
	return renames, errors.Join(renumberErr, unlockErr)
}

type numberedStore struct {
	name   string
	number int
	meta   stagestore.Meta
}

func (m *Manager) renumberLocked() ([]Rename, error) {
	names, err := m.ListArtifactStoreNames()
	if err != nil {
		return nil, err
	}
	groups := map[string][]numberedStore{}
	for _, name := range names {
		meta, err := stagestore.ReadMeta(filepath.Join(m.root, name))
		if err != nil {
			return nil, err
		}
		number, ok := parseStoreNumber(name, meta.TemplatePrefix)
		if !ok {
			m.logger.Warn("store name does not follow its prefix, not renumbered", "store", name, "prefix", meta.TemplatePrefix)
			continue
		}
		groups[meta.TemplatePrefix] = append(groups[meta.TemplatePrefix], numberedStore{name: name, number: number, meta: meta})
	}

	marks, err := m.readSequence()
	if err != nil {
		return nil, err
	}
	prefixes := make([]string, 0, len(groups))
	for prefix := range groups {
		prefixes = append(prefixes, prefix)
	}
	slices.Sort(prefixes)

	var renames []Rename
	for _, prefix := range prefixes {
		group := groups[prefix]
		slices.SortFunc(group, func(a, b numberedStore) int { return cmp.Compare(a.number, b.number) })
		for index, store := range group {
			target := FormatStoreName(prefix, index+1)
			if target == store.name {
				continue
			}
			if err := m.move(store, target); err != nil {
				return renames, err
			}
			renames = append(renames, Rename{From: store.name, To: target})
			m.logger.Info("store renumbered", "store", target, "previous", store.name)
		}
		marks[prefix] = len(group)
	}
	if err := m.writeSequence(marks); err != nil {
		return renames, err
	}
	return renames, nil
}

// move renames one store directory under its exclusive lock. The name
// property is rewritten before the directory moves.
func (m *Manager) move(store numberedStore, target string) error {
	source := filepath.Join(m.root, store.name)
	destination := filepath.Join(m.root, target)
	if _, err := os.Stat(destination); err == nil {
		return fmt.Errorf("renumbering %s: %s already exists", store.name, target)
	}

	if err := m.locks.Lock(source, dirlock.Exclusive); err != nil {
		return fmt.Errorf("renumbering %s: %w", store.name, err)
	}
	meta := store.meta
	meta.Name = target
	moveErr := stagestore.WriteMeta(source, meta)
	if moveErr == nil {
		moveErr = os.Rename(source, destination)
		if moveErr != nil {
			store.meta.Name = store.name
			moveErr = errors.Join(moveErr, stagestore.WriteMeta(source, store.meta))
		}
	}
	unlockErr := m.locks.Unlock(source)
	if err := errors.Join(moveErr, unlockErr); err != nil {
		return fmt.Errorf("renumbering %s to %s: %w", store.name, target, err)
	}
	return nil
}
