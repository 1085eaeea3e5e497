// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stagemanager

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bureau-foundation/staging/lib/dirlock"
	"github.com/bureau-foundation/staging/lib/fileops"
	"github.com/bureau-foundation/staging/lib/stagestore"
	"github.com/bureau-foundation/staging/lib/template"
)

// SequenceFile holds the per-prefix high-water marks, one
// "prefix=number" line each.
const SequenceFile = ".sequence"

// FormatStoreName returns "<prefix>-<number zero-padded to 5 digits>".
func FormatStoreName(prefix string, number int) string {
	return fmt.Sprintf("%s-%05d", prefix, number)
}

// parseStoreNumber extracts the sequence number from a name of the
// form "<prefix>-<digits>".
func parseStoreNumber(name, prefix string) (int, bool) {
	digits, found := strings.CutPrefix(name, prefix+"-")
	if !found || digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	number, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return number, true
}

// allocate reserves the next name for prefix by creating its
// directory. The directory carries no properties file yet, so it is
// invisible to listings until the caller creates the store in it.
func (m *Manager) allocate(prefix string) (string, string, error) {
	m.allocation.Lock()
	defer m.allocation.Unlock()

	if err := m.locks.Lock(m.root, dirlock.Exclusive); err != nil {
		return "", "", fmt.Errorf("locking store root: %w", err)
	}
	name, basedir, allocateErr := m.allocateLocked(prefix)
	unlockErr := m.locks.Unlock(m.root)
	if err := errors.Join(allocateErr, unlockErr); err != nil {
		return "", "", fmt.Errorf("allocating store name for prefix %s: %w", prefix, err)
	}
	return name, basedir, nil
}

func (m *Manager) allocateLocked(prefix string) (string, string, error) {
	highest, err := m.highestNumber(prefix)
	if err != nil {
		return "", "", err
	}
	marks, err := m.readSequence()
	if err != nil {
		return "", "", err
	}
	next := max(highest, marks[prefix]) + 1

	for {
		name := FormatStoreName(prefix, next)
		if !template.ValidName(name) {
			return "", "", fmt.Errorf("%w: %q", stagestore.ErrInvalidName, name)
		}
		basedir := filepath.Join(m.root, name)
		err := os.Mkdir(basedir, 0o755)
		if errors.Is(err, fs.ErrExist) {
			next++
			continue
		}
		if err != nil {
			return "", "", err
		}
		marks[prefix] = next
		if err := m.writeSequence(marks); err != nil {
			return "", "", errors.Join(err, os.Remove(basedir))
		}
		return name, basedir, nil
	}
}

// highestNumber scans every directory under the root, store or not,
// for the largest number used with prefix.
func (m *Manager) highestNumber(prefix string) (int, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if number, ok := parseStoreNumber(entry.Name(), prefix); ok && number > highest {
			highest = number
		}
	}
	return highest, nil
}

func (m *Manager) readSequence() (map[string]int, error) {
	data, err := os.ReadFile(filepath.Join(m.root, SequenceFile))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, err
	}
	properties, err := stagestore.DecodeProperties(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", SequenceFile, err)
	}
	marks := make(map[string]int, len(properties))
	for prefix, value := range properties {
		number, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: prefix %s: %w", SequenceFile, prefix, err)
		}
		marks[prefix] = number
	}
	return marks, nil
}

func (m *Manager) writeSequence(marks map[string]int) error {
	properties := make(map[string]string, len(marks))
	for prefix, number := range marks {
		properties[prefix] = strconv.Itoa(number)
	}
	return fileops.WriteFile(filepath.Join(m.root, SequenceFile), stagestore.EncodeProperties(properties), 0o644)
}
