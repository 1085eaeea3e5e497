// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirlock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MarkerName is the name of the zero-byte file that carries the OS lock.
// It never holds data.
const MarkerName = ".lock"

// Mode is the kind of lock requested on a directory.
type Mode int

const (
	// Shared allows any number of concurrent holders.
	Shared Mode = iota
	// Exclusive admits a single holder.
	Exclusive
)

// String returns "shared" or "exclusive".
func (mode Mode) String() string {
	switch mode {
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	default:
		return fmt.Sprintf("mode(%d)", int(mode))
	}
}

// LockError reports a lock request that failed. It always names the
// directory and the requested mode.
type LockError struct {
	Directory string
	Mode      Mode
	Reason    string
	Err       error
}

func (e *LockError) Error() string {
	message := fmt.Sprintf("locking %s (%s): %s", e.Directory, e.Mode, e.Reason)
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	return message
}

func (e *LockError) Unwrap() error { return e.Err }

// entry tracks one locked directory. While pending is non-nil the OS
// lock is still being acquired and other callers wait on it.
type entry struct {
	file       *os.File
	mode       Mode
	references int
	pending    chan struct{}
}

// Manager is the per-process lock table.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewManager returns an empty lock table.
func NewManager() *Manager {
	return &Manager{entries: make(map[string]*entry)}
}

// Lock acquires directory in the given mode. The directory must exist.
// Lock blocks while another process holds a conflicting lock, and fails
// immediately when the conflict is with a reference held in this
// process.
func (m *Manager) Lock(directory string, mode Mode) error {
	key, err := canonical(directory)
	if err != nil {
		return &LockError{Directory: directory, Mode: mode, Reason: "resolving path", Err: err}
	}

	m.mu.Lock()
	for {
		existing, ok := m.entries[key]
		if !ok {
			break
		}
		if existing.pending != nil {
			wait := existing.pending
			m.mu.Unlock()
			<-wait
			m.mu.Lock()
			continue
		}
		if mode == Exclusive {
			references := existing.references
			m.mu.Unlock()
			return &LockError{
				Directory: key,
				Mode:      mode,
				Reason:    fmt.Sprintf("already held %s with %d outstanding reference(s) in this process", existing.mode, references),
			}
		}
		if existing.mode != mode {
			m.mu.Unlock()
			return &LockError{
				Directory: key,
				Mode:      mode,
				Reason:    fmt.Sprintf("conflicts with %s lock held in this process", existing.mode),
			}
		}
		existing.references++
		m.mu.Unlock()
		return nil
	}

	pending := make(chan struct{})
	placeholder := &entry{pending: pending}
	m.entries[key] = placeholder
	m.mu.Unlock()

	file, acquireErr := acquire(key, mode)

	m.mu.Lock()
	if acquireErr != nil {
		delete(m.entries, key)
	} else {
		placeholder.file = file
		placeholder.mode = mode
		placeholder.references = 1
	}
	placeholder.pending = nil
	close(pending)
	m.mu.Unlock()

	if acquireErr != nil {
		return &LockError{Directory: key, Mode: mode, Reason: "acquiring OS lock", Err: acquireErr}
	}
	return nil
}

// Unlock releases one reference on directory. The OS lock is released
// when the last reference goes away. Unlocking a directory with no
// outstanding reference is an error.
func (m *Manager) Unlock(directory string) error {
	key, err := canonical(directory)
	if err != nil {
		return fmt.Errorf("unlocking %s: resolving path: %w", directory, err)
	}

	m.mu.Lock()
	existing, ok := m.entries[key]
	if !ok || existing.pending != nil {
		m.mu.Unlock()
		return fmt.Errorf("unlocking %s: no outstanding lock reference", key)
	}
	existing.references--
	if existing.references > 0 {
		m.mu.Unlock()
		return nil
	}
	delete(m.entries, key)
	m.mu.Unlock()

	if err := release(existing.file); err != nil {
		return fmt.Errorf("unlocking %s: %w", key, err)
	}
	return nil
}

// Held reports the mode and reference count held for directory in this
// process. The count is zero when nothing is held.
func (m *Manager) Held(directory string) (Mode, int) {
	key, err := canonical(directory)
	if err != nil {
		return Shared, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.entries[key]
	if !ok || existing.pending != nil {
		return Shared, 0
	}
	return existing.mode, existing.references
}

// canonical returns the absolute, cleaned path used as the table key,
// so "store/../store" and "store" share one entry.
func canonical(directory string) (string, error) {
	absolute, err := filepath.Abs(directory)
	if err != nil {
		return "", err
	}
	return filepath.Clean(absolute), nil
}
