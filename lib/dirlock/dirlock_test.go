// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirlock

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/staging/lib/testutil"
)

func TestSharedLocksStack(t *testing.T) {
	directory := t.TempDir()
	manager := NewManager()

	if err := manager.Lock(directory, Shared); err != nil {
		t.Fatalf("first shared Lock failed: %v", err)
	}
	if err := manager.Lock(directory, Shared); err != nil {
		t.Fatalf("second shared Lock failed: %v", err)
	}

	mode, references := manager.Held(directory)
	if mode != Shared || references != 2 {
		t.Errorf("Held = (%v, %d), want (shared, 2)", mode, references)
	}

	info, err := os.Stat(filepath.Join(directory, MarkerName))
	if err != nil {
		t.Fatalf("lock marker missing: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("lock marker size = %d, want 0", info.Size())
	}

	for i := 0; i < 2; i++ {
		if err := manager.Unlock(directory); err != nil {
			t.Fatalf("Unlock %d failed: %v", i, err)
		}
	}
	if _, references := manager.Held(directory); references != 0 {
		t.Errorf("references after full unlock = %d, want 0", references)
	}
}

func TestExclusiveWhileReferencedFails(t *testing.T) {
	directory := t.TempDir()
	manager := NewManager()

	if err := manager.Lock(directory, Shared); err != nil {
		t.Fatal(err)
	}
	defer manager.Unlock(directory)

	err := manager.Lock(directory, Exclusive)
	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("Lock(exclusive) error = %v, want *LockError", err)
	}
	if lockErr.Mode != Exclusive {
		t.Errorf("LockError.Mode = %v, want exclusive", lockErr.Mode)
	}
	if !strings.Contains(err.Error(), directory) {
		t.Errorf("error %q does not name directory %s", err, directory)
	}

	// The failed request must not have disturbed the shared reference.
	if mode, references := manager.Held(directory); mode != Shared || references != 1 {
		t.Errorf("Held = (%v, %d), want (shared, 1)", mode, references)
	}
}

func TestSharedWhileExclusiveFails(t *testing.T) {
	directory := t.TempDir()
	manager := NewManager()

	if err := manager.Lock(directory, Exclusive); err != nil {
		t.Fatal(err)
	}
	defer manager.Unlock(directory)

	err := manager.Lock(directory, Shared)
	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("Lock(shared) error = %v, want *LockError", err)
	}
	if lockErr.Mode != Shared {
		t.Errorf("LockError.Mode = %v, want shared", lockErr.Mode)
	}
}

func TestExclusiveAfterRelease(t *testing.T) {
	directory := t.TempDir()
	manager := NewManager()

	if err := manager.Lock(directory, Shared); err != nil {
		t.Fatal(err)
	}
	if err := manager.Unlock(directory); err != nil {
		t.Fatal(err)
	}
	if err := manager.Lock(directory, Exclusive); err != nil {
		t.Fatalf("Lock(exclusive) after release failed: %v", err)
	}
	if err := manager.Unlock(directory); err != nil {
		t.Fatal(err)
	}
}

func TestUnlockWithoutReference(t *testing.T) {
	manager := NewManager()
	if err := manager.Unlock(t.TempDir()); err == nil {
		t.Fatal("Unlock without a reference should fail")
	}
}

func TestLockMissingDirectory(t *testing.T) {
	manager := NewManager()
	directory := filepath.Join(t.TempDir(), "absent")
	err := manager.Lock(directory, Shared)
	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("error = %v, want *LockError", err)
	}
	if _, references := manager.Held(directory); references != 0 {
		t.Error("failed acquisition left a table entry behind")
	}
}

func TestEquivalentPathsShareEntry(t *testing.T) {
	directory := t.TempDir()
	manager := NewManager()

	if err := manager.Lock(directory, Shared); err != nil {
		t.Fatal(err)
	}
	alias := filepath.Join(directory, "..", filepath.Base(directory))
	if err := manager.Lock(alias, Shared); err != nil {
		t.Fatal(err)
	}
	if _, references := manager.Held(directory); references != 2 {
		t.Errorf("references = %d, want 2", references)
	}
	manager.Unlock(alias)
	manager.Unlock(directory)
}

// Two Managers stand in for two processes: flock conflicts between
// distinct open file descriptions even within one process.
func TestExclusiveBlocksAcrossManagers(t *testing.T) {
	directory := t.TempDir()
	first := NewManager()
	second := NewManager()

	if err := first.Lock(directory, Shared); err != nil {
		t.Fatal(err)
	}

	acquired := make(chan error, 1)
	go func() {
		acquired <- second.Lock(directory, Exclusive)
	}()

	select {
	case err := <-acquired:
		t.Fatalf("exclusive lock acquired while another holder has it shared (err = %v)", err)
	case <-time.After(100 * time.Millisecond): //nolint:realclock verifying a blocked flock
	}

	if err := first.Unlock(directory); err != nil {
		t.Fatal(err)
	}
	if err := testutil.RequireReceive(t, acquired, 5*time.Second, "waiting for exclusive lock"); err != nil {
		t.Fatalf("exclusive Lock failed after release: %v", err)
	}
	if err := second.Unlock(directory); err != nil {
		t.Fatal(err)
	}
}

func TestModeString(t *testing.T) {
	if Shared.String() != "shared" || Exclusive.String() != "exclusive" {
		t.Errorf("unexpected mode strings %q %q", Shared, Exclusive)
	}
}
