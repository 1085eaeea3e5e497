// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package dirlock

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// acquire opens (creating if necessary) the lock marker in directory
// and blocks until flock grants the requested mode.
func acquire(directory string, mode Mode) (*os.File, error) {
	info, err := os.Stat(directory)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", directory)
	}

	file, err := os.OpenFile(filepath.Join(directory, MarkerName), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock marker: %w", err)
	}

	operation := unix.LOCK_SH
	if mode == Exclusive {
		operation = unix.LOCK_EX
	}
	for {
		err = unix.Flock(int(file.Fd()), operation)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("flock: %w", err)
	}
	return file, nil
}

// release drops the OS lock and closes the marker descriptor.
func release(file *os.File) error {
	unlockErr := unix.Flock(int(file.Fd()), unix.LOCK_UN)
	closeErr := file.Close()
	if unlockErr != nil {
		return fmt.Errorf("flock unlock: %w", unlockErr)
	}
	return closeErr
}
