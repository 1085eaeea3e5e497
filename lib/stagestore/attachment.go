// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stagestore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/bureau-foundation/staging/lib/fileops"
)

var attachmentNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]*$`)

// Attachments lists the names of stored attachments in sorted order.
func (s *Store) Attachments() ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.attachmentsDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// AttachmentContent opens the named attachment.
func (s *Store) AttachmentContent(name string) (io.ReadCloser, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := checkAttachmentName(name); err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(s.attachmentsDir(), name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in store %s", ErrAttachmentNotFound, name, s.meta.Name)
	}
	return file, err
}

// ManageAttachment opens a handle for writing or deleting the named
// attachment. The store holds its exclusive lock until the handle is
// closed.
func (s *Store) ManageAttachment(name string) (*Attachment, error) {
	if err := checkAttachmentName(name); err != nil {
		return nil, err
	}
	if err := s.beginMutation(); err != nil {
		return nil, err
	}
	return &Attachment{store: s, name: name}, nil
}

func checkAttachmentName(name string) error {
	if !attachmentNamePattern.MatchString(name) {
		return fmt.Errorf("%w: attachment %q", ErrInvalidName, name)
	}
	return nil
}

// Attachment is an open attachment mutation. Exactly one of Write or
// Delete may be called; Close commits it.
type Attachment struct {
	store *Store
	name  string

	mu       sync.Mutex
	staged   string
	deleting bool
	canceled bool
	closed   bool
}

// Name returns the attachment name.
func (a *Attachment) Name() string { return a.name }

// Write stages content for the attachment. Fails with
// ErrAttachmentExists when the name is already taken.
func (a *Attachment) Write(content io.Reader) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkUnused(); err != nil {
		return err
	}
	if a.exists() {
		return fmt.Errorf("%w: %s in store %s", ErrAttachmentExists, a.name, a.store.meta.Name)
	}

	directory := a.store.attachmentsDir()
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return err
	}
	staged, err := os.CreateTemp(directory, "."+a.name+"-*.tmp")
	if err != nil {
		return err
	}
	if _, err := io.Copy(staged, content); err != nil {
		staged.Close()
		os.Remove(staged.Name())
		return fmt.Errorf("staging attachment %s: %w", a.name, err)
	}
	if err := staged.Sync(); err != nil {
		staged.Close()
		os.Remove(staged.Name())
		return err
	}
	if err := staged.Close(); err != nil {
		os.Remove(staged.Name())
		return err
	}
	a.staged = staged.Name()
	return nil
}

// Delete marks the attachment for removal on Close.
func (a *Attachment) Delete() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkUnused(); err != nil {
		return err
	}
	if !a.exists() {
		return fmt.Errorf("%w: %s in store %s", ErrAttachmentNotFound, a.name, a.store.meta.Name)
	}
	a.deleting = true
	return nil
}

// Cancel discards whatever Write or Delete staged.
func (a *Attachment) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.canceled = true
	if a.staged != "" {
		os.Remove(a.staged)
		a.staged = ""
	}
	a.deleting = false
}

// Close commits the staged change and downgrades the store back to
// its shared lock. Calling Close again is a no-op.
func (a *Attachment) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	var commitErr error
	target := filepath.Join(a.store.attachmentsDir(), a.name)
	switch {
	case a.staged != "":
		commitErr = os.Rename(a.staged, target)
		if commitErr != nil {
			os.Remove(a.staged)
		} else {
			fileops.SyncDirectory(a.store.attachmentsDir())
			a.store.logger.Debug("attachment written", "attachment", a.name)
		}
	case a.deleting:
		commitErr = os.Remove(target)
		if commitErr == nil {
			fileops.SyncDirectory(a.store.attachmentsDir())
			a.store.logger.Debug("attachment deleted", "attachment", a.name)
		}
	}
	return errors.Join(commitErr, a.store.endMutation())
}

func (a *Attachment) checkUnused() error {
	if a.closed || a.canceled {
		return ErrOperationClosed
	}
	if a.staged != "" || a.deleting {
		return fmt.Errorf("attachment %s: %w", a.name, ErrOperationInProgress)
	}
	return nil
}

func (a *Attachment) exists() bool {
	info, err := os.Stat(filepath.Join(a.store.attachmentsDir(), a.name))
	return err == nil && info.Mode().IsRegular()
}

func (s *Store) attachmentsDir() string {
	return filepath.Join(s.basedir, AttachmentsDir)
}
