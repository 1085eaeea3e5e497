// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stagestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bureau-foundation/staging/lib/checksum"
	"github.com/bureau-foundation/staging/lib/coord"
	"github.com/bureau-foundation/staging/lib/fileops"
)

// Operation is an open put. The store holds its exclusive lock until
// Close. Content is placed with Install (or by the caller at the paths
// reported by Artifacts and Metadata); Close then commits the index.
type Operation struct {
	store    *Store
	sources  []string
	planned  []plannedEntry
	created  []createdPath
	mu       sync.Mutex
	canceled bool
	closed   bool
}

// createdPath is a file or directory Install brought into existence.
type createdPath struct {
	path      string
	directory bool
}

type plannedEntry struct {
	index    string
	entry    indexEntry
	artifact *coord.Artifact
	metadata *coord.Metadata
}

// Put validates a batch and opens an Operation for it. Every artifact
// and metadata entry must carry an existing regular File, every
// artifact's snapshot-ness must match the repository mode, and unless
// the store is WriteMany no artifact may already be present and no
// target may appear twice in the batch. A failed Put leaves the store
// and its index untouched.
func (s *Store) Put(artifacts []coord.Artifact, metadata []coord.Metadata) (*Operation, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if s.writeMode == ReadOnly {
		return nil, fmt.Errorf("put into store %s: %w", s.meta.Name, ErrReadOnly)
	}

	operation := &Operation{store: s}
	for i := range artifacts {
		artifact := artifacts[i]
		if err := artifact.Validate(); err != nil {
			return nil, err
		}
		if err := checkBackingFile(artifact.String(), artifact.File); err != nil {
			return nil, err
		}
		if !s.meta.RepositoryMode.Accepts(artifact.IsSnapshot()) {
			return nil, fmt.Errorf("%w: %s into %s store %s", ErrRepositoryModeMismatch, artifact, s.meta.RepositoryMode, s.meta.Name)
		}
		relative := coord.ArtifactPath(artifact)
		target := artifact.WithFile(s.absolute(relative))
		operation.sources = append(operation.sources, artifact.File)
		operation.planned = append(operation.planned, plannedEntry{
			index:    ArtifactsIndex,
			entry:    indexEntry{coordinate: artifact.String(), path: relative},
			artifact: &target,
		})
	}
	for i := range metadata {
		entry := metadata[i]
		if err := entry.Validate(); err != nil {
			return nil, err
		}
		if err := checkBackingFile(entry.String(), entry.File); err != nil {
			return nil, err
		}
		relative := coord.MetadataPath(entry)
		target := entry.WithFile(s.absolute(relative))
		operation.sources = append(operation.sources, entry.File)
		operation.planned = append(operation.planned, plannedEntry{
			index:    MetadataIndex,
			entry:    indexEntry{coordinate: entry.String(), path: relative},
			metadata: &target,
		})
	}

	if s.writeMode != WriteMany {
		if err := operation.checkDuplicates(); err != nil {
			return nil, err
		}
	}

	if err := s.beginMutation(); err != nil {
		return nil, err
	}
	if s.writeMode != WriteMany {
		if err := operation.checkOverwrite(); err != nil {
			return nil, errors.Join(err, s.endMutation())
		}
	}
	return operation, nil
}

func checkBackingFile(coordinate, file string) error {
	if file == "" {
		return fmt.Errorf("%w: %s", ErrMissingBackingFile, coordinate)
	}
	info, err := os.Stat(file)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMissingBackingFile, coordinate, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s: %s is not a regular file", ErrMissingBackingFile, coordinate, file)
	}
	return nil
}

func (o *Operation) checkDuplicates() error {
	targets := make(map[string]string, len(o.planned))
	for _, planned := range o.planned {
		if first, seen := targets[planned.entry.path]; seen {
			if first == planned.entry.coordinate {
				return fmt.Errorf("%w: %s appears twice in one put", ErrRedeployNotAllowed, first)
			}
			return fmt.Errorf("%w: %s and %s both target %s", ErrRedeployNotAllowed, first, planned.entry.coordinate, planned.entry.path)
		}
		targets[planned.entry.path] = planned.entry.coordinate
	}
	return nil
}

// checkOverwrite runs under the exclusive lock. Metadata is exempt:
// repository metadata is rewritten on every deploy.
func (o *Operation) checkOverwrite() error {
	indexed, err := o.store.readIndex(ArtifactsIndex)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(indexed))
	for _, entry := range indexed {
		present[entry.coordinate] = true
	}
	for _, planned := range o.planned {
		if planned.artifact == nil {
			continue
		}
		_, statErr := os.Stat(planned.artifact.File)
		if present[planned.entry.coordinate] || statErr == nil {
			return fmt.Errorf("%w: %s already exists in store %s", ErrRedeployNotAllowed, planned.entry.coordinate, o.store.meta.Name)
		}
	}
	return nil
}

// Artifacts returns the planned artifacts with File set to the path
// inside the store where their content belongs.
func (o *Operation) Artifacts() []coord.Artifact {
	var artifacts []coord.Artifact
	for _, planned := range o.planned {
		if planned.artifact != nil {
			artifacts = append(artifacts, *planned.artifact)
		}
	}
	return artifacts
}

// Metadata returns the planned metadata with File set to the path
// inside the store where their content belongs.
func (o *Operation) Metadata() []coord.Metadata {
	var metadata []coord.Metadata
	for _, planned := range o.planned {
		if planned.metadata != nil {
			metadata = append(metadata, *planned.metadata)
		}
	}
	return metadata
}

// Install copies every backing file to its target and writes checksum
// sidecars for each target that does not match an omitted extension.
// Files and directories it creates are recorded so that Close after
// Cancel can remove them.
func (o *Operation) Install() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.canceled {
		return ErrOperationClosed
	}

	for i, planned := range o.planned {
		target := o.store.absolute(planned.entry.path)
		if err := o.makeParents(filepath.Dir(target)); err != nil {
			return err
		}
		source := o.sources[i]
		if err := o.place(target, func() error { return fileops.CopyFile(source, target) }); err != nil {
			return fmt.Errorf("installing %s: %w", planned.entry.coordinate, err)
		}
		if o.store.omitsChecksums(planned.entry.path) {
			continue
		}
		if err := o.writeSidecars(target); err != nil {
			return fmt.Errorf("installing %s: %w", planned.entry.coordinate, err)
		}
	}
	return nil
}

func (o *Operation) writeSidecars(target string) error {
	algorithms := o.store.algorithms
	if len(algorithms) == 0 {
		return nil
	}
	digests, err := checksum.ComputeFile(target, algorithms)
	if err != nil {
		return err
	}
	for _, algorithm := range algorithms {
		sidecar := target + "." + algorithm.Extension
		content := []byte(digests[algorithm.Name])
		if err := o.place(sidecar, func() error { return fileops.WriteFile(sidecar, content, 0o644) }); err != nil {
			return err
		}
	}
	return nil
}

// makeParents creates directory and its missing ancestors below the
// store root, recording each one it creates.
func (o *Operation) makeParents(directory string) error {
	var missing []string
	for dir := directory; dir != o.store.basedir && dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		if _, err := os.Lstat(dir); err == nil {
			break
		}
		missing = append(missing, dir)
	}
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return err
	}
	for i := len(missing) - 1; i >= 0; i-- {
		o.created = append(o.created, createdPath{path: missing[i], directory: true})
	}
	return nil
}

// place runs write and records path when it did not exist before.
// A file that was overwritten is not recorded.
func (o *Operation) place(path string, write func() error) error {
	_, statErr := os.Lstat(path)
	if err := write(); err != nil {
		return err
	}
	if errors.Is(statErr, fs.ErrNotExist) {
		o.created = append(o.created, createdPath{path: path})
	}
	return nil
}

// removeCreated deletes what Install created, newest first. Directories
// that still hold other content are kept.
func (o *Operation) removeCreated() error {
	var errs []error
	for i := len(o.created) - 1; i >= 0; i-- {
		created := o.created[i]
		err := os.Remove(created.path)
		if created.directory || err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		errs = append(errs, err)
	}
	o.created = nil
	return errors.Join(errs...)
}

// Cancel abandons the put: Close releases the lock without touching
// the index, after removing the files and directories Install created.
// Content that Install overwrote in a WriteMany store is not restored.
func (o *Operation) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.canceled = true
	}
}

// Close commits the index (unless canceled) and downgrades the store
// back to its shared lock. Calling Close again is a no-op.
func (o *Operation) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true

	var commitErr error
	if o.canceled {
		if err := o.removeCreated(); err != nil {
			commitErr = fmt.Errorf("removing canceled put from store %s: %w", o.store.meta.Name, err)
		}
	} else {
		commitErr = o.commit()
	}
	return errors.Join(commitErr, o.store.endMutation())
}

func (o *Operation) commit() error {
	byIndex := map[string][]indexEntry{}
	for _, planned := range o.planned {
		byIndex[planned.index] = append(byIndex[planned.index], planned.entry)
	}
	for _, index := range []string{ArtifactsIndex, MetadataIndex} {
		if err := appendIndex(o.store.indexPath(index), byIndex[index]); err != nil {
			return fmt.Errorf("committing %s index of store %s: %w", index, o.store.meta.Name, err)
		}
	}
	o.store.logger.Debug("put committed",
		"artifacts", len(byIndex[ArtifactsIndex]),
		"metadata", len(byIndex[MetadataIndex]),
	)
	return nil
}

// SidecarPath returns the checksum sibling of a layout path.
func SidecarPath(relative string, algorithm checksum.Algorithm) string {
	return relative + "." + algorithm.Extension
}

// Exists reports whether relative names a regular file in the store.
func (s *Store) Exists(relative string) bool {
	if err := s.checkOpen(); err != nil {
		return false
	}
	if !fs.ValidPath(relative) {
		return false
	}
	info, err := fs.Stat(s.FS(), relative)
	return err == nil && info.Mode().IsRegular()
}
