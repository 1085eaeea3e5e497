// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fileops

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Predicate selects entries during a tree walk. The path is relative to
// the walk root and always uses forward slashes. Returning false for a
// directory skips its whole subtree.
type Predicate func(relativePath string, entry fs.DirEntry) bool

// WriteFile atomically replaces path with data. Parent directories are
// created as needed.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	return WriteFileFrom(path, bytes.NewReader(data), perm)
}

// WriteFileFrom atomically replaces path with the content read from r.
// The content is written to a temporary file in the same directory,
// synced, and renamed into place. On any failure the temporary file is
// removed and path is left untouched.
func WriteFileFrom(path string, r io.Reader, perm os.FileMode) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", directory, err)
	}

	tmpFile, err := os.CreateTemp(directory, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	tmpPath := tmpFile.Name()

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temporary file for %s: %w", path, err)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("setting mode on temporary file for %s: %w", path, err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temporary file for %s: %w", path, err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temporary file for %s: %w", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s into place: %w", path, err)
	}

	SyncDirectory(directory)
	return nil
}

// SyncDirectory fsyncs a directory so that renames and creations inside
// it survive power loss. Errors are ignored: some filesystems refuse to
// sync directories, and the rename itself has already succeeded.
func SyncDirectory(directory string) {
	handle, err := os.Open(directory)
	if err != nil {
		return
	}
	handle.Sync()
	handle.Close()
}

// CopyFile atomically copies the regular file at source to destination,
// preserving the permission bits.
func CopyFile(source, destination string) error {
	input, err := os.Open(source)
	if err != nil {
		return err
	}
	defer input.Close()

	info, err := input.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", source, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("copying %s: not a regular file", source)
	}
	return WriteFileFrom(destination, input, info.Mode().Perm())
}

// CopyTree copies the directory tree rooted at source into destination.
// Entries for which keep returns false are skipped; a nil keep copies
// everything. Only directories and regular files are copied. Each file
// is written atomically, but the tree as a whole is not.
func CopyTree(source, destination string, keep Predicate) error {
	return filepath.WalkDir(source, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		relative, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		if relative == "." {
			return os.MkdirAll(destination, 0o755)
		}
		slashed := filepath.ToSlash(relative)
		if keep != nil && !keep(slashed, entry) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(destination, relative)
		switch {
		case entry.IsDir():
			return os.MkdirAll(target, 0o755)
		case entry.Type().IsRegular():
			return CopyFile(path, target)
		default:
			return nil
		}
	})
}

// DeleteTree removes entries under root. With a nil match the whole
// tree, root included, is removed. Otherwise only regular files for
// which match returns true are removed, followed by any directories
// left empty as a result; root itself is kept. Deleting a root that
// does not exist is not an error.
func DeleteTree(root string, match Predicate) error {
	if match == nil {
		if err := os.RemoveAll(root); err != nil {
			return fmt.Errorf("removing %s: %w", root, err)
		}
		return nil
	}

	var touchedDirectories []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) && path == root {
				return filepath.SkipAll
			}
			return walkErr
		}
		relative, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if relative == "." || entry.IsDir() {
			return nil
		}
		if !match(filepath.ToSlash(relative), entry) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
		touchedDirectories = append(touchedDirectories, filepath.Dir(path))
		return nil
	})
	if err != nil {
		return err
	}

	// Deepest directories first so parents can become empty in turn.
	sort.Slice(touchedDirectories, func(i, j int) bool {
		return len(touchedDirectories[i]) > len(touchedDirectories[j])
	})
	for _, directory := range touchedDirectories {
		for directory != root && len(directory) > len(root) {
			if err := os.Remove(directory); err != nil {
				break
			}
			directory = filepath.Dir(directory)
		}
	}
	return nil
}
