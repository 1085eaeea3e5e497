// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stagestore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/bureau-foundation/staging/lib/coord"
	"github.com/bureau-foundation/staging/lib/fileops"
)

// indexEntry is one "coordinate=relative/path" line.
type indexEntry struct {
	coordinate string
	path       string
}

// layoutFunc returns the layout path a coordinate must be indexed at.
type layoutFunc func(coordinate string) (string, error)

var indexLayouts = map[string]layoutFunc{
	ArtifactsIndex: func(coordinate string) (string, error) {
		artifact, err := coord.ParseArtifact(coordinate)
		if err != nil {
			return "", err
		}
		return coord.ArtifactPath(artifact), nil
	},
	MetadataIndex: func(coordinate string) (string, error) {
		metadata, err := coord.ParseMetadata(coordinate)
		if err != nil {
			return "", err
		}
		return coord.MetadataPath(metadata), nil
	},
}

// readIndex reads one of the store's indexes by name.
func (s *Store) readIndex(index string) ([]indexEntry, error) {
	return readIndex(s.indexPath(index), indexLayouts[index])
}

// readIndex parses an index file. A missing file is an empty index.
// When a coordinate appears more than once (a redeploy) the last path
// wins and the entry keeps its first position. Every path must be a
// clean slash-separated path inside the store and, when layout is
// non-nil, equal the layout path of its coordinate.
func readIndex(path string, layout layoutFunc) ([]indexEntry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []indexEntry
	positions := make(map[string]int)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		coordinate, relative, found := strings.Cut(line, "=")
		if !found || coordinate == "" || relative == "" {
			return nil, fmt.Errorf("%w: %s line %d: malformed index entry %q", ErrCorruptStore, path, lineNumber, line)
		}
		if !fs.ValidPath(relative) {
			return nil, fmt.Errorf("%w: %s line %d: path %q leaves the store", ErrCorruptStore, path, lineNumber, relative)
		}
		if layout != nil {
			want, err := layout(coordinate)
			if err != nil {
				return nil, fmt.Errorf("%w: %s line %d: %v", ErrCorruptStore, path, lineNumber, err)
			}
			if relative != want {
				return nil, fmt.Errorf("%w: %s line %d: %s indexed at %q, want %q", ErrCorruptStore, path, lineNumber, coordinate, relative, want)
			}
		}
		if position, seen := positions[coordinate]; seen {
			entries[position].path = relative
			continue
		}
		positions[coordinate] = len(entries)
		entries = append(entries, indexEntry{coordinate: coordinate, path: relative})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return entries, nil
}

// appendIndex commits entries to the index file at path. The existing
// content plus the new lines is written to a temporary file and renamed
// into place, so a crash leaves either the old index or the new one.
func appendIndex(path string, entries []indexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	var buffer bytes.Buffer
	buffer.Write(existing)
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		buffer.WriteByte('\n')
	}
	for _, entry := range entries {
		buffer.WriteString(entry.coordinate)
		buffer.WriteByte('=')
		buffer.WriteString(entry.path)
		buffer.WriteByte('\n')
	}
	return fileops.WriteFile(path, buffer.Bytes(), 0o644)
}
