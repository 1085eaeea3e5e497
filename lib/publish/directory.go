// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/staging/lib/coord"
	"github.com/bureau-foundation/staging/lib/fileops"
	"github.com/bureau-foundation/staging/lib/stagestore"
)

// DirectoryPublisher copies a store's committed artifacts, metadata and
// their checksum sidecars into Root, keeping the Maven2 layout.
// Uncommitted files in the store are never copied.
type DirectoryPublisher struct {
	Root   string
	Logger *slog.Logger
}

type publishedFile struct {
	relative string
	source   string
	artifact bool
}

// Publish implements Publisher. When the store's template forbids
// redeploy, every artifact destination is checked before anything is
// copied. Metadata is always overwritten.
func (d DirectoryPublisher) Publish(ctx context.Context, store *stagestore.Store) error {
	if d.Root == "" {
		return errors.New("publish: directory publisher has no root")
	}
	files, err := d.plan(store)
	if err != nil {
		return err
	}
	if !store.Template().AllowRedeploy() {
		for _, file := range files {
			if !file.artifact {
				continue
			}
			if _, err := os.Stat(d.target(file.relative)); err == nil {
				return fmt.Errorf("%w: %s in %s", ErrAlreadyPublished, file.relative, d.Root)
			}
		}
	}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fileops.CopyFile(file.source, d.target(file.relative)); err != nil {
			return fmt.Errorf("publishing %s: %w", file.relative, err)
		}
	}
	d.logger().Info("published to directory", "store", store.Name(), "path", d.Root, "files", len(files))
	return nil
}

func (d DirectoryPublisher) plan(store *stagestore.Store) ([]publishedFile, error) {
	artifacts, err := store.Artifacts()
	if err != nil {
		return nil, err
	}
	metadata, err := store.Metadata()
	if err != nil {
		return nil, err
	}
	var files []publishedFile
	add := func(relative, source string, artifact bool) {
		files = append(files, publishedFile{relative: relative, source: source, artifact: artifact})
		for _, algorithm := range store.ChecksumAlgorithms() {
			sidecar := stagestore.SidecarPath(relative, algorithm)
			if _, err := fs.Stat(store.FS(), sidecar); err == nil {
				files = append(files, publishedFile{
					relative: sidecar,
					source:   stagestore.SidecarPath(source, algorithm),
					artifact: artifact,
				})
			}
		}
	}
	for _, artifact := range artifacts {
		add(coord.ArtifactPath(artifact), artifact.File, true)
	}
	for _, entry := range metadata {
		add(coord.MetadataPath(entry), entry.File, false)
	}
	return files, nil
}

func (d DirectoryPublisher) target(relative string) string {
	return filepath.Join(d.Root, filepath.FromSlash(relative))
}

func (d DirectoryPublisher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}
