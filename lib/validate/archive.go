// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"archive/zip"
	"context"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/bureau-foundation/staging/lib/coord"
	"github.com/bureau-foundation/staging/lib/stagestore"
)

// archiveExtensions are the zip-based packagings Archive inspects.
var archiveExtensions = map[string]bool{
	"jar": true,
	"war": true,
	"ear": true,
	"aar": true,
	"zip": true,
}

const manifestPath = "META-INF/MANIFEST.MF"

// Archive opens every zip-based artifact and reads each entry through
// its CRC check.
type Archive struct{}

// NewArchive returns a per-artifact archive integrity validator.
func NewArchive() Validator { return PerArtifact(Archive{}) }

func (Archive) Name() string { return "archive" }

func (Archive) Description() string {
	return "zip-based artifacts open, are non-empty and pass entry CRC checks"
}

func (Archive) Applies(_ *stagestore.Store, artifact coord.Artifact) bool {
	return archiveExtensions[artifact.Extension]
}

func (Archive) ValidateArtifact(ctx context.Context, _ *stagestore.Store, artifact coord.Artifact, collector *Collector) error {
	reader, err := zip.OpenReader(artifact.File)
	if err != nil {
		collector.Error("not a readable zip archive: %v", err)
		return nil
	}
	defer reader.Close()
	reader.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	if len(reader.File) == 0 {
		collector.Error("archive is empty")
		return nil
	}
	corrupt := false
	hasManifest := false
	for _, entry := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.Name == manifestPath {
			hasManifest = true
		}
		if entry.FileInfo().IsDir() {
			continue
		}
		if err := readEntry(entry); err != nil {
			collector.Error("entry %s: %v", entry.Name, err)
			corrupt = true
		}
	}
	if artifact.Extension == "jar" && artifact.Classifier == "" && !hasManifest {
		collector.Warning("jar has no %s", manifestPath)
	}
	if !corrupt {
		collector.Info("OK: %d entries", len(reader.File))
	}
	return nil
}

// readEntry drains one entry; the zip reader verifies the CRC at EOF.
func readEntry(entry *zip.File) error {
	content, err := entry.Open()
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(io.Discard, content)
	closeErr := content.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}
