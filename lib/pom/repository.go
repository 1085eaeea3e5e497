// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/staging/lib/coord"
	"github.com/bureau-foundation/staging/lib/stagestore"
)

// Repository opens artifacts by coordinate. Open returns an error
// wrapping fs.ErrNotExist when the repository does not hold the
// artifact, so a provider can move on to the next repository.
type Repository interface {
	Open(ctx context.Context, artifact coord.Artifact) (io.ReadCloser, error)
	String() string
}

// DirectoryRepository is a Maven2-layout directory on local disk, such
// as ~/.m2/repository.
type DirectoryRepository struct {
	Root string
}

// Open implements Repository.
func (d DirectoryRepository) Open(_ context.Context, artifact coord.Artifact) (io.ReadCloser, error) {
	return os.Open(filepath.Join(d.Root, filepath.FromSlash(coord.ArtifactPath(artifact))))
}

func (d DirectoryRepository) String() string { return "directory " + d.Root }

// StoreRepository serves the committed artifacts of a staging store.
type StoreRepository struct {
	Store *stagestore.Store
}

// Open implements Repository.
func (s StoreRepository) Open(_ context.Context, artifact coord.Artifact) (io.ReadCloser, error) {
	content, err := s.Store.ArtifactContent(artifact)
	if errors.Is(err, stagestore.ErrArtifactNotFound) {
		return nil, fmt.Errorf("%w: %v", fs.ErrNotExist, err)
	}
	return content, err
}

func (s StoreRepository) String() string { return "store " + s.Store.Name() }
