// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stagestore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bureau-foundation/staging/lib/checksum"
	"github.com/bureau-foundation/staging/lib/coord"
	"github.com/bureau-foundation/staging/lib/dirlock"
	"github.com/bureau-foundation/staging/lib/fileops"
	"github.com/bureau-foundation/staging/lib/template"
)

// WriteMode is the mutation policy of a store handle.
type WriteMode int

const (
	// ReadOnly rejects every mutation.
	ReadOnly WriteMode = iota
	// WriteOnce rejects puts that would overwrite an existing artifact.
	WriteOnce
	// WriteMany permits redeploying artifacts.
	WriteMany
)

// String returns READ_ONLY, WRITE_ONCE or WRITE_MANY.
func (mode WriteMode) String() string {
	switch mode {
	case ReadOnly:
		return "READ_ONLY"
	case WriteOnce:
		return "WRITE_ONCE"
	case WriteMany:
		return "WRITE_MANY"
	default:
		return fmt.Sprintf("WriteMode(%d)", int(mode))
	}
}

// Options configures a Store handle.
type Options struct {
	// Locks is the process-wide lock table. Required.
	Locks *dirlock.Manager

	// Checksums resolves the persisted algorithm names. Nil means
	// checksum.Default().
	Checksums *checksum.Registry

	// Catalog resolves the persisted template name back to a template.
	// When nil, or when the name is unknown, the template is rebuilt
	// from the persisted properties.
	Catalog *template.Catalog

	// ReadOnly opens the store in ReadOnly write mode. Otherwise the
	// mode is WriteMany when the store allows redeploy and WriteOnce
	// when it does not.
	ReadOnly bool

	// Logger receives debug-level commit events. Nil discards them.
	Logger *slog.Logger
}

// Store is one open staging store. Methods are safe for concurrent use;
// at most one Operation or Attachment handle is open at a time.
type Store struct {
	basedir    string
	meta       Meta
	template   template.Template
	writeMode  WriteMode
	algorithms []checksum.Algorithm
	registry   *checksum.Registry
	locks      *dirlock.Manager
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
	busy   bool
}

// Create initializes a new store in the existing directory basedir.
// The directory may already hold content and index files (an import
// extracts them first); it must not hold a properties file. The
// properties file is written under an exclusive lock, which is then
// downgraded to the shared lock the handle keeps.
func Create(basedir string, meta Meta, options Options) (*Store, error) {
	if options.Locks == nil {
		return nil, errors.New("stagestore: Options.Locks is required")
	}
	if meta.Name != filepath.Base(basedir) {
		return nil, fmt.Errorf("%w: store name %q does not match directory %s", ErrInvalidName, meta.Name, basedir)
	}
	if !template.ValidName(meta.Name) {
		return nil, fmt.Errorf("%w: %q must match [a-z0-9._-]+", ErrInvalidName, meta.Name)
	}
	if meta.TemplatePrefix == "" {
		meta.TemplatePrefix = meta.TemplateName
	}
	meta.Created = meta.Created.Truncate(time.Millisecond).UTC()

	if err := options.Locks.Lock(basedir, dirlock.Exclusive); err != nil {
		return nil, err
	}
	initErr := initialize(basedir, meta)
	unlockErr := options.Locks.Unlock(basedir)
	if err := errors.Join(initErr, unlockErr); err != nil {
		return nil, fmt.Errorf("creating store %s: %w", meta.Name, err)
	}

	return open(basedir, options)
}

func initialize(basedir string, meta Meta) error {
	if HasProperties(basedir) {
		return fmt.Errorf("%s already holds a store", basedir)
	}
	if err := WriteMeta(basedir, meta); err != nil {
		return err
	}
	for _, index := range []string{ArtifactsIndex, MetadataIndex} {
		path := filepath.Join(basedir, MetaDir, index)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := fileops.WriteFile(path, nil, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Open opens the existing store at basedir under a shared lock.
func Open(basedir string, options Options) (*Store, error) {
	if options.Locks == nil {
		return nil, errors.New("stagestore: Options.Locks is required")
	}
	return open(basedir, options)
}

func open(basedir string, options Options) (*Store, error) {
	if err := options.Locks.Lock(basedir, dirlock.Shared); err != nil {
		return nil, err
	}
	store, err := load(basedir, options)
	if err != nil {
		return nil, errors.Join(err, options.Locks.Unlock(basedir))
	}
	return store, nil
}

func load(basedir string, options Options) (*Store, error) {
	meta, err := ReadMeta(basedir)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", basedir, err)
	}
	if meta.Name != filepath.Base(basedir) {
		return nil, fmt.Errorf("%w: %s records name %q", ErrCorruptStore, basedir, meta.Name)
	}

	registry := options.Checksums
	if registry == nil {
		registry = checksum.Default()
	}
	algorithms, err := registry.Resolve(meta.ChecksumAlgorithms)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", meta.Name, err)
	}

	storeTemplate, err := resolveTemplate(meta, options.Catalog)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", meta.Name, err)
	}

	writeMode := WriteOnce
	switch {
	case options.ReadOnly:
		writeMode = ReadOnly
	case meta.AllowRedeploy:
		writeMode = WriteMany
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Store{
		basedir:    basedir,
		meta:       meta,
		template:   storeTemplate,
		writeMode:  writeMode,
		algorithms: algorithms,
		registry:   registry,
		locks:      options.Locks,
		logger:     logger.With("store", meta.Name),
	}, nil
}

// resolveTemplate prefers the catalog entry when it still agrees with
// what the store persisted, and otherwise rebuilds the template from
// the properties so stores outlive catalog changes.
func resolveTemplate(meta Meta, catalog *template.Catalog) (template.Template, error) {
	if catalog != nil {
		if known, ok := catalog.Lookup(meta.TemplateName); ok && known.Prefix() == meta.TemplatePrefix {
			return known, nil
		}
	}
	return template.New(template.Spec{
		Name:                   meta.TemplateName,
		Prefix:                 meta.TemplatePrefix,
		RepositoryMode:         meta.RepositoryMode,
		AllowRedeploy:          meta.AllowRedeploy,
		ChecksumAlgorithms:     meta.ChecksumAlgorithms,
		OmitChecksumExtensions: meta.OmitChecksumExtensions,
	})
}

// Name returns the store name.
func (s *Store) Name() string { return s.meta.Name }

// Basedir returns the store directory.
func (s *Store) Basedir() string { return s.basedir }

// Template returns the template the store was created from.
func (s *Store) Template() template.Template { return s.template }

// Created returns the creation time.
func (s *Store) Created() time.Time { return s.meta.Created }

// RepositoryMode returns the release/snapshot mode fixed at creation.
func (s *Store) RepositoryMode() template.RepositoryMode { return s.meta.RepositoryMode }

// WriteMode returns the mutation policy of this handle.
func (s *Store) WriteMode() WriteMode { return s.writeMode }

// ChecksumAlgorithms returns the configured algorithms in order.
func (s *Store) ChecksumAlgorithms() []checksum.Algorithm {
	return append([]checksum.Algorithm(nil), s.algorithms...)
}

// OmitChecksumExtensions returns the suffixes that get no checksum sidecars.
func (s *Store) OmitChecksumExtensions() []string {
	return append([]string(nil), s.meta.OmitChecksumExtensions...)
}

// Meta returns a copy of the persisted properties.
func (s *Store) Meta() Meta {
	meta := s.meta
	meta.ChecksumAlgorithms = append([]string(nil), s.meta.ChecksumAlgorithms...)
	meta.OmitChecksumExtensions = append([]string(nil), s.meta.OmitChecksumExtensions...)
	return meta
}

// FS returns the store directory as a read-only filesystem. Paths are
// the layout paths reported by coord.ArtifactPath and coord.MetadataPath.
func (s *Store) FS() fs.FS { return os.DirFS(s.basedir) }

// Artifacts returns every committed artifact, in commit order, with
// File pointing at the stored content.
func (s *Store) Artifacts() ([]coord.Artifact, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	entries, err := s.readIndex(ArtifactsIndex)
	if err != nil {
		return nil, err
	}
	artifacts := make([]coord.Artifact, 0, len(entries))
	for _, entry := range entries {
		artifact, err := coord.ParseArtifact(entry.coordinate)
		if err != nil {
			return nil, fmt.Errorf("%w: artifacts index: %v", ErrCorruptStore, err)
		}
		artifacts = append(artifacts, artifact.WithFile(s.absolute(entry.path)))
	}
	return artifacts, nil
}

// Metadata returns every committed metadata entry, in commit order,
// with File pointing at the stored content.
func (s *Store) Metadata() ([]coord.Metadata, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	entries, err := s.readIndex(MetadataIndex)
	if err != nil {
		return nil, err
	}
	metadata := make([]coord.Metadata, 0, len(entries))
	for _, entry := range entries {
		parsed, err := coord.ParseMetadata(entry.coordinate)
		if err != nil {
			return nil, fmt.Errorf("%w: metadata index: %v", ErrCorruptStore, err)
		}
		metadata = append(metadata, parsed.WithFile(s.absolute(entry.path)))
	}
	return metadata, nil
}

// ArtifactPresent reports whether artifact is committed to the index.
func (s *Store) ArtifactPresent(artifact coord.Artifact) (bool, error) {
	_, found, err := s.lookup(ArtifactsIndex, artifact.String())
	return found, err
}

// ArtifactContent opens the committed content of artifact.
func (s *Store) ArtifactContent(artifact coord.Artifact) (io.ReadCloser, error) {
	relative, found, err := s.lookup(ArtifactsIndex, artifact.String())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s in store %s", ErrArtifactNotFound, artifact, s.meta.Name)
	}
	return os.Open(s.absolute(relative))
}

// MetadataContent opens the committed content of metadata.
func (s *Store) MetadataContent(metadata coord.Metadata) (io.ReadCloser, error) {
	relative, found, err := s.lookup(MetadataIndex, metadata.String())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s in store %s", ErrMetadataNotFound, metadata, s.meta.Name)
	}
	return os.Open(s.absolute(relative))
}

func (s *Store) lookup(index, coordinate string) (string, bool, error) {
	if err := s.checkOpen(); err != nil {
		return "", false, err
	}
	entries, err := s.readIndex(index)
	if err != nil {
		return "", false, err
	}
	for _, entry := range entries {
		if entry.coordinate == coordinate {
			return entry.path, true, nil
		}
	}
	return "", false, nil
}

// Close releases the handle's shared lock. Every later call fails with
// ErrClosed. Closing twice is a no-op; closing while an Operation or
// Attachment handle is open fails with ErrOperationInProgress.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.busy {
		return fmt.Errorf("closing store %s: %w", s.meta.Name, ErrOperationInProgress)
	}
	s.closed = true
	return s.locks.Unlock(s.basedir)
}

func (s *Store) String() string {
	return fmt.Sprintf("%s (%s, %s, %s)", s.meta.Name, s.meta.TemplateName, s.meta.RepositoryMode, s.writeMode)
}

func (s *Store) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store %s: %w", s.meta.Name, ErrClosed)
	}
	return nil
}

// beginMutation marks the handle busy and upgrades its shared lock to
// exclusive. On failure the shared lock is restored.
func (s *Store) beginMutation() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store %s: %w", s.meta.Name, ErrClosed)
	}
	if s.writeMode == ReadOnly {
		return fmt.Errorf("store %s: %w", s.meta.Name, ErrReadOnly)
	}
	if s.busy {
		return fmt.Errorf("store %s: %w", s.meta.Name, ErrOperationInProgress)
	}

	if err := s.locks.Unlock(s.basedir); err != nil {
		return err
	}
	if err := s.locks.Lock(s.basedir, dirlock.Exclusive); err != nil {
		if restoreErr := s.locks.Lock(s.basedir, dirlock.Shared); restoreErr != nil {
			s.closed = true
			return errors.Join(err, fmt.Errorf("restoring shared lock: %w", restoreErr))
		}
		return err
	}
	s.busy = true
	return nil
}

// endMutation downgrades back to the shared lock and clears busy.
func (s *Store) endMutation() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if err := s.locks.Unlock(s.basedir); err != nil {
		return err
	}
	if err := s.locks.Lock(s.basedir, dirlock.Shared); err != nil {
		s.closed = true
		return fmt.Errorf("restoring shared lock on store %s: %w", s.meta.Name, err)
	}
	return nil
}

func (s *Store) indexPath(index string) string {
	return filepath.Join(s.basedir, MetaDir, index)
}

func (s *Store) absolute(relative string) string {
	return filepath.Join(s.basedir, filepath.FromSlash(relative))
}

// omitsChecksums reports whether path gets no checksum sidecars: it
// ends with an omitted suffix or is itself a checksum file.
func (s *Store) omitsChecksums(path string) bool {
	for _, suffix := range s.meta.OmitChecksumExtensions {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return s.registry.IsSidecar(path)
}
