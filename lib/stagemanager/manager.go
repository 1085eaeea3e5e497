// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stagemanager

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bureau-foundation/staging/lib/checksum"
	"github.com/bureau-foundation/staging/lib/clock"
	"github.com/bureau-foundation/staging/lib/dirlock"
	"github.com/bureau-foundation/staging/lib/fileops"
	"github.com/bureau-foundation/staging/lib/stagestore"
	"github.com/bureau-foundation/staging/lib/template"
)

// DefaultChecksumAlgorithms is used when neither the template nor
// Config.FallbackChecksumAlgorithms names any algorithm.
var DefaultChecksumAlgorithms = []string{"SHA-1", "MD5"}

// Config configures a Manager.
type Config struct {
	// Root is the directory holding the stores. Created if missing.
	Root string

	// Locks is the process-wide lock table shared with every store
	// handle. Nil creates a private one.
	Locks *dirlock.Manager

	// Catalog resolves template names. Nil means template.DefaultCatalog().
	Catalog *template.Catalog

	// Checksums resolves algorithm names. Nil means checksum.Default().
	Checksums *checksum.Registry

	// FallbackChecksumAlgorithms applies to templates without their own
	// algorithm list. Nil means DefaultChecksumAlgorithms.
	FallbackChecksumAlgorithms []string

	// DryRun makes DropArtifactStore report success without deleting.
	DryRun bool

	// Clock stamps store creation. Nil means clock.Real().
	Clock clock.Clock

	// Logger receives lifecycle events. Nil discards them.
	Logger *slog.Logger
}

// Manager allocates, opens and removes stores under one root.
type Manager struct {
	root      string
	locks     *dirlock.Manager
	catalog   *template.Catalog
	checksums *checksum.Registry
	fallback  []string
	dryRun    bool
	clock     clock.Clock
	logger    *slog.Logger

	// allocation serializes name allocation and renumbering within
	// the process; the root lock serializes them across processes.
	allocation sync.Mutex

	mu     sync.Mutex
	closed bool
	stores []*stagestore.Store
}

// New returns a Manager for config.Root, creating the directory if
// needed and checking the fallback algorithms resolve.
func New(config Config) (*Manager, error) {
	if config.Root == "" {
		return nil, errors.New("stagemanager: Config.Root is required")
	}
	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving store root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating store root: %w", err)
	}

	manager := &Manager{
		root:      root,
		locks:     config.Locks,
		catalog:   config.Catalog,
		checksums: config.Checksums,
		fallback:  config.FallbackChecksumAlgorithms,
		dryRun:    config.DryRun,
		clock:     config.Clock,
		logger:    config.Logger,
	}
	if manager.locks == nil {
		manager.locks = dirlock.NewManager()
	}
	if manager.catalog == nil {
		manager.catalog = template.DefaultCatalog()
	}
	if manager.checksums == nil {
		manager.checksums = checksum.Default()
	}
	if len(manager.fallback) == 0 {
		manager.fallback = DefaultChecksumAlgorithms
	}
	if manager.clock == nil {
		manager.clock = clock.Real()
	}
	if manager.logger == nil {
		manager.logger = slog.New(slog.DiscardHandler)
	}
	if _, err := manager.checksums.Resolve(manager.fallback); err != nil {
		return nil, fmt.Errorf("fallback checksum algorithms: %w", err)
	}
	return manager, nil
}

// Root returns the absolute store root.
func (m *Manager) Root() string { return m.root }

// Catalog returns the template catalog.
func (m *Manager) Catalog() *template.Catalog { return m.catalog }

// Locks returns the lock table shared with every store handle.
func (m *Manager) Locks() *dirlock.Manager { return m.locks }

// ListArtifactStoreNames returns the names of every directory under
// the root that carries a properties file, sorted.
func (m *Manager) ListArtifactStoreNames() ([]string, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return nil, fmt.Errorf("listing store root: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || !isStoreCandidate(entry.Name()) {
			continue
		}
		if stagestore.HasProperties(filepath.Join(m.root, entry.Name())) {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// ListArtifactStoreNamesForPrefix returns the stores whose persisted
// template prefix is exactly prefix. A textual match on the name is
// not enough: "release" must not claim "release-sca-00001".
func (m *Manager) ListArtifactStoreNamesForPrefix(prefix string) ([]string, error) {
	names, err := m.ListArtifactStoreNames()
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, name := range names {
		if _, ok := parseStoreNumber(name, prefix); !ok {
			continue
		}
		// Properties are replaced by rename, so reading them without
		// the store lock always sees a complete file.
		meta, err := stagestore.ReadMeta(filepath.Join(m.root, name))
		if err != nil {
			m.logger.Warn("skipping unreadable store", "store", name, "error", err)
			continue
		}
		if meta.TemplatePrefix == prefix {
			matched = append(matched, name)
		}
	}
	return matched, nil
}

// CreateArtifactStore allocates the next name for tmpl's prefix and
// creates an empty store from it.
func (m *Manager) CreateArtifactStore(tmpl template.Template) (*stagestore.Store, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	algorithms, ok := tmpl.ChecksumAlgorithms()
	if !ok {
		algorithms = m.fallback
	}
	if _, err := m.checksums.Resolve(algorithms); err != nil {
		return nil, fmt.Errorf("template %s: %w", tmpl.Name(), err)
	}
	omit, ok := tmpl.OmitChecksumExtensions()
	if !ok {
		omit = template.DefaultOmitChecksumExtensions
	}

	name, basedir, err := m.allocate(tmpl.Prefix())
	if err != nil {
		return nil, err
	}
	store, err := stagestore.Create(basedir, stagestore.Meta{
		Name:                   name,
		TemplateName:           tmpl.Name(),
		TemplatePrefix:         tmpl.Prefix(),
		Created:                m.clock.Now(),
		RepositoryMode:         tmpl.RepositoryMode(),
		AllowRedeploy:          tmpl.AllowRedeploy(),
		ChecksumAlgorithms:     algorithms,
		OmitChecksumExtensions: omit,
	}, m.storeOptions(false))
	if err != nil {
		return nil, errors.Join(err, fileops.DeleteTree(basedir, nil))
	}
	m.logger.Info("store created", "store", name, "template", tmpl.Name())
	return m.track(store), nil
}

// SelectArtifactStore opens the named store for reading and writing.
func (m *Manager) SelectArtifactStore(name string) (*stagestore.Store, error) {
	return m.selectStore(name, false)
}

// SelectArtifactStoreReadOnly opens the named store in ReadOnly mode.
func (m *Manager) SelectArtifactStoreReadOnly(name string) (*stagestore.Store, error) {
	return m.selectStore(name, true)
}

func (m *Manager) selectStore(name string, readOnly bool) (*stagestore.Store, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	basedir, err := m.storeDir(name)
	if err != nil {
		return nil, err
	}
	if !stagestore.HasProperties(basedir) {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, name)
	}
	store, err := stagestore.Open(basedir, m.storeOptions(readOnly))
	if err != nil {
		return nil, err
	}
	return m.track(store), nil
}

// DropArtifactStore deletes the named store. Handles to it obtained
// from this Manager are closed first; handles held elsewhere make the
// exclusive lock fail. It reports false when the store no longer
// exists, which makes concurrent drops harmless. Under DryRun nothing
// is deleted and true is reported.
func (m *Manager) DropArtifactStore(name string) (bool, error) {
	if err := m.checkOpen(); err != nil {
		return false, err
	}
	basedir, err := m.storeDir(name)
	if err != nil {
		return false, err
	}
	if err := m.closeTracked(func(store *stagestore.Store) bool { return store.Name() == name }); err != nil {
		return false, err
	}

	if _, err := os.Stat(basedir); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := m.locks.Lock(basedir, dirlock.Exclusive); err != nil {
		return false, fmt.Errorf("dropping store %s: %w", name, err)
	}
	dropped, dropErr := m.dropLocked(name, basedir)
	unlockErr := m.locks.Unlock(basedir)
	if err := errors.Join(dropErr, unlockErr); err != nil {
		return false, fmt.Errorf("dropping store %s: %w", name, err)
	}
	return dropped, nil
}

func (m *Manager) dropLocked(name, basedir string) (bool, error) {
	if !stagestore.HasProperties(basedir) {
		return false, nil
	}
	if m.dryRun {
		m.logger.Info("store drop skipped (dry run)", "store", name)
		return true, nil
	}
	if err := fileops.DeleteTree(basedir, nil); err != nil {
		return false, err
	}
	m.logger.Info("store dropped", "store", name)
	return true, nil
}

// Close closes every store handle this Manager returned. Later calls
// fail with ErrClosed. Closing twice is a no-op.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	stores := m.stores
	m.stores = nil
	m.mu.Unlock()

	var errs []error
	for _, store := range stores {
		if err := store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) checkOpen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *Manager) storeDir(name string) (string, error) {
	if !template.ValidName(name) {
		return "", fmt.Errorf("%w: %q", stagestore.ErrInvalidName, name)
	}
	return filepath.Join(m.root, name), nil
}

func (m *Manager) storeOptions(readOnly bool) stagestore.Options {
	return stagestore.Options{
		Locks:     m.locks,
		Checksums: m.checksums,
		Catalog:   m.catalog,
		ReadOnly:  readOnly,
		Logger:    m.logger,
	}
}

func (m *Manager) track(store *stagestore.Store) *stagestore.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores = append(m.stores, store)
	return store
}

// closeTracked closes and forgets every tracked handle selected by match.
func (m *Manager) closeTracked(match func(*stagestore.Store) bool) error {
	m.mu.Lock()
	var selected []*stagestore.Store
	kept := m.stores[:0]
	for _, store := range m.stores {
		if match(store) {
			selected = append(selected, store)
		} else {
			kept = append(kept, store)
		}
	}
	m.stores = kept
	m.mu.Unlock()

	var errs []error
	for _, store := range selected {
		if err := store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isStoreCandidate(name string) bool {
	return !strings.HasPrefix(name, ".") && template.ValidName(name)
}
